package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sitevisit/report-server-go/internal/storage"
)

// retentionDirs are the storage areas subject to age-based pruning. The
// access code ledger is never touched: codes and audit logs are permanent
// records.
var retentionDirs = []string{"reports", "photos", "feedback"}

// RetentionJob prunes archived files older than the retention window.
type RetentionJob struct {
	store     storage.Store
	retention time.Duration
	interval  time.Duration
	done      chan struct{}
}

func NewRetentionJob(store storage.Store, retention, interval time.Duration) *RetentionJob {
	return &RetentionJob{
		store:     store,
		retention: retention,
		interval:  interval,
		done:      make(chan struct{}),
	}
}

func (j *RetentionJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Dur("retention", j.retention).Msg("retention job started")
}

func (j *RetentionJob) Stop() {
	close(j.done)
	log.Info().Msg("retention job stopped")
}

func (j *RetentionJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.prune()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.prune()
		}
	}
}

func (j *RetentionJob) prune() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-j.retention)

	for _, dir := range retentionDirs {
		count, err := j.pruneDir(ctx, dir, cutoff)
		if err != nil {
			log.Error().Err(err).Msgf("failed to prune %s", dir)
		} else if count > 0 {
			log.Info().Int("count", count).Msgf("pruned expired %s", dir)
		}
	}
}

func (j *RetentionJob) pruneDir(ctx context.Context, dir string, cutoff time.Time) (int, error) {
	infos, err := j.store.List(ctx, dir)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, info := range infos {
		if info.ModifiedAt.IsZero() || !info.ModifiedAt.Before(cutoff) {
			continue
		}
		if err := j.store.Delete(ctx, info.Key); err != nil {
			log.Error().Err(err).Str("key", info.Key).Msg("failed to delete expired file")
			continue
		}
		count++
	}
	return count, nil
}
