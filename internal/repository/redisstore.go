package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/sitevisit/report-server-go/internal/model"
	"github.com/sitevisit/report-server-go/internal/redis"
)

const (
	codesKey = "ledger:access_codes"
	logsKey  = "ledger:access_logs"

	// maxTxRetries bounds the optimistic retry loop on WATCH conflicts.
	maxTxRetries = 10
)

// RedisStore keeps the ledger as two JSON documents in Redis. Updates use
// WATCH over both keys and retry on conflict, so concurrent writers never
// lose each other's changes.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) View(ctx context.Context, fn func(l *model.Ledger) error) error {
	ledger, err := s.load(ctx, s.client)
	if err != nil {
		return err
	}
	return fn(ledger)
}

func (s *RedisStore) Update(ctx context.Context, fn func(l *model.Ledger) error) error {
	txn := func(tx *goredis.Tx) error {
		ledger, err := s.load(ctx, tx)
		if err != nil {
			return err
		}
		if err := fn(ledger); err != nil {
			return err
		}

		codesDoc, err := json.Marshal(ledger.Codes)
		if err != nil {
			return fmt.Errorf("encode access codes: %w", err)
		}
		logsDoc, err := json.Marshal(ledger.Logs)
		if err != nil {
			return fmt.Errorf("encode access logs: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, codesKey, codesDoc, 0)
			pipe.Set(ctx, logsKey, logsDoc, 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txn, codesKey, logsKey)
		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("ledger update: too many concurrent modifications")
}

// cmdable covers both the plain client and the WATCH transaction handle.
type cmdable interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
}

func (s *RedisStore) load(ctx context.Context, c cmdable) (*model.Ledger, error) {
	ledger := model.NewLedger()

	if err := loadDoc(ctx, c, codesKey, &ledger.Codes); err != nil {
		return nil, fmt.Errorf("load access codes: %w", err)
	}
	if err := loadDoc(ctx, c, logsKey, &ledger.Logs); err != nil {
		return nil, fmt.Errorf("load access logs: %w", err)
	}

	return ledger, nil
}

func loadDoc(ctx context.Context, c cmdable, key string, dest interface{}) error {
	doc, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(doc, dest)
}
