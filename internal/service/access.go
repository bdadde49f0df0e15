package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	apperrors "github.com/sitevisit/report-server-go/internal/errors"
	"github.com/sitevisit/report-server-go/internal/model"
	"github.com/sitevisit/report-server-go/internal/repository"
	"github.com/sitevisit/report-server-go/internal/util"
)

const (
	// codeChars excludes visually ambiguous characters (0/O, 1/I).
	codeChars  = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength = 6

	defaultExpiryDays = 30
	defaultUses       = 100

	// recentLoginWindow is the lookback for the recent_logins counter.
	recentLoginWindow = 24 * time.Hour
)

// errNoChange signals that a ledger mutation callback decided against
// persisting. The repository treats any callback error as an abort, so
// returning this from inside Update gives read-only semantics.
var errNoChange = errors.New("no change")

// AccessService implements the access code ledger operations. Every
// operation reads the clock exactly once and evaluates all lifecycle
// decisions against that single reference time.
type AccessService struct {
	repo   repository.LedgerRepository
	logger zerolog.Logger
	now    func() time.Time
}

func NewAccessService(repo repository.LedgerRepository, logger zerolog.Logger) *AccessService {
	return &AccessService{
		repo:   repo,
		logger: logger.With().Str("component", "access_service").Logger(),
		now:    time.Now,
	}
}

// Create issues a new access code. Zero or negative expiry/uses fall back
// to the defaults (30 days, 100 uses); an empty access level means
// standard.
func (s *AccessService) Create(ctx context.Context, params model.CreateAccessCodeParams) (*model.AccessCodeInfo, error) {
	if strings.TrimSpace(params.AssignedTo) == "" {
		return nil, apperrors.MissingRequired("assigned_to")
	}
	if params.ExpiryDays <= 0 {
		params.ExpiryDays = defaultExpiryDays
	}
	if params.Uses <= 0 {
		params.Uses = defaultUses
	}
	if params.AccessLevel == "" {
		params.AccessLevel = model.AccessLevelStandard
	}
	if !params.AccessLevel.Valid() {
		return nil, apperrors.InvalidInput("access_level", fmt.Sprintf("unknown level %q", params.AccessLevel))
	}

	now := model.NewTimestamp(s.now())

	var info model.AccessCodeInfo
	err := s.repo.Update(ctx, func(l *model.Ledger) error {
		code, err := generateCode(l.Codes)
		if err != nil {
			return err
		}

		record := model.AccessCode{
			AssignedTo:    params.AssignedTo,
			Email:         params.Email,
			CreatedAt:     now,
			ExpiresAt:     model.NewTimestamp(now.Time.AddDate(0, 0, params.ExpiryDays)),
			IsValid:       true,
			UsesRemaining: params.Uses,
			Notes:         params.Notes,
			AccessLevel:   params.AccessLevel,
		}
		l.Codes[code] = record

		info = model.AccessCodeInfo{
			Code:       code,
			AccessCode: record,
			Status:     record.Status(now),
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.Persistence(err)
	}

	s.logger.Info().
		Str("code", info.Code).
		Str("assigned_to", params.AssignedTo).
		Str("access_level", string(params.AccessLevel)).
		Msg("access code created")

	return &info, nil
}

// Validate checks a code and, on success, consumes one use and appends a
// login entry to the audit log. Refusals are results, not errors; errors
// mean the ledger itself could not be read or written.
//
// All mutations happen in a single transaction: the usage decrement, the
// last_used update, and the log append land together or not at all. An
// expired code is disabled in place so later lists report it as disabled.
func (s *AccessService) Validate(ctx context.Context, rawCode string) (*model.ValidationResult, error) {
	code := normalizeCode(rawCode)
	now := model.NewTimestamp(s.now())

	var result model.ValidationResult
	err := s.repo.Update(ctx, func(l *model.Ledger) error {
		data, ok := l.Codes[code]
		if !ok {
			result = model.ValidationResult{
				Valid:   false,
				Reason:  model.FailNotFound,
				Message: "Invalid access code",
			}
			return errNoChange
		}

		if !data.IsValid {
			result = model.ValidationResult{
				Valid:   false,
				Reason:  model.FailDisabled,
				Message: "Access code has been disabled",
			}
			return errNoChange
		}

		if data.ExpiresAt.Before(now.Time) {
			// Auto-disable so the expiry is recorded permanently.
			data.IsValid = false
			l.Codes[code] = data
			result = model.ValidationResult{
				Valid:   false,
				Reason:  model.FailExpired,
				Message: "Access code has expired",
			}
			return nil
		}

		if data.UsesRemaining <= 0 {
			result = model.ValidationResult{
				Valid:   false,
				Reason:  model.FailDepleted,
				Message: "Access code has no remaining uses",
			}
			return errNoChange
		}

		data.UsesRemaining--
		data.LastUsed = &now
		l.Codes[code] = data

		l.Logs[uuid.NewString()] = model.AccessLogEntry{
			AccessCode: code,
			User:       data.AssignedTo,
			Action:     "login",
			Timestamp:  now,
		}

		permissions := data.AccessLevel.Permissions()
		expiresAt := data.ExpiresAt
		result = model.ValidationResult{
			Valid:         true,
			Message:       "Access code validated successfully",
			UserName:      data.AssignedTo,
			AccessLevel:   data.AccessLevel,
			Permissions:   &permissions,
			ExpiresAt:     &expiresAt,
			UsesRemaining: data.UsesRemaining,
		}
		return nil
	})
	if err != nil && !errors.Is(err, errNoChange) {
		return nil, apperrors.Persistence(err)
	}

	event := s.logger.Info()
	if !result.Valid {
		event = s.logger.Warn().Str("reason", string(result.Reason))
	}
	event.Str("code", code).Bool("valid", result.Valid).Msg("access code validated")

	return &result, nil
}

// List returns every code with its derived status, newest first.
func (s *AccessService) List(ctx context.Context) ([]model.AccessCodeInfo, error) {
	now := model.NewTimestamp(s.now())

	var infos []model.AccessCodeInfo
	err := s.repo.View(ctx, func(l *model.Ledger) error {
		infos = make([]model.AccessCodeInfo, 0, len(l.Codes))
		for code, data := range l.Codes {
			infos = append(infos, model.AccessCodeInfo{
				Code:       code,
				AccessCode: data,
				Status:     data.Status(now),
			})
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.Persistence(err)
	}

	sort.Slice(infos, func(i, j int) bool {
		if !infos[i].CreatedAt.Time.Equal(infos[j].CreatedAt.Time) {
			return infos[i].CreatedAt.Time.After(infos[j].CreatedAt.Time)
		}
		return infos[i].Code < infos[j].Code
	})

	return infos, nil
}

// Disable marks a code invalid. Disabling an already disabled code
// succeeds without change.
func (s *AccessService) Disable(ctx context.Context, rawCode string) error {
	code := normalizeCode(rawCode)

	err := s.repo.Update(ctx, func(l *model.Ledger) error {
		data, ok := l.Codes[code]
		if !ok {
			return apperrors.NotFound("Access code")
		}
		if !data.IsValid {
			return errNoChange
		}
		data.IsValid = false
		l.Codes[code] = data
		return nil
	})
	if errors.Is(err, errNoChange) {
		return nil
	}
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		return apperrors.Persistence(err)
	}

	s.logger.Info().Str("code", code).Msg("access code disabled")
	return nil
}

// updatableFields is the closed set of code properties the update
// operation may touch. Anything else in the request is ignored.
var updatableFields = map[string]struct{}{
	"assigned_to":    {},
	"email":          {},
	"expires_at":     {},
	"is_valid":       {},
	"uses_remaining": {},
	"notes":          {},
	"access_level":   {},
}

// Update applies a partial update to a code. Unknown fields are ignored;
// recognized fields with malformed values reject the whole update.
func (s *AccessService) Update(ctx context.Context, rawCode string, updates map[string]any) (*model.AccessCodeInfo, error) {
	code := normalizeCode(rawCode)
	now := model.NewTimestamp(s.now())

	var info model.AccessCodeInfo
	err := s.repo.Update(ctx, func(l *model.Ledger) error {
		data, ok := l.Codes[code]
		if !ok {
			return apperrors.NotFound("Access code")
		}

		for field, value := range updates {
			if _, allowed := updatableFields[field]; !allowed {
				continue
			}
			if err := applyCodeField(&data, field, value); err != nil {
				return err
			}
		}

		l.Codes[code] = data
		info = model.AccessCodeInfo{
			Code:       code,
			AccessCode: data,
			Status:     data.Status(now),
		}
		return nil
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperrors.Persistence(err)
	}

	s.logger.Info().Str("code", code).Msg("access code updated")
	return &info, nil
}

func applyCodeField(data *model.AccessCode, field string, value any) error {
	switch field {
	case "assigned_to":
		v, ok := value.(string)
		if !ok {
			return apperrors.InvalidInput(field, "must be a string")
		}
		data.AssignedTo = v
	case "email":
		v, ok := value.(string)
		if !ok {
			return apperrors.InvalidInput(field, "must be a string")
		}
		data.Email = v
	case "notes":
		v, ok := value.(string)
		if !ok {
			return apperrors.InvalidInput(field, "must be a string")
		}
		data.Notes = v
	case "is_valid":
		v, ok := value.(bool)
		if !ok {
			return apperrors.InvalidInput(field, "must be a boolean")
		}
		data.IsValid = v
	case "uses_remaining":
		switch v := value.(type) {
		case int:
			data.UsesRemaining = v
		case float64:
			data.UsesRemaining = int(v)
		default:
			return apperrors.InvalidInput(field, "must be a number")
		}
	case "expires_at":
		v, ok := value.(string)
		if !ok {
			return apperrors.InvalidInput(field, "must be a timestamp string")
		}
		ts, err := model.ParseTimestamp(v)
		if err != nil {
			return apperrors.InvalidInput(field, "must be an ISO-8601 timestamp")
		}
		data.ExpiresAt = ts
	case "access_level":
		v, ok := value.(string)
		if !ok {
			return apperrors.InvalidInput(field, "must be a string")
		}
		level := model.AccessLevel(v)
		if !level.Valid() {
			return apperrors.InvalidInput(field, fmt.Sprintf("unknown level %q", v))
		}
		data.AccessLevel = level
	}
	return nil
}

// LogFilter narrows a log query. Set fields must match exactly; all set
// fields must match together.
type LogFilter struct {
	AccessCode string
	User       string
	Action     string
}

// Logs returns audit log entries matching the filter, newest first.
func (s *AccessService) Logs(ctx context.Context, filter LogFilter) ([]model.AccessLogRecord, error) {
	filter.AccessCode = normalizeCode(filter.AccessCode)

	var records []model.AccessLogRecord
	err := s.repo.View(ctx, func(l *model.Ledger) error {
		records = make([]model.AccessLogRecord, 0, len(l.Logs))
		for id, entry := range l.Logs {
			if filter.AccessCode != "" && entry.AccessCode != filter.AccessCode {
				continue
			}
			if filter.User != "" && entry.User != filter.User {
				continue
			}
			if filter.Action != "" && entry.Action != filter.Action {
				continue
			}
			records = append(records, model.AccessLogRecord{ID: id, AccessLogEntry: entry})
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.Persistence(err)
	}

	sort.Slice(records, func(i, j int) bool {
		if !records[i].Timestamp.Time.Equal(records[j].Timestamp.Time) {
			return records[i].Timestamp.Time.After(records[j].Timestamp.Time)
		}
		return records[i].ID < records[j].ID
	})

	return records, nil
}

// Stats aggregates ledger counters. The per-status counts partition the
// code table, so their sum always equals total_codes.
func (s *AccessService) Stats(ctx context.Context) (*model.UsageStats, error) {
	now := model.NewTimestamp(s.now())
	cutoff := now.Time.Add(-recentLoginWindow)

	var stats model.UsageStats
	err := s.repo.View(ctx, func(l *model.Ledger) error {
		stats.TotalCodes = len(l.Codes)
		for _, data := range l.Codes {
			switch data.Status(now) {
			case model.CodeStatusActive:
				stats.ActiveCodes++
			case model.CodeStatusExpired:
				stats.ExpiredCodes++
			case model.CodeStatusDisabled:
				stats.DisabledCodes++
			case model.CodeStatusDepleted:
				stats.DepletedCodes++
			}
		}

		users := make(map[string]struct{})
		for _, entry := range l.Logs {
			users[entry.User] = struct{}{}
			if entry.Action == "login" {
				stats.TotalLogins++
				if entry.Timestamp.Time.After(cutoff) {
					stats.RecentLogins++
				}
			}
		}
		stats.UniqueUsers = len(users)
		return nil
	})
	if err != nil {
		return nil, apperrors.Persistence(err)
	}

	return &stats, nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// generateCode draws a random code and retries on the unlikely collision
// with an existing one.
func generateCode(existing map[string]model.AccessCode) (string, error) {
	for {
		code, err := util.RandomCode(codeChars, codeLength)
		if err != nil {
			return "", fmt.Errorf("generate access code: %w", err)
		}
		if _, taken := existing[code]; !taken {
			return code, nil
		}
	}
}
