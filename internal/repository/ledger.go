package repository

import (
	"context"

	"github.com/sitevisit/report-server-go/internal/model"
)

// LedgerRepository is the transactional contract for the access code
// ledger. The code table and the audit log are one consistency domain:
// every operation sees and writes them together.
//
// Update runs fn against the current ledger and persists the result as one
// exclusive load-mutate-save cycle; concurrent updates are serialized, so
// no update is lost. If fn returns an error nothing is persisted.
//
// View runs fn against a consistent snapshot; mutations made by fn are
// discarded.
type LedgerRepository interface {
	View(ctx context.Context, fn func(l *model.Ledger) error) error
	Update(ctx context.Context, fn func(l *model.Ledger) error) error
}
