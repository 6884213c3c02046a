package store

import (
	"context"

	"github.com/hamed0406/outagemon/internal/domain"
)

// LedgerStore persists one day's location → outage-record mapping. The ledger
// is rewritten wholesale after every cycle, so Save replaces whatever was
// stored for that day.
type LedgerStore interface {
	// Load returns the saved records for the day, or nil, nil when the day
	// has no data yet.
	Load(ctx context.Context, day string) (map[string][]*domain.OutageRecord, error)
	// Save replaces the stored records for the day.
	Save(ctx context.Context, day string, outages map[string][]*domain.OutageRecord) error
}
