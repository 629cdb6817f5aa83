package ports

import (
	"context"
	"time"

	"github.com/craiga/timesheets/internal/domain"
)

// HarvestClient defines the consumed surface of the Harvest v2 API.
type HarvestClient interface {
	// LoadCatalog fetches clients, then projects, then tasks, and assembles
	// the full tree. Never returns a partial catalog.
	LoadCatalog(ctx context.Context) (*domain.Catalog, error)
	// ListTimeEntries fetches entries whose spent date falls in [from, to).
	ListTimeEntries(ctx context.Context, from, to time.Time) ([]domain.TimeEntry, error)
	CreateTimeEntry(ctx context.Context, entry domain.TimeEntry) (domain.TimeEntry, error)
	UpdateTimeEntry(ctx context.Context, id int64, entry domain.TimeEntry) (domain.TimeEntry, error)
}

// TimingClient defines the consumed surface of the Timing API, including the
// association store (custom fields on Timing projects).
type TimingClient interface {
	LoadProjectTree(ctx context.Context) ([]*domain.TimingProject, error)
	// ListTimeEntries fetches entries overlapping [from, to).
	ListTimeEntries(ctx context.Context, from, to time.Time) ([]domain.TimingTimeEntry, error)
	// SetCustomField patches one metadata key on a project, overwriting any
	// prior value. No validation: the reconciliation engine is the sole
	// enforcement point for association validity.
	SetCustomField(ctx context.Context, projectID, key, value string) error
}
