package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/craiga/timesheets/internal/domain"
	"github.com/craiga/timesheets/internal/ports"
	"github.com/craiga/timesheets/internal/reconcile"
)

// RemoteWriteError reports a failed Harvest create or update for one entry.
// Non-fatal: the run continues with the next entry.
type RemoteWriteError struct {
	EntryID string
	Err     error
}

func (e *RemoteWriteError) Error() string {
	return fmt.Sprintf("writing entry %s to harvest: %v", e.EntryID, e.Err)
}

func (e *RemoteWriteError) Unwrap() error { return e.Err }

// EntrySkip records one skipped entry and why.
type EntrySkip struct {
	EntryID string
	Notes   string
	Reason  reconcile.SkipReason
}

// EntryFailure records one entry whose lookup or write failed.
type EntryFailure struct {
	EntryID string
	Notes   string
	Err     error
}

// SyncReport accumulates the outcome of one sync run.
type SyncReport struct {
	Created   int
	Updated   int
	Unchanged int
	Skipped   int
	Failed    int

	Skips    []EntrySkip
	Failures []EntryFailure
}

// SyncUseCase copies Timing time entries into Harvest. One entry is
// processed to completion before the next begins; there is no concurrency
// and no retry.
type SyncUseCase struct {
	Log     *slog.Logger
	Timing  ports.TimingClient
	Harvest ports.HarvestClient

	Rounding time.Duration
	Location *time.Location
}

// SendToHarvest syncs all Timing entries overlapping [from, to). Catalog and
// auth errors abort the run; per-entry errors are downgraded to report rows.
func (uc *SyncUseCase) SendToHarvest(ctx context.Context, from, to time.Time) (*SyncReport, error) {
	if uc.Timing == nil || uc.Harvest == nil {
		return nil, errors.New("usecase not initialized: missing dependencies")
	}

	uc.Log.Info("loading harvest catalog")
	catalog, err := uc.Harvest.LoadCatalog(ctx)
	if err != nil {
		return nil, err
	}

	uc.Log.Info("loading timing project tree")
	tree, err := uc.Timing.LoadProjectTree(ctx)
	if err != nil {
		return nil, &domain.CatalogFetchError{Stage: domain.StageTimingProjects, Err: err}
	}

	uc.Log.Info("fetching timing entries", slog.Time("from", from), slog.Time("to", to))
	entries, err := uc.Timing.ListTimeEntries(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("listing timing entries: %w", err)
	}
	uc.Log.Info("fetched timing entries", slog.Int("count", len(entries)))

	// Chronological order: no correctness dependency, but deterministic
	// output makes report diffs debuggable.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Start.Equal(entries[j].Start) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].Start.Before(entries[j].Start)
	})

	engine := &reconcile.Engine{
		Entries:  uc.Harvest,
		Catalog:  catalog,
		Rounding: uc.Rounding,
		Location: uc.Location,
	}

	report := &SyncReport{}
	for _, entry := range entries {
		uc.syncEntry(ctx, engine, tree, entry, report)
	}

	uc.Log.Info("sync completed",
		slog.Int("created", report.Created),
		slog.Int("updated", report.Updated),
		slog.Int("unchanged", report.Unchanged),
		slog.Int("skipped", report.Skipped),
		slog.Int("failed", report.Failed),
	)
	return report, nil
}

func (uc *SyncUseCase) syncEntry(ctx context.Context, engine *reconcile.Engine, tree []*domain.TimingProject, entry domain.TimingTimeEntry, report *SyncReport) {
	project := domain.FindProject(tree, entry.ProjectID)

	action, err := engine.Plan(ctx, entry, project)
	if err != nil {
		uc.Log.Warn("entry lookup failed", slog.String("entry", entry.ID), slog.String("error", err.Error()))
		report.Failed++
		report.Failures = append(report.Failures, EntryFailure{EntryID: entry.ID, Notes: entry.Title, Err: err})
		return
	}

	switch action.Kind {
	case reconcile.Skip:
		uc.Log.Debug("skipping entry", slog.String("entry", entry.ID), slog.String("reason", string(action.Reason)))
		report.Skipped++
		report.Skips = append(report.Skips, EntrySkip{EntryID: entry.ID, Notes: entry.Title, Reason: action.Reason})

	case reconcile.Create:
		created, err := uc.Harvest.CreateTimeEntry(ctx, action.Target)
		if err != nil {
			uc.recordWriteFailure(report, entry, err)
			return
		}
		uc.Log.Info("created harvest entry",
			slog.String("entry", entry.ID),
			slog.Int64("harvest_id", created.ID),
			slog.Float64("hours", action.Target.Hours),
		)
		report.Created++

	case reconcile.Update:
		if _, err := uc.Harvest.UpdateTimeEntry(ctx, action.ExistingID, action.Target); err != nil {
			uc.recordWriteFailure(report, entry, err)
			return
		}
		uc.Log.Info("updated harvest entry",
			slog.String("entry", entry.ID),
			slog.Int64("harvest_id", action.ExistingID),
		)
		report.Updated++

	case reconcile.Unchanged:
		uc.Log.Debug("entry already in sync", slog.String("entry", entry.ID), slog.Int64("harvest_id", action.ExistingID))
		report.Unchanged++
	}
}

func (uc *SyncUseCase) recordWriteFailure(report *SyncReport, entry domain.TimingTimeEntry, err error) {
	werr := &RemoteWriteError{EntryID: entry.ID, Err: err}
	uc.Log.Warn("harvest write failed", slog.String("entry", entry.ID), slog.String("error", err.Error()))
	report.Failed++
	report.Failures = append(report.Failures, EntryFailure{EntryID: entry.ID, Notes: entry.Title, Err: werr})
}
