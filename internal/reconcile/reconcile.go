// Package reconcile decides, for a single Timing time entry, what mutation
// (if any) brings Harvest in line with it. It is the sole enforcement point
// for association validity and for duplicate-free, idempotent syncing.
package reconcile

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/craiga/timesheets/internal/domain"
)

// SkipReason explains why an entry was not synced.
type SkipReason string

const (
	// NoAssociation: the Timing project (and its ancestors) carry neither
	// Harvest id.
	NoAssociation SkipReason = "no association"
	// IncompleteAssociation: only one of the two ids is set.
	IncompleteAssociation SkipReason = "incomplete association"
	// StaleAssociation: both ids are set but no longer resolve to an
	// existing Harvest task under the stored project.
	StaleAssociation SkipReason = "stale association"
)

// AssociationError wraps a skip reason as an error for reporting.
type AssociationError struct {
	Reason SkipReason
}

func (e *AssociationError) Error() string {
	return fmt.Sprintf("association unusable: %s", e.Reason)
}

// Kind classifies the action the engine decided on.
type Kind int

const (
	Skip Kind = iota
	Create
	Update
	Unchanged
)

func (k Kind) String() string {
	switch k {
	case Skip:
		return "skip"
	case Create:
		return "create"
	case Update:
		return "update"
	case Unchanged:
		return "unchanged"
	}
	return "unknown"
}

// Action is the engine's verdict for one Timing entry.
type Action struct {
	Kind   Kind
	Reason SkipReason // set when Kind == Skip

	// Target holds the desired Harvest entry fields for Create and Update.
	Target domain.TimeEntry
	// ExistingID identifies the Harvest entry to update; also set for
	// Unchanged so callers can report what already matched.
	ExistingID int64
}

// EntryLister is the slice of the Harvest client the engine needs for the
// dedup lookup.
type EntryLister interface {
	ListTimeEntries(ctx context.Context, from, to time.Time) ([]domain.TimeEntry, error)
}

// Engine computes reconciliation actions against a live Harvest catalog
// snapshot.
type Engine struct {
	Entries EntryLister
	Catalog *domain.Catalog

	// Rounding is the unit durations are rounded to the nearest multiple
	// of. Zero means no rounding: exact fractional hours.
	Rounding time.Duration
	// Location is the timezone used to attribute an entry's start instant
	// to a calendar date. Nil means the process-local timezone.
	Location *time.Location
}

// Plan decides the action for one Timing entry. An error return means the
// decision itself could not be made (transient lookup failure); the caller
// reports the entry as failed and continues.
func (e *Engine) Plan(ctx context.Context, entry domain.TimingTimeEntry, project *domain.TimingProject) (Action, error) {
	projectID, taskID, assocErr := e.resolveAssociation(project)
	if assocErr != nil {
		return Action{Kind: Skip, Reason: assocErr.Reason}, nil
	}

	target := e.target(entry, projectID, taskID)

	// Harvest's query API has no server-side token lookup, so fetch the
	// candidate day's entries and scan. Bounded by day granularity.
	dayStart, dayEnd := domain.DayWindow(entry.Start.In(e.location()))
	existing, err := e.Entries.ListTimeEntries(ctx, dayStart, dayEnd)
	if err != nil {
		return Action{}, fmt.Errorf("looking up existing entries for %s: %w", target.SpentDate, err)
	}

	for _, candidate := range existing {
		if candidate.ExternalReference != entry.ID {
			continue
		}
		if candidate.SpentDate == target.SpentDate &&
			candidate.Notes == target.Notes &&
			hoursEqual(candidate.Hours, target.Hours) {
			return Action{Kind: Unchanged, ExistingID: candidate.ID, Target: target}, nil
		}
		return Action{Kind: Update, ExistingID: candidate.ID, Target: target}, nil
	}
	return Action{Kind: Create, Target: target}, nil
}

// resolveAssociation maps a Timing project to a validated Harvest
// project/task pair, or an AssociationError describing why it is unusable.
func (e *Engine) resolveAssociation(project *domain.TimingProject) (projectID, taskID int64, assocErr *AssociationError) {
	if project == nil {
		return 0, 0, &AssociationError{Reason: NoAssociation}
	}
	rawProject, rawTask := project.Association()
	switch {
	case rawProject == "" && rawTask == "":
		return 0, 0, &AssociationError{Reason: NoAssociation}
	case rawProject == "" || rawTask == "":
		return 0, 0, &AssociationError{Reason: IncompleteAssociation}
	}

	projectID, errP := strconv.ParseInt(rawProject, 10, 64)
	taskID, errT := strconv.ParseInt(rawTask, 10, 64)
	if errP != nil || errT != nil {
		return 0, 0, &AssociationError{Reason: StaleAssociation}
	}

	task := e.Catalog.TaskByID(taskID)
	if task == nil || task.Project == nil || task.Project.ID != projectID {
		return 0, 0, &AssociationError{Reason: StaleAssociation}
	}
	return projectID, taskID, nil
}

// target builds the desired Harvest entry for a Timing entry. Duration
// stays in whole seconds until the final hours conversion here.
func (e *Engine) target(entry domain.TimingTimeEntry, projectID, taskID int64) domain.TimeEntry {
	dur := entry.Duration()
	if e.Rounding > 0 {
		dur = dur.Round(e.Rounding)
	}
	return domain.TimeEntry{
		ProjectID:         projectID,
		TaskID:            taskID,
		SpentDate:         entry.Start.In(e.location()).Format("2006-01-02"),
		Hours:             float64(dur/time.Second) / 3600,
		Notes:             entry.Title,
		ExternalReference: entry.ID,
	}
}

func (e *Engine) location() *time.Location {
	if e.Location != nil {
		return e.Location
	}
	return time.Local
}

// hoursEqual compares durations as Harvest stores them: hours to two decimal
// places. Comparing any tighter would flag spurious updates forever.
func hoursEqual(a, b float64) bool {
	return math.Abs(a-b) < 0.005
}
