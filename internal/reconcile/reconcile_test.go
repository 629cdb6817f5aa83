package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/craiga/timesheets/internal/domain"
)

type fakeLister struct {
	entries []domain.TimeEntry
	err     error
	windows [][2]time.Time
}

func (f *fakeLister) ListTimeEntries(ctx context.Context, from, to time.Time) ([]domain.TimeEntry, error) {
	f.windows = append(f.windows, [2]time.Time{from, to})
	if f.err != nil {
		return nil, f.err
	}
	return f.entries, nil
}

// testCatalog: one client, project 100 (task 200) and project 101 (task 201).
func testCatalog() *domain.Catalog {
	client := &domain.Client{ID: 1, Name: "Acme"}
	p100 := &domain.Project{ID: 100, Name: "Website", Client: client}
	p101 := &domain.Project{ID: 101, Name: "App", Client: client}
	p100.Tasks = []*domain.Task{{ID: 200, Name: "Programming", Project: p100}}
	p101.Tasks = []*domain.Task{{ID: 201, Name: "Support", Project: p101}}
	client.Projects = []*domain.Project{p100, p101}
	return domain.NewCatalog([]*domain.Client{client})
}

func associatedProject() *domain.TimingProject {
	return &domain.TimingProject{ID: "tp1", Title: "Client Work", HarvestProjectID: "100", HarvestTaskID: "200"}
}

func entryAt(id string, start time.Time, d time.Duration) domain.TimingTimeEntry {
	return domain.TimingTimeEntry{
		ID:        id,
		ProjectID: "tp1",
		Start:     start,
		End:       start.Add(d),
		Title:     "worked on things",
	}
}

func newEngine(lister *fakeLister) *Engine {
	return &Engine{Entries: lister, Catalog: testCatalog(), Location: time.UTC}
}

func TestPlanSkipReasons(t *testing.T) {
	tests := []struct {
		name    string
		project *domain.TimingProject
		want    SkipReason
	}{
		{name: "project not found", project: nil, want: NoAssociation},
		{name: "no fields set", project: &domain.TimingProject{ID: "tp1"}, want: NoAssociation},
		{
			name:    "only project id",
			project: &domain.TimingProject{ID: "tp1", HarvestProjectID: "100"},
			want:    IncompleteAssociation,
		},
		{
			name:    "only task id",
			project: &domain.TimingProject{ID: "tp1", HarvestTaskID: "200"},
			want:    IncompleteAssociation,
		},
		{
			name:    "unparseable ids",
			project: &domain.TimingProject{ID: "tp1", HarvestProjectID: "website", HarvestTaskID: "200"},
			want:    StaleAssociation,
		},
		{
			name:    "task gone from catalog",
			project: &domain.TimingProject{ID: "tp1", HarvestProjectID: "100", HarvestTaskID: "999"},
			want:    StaleAssociation,
		},
		{
			name:    "task parent disagrees with stored project",
			project: &domain.TimingProject{ID: "tp1", HarvestProjectID: "100", HarvestTaskID: "201"},
			want:    StaleAssociation,
		},
		{
			name:    "project gone but task present elsewhere",
			project: &domain.TimingProject{ID: "tp1", HarvestProjectID: "999", HarvestTaskID: "200"},
			want:    StaleAssociation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lister := &fakeLister{}
			engine := newEngine(lister)
			entry := entryAt("e1", time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), 30*time.Minute)

			action, err := engine.Plan(context.Background(), entry, tt.project)
			require.NoError(t, err)
			require.Equal(t, Skip, action.Kind)
			require.Equal(t, tt.want, action.Reason)
			// Skips never hit Harvest.
			require.Empty(t, lister.windows)
		})
	}
}

func TestPlanCreate(t *testing.T) {
	lister := &fakeLister{}
	engine := newEngine(lister)
	entry := entryAt("e1", time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), 30*time.Minute)

	action, err := engine.Plan(context.Background(), entry, associatedProject())
	require.NoError(t, err)
	require.Equal(t, Create, action.Kind)
	require.Equal(t, domain.TimeEntry{
		ProjectID:         100,
		TaskID:            200,
		SpentDate:         "2026-03-02",
		Hours:             0.5,
		Notes:             "worked on things",
		ExternalReference: "e1",
	}, action.Target)

	// Lookup was bounded to the entry's day.
	require.Len(t, lister.windows, 1)
	require.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), lister.windows[0][0])
	require.Equal(t, time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC), lister.windows[0][1])
}

func TestPlanDedupIsByTokenOnly(t *testing.T) {
	// An existing entry with identical date, duration, and project but a
	// different token must not be treated as a match.
	lister := &fakeLister{entries: []domain.TimeEntry{{
		ID:                9000,
		ProjectID:         100,
		TaskID:            200,
		SpentDate:         "2026-03-02",
		Hours:             0.5,
		Notes:             "worked on things",
		ExternalReference: "other-entry",
	}}}
	engine := newEngine(lister)
	entry := entryAt("e1", time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), 30*time.Minute)

	action, err := engine.Plan(context.Background(), entry, associatedProject())
	require.NoError(t, err)
	require.Equal(t, Create, action.Kind)
}

func TestPlanUpdateAndUnchanged(t *testing.T) {
	existing := domain.TimeEntry{
		ID:                9000,
		ProjectID:         100,
		TaskID:            200,
		SpentDate:         "2026-03-02",
		Hours:             0.5,
		Notes:             "worked on things",
		ExternalReference: "e1",
	}

	tests := []struct {
		name     string
		mutate   func(*domain.TimeEntry)
		duration time.Duration
		wantKind Kind
	}{
		{
			name:     "all fields match",
			mutate:   func(e *domain.TimeEntry) {},
			duration: 30 * time.Minute,
			wantKind: Unchanged,
		},
		{
			name:     "hours differ",
			mutate:   func(e *domain.TimeEntry) { e.Hours = 0.75 },
			duration: 30 * time.Minute,
			wantKind: Update,
		},
		{
			name:     "notes differ",
			mutate:   func(e *domain.TimeEntry) { e.Notes = "old notes" },
			duration: 30 * time.Minute,
			wantKind: Update,
		},
		{
			name:     "date differs",
			mutate:   func(e *domain.TimeEntry) { e.SpentDate = "2026-03-01" },
			duration: 30 * time.Minute,
			wantKind: Update,
		},
		{
			name: "hours differ only by harvest's two-decimal rounding",
			// 25 minutes is 0.4166… hours; Harvest stores 0.42.
			mutate:   func(e *domain.TimeEntry) { e.Hours = 0.42 },
			duration: 25 * time.Minute,
			wantKind: Unchanged,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stored := existing
			tt.mutate(&stored)

			lister := &fakeLister{entries: []domain.TimeEntry{stored}}
			engine := newEngine(lister)
			entry := entryAt("e1", time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), tt.duration)

			action, err := engine.Plan(context.Background(), entry, associatedProject())
			require.NoError(t, err)
			require.Equal(t, tt.wantKind, action.Kind)
			require.Equal(t, int64(9000), action.ExistingID)
		})
	}
}

func TestPlanRounding(t *testing.T) {
	tests := []struct {
		name      string
		rounding  time.Duration
		duration  time.Duration
		wantHours float64
	}{
		{name: "no rounding, exact half hour", rounding: 0, duration: 30 * time.Minute, wantHours: 0.5},
		{name: "no rounding keeps odd seconds", rounding: 0, duration: 30*time.Minute + 36*time.Second, wantHours: 0.51},
		{name: "five minute rounding, down", rounding: 5 * time.Minute, duration: 32 * time.Minute, wantHours: 0.5},
		{name: "five minute rounding, up", rounding: 5 * time.Minute, duration: 33 * time.Minute, wantHours: 35.0 / 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newEngine(&fakeLister{})
			engine.Rounding = tt.rounding
			entry := entryAt("e1", time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), tt.duration)

			action, err := engine.Plan(context.Background(), entry, associatedProject())
			require.NoError(t, err)
			require.Equal(t, Create, action.Kind)
			require.InDelta(t, tt.wantHours, action.Target.Hours, 1e-9)
		})
	}
}

func TestPlanDateAttribution(t *testing.T) {
	melbourne, err := time.LoadLocation("Australia/Melbourne")
	require.NoError(t, err)

	// 14:30 UTC on March 2nd is already March 3rd in Melbourne (UTC+11).
	start := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		location *time.Location
		wantDate string
	}{
		{name: "utc", location: time.UTC, wantDate: "2026-03-02"},
		{name: "melbourne", location: melbourne, wantDate: "2026-03-03"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lister := &fakeLister{}
			engine := newEngine(lister)
			engine.Location = tt.location
			// Spans local midnight in Melbourne; attributed wholly to the
			// start instant's date.
			entry := entryAt("e1", start, 12*time.Hour)

			action, err := engine.Plan(context.Background(), entry, associatedProject())
			require.NoError(t, err)
			require.Equal(t, Create, action.Kind)
			require.Equal(t, tt.wantDate, action.Target.SpentDate)
		})
	}
}

func TestPlanLookupFailure(t *testing.T) {
	lister := &fakeLister{err: errors.New("connection reset")}
	engine := newEngine(lister)
	entry := entryAt("e1", time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), 30*time.Minute)

	_, err := engine.Plan(context.Background(), entry, associatedProject())
	require.Error(t, err)
	require.Contains(t, err.Error(), "connection reset")
}
