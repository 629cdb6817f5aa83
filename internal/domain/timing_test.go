package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func tree() []*TimingProject {
	// A -> [B, C -> [D]]
	a := &TimingProject{ID: "a", Title: "A"}
	b := &TimingProject{ID: "b", Title: "B", Parent: a}
	c := &TimingProject{ID: "c", Title: "C", Parent: a}
	d := &TimingProject{ID: "d", Title: "D", Parent: c}
	c.Children = []*TimingProject{d}
	a.Children = []*TimingProject{b, c}
	return []*TimingProject{a}
}

func TestWalkProjects(t *testing.T) {
	got := WalkProjects(tree())

	require.Len(t, got, 4)
	type step struct {
		depth int
		id    string
	}
	var steps []step
	for _, pd := range got {
		steps = append(steps, step{pd.Depth, pd.Project.ID})
	}
	require.Equal(t, []step{{0, "a"}, {1, "b"}, {1, "c"}, {2, "d"}}, steps)
}

func TestWalkProjectsMultipleRoots(t *testing.T) {
	roots := []*TimingProject{
		{ID: "r1", Children: []*TimingProject{{ID: "r1c"}}},
		{ID: "r2"},
	}
	got := WalkProjects(roots)

	var ids []string
	for _, pd := range got {
		ids = append(ids, pd.Project.ID)
	}
	// Children immediately follow their parent; root order preserved.
	require.Equal(t, []string{"r1", "r1c", "r2"}, ids)
}

func TestFindProject(t *testing.T) {
	roots := tree()

	require.Equal(t, "D", FindProject(roots, "d").Title)
	require.Equal(t, "A", FindProject(roots, "a").Title)
	require.Nil(t, FindProject(roots, "missing"))
}

func TestAssociationInheritance(t *testing.T) {
	parent := &TimingProject{ID: "p", HarvestProjectID: "100", HarvestTaskID: "200"}
	child := &TimingProject{ID: "c", Parent: parent}
	override := &TimingProject{ID: "o", Parent: parent, HarvestTaskID: "300"}
	orphan := &TimingProject{ID: "x"}

	tests := []struct {
		name        string
		project     *TimingProject
		wantProject string
		wantTask    string
	}{
		{name: "own fields", project: parent, wantProject: "100", wantTask: "200"},
		{name: "inherits both from parent", project: child, wantProject: "100", wantTask: "200"},
		{name: "task overridden, project inherited", project: override, wantProject: "100", wantTask: "300"},
		{name: "nothing set anywhere", project: orphan, wantProject: "", wantTask: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotProject, gotTask := tt.project.Association()
			require.Equal(t, tt.wantProject, gotProject)
			require.Equal(t, tt.wantTask, gotTask)
		})
	}
}

func TestTimingTimeEntryDuration(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	entry := TimingTimeEntry{Start: start, End: start.Add(30*time.Minute + 750*time.Millisecond)}

	// Sub-second precision is dropped before any hours conversion.
	require.Equal(t, 30*time.Minute, entry.Duration())
}
