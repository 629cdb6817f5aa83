package domain

import "time"

// TimingProject is a node in Timing's project hierarchy. Projects nest
// arbitrarily deep; the tree is strict (no cycles by construction from the
// source API), so plain parent-owns-children composition suffices.
type TimingProject struct {
	ID       string
	Title    string
	Parent   *TimingProject // back-reference, non-owning
	Children []*TimingProject

	// Association metadata persisted as custom fields on the Timing project.
	// Either may be empty; validity of the pair is the reconciliation
	// engine's concern, not this model's.
	HarvestProjectID string
	HarvestTaskID    string
}

// Association resolves the Harvest association fields for p, walking up the
// ancestor chain for any field p does not set itself. The two fields inherit
// independently: a child may override just the task id, for example.
func (p *TimingProject) Association() (projectID, taskID string) {
	for n := p; n != nil; n = n.Parent {
		if projectID == "" {
			projectID = n.HarvestProjectID
		}
		if taskID == "" {
			taskID = n.HarvestTaskID
		}
		if projectID != "" && taskID != "" {
			break
		}
	}
	return projectID, taskID
}

// TimingTimeEntry is a recorded time interval in Timing.
type TimingTimeEntry struct {
	ID        string
	ProjectID string
	Start     time.Time
	End       time.Time
	Title     string
}

// Duration returns the entry's length truncated to whole seconds. Durations
// are kept in seconds internally and converted to fractional hours only at
// the Harvest-entry-construction boundary, so recomputing an entry never
// compounds rounding error.
func (e TimingTimeEntry) Duration() time.Duration {
	return e.End.Sub(e.Start).Truncate(time.Second)
}

// ProjectDepth pairs a project with its depth in the hierarchy, 0 for roots.
type ProjectDepth struct {
	Depth   int
	Project *TimingProject
}

// WalkProjects enumerates the tree depth-first, pre-order: children always
// immediately follow their parent. Uses an explicit stack so depth is bounded
// by catalog size, not goroutine stack.
func WalkProjects(roots []*TimingProject) []ProjectDepth {
	var out []ProjectDepth
	type frame struct {
		node  *TimingProject
		depth int
	}
	stack := make([]frame, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, frame{roots[i], 0})
	}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, ProjectDepth{Depth: f.depth, Project: f.node})
		for i := len(f.node.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{f.node.Children[i], f.depth + 1})
		}
	}
	return out
}

// FindProject searches the tree for a project by id. Full scan; catalogs are
// small enough that an index would be premature.
func FindProject(roots []*TimingProject, id string) *TimingProject {
	for _, pd := range WalkProjects(roots) {
		if pd.Project.ID == id {
			return pd.Project
		}
	}
	return nil
}
