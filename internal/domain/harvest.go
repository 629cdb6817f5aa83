package domain

import "time"

// Client represents a Harvest client (the customer, not an API client).
type Client struct {
	ID       int64
	Name     string
	Projects []*Project
}

// Project represents a Harvest project.
type Project struct {
	ID     int64
	Name   string
	Client *Client // back-reference, non-owning
	Tasks  []*Task
}

// Task represents a Harvest task assigned to a project.
type Task struct {
	ID      int64
	Name    string
	Project *Project // back-reference, non-owning
}

// TimeEntry represents a Harvest time entry.
type TimeEntry struct {
	ID        int64 // zero until created
	ProjectID int64
	TaskID    int64
	SpentDate string // YYYY-MM-DD
	Hours     float64
	Notes     string
	// ExternalReference carries the originating Timing entry's identifier.
	// It is the sole correlation key between the two systems.
	ExternalReference string
}

// Catalog is the full client -> project -> task tree fetched from Harvest
// at the start of a run. It is a read-only snapshot; nothing mutates it.
type Catalog struct {
	Clients []*Client

	tasksByID    map[int64]*Task
	projectsByID map[int64]*Project
}

// NewCatalog indexes the given clients for id lookups. Back-references on
// projects and tasks must already be set.
func NewCatalog(clients []*Client) *Catalog {
	c := &Catalog{
		Clients:      clients,
		tasksByID:    make(map[int64]*Task),
		projectsByID: make(map[int64]*Project),
	}
	for _, cl := range clients {
		for _, p := range cl.Projects {
			c.projectsByID[p.ID] = p
			for _, t := range p.Tasks {
				c.tasksByID[t.ID] = t
			}
		}
	}
	return c
}

// ProjectByID returns the project with the given id, or nil.
func (c *Catalog) ProjectByID(id int64) *Project {
	return c.projectsByID[id]
}

// TaskByID returns the task with the given id, or nil.
func (c *Catalog) TaskByID(id int64) *Task {
	return c.tasksByID[id]
}

// TaskRow is one line of the flattened catalog listing.
type TaskRow struct {
	ClientName  string
	ProjectName string
	TaskName    string
	ProjectID   int64
	TaskID      int64
}

// Tasks flattens the catalog ordered by client, then project, then task,
// preserving source API order. No re-sorting: Harvest does not guarantee
// alphabetical order, and re-sorting here would hide pagination bugs.
func (c *Catalog) Tasks() []TaskRow {
	var rows []TaskRow
	for _, cl := range c.Clients {
		for _, p := range cl.Projects {
			for _, t := range p.Tasks {
				rows = append(rows, TaskRow{
					ClientName:  cl.Name,
					ProjectName: p.Name,
					TaskName:    t.Name,
					ProjectID:   p.ID,
					TaskID:      t.ID,
				})
			}
		}
	}
	return rows
}

// DayWindow returns the [start, end) bounds of the calendar day containing t
// in t's location.
func DayWindow(t time.Time) (time.Time, time.Time) {
	y, m, d := t.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}
