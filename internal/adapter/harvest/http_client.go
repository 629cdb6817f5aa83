// Package harvest implements ports.HarvestClient against the Harvest v2 API.
package harvest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/craiga/timesheets/internal/domain"
)

const DefaultBaseURL = "https://api.harvestapp.com"

// Client talks to the Harvest v2 REST API.
type Client struct {
	baseURL   string
	token     string
	accountID string
	http      *http.Client
	log       *slog.Logger
}

// NewClient builds a Harvest client. httpClient may be nil for a default
// with a 30s timeout; pass a caching client to serve catalog reads from the
// local response cache.
func NewClient(baseURL, token, accountID string, httpClient *http.Client, log *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:   baseURL,
		token:     token,
		accountID: accountID,
		http:      httpClient,
		log:       log,
	}
}

// LoadCatalog fetches all clients, then each client's projects, then each
// project's tasks, and assembles the tree. Any failure discards the partial
// result and reports the stage that failed.
func (c *Client) LoadCatalog(ctx context.Context) (*domain.Catalog, error) {
	rawClients, err := c.listClients(ctx)
	if err != nil {
		return nil, &domain.CatalogFetchError{Stage: domain.StageClients, Err: err}
	}

	clients := make([]*domain.Client, 0, len(rawClients))
	for _, rc := range rawClients {
		client := &domain.Client{ID: rc.ID, Name: rc.Name}

		rawProjects, err := c.listProjects(ctx, rc.ID)
		if err != nil {
			return nil, &domain.CatalogFetchError{Stage: domain.StageProjects, Err: err}
		}
		for _, rp := range rawProjects {
			project := &domain.Project{ID: rp.ID, Name: rp.Name, Client: client}

			rawTasks, err := c.listTasks(ctx, rp.ID)
			if err != nil {
				return nil, &domain.CatalogFetchError{Stage: domain.StageTasks, Err: err}
			}
			for _, rt := range rawTasks {
				project.Tasks = append(project.Tasks, &domain.Task{ID: rt.Task.ID, Name: rt.Task.Name, Project: project})
			}
			client.Projects = append(client.Projects, project)
		}
		clients = append(clients, client)
	}

	c.log.Debug("loaded harvest catalog", slog.Int("clients", len(clients)))
	return domain.NewCatalog(clients), nil
}

func (c *Client) listClients(ctx context.Context) ([]rawClient, error) {
	var out []rawClient
	next := c.baseURL + "/v2/clients"
	for next != "" {
		var page clientsPage
		if err := c.getJSON(ctx, next, &page); err != nil {
			return nil, err
		}
		out = append(out, page.Clients...)
		next = page.Links.Next
	}
	return out, nil
}

func (c *Client) listProjects(ctx context.Context, clientID int64) ([]rawProject, error) {
	var out []rawProject
	next := fmt.Sprintf("%s/v2/projects?client_id=%d", c.baseURL, clientID)
	for next != "" {
		var page projectsPage
		if err := c.getJSON(ctx, next, &page); err != nil {
			return nil, err
		}
		out = append(out, page.Projects...)
		next = page.Links.Next
	}
	return out, nil
}

func (c *Client) listTasks(ctx context.Context, projectID int64) ([]rawTaskAssignment, error) {
	var out []rawTaskAssignment
	next := fmt.Sprintf("%s/v2/projects/%d/task_assignments", c.baseURL, projectID)
	for next != "" {
		var page taskAssignmentsPage
		if err := c.getJSON(ctx, next, &page); err != nil {
			return nil, err
		}
		out = append(out, page.TaskAssignments...)
		next = page.Links.Next
	}
	return out, nil
}

// ListTimeEntries fetches entries whose spent date falls in [from, to).
// Harvest's from/to query parameters are inclusive dates, so the exclusive
// upper bound is pulled back one second before formatting.
func (c *Client) ListTimeEntries(ctx context.Context, from, to time.Time) ([]domain.TimeEntry, error) {
	u, err := url.Parse(c.baseURL + "/v2/time_entries")
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("from", from.Format("2006-01-02"))
	q.Set("to", to.Add(-time.Second).Format("2006-01-02"))
	u.RawQuery = q.Encode()

	var out []domain.TimeEntry
	next := u.String()
	for next != "" {
		var page timeEntriesPage
		if err := c.getJSON(ctx, next, &page); err != nil {
			return nil, err
		}
		for _, r := range page.TimeEntries {
			out = append(out, r.toDomain())
		}
		next = page.Links.Next
	}
	return out, nil
}

// CreateTimeEntry posts a new time entry and returns it with its assigned id.
func (c *Client) CreateTimeEntry(ctx context.Context, entry domain.TimeEntry) (domain.TimeEntry, error) {
	var created rawTimeEntry
	if err := c.sendJSON(ctx, http.MethodPost, c.baseURL+"/v2/time_entries", entryBody(entry), &created); err != nil {
		return domain.TimeEntry{}, err
	}
	return created.toDomain(), nil
}

// UpdateTimeEntry patches an existing time entry.
func (c *Client) UpdateTimeEntry(ctx context.Context, id int64, entry domain.TimeEntry) (domain.TimeEntry, error) {
	var updated rawTimeEntry
	u := fmt.Sprintf("%s/v2/time_entries/%d", c.baseURL, id)
	if err := c.sendJSON(ctx, http.MethodPatch, u, entryBody(entry), &updated); err != nil {
		return domain.TimeEntry{}, err
	}
	return updated.toDomain(), nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, v any) error {
	return c.do(ctx, http.MethodGet, rawURL, nil, v)
}

func (c *Client) sendJSON(ctx context.Context, method, rawURL string, body any, v any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return c.do(ctx, method, rawURL, payload, v)
}

func (c *Client) do(ctx context.Context, method, rawURL string, body []byte, v any) error {
	if c.token == "" || c.accountID == "" {
		return fmt.Errorf("harvest: %w: missing personal access token or account id", domain.ErrAuth)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Harvest-Account-ID", c.accountID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("harvest: status %d: %w", resp.StatusCode, domain.ErrAuth)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("harvest: unexpected status %d: %s", resp.StatusCode, string(msg))
	}

	if v == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func entryBody(entry domain.TimeEntry) rawTimeEntryRequest {
	return rawTimeEntryRequest{
		ProjectID: entry.ProjectID,
		TaskID:    entry.TaskID,
		SpentDate: entry.SpentDate,
		Hours:     entry.Hours,
		Notes:     entry.Notes,
		ExternalReference: &rawExternalReference{
			ID: entry.ExternalReference,
		},
	}
}

// Raw JSON shapes for the Harvest v2 API.

type pageLinks struct {
	Next string `json:"next"`
}

type clientsPage struct {
	Clients []rawClient `json:"clients"`
	Links   pageLinks   `json:"links"`
}

type rawClient struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type projectsPage struct {
	Projects []rawProject `json:"projects"`
	Links    pageLinks    `json:"links"`
}

type rawProject struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type taskAssignmentsPage struct {
	TaskAssignments []rawTaskAssignment `json:"task_assignments"`
	Links           pageLinks           `json:"links"`
}

type rawTaskAssignment struct {
	Task struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"task"`
}

type timeEntriesPage struct {
	TimeEntries []rawTimeEntry `json:"time_entries"`
	Links       pageLinks      `json:"links"`
}

type rawTimeEntry struct {
	ID        int64   `json:"id"`
	SpentDate string  `json:"spent_date"`
	Hours     float64 `json:"hours"`
	Notes     string  `json:"notes"`
	Project   struct {
		ID int64 `json:"id"`
	} `json:"project"`
	Task struct {
		ID int64 `json:"id"`
	} `json:"task"`
	ExternalReference *rawExternalReference `json:"external_reference"`
}

type rawExternalReference struct {
	ID string `json:"id"`
}

type rawTimeEntryRequest struct {
	ProjectID         int64                 `json:"project_id"`
	TaskID            int64                 `json:"task_id"`
	SpentDate         string                `json:"spent_date"`
	Hours             float64               `json:"hours"`
	Notes             string                `json:"notes"`
	ExternalReference *rawExternalReference `json:"external_reference,omitempty"`
}

func (r rawTimeEntry) toDomain() domain.TimeEntry {
	entry := domain.TimeEntry{
		ID:        r.ID,
		ProjectID: r.Project.ID,
		TaskID:    r.Task.ID,
		SpentDate: r.SpentDate,
		Hours:     r.Hours,
		Notes:     r.Notes,
	}
	if r.ExternalReference != nil {
		entry.ExternalReference = r.ExternalReference.ID
	}
	return entry
}
