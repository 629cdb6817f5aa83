// Package timing implements ports.TimingClient against the Timing web API.
// It doubles as the association store: Harvest ids live in custom fields on
// Timing projects.
package timing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/craiga/timesheets/internal/domain"
)

const DefaultBaseURL = "https://web.timingapp.com"

// Custom field keys used on Timing projects for the Harvest association.
const (
	FieldHarvestProjectID = "harvest_project_id"
	FieldHarvestTaskID    = "harvest_task_id"
)

// Client talks to the Timing REST API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     *slog.Logger
}

// NewClient builds a Timing client. httpClient may be nil for a default with
// a 30s timeout.
func NewClient(baseURL, token string, httpClient *http.Client, log *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: baseURL, token: token, http: httpClient, log: log}
}

// LoadProjectTree fetches the full project hierarchy in one pass.
func (c *Client) LoadProjectTree(ctx context.Context) ([]*domain.TimingProject, error) {
	var resp hierarchyResponse
	if err := c.getJSON(ctx, c.baseURL+"/api/v1/projects/hierarchy", &resp); err != nil {
		return nil, err
	}

	roots := make([]*domain.TimingProject, 0, len(resp.Data))
	for _, raw := range resp.Data {
		roots = append(roots, raw.toDomain(nil))
	}
	c.log.Debug("loaded timing project tree", slog.Int("roots", len(roots)))
	return roots, nil
}

// ListTimeEntries fetches entries overlapping [from, to). The API filters by
// start date at day granularity; the precise overlap check happens here.
func (c *Client) ListTimeEntries(ctx context.Context, from, to time.Time) ([]domain.TimingTimeEntry, error) {
	u, err := url.Parse(c.baseURL + "/api/v1/time-entries")
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("start_date_min", from.Format("2006-01-02"))
	q.Set("start_date_max", to.Format("2006-01-02"))
	u.RawQuery = q.Encode()

	var out []domain.TimingTimeEntry
	next := u.String()
	for next != "" {
		var page timeEntriesPage
		if err := c.getJSON(ctx, next, &page); err != nil {
			return nil, err
		}
		for _, raw := range page.Data {
			entry := raw.toDomain()
			if entry.End.After(from) && entry.Start.Before(to) {
				out = append(out, entry)
			}
		}
		next = page.Links.Next
		if next != "" && strings.HasPrefix(next, "/") {
			next = c.baseURL + next
		}
	}
	return out, nil
}

// SetCustomField patches one custom field on a project. Last write wins;
// nothing validates the value against the other association field.
func (c *Client) SetCustomField(ctx context.Context, projectID, key, value string) error {
	body, err := json.Marshal(map[string]any{
		"custom_fields": map[string]string{key: value},
	})
	if err != nil {
		return err
	}

	u := fmt.Sprintf("%s/api/v1/projects/%s", c.baseURL, url.PathEscape(TrimProjectID(projectID)))
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, u, bytes.NewReader(body))
	if err != nil {
		return err
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return err
	}
	c.log.Info("set timing custom field",
		slog.String("project", projectID),
		slog.String("key", key),
		slog.String("value", value),
	)
	return nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return err
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
}

func checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("timing: status %d: %w", resp.StatusCode, domain.ErrAuth)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("timing: unexpected status %d: %s", resp.StatusCode, string(msg))
	}
	return nil
}

// TrimProjectID strips the "/projects/" prefix Timing uses in self links.
func TrimProjectID(id string) string {
	return strings.TrimPrefix(id, "/projects/")
}

// Raw JSON shapes for the Timing API.

type hierarchyResponse struct {
	Data []rawProject `json:"data"`
}

type rawProject struct {
	Self         string            `json:"self"`
	Title        string            `json:"title"`
	CustomFields map[string]string `json:"custom_fields"`
	Children     []rawProject      `json:"children"`
}

func (r rawProject) toDomain(parent *domain.TimingProject) *domain.TimingProject {
	p := &domain.TimingProject{
		ID:               TrimProjectID(r.Self),
		Title:            r.Title,
		Parent:           parent,
		HarvestProjectID: r.CustomFields[FieldHarvestProjectID],
		HarvestTaskID:    r.CustomFields[FieldHarvestTaskID],
	}
	for _, child := range r.Children {
		p.Children = append(p.Children, child.toDomain(p))
	}
	return p
}

type timeEntriesPage struct {
	Links struct {
		Next string `json:"next"`
	} `json:"links"`
	Data []rawTimeEntry `json:"data"`
}

type rawTimeEntry struct {
	Self      string    `json:"self"`
	Title     string    `json:"title"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Project   struct {
		Self string `json:"self"`
	} `json:"project"`
}

func (r rawTimeEntry) toDomain() domain.TimingTimeEntry {
	return domain.TimingTimeEntry{
		ID:        strings.TrimPrefix(r.Self, "/time-entries/"),
		ProjectID: TrimProjectID(r.Project.Self),
		Start:     r.StartDate,
		End:       r.EndDate,
		Title:     r.Title,
	}
}
