// Package httpcache is a read-through HTTP response cache backed by sqlite.
// It fronts catalog GETs only: mutations and the dedup day-window lookup are
// never served from cache, since stale dedup data would break idempotence.
package httpcache

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS http_cache (
  url        TEXT PRIMARY KEY,
  status     INTEGER NOT NULL,
  header     TEXT NOT NULL,
  body       BLOB NOT NULL,
  fetched_at INTEGER NOT NULL
);`

// Transport is an http.RoundTripper that caches successful GET responses for
// URLs under the configured path prefixes.
type Transport struct {
	db       *sql.DB
	next     http.RoundTripper
	ttl      time.Duration
	prefixes []string
	log      *slog.Logger
}

// New opens (or creates) the cache database at path. prefixes are URL path
// prefixes eligible for caching; everything else passes straight through.
func New(ctx context.Context, path string, next http.RoundTripper, ttl time.Duration, log *slog.Logger, prefixes ...string) (*Transport, error) {
	if path == "" {
		return nil, errors.New("httpcache: path is required")
	}
	if next == nil {
		next = http.DefaultTransport
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, err
	}
	return &Transport{db: db, next: next, ttl: ttl, prefixes: prefixes, log: log}, nil
}

func (t *Transport) Close() error { return t.db.Close() }

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !t.cacheable(req) {
		return t.next.RoundTrip(req)
	}
	key := req.URL.String()

	if resp, ok := t.lookup(req.Context(), key, req); ok {
		t.log.Debug("http cache hit", slog.String("url", key))
		return resp, nil
	}

	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return resp, nil
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, err
	}
	t.store(req.Context(), key, resp, body)
	resp.Body = io.NopCloser(bytes.NewReader(body))
	return resp, nil
}

func (t *Transport) cacheable(req *http.Request) bool {
	if req.Method != http.MethodGet {
		return false
	}
	for _, p := range t.prefixes {
		if strings.HasPrefix(req.URL.Path, p) {
			return true
		}
	}
	return false
}

func (t *Transport) lookup(ctx context.Context, key string, req *http.Request) (*http.Response, bool) {
	var (
		status    int
		headerRaw string
		body      []byte
		fetchedAt int64
	)
	row := t.db.QueryRowContext(ctx,
		`SELECT status, header, body, fetched_at FROM http_cache WHERE url = ?`, key)
	if err := row.Scan(&status, &headerRaw, &body, &fetchedAt); err != nil {
		return nil, false
	}
	if time.Since(time.Unix(fetchedAt, 0)) > t.ttl {
		return nil, false
	}

	header := http.Header{}
	if err := json.Unmarshal([]byte(headerRaw), &header); err != nil {
		return nil, false
	}
	return &http.Response{
		StatusCode:    status,
		Status:        http.StatusText(status),
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
	}, true
}

func (t *Transport) store(ctx context.Context, key string, resp *http.Response, body []byte) {
	headerRaw, err := json.Marshal(resp.Header)
	if err != nil {
		return
	}
	_, err = t.db.ExecContext(ctx, `
INSERT INTO http_cache (url, status, header, body, fetched_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(url) DO UPDATE SET
  status=excluded.status,
  header=excluded.header,
  body=excluded.body,
  fetched_at=excluded.fetched_at;`,
		key, resp.StatusCode, string(headerRaw), body, time.Now().Unix())
	if err != nil {
		// Cache writes are best-effort; the response already succeeded.
		t.log.Warn("http cache store failed", slog.String("url", key), slog.String("error", err.Error()))
	}
}
