// Package app wires adapters and use cases from configuration.
package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/craiga/timesheets/internal/adapter/harvest"
	"github.com/craiga/timesheets/internal/adapter/httpcache"
	"github.com/craiga/timesheets/internal/adapter/timing"
	"github.com/craiga/timesheets/internal/config"
	"github.com/craiga/timesheets/internal/ports"
	"github.com/craiga/timesheets/internal/usecase"
)

// App holds the wired collaborators for one invocation.
type App struct {
	Log     *slog.Logger
	Harvest ports.HarvestClient
	Timing  ports.TimingClient
	Sync    *usecase.SyncUseCase

	cache *httpcache.Transport
}

// New wires clients and the sync use case. Credentials are checked by the
// individual commands, not here: listing Timing projects must not demand a
// Harvest token.
func New(ctx context.Context, log *slog.Logger, cfg config.Config) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	a := &App{Log: log}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	if cfg.Cache.Enabled {
		// Harvest catalog reads only. The dedup day-window scan must always
		// see live Harvest state, and the Timing hierarchy carries the
		// association fields, which are read back fresh on every run.
		cache, err := httpcache.New(ctx, cfg.Cache.Path, nil, cfg.Cache.TTL, log,
			"/v2/clients", "/v2/projects")
		if err != nil {
			return nil, err
		}
		a.cache = cache
		httpClient.Transport = cache
	}

	a.Harvest = harvest.NewClient(cfg.Harvest.BaseURL, cfg.Harvest.Token, cfg.Harvest.AccountID, httpClient, log)
	a.Timing = timing.NewClient(cfg.Timing.BaseURL, cfg.Timing.Token, httpClient, log)
	a.Sync = &usecase.SyncUseCase{
		Log:      log,
		Timing:   a.Timing,
		Harvest:  a.Harvest,
		Rounding: cfg.Sync.Rounding,
		Location: loc,
	}
	return a, nil
}

// Close releases the response cache, if one was opened.
func (a *App) Close() error {
	if a.cache != nil {
		return a.cache.Close()
	}
	return nil
}
