// Package agent wires the on-device daemon: the local queue store, the
// tracking facade, the sync coordinator and the offline shell proxy behind
// one local HTTP API.
package agent

import (
	"context"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/hvackit/fieldsync/internal/config"
	"github.com/hvackit/fieldsync/internal/localstore"
	"github.com/hvackit/fieldsync/internal/model"
	"github.com/hvackit/fieldsync/internal/remote"
	"github.com/hvackit/fieldsync/internal/response"
	"github.com/hvackit/fieldsync/internal/search"
	"github.com/hvackit/fieldsync/internal/session"
	"github.com/hvackit/fieldsync/internal/shellcache"
	"github.com/hvackit/fieldsync/internal/syncer"
	"github.com/hvackit/fieldsync/internal/track"
)

// Agent is the field daemon: local API plus background sync.
type Agent struct {
	Echo    *echo.Echo
	cfg     *config.AgentConfig
	store   *localstore.Store
	sess    *session.Session
	tracker *track.Tracker
	logger  *track.Logger
	coord   *syncer.Coordinator
	client  *remote.Client
	proxy   *shellcache.Proxy
	cache   *shellcache.Cache
	log     zerolog.Logger

	mu    sync.RWMutex
	index *search.Index
}

// New builds the agent from config. The search index starts from whatever
// catalog the last run left in the local store.
func New(cfg *config.AgentConfig, log zerolog.Logger) (*Agent, error) {
	store, err := localstore.Open(filepath.Join(cfg.Agent.DataDir, "fieldsync.db"), log)
	if err != nil {
		return nil, err
	}

	sess := session.New(cfg.Agent.Version)
	client := remote.NewClient(cfg.Remote.BaseURL, cfg.Remote.Token, 0)

	interval := syncer.DefaultInterval
	if cfg.Agent.SyncInterval > 0 {
		interval = time.Duration(cfg.Agent.SyncInterval) * time.Second
	}
	coord := syncer.New(store, client, interval, log)

	a := &Agent{
		cfg:     cfg,
		store:   store,
		sess:    sess,
		tracker: track.NewTracker(store, sess, client, cfg.Agent.UserID, coord.Wake, log),
		logger:  track.NewLogger(store, sess, client, coord.Wake, log),
		coord:   coord,
		client:  client,
		log:     log,
		index:   search.NewIndex(store.Catalog()),
	}

	if cfg.Shell != nil {
		cache, err := shellcache.OpenCache(filepath.Join(cfg.Agent.DataDir, "shellcache.db"), cfg.Shell.Generation, log)
		if err != nil {
			store.Close()
			return nil, err
		}
		proxy, err := shellcache.NewProxy(cache, shellcache.Config{
			Upstream:      cfg.Shell.Upstream,
			Backend:       cfg.Remote.BaseURL,
			BackendPrefix: cfg.Shell.BackendPrefix,
			ShellPath:     cfg.Shell.ShellPath,
			Precache:      cfg.Shell.Precache,
		}, log)
		if err != nil {
			cache.Close()
			store.Close()
			return nil, err
		}
		proxy.Subscribe(func(kind string) {
			if kind == shellcache.SyncBroadcast {
				coord.Wake()
			}
		})
		a.proxy = proxy
		a.cache = cache
	}

	a.Echo = a.routes()
	return a, nil
}

func (a *Agent) routes() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	e.POST("/track", a.postTrack)
	e.POST("/logs", a.postLog)
	e.GET("/search", a.getSearch)
	e.POST("/location", a.postLocation)
	e.POST("/sync", a.postSync)
	e.GET("/healthz", a.getHealth)
	e.GET("/catalog/refresh", a.refreshCatalog)

	// Everything else belongs to the UI shell and flows through the
	// offline cache proxy.
	if a.proxy != nil {
		e.Any("/*", echo.WrapHandler(a.proxy))
	}
	return e
}

type trackRequest struct {
	Type model.EventType `json:"type"`
	Path string          `json:"path"`
	Meta map[string]any  `json:"meta"`
}

func (a *Agent) postTrack(c echo.Context) error {
	var req trackRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid track payload", err.Error())
	}
	if req.Type == "" {
		req.Type = model.EventCustom
	}
	a.tracker.TrackEvent(c.Request().Context(), req.Type, req.Path, req.Meta)
	return response.NoContent(c)
}

type logRequest struct {
	Level   model.LogLevel `json:"level"`
	Message string         `json:"message"`
	Stack   string         `json:"stack"`
	Meta    map[string]any `json:"meta"`
}

func (a *Agent) postLog(c echo.Context) error {
	var req logRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid log payload", err.Error())
	}
	if req.Message == "" {
		return response.BadRequest(c, "invalid log payload", "message is required")
	}
	if req.Level == "" {
		req.Level = model.LevelInfo
	}
	a.logger.Write(c.Request().Context(), req.Level, req.Message, req.Stack, req.Meta)
	return response.NoContent(c)
}

// getSearch looks codes up in the locally cached catalog. An empty query
// returns the whole catalog, mirroring the lookup page's behavior.
func (a *Agent) getSearch(c echo.Context) error {
	a.mu.RLock()
	ix := a.index
	a.mu.RUnlock()

	results := ix.Search(c.QueryParam("q"))
	if results == nil {
		results = []model.ErrorCode{}
	}
	return response.OK(c, results, "")
}

func (a *Agent) postLocation(c echo.Context) error {
	var fix model.GeoFix
	if err := c.Bind(&fix); err != nil {
		return response.BadRequest(c, "invalid location payload", err.Error())
	}
	a.store.SetLastLocation(fix)
	return response.NoContent(c)
}

// postSync is the visibility/online trigger: nudge the coordinator and
// return immediately, the drain happens in the background.
func (a *Agent) postSync(c echo.Context) error {
	a.coord.Wake()
	return c.JSON(http.StatusAccepted, map[string]any{"status": "sync scheduled"})
}

func (a *Agent) getHealth(c echo.Context) error {
	return response.OK(c, map[string]any{
		"correlation_id": a.sess.CorrelationID,
		"device_id":      a.store.DeviceID(),
		"queues": map[string]int{
			"events":         a.store.Len(localstore.KeyEvents),
			"logs":           a.store.Len(localstore.KeyLogs),
			"fix_steps":      a.store.Len(localstore.KeyFixSteps),
			"error_metadata": a.store.Len(localstore.KeyErrorMetadata),
		},
		"catalog_synced_at": a.store.CatalogSyncedAt(),
	}, "")
}

// refreshCatalog downloads the error-code catalog for offline use and
// rebuilds the search index.
func (a *Agent) refreshCatalog(c echo.Context) error {
	codes, err := a.client.ListErrorCodes(c.Request().Context())
	if err != nil {
		a.log.Debug().Err(err).Msg("catalog refresh failed")
		return response.BadGateway(c, "catalog refresh failed", err.Error())
	}
	a.store.SaveCatalog(codes)

	a.mu.Lock()
	a.index = search.NewIndex(codes)
	a.mu.Unlock()

	return response.OK(c, map[string]any{"codes": len(codes)}, "")
}

// Run installs the shell cache, starts the sync loop and serves the local
// API until ctx is cancelled.
func (a *Agent) Run(ctx context.Context) error {
	if a.proxy != nil {
		if err := a.proxy.Precache(ctx); err != nil {
			// Offline start: the previous generation keeps serving until
			// the next successful install.
			a.log.Warn().Err(err).Msg("shell precache failed")
		} else {
			a.proxy.Activate()
		}
	}

	go a.coord.Run(ctx)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Echo.Shutdown(shutdownCtx); err != nil {
			a.log.Error().Err(err).Msg("agent shutdown failed")
		}
	}()

	err := a.Echo.Start(":" + a.cfg.Agent.Port)
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return a.Close()
}

// Close releases the agent's local databases.
func (a *Agent) Close() error {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.log.Error().Err(err).Msg("shell cache close failed")
		}
	}
	return a.store.Close()
}
