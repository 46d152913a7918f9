package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/hvackit/fieldsync/internal/config"
	"github.com/hvackit/fieldsync/internal/database"
	"github.com/hvackit/fieldsync/internal/diagnose"
	"github.com/hvackit/fieldsync/internal/handler"
	"github.com/hvackit/fieldsync/internal/mail"
	"github.com/hvackit/fieldsync/internal/model"
	"github.com/hvackit/fieldsync/internal/repository"
	"github.com/hvackit/fieldsync/internal/response"
	"github.com/hvackit/fieldsync/internal/storage"
)

// Server holds the Echo app and its dependencies.
type Server struct {
	Echo   *echo.Echo
	Config *config.ServerConfig
	db     *database.Database
	log    zerolog.Logger
}

// New builds the Echo server and registers routes. Caller provides a
// bootstrapped database; mail, storage and the vision gateway are optional
// and the matching endpoints degrade when absent.
func New(cfg *config.ServerConfig, db *database.Database, log zerolog.Logger) (*Server, error) {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover(), middleware.Logger())
	if len(cfg.Server.CORSAllowedOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: cfg.Server.CORSAllowedOrigins,
			AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType},
		}))
	}

	validate := validator.New()

	photoStore, err := storage.NewPhotoStore(cfg.Storage)
	if err != nil {
		return nil, err
	}
	if photoStore != nil {
		if err := photoStore.EnsureBucket(context.Background()); err != nil {
			log.Warn().Err(err).Msg("photo bucket check failed, uploads may fail")
		}
	}

	tokens := handler.StaticTokens{}
	if cfg.Server.AdminToken != "" {
		tokens[cfg.Server.AdminToken] = model.RoleAdmin
	}

	analytics := repository.NewAnalyticsRepository(db.Pool)
	drafts := repository.NewDraftRepository(db.Pool)

	ingest := &handler.IngestHandler{
		Events: analytics,
		Logs:   analytics,
		Drafts: drafts,
		Log:    log,
	}
	codes := &handler.ErrorCodeHandler{
		Catalog: repository.NewErrorCodeRepository(db.Pool),
		Log:     log,
	}
	admin := &handler.AdminHandler{
		Users:    repository.NewUserRepository(db.Pool),
		Auth:     tokens,
		Validate: validate,
		Log:      log,
	}
	contact := &handler.ContactHandler{
		Relay:    relayOrNil(cfg.Mail),
		Archive:  repository.NewContactRepository(db.Pool),
		Validate: validate,
		Log:      log,
	}
	photo := &handler.PhotoHandler{
		Auth:     tokens,
		Analyzer: diagnose.NewCanned(),
		Archive:  archiveOrNil(photoStore),
		Log:      log,
	}

	v1 := e.Group("/v1")
	v1.POST("/events", ingest.PostEvents)
	v1.POST("/logs", ingest.PostLogs)
	v1.POST("/fix-steps", ingest.PostFixSteps)
	v1.POST("/error-metadata", ingest.PostErrorMetadata)
	v1.GET("/error-codes", codes.List)
	v1.GET("/admin/users", admin.ListUsers)
	v1.POST("/admin/users", admin.CreateUser)
	v1.POST("/contact", contact.Post)
	v1.POST("/photo-diagnosis", photo.Post)

	e.GET("/healthz", func(c echo.Context) error {
		if err := db.Ping(c.Request().Context()); err != nil {
			return response.Error(c, http.StatusServiceUnavailable, "database unreachable", err.Error())
		}
		return response.OK(c, map[string]any{"status": "ok"}, "")
	})

	return &Server{Echo: e, Config: cfg, db: db, log: log}, nil
}

// relayOrNil keeps the handler's nil check on the interface honest: a nil
// *mail.Relay must become a nil interface, not a typed nil.
func relayOrNil(cfg *config.MailSection) handler.ContactRelay {
	if r := mail.NewRelay(cfg); r != nil {
		return r
	}
	return nil
}

func archiveOrNil(s *storage.PhotoStore) handler.PhotoArchive {
	if s != nil {
		return s
	}
	return nil
}

// Start runs the HTTP server and blocks until the context is cancelled or
// the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.Echo.Server.ReadTimeout = time.Duration(s.Config.Server.ReadTimeout) * time.Second
	s.Echo.Server.WriteTimeout = time.Duration(s.Config.Server.WriteTimeout) * time.Second
	s.Echo.Server.IdleTimeout = time.Duration(s.Config.Server.IdleTimeout) * time.Second

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			s.log.Error().Err(err).Msg("shutdown failed")
		}
	}()

	err := s.Echo.Start(":" + s.Config.Server.Port)
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.Echo.Shutdown(ctx)
}
