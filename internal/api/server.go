// Package api exposes the site catalogue, the login endpoint and the stored
// upload files over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/HoloHeri/internal/auth"
	"github.com/dharsanguruparan/HoloHeri/internal/config"
	"github.com/dharsanguruparan/HoloHeri/internal/model"
	"github.com/dharsanguruparan/HoloHeri/internal/site"
	"github.com/dharsanguruparan/HoloHeri/internal/upload"
)

// SiteService is the catalogue behaviour the handlers rely on.
type SiteService interface {
	Create(ctx context.Context, in site.Input) (*model.Site, error)
	List(ctx context.Context, q site.ListQuery) (*site.ListResult, error)
	Get(ctx context.Context, id string) (*model.Site, error)
	Update(ctx context.Context, id string, in site.Input) (*model.Site, error)
	Delete(ctx context.Context, id string) (string, error)
}

// Authenticator handles logins and token checks.
type Authenticator interface {
	Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResult, error)
	Verify(token string) (string, error)
}

// Server exposes HTTP endpoints for sites, login and uploaded files.
type Server struct {
	cfg    *config.Config
	sites  SiteService
	auth   Authenticator
	intake *upload.Intake
	log    *zap.SugaredLogger

	handler http.Handler
	once    sync.Once
}

// New constructs a Server.
func New(cfg *config.Config, sites SiteService, authn Authenticator, intake *upload.Intake, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = zap.S()
	}
	return &Server{
		cfg:    cfg,
		sites:  sites,
		auth:   authn,
		intake: intake,
		log:    log,
	}
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	s.once.Do(func() {
		s.handler = s.corsHandler().Handler(s.routes())
	})
	return s.handler
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.cfg.Address,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.RequestTimeout,
		WriteTimeout: s.cfg.RequestTimeout,
		IdleTimeout:  2 * time.Minute,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
	s.log.Infow("api listening", "address", s.cfg.Address, "prefix", s.cfg.RoutePrefix)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.recovery, s.requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/uploads/*", s.handleUploadedFile)
	r.Head("/uploads/*", s.handleUploadedFile)

	if s.cfg.RoutePrefix == "" {
		r.Group(s.apiRoutes)
	} else {
		r.Route(s.cfg.RoutePrefix, s.apiRoutes)
	}
	return r
}

func (s *Server) apiRoutes(r chi.Router) {
	r.Route("/sites", func(r chi.Router) {
		r.Get("/", s.handleListSites)
		r.Get("/{id}", s.handleGetSite)
		r.Group(func(r chi.Router) {
			if s.cfg.RequireAuth {
				r.Use(s.requireToken)
			}
			r.Post("/", s.handleCreateSite)
			r.Put("/{id}", s.handleUpdateSite)
			r.Delete("/{id}", s.handleDeleteSite)
		})
	})
	r.Post("/users/login", s.handleLogin)
}

func (s *Server) corsHandler() *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins:   []string{s.cfg.CORSOrigin},
		AllowedMethods:   []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Origin", "X-Requested-With", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
