package services

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/foloup/backend/repository"
	ws "github.com/foloup/backend/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RouteRegistrar is implemented by every group of recruiter-facing endpoints
type RouteRegistrar interface {
	RegisterRoutes(r chi.Router)
}

// Server holds all server dependencies
type Server struct {
	config *Config
	repo   *repository.GORMRepository
	pool   *pgxpool.Pool

	hub       *ws.Hub
	ai        *AIService
	links     *LinkService
	sessions  *CallSessionService
	sockets   *WebSocketHandler
	auth      *AuthService
	upgrader  websocket.Upgrader
	endpoints []RouteRegistrar

	authEndpoints *AuthEndpoints
	linkEndpoints *LinkEndpoints
	atsEndpoints  *ATSEndpoints
}

func NewServer(config *Config) *Server {
	return &Server{
		config: config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return CheckOrigin(r, config.WebSocket.AllowedOrigins)
			},
		},
	}
}

// SetDatabase sets the repository and the pool used for health checks
func (s *Server) SetDatabase(repo *repository.GORMRepository, pool *pgxpool.Pool) {
	s.repo = repo
	s.pool = pool
}

// SetAIService replaces the provider-backed AI service, used by tests
func (s *Server) SetAIService(ai *AIService) {
	s.ai = ai
}

// InitializeServices wires services and endpoints. SetDatabase must be called first.
func (s *Server) InitializeServices() error {
	if s.repo == nil {
		slog.Warn("Database not configured, only health routes will be served")
		return nil
	}

	if s.ai == nil {
		s.ai = NewAIService(s.config.AI)
	}
	files := NewFileStore(s.config.Upload.Dir)
	prefs := NewPreferenceService(s.repo, s.ai)
	analytics := NewAnalyticsService(s.ai, s.repo)
	ats := NewATSService(s.ai, s.repo, files)

	s.links = NewLinkService(s.repo, s.config.Links.LiveURL)
	s.sessions = NewCallSessionService(s.repo, s.links, analytics, prefs, s.config.Calls)
	processor := NewCallProcessor(s.ai, s.sessions, prefs, s.repo)

	s.hub = ws.NewHub()
	s.sockets = NewWebSocketHandler(s.links, s.sessions, processor, s.hub, s.upgrader)

	if s.config.JWT.Secret != "" {
		s.auth = NewAuthService(s.repo, s.config.JWT.Secret, s.config.Server.Environment)
		s.authEndpoints = NewAuthEndpoints(s.auth)
		slog.Info("Authentication service initialized")
	} else {
		slog.Warn("JWT_SECRET not configured, recruiter routes are disabled")
	}

	s.linkEndpoints = NewLinkEndpoints(s.links)
	s.atsEndpoints = NewATSEndpoints(ats, s.repo, prefs, s.config.Upload.MaxBytes)
	s.endpoints = []RouteRegistrar{
		NewInterviewEndpoints(s.repo, analytics, prefs),
		NewResponseEndpoints(s.repo, analytics, prefs),
		NewCandidateEndpoints(s.repo),
		NewResumeEndpoints(s.repo, ats, files, prefs, s.config.Upload.MaxBytes),
		s.atsEndpoints,
		s.linkEndpoints,
		NewPreferenceEndpoints(prefs, s.repo, s.ai),
	}
	return nil
}

// SetupRoutes configures all HTTP routes
func (s *Server) SetupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.healthHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", s.apiV1Handler)

		if s.linkEndpoints != nil {
			s.linkEndpoints.RegisterPublicRoutes(r, s.sockets)
			s.atsEndpoints.RegisterPublicRoutes(r)
		}
		if s.authEndpoints != nil {
			s.authEndpoints.RegisterRoutes(r)
		}

		if s.auth != nil {
			r.Group(func(r chi.Router) {
				r.Use(s.auth.Middleware)
				for _, e := range s.endpoints {
					e.RegisterRoutes(r)
				}
			})
		}
	})

	return r
}

// runBackground starts the hub, the link sweeper and the call timeout checker
func (s *Server) runBackground(ctx context.Context) {
	if s.hub != nil {
		go s.hub.Run()
	}
	if s.links != nil {
		go s.links.StartExpirySweeper(ctx, s.config.Links.SweepInterval)
	}
	if s.sessions != nil {
		go s.sessions.Start(ctx)
	}
}

// Start serves HTTP until SIGINT or SIGTERM, then shuts down within 5s
func (s *Server) Start() {
	port := s.config.Server.Port
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: s.SetupRoutes(),
	}

	bgCtx, stopBackground := context.WithCancel(context.Background())
	s.runBackground(bgCtx)

	go func() {
		slog.Info("Starting server", "port", port, "environment", s.config.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server...")
	stopBackground()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	if s.sessions != nil {
		if n := s.sessions.ConcludeAll(ctx, "Server shutting down"); n > 0 {
			slog.Info("Concluded live calls", "count", n)
		}

		done := make(chan struct{})
		go func() {
			s.sessions.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			slog.Warn("Pending call analytics abandoned")
		}
	}

	slog.Info("Server exited")
}

// CheckOrigin reports whether the request's Origin is in the comma-separated
// allow list. An empty list denies every origin.
func CheckOrigin(r *http.Request, allowedOrigins string) bool {
	origin := r.Header.Get("Origin")

	if allowedOrigins == "" {
		slog.Warn("WebSocket connection rejected: no allowed origins configured", "origin", origin)
		return false
	}

	for _, allowed := range strings.Split(allowedOrigins, ",") {
		if strings.TrimSpace(allowed) == origin {
			return true
		}
	}

	slog.Warn("WebSocket connection rejected: origin not allowed", "origin", origin, "allowed_origins", allowedOrigins)
	return false
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	dbStatus := "not configured"

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	switch {
	case s.pool != nil:
		dbStatus = "up"
		if err := s.pool.Ping(ctx); err != nil {
			slog.Error("Database ping failed", "error", err)
			dbStatus, status = "down", "degraded"
		}
	case s.repo != nil:
		dbStatus = "up"
		sqlDB, err := s.repo.DB().DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			dbStatus, status = "down", "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": status, "database": dbStatus})
}

func (s *Server) apiV1Handler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "FoloUp API v1", "version": "1.0.0"})
}
