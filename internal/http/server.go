package http

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"splitbill/internal/app"
	"splitbill/internal/chat"
	"splitbill/internal/log"
	"splitbill/internal/metrics"
	"splitbill/internal/middleware/ratelimit"
	"splitbill/internal/middleware/security"
	"splitbill/internal/session"
	appweb "splitbill/web"
)

const (
	readHeaderTimeout = 10 * time.Second
	staticMaxAge      = 3600
	readyTimeout      = 5 * time.Second
)

// Deps are the collaborators the server routes to. Metrics is optional.
type Deps struct {
	State    *app.State
	Chat     *chat.Service
	Sessions *session.Manager
	Metrics  *metrics.Metrics
	Logger   *log.Logger

	RateLimitPerMinute int

	// TemplatesFS and StaticFS default to the embedded web assets.
	TemplatesFS fs.FS
	StaticFS    fs.FS
}

type Server struct {
	http.Server

	state    *app.State
	chat     *chat.Service
	sessions *session.Manager
	metrics  *metrics.Metrics
	logger   *log.Logger
	render   *Renderer
	limiter  *ratelimit.Limiter
	detector *security.Detector
	hub      *chatHub
	started  time.Time

	shutdownOnce sync.Once
}

// NewServer parses the templates and builds the router. The returned
// server is ready for ListenAndServe.
func NewServer(addr string, deps Deps) (*Server, error) {
	if deps.State == nil || deps.Chat == nil || deps.Sessions == nil {
		return nil, errors.New("http server needs state, chat and sessions")
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	tfs := deps.TemplatesFS
	if tfs == nil {
		tfs = appweb.TemplatesFS
	}
	sfs := deps.StaticFS
	if sfs == nil {
		sub, err := fs.Sub(appweb.StaticFS, "static")
		if err != nil {
			return nil, fmt.Errorf("mount static assets: %w", err)
		}
		sfs = sub
	}

	render, err := NewRenderer(tfs, templateFuncs(deps.State.LedgerOptions().Location))
	if err != nil {
		return nil, err
	}

	s := &Server{
		state:    deps.State,
		chat:     deps.Chat,
		sessions: deps.Sessions,
		metrics:  deps.Metrics,
		logger:   logger,
		render:   render,
		detector: security.NewDetector(),
		hub:      newChatHub(logger.WithComponent(log.ComponentChat)),
		started:  time.Now(),
	}

	limitCfg := ratelimit.Config{RequestsPerMinute: deps.RateLimitPerMinute}
	if deps.Metrics != nil {
		limitCfg.Observer = deps.Metrics
		s.detector.SetObserver(deps.Metrics)
	}
	s.limiter = ratelimit.NewLimiter(limitCfg)

	s.chat.OnChange(s.hub.Notify)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(sfs),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s, nil
}

func (s *Server) routes(static fs.FS) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(log.Middleware(s.logger))
	r.Use(log.RequestIDMiddleware(func(r *http.Request) string {
		return middleware.GetReqID(r.Context())
	}))
	r.Use(log.AccessLog(s.detector.ExtractClientIP))
	r.Use(middleware.Recoverer)
	r.Use(s.detector.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
	}

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.With(security.StaticAssetMiddleware(staticMaxAge)).
		Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	r.Route("/api", func(r chi.Router) {
		r.Get("/user", s.handleAPIUser)
		r.Get("/splits", s.handleAPISplits)
		r.Get("/splits/{id}", s.handleAPISplit)
		r.Get("/transactions", s.handleAPITransactions)
		r.Get("/transactions/grouped", s.handleAPIGrouped)
		r.Get("/transactions/{id}", s.handleAPITransaction)
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			NotFound(w, "no such endpoint")
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(s.sessions.Middleware)

		r.Get("/", s.handleDashboard)
		r.Get("/transactions", s.handleTransactions)
		r.Get("/transactions/{id}", s.handleTransaction)
		r.Get("/splits/{id}", s.handleSplit)
		r.Get("/stats", s.handleStats)

		r.Get("/chat", s.handleChat)
		r.Get("/chat/transcript", s.handleTranscript)
		r.Get("/chat/ws", s.hub.ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimited))
			r.Post("/chat/messages", s.handleSendMessage)
			r.Post("/chat/confirm", s.handleConfirm)
			r.Post("/chat/cancel", s.handleCancel)
		})
	})

	r.NotFound(s.handleNotFound)
	return r
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).
		WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, s.detector.ExtractClientIP(r),
			log.FieldPath, r.URL.Path)
	TooManyRequestsError("Too many requests. Please wait a minute and try again.").
		TriggerErrorNotification("Too many requests").
		Write(w)
}

// Shutdown stops accepting requests, closes the chat sockets and the rate
// limiter. It runs once; later calls return nil.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if err := s.hub.Close(); err != nil {
			s.logger.Warn("Closing chat sockets failed", log.FieldError, err)
		}
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady probes the backend and reports the in-process collaborators.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	checks := map[string]any{
		"chat_sessions":      s.chat.Sessions(),
		"chat_pending":       s.chat.Pending(),
		"chat_sockets":       s.hub.Len(),
		"rate_limit_clients": s.limiter.ActiveClients(),
	}
	if err := s.state.Ping(ctx); err != nil {
		s.logger.WarnContext(ctx, "Readiness probe failed", log.FieldError, err)
		checks["backend"] = "unavailable"
		writeEnvelope(w, http.StatusServiceUnavailable, APIResponse{
			Data:  map[string]any{"status": "not_ready", "checks": checks},
			Error: &APIError{Code: CodeUnavailable, Message: "backend unavailable"},
		})
		return
	}
	checks["backend"] = "ok"
	JSON(w, http.StatusOK, map[string]any{"status": "ready", "checks": checks})
}
