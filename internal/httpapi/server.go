package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"contentops/internal/logging"
	"contentops/internal/orchestrator"
	"contentops/internal/queue"
	"contentops/internal/webhook"
	"contentops/internal/worker"
)

// JobCounter reports job counts by status. *queue.Queue satisfies it.
type JobCounter interface {
	Counts(ctx context.Context) (map[queue.Status]int, error)
}

// WorkerStatusReporter reports the worker pool. *worker.Pool satisfies it.
type WorkerStatusReporter interface {
	Status() worker.Status
}

// Deps collects the server's collaborators. Workers may be nil when the
// API runs without a pool.
type Deps struct {
	Orchestrator   *orchestrator.Orchestrator
	Reconciler     *webhook.Reconciler
	Jobs           JobCounter
	Workers        WorkerStatusReporter
	Token          string
	VideoSecret    string
	CaptionsSecret string
	Logger         *slog.Logger
}

// Server is the HTTP listener for the API and webhooks.
type Server struct {
	orch           *orchestrator.Orchestrator
	reconciler     *webhook.Reconciler
	jobs           JobCounter
	workers        WorkerStatusReporter
	token          string
	videoSecret    string
	captionsSecret string
	logger         *slog.Logger

	router   chi.Router
	listener net.Listener
	server   *http.Server
}

// New builds the server and its routes.
func New(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		orch:           deps.Orchestrator,
		reconciler:     deps.Reconciler,
		jobs:           deps.Jobs,
		workers:        deps.Workers,
		token:          strings.TrimSpace(deps.Token),
		videoSecret:    deps.VideoSecret,
		captionsSecret: deps.CaptionsSecret,
		logger:         logging.NewComponentLogger(logger, "api-server"),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestContext)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.bearerAuth)
		r.Get("/status", s.handle(s.handleStatus))

		r.Post("/articles", s.handle(s.handleCreateArticle))
		r.Route("/articles/{id}", func(r chi.Router) {
			r.Get("/", s.handle(s.handleGetArticle))
			r.Post("/submissions", s.handle(s.handleCreateSubmission))
		})

		r.Get("/submissions/{id}", s.handle(s.handleGetSubmission))

		r.Route("/outputs/{id}", func(r chi.Router) {
			r.Get("/", s.handle(s.handleGetOutput))
			r.Post("/generate", s.handle(s.handleGenerate))
			r.Post("/regenerate", s.handle(s.handleRegenerate))
			r.Put("/script", s.handle(s.handleEditScript))
			r.Post("/approve", s.handle(s.handleApprove))
			r.Delete("/approve", s.handle(s.handleUnapprove))
			r.Post("/tags", s.handle(s.handleAttachTag))
		})

		r.Post("/videos", s.handle(s.handleCreateVideo))
	})

	r.Route("/webhooks", func(r chi.Router) {
		r.Post("/video", s.handleVideoWebhook)
		r.Post("/captions", s.handleCaptionsWebhook)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, s.logger, http.StatusOK, map[string]bool{"ok": true})
	})
	return r
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on bind and serves until ctx ends or Stop is called.
func (s *Server) Start(ctx context.Context, bind string) error {
	listener, err := net.Listen("tcp", bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener
	s.server = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening",
		logging.String(logging.FieldEventType, "api_listening"),
		logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound address once Start has succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the listener down, waiting briefly for in-flight requests.
func (s *Server) Stop() {
	if s.server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}
