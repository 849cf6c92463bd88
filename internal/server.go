package internal

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	"connectrpc.com/grpchealth"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kazz187/taskdesk/internal/config"
	"github.com/kazz187/taskdesk/internal/event"
	"github.com/kazz187/taskdesk/internal/identity"
	"github.com/kazz187/taskdesk/internal/pushnotification"
	"github.com/kazz187/taskdesk/internal/ratelimit"
	"github.com/kazz187/taskdesk/internal/task"
	"github.com/kazz187/taskdesk/internal/user"
	"github.com/kazz187/taskdesk/pkg/cerr"
	"github.com/kazz187/taskdesk/pkg/clog"
)

type Server struct {
	server                 *http.Server
	env                    *config.Env
	verifier               *identity.Verifier
	limiter                *ratelimit.Limiter
	taskServer             *task.Server
	userServer             *user.Server
	pushNotificationServer *pushnotification.Server
	eventServer            *event.Server
}

func NewServer(
	env *config.Env,
	verifier *identity.Verifier,
	limiter *ratelimit.Limiter,
	taskServer *task.Server,
	userServer *user.Server,
	pushNotificationServer *pushnotification.Server,
	eventServer *event.Server,
) *Server {
	return &Server{
		env:                    env,
		verifier:               verifier,
		limiter:                limiter,
		taskServer:             taskServer,
		userServer:             userServer,
		pushNotificationServer: pushNotificationServer,
		eventServer:            eventServer,
	}
}

// Handler assembles the full HTTP surface: the JSON API under /api, health
// checks and metrics.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP)
	r.Route("/api", func(r chi.Router) {
		r.Use(
			clog.SlogChiMiddleware(),
			cerr.NewJSONChiMiddleware(),
			identity.Middleware(s.verifier),
			s.limiter.Middleware(),
		)
		s.taskServer.Mount(r)
		s.userServer.Mount(r)
		s.pushNotificationServer.Mount(r)
		s.eventServer.Mount(r)
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			cerr.SetNewJSONError(r.Context(), cerr.NotFound, "not found", nil)
		})
		r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
			cerr.SetNewJSONError(r.Context(), cerr.InvalidArgument, "method not allowed", nil)
		})
	})

	mux := http.NewServeMux()
	mux.Handle("/health", &HealthChecker{})
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/api/", r)
	mux.Handle(grpchealth.NewHandler(grpchealth.NewStaticChecker()))

	return cors.New(cors.Options{
		AllowedOrigins:   s.env.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(mux)
}

// ListenAndServe starts the HTTP server. ctx becomes the base context of every
// request, so cancelling it cancels in-flight work.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := net.JoinHostPort(s.env.HTTPHost, s.env.HTTPPort)
	slog.Info("starting server", "addr", addr)

	s.server = &http.Server{
		Addr:        addr,
		Handler:     h2c.NewHandler(s.Handler(), &http2.Server{}),
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

type HealthChecker struct{}

func (hc *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
