package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"evote/internal/bootstrap/logging"
	usecase "evote/internal/usecase/voting"
)

const (
	voterIDHeader   = "X-Voter-ID"
	maxVoteBodySize = 10 << 20
)

// VotingService is what the HTTP layer needs from the voting usecases.
type VotingService interface {
	CastVote(ctx context.Context, input usecase.CastVoteInput) (usecase.CastVoteResult, error)
	GetEvent(ctx context.Context, eventID string) (usecase.EventView, error)
	GetResults(ctx context.Context, eventID string) (usecase.ResultsView, error)
	Ping(ctx context.Context) error
}

type Handler struct {
	svc VotingService
}

// NewRouter mounts the public API. metrics may be nil.
func NewRouter(svc VotingService, metrics http.Handler) http.Handler {
	h := &Handler{svc: svc}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.health)
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	r.Route("/v1/events/{eventID}", func(r chi.Router) {
		r.Get("/", h.getEvent)
		r.Get("/results", h.getResults)
		r.Post("/votes", h.castVote)
	})
	return r
}

// NewServer wraps the router with the configured timeouts.
func NewServer(addr string, handler http.Handler, readTimeout time.Duration) *http.Server {
	if readTimeout <= 0 {
		readTimeout = 15 * time.Second
	}
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readTimeout,
		ReadTimeout:       readTimeout,
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := logging.WithAttrs(r.Context(), slog.String("component", "transport.http"))
		ctx = logging.WithRequest(ctx, middleware.GetReqID(r.Context()), r.RemoteAddr)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		logging.Info(ctx, "http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("elapsed", time.Since(start)),
		)
	})
}
