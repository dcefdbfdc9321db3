package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kirillkom/study-workspace/internal/core/domain"
	"github.com/kirillkom/study-workspace/internal/core/ports"
	"github.com/kirillkom/study-workspace/internal/observability/metrics"
)

const (
	maxJSONBodyBytes    = 64 << 10
	multipartOverhead   = 1 << 20
	backpressureMaxWait = 250 * time.Millisecond
)

// PreviewOpener streams the bytes behind a preview handle.
type PreviewOpener interface {
	Open(ctx context.Context, handle domain.PreviewHandle) (io.ReadSeekCloser, error)
}

type Options struct {
	Service        string
	Logger         *slog.Logger
	Metrics        *metrics.HTTPServerMetrics
	ServeMetrics   bool
	MaxUploadBytes int64

	RateLimitRPS   float64
	RateLimitBurst int
	MaxInFlight    int
}

type Router struct {
	workspace ports.WorkspaceService
	views     ports.ViewService
	library   ports.DocumentLibrary
	previews  PreviewOpener
	opts      Options
	logger    *slog.Logger
}

func NewRouter(
	workspace ports.WorkspaceService,
	views ports.ViewService,
	library ports.DocumentLibrary,
	previews PreviewOpener,
	opts Options,
) *Router {
	if opts.Service == "" {
		opts.Service = "study-workspace"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	return &Router{
		workspace: workspace,
		views:     views,
		library:   library,
		previews:  previews,
		opts:      opts,
		logger:    opts.Logger,
	}
}

func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(accessLogMiddleware(rt.logger))
	r.Use(middleware.Recoverer)
	if rt.opts.Metrics != nil {
		r.Use(func(next http.Handler) http.Handler {
			return rt.opts.Metrics.Middleware(rt.opts.Service, next)
		})
	}

	r.Get("/healthz", rt.healthz)
	if rt.opts.Metrics != nil && rt.opts.ServeMetrics {
		r.Method(http.MethodGet, "/metrics", rt.opts.Metrics.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return rateLimitMiddleware(next, rt.opts.RateLimitRPS, rt.opts.RateLimitBurst, rt.throttled("rate_limit"))
		})
		r.Use(func(next http.Handler) http.Handler {
			return backpressureMiddleware(next, rt.opts.MaxInFlight, backpressureMaxWait, rt.throttled("backpressure"))
		})

		r.Get("/view", rt.getView)
		r.Post("/view/navigate", rt.navigate)

		r.Route("/workspace", func(r chi.Router) {
			r.Get("/selection", rt.getSelection)
			r.Post("/selection", rt.selectFile)
			r.Delete("/selection", rt.cancelSelection)
			r.Get("/preview", rt.streamPreview)
			r.Post("/upload", rt.upload)
			r.Post("/reset", rt.reset)
		})

		r.Route("/chat", func(r chi.Router) {
			r.Get("/", rt.getChat)
			r.Post("/messages", rt.sendChat)
			r.Delete("/", rt.clearChat)
		})

		r.Route("/summary", func(r chi.Router) {
			r.Get("/", rt.getSummary)
			r.Put("/mode", rt.setSummaryMode)
			r.Post("/generate", rt.generateSummary)
		})

		r.Route("/quiz", func(r chi.Router) {
			r.Get("/", rt.getQuiz)
			r.Post("/generate", rt.generateQuiz)
			r.Put("/answers/{question}", rt.selectQuizOption)
			r.Post("/submit", rt.submitQuiz)
			r.Post("/explanations/{question}/toggle", rt.toggleExplanation)
			r.Post("/retry", rt.retryQuiz)
		})

		r.Get("/documents", rt.listDocuments)
		r.Delete("/documents/{documentID}", rt.deleteDocument)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) throttled(reason string) func() {
	return func() {
		if rt.opts.Metrics != nil {
			rt.opts.Metrics.RecordThrottled(rt.opts.Service, reason)
		}
	}
}

// fail writes err with the status its kind maps to.
func (rt *Router) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		rt.logger.Error("request_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
	}
	writeError(w, r, status, err.Error())
}

func decodeJSON(w http.ResponseWriter, r *http.Request, out any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.Reject(domain.ErrInvalidInput, "decode request", "empty body")
		}
		return domain.WrapError(domain.ErrInvalidInput, "decode request", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	payload := map[string]string{"error": message}
	if requestID := requestIDFromContext(r.Context()); requestID != "" {
		payload["request_id"] = requestID
	}
	writeJSON(w, status, payload)
}
