package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	httpadapter "github.com/kirillkom/study-workspace/internal/adapters/http"
	"github.com/kirillkom/study-workspace/internal/config"
	"github.com/kirillkom/study-workspace/internal/core/domain"
	"github.com/kirillkom/study-workspace/internal/core/ports"
	"github.com/kirillkom/study-workspace/internal/core/usecase"
	"github.com/kirillkom/study-workspace/internal/infrastructure/backend/scholarnet"
	natsevents "github.com/kirillkom/study-workspace/internal/infrastructure/events/nats"
	"github.com/kirillkom/study-workspace/internal/infrastructure/preview/localfs"
	"github.com/kirillkom/study-workspace/internal/infrastructure/resilience"
	"github.com/kirillkom/study-workspace/internal/observability/metrics"
)

const serviceName = "study-workspace"

type App struct {
	Config  config.Config
	Logger  *slog.Logger
	Metrics *metrics.HTTPServerMetrics

	Workspace *usecase.Workspace
	Shell     *usecase.Shell
	Library   *usecase.Library
	Previews  *localfs.Store

	closeFn func()
}

func New(_ context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	httpMetrics := metrics.NewHTTPServerMetrics(serviceName)
	workspaceMetrics := metrics.NewWorkspaceMetrics(serviceName, httpMetrics.Registry())

	backend := scholarnet.New(cfg.BackendURL, scholarnet.Options{
		Timeout:        time.Duration(cfg.BackendTimeoutSeconds) * time.Second,
		RateLimitRPS:   cfg.BackendRateLimitRPS,
		RateLimitBurst: cfg.BackendRateLimitBurst,
		Resilience:     resilienceConfig(cfg, logger, workspaceMetrics.ObserveBreaker),
	})

	previews, err := localfs.New(cfg.PreviewDir)
	if err != nil {
		return nil, fmt.Errorf("init preview store: %w", err)
	}

	var (
		events    ports.EventPublisher
		publisher *natsevents.Publisher
	)
	if cfg.NATSURL != "" {
		publisher, err = natsevents.NewPublisher(cfg.NATSURL, cfg.NATSSubjectPrefix, natsevents.Options{
			Resilience: resilienceConfig(cfg, logger, nil),
			Logger:     logger,
		})
		if err != nil {
			return nil, fmt.Errorf("init event publisher: %w", err)
		}
		events = publisher
	} else {
		logger.Info("workspace_events_disabled", "reason", "NATS_URL is empty")
	}

	mode, ok := domain.ParseSummaryMode(cfg.SummaryDefaultMode)
	if !ok {
		logger.Warn("invalid_summary_mode", "value", cfg.SummaryDefaultMode, "fallback", domain.SummaryConcise)
		mode = domain.SummaryConcise
	}
	opts := usecase.Options{
		Logger:             logger,
		Observer:           workspaceMetrics,
		Events:             events,
		MaxUploadBytes:     cfg.MaxUploadBytes,
		QuizQuestionCount:  cfg.QuizQuestionCount,
		SummaryMaxLength:   cfg.SummaryMaxLength,
		DefaultSummaryMode: mode,
	}

	workspace := usecase.NewWorkspace(backend, previews, opts)
	shell := usecase.NewShell(workspace)
	library := usecase.NewLibrary(backend, workspace, time.Duration(cfg.LibraryCacheTTLSeconds)*time.Second, opts)

	return &App{
		Config:    cfg,
		Logger:    logger,
		Metrics:   httpMetrics,
		Workspace: workspace,
		Shell:     shell,
		Library:   library,
		Previews:  previews,

		closeFn: func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := workspace.Reset(shutdownCtx); err != nil {
				logger.Warn("workspace_reset_on_close_failed", "error", err)
			}
			if err := previews.Close(); err != nil {
				logger.Warn("preview_cleanup_failed", "error", err)
			}
			if publisher != nil {
				publisher.Close()
			}
		},
	}, nil
}

// Handler builds the API handler. /metrics is mounted on it unless a
// dedicated metrics port is configured.
func (a *App) Handler() http.Handler {
	return httpadapter.NewRouter(a.Workspace, a.Shell, a.Library, a.Previews, httpadapter.Options{
		Service:        serviceName,
		Logger:         a.Logger,
		Metrics:        a.Metrics,
		ServeMetrics:   a.Config.MetricsPort == "",
		MaxUploadBytes: a.Config.MaxUploadBytes,
		RateLimitRPS:   a.Config.APIRateLimitRPS,
		RateLimitBurst: a.Config.APIRateLimitBurst,
		MaxInFlight:    a.Config.APIMaxInFlight,
	}).Handler()
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func resilienceConfig(cfg config.Config, logger *slog.Logger, onStateChange func(string, bool)) resilience.Config {
	return resilience.Config{
		Retry: resilience.Retry{
			Attempts:   cfg.RetryMaxAttempts,
			Backoff:    time.Duration(cfg.RetryInitialBackoffMS) * time.Millisecond,
			MaxBackoff: time.Duration(cfg.RetryMaxBackoffMS) * time.Millisecond,
			Multiplier: cfg.RetryMultiplier,
		},
		Breaker: resilience.Breaker{
			Enabled:      cfg.BreakerEnabled,
			MinRequests:  uint32(max(cfg.BreakerMinRequests, 0)),
			FailureRatio: cfg.BreakerFailureRatio,
			Cooldown:     time.Duration(cfg.BreakerOpenTimeoutSeconds) * time.Second,
			Probes:       uint32(max(cfg.BreakerHalfOpenMaxCalls, 0)),
		},
		Logger:        logger,
		OnStateChange: onStateChange,
	}
}
