package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kirillkom/study-workspace/internal/core/domain"
	"github.com/kirillkom/study-workspace/internal/core/ports"
)

// SummaryController holds the selected summary mode and the last summary.
type SummaryController struct {
	backend    ports.Backend
	documentID string
	maxLength  int
	observer   ports.FeatureObserver
	logger     *slog.Logger

	mu          sync.Mutex
	mode        domain.SummaryMode
	content     string
	contentMode domain.SummaryMode
	loading     bool
	detached    bool
}

func NewSummaryController(backend ports.Backend, documentID string, opts Options) *SummaryController {
	opts = opts.normalize()
	return &SummaryController{
		backend:    backend,
		documentID: documentID,
		maxLength:  opts.SummaryMaxLength,
		observer:   opts.Observer,
		logger:     opts.Logger.With("feature", string(domain.FeatureSummary), "document_id", documentID),
		mode:       opts.DefaultSummaryMode,
	}
}

// SetMode changes the mode used by the next Generate. Existing content stays.
func (s *SummaryController) SetMode(mode domain.SummaryMode) error {
	parsed, ok := domain.ParseSummaryMode(string(mode))
	if !ok {
		return domain.Reject(domain.ErrInvalidInput, "summary set mode", "unknown mode "+string(mode))
	}
	s.mu.Lock()
	s.mode = parsed
	s.mu.Unlock()
	return nil
}

func (s *SummaryController) Generate(ctx context.Context) error {
	s.mu.Lock()
	if s.detached {
		s.mu.Unlock()
		return domain.Reject(domain.ErrNoSession, "summary generate", "session was reset")
	}
	if s.loading {
		s.mu.Unlock()
		s.observer.ObserveRejected(domain.FeatureSummary, "generate", "loading")
		return domain.Reject(domain.ErrBusy, "summary generate", "generation already running")
	}
	s.loading = true
	mode := s.mode
	s.mu.Unlock()

	start := time.Now()
	content, err := s.backend.Summarize(ctx, s.documentID, mode, s.maxLength)
	s.observer.ObserveRequest(domain.FeatureSummary, "generate", time.Since(start), err)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false

	if s.detached {
		s.observer.ObserveStale(domain.FeatureSummary, "generate")
		s.logger.Debug("stale_response_discarded", "operation", "generate")
		return domain.Reject(domain.ErrStaleResponse, "summary generate", "session was reset")
	}
	if err != nil {
		s.logger.Warn("summary_generate_failed", "error", err, "mode", string(mode))
		return ensureKind(domain.ErrSummarizeFailed, "summary generate", err)
	}

	s.content = content
	s.contentMode = mode
	return nil
}

func (s *SummaryController) Snapshot() domain.SummarySnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.SummarySnapshot{
		Mode:        s.mode,
		Content:     s.content,
		ContentMode: s.contentMode,
		Loading:     s.loading,
	}
}

func (s *SummaryController) detach() {
	s.mu.Lock()
	s.detached = true
	s.mu.Unlock()
}
