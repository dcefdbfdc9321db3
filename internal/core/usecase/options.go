package usecase

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/kirillkom/study-workspace/internal/core/domain"
	"github.com/kirillkom/study-workspace/internal/core/ports"
)

const (
	defaultMaxUploadBytes    = 10 << 20
	defaultQuizQuestionCount = 10
	maxQuizQuestionCount     = 20
	defaultSummaryMaxLength  = 500
)

// Options tunes the workspace and the feature controllers it creates.
type Options struct {
	Logger   *slog.Logger
	Observer ports.FeatureObserver
	Events   ports.EventPublisher

	MaxUploadBytes     int64
	QuizQuestionCount  int
	SummaryMaxLength   int
	DefaultSummaryMode domain.SummaryMode

	Now func() time.Time
}

func (o Options) normalize() Options {
	out := o
	if out.Logger == nil {
		out.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if out.Observer == nil {
		out.Observer = noopObserver{}
	}
	if out.Events == nil {
		out.Events = noopPublisher{}
	}
	if out.MaxUploadBytes <= 0 {
		out.MaxUploadBytes = defaultMaxUploadBytes
	}
	if out.QuizQuestionCount <= 0 {
		out.QuizQuestionCount = defaultQuizQuestionCount
	}
	if out.QuizQuestionCount > maxQuizQuestionCount {
		out.QuizQuestionCount = maxQuizQuestionCount
	}
	if out.SummaryMaxLength <= 0 {
		out.SummaryMaxLength = defaultSummaryMaxLength
	}
	if _, ok := domain.ParseSummaryMode(string(out.DefaultSummaryMode)); !ok {
		out.DefaultSummaryMode = domain.SummaryConcise
	}
	if out.Now == nil {
		out.Now = func() time.Time { return time.Now().UTC() }
	}
	return out
}

type noopObserver struct{}

func (noopObserver) ObserveRequest(domain.Feature, string, time.Duration, error) {}
func (noopObserver) ObserveRejected(domain.Feature, string, string)              {}
func (noopObserver) ObserveStale(domain.Feature, string)                         {}
func (noopObserver) SetLivePreviews(int)                                         {}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, domain.WorkspaceEvent) error { return nil }

// ensureKind wraps err with kind unless it already carries it.
func ensureKind(kind error, operation string, err error) error {
	if err == nil || domain.IsKind(err, kind) {
		return err
	}
	return domain.WrapError(kind, operation, err)
}
