package ports

import (
	"context"
	"time"

	"github.com/kirillkom/study-workspace/internal/core/domain"
)

// Backend is the document-processing service the workspace talks to.
type Backend interface {
	Upload(ctx context.Context, file domain.SelectedFile) (domain.DocumentSession, error)
	Summarize(ctx context.Context, documentID string, mode domain.SummaryMode, maxLength int) (string, error)
	Ask(ctx context.Context, question, documentID, sessionID string) (domain.Answer, error)
	GenerateQuiz(ctx context.Context, documentID string, count int) ([]domain.Question, error)
	ListDocuments(ctx context.Context) ([]domain.DocumentInfo, error)
	DeleteDocument(ctx context.Context, documentID string) error
}

// PreviewStore acquires and releases local preview resources.
type PreviewStore interface {
	Acquire(ctx context.Context, file domain.SelectedFile) (domain.PreviewHandle, error)
	Release(ctx context.Context, handle domain.PreviewHandle) error
}

// EventPublisher announces workspace lifecycle changes.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.WorkspaceEvent) error
}

// FeatureObserver receives per-feature outcomes for telemetry.
type FeatureObserver interface {
	ObserveRequest(feature domain.Feature, operation string, duration time.Duration, err error)
	ObserveRejected(feature domain.Feature, operation, reason string)
	ObserveStale(feature domain.Feature, operation string)
	SetLivePreviews(n int)
}
