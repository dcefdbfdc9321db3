package ports

import (
	"context"

	"github.com/kirillkom/study-workspace/internal/core/domain"
)

// ChatService is the inbound contract of the chat feature view.
type ChatService interface {
	Send(ctx context.Context, text string) error
	Clear() error
	Snapshot() domain.ChatSnapshot
}

// SummaryService is the inbound contract of the summary feature view.
type SummaryService interface {
	SetMode(mode domain.SummaryMode) error
	Generate(ctx context.Context) error
	Snapshot() domain.SummarySnapshot
}

// QuizService is the inbound contract of the quiz feature view.
type QuizService interface {
	Generate(ctx context.Context) error
	SelectOption(questionIndex, optionIndex int) error
	Submit() error
	ToggleExplanation(questionIndex int) error
	Retry() error
	Score() int
	Result() domain.QuizResult
	Snapshot() domain.QuizSnapshot
}

// DocumentLibrary lists and deletes documents known to the backend.
type DocumentLibrary interface {
	List(ctx context.Context) ([]domain.DocumentInfo, error)
	Delete(ctx context.Context, documentID string) error
}

// WorkspaceService owns the upload slot and the document session lifecycle.
type WorkspaceService interface {
	Select(ctx context.Context, file domain.SelectedFile) (domain.PendingUpload, error)
	CancelSelection(ctx context.Context) error
	Upload(ctx context.Context) (domain.DocumentSession, error)
	Reset(ctx context.Context) error
	Pending() (domain.PendingUpload, bool)
	Preview() (domain.PreviewHandle, bool)
}

// ViewService composes the visible page and hands out the mounted features.
type ViewService interface {
	Navigate(route domain.Route) (domain.View, error)
	View() domain.View
	Chat() (ChatService, error)
	Summary() (SummaryService, error)
	Quiz() (QuizService, error)
}
