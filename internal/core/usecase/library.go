package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/kirillkom/study-workspace/internal/core/domain"
	"github.com/kirillkom/study-workspace/internal/core/ports"
)

const documentsCacheKey = "documents"

// Library lists and deletes the documents the backend knows about.
type Library struct {
	backend   ports.Backend
	workspace *Workspace
	cache     *cache.Cache
	observer  ports.FeatureObserver
	events    ports.EventPublisher
	now       func() time.Time
	logger    *slog.Logger
}

func NewLibrary(backend ports.Backend, workspace *Workspace, ttl time.Duration, opts Options) *Library {
	opts = opts.normalize()
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	lib := &Library{
		backend:   backend,
		workspace: workspace,
		cache:     cache.New(ttl, 2*ttl),
		observer:  opts.Observer,
		events:    opts.Events,
		now:       opts.Now,
		logger:    opts.Logger.With("component", "library"),
	}
	if workspace != nil {
		workspace.Subscribe(func(domain.WorkspaceEvent) {
			lib.cache.Delete(documentsCacheKey)
		})
	}
	return lib
}

func (l *Library) List(ctx context.Context) ([]domain.DocumentInfo, error) {
	if cached, ok := l.cache.Get(documentsCacheKey); ok {
		return append([]domain.DocumentInfo(nil), cached.([]domain.DocumentInfo)...), nil
	}

	start := time.Now()
	docs, err := l.backend.ListDocuments(ctx)
	l.observer.ObserveRequest(domain.FeatureNone, "list_documents", time.Since(start), err)
	if err != nil {
		return nil, ensureKind(domain.ErrListFailed, "list documents", err)
	}
	if docs == nil {
		docs = []domain.DocumentInfo{}
	}
	l.cache.Set(documentsCacheKey, docs, cache.DefaultExpiration)
	return append([]domain.DocumentInfo(nil), docs...), nil
}

// Delete removes a document from the backend. When it is the open document
// the workspace is reset afterwards.
func (l *Library) Delete(ctx context.Context, documentID string) error {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return domain.Reject(domain.ErrInvalidInput, "delete document", "document id is required")
	}

	start := time.Now()
	err := l.backend.DeleteDocument(ctx, documentID)
	l.observer.ObserveRequest(domain.FeatureNone, "delete_document", time.Since(start), err)
	if err != nil {
		return ensureKind(domain.ErrDeleteFailed, "delete document", err)
	}
	l.cache.Delete(documentsCacheKey)

	event := domain.WorkspaceEvent{
		ID:         uuid.NewString(),
		Type:       domain.EventDocumentDeleted,
		DocumentID: documentID,
		OccurredAt: l.now(),
	}
	if err := l.events.Publish(context.WithoutCancel(ctx), event); err != nil {
		l.logger.Warn("event_publish_failed", "type", string(event.Type), "error", err)
	}

	if l.workspace != nil {
		reset, err := l.workspace.ResetIfActive(ctx, documentID)
		if err != nil {
			return err
		}
		if reset {
			l.logger.Info("active_document_deleted", "document_id", documentID)
		}
	}
	return nil
}
