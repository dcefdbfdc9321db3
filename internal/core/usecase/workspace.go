package usecase

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/kirillkom/study-workspace/internal/core/domain"
	"github.com/kirillkom/study-workspace/internal/core/ports"
)

// Session is the live document plus the feature state it exclusively owns.
type Session struct {
	Document domain.DocumentSession

	Chat    *ChatController
	Summary *SummaryController
	Quiz    *QuizController
}

func newSession(backend ports.Backend, doc domain.DocumentSession, opts Options) *Session {
	return &Session{
		Document: doc,
		Chat:     NewChatController(backend, doc.DocumentID, opts),
		Summary:  NewSummaryController(backend, doc.DocumentID, opts),
		Quiz:     NewQuizController(backend, doc.DocumentID, opts),
	}
}

// close detaches every controller so that in-flight responses are dropped.
func (s *Session) close() {
	s.Chat.detach()
	s.Summary.detach()
	s.Quiz.detach()
}

// Workspace is the top-level owner of the upload slot and the document
// session. Only the workspace creates or destroys sessions.
type Workspace struct {
	backend ports.Backend
	uploads *UploadManager
	events  ports.EventPublisher
	opts    Options
	logger  *slog.Logger

	mu        sync.RWMutex
	session   *Session
	uploading bool

	listenersMu sync.RWMutex
	listeners   []func(domain.WorkspaceEvent)
}

func NewWorkspace(backend ports.Backend, previews ports.PreviewStore, opts Options) *Workspace {
	opts = opts.normalize()
	return &Workspace{
		backend: backend,
		uploads: NewUploadManager(backend, previews, opts),
		events:  opts.Events,
		opts:    opts,
		logger:  opts.Logger.With("component", "workspace"),
	}
}

// Subscribe registers fn for every lifecycle event the workspace emits.
func (w *Workspace) Subscribe(fn func(domain.WorkspaceEvent)) {
	if fn == nil {
		return
	}
	w.listenersMu.Lock()
	w.listeners = append(w.listeners, fn)
	w.listenersMu.Unlock()
}

func (w *Workspace) Select(ctx context.Context, file domain.SelectedFile) (domain.PendingUpload, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.session != nil {
		return domain.PendingUpload{}, domain.Reject(domain.ErrStateViolation, "select file", "a document session is open")
	}
	return w.uploads.Select(ctx, file)
}

func (w *Workspace) CancelSelection(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.session != nil {
		return domain.Reject(domain.ErrStateViolation, "cancel selection", "a document session is open")
	}
	if w.uploading {
		return domain.Reject(domain.ErrBusy, "cancel selection", "upload in progress")
	}
	return w.uploads.Cancel(ctx)
}

// Upload commits the selection and, on success, opens the document session.
func (w *Workspace) Upload(ctx context.Context) (domain.DocumentSession, error) {
	w.mu.Lock()
	if w.session != nil {
		w.mu.Unlock()
		return domain.DocumentSession{}, domain.Reject(domain.ErrStateViolation, "upload", "a document session is open")
	}
	if w.uploading {
		w.mu.Unlock()
		return domain.DocumentSession{}, domain.Reject(domain.ErrBusy, "upload", "upload in progress")
	}
	w.uploading = true
	w.mu.Unlock()

	doc, err := w.uploads.Commit(ctx)

	w.mu.Lock()
	w.uploading = false
	if err != nil {
		w.mu.Unlock()
		return domain.DocumentSession{}, err
	}
	w.session = newSession(w.backend, doc, w.opts)
	w.mu.Unlock()

	w.logger.Info("session_created", "document_id", doc.DocumentID, "filename", doc.Filename)
	w.emit(ctx, domain.EventSessionCreated, doc)
	return doc, nil
}

// Reset closes the session, releases the preview and clears the selection.
// Without an open session it does nothing.
func (w *Workspace) Reset(ctx context.Context) error {
	w.mu.Lock()
	session := w.session
	if session == nil {
		w.mu.Unlock()
		return nil
	}
	w.session = nil
	session.close()
	err := w.uploads.Cancel(ctx)
	w.mu.Unlock()

	if err != nil {
		w.logger.Warn("reset_release_failed", "document_id", session.Document.DocumentID, "error", err)
	}
	w.logger.Info("session_reset", "document_id", session.Document.DocumentID)
	w.emit(ctx, domain.EventSessionReset, session.Document)
	return nil
}

// ResetIfActive resets the workspace when documentID is the open document.
func (w *Workspace) ResetIfActive(ctx context.Context, documentID string) (bool, error) {
	w.mu.RLock()
	active := w.session != nil && w.session.Document.DocumentID == documentID
	w.mu.RUnlock()
	if !active {
		return false, nil
	}
	return true, w.Reset(ctx)
}

// Current returns the open session. Its presence gates every feature view.
func (w *Workspace) Current() (*Session, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.session, w.session != nil
}

func (w *Workspace) Pending() (domain.PendingUpload, bool) {
	pending, ok := w.uploads.Pending()
	if ok {
		w.mu.RLock()
		pending.Uploading = pending.Uploading || w.uploading
		w.mu.RUnlock()
	}
	return pending, ok
}

// Preview returns the handle backing the document preview pane.
func (w *Workspace) Preview() (domain.PreviewHandle, bool) {
	return w.uploads.Preview()
}

func (w *Workspace) emit(ctx context.Context, eventType domain.EventType, doc domain.DocumentSession) {
	event := domain.WorkspaceEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		DocumentID: doc.DocumentID,
		Filename:   doc.Filename,
		OccurredAt: w.opts.Now(),
	}
	w.dispatch(ctx, event)
}

func (w *Workspace) dispatch(ctx context.Context, event domain.WorkspaceEvent) {
	w.listenersMu.RLock()
	listeners := append([]func(domain.WorkspaceEvent){}, w.listeners...)
	w.listenersMu.RUnlock()
	for _, fn := range listeners {
		fn(event)
	}

	if err := w.events.Publish(context.WithoutCancel(ctx), event); err != nil {
		w.logger.Warn("event_publish_failed", "type", string(event.Type), "error", err)
	}
}
