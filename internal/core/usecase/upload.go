package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/kirillkom/study-workspace/internal/core/domain"
	"github.com/kirillkom/study-workspace/internal/core/ports"
)

// UploadManager owns the locally selected file and its preview handle. The
// slot holds at most one handle: a new selection releases the old handle
// before acquiring its own.
type UploadManager struct {
	backend  ports.Backend
	previews ports.PreviewStore
	maxBytes int64
	observer ports.FeatureObserver
	logger   *slog.Logger

	mu        sync.Mutex
	file      *domain.SelectedFile
	preview   *domain.PreviewHandle
	uploading bool
}

func NewUploadManager(backend ports.Backend, previews ports.PreviewStore, opts Options) *UploadManager {
	opts = opts.normalize()
	return &UploadManager{
		backend:  backend,
		previews: previews,
		maxBytes: opts.MaxUploadBytes,
		observer: opts.Observer,
		logger:   opts.Logger.With("component", "upload"),
	}
}

// Select validates file and makes it the current selection.
func (m *UploadManager) Select(ctx context.Context, file domain.SelectedFile) (domain.PendingUpload, error) {
	if err := m.validate(file); err != nil {
		m.observer.ObserveRejected(domain.FeatureNone, "select", "invalid_file")
		return domain.PendingUpload{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.uploading {
		m.observer.ObserveRejected(domain.FeatureNone, "select", "uploading")
		return domain.PendingUpload{}, domain.Reject(domain.ErrBusy, "select file", "upload in progress")
	}

	m.releaseLocked(ctx)

	handle, err := m.previews.Acquire(ctx, file)
	if err != nil {
		return domain.PendingUpload{}, fmt.Errorf("acquire preview: %w", err)
	}
	selected := file
	m.file = &selected
	m.preview = &handle
	m.observer.SetLivePreviews(1)
	m.logger.Info("file_selected", "filename", file.Name, "bytes", file.Size(), "preview_id", handle.ID)

	return domain.PendingUpload{File: selected, Preview: handle}, nil
}

// Cancel drops the selection and releases its preview. Calling it with
// nothing selected is a no-op.
func (m *UploadManager) Cancel(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.uploading {
		m.observer.ObserveRejected(domain.FeatureNone, "cancel", "uploading")
		return domain.Reject(domain.ErrBusy, "cancel selection", "upload in progress")
	}
	m.releaseLocked(ctx)
	return nil
}

// Commit uploads the selected file. On failure the selection and its preview
// stay in place so the upload can be retried.
func (m *UploadManager) Commit(ctx context.Context) (domain.DocumentSession, error) {
	m.mu.Lock()
	if m.file == nil {
		m.mu.Unlock()
		return domain.DocumentSession{}, domain.Reject(domain.ErrInvalidInput, "upload", "no file selected")
	}
	if m.uploading {
		m.mu.Unlock()
		m.observer.ObserveRejected(domain.FeatureNone, "upload", "uploading")
		return domain.DocumentSession{}, domain.Reject(domain.ErrBusy, "upload", "upload in progress")
	}
	m.uploading = true
	file := *m.file
	m.mu.Unlock()

	start := time.Now()
	doc, err := m.backend.Upload(ctx, file)
	if err == nil && strings.TrimSpace(doc.DocumentID) == "" {
		err = domain.Reject(domain.ErrUploadFailed, "upload", "backend returned no document id")
	}
	m.observer.ObserveRequest(domain.FeatureNone, "upload", time.Since(start), err)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploading = false

	if err != nil {
		m.logger.Warn("upload_failed", "filename", file.Name, "error", err)
		return domain.DocumentSession{}, ensureKind(domain.ErrUploadFailed, "upload", err)
	}
	if doc.Filename == "" {
		doc.Filename = file.Name
	}
	if doc.ChunkCount < 0 {
		doc.ChunkCount = 0
	}
	m.logger.Info("upload_completed", "document_id", doc.DocumentID, "chunks", doc.ChunkCount)
	return doc, nil
}

func (m *UploadManager) Pending() (domain.PendingUpload, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.file == nil {
		return domain.PendingUpload{}, false
	}
	pending := domain.PendingUpload{File: *m.file, Uploading: m.uploading}
	if m.preview != nil {
		pending.Preview = *m.preview
	}
	return pending, true
}

func (m *UploadManager) Preview() (domain.PreviewHandle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.preview == nil {
		return domain.PreviewHandle{}, false
	}
	return *m.preview, true
}

// releaseLocked clears the slot. The reference is dropped even when the store
// reports an error so the same handle is never released twice.
func (m *UploadManager) releaseLocked(ctx context.Context) {
	if m.preview != nil {
		handle := *m.preview
		m.preview = nil
		if err := m.previews.Release(ctx, handle); err != nil {
			m.logger.Warn("preview_release_failed", "preview_id", handle.ID, "error", err)
		}
		m.observer.SetLivePreviews(0)
	}
	m.file = nil
}

func (m *UploadManager) validate(file domain.SelectedFile) error {
	if file.Size() == 0 {
		return domain.Reject(domain.ErrInvalidInput, "select file", "file is empty")
	}
	if file.Size() > m.maxBytes {
		return domain.Reject(domain.ErrInvalidInput, "select file",
			fmt.Sprintf("file size %d exceeds limit %d", file.Size(), m.maxBytes))
	}
	declared, _, err := mime.ParseMediaType(file.ContentType)
	if err != nil || !strings.EqualFold(declared, domain.PDFContentType) {
		return domain.Reject(domain.ErrInvalidInput, "select file", "please select a valid PDF file")
	}
	if !mimetype.Detect(file.Data).Is(domain.PDFContentType) {
		return domain.Reject(domain.ErrInvalidInput, "select file", "file content is not a PDF document")
	}
	return nil
}
