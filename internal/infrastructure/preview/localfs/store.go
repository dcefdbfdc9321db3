package localfs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/study-workspace/internal/core/domain"
)

const maxStoredNameLen = 96

// Store spools selected files to disk so the preview pane can stream them.
// Every acquired handle owns exactly one file until it is released.
type Store struct {
	basePath string

	mu   sync.Mutex
	live map[string]string
}

func New(basePath string) (*Store, error) {
	if basePath == "" {
		basePath = filepath.Join(os.TempDir(), "study-workspace-previews")
	}
	if err := os.MkdirAll(basePath, 0o700); err != nil {
		return nil, fmt.Errorf("create preview dir: %w", err)
	}
	return &Store{basePath: basePath, live: make(map[string]string)}, nil
}

func (s *Store) Acquire(_ context.Context, file domain.SelectedFile) (domain.PreviewHandle, error) {
	id := uuid.NewString()
	path := filepath.Join(s.basePath, id+"-"+sanitizeFilename(file.Name))
	if err := os.WriteFile(path, file.Data, 0o600); err != nil {
		return domain.PreviewHandle{}, fmt.Errorf("write preview file: %w", err)
	}

	s.mu.Lock()
	s.live[id] = path
	s.mu.Unlock()

	return domain.PreviewHandle{
		ID:          id,
		Path:        path,
		ContentType: file.ContentType,
		Size:        file.Size(),
		AcquiredAt:  time.Now().UTC(),
	}, nil
}

func (s *Store) Release(_ context.Context, handle domain.PreviewHandle) error {
	s.mu.Lock()
	path, ok := s.live[handle.ID]
	delete(s.live, handle.ID)
	s.mu.Unlock()

	if !ok {
		return domain.Reject(domain.ErrAlreadyReleased, "release preview", handle.ID)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove preview file: %w", err)
	}
	return nil
}

// Open streams the file behind a live handle.
func (s *Store) Open(_ context.Context, handle domain.PreviewHandle) (io.ReadSeekCloser, error) {
	s.mu.Lock()
	path, ok := s.live[handle.ID]
	s.mu.Unlock()
	if !ok {
		return nil, domain.Reject(domain.ErrAlreadyReleased, "open preview", handle.ID)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open preview file: %w", err)
	}
	return f, nil
}

func (s *Store) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

// Close removes any files still held, e.g. on shutdown.
func (s *Store) Close() error {
	s.mu.Lock()
	paths := make([]string, 0, len(s.live))
	for id, path := range s.live {
		paths = append(paths, path)
		delete(s.live, id)
	}
	s.mu.Unlock()

	var firstErr error
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = fmt.Errorf("remove preview file: %w", err)
		}
	}
	return firstErr
}

func sanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		return "document.pdf"
	}

	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.TrimLeft(b.String(), ".")
	if out == "" {
		return "document.pdf"
	}
	if len(out) > maxStoredNameLen {
		out = out[len(out)-maxStoredNameLen:]
	}
	return out
}
