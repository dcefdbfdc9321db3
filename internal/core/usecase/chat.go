package usecase

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/kirillkom/study-workspace/internal/core/domain"
	"github.com/kirillkom/study-workspace/internal/core/ports"
)

const chatFailureText = "Sorry, I encountered an error. Please try again."

// ChatController keeps the transcript of one document's conversation and the
// conversation id the backend pinned on its first answer.
type ChatController struct {
	backend    ports.Backend
	documentID string
	observer   ports.FeatureObserver
	logger     *slog.Logger
	now        func() time.Time

	mu         sync.Mutex
	sessionID  string
	transcript []domain.Message
	pending    bool
	detached   bool
}

func NewChatController(backend ports.Backend, documentID string, opts Options) *ChatController {
	opts = opts.normalize()
	return &ChatController{
		backend:    backend,
		documentID: documentID,
		observer:   opts.Observer,
		logger:     opts.Logger.With("feature", string(domain.FeatureChat), "document_id", documentID),
		now:        opts.Now,
	}
}

// Send appends the user's question, asks the backend and appends the reply.
// It blocks for the round trip. Backend failures end up in the transcript as
// an error entry and are not returned.
func (c *ChatController) Send(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		c.observer.ObserveRejected(domain.FeatureChat, "send", "empty_question")
		return domain.Reject(domain.ErrInvalidInput, "chat send", "question is empty")
	}

	c.mu.Lock()
	if c.detached {
		c.mu.Unlock()
		return domain.Reject(domain.ErrNoSession, "chat send", "session was reset")
	}
	if c.pending {
		c.mu.Unlock()
		c.observer.ObserveRejected(domain.FeatureChat, "send", "pending")
		return domain.Reject(domain.ErrBusy, "chat send", "a question is already pending")
	}
	c.transcript = append(c.transcript, domain.Message{
		Role:      domain.RoleUser,
		Text:      text,
		CreatedAt: c.now(),
	})
	c.pending = true
	sessionID := c.sessionID
	c.mu.Unlock()

	start := time.Now()
	answer, err := c.backend.Ask(ctx, text, c.documentID, sessionID)
	c.observer.ObserveRequest(domain.FeatureChat, "ask", time.Since(start), err)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = false

	if c.detached {
		c.observer.ObserveStale(domain.FeatureChat, "ask")
		c.logger.Debug("stale_response_discarded", "operation", "ask")
		return domain.Reject(domain.ErrStaleResponse, "chat send", "session was reset")
	}

	if err != nil {
		c.logger.Warn("chat_send_failed", "error", err)
		c.transcript = append(c.transcript, domain.Message{
			Role:      domain.RoleAssistant,
			Text:      chatFailureText,
			IsError:   true,
			CreatedAt: c.now(),
		})
		return nil
	}

	if c.sessionID == "" && answer.SessionID != "" {
		c.sessionID = answer.SessionID
	} else if answer.SessionID != "" && answer.SessionID != c.sessionID {
		c.logger.Debug("chat_session_id_mismatch_ignored", "pinned", c.sessionID, "received", answer.SessionID)
	}
	c.transcript = append(c.transcript, domain.Message{
		Role:      domain.RoleAssistant,
		Text:      answer.Text,
		CreatedAt: c.now(),
	})
	return nil
}

// Clear starts a fresh conversation. It is refused while a question is pending.
func (c *ChatController) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending {
		c.observer.ObserveRejected(domain.FeatureChat, "clear", "pending")
		return domain.Reject(domain.ErrBusy, "chat clear", "a question is pending")
	}
	c.transcript = nil
	c.sessionID = ""
	return nil
}

func (c *ChatController) Snapshot() domain.ChatSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	transcript := make([]domain.Message, len(c.transcript))
	copy(transcript, c.transcript)
	return domain.ChatSnapshot{
		SessionID:  c.sessionID,
		Transcript: transcript,
		Pending:    c.pending,
	}
}

func (c *ChatController) detach() {
	c.mu.Lock()
	c.detached = true
	c.mu.Unlock()
}
