package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/study-workspace/internal/core/domain"
	"github.com/kirillkom/study-workspace/internal/infrastructure/resilience"
)

const (
	defaultSubjectPrefix = "workspace"
	publishOperation     = "nats.publish"
)

type conn interface {
	Publish(subject string, data []byte) error
	FlushTimeout(timeout time.Duration) error
	Close()
}

// Publisher announces workspace lifecycle events on <prefix>.<event type>.
type Publisher struct {
	conn     conn
	prefix   string
	exec     *resilience.Executor
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	Resilience           resilience.Config
	Logger               *slog.Logger
}

func NewPublisher(url, subjectPrefix string, options Options) (*Publisher, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	nc, err := nats.Connect(
		url,
		nats.Name("study-workspace"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	if options.Resilience.Logger == nil {
		options.Resilience.Logger = logger
	}
	return newPublisher(nc, subjectPrefix, options.Resilience), nil
}

// Events carry unique ids, so a replayed publish is safe for consumers.
func newPublisher(c conn, subjectPrefix string, cfg resilience.Config) *Publisher {
	prefix := strings.Trim(strings.TrimSpace(subjectPrefix), ".")
	if prefix == "" {
		prefix = defaultSubjectPrefix
	}
	return &Publisher{
		conn:   c,
		prefix: prefix,
		exec:   resilience.NewExecutor(cfg, publishOutcome, publishOperation),
	}
}

// Close flushes buffered events before closing the connection.
func (p *Publisher) Close() {
	if p.conn == nil {
		return
	}
	_ = p.conn.FlushTimeout(5 * time.Second)
	p.conn.Close()
}

func (p *Publisher) Subject(eventType domain.EventType) string {
	return p.prefix + "." + string(eventType)
}

func (p *Publisher) Publish(ctx context.Context, event domain.WorkspaceEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal workspace event: %w", err)
	}
	subject := p.Subject(event.Type)

	err = p.exec.Do(ctx, publishOperation, func(context.Context) error {
		if err := p.conn.Publish(subject, payload); err != nil {
			return fmt.Errorf("nats publish %s: %w", subject, err)
		}
		return nil
	})
	if err != nil && p.exec.Temporary(err) {
		return domain.WrapError(domain.ErrTemporary, publishOperation, err)
	}
	return err
}

// publishOutcome classifies the errors a publish can return. A closed
// connection does not come back, while a reconnecting one buffers until its
// buffer fills.
func publishOutcome(err error) resilience.Outcome {
	switch {
	case errors.Is(err, nats.ErrReconnectBufExceeded),
		errors.Is(err, nats.ErrConnectionReconnecting),
		errors.Is(err, nats.ErrDisconnected),
		errors.Is(err, nats.ErrTimeout):
		return resilience.Transient
	case errors.Is(err, nats.ErrBadSubject), errors.Is(err, nats.ErrMaxPayload):
		return resilience.Refused
	default:
		return resilience.Fault
	}
}
