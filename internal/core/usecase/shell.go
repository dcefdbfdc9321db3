package usecase

import (
	"strings"
	"sync"

	"github.com/kirillkom/study-workspace/internal/core/domain"
	"github.com/kirillkom/study-workspace/internal/core/ports"
)

// SessionSource hands out the current document session, if any.
type SessionSource interface {
	Current() (*Session, bool)
}

// Shell decides which feature view is mounted and whether the document
// preview pane is visible. It only reads session state.
type Shell struct {
	source SessionSource

	mu    sync.Mutex
	route domain.Route
}

func NewShell(source SessionSource) *Shell {
	return &Shell{source: source, route: domain.RouteChat}
}

// Navigate switches the visible route and returns the composed view.
func (s *Shell) Navigate(route domain.Route) (domain.View, error) {
	resolved, err := resolveRoute(route)
	if err != nil {
		return domain.View{}, err
	}

	session, _ := s.source.Current()
	view := Compose(session, resolved)
	if view.Page == domain.PageWorkspace {
		s.mu.Lock()
		s.route = resolved
		s.mu.Unlock()
	}
	return view, nil
}

// View composes the current route without navigating.
func (s *Shell) View() domain.View {
	s.mu.Lock()
	route := s.route
	s.mu.Unlock()

	session, _ := s.source.Current()
	return Compose(session, route)
}

func (s *Shell) Chat() (ports.ChatService, error) {
	session, err := s.session()
	if err != nil {
		return nil, err
	}
	return session.Chat, nil
}

func (s *Shell) Summary() (ports.SummaryService, error) {
	session, err := s.session()
	if err != nil {
		return nil, err
	}
	return session.Summary, nil
}

func (s *Shell) Quiz() (ports.QuizService, error) {
	session, err := s.session()
	if err != nil {
		return nil, err
	}
	return session.Quiz, nil
}

func (s *Shell) session() (*Session, error) {
	session, ok := s.source.Current()
	if !ok {
		return nil, domain.Reject(domain.ErrNoSession, "mount feature", "upload a document first")
	}
	return session, nil
}

// Compose is the pure layout rule: no session means the upload page, the
// preview pane is hidden on the summary and quiz routes.
func Compose(session *Session, route domain.Route) domain.View {
	if session == nil {
		return domain.View{Page: domain.PageUpload}
	}

	view := domain.View{
		Page:       domain.PageWorkspace,
		Route:      route,
		DocumentID: session.Document.DocumentID,
		Filename:   session.Document.Filename,
		ChunkCount: session.Document.ChunkCount,
	}
	switch route {
	case domain.RouteSummary:
		view.Feature = domain.FeatureSummary
	case domain.RouteQuiz:
		view.Feature = domain.FeatureQuiz
	default:
		view.Feature = domain.FeatureChat
		view.ShowPreview = true
	}
	return view
}

func resolveRoute(route domain.Route) (domain.Route, error) {
	normalized := domain.Route("/" + strings.Trim(strings.TrimSpace(string(route)), "/"))
	switch normalized {
	case domain.RouteRoot:
		return domain.RouteChat, nil
	case domain.RouteChat, domain.RouteSummary, domain.RouteQuiz:
		return normalized, nil
	default:
		return "", domain.Reject(domain.ErrRouteNotFound, "navigate", string(route))
	}
}
