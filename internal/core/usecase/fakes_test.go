package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kirillkom/study-workspace/internal/core/domain"
)

var pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")

func pdfFile(name string) domain.SelectedFile {
	return domain.SelectedFile{Name: name, ContentType: domain.PDFContentType, Data: pdfBytes}
}

type askCall struct {
	question   string
	documentID string
	sessionID  string
}

type fakeBackend struct {
	mu sync.Mutex

	uploadDoc     domain.DocumentSession
	uploadErr     error
	uploads       int
	uploadGate    chan struct{}
	uploadStarted chan struct{}

	answers  []domain.Answer
	askErr   error
	askCalls []askCall
	// askGate, when set, blocks Ask until a value is received.
	askGate    chan struct{}
	askStarted chan struct{}

	summary        string
	summaryErr     error
	summaryModes   []domain.SummaryMode
	summaryGate    chan struct{}
	summaryStarted chan struct{}

	questions    []domain.Question
	quizErr      error
	quizCounts   []int
	quizGate     chan struct{}
	quizStarted  chan struct{}

	documents  []domain.DocumentInfo
	listErr    error
	listCalls  int
	deleteErr  error
	deletedIDs []string
}

func (f *fakeBackend) Upload(_ context.Context, file domain.SelectedFile) (domain.DocumentSession, error) {
	f.mu.Lock()
	f.uploads++
	gate, started := f.uploadGate, f.uploadStarted
	doc, err := f.uploadDoc, f.uploadErr
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return domain.DocumentSession{}, err
	}
	if doc.DocumentID == "" {
		doc = domain.DocumentSession{DocumentID: "doc-1", Filename: file.Name, ChunkCount: 3}
	}
	return doc, nil
}

func (f *fakeBackend) Summarize(_ context.Context, _ string, mode domain.SummaryMode, _ int) (string, error) {
	f.mu.Lock()
	f.summaryModes = append(f.summaryModes, mode)
	gate, started := f.summaryGate, f.summaryStarted
	summary, err := f.summary, f.summaryErr
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return "", err
	}
	return summary, nil
}

func (f *fakeBackend) Ask(_ context.Context, question, documentID, sessionID string) (domain.Answer, error) {
	f.mu.Lock()
	f.askCalls = append(f.askCalls, askCall{question: question, documentID: documentID, sessionID: sessionID})
	n := len(f.askCalls)
	gate, started := f.askGate, f.askStarted
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	if f.askErr != nil {
		return domain.Answer{}, f.askErr
	}
	if len(f.answers) >= n {
		return f.answers[n-1], nil
	}
	return domain.Answer{Text: fmt.Sprintf("answer %d", n), SessionID: "sess-default"}, nil
}

func (f *fakeBackend) GenerateQuiz(_ context.Context, _ string, count int) ([]domain.Question, error) {
	f.mu.Lock()
	f.quizCounts = append(f.quizCounts, count)
	gate, started := f.quizGate, f.quizStarted
	questions, err := f.questions, f.quizErr
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return questions, nil
}

func (f *fakeBackend) ListDocuments(context.Context) ([]domain.DocumentInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.documents, nil
}

func (f *fakeBackend) DeleteDocument(_ context.Context, documentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletedIDs = append(f.deletedIDs, documentID)
	return nil
}

func (f *fakeBackend) setQuiz(questions []domain.Question, err error) {
	f.mu.Lock()
	f.questions = questions
	f.quizErr = err
	f.mu.Unlock()
}

// fakePreviews tracks live handles and records any double release.
type fakePreviews struct {
	mu            sync.Mutex
	next          int
	live          map[string]bool
	maxLive       int
	released      []string
	doubleRelease int
	acquireErr    error
}

func newFakePreviews() *fakePreviews {
	return &fakePreviews{live: map[string]bool{}}
}

func (p *fakePreviews) Acquire(_ context.Context, file domain.SelectedFile) (domain.PreviewHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.acquireErr != nil {
		return domain.PreviewHandle{}, p.acquireErr
	}
	p.next++
	id := fmt.Sprintf("preview-%d-%s", p.next, file.Name)
	p.live[id] = true
	if len(p.live) > p.maxLive {
		p.maxLive = len(p.live)
	}
	return domain.PreviewHandle{ID: id, ContentType: file.ContentType, Size: file.Size()}, nil
}

func (p *fakePreviews) Release(_ context.Context, handle domain.PreviewHandle) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.live[handle.ID] {
		p.doubleRelease++
		return domain.ErrAlreadyReleased
	}
	delete(p.live, handle.ID)
	p.released = append(p.released, handle.ID)
	return nil
}

func (p *fakePreviews) liveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.live)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.WorkspaceEvent
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, event domain.WorkspaceEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

func (r *recordingPublisher) types() []domain.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.EventType, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

var errBackendDown = errors.New("backend down")

func threeQuestions() []domain.Question {
	return []domain.Question{
		{Text: "q1", Options: []domain.Option{{Text: "a"}, {Text: "b", IsCorrect: true}, {Text: "c"}}, Explanation: "b is right"},
		{Text: "q2", Options: []domain.Option{{Text: "a", IsCorrect: true}, {Text: "b"}}},
		{Text: "q3", Options: []domain.Option{{Text: "a"}, {Text: "b"}, {Text: "c", IsCorrect: true}}},
	}
}
