package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"

	"github.com/kirillkom/study-workspace/internal/core/domain"
	"github.com/kirillkom/study-workspace/internal/core/usecase"
	"github.com/kirillkom/study-workspace/internal/infrastructure/preview/localfs"
	"github.com/kirillkom/study-workspace/internal/observability/metrics"
)

var samplePDF = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n%%EOF\n")

type stubBackend struct {
	mu        sync.Mutex
	askErr    error
	listErr   error
	deleteErr error
	questions []domain.Question
}

func (b *stubBackend) Upload(_ context.Context, file domain.SelectedFile) (domain.DocumentSession, error) {
	return domain.DocumentSession{DocumentID: "doc-1", Filename: file.Name, ChunkCount: 5}, nil
}

func (b *stubBackend) Summarize(_ context.Context, _ string, mode domain.SummaryMode, _ int) (string, error) {
	return "summary in " + string(mode), nil
}

func (b *stubBackend) Ask(_ context.Context, question, _, _ string) (domain.Answer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.askErr != nil {
		return domain.Answer{}, b.askErr
	}
	return domain.Answer{Text: "re: " + question, SessionID: "sess-1"}, nil
}

func (b *stubBackend) GenerateQuiz(context.Context, string, int) ([]domain.Question, error) {
	return b.questions, nil
}

func (b *stubBackend) ListDocuments(context.Context) ([]domain.DocumentInfo, error) {
	if b.listErr != nil {
		return nil, b.listErr
	}
	return []domain.DocumentInfo{{DocumentID: "doc-1", Filename: "notes.pdf"}}, nil
}

func (b *stubBackend) DeleteDocument(context.Context, string) error {
	return b.deleteErr
}

type harness struct {
	handler   http.Handler
	backend   *stubBackend
	workspace *usecase.Workspace
	previews  *localfs.Store
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	backend := &stubBackend{questions: []domain.Question{
		{Text: "q1", Options: []domain.Option{{Text: "a", IsCorrect: true}, {Text: "b"}}, Explanation: "a wins"},
		{Text: "q2", Options: []domain.Option{{Text: "a"}, {Text: "b", IsCorrect: true}}},
	}}
	previews, err := localfs.New(t.TempDir())
	if err != nil {
		t.Fatalf("localfs.New() error = %v", err)
	}
	ws := usecase.NewWorkspace(backend, previews, usecase.Options{})
	shell := usecase.NewShell(ws)
	library := usecase.NewLibrary(backend, ws, 0, usecase.Options{})
	return &harness{
		handler:   NewRouter(ws, shell, library, previews, opts).Handler(),
		backend:   backend,
		workspace: ws,
		previews:  previews,
	}
}

func (h *harness) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	res := httptest.NewRecorder()
	h.handler.ServeHTTP(res, req)
	return res
}

func (h *harness) selectFile(t *testing.T, name, contentType string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+name+`"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	_, _ = part.Write(data)
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/workspace/selection", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	res := httptest.NewRecorder()
	h.handler.ServeHTTP(res, req)
	return res
}

func (h *harness) openSession(t *testing.T) {
	t.Helper()
	if res := h.selectFile(t, "notes.pdf", domain.PDFContentType, samplePDF); res.Code != http.StatusCreated {
		t.Fatalf("select expected 201, got %d: %s", res.Code, res.Body.String())
	}
	if res := h.do(t, http.MethodPost, "/v1/workspace/upload", nil); res.Code != http.StatusCreated {
		t.Fatalf("upload expected 201, got %d: %s", res.Code, res.Body.String())
	}
}

func decode[T any](t *testing.T, res *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		t.Fatalf("decode response %q: %v", res.Body.String(), err)
	}
	return out
}

func TestUploadFlowComposesWorkspaceView(t *testing.T) {
	h := newHarness(t, Options{})

	view := decode[viewResponse](t, h.do(t, http.MethodGet, "/v1/view", nil))
	if view.View.Page != domain.PageUpload || view.Pending != nil {
		t.Fatalf("expected bare upload page, got %+v", view)
	}

	res := h.selectFile(t, "notes.pdf", domain.PDFContentType, samplePDF)
	if res.Code != http.StatusCreated {
		t.Fatalf("select expected 201, got %d: %s", res.Code, res.Body.String())
	}
	pending := decode[pendingResponse](t, res)

	preview := h.do(t, http.MethodGet, pending.PreviewURL, nil)
	if preview.Code != http.StatusOK || preview.Header().Get("Content-Type") != domain.PDFContentType {
		t.Fatalf("preview expected 200 pdf, got %d %q", preview.Code, preview.Header().Get("Content-Type"))
	}
	if !bytes.Equal(preview.Body.Bytes(), samplePDF) {
		t.Fatalf("preview body mismatch")
	}

	if res := h.do(t, http.MethodPost, "/v1/workspace/upload", nil); res.Code != http.StatusCreated {
		t.Fatalf("upload expected 201, got %d: %s", res.Code, res.Body.String())
	}

	view = decode[viewResponse](t, h.do(t, http.MethodGet, "/v1/view", nil))
	if view.View.Page != domain.PageWorkspace || view.View.Route != domain.RouteChat || !view.View.ShowPreview {
		t.Fatalf("expected chat workspace with preview, got %+v", view.View)
	}
	if view.View.ChunkCount != 5 || view.View.Filename != "notes.pdf" {
		t.Fatalf("document missing from view: %+v", view.View)
	}
}

func TestSelectRejectsNonPDF(t *testing.T) {
	h := newHarness(t, Options{})
	res := h.selectFile(t, "notes.txt", "text/plain", []byte("hello"))
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	if h.previews.Live() != 0 {
		t.Fatalf("rejected file must not hold a preview")
	}
}

func TestSelectRejectsOversizedBody(t *testing.T) {
	h := newHarness(t, Options{MaxUploadBytes: 16})
	big := append(append([]byte{}, samplePDF...), bytes.Repeat([]byte("x"), 2<<20)...)
	res := h.selectFile(t, "big.pdf", domain.PDFContentType, big)
	if res.Code != http.StatusRequestEntityTooLarge && res.Code != http.StatusBadRequest {
		t.Fatalf("expected oversized upload to be refused, got %d", res.Code)
	}
	if h.previews.Live() != 0 {
		t.Fatalf("oversized file must not hold a preview")
	}
}

func TestNavigateHidesPreviewOnSummaryAndQuiz(t *testing.T) {
	h := newHarness(t, Options{})
	h.openSession(t)

	tests := []struct {
		route       string
		want        domain.Route
		showPreview bool
	}{
		{route: "/summary", want: domain.RouteSummary, showPreview: false},
		{route: "/mcq", want: domain.RouteQuiz, showPreview: false},
		{route: "/", want: domain.RouteChat, showPreview: true},
	}
	for _, tc := range tests {
		res := h.do(t, http.MethodPost, "/v1/view/navigate", map[string]string{"route": tc.route})
		if res.Code != http.StatusOK {
			t.Fatalf("navigate %s expected 200, got %d", tc.route, res.Code)
		}
		view := decode[viewResponse](t, res)
		if view.View.Route != tc.want || view.View.ShowPreview != tc.showPreview {
			t.Fatalf("navigate %s: got %+v", tc.route, view.View)
		}
	}

	if res := h.do(t, http.MethodPost, "/v1/view/navigate", map[string]string{"route": "/admin"}); res.Code != http.StatusNotFound {
		t.Fatalf("unknown route expected 404, got %d", res.Code)
	}
}

func TestChatFlowKeepsTranscriptAcrossNavigation(t *testing.T) {
	h := newHarness(t, Options{})
	h.openSession(t)

	res := h.do(t, http.MethodPost, "/v1/chat/messages", map[string]string{"text": "what is it?"})
	if res.Code != http.StatusOK {
		t.Fatalf("send expected 200, got %d: %s", res.Code, res.Body.String())
	}
	snap := decode[domain.ChatSnapshot](t, res)
	if snap.SessionID != "sess-1" || len(snap.Transcript) != 2 {
		t.Fatalf("unexpected chat snapshot %+v", snap)
	}

	h.do(t, http.MethodPost, "/v1/view/navigate", map[string]string{"route": "/mcq"})
	h.do(t, http.MethodPost, "/v1/view/navigate", map[string]string{"route": "/chat"})

	snap = decode[domain.ChatSnapshot](t, h.do(t, http.MethodGet, "/v1/chat", nil))
	if len(snap.Transcript) != 2 || snap.Transcript[1].Text != "re: what is it?" {
		t.Fatalf("transcript lost across navigation: %+v", snap)
	}

	if res := h.do(t, http.MethodPost, "/v1/chat/messages", map[string]string{"text": "   "}); res.Code != http.StatusBadRequest {
		t.Fatalf("blank question expected 400, got %d", res.Code)
	}
}

func TestChatBackendFailureIsRenderedInTranscript(t *testing.T) {
	h := newHarness(t, Options{})
	h.openSession(t)
	h.backend.askErr = domain.WrapError(domain.ErrAskFailed, "ask", errors.New("down"))

	res := h.do(t, http.MethodPost, "/v1/chat/messages", map[string]string{"text": "hello?"})
	if res.Code != http.StatusOK {
		t.Fatalf("send expected 200, got %d", res.Code)
	}
	snap := decode[domain.ChatSnapshot](t, res)
	if len(snap.Transcript) != 2 || !snap.Transcript[1].IsError {
		t.Fatalf("expected error entry, got %+v", snap.Transcript)
	}
}

func TestQuizFlowOverHTTP(t *testing.T) {
	h := newHarness(t, Options{})
	h.openSession(t)

	if res := h.do(t, http.MethodPost, "/v1/quiz/generate", nil); res.Code != http.StatusOK {
		t.Fatalf("generate expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if res := h.do(t, http.MethodPut, "/v1/quiz/answers/0", map[string]int{"option": 0}); res.Code != http.StatusOK {
		t.Fatalf("select expected 200, got %d", res.Code)
	}
	if res := h.do(t, http.MethodPost, "/v1/quiz/submit", nil); res.Code != http.StatusConflict {
		t.Fatalf("partial submit expected 409, got %d", res.Code)
	}
	if res := h.do(t, http.MethodPut, "/v1/quiz/answers/1", map[string]int{"option": 0}); res.Code != http.StatusOK {
		t.Fatalf("select expected 200, got %d", res.Code)
	}
	if res := h.do(t, http.MethodPut, "/v1/quiz/answers/x", map[string]int{"option": 0}); res.Code != http.StatusBadRequest {
		t.Fatalf("bad index expected 400, got %d", res.Code)
	}

	res := h.do(t, http.MethodPost, "/v1/quiz/submit", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("submit expected 200, got %d", res.Code)
	}
	snap := decode[domain.QuizSnapshot](t, res)
	if snap.Phase != domain.QuizSubmitted || snap.Result == nil || snap.Result.Score != 1 || snap.Result.Verdict != domain.VerdictPassed {
		t.Fatalf("unexpected submitted snapshot %+v", snap)
	}

	if res := h.do(t, http.MethodPut, "/v1/quiz/answers/1", map[string]int{"option": 1}); res.Code != http.StatusConflict {
		t.Fatalf("answer after submit expected 409, got %d", res.Code)
	}
	snap = decode[domain.QuizSnapshot](t, h.do(t, http.MethodPost, "/v1/quiz/explanations/0/toggle", nil))
	if !snap.ExplanationsShown[0] {
		t.Fatalf("expected explanation shown")
	}
	snap = decode[domain.QuizSnapshot](t, h.do(t, http.MethodPost, "/v1/quiz/retry", nil))
	if snap.Phase != domain.QuizActive || len(snap.Answers) != 0 || len(snap.Questions) != 2 {
		t.Fatalf("unexpected snapshot after retry %+v", snap)
	}
}

func TestSummaryFlowOverHTTP(t *testing.T) {
	h := newHarness(t, Options{})
	h.openSession(t)

	if res := h.do(t, http.MethodPut, "/v1/summary/mode", map[string]string{"mode": "learning"}); res.Code != http.StatusOK {
		t.Fatalf("set mode expected 200, got %d", res.Code)
	}
	if res := h.do(t, http.MethodPut, "/v1/summary/mode", map[string]string{"mode": "haiku"}); res.Code != http.StatusBadRequest {
		t.Fatalf("unknown mode expected 400, got %d", res.Code)
	}
	snap := decode[domain.SummarySnapshot](t, h.do(t, http.MethodPost, "/v1/summary/generate", nil))
	if snap.Content != "summary in learning" || snap.ContentMode != domain.SummaryLearning {
		t.Fatalf("unexpected summary %+v", snap)
	}
}

func TestFeaturesWithoutSessionReturn404(t *testing.T) {
	h := newHarness(t, Options{})
	for _, path := range []string{"/v1/chat", "/v1/summary", "/v1/quiz"} {
		if res := h.do(t, http.MethodGet, path, nil); res.Code != http.StatusNotFound {
			t.Fatalf("%s expected 404 without session, got %d", path, res.Code)
		}
	}
}

func TestResetReturnsToUploadPage(t *testing.T) {
	h := newHarness(t, Options{})
	h.openSession(t)

	res := h.do(t, http.MethodPost, "/v1/workspace/reset", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("reset expected 200, got %d", res.Code)
	}
	if view := decode[viewResponse](t, res); view.View.Page != domain.PageUpload || view.Pending != nil {
		t.Fatalf("expected empty upload page, got %+v", view)
	}
	if h.previews.Live() != 0 {
		t.Fatalf("reset must release the preview")
	}
	if res := h.do(t, http.MethodGet, "/v1/workspace/preview", nil); res.Code != http.StatusNotFound {
		t.Fatalf("preview after reset expected 404, got %d", res.Code)
	}
}

func TestDocumentsListAndDeleteActive(t *testing.T) {
	h := newHarness(t, Options{})
	h.openSession(t)

	res := h.do(t, http.MethodGet, "/v1/documents", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("list expected 200, got %d", res.Code)
	}
	body := decode[map[string]any](t, res)
	if body["count"].(float64) != 1 {
		t.Fatalf("unexpected list body %v", body)
	}

	if res := h.do(t, http.MethodDelete, "/v1/documents/doc-1", nil); res.Code != http.StatusNoContent {
		t.Fatalf("delete expected 204, got %d", res.Code)
	}
	if _, ok := h.workspace.Current(); ok {
		t.Fatalf("deleting the open document must reset the workspace")
	}
}

func TestBackendErrorsMapToGatewayStatuses(t *testing.T) {
	h := newHarness(t, Options{})
	h.backend.listErr = domain.WrapError(domain.ErrTemporary, "list", errors.New("503"))

	res := h.do(t, http.MethodGet, "/v1/documents", nil)
	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("temporary list failure expected 503, got %d", res.Code)
	}
	body := decode[map[string]string](t, res)
	if body["request_id"] == "" || !strings.Contains(body["error"], "list documents failed") {
		t.Fatalf("unexpected error body %v", body)
	}

	h.backend.deleteErr = domain.WrapError(domain.ErrDeleteFailed, "delete", errors.New("400 bad id"))
	if res := h.do(t, http.MethodDelete, "/v1/documents/doc-9", nil); res.Code != http.StatusBadGateway {
		t.Fatalf("permanent delete failure expected 502, got %d", res.Code)
	}
}

func TestMetricsEndpointIsServed(t *testing.T) {
	m := metrics.NewHTTPServerMetrics("svc")
	h := newHarness(t, Options{Metrics: m, ServeMetrics: true, Service: "svc"})

	h.do(t, http.MethodGet, "/healthz", nil)
	res := h.do(t, http.MethodGet, "/metrics", nil)
	if res.Code != http.StatusOK || !strings.Contains(res.Body.String(), `path="/healthz"`) {
		t.Fatalf("expected healthz request in metrics, got %d:\n%s", res.Code, res.Body.String())
	}
}
