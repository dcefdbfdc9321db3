package scholarnet

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kirillkom/study-workspace/internal/core/domain"
	"github.com/kirillkom/study-workspace/internal/infrastructure/resilience"
)

const defaultTimeout = 120 * time.Second

const (
	opUpload         = "upload"
	opSummarize      = "summarize"
	opAsk            = "ask"
	opGenerateQuiz   = "generate_quiz"
	opListDocuments  = "list_documents"
	opDeleteDocument = "delete_document"
)

type Options struct {
	Timeout        time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
	Resilience     resilience.Config
	HTTPClient     *http.Client
}

// Client talks to the document-processing backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	exec       *resilience.Executor
}

func New(baseURL string, opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	if opts.RateLimitRPS > 0 {
		limit = rate.Limit(opts.RateLimitRPS)
	}
	burst := opts.RateLimitBurst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, burst),
		exec:       resilience.NewExecutor(opts.Resilience, backendOutcome, idempotentOperations...),
	}
}

type uploadResponse struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	Chunks     int    `json:"chunks"`
}

func (c *Client) Upload(ctx context.Context, file domain.SelectedFile) (domain.DocumentSession, error) {
	var resp uploadResponse
	err := c.call(ctx, opUpload, domain.ErrUploadFailed, func(ctx context.Context) error {
		return c.postMultipart(ctx, "/api/pdf-upload", file, &resp, opUpload)
	})
	if err != nil {
		return domain.DocumentSession{}, err
	}
	return domain.DocumentSession{
		DocumentID: resp.DocumentID,
		Filename:   resp.Filename,
		ChunkCount: resp.Chunks,
	}, nil
}

type summarizeRequest struct {
	DocumentID  string `json:"document_id"`
	SummaryType string `json:"summary_type"`
	MaxLength   int    `json:"max_length"`
}

func (c *Client) Summarize(ctx context.Context, documentID string, mode domain.SummaryMode, maxLength int) (string, error) {
	req := summarizeRequest{DocumentID: documentID, SummaryType: string(mode), MaxLength: maxLength}
	var resp struct {
		Summary string `json:"summary"`
	}
	err := c.call(ctx, opSummarize, domain.ErrSummarizeFailed, func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodPost, "/api/summarize", req, &resp, opSummarize)
	})
	if err != nil {
		return "", err
	}
	return resp.Summary, nil
}

type askRequest struct {
	Question   string `json:"question"`
	DocumentID string `json:"document_id"`
	SessionID  string `json:"session_id,omitempty"`
}

func (c *Client) Ask(ctx context.Context, question, documentID, sessionID string) (domain.Answer, error) {
	req := askRequest{Question: question, DocumentID: documentID, SessionID: sessionID}
	var resp struct {
		Answer    string `json:"answer"`
		SessionID string `json:"session_id"`
	}
	err := c.call(ctx, opAsk, domain.ErrAskFailed, func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodPost, "/api/qa", req, &resp, opAsk)
	})
	if err != nil {
		return domain.Answer{}, err
	}
	return domain.Answer{Text: resp.Answer, SessionID: resp.SessionID}, nil
}

type quizRequest struct {
	DocumentID   string `json:"document_id"`
	NumQuestions int    `json:"num_questions"`
}

type quizResponse struct {
	Questions []struct {
		Question string `json:"question"`
		Options  []struct {
			Option    string `json:"option"`
			IsCorrect bool   `json:"is_correct"`
		} `json:"options"`
		Explanation string `json:"explanation"`
	} `json:"questions"`
}

func (c *Client) GenerateQuiz(ctx context.Context, documentID string, count int) ([]domain.Question, error) {
	req := quizRequest{DocumentID: documentID, NumQuestions: count}
	var resp quizResponse
	err := c.call(ctx, opGenerateQuiz, domain.ErrQuizGenFailed, func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodPost, "/api/mcq", req, &resp, opGenerateQuiz)
	})
	if err != nil {
		return nil, err
	}

	questions := make([]domain.Question, 0, len(resp.Questions))
	for _, item := range resp.Questions {
		q := domain.Question{
			Text:        item.Question,
			Explanation: item.Explanation,
			Options:     make([]domain.Option, 0, len(item.Options)),
		}
		for _, opt := range item.Options {
			q.Options = append(q.Options, domain.Option{Text: opt.Option, IsCorrect: opt.IsCorrect})
		}
		questions = append(questions, q)
	}
	return questions, nil
}

func (c *Client) ListDocuments(ctx context.Context) ([]domain.DocumentInfo, error) {
	var resp struct {
		Documents []struct {
			DocumentID string `json:"document_id"`
			Filename   string `json:"filename"`
		} `json:"documents"`
	}
	err := c.call(ctx, opListDocuments, domain.ErrListFailed, func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodGet, "/api/documents/list", nil, &resp, opListDocuments)
	})
	if err != nil {
		return nil, err
	}

	docs := make([]domain.DocumentInfo, 0, len(resp.Documents))
	for _, d := range resp.Documents {
		docs = append(docs, domain.DocumentInfo{DocumentID: d.DocumentID, Filename: d.Filename})
	}
	return docs, nil
}

func (c *Client) DeleteDocument(ctx context.Context, documentID string) error {
	path := "/api/documents/" + url.PathEscape(documentID)
	return c.call(ctx, opDeleteDocument, domain.ErrDeleteFailed, func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodDelete, path, nil, nil, opDeleteDocument)
	})
}

// call throttles and runs one backend exchange.
func (c *Client) call(ctx context.Context, operation string, kind error, fn func(context.Context) error) error {
	err := c.exec.Do(ctx, operation, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		return fn(ctx)
	})
	return c.wrapFailure(kind, operation, err)
}
