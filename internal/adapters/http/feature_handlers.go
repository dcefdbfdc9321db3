package httpadapter

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kirillkom/study-workspace/internal/core/domain"
)

func (rt *Router) getChat(w http.ResponseWriter, r *http.Request) {
	chat, err := rt.views.Chat()
	if err != nil {
		rt.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chat.Snapshot())
}

// sendChat answers with the transcript even when the backend failed, since
// the failure is recorded there as an error entry.
func (rt *Router) sendChat(w http.ResponseWriter, r *http.Request) {
	chat, err := rt.views.Chat()
	if err != nil {
		rt.fail(w, r, err)
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		rt.fail(w, r, err)
		return
	}
	if err := chat.Send(r.Context(), req.Text); err != nil {
		rt.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chat.Snapshot())
}

func (rt *Router) clearChat(w http.ResponseWriter, r *http.Request) {
	chat, err := rt.views.Chat()
	if err != nil {
		rt.fail(w, r, err)
		return
	}
	if err := chat.Clear(); err != nil {
		rt.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chat.Snapshot())
}

func (rt *Router) getSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := rt.views.Summary()
	if err != nil {
		rt.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary.Snapshot())
}

func (rt *Router) setSummaryMode(w http.ResponseWriter, r *http.Request) {
	summary, err := rt.views.Summary()
	if err != nil {
		rt.fail(w, r, err)
		return
	}
	var req struct {
		Mode string `json:"mode"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		rt.fail(w, r, err)
		return
	}
	if err := summary.SetMode(domain.SummaryMode(req.Mode)); err != nil {
		rt.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary.Snapshot())
}

func (rt *Router) generateSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := rt.views.Summary()
	if err != nil {
		rt.fail(w, r, err)
		return
	}
	if err := summary.Generate(r.Context()); err != nil {
		rt.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary.Snapshot())
}

func (rt *Router) getQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := rt.views.Quiz()
	if err != nil {
		rt.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz.Snapshot())
}

func (rt *Router) generateQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := rt.views.Quiz()
	if err != nil {
		rt.fail(w, r, err)
		return
	}
	if err := quiz.Generate(r.Context()); err != nil {
		rt.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz.Snapshot())
}

func (rt *Router) selectQuizOption(w http.ResponseWriter, r *http.Request) {
	quiz, err := rt.views.Quiz()
	if err != nil {
		rt.fail(w, r, err)
		return
	}
	question, err := questionIndex(r)
	if err != nil {
		rt.fail(w, r, err)
		return
	}
	var req struct {
		Option *int `json:"option"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		rt.fail(w, r, err)
		return
	}
	if req.Option == nil {
		rt.fail(w, r, domain.Reject(domain.ErrInvalidInput, "select option", "option is required"))
		return
	}
	if err := quiz.SelectOption(question, *req.Option); err != nil {
		rt.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz.Snapshot())
}

func (rt *Router) submitQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := rt.views.Quiz()
	if err != nil {
		rt.fail(w, r, err)
		return
	}
	if err := quiz.Submit(); err != nil {
		rt.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz.Snapshot())
}

func (rt *Router) toggleExplanation(w http.ResponseWriter, r *http.Request) {
	quiz, err := rt.views.Quiz()
	if err != nil {
		rt.fail(w, r, err)
		return
	}
	question, err := questionIndex(r)
	if err != nil {
		rt.fail(w, r, err)
		return
	}
	if err := quiz.ToggleExplanation(question); err != nil {
		rt.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz.Snapshot())
}

func (rt *Router) retryQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := rt.views.Quiz()
	if err != nil {
		rt.fail(w, r, err)
		return
	}
	if err := quiz.Retry(); err != nil {
		rt.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz.Snapshot())
}

func questionIndex(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "question")
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.Reject(domain.ErrInvalidInput, "quiz", "question index must be an integer")
	}
	return n, nil
}
