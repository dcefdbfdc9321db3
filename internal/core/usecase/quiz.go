package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kirillkom/study-workspace/internal/core/domain"
	"github.com/kirillkom/study-workspace/internal/core/ports"
)

type quizAction string

const (
	quizSelect quizAction = "select_option"
	quizSubmit quizAction = "submit"
	quizToggle quizAction = "toggle_explanation"
	quizRetry  quizAction = "retry"
)

// quizTransitions lists the phases each user action is valid in. Generate is
// valid in every phase and is not listed.
var quizTransitions = map[quizAction][]domain.QuizPhase{
	quizSelect: {domain.QuizActive},
	quizSubmit: {domain.QuizActive},
	quizToggle: {domain.QuizSubmitted},
	quizRetry:  {domain.QuizSubmitted},
}

// QuizController runs the multiple-choice practice state machine:
// empty -> active -> submitted -> (active via retry | active via regenerate).
type QuizController struct {
	backend    ports.Backend
	documentID string
	count      int
	observer   ports.FeatureObserver
	logger     *slog.Logger

	mu           sync.Mutex
	phase        domain.QuizPhase
	questions    []domain.Question
	answers      map[int]int
	explanations map[int]bool
	loading      bool
	detached     bool
}

func NewQuizController(backend ports.Backend, documentID string, opts Options) *QuizController {
	opts = opts.normalize()
	return &QuizController{
		backend:      backend,
		documentID:   documentID,
		count:        opts.QuizQuestionCount,
		observer:     opts.Observer,
		logger:       opts.Logger.With("feature", string(domain.FeatureQuiz), "document_id", documentID),
		phase:        domain.QuizEmpty,
		answers:      map[int]int{},
		explanations: map[int]bool{},
	}
}

// Generate fetches a new question set and swaps it in together with a clean
// answer sheet. On failure the current quiz, submitted or not, stays intact.
func (q *QuizController) Generate(ctx context.Context) error {
	q.mu.Lock()
	if q.detached {
		q.mu.Unlock()
		return domain.Reject(domain.ErrNoSession, "quiz generate", "session was reset")
	}
	if q.loading {
		q.mu.Unlock()
		q.observer.ObserveRejected(domain.FeatureQuiz, "generate", "loading")
		return domain.Reject(domain.ErrBusy, "quiz generate", "generation already running")
	}
	q.loading = true
	q.mu.Unlock()

	start := time.Now()
	questions, err := q.backend.GenerateQuiz(ctx, q.documentID, q.count)
	if err == nil && len(questions) == 0 {
		err = domain.Reject(domain.ErrQuizGenFailed, "quiz generate", "backend returned no questions")
	}
	q.observer.ObserveRequest(domain.FeatureQuiz, "generate", time.Since(start), err)

	q.mu.Lock()
	defer q.mu.Unlock()
	q.loading = false

	if q.detached {
		q.observer.ObserveStale(domain.FeatureQuiz, "generate")
		q.logger.Debug("stale_response_discarded", "operation", "generate")
		return domain.Reject(domain.ErrStaleResponse, "quiz generate", "session was reset")
	}
	if err != nil {
		q.logger.Warn("quiz_generate_failed", "error", err, "phase", string(q.phase))
		return ensureKind(domain.ErrQuizGenFailed, "quiz generate", err)
	}

	q.questions = cloneQuestions(questions)
	q.answers = map[int]int{}
	q.explanations = map[int]bool{}
	q.phase = domain.QuizActive
	return nil
}

// SelectOption records the answer for one question, replacing any earlier one.
func (q *QuizController) SelectOption(questionIndex, optionIndex int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.guard(quizSelect); err != nil {
		return err
	}
	if questionIndex < 0 || questionIndex >= len(q.questions) {
		return domain.Reject(domain.ErrInvalidInput, "quiz select", fmt.Sprintf("question %d out of range", questionIndex))
	}
	if optionIndex < 0 || optionIndex >= len(q.questions[questionIndex].Options) {
		return domain.Reject(domain.ErrInvalidInput, "quiz select", fmt.Sprintf("option %d out of range", optionIndex))
	}
	q.answers[questionIndex] = optionIndex
	return nil
}

// CanSubmit reports whether every question has an answer.
func (q *QuizController) CanSubmit() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.canSubmit()
}

func (q *QuizController) Submit() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.guard(quizSubmit); err != nil {
		return err
	}
	if !q.canSubmit() {
		q.observer.ObserveRejected(domain.FeatureQuiz, string(quizSubmit), "unanswered")
		return domain.Reject(domain.ErrStateViolation, "quiz submit",
			fmt.Sprintf("%d of %d questions answered", q.answered(), len(q.questions)))
	}
	q.phase = domain.QuizSubmitted
	return nil
}

// Score counts questions whose selected option is flagged correct.
func (q *QuizController) Score() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return score(q.questions, q.answers)
}

// Result grades the current answer sheet.
func (q *QuizController) Result() domain.QuizResult {
	q.mu.Lock()
	defer q.mu.Unlock()
	return resultOf(q.questions, q.answers)
}

func (q *QuizController) ToggleExplanation(questionIndex int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.guard(quizToggle); err != nil {
		return err
	}
	if questionIndex < 0 || questionIndex >= len(q.questions) {
		return domain.Reject(domain.ErrInvalidInput, "quiz toggle explanation", fmt.Sprintf("question %d out of range", questionIndex))
	}
	q.explanations[questionIndex] = !q.explanations[questionIndex]
	return nil
}

// Retry reopens the submitted quiz with the same questions and a blank sheet.
func (q *QuizController) Retry() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.guard(quizRetry); err != nil {
		return err
	}
	q.answers = map[int]int{}
	q.explanations = map[int]bool{}
	q.phase = domain.QuizActive
	return nil
}

func (q *QuizController) Snapshot() domain.QuizSnapshot {
	q.mu.Lock()
	defer q.mu.Unlock()

	answers := make(map[int]int, len(q.answers))
	for k, v := range q.answers {
		answers[k] = v
	}
	explanations := make(map[int]bool, len(q.explanations))
	for k, v := range q.explanations {
		explanations[k] = v
	}

	snap := domain.QuizSnapshot{
		Phase:             q.phase,
		Questions:         cloneQuestions(q.questions),
		Answers:           answers,
		ExplanationsShown: explanations,
		Answered:          q.answered(),
		CanSubmit:         q.phase == domain.QuizActive && q.canSubmit(),
		Loading:           q.loading,
	}
	if q.phase == domain.QuizSubmitted {
		result := resultOf(q.questions, q.answers)
		snap.Result = &result
	}
	return snap
}

func (q *QuizController) guard(action quizAction) error {
	for _, phase := range quizTransitions[action] {
		if q.phase == phase {
			return nil
		}
	}
	q.observer.ObserveRejected(domain.FeatureQuiz, string(action), string(q.phase))
	return domain.Reject(domain.ErrStateViolation, "quiz "+string(action), "not allowed while quiz is "+string(q.phase))
}

func (q *QuizController) canSubmit() bool {
	if len(q.questions) == 0 {
		return false
	}
	for i := range q.questions {
		if _, ok := q.answers[i]; !ok {
			return false
		}
	}
	return true
}

func (q *QuizController) answered() int {
	n := 0
	for i := range q.questions {
		if _, ok := q.answers[i]; ok {
			n++
		}
	}
	return n
}

func (q *QuizController) detach() {
	q.mu.Lock()
	q.detached = true
	q.mu.Unlock()
}

func score(questions []domain.Question, answers map[int]int) int {
	correct := 0
	for i, question := range questions {
		selected, ok := answers[i]
		if !ok || selected < 0 || selected >= len(question.Options) {
			continue
		}
		if question.Options[selected].IsCorrect {
			correct++
		}
	}
	return correct
}

func resultOf(questions []domain.Question, answers map[int]int) domain.QuizResult {
	result := domain.QuizResult{
		Score: score(questions, answers),
		Total: len(questions),
	}
	switch {
	case result.Score == result.Total:
		result.Verdict = domain.VerdictPerfect
	case 2*result.Score >= result.Total:
		result.Verdict = domain.VerdictPassed
	default:
		result.Verdict = domain.VerdictReview
	}
	return result
}

func cloneQuestions(in []domain.Question) []domain.Question {
	if in == nil {
		return nil
	}
	out := make([]domain.Question, len(in))
	for i, question := range in {
		out[i] = question
		out[i].Options = append([]domain.Option(nil), question.Options...)
	}
	return out
}
