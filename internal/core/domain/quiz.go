package domain

// Option is one answer choice. Scoring only looks at IsCorrect.
type Option struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

type Question struct {
	Text        string   `json:"text"`
	Options     []Option `json:"options"`
	Explanation string   `json:"explanation,omitempty"`
}

type QuizPhase string

const (
	QuizEmpty     QuizPhase = "empty"
	QuizActive    QuizPhase = "active"
	QuizSubmitted QuizPhase = "submitted"
)

type QuizVerdict string

const (
	VerdictPerfect QuizVerdict = "perfect"
	VerdictPassed  QuizVerdict = "passed"
	VerdictReview  QuizVerdict = "review"
)

type QuizResult struct {
	Score   int         `json:"score"`
	Total   int         `json:"total"`
	Verdict QuizVerdict `json:"verdict"`
}

type QuizSnapshot struct {
	Phase             QuizPhase    `json:"phase"`
	Questions         []Question   `json:"questions"`
	Answers           map[int]int  `json:"answers"`
	ExplanationsShown map[int]bool `json:"explanations_shown"`
	Answered          int          `json:"answered"`
	CanSubmit         bool         `json:"can_submit"`
	Loading           bool         `json:"loading"`
	Result            *QuizResult  `json:"result,omitempty"`
}
