package domain

import "strings"

type SummaryMode string

const (
	SummaryConcise     SummaryMode = "concise"
	SummaryExplanatory SummaryMode = "explanatory"
	SummaryLearning    SummaryMode = "learning"
)

func ParseSummaryMode(raw string) (SummaryMode, bool) {
	switch mode := SummaryMode(strings.ToLower(strings.TrimSpace(raw))); mode {
	case SummaryConcise, SummaryExplanatory, SummaryLearning:
		return mode, true
	default:
		return "", false
	}
}

type SummarySnapshot struct {
	Mode        SummaryMode `json:"mode"`
	Content     string      `json:"content"`
	ContentMode SummaryMode `json:"content_mode,omitempty"`
	Loading     bool        `json:"loading"`
}
