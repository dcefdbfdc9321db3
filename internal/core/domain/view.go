package domain

type Route string

const (
	RouteRoot    Route = "/"
	RouteChat    Route = "/chat"
	RouteSummary Route = "/summary"
	RouteQuiz    Route = "/mcq"
)

type Page string

const (
	PageUpload    Page = "upload"
	PageWorkspace Page = "workspace"
)

type Feature string

const (
	FeatureNone    Feature = ""
	FeatureChat    Feature = "chat"
	FeatureSummary Feature = "summary"
	FeatureQuiz    Feature = "quiz"
)

// View is what the composition shell decided to render.
type View struct {
	Page        Page    `json:"page"`
	Route       Route   `json:"route,omitempty"`
	Feature     Feature `json:"feature,omitempty"`
	ShowPreview bool    `json:"show_preview"`
	DocumentID  string  `json:"document_id,omitempty"`
	Filename    string  `json:"filename,omitempty"`
	ChunkCount  int     `json:"chunk_count,omitempty"`
}
