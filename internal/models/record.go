package models

import "time"

// FullRecord is the complete per-file judgment artifact: every model's
// cleaned result, the judge verdict, and the evaluator decision. One of
// these is written for every file that reached the judge, accepted or not.
type FullRecord struct {
	FileID      string                  `json:"file_id"`
	InputFile   string                  `json:"input_file,omitempty"`
	JudgeModel  string                  `json:"judge_model"`
	WinnerModel string                  `json:"winner_model,omitempty"`
	Judgment    JudgmentRecord          `json:"judgment"`
	Verdict     EvaluationVerdict       `json:"verdict"`
	Results     map[string]*ParseResult `json:"results"`
	Accepted    *SimplifiedRecord       `json:"accepted,omitempty"`
	CompletedAt time.Time               `json:"completed_at"`
}

// FailureRecord captures a file that never produced a judgment: token
// budget rejections and pipeline failures.
type FailureRecord struct {
	FileID         string    `json:"file_id"`
	InputFile      string    `json:"input_file,omitempty"`
	Error          string    `json:"error,omitempty"`
	TokenCount     int       `json:"token_count,omitempty"`
	MaxInputTokens int       `json:"max_input_tokens,omitempty"`
	FailedModels   []string  `json:"failed_models,omitempty"`
	RecordedAt     time.Time `json:"recorded_at"`
}
