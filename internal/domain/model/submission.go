package model

import "time"

// Verdicts are binary; per-case rows keep the judge's finer status.
const (
	VerdictAccepted    = "Accepted"
	VerdictWrongAnswer = "Wrong Answer"
)

// Submission is one evaluation run. Stdout, Stderr, CompileOutput, Memory and
// Time hold JSON arrays aligned with the test case order.
type Submission struct {
	ID            string           `json:"id"`
	UserID        string           `json:"userId"`
	ProblemID     string           `json:"problemId"`
	SourceCode    string           `json:"sourceCode"`
	Language      string           `json:"language"`
	Stdin         string           `json:"stdin"`
	Stdout        *string          `json:"stdout"`
	Stderr        *string          `json:"stderr"`
	CompileOutput *string          `json:"compileOutput"`
	Status        string           `json:"status"`
	Memory        *string          `json:"memory"`
	Time          *string          `json:"time"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
	TestCases     []TestCaseResult `json:"testCases,omitempty"`
}

type TestCaseResult struct {
	ID            string    `json:"id"`
	SubmissionID  string    `json:"submissionId"`
	TestCase      int       `json:"testCase"` // 1-based
	Passed        bool      `json:"passed"`
	Stdout        *string   `json:"stdout"`
	Expected      string    `json:"expected"`
	Stderr        *string   `json:"stderr"`
	CompileOutput *string   `json:"compileOutput"`
	StatusID      int       `json:"statusId"`
	Status        string    `json:"status"`
	Diagnostic    *string   `json:"diagnostic,omitempty"`
	Memory        *string   `json:"memory"`
	Time          *string   `json:"time"`
	CreatedAt     time.Time `json:"createdAt"`
}
