package model

import (
	"encoding/json"
	"time"
)

type ProblemDifficulty string

const (
	DifficultyEasy   ProblemDifficulty = "EASY"
	DifficultyMedium ProblemDifficulty = "MEDIUM"
	DifficultyHard   ProblemDifficulty = "HARD"
)

func (d ProblemDifficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

type Problem struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Slug        string            `json:"slug"`
	Description string            `json:"description"`
	Difficulty  ProblemDifficulty `json:"difficulty"`
	Tags        []string          `json:"tags"`
	Examples    json.RawMessage   `json:"examples"` // Free-form, per language
	Constraints string            `json:"constraints"`
	Hints       *string           `json:"hints,omitempty"`
	Editorial   *string           `json:"editorial,omitempty"`
	TestCases   []TestCase        `json:"testcases"`
	// Keyed by language name as written by the author.
	CodeSnippets       map[string]string `json:"codeSnippets"`
	ReferenceSolutions map[string]string `json:"referenceSolutions,omitempty"` // Admin only view
	UserID             string            `json:"userId"`
	CreatedAt          time.Time         `json:"createdAt"`
	UpdatedAt          time.Time         `json:"updatedAt"`

	Solved bool `json:"solved"` // For the calling user, listing only
}

type TestCase struct {
	Input          string `json:"input"`
	ExpectedOutput string `json:"output"`
}

// ProblemFilter narrows problem listings. Zero values mean "any".
type ProblemFilter struct {
	Difficulty ProblemDifficulty
	Tag        string
	Page       int
	PageSize   int
}

type ProblemSolved struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	ProblemID string    `json:"problemId"`
	CreatedAt time.Time `json:"createdAt"`
}
