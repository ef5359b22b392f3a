package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"bitscode/internal/common"
	"bitscode/internal/domain/model"
	"bitscode/internal/domain/repository"
	"bitscode/internal/platform/logger"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type ProblemService struct {
	problemRepo repository.ProblemRepository
	validator   *ReferenceValidator
	log         *zap.Logger
}

func NewProblemService(problemRepo repository.ProblemRepository, validator *ReferenceValidator, log *zap.Logger) *ProblemService {
	return &ProblemService{problemRepo: problemRepo, validator: validator, log: logger.OrNop(log).Named("problems")}
}

// TestCaseInput keeps both fields nullable so a missing one is detectable.
type TestCaseInput struct {
	Input  *string `json:"input"`
	Output *string `json:"output"`
}

type CreateProblemRequest struct {
	Title              string                  `json:"title"`
	Description        string                  `json:"description"`
	Difficulty         model.ProblemDifficulty `json:"difficulty"`
	Tags               []string                `json:"tags"`
	Examples           json.RawMessage         `json:"examples"`
	Constraints        string                  `json:"constraints"`
	Hints              *string                 `json:"hints"`
	Editorial          *string                 `json:"editorial"`
	TestCases          []TestCaseInput         `json:"testcases"`
	CodeSnippets       map[string]string       `json:"codeSnippets"`
	ReferenceSolutions map[string]string       `json:"referenceSolutions"`
}

// UpdateProblemRequest is a partial update; nil fields are left untouched.
type UpdateProblemRequest struct {
	Title              *string                  `json:"title,omitempty"`
	Description        *string                  `json:"description,omitempty"`
	Difficulty         *model.ProblemDifficulty `json:"difficulty,omitempty"`
	Tags               *[]string                `json:"tags,omitempty"`
	Examples           *json.RawMessage         `json:"examples,omitempty"`
	Constraints        *string                  `json:"constraints,omitempty"`
	Hints              *string                  `json:"hints,omitempty"`
	Editorial          *string                  `json:"editorial,omitempty"`
	TestCases          *[]TestCaseInput         `json:"testcases,omitempty"`
	CodeSnippets       *map[string]string       `json:"codeSnippets,omitempty"`
	ReferenceSolutions *map[string]string       `json:"referenceSolutions,omitempty"`
}

func toTestCases(inputs []TestCaseInput) ([]model.TestCase, error) {
	if len(inputs) == 0 {
		return nil, common.Validationf("at least one test case is required")
	}
	cases := make([]model.TestCase, len(inputs))
	for i, in := range inputs {
		if in.Input == nil || in.Output == nil {
			return nil, common.Validationf("test case %d must have both input and output", i+1)
		}
		cases[i] = model.TestCase{Input: *in.Input, ExpectedOutput: *in.Output}
	}
	return cases, nil
}

func normalizeDifficulty(d model.ProblemDifficulty) (model.ProblemDifficulty, error) {
	d = model.ProblemDifficulty(strings.ToUpper(strings.TrimSpace(string(d))))
	if !d.Valid() {
		return "", common.Validationf("difficulty must be one of EASY, MEDIUM, HARD")
	}
	return d, nil
}

func makeSlug(title string) (string, error) {
	s := slug.Make(title)
	if s == "" {
		return "", common.Validationf("title must contain letters or digits")
	}
	return s, nil
}

// Create verifies every reference solution before anything is stored. Any
// failure leaves storage untouched.
func (s *ProblemService) Create(ctx context.Context, author *model.Identity, req CreateProblemRequest) (*model.Problem, error) {
	if !author.IsAdmin() {
		return nil, common.ErrForbidden
	}
	title := strings.TrimSpace(req.Title)
	if title == "" || strings.TrimSpace(req.Description) == "" {
		return nil, common.Validationf("title and description are required")
	}
	difficulty, err := normalizeDifficulty(req.Difficulty)
	if err != nil {
		return nil, err
	}
	cases, err := toTestCases(req.TestCases)
	if err != nil {
		return nil, err
	}
	problemSlug, err := makeSlug(title)
	if err != nil {
		return nil, err
	}

	if err := s.validator.Validate(ctx, req.ReferenceSolutions, cases); err != nil {
		return nil, err
	}

	problem := &model.Problem{
		ID:                 uuid.NewString(),
		Title:              title,
		Slug:               problemSlug,
		Description:        req.Description,
		Difficulty:         difficulty,
		Tags:               req.Tags,
		Examples:           req.Examples,
		Constraints:        req.Constraints,
		Hints:              req.Hints,
		Editorial:          req.Editorial,
		TestCases:          cases,
		CodeSnippets:       req.CodeSnippets,
		ReferenceSolutions: req.ReferenceSolutions,
		UserID:             author.UserID,
	}
	if err := s.problemRepo.Create(ctx, problem); err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, fmt.Errorf("a problem titled %q already exists: %w", title, common.ErrConflict)
		}
		return nil, fmt.Errorf("failed to create problem: %w", err)
	}
	s.log.Info("problem created", zap.String("problem_id", problem.ID), zap.String("slug", problem.Slug))
	return problem, nil
}

// Update applies a partial change. Reference solutions are re-verified when
// test cases or solutions change.
func (s *ProblemService) Update(ctx context.Context, author *model.Identity, id string, req UpdateProblemRequest) (*model.Problem, error) {
	if !author.IsAdmin() {
		return nil, common.ErrForbidden
	}
	problem, err := s.problemRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, common.Validationf("title cannot be empty")
		}
		if problem.Slug, err = makeSlug(title); err != nil {
			return nil, err
		}
		problem.Title = title
	}
	if req.Description != nil {
		if strings.TrimSpace(*req.Description) == "" {
			return nil, common.Validationf("description cannot be empty")
		}
		problem.Description = *req.Description
	}
	if req.Difficulty != nil {
		if problem.Difficulty, err = normalizeDifficulty(*req.Difficulty); err != nil {
			return nil, err
		}
	}
	if req.Tags != nil {
		problem.Tags = *req.Tags
	}
	if req.Examples != nil {
		problem.Examples = *req.Examples
	}
	if req.Constraints != nil {
		problem.Constraints = *req.Constraints
	}
	if req.Hints != nil {
		problem.Hints = req.Hints
	}
	if req.Editorial != nil {
		problem.Editorial = req.Editorial
	}
	if req.CodeSnippets != nil {
		problem.CodeSnippets = *req.CodeSnippets
	}

	revalidate := false
	if req.TestCases != nil {
		if problem.TestCases, err = toTestCases(*req.TestCases); err != nil {
			return nil, err
		}
		revalidate = true
	}
	if req.ReferenceSolutions != nil {
		problem.ReferenceSolutions = *req.ReferenceSolutions
		revalidate = true
	}
	if revalidate {
		if err := s.validator.Validate(ctx, problem.ReferenceSolutions, problem.TestCases); err != nil {
			return nil, err
		}
	}

	if err := s.problemRepo.Update(ctx, problem); err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, fmt.Errorf("a problem titled %q already exists: %w", problem.Title, common.ErrConflict)
		}
		return nil, fmt.Errorf("failed to update problem: %w", err)
	}
	s.log.Info("problem updated", zap.String("problem_id", problem.ID), zap.Bool("revalidated", revalidate))
	return problem, nil
}

// Get returns a problem. Reference solutions are only shown to admins.
func (s *ProblemService) Get(ctx context.Context, viewer *model.Identity, id string) (*model.Problem, error) {
	problem, err := s.problemRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !viewer.IsAdmin() {
		problem.ReferenceSolutions = nil
	}
	return problem, nil
}

type ProblemPage struct {
	Problems []model.Problem `json:"problems"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"pageSize"`
}

func (s *ProblemService) List(ctx context.Context, viewer *model.Identity, filter model.ProblemFilter) (*ProblemPage, error) {
	if viewer == nil {
		return nil, common.ErrUnauthorized
	}
	if filter.Difficulty != "" {
		d, err := normalizeDifficulty(filter.Difficulty)
		if err != nil {
			return nil, err
		}
		filter.Difficulty = d
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > maxPageSize {
		filter.PageSize = defaultPageSize
	}

	problems, total, err := s.problemRepo.List(ctx, filter, viewer.UserID)
	if err != nil {
		return nil, err
	}
	if !viewer.IsAdmin() {
		for i := range problems {
			problems[i].ReferenceSolutions = nil
		}
	}
	return &ProblemPage{Problems: problems, Total: total, Page: filter.Page, PageSize: filter.PageSize}, nil
}

func (s *ProblemService) ListSolved(ctx context.Context, viewer *model.Identity) ([]model.Problem, error) {
	if viewer == nil {
		return nil, common.ErrUnauthorized
	}
	problems, err := s.problemRepo.ListSolvedByUser(ctx, viewer.UserID)
	if err != nil {
		return nil, err
	}
	if !viewer.IsAdmin() {
		for i := range problems {
			problems[i].ReferenceSolutions = nil
		}
	}
	return problems, nil
}

func (s *ProblemService) Delete(ctx context.Context, author *model.Identity, id string) error {
	if !author.IsAdmin() {
		return common.ErrForbidden
	}
	if err := s.problemRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("problem deleted", zap.String("problem_id", id))
	return nil
}
