package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"bitscode/internal/app/evaluator"
	"bitscode/internal/common"
	"bitscode/internal/domain/language"
	"bitscode/internal/domain/model"
	"bitscode/internal/domain/repository"
	"bitscode/internal/platform/cache"
	"bitscode/internal/platform/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type SubmissionService struct {
	submissionRepo repository.SubmissionRepository
	problemRepo    repository.ProblemRepository
	tx             repository.Transactor
	eval           Evaluator
	locker         *cache.Locker // nil disables the in-flight guard
	lockTTL        time.Duration
	log            *zap.Logger
}

func NewSubmissionService(
	subRepo repository.SubmissionRepository,
	probRepo repository.ProblemRepository,
	tx repository.Transactor,
	eval Evaluator,
	locker *cache.Locker,
	lockTTL time.Duration,
	log *zap.Logger,
) *SubmissionService {
	return &SubmissionService{
		submissionRepo: subRepo,
		problemRepo:    probRepo,
		tx:             tx,
		eval:           eval,
		locker:         locker,
		lockTTL:        lockTTL,
		log:            logger.OrNop(log).Named("submissions"),
	}
}

// LanguageRef accepts either a Judge0 language id or a language name.
type LanguageRef struct {
	ID  int
	Raw string
}

func (l *LanguageRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		l.Raw = s
		if id, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			l.ID = id
		} else if id, ok := language.ResolveLanguageID(s); ok {
			l.ID = id
		}
		return nil
	}
	var id int
	if err := json.Unmarshal(b, &id); err != nil {
		return fmt.Errorf("languageId must be a number or a language name")
	}
	l.ID, l.Raw = id, string(b)
	return nil
}

type ExecuteRequest struct {
	SourceCode     string      `json:"sourceCode"`
	LanguageID     LanguageRef `json:"languageId"`
	Stdin          []*string   `json:"stdin"`
	ExpectedOutput []*string   `json:"expectedOutput"`
	ProblemID      string      `json:"problemId"`
}

func (r ExecuteRequest) testCases() ([]model.TestCase, error) {
	if strings.TrimSpace(r.ProblemID) == "" {
		return nil, common.Validationf("problemId is required")
	}
	if strings.TrimSpace(r.SourceCode) == "" {
		return nil, common.Validationf("sourceCode is required")
	}
	if len(r.Stdin) == 0 {
		return nil, common.Validationf("stdin must be a non-empty array")
	}
	if len(r.ExpectedOutput) != len(r.Stdin) {
		return nil, common.Validationf("expectedOutput must have one entry per stdin (got %d and %d)", len(r.ExpectedOutput), len(r.Stdin))
	}
	cases := make([]model.TestCase, len(r.Stdin))
	for i := range r.Stdin {
		if r.Stdin[i] == nil || r.ExpectedOutput[i] == nil {
			return nil, common.Validationf("test case %d must have both stdin and expectedOutput", i+1)
		}
		cases[i] = model.TestCase{Input: *r.Stdin[i], ExpectedOutput: *r.ExpectedOutput[i]}
	}
	return cases, nil
}

func lockKey(userID, problemID string) string {
	return "lock:submission:" + userID + ":" + problemID
}

// Execute evaluates the caller's code and records the outcome. Nothing is
// stored unless the evaluation completes.
func (s *SubmissionService) Execute(ctx context.Context, caller *model.Identity, req ExecuteRequest) (*model.Submission, error) {
	if caller == nil {
		return nil, common.ErrUnauthorized
	}
	cases, err := req.testCases()
	if err != nil {
		return nil, err
	}
	if !language.IsSupported(req.LanguageID.ID) {
		return nil, fmt.Errorf("language %q: %w", req.LanguageID.Raw, common.ErrUnsupportedLanguage)
	}
	if _, err := s.problemRepo.FindByID(ctx, req.ProblemID); err != nil {
		return nil, err
	}

	if s.locker != nil {
		lock, ok, err := s.locker.TryAcquire(ctx, lockKey(caller.UserID, req.ProblemID), s.lockTTL)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrPersistence, err)
		}
		if !ok {
			return nil, fmt.Errorf("an evaluation of this problem is already running: %w", common.ErrConflict)
		}
		defer func() {
			if _, err := lock.Release(context.WithoutCancel(ctx)); err != nil {
				s.log.Warn("failed to release submission lock", zap.Error(err))
			}
		}()
	}

	res, err := s.eval.Evaluate(ctx, evaluator.Request{
		SourceCode: req.SourceCode,
		LanguageID: req.LanguageID.ID,
		TestCases:  cases,
		Mode:       evaluator.ModeSubmission,
	})
	if err != nil {
		return nil, err
	}

	sub, err := buildSubmission(caller.UserID, req, res)
	if err != nil {
		return nil, err
	}
	// The judge has already run; the record must be written whole or not at all.
	err = s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		if err := s.submissionRepo.Create(ctx, tx, sub); err != nil {
			return err
		}
		if err := s.submissionRepo.CreateTestCaseResults(ctx, tx, sub.TestCases); err != nil {
			return err
		}
		if res.Accepted() {
			return s.submissionRepo.MarkSolved(ctx, tx, caller.UserID, req.ProblemID)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record submission: %w", err)
	}

	s.log.Info("submission recorded",
		zap.String("submission_id", sub.ID),
		zap.String("user_id", caller.UserID),
		zap.String("problem_id", req.ProblemID),
		zap.String("verdict", sub.Status),
	)
	return sub, nil
}

// buildSubmission flattens an evaluation into the stored shape. Aggregated
// columns are JSON arrays in test case order.
func buildSubmission(userID string, req ExecuteRequest, res *evaluator.Result) (*model.Submission, error) {
	n := len(res.Cases)
	stdout := make([]*string, n)
	stderr := make([]*string, n)
	compile := make([]*string, n)
	memory := make([]*string, n)
	times := make([]*string, n)
	stdin := make([]string, n)
	var anyStderr, anyCompile bool

	sub := &model.Submission{
		ID:         uuid.NewString(),
		UserID:     userID,
		ProblemID:  req.ProblemID,
		SourceCode: req.SourceCode,
		Language:   language.ResolveLanguageName(req.LanguageID.ID),
		Status:     res.Verdict,
		TestCases:  make([]model.TestCaseResult, n),
	}
	for i, c := range res.Cases {
		stdin[i] = c.Stdin
		stdout[i], stderr[i], compile[i] = c.ActualOutput, c.Stderr, c.CompileOutput
		memory[i], times[i] = c.Memory, c.Time
		anyStderr = anyStderr || c.Stderr != nil
		anyCompile = anyCompile || c.CompileOutput != nil

		sub.TestCases[i] = model.TestCaseResult{
			ID:            uuid.NewString(),
			SubmissionID:  sub.ID,
			TestCase:      c.Index,
			Passed:        c.Passed,
			Stdout:        c.ActualOutput,
			Expected:      c.ExpectedOutput,
			Stderr:        c.Stderr,
			CompileOutput: c.CompileOutput,
			StatusID:      c.StatusID,
			Status:        c.StatusDescription,
			Diagnostic:    c.Diagnostic,
			Memory:        c.Memory,
			Time:          c.Time,
		}
	}
	sub.Stdin = strings.Join(stdin, "\n")

	var err error
	if sub.Stdout, err = jsonArray(stdout); err != nil {
		return nil, err
	}
	if anyStderr {
		if sub.Stderr, err = jsonArray(stderr); err != nil {
			return nil, err
		}
	}
	if anyCompile {
		if sub.CompileOutput, err = jsonArray(compile); err != nil {
			return nil, err
		}
	}
	if sub.Memory, err = jsonArray(memory); err != nil {
		return nil, err
	}
	if sub.Time, err = jsonArray(times); err != nil {
		return nil, err
	}
	return sub, nil
}

func jsonArray(values []*string) (*string, error) {
	b, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("encoding submission outputs: %w", err)
	}
	s := string(b)
	return &s, nil
}

func (s *SubmissionService) ListMine(ctx context.Context, caller *model.Identity) ([]model.Submission, error) {
	if caller == nil {
		return nil, common.ErrUnauthorized
	}
	return s.submissionRepo.ListByUser(ctx, caller.UserID)
}

func (s *SubmissionService) ListMineForProblem(ctx context.Context, caller *model.Identity, problemID string) ([]model.Submission, error) {
	if caller == nil {
		return nil, common.ErrUnauthorized
	}
	return s.submissionRepo.ListByUserAndProblem(ctx, caller.UserID, problemID)
}

// CountForProblem counts submissions of every user.
func (s *SubmissionService) CountForProblem(ctx context.Context, problemID string) (int, error) {
	return s.submissionRepo.CountByProblem(ctx, problemID)
}
