package service

import (
	"context"
	"fmt"
	"sort"

	"bitscode/internal/app/evaluator"
	"bitscode/internal/common"
	"bitscode/internal/domain/language"
	"bitscode/internal/domain/model"
	"bitscode/internal/platform/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Evaluator runs code against test cases.
type Evaluator interface {
	Evaluate(ctx context.Context, req evaluator.Request) (*evaluator.Result, error)
}

// ReferenceValidator checks every reference solution of a problem against
// every test case before the problem may be stored.
type ReferenceValidator struct {
	eval     Evaluator
	parallel bool
	log      *zap.Logger
}

func NewReferenceValidator(eval Evaluator, parallel bool, log *zap.Logger) *ReferenceValidator {
	return &ReferenceValidator{eval: eval, parallel: parallel, log: logger.OrNop(log).Named("reference_validator")}
}

type referenceRun struct {
	name       string
	languageID int
	source     string
}

// Validate returns nil only if every solution passes every case. The first
// failure is reported as a *common.ReferenceSolutionError.
func (v *ReferenceValidator) Validate(ctx context.Context, solutions map[string]string, cases []model.TestCase) error {
	if len(cases) == 0 {
		return common.Validationf("at least one test case is required")
	}
	if len(solutions) == 0 {
		return common.Validationf("at least one reference solution is required")
	}

	// Resolve everything up front so a bad language costs no remote calls.
	names := make([]string, 0, len(solutions))
	for name := range solutions {
		names = append(names, name)
	}
	sort.Strings(names)
	runs := make([]referenceRun, 0, len(names))
	for _, name := range names {
		id, ok := language.ResolveLanguageID(name)
		if !ok {
			return fmt.Errorf("reference solution language %q: %w", name, common.ErrUnsupportedLanguage)
		}
		runs = append(runs, referenceRun{name: name, languageID: id, source: solutions[name]})
	}

	if v.parallel {
		g, gctx := errgroup.WithContext(ctx)
		for _, run := range runs {
			g.Go(func() error { return v.check(gctx, run, cases) })
		}
		return g.Wait()
	}
	for _, run := range runs {
		if err := v.check(ctx, run, cases); err != nil {
			return err
		}
	}
	return nil
}

func (v *ReferenceValidator) check(ctx context.Context, run referenceRun, cases []model.TestCase) error {
	res, err := v.eval.Evaluate(ctx, evaluator.Request{
		SourceCode: run.source,
		LanguageID: run.languageID,
		TestCases:  cases,
		Mode:       evaluator.ModeValidation,
	})
	if err != nil {
		return fmt.Errorf("validating %s reference solution: %w", run.name, err)
	}
	failed := res.FirstFailure()
	if failed == nil {
		return nil
	}

	refErr := &common.ReferenceSolutionError{
		Language:      run.name,
		TestCaseIndex: failed.Index,
		Status:        failed.StatusDescription,
	}
	switch {
	case failed.Diagnostic != nil:
		refErr.Diagnostic = *failed.Diagnostic
	default:
		actual := ""
		if failed.ActualOutput != nil {
			actual = *failed.ActualOutput
		}
		refErr.Status = model.VerdictWrongAnswer
		refErr.Diagnostic = fmt.Sprintf("expected %q, got %q", failed.ExpectedOutput, actual)
	}
	v.log.Info("reference solution rejected",
		zap.String("language", run.name),
		zap.Int("test_case", failed.Index),
		zap.String("status", refErr.Status),
	)
	return refErr
}
