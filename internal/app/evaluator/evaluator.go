// Package evaluator runs source code against test cases on the execution
// service and reduces the per-case outcomes to a verdict. It never touches
// storage.
package evaluator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bitscode/internal/common"
	"bitscode/internal/domain/language"
	"bitscode/internal/domain/model"
	"bitscode/internal/platform/judge0"
	"bitscode/internal/platform/logger"
	"bitscode/internal/platform/metrics"

	"go.uber.org/zap"
)

// ExecutionClient is the batch protocol of the execution service.
type ExecutionClient interface {
	SubmitBatch(ctx context.Context, items []judge0.Submission) ([]string, error)
	PollBatch(ctx context.Context, tokens []string, maxWait, interval time.Duration) ([]judge0.Result, error)
}

type Mode string

const (
	ModeSubmission Mode = "submission"
	ModeValidation Mode = "validation"
)

type Request struct {
	SourceCode string
	LanguageID int
	TestCases  []model.TestCase
	Mode       Mode
}

// CaseResult is the outcome of one test case. Index is 1-based.
type CaseResult struct {
	Index             int
	Passed            bool
	Stdin             string
	ActualOutput      *string
	ExpectedOutput    string
	Stderr            *string
	CompileOutput     *string
	StatusID          int
	StatusDescription string
	Diagnostic        *string
	Memory            *string
	Time              *string
}

type Result struct {
	Verdict string
	Cases   []CaseResult // Same order as Request.TestCases
}

func (r *Result) Accepted() bool {
	return r.Verdict == model.VerdictAccepted
}

// FirstFailure returns the lowest-index failing case, or nil.
func (r *Result) FirstFailure() *CaseResult {
	for i := range r.Cases {
		if !r.Cases[i].Passed {
			return &r.Cases[i]
		}
	}
	return nil
}

type Config struct {
	MaxWait      time.Duration
	PollInterval time.Duration
}

type Evaluator struct {
	client ExecutionClient
	cfg    Config
	log    *zap.Logger
}

func New(client ExecutionClient, cfg Config, log *zap.Logger) *Evaluator {
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = 25 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	return &Evaluator{client: client, cfg: cfg, log: logger.OrNop(log).Named("evaluator")}
}

// Evaluate submits every test case in a single batch, waits for all of them
// and compares trimmed outputs. A timeout aborts the whole evaluation.
func (e *Evaluator) Evaluate(ctx context.Context, req Request) (*Result, error) {
	if len(req.TestCases) == 0 {
		return nil, common.Validationf("at least one test case is required")
	}
	if strings.TrimSpace(req.SourceCode) == "" {
		return nil, common.Validationf("source code is required")
	}
	if !language.IsSupported(req.LanguageID) {
		return nil, fmt.Errorf("language id %d: %w", req.LanguageID, common.ErrUnsupportedLanguage)
	}
	mode := req.Mode
	if mode == "" {
		mode = ModeSubmission
	}

	items := make([]judge0.Submission, len(req.TestCases))
	for i, tc := range req.TestCases {
		items[i] = judge0.Submission{SourceCode: req.SourceCode, LanguageID: req.LanguageID, Stdin: tc.Input}
	}

	start := time.Now()
	tokens, err := e.client.SubmitBatch(ctx, items)
	if err != nil {
		return nil, err
	}
	e.log.Debug("batch submitted", zap.String("mode", string(mode)), zap.Int("cases", len(tokens)))

	raw, err := e.client.PollBatch(ctx, tokens, e.cfg.MaxWait, e.cfg.PollInterval)
	if err != nil {
		e.log.Warn("evaluation aborted", zap.String("mode", string(mode)), zap.Int("language", req.LanguageID), zap.Error(err))
		return nil, err
	}
	if len(raw) != len(req.TestCases) {
		return nil, fmt.Errorf("got %d results for %d test cases: %w", len(raw), len(req.TestCases), common.ErrServiceUnavailable)
	}

	res := &Result{Verdict: model.VerdictAccepted, Cases: make([]CaseResult, len(raw))}
	for i, r := range raw {
		c := judgeCase(i+1, req.TestCases[i], r)
		if !c.Passed {
			res.Verdict = model.VerdictWrongAnswer
		}
		res.Cases[i] = c
	}

	metrics.EvaluationsTotal.WithLabelValues(string(mode), res.Verdict).Inc()
	metrics.EvaluationDuration.WithLabelValues(string(mode)).Observe(time.Since(start).Seconds())
	e.log.Info("evaluation finished",
		zap.String("mode", string(mode)),
		zap.String("language", language.ResolveLanguageName(req.LanguageID)),
		zap.String("verdict", res.Verdict),
		zap.Duration("took", time.Since(start)),
	)
	return res, nil
}

func judgeCase(index int, tc model.TestCase, r judge0.Result) CaseResult {
	c := CaseResult{
		Index:             index,
		Stdin:             tc.Input,
		ActualOutput:      r.Stdout,
		ExpectedOutput:    tc.ExpectedOutput,
		Stderr:            r.Stderr,
		CompileOutput:     r.CompileOutput,
		StatusID:          r.Status.ID,
		StatusDescription: r.Status.Description,
	}
	if r.Memory != nil {
		m := fmt.Sprintf("%d KB", *r.Memory)
		c.Memory = &m
	}
	if r.Time != nil {
		t := *r.Time + " s"
		c.Time = &t
	}

	if r.Status.ID != judge0.StatusAccepted {
		c.Diagnostic = diagnostic(r)
		return c
	}
	actual := ""
	if r.Stdout != nil {
		actual = *r.Stdout
	}
	c.Passed = OutputsMatch(actual, tc.ExpectedOutput)
	return c
}

// OutputsMatch compares outputs ignoring surrounding whitespace only.
func OutputsMatch(actual, expected string) bool {
	return strings.TrimSpace(actual) == strings.TrimSpace(expected)
}

// diagnostic picks the most specific explanation of a failed run.
func diagnostic(r judge0.Result) *string {
	for _, s := range []*string{r.CompileOutput, r.Stderr, r.Message} {
		if s != nil && strings.TrimSpace(*s) != "" {
			return s
		}
	}
	d := r.Status.Description
	return &d
}
