package evaluator

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"bitscode/internal/common"
	"bitscode/internal/domain/language"
	"bitscode/internal/domain/model"
	"bitscode/internal/platform/judge0"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeJudge runs every item through run and reports the outcome as terminal.
type fakeJudge struct {
	run      func(item judge0.Submission) judge0.Result
	batches  [][]judge0.Submission
	pollErr  error
	pending  map[string]judge0.Submission
	maxWaits []time.Duration
}

func (f *fakeJudge) SubmitBatch(ctx context.Context, items []judge0.Submission) ([]string, error) {
	f.batches = append(f.batches, items)
	if f.pending == nil {
		f.pending = map[string]judge0.Submission{}
	}
	tokens := make([]string, len(items))
	for i, it := range items {
		tokens[i] = fmt.Sprintf("tok-%d-%d", len(f.batches), i)
		f.pending[tokens[i]] = it
	}
	return tokens, nil
}

func (f *fakeJudge) PollBatch(ctx context.Context, tokens []string, maxWait, interval time.Duration) ([]judge0.Result, error) {
	f.maxWaits = append(f.maxWaits, maxWait)
	if f.pollErr != nil {
		return nil, f.pollErr
	}
	out := make([]judge0.Result, len(tokens))
	for i, tok := range tokens {
		out[i] = f.run(f.pending[tok])
		out[i].Token = tok
	}
	return out, nil
}

func str(s string) *string { return &s }

// doubler behaves like a program printing twice its integer input.
func doubler(item judge0.Submission) judge0.Result {
	n, _ := strconv.Atoi(strings.TrimSpace(item.Stdin))
	mem := 3100
	return judge0.Result{
		Stdout: str(strconv.Itoa(2*n) + "\n"),
		Status: judge0.Status{ID: judge0.StatusAccepted, Description: "Accepted"},
		Memory: &mem,
		Time:   str("0.02"),
	}
}

func newTestEvaluator(t *testing.T, judge *fakeJudge) *Evaluator {
	return New(judge, Config{MaxWait: 3 * time.Second, PollInterval: 10 * time.Millisecond}, zaptest.NewLogger(t))
}

func TestEvaluateAccepted(t *testing.T) {
	judge := &fakeJudge{run: doubler}
	res, err := newTestEvaluator(t, judge).Evaluate(context.Background(), Request{
		SourceCode: "print(2*int(input()))",
		LanguageID: language.Python,
		TestCases:  []model.TestCase{{Input: "5", ExpectedOutput: "10"}, {Input: "10", ExpectedOutput: "20"}},
	})
	require.NoError(t, err)
	assert.Equal(t, model.VerdictAccepted, res.Verdict)
	assert.True(t, res.Accepted())
	assert.Nil(t, res.FirstFailure())

	require.Len(t, judge.batches, 1, "all cases go in one batch")
	assert.Len(t, judge.batches[0], 2)
	assert.Equal(t, []time.Duration{3 * time.Second}, judge.maxWaits)

	require.Len(t, res.Cases, 2)
	assert.Equal(t, 1, res.Cases[0].Index)
	assert.Equal(t, "5", res.Cases[0].Stdin)
	assert.Equal(t, "3100 KB", *res.Cases[0].Memory)
	assert.Equal(t, "0.02 s", *res.Cases[0].Time)
	assert.Nil(t, res.Cases[0].Diagnostic)
}

func TestEvaluateWrongAnswerKeepsOrder(t *testing.T) {
	res, err := newTestEvaluator(t, &fakeJudge{run: doubler}).Evaluate(context.Background(), Request{
		SourceCode: "print(2*int(input()))",
		LanguageID: language.Python,
		TestCases:  []model.TestCase{{Input: "5", ExpectedOutput: "10"}, {Input: "10", ExpectedOutput: "21"}},
	})
	require.NoError(t, err)
	assert.Equal(t, model.VerdictWrongAnswer, res.Verdict)
	assert.True(t, res.Cases[0].Passed)
	assert.False(t, res.Cases[1].Passed)
	assert.Equal(t, "21", res.Cases[1].ExpectedOutput)
	assert.Equal(t, "20\n", *res.Cases[1].ActualOutput)
	assert.Equal(t, 2, res.FirstFailure().Index)
}

func TestEvaluateCompileErrorFailsEveryCase(t *testing.T) {
	judge := &fakeJudge{run: func(judge0.Submission) judge0.Result {
		return judge0.Result{
			Status:        judge0.Status{ID: judge0.StatusCompileErr, Description: "Compilation Error"},
			CompileOutput: str("main.cpp:1: error: expected ';'"),
		}
	}}
	res, err := newTestEvaluator(t, judge).Evaluate(context.Background(), Request{
		SourceCode: "int main() { return 0 }",
		LanguageID: language.Cpp,
		TestCases:  []model.TestCase{{Input: "", ExpectedOutput: ""}},
	})
	require.NoError(t, err)
	assert.Equal(t, model.VerdictWrongAnswer, res.Verdict)
	c := res.Cases[0]
	assert.False(t, c.Passed, "empty output must not pass on a failed status")
	assert.Equal(t, judge0.StatusCompileErr, c.StatusID)
	assert.Equal(t, "main.cpp:1: error: expected ';'", *c.Diagnostic)
}

func TestEvaluateDiagnosticFallsBackToStatus(t *testing.T) {
	judge := &fakeJudge{run: func(judge0.Submission) judge0.Result {
		return judge0.Result{Status: judge0.Status{ID: judge0.StatusTLE, Description: "Time Limit Exceeded"}, Stderr: str("  ")}
	}}
	res, err := newTestEvaluator(t, judge).Evaluate(context.Background(), Request{
		SourceCode: "while True: pass", LanguageID: language.Python,
		TestCases: []model.TestCase{{Input: "1", ExpectedOutput: "1"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Time Limit Exceeded", *res.Cases[0].Diagnostic)
}

func TestEvaluateRejectsBadInput(t *testing.T) {
	e := newTestEvaluator(t, &fakeJudge{run: doubler})
	ctx := context.Background()

	_, err := e.Evaluate(ctx, Request{SourceCode: "x", LanguageID: language.Python})
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = e.Evaluate(ctx, Request{SourceCode: "  ", LanguageID: language.Python, TestCases: []model.TestCase{{Input: "1"}}})
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = e.Evaluate(ctx, Request{SourceCode: "x", LanguageID: 4242, TestCases: []model.TestCase{{Input: "1"}}})
	assert.ErrorIs(t, err, common.ErrUnsupportedLanguage)
	assert.Equal(t, common.KindUnsupportedLanguage, common.ErrorKind(err))
}

func TestEvaluateTimeoutHasNoPartialVerdict(t *testing.T) {
	judge := &fakeJudge{run: doubler, pollErr: fmt.Errorf("waited: %w", common.ErrEvaluationTimeout)}
	res, err := newTestEvaluator(t, judge).Evaluate(context.Background(), Request{
		SourceCode: "x", LanguageID: language.Python, TestCases: []model.TestCase{{Input: "1", ExpectedOutput: "2"}},
	})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, common.ErrEvaluationTimeout)
}

func TestOutputsMatch(t *testing.T) {
	assert.True(t, OutputsMatch("8\n", "8"))
	assert.True(t, OutputsMatch("  8 \r\n", "8"))
	assert.False(t, OutputsMatch("8 0", "80"))
	assert.False(t, OutputsMatch("8\n0", "8 0"))
}
