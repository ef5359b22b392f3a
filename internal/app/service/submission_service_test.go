package service

import (
	"encoding/json"
	"testing"
	"time"

	"bitscode/internal/app/evaluator"
	"bitscode/internal/common"
	"bitscode/internal/domain/language"
	"bitscode/internal/domain/model"
	"bitscode/internal/platform/cache"
	"bitscode/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newSubmissionService(t *testing.T, eval *scriptedEvaluator, locker *cache.Locker) (*SubmissionService, *testutil.Store) {
	t.Helper()
	store := testutil.NewStore()
	store.AddProblem(model.Problem{ID: "p1", Slug: "double-it", TestCases: doubleCases()})
	svc := NewSubmissionService(store.Submissions(), store.Problems(), store, eval, locker, time.Minute, zaptest.NewLogger(t))
	return svc, store
}

func executeRequest() ExecuteRequest {
	return ExecuteRequest{
		SourceCode:     "print(int(input())*2)",
		LanguageID:     LanguageRef{ID: language.Python, Raw: "71"},
		Stdin:          []*string{str("1"), str("5")},
		ExpectedOutput: []*string{str("2"), str("10")},
		ProblemID:      "p1",
	}
}

func TestExecuteAccepted(t *testing.T) {
	eval := &scriptedEvaluator{reply: passAll}
	svc, store := newSubmissionService(t, eval, nil)

	sub, err := svc.Execute(t.Context(), alice, executeRequest())
	require.NoError(t, err)
	assert.Equal(t, model.VerdictAccepted, sub.Status)
	assert.Equal(t, "Python", sub.Language)
	assert.Equal(t, "1\n5", sub.Stdin)
	require.Len(t, sub.TestCases, 2)
	assert.Equal(t, 1, sub.TestCases[0].TestCase)
	assert.Equal(t, sub.ID, sub.TestCases[1].SubmissionID)
	assert.Nil(t, sub.Stderr)
	assert.Nil(t, sub.CompileOutput)

	var stdout []string
	require.NoError(t, json.Unmarshal([]byte(*sub.Stdout), &stdout))
	assert.Equal(t, []string{"2", "10"}, stdout)

	_, subs, results, solved := store.Counts()
	assert.Equal(t, 1, subs)
	assert.Equal(t, 2, results)
	assert.Equal(t, 1, solved)
	assert.True(t, store.SolvedBy(alice.UserID, "p1"))

	require.Len(t, eval.calls(), 1)
	assert.Equal(t, evaluator.ModeSubmission, eval.calls()[0].Mode)
}

func TestExecuteAcceptedTwiceMarksSolvedOnce(t *testing.T) {
	svc, store := newSubmissionService(t, &scriptedEvaluator{reply: passAll}, nil)

	for range 2 {
		_, err := svc.Execute(t.Context(), alice, executeRequest())
		require.NoError(t, err)
	}
	_, subs, _, solved := store.Counts()
	assert.Equal(t, 2, subs)
	assert.Equal(t, 1, solved)
}

func TestExecuteWrongAnswer(t *testing.T) {
	eval := &scriptedEvaluator{reply: func(req evaluator.Request) (*evaluator.Result, error) {
		return outcome(req, 2, "11"), nil
	}}
	svc, store := newSubmissionService(t, eval, nil)

	sub, err := svc.Execute(t.Context(), alice, executeRequest())
	require.NoError(t, err)
	assert.Equal(t, model.VerdictWrongAnswer, sub.Status)
	assert.True(t, sub.TestCases[0].Passed)
	assert.False(t, sub.TestCases[1].Passed)

	_, subs, results, solved := store.Counts()
	assert.Equal(t, 1, subs)
	assert.Equal(t, 2, results)
	assert.Zero(t, solved)
}

func TestExecuteKeepsStderrColumns(t *testing.T) {
	eval := &scriptedEvaluator{reply: func(req evaluator.Request) (*evaluator.Result, error) {
		res := outcome(req, 1, "")
		res.Cases[0].Stderr = str("Traceback")
		return res, nil
	}}
	svc, _ := newSubmissionService(t, eval, nil)

	sub, err := svc.Execute(t.Context(), alice, executeRequest())
	require.NoError(t, err)
	require.NotNil(t, sub.Stderr)

	var stderr []*string
	require.NoError(t, json.Unmarshal([]byte(*sub.Stderr), &stderr))
	require.Len(t, stderr, 2)
	assert.Equal(t, "Traceback", *stderr[0])
	assert.Nil(t, stderr[1])
}

func TestExecuteTimeoutStoresNothing(t *testing.T) {
	eval := &scriptedEvaluator{reply: func(evaluator.Request) (*evaluator.Result, error) {
		return nil, common.ErrEvaluationTimeout
	}}
	svc, store := newSubmissionService(t, eval, nil)

	_, err := svc.Execute(t.Context(), alice, executeRequest())
	assert.ErrorIs(t, err, common.ErrEvaluationTimeout)

	_, subs, results, solved := store.Counts()
	assert.Zero(t, subs+results+solved)
}

func TestExecuteFailedCaseRowsRollBack(t *testing.T) {
	svc, store := newSubmissionService(t, &scriptedEvaluator{reply: passAll}, nil)
	store.FailCaseResults = true

	_, err := svc.Execute(t.Context(), alice, executeRequest())
	assert.ErrorIs(t, err, common.ErrPersistence)

	_, subs, results, solved := store.Counts()
	assert.Zero(t, subs+results+solved)
}

func TestExecuteValidation(t *testing.T) {
	cases := map[string]struct {
		mutate func(r *ExecuteRequest)
		want   error
	}{
		"empty stdin":       {func(r *ExecuteRequest) { r.Stdin, r.ExpectedOutput = nil, nil }, common.ErrValidation},
		"length mismatch":   {func(r *ExecuteRequest) { r.ExpectedOutput = r.ExpectedOutput[:1] }, common.ErrValidation},
		"null entry":        {func(r *ExecuteRequest) { r.Stdin[0] = nil }, common.ErrValidation},
		"missing source":    {func(r *ExecuteRequest) { r.SourceCode = "" }, common.ErrValidation},
		"missing problem":   {func(r *ExecuteRequest) { r.ProblemID = "" }, common.ErrValidation},
		"unknown language":  {func(r *ExecuteRequest) { r.LanguageID = LanguageRef{ID: 9999, Raw: "9999"} }, common.ErrUnsupportedLanguage},
		"unknown problemId": {func(r *ExecuteRequest) { r.ProblemID = "nope" }, common.ErrNotFound},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			eval := &scriptedEvaluator{reply: passAll}
			svc, store := newSubmissionService(t, eval, nil)
			req := executeRequest()
			tc.mutate(&req)

			_, err := svc.Execute(t.Context(), alice, req)
			assert.ErrorIs(t, err, tc.want)
			assert.Empty(t, eval.calls())
			_, subs, _, _ := store.Counts()
			assert.Zero(t, subs)
		})
	}
}

func TestExecuteRejectsConcurrentRunForSameProblem(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	locker := cache.NewLocker(rdb)

	svc, store := newSubmissionService(t, &scriptedEvaluator{reply: passAll}, locker)

	held, ok, err := locker.TryAcquire(t.Context(), lockKey(alice.UserID, "p1"), time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = svc.Execute(t.Context(), alice, executeRequest())
	assert.ErrorIs(t, err, common.ErrConflict)

	_, err = svc.Execute(t.Context(), bob, executeRequest())
	require.NoError(t, err, "other users are not blocked")

	_, err = held.Release(t.Context())
	require.NoError(t, err)
	_, err = svc.Execute(t.Context(), alice, executeRequest())
	require.NoError(t, err)

	assert.False(t, mr.Exists(lockKey(alice.UserID, "p1")), "lock is released after a run")
	_, subs, _, _ := store.Counts()
	assert.Equal(t, 2, subs)
}

func TestLanguageRefDecoding(t *testing.T) {
	cases := []struct {
		in string
		id int
	}{
		{`71`, language.Python},
		{`"71"`, language.Python},
		{`"python"`, language.Python},
		{`"C++"`, language.Cpp},
		{`"klingon"`, 0},
	}
	for _, tc := range cases {
		var ref LanguageRef
		require.NoError(t, json.Unmarshal([]byte(tc.in), &ref), tc.in)
		assert.Equal(t, tc.id, ref.ID, tc.in)
	}

	var ref LanguageRef
	assert.Error(t, json.Unmarshal([]byte(`{}`), &ref))
}

func TestSubmissionReadPaths(t *testing.T) {
	svc, _ := newSubmissionService(t, &scriptedEvaluator{reply: passAll}, nil)
	_, err := svc.Execute(t.Context(), alice, executeRequest())
	require.NoError(t, err)
	_, err = svc.Execute(t.Context(), bob, executeRequest())
	require.NoError(t, err)

	mine, err := svc.ListMine(t.Context(), alice)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, alice.UserID, mine[0].UserID)

	forProblem, err := svc.ListMineForProblem(t.Context(), alice, "p1")
	require.NoError(t, err)
	require.Len(t, forProblem, 1)
	assert.Len(t, forProblem[0].TestCases, 2)

	n, err := svc.CountForProblem(t.Context(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = svc.ListMine(t.Context(), nil)
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}
