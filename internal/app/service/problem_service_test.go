package service

import (
	"testing"

	"bitscode/internal/app/evaluator"
	"bitscode/internal/common"
	"bitscode/internal/domain/model"
	"bitscode/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newProblemService(t *testing.T, eval *scriptedEvaluator) (*ProblemService, *testutil.Store) {
	t.Helper()
	store := testutil.NewStore()
	log := zaptest.NewLogger(t)
	return NewProblemService(store.Problems(), NewReferenceValidator(eval, false, log), log), store
}

func twoSumRequest() CreateProblemRequest {
	return CreateProblemRequest{
		Title:       "Double It",
		Description: "Print twice the input.",
		Difficulty:  "easy",
		Tags:        []string{"math"},
		TestCases: []TestCaseInput{
			{Input: str("1"), Output: str("2")},
			{Input: str("5"), Output: str("10")},
		},
		CodeSnippets:       map[string]string{"PYTHON": "# write here"},
		ReferenceSolutions: map[string]string{"PYTHON": "print(int(input())*2)"},
	}
}

func TestCreateProblem(t *testing.T) {
	eval := &scriptedEvaluator{reply: passAll}
	svc, store := newProblemService(t, eval)

	p, err := svc.Create(t.Context(), admin, twoSumRequest())
	require.NoError(t, err)
	assert.Equal(t, "double-it", p.Slug)
	assert.Equal(t, model.DifficultyEasy, p.Difficulty)
	assert.Equal(t, admin.UserID, p.UserID)
	assert.Len(t, p.TestCases, 2)

	n, _, _, _ := store.Counts()
	assert.Equal(t, 1, n)
	require.Len(t, eval.calls(), 1)
	assert.Equal(t, "2", eval.calls()[0].TestCases[0].ExpectedOutput)
}

func TestCreateProblemRequiresAdmin(t *testing.T) {
	eval := &scriptedEvaluator{reply: passAll}
	svc, store := newProblemService(t, eval)

	_, err := svc.Create(t.Context(), alice, twoSumRequest())
	assert.ErrorIs(t, err, common.ErrForbidden)

	n, _, _, _ := store.Counts()
	assert.Zero(t, n)
	assert.Empty(t, eval.calls())
}

func TestCreateProblemRejectedReferenceStoresNothing(t *testing.T) {
	eval := &scriptedEvaluator{reply: func(req evaluator.Request) (*evaluator.Result, error) {
		return outcome(req, 1, "3"), nil
	}}
	svc, store := newProblemService(t, eval)

	_, err := svc.Create(t.Context(), admin, twoSumRequest())
	var refErr *common.ReferenceSolutionError
	require.ErrorAs(t, err, &refErr)
	assert.Equal(t, 1, refErr.TestCaseIndex)

	n, _, _, _ := store.Counts()
	assert.Zero(t, n)
}

func TestCreateProblemValidation(t *testing.T) {
	cases := map[string]func(r *CreateProblemRequest){
		"missing title":       func(r *CreateProblemRequest) { r.Title = " " },
		"bad difficulty":      func(r *CreateProblemRequest) { r.Difficulty = "impossible" },
		"no test cases":       func(r *CreateProblemRequest) { r.TestCases = nil },
		"case without output": func(r *CreateProblemRequest) { r.TestCases[1].Output = nil },
		"no references":       func(r *CreateProblemRequest) { r.ReferenceSolutions = nil },
		"punctuation title":   func(r *CreateProblemRequest) { r.Title = "!!!" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			svc, store := newProblemService(t, &scriptedEvaluator{reply: passAll})
			req := twoSumRequest()
			mutate(&req)

			_, err := svc.Create(t.Context(), admin, req)
			assert.ErrorIs(t, err, common.ErrValidation)
			n, _, _, _ := store.Counts()
			assert.Zero(t, n)
		})
	}
}

func TestCreateProblemDuplicateTitle(t *testing.T) {
	svc, _ := newProblemService(t, &scriptedEvaluator{reply: passAll})
	_, err := svc.Create(t.Context(), admin, twoSumRequest())
	require.NoError(t, err)

	_, err = svc.Create(t.Context(), admin, twoSumRequest())
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestUpdateProblem(t *testing.T) {
	eval := &scriptedEvaluator{reply: passAll}
	svc, _ := newProblemService(t, eval)
	p, err := svc.Create(t.Context(), admin, twoSumRequest())
	require.NoError(t, err)

	t.Run("metadata only skips validation", func(t *testing.T) {
		before := len(eval.calls())
		hard := model.ProblemDifficulty("HARD")
		updated, err := svc.Update(t.Context(), admin, p.ID, UpdateProblemRequest{
			Title:      str("Triple It"),
			Difficulty: &hard,
		})
		require.NoError(t, err)
		assert.Equal(t, "triple-it", updated.Slug)
		assert.Equal(t, model.DifficultyHard, updated.Difficulty)
		assert.Len(t, updated.TestCases, 2)
		assert.Len(t, eval.calls(), before)
	})

	t.Run("new test cases are revalidated", func(t *testing.T) {
		before := len(eval.calls())
		cases := []TestCaseInput{{Input: str("3"), Output: str("6")}}
		updated, err := svc.Update(t.Context(), admin, p.ID, UpdateProblemRequest{TestCases: &cases})
		require.NoError(t, err)
		assert.Len(t, updated.TestCases, 1)
		require.Len(t, eval.calls(), before+1)
		assert.Equal(t, "3", eval.calls()[before].TestCases[0].Input)
	})

	t.Run("failing revalidation keeps the stored problem", func(t *testing.T) {
		eval.reply = func(req evaluator.Request) (*evaluator.Result, error) { return outcome(req, 1, "0"), nil }
		t.Cleanup(func() { eval.reply = passAll })

		refs := map[string]string{"PYTHON": "print(0)"}
		_, err := svc.Update(t.Context(), admin, p.ID, UpdateProblemRequest{ReferenceSolutions: &refs})
		assert.ErrorIs(t, err, common.ErrReferenceSolutionFailed)

		stored, err := svc.Get(t.Context(), admin, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "print(int(input())*2)", stored.ReferenceSolutions["PYTHON"])
	})

	t.Run("non-admin", func(t *testing.T) {
		_, err := svc.Update(t.Context(), alice, p.ID, UpdateProblemRequest{Title: str("x")})
		assert.ErrorIs(t, err, common.ErrForbidden)
	})

	t.Run("unknown problem", func(t *testing.T) {
		_, err := svc.Update(t.Context(), admin, "missing", UpdateProblemRequest{Title: str("x")})
		assert.ErrorIs(t, err, common.ErrNotFound)
	})
}

func TestGetHidesReferenceSolutionsFromUsers(t *testing.T) {
	svc, _ := newProblemService(t, &scriptedEvaluator{reply: passAll})
	p, err := svc.Create(t.Context(), admin, twoSumRequest())
	require.NoError(t, err)

	asUser, err := svc.Get(t.Context(), alice, p.ID)
	require.NoError(t, err)
	assert.Nil(t, asUser.ReferenceSolutions)
	assert.Len(t, asUser.TestCases, 2)

	asAdmin, err := svc.Get(t.Context(), admin, p.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, asAdmin.ReferenceSolutions)
}

func TestListProblems(t *testing.T) {
	svc, store := newProblemService(t, &scriptedEvaluator{reply: passAll})
	for _, p := range []model.Problem{
		{ID: "p1", Slug: "a", Difficulty: model.DifficultyEasy, Tags: []string{"math"}, ReferenceSolutions: map[string]string{"PYTHON": "x"}},
		{ID: "p2", Slug: "b", Difficulty: model.DifficultyHard, Tags: []string{"graph"}},
		{ID: "p3", Slug: "c", Difficulty: model.DifficultyEasy, Tags: []string{"graph"}},
	} {
		store.AddProblem(p)
	}

	page, err := svc.List(t.Context(), alice, model.ProblemFilter{Difficulty: "easy"})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, defaultPageSize, page.PageSize)
	for _, p := range page.Problems {
		assert.Nil(t, p.ReferenceSolutions)
	}

	page, err = svc.List(t.Context(), alice, model.ProblemFilter{Tag: "graph", PageSize: 1, Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Problems, 1)
	assert.Equal(t, "p3", page.Problems[0].ID)

	_, err = svc.List(t.Context(), alice, model.ProblemFilter{Difficulty: "extreme"})
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = svc.List(t.Context(), nil, model.ProblemFilter{})
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestDeleteProblem(t *testing.T) {
	svc, store := newProblemService(t, &scriptedEvaluator{reply: passAll})
	store.AddProblem(model.Problem{ID: "p1", Slug: "a"})

	assert.ErrorIs(t, svc.Delete(t.Context(), alice, "p1"), common.ErrForbidden)
	require.NoError(t, svc.Delete(t.Context(), admin, "p1"))
	assert.ErrorIs(t, svc.Delete(t.Context(), admin, "p1"), common.ErrNotFound)
}
