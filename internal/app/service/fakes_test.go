package service

import (
	"context"
	"sync"

	"bitscode/internal/app/evaluator"
	"bitscode/internal/domain/model"
)

// scriptedEvaluator answers each request with reply and records what it saw.
type scriptedEvaluator struct {
	mu       sync.Mutex
	requests []evaluator.Request
	reply    func(req evaluator.Request) (*evaluator.Result, error)
}

func (f *scriptedEvaluator) Evaluate(ctx context.Context, req evaluator.Request) (*evaluator.Result, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return f.reply(req)
}

func (f *scriptedEvaluator) calls() []evaluator.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]evaluator.Request(nil), f.requests...)
}

func str(s string) *string { return &s }

// passAll reports every case as accepted with the expected output.
func passAll(req evaluator.Request) (*evaluator.Result, error) {
	return outcome(req, -1, ""), nil
}

// outcome builds a result where case failAt (1-based, -1 for none) fails
// with a wrong answer of got.
func outcome(req evaluator.Request, failAt int, got string) *evaluator.Result {
	res := &evaluator.Result{Verdict: model.VerdictAccepted}
	for i, tc := range req.TestCases {
		c := evaluator.CaseResult{
			Index:             i + 1,
			Passed:            true,
			Stdin:             tc.Input,
			ActualOutput:      str(tc.ExpectedOutput),
			ExpectedOutput:    tc.ExpectedOutput,
			StatusID:          3,
			StatusDescription: "Accepted",
			Memory:            str("1024 KB"),
			Time:              str("0.01 s"),
		}
		if i+1 == failAt {
			c.Passed = false
			c.ActualOutput = str(got)
			res.Verdict = model.VerdictWrongAnswer
		}
		res.Cases = append(res.Cases, c)
	}
	return res
}

var (
	admin = &model.Identity{UserID: "admin-1", Role: model.RoleAdmin}
	alice = &model.Identity{UserID: "user-1", Role: model.RoleUser}
	bob   = &model.Identity{UserID: "user-2", Role: model.RoleUser}
)

func doubleCases() []model.TestCase {
	return []model.TestCase{
		{Input: "1", ExpectedOutput: "2"},
		{Input: "5", ExpectedOutput: "10"},
	}
}
