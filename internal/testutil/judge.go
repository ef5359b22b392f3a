package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// Programs understood by the fake judge. Source code is matched exactly.
const (
	ProgramDouble = "print(int(input())*2)"
	ProgramTriple = "print(int(input())*3)"
	ProgramHang   = "while True: pass"
	ProgramBroken = "print(int(input())*2"
)

// FakeJudge serves the Judge0 batch API in plain-text mode.
type FakeJudge struct {
	*httptest.Server

	mu      sync.Mutex
	pending map[string]fakeItem
	batches int
}

type fakeItem struct {
	source string
	stdin  string
}

func NewFakeJudge(t *testing.T) *FakeJudge {
	t.Helper()
	f := &FakeJudge{pending: map[string]fakeItem{}}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /submissions/batch", f.submit)
	mux.HandleFunc("GET /submissions/batch", f.poll)
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

// Batches reports how many batches were submitted.
func (f *FakeJudge) Batches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.batches
}

func (f *FakeJudge) submit(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Submissions []struct {
			SourceCode string `json:"source_code"`
			Stdin      string `json:"stdin"`
		} `json:"submissions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.batches++
	out := make([]map[string]string, len(body.Submissions))
	for i, s := range body.Submissions {
		tok := fmt.Sprintf("b%d-%d", f.batches, i)
		f.pending[tok] = fakeItem{source: s.SourceCode, stdin: s.Stdin}
		out[i] = map[string]string{"token": tok}
	}
	f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(out)
}

func (f *FakeJudge) poll(w http.ResponseWriter, r *http.Request) {
	tokens := strings.Split(r.URL.Query().Get("tokens"), ",")
	out := make([]map[string]any, 0, len(tokens))
	f.mu.Lock()
	for _, tok := range tokens {
		item, ok := f.pending[tok]
		if !ok {
			continue
		}
		res := run(item)
		res["token"] = tok
		out = append(out, res)
	}
	f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"submissions": out})
}

func run(item fakeItem) map[string]any {
	status := func(id int, desc string) map[string]any {
		return map[string]any{"id": id, "description": desc}
	}
	n, _ := strconv.Atoi(strings.TrimSpace(item.stdin))
	switch item.source {
	case ProgramDouble:
		return map[string]any{"stdout": fmt.Sprintf("%d\n", 2*n), "status": status(3, "Accepted"), "memory": 3200, "time": "0.02"}
	case ProgramTriple:
		return map[string]any{"stdout": fmt.Sprintf("%d\n", 3*n), "status": status(3, "Accepted"), "memory": 3200, "time": "0.02"}
	case ProgramHang:
		return map[string]any{"status": status(2, "Processing")}
	case ProgramBroken:
		return map[string]any{
			"compile_output": "SyntaxError: '(' was never closed",
			"status":         status(6, "Compilation Error"),
		}
	}
	return map[string]any{"stderr": "unknown program", "status": status(11, "Runtime Error (NZEC)")}
}
