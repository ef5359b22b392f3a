// Package testutil provides in-memory implementations of the repositories
// for service and router tests.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"bitscode/internal/common"
	"bitscode/internal/domain/model"
	"bitscode/internal/domain/repository"

	"github.com/google/uuid"
)

// Store is an in-memory database. WithinTx restores the previous state when
// the callback fails, mirroring a rollback.
type Store struct {
	mu sync.Mutex
	state

	// FailCaseResults makes CreateTestCaseResults fail.
	FailCaseResults bool
}

type state struct {
	users       map[string]model.User
	problems    map[string]model.Problem
	submissions []model.Submission
	results     []model.TestCaseResult
	solved      []model.ProblemSolved
	playlists   map[string]model.Playlist
	links       []model.ProblemInPlaylist
	revoked     map[string]time.Time
}

func NewStore() *Store {
	return &Store{state: state{
		users:     map[string]model.User{},
		problems:  map[string]model.Problem{},
		playlists: map[string]model.Playlist{},
		revoked:   map[string]time.Time{},
	}}
}

func (s state) clone() state {
	c := state{
		users:       make(map[string]model.User, len(s.users)),
		problems:    make(map[string]model.Problem, len(s.problems)),
		submissions: append([]model.Submission(nil), s.submissions...),
		results:     append([]model.TestCaseResult(nil), s.results...),
		solved:      append([]model.ProblemSolved(nil), s.solved...),
		playlists:   make(map[string]model.Playlist, len(s.playlists)),
		links:       append([]model.ProblemInPlaylist(nil), s.links...),
		revoked:     make(map[string]time.Time, len(s.revoked)),
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.problems {
		c.problems[k] = v
	}
	for k, v := range s.playlists {
		c.playlists[k] = v
	}
	for k, v := range s.revoked {
		c.revoked[k] = v
	}
	return c
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	s.mu.Lock()
	snapshot := s.state.clone()
	s.mu.Unlock()

	if err := fn(nil); err != nil {
		s.mu.Lock()
		s.state = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// Counts reports how many rows each table holds.
func (s *Store) Counts() (problems, submissions, results, solved int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.problems), len(s.submissions), len(s.results), len(s.solved)
}

func (s *Store) SolvedBy(userID, problemID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ps := range s.solved {
		if ps.UserID == userID && ps.ProblemID == problemID {
			return true
		}
	}
	return false
}

// AddUser stores u directly, bypassing registration.
func (s *Store) AddUser(u model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

// AddProblem stores p directly, bypassing validation.
func (s *Store) AddProblem(p model.Problem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.problems[p.ID] = p
}

func (s *Store) Users() repository.UserRepository             { return userRepo{s} }
func (s *Store) Problems() repository.ProblemRepository       { return problemRepo{s} }
func (s *Store) Submissions() repository.SubmissionRepository { return submissionRepo{s} }
func (s *Store) Playlists() repository.PlaylistRepository     { return playlistRepo{s} }
func (s *Store) Sessions() repository.SessionRepository       { return sessionRepo{s} }

type userRepo struct{ s *Store }

func (r userRepo) Create(ctx context.Context, u *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if existing.Email == u.Email {
			return fmt.Errorf("users_email_key: %w", common.ErrConflict)
		}
	}
	u.CreatedAt, u.UpdatedAt = time.Now(), time.Now()
	r.s.users[u.ID] = *u
	return nil
}

func (r userRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r userRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &u, nil
}

type problemRepo struct{ s *Store }

func (r problemRepo) Create(ctx context.Context, p *model.Problem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.problems {
		if existing.Slug == p.Slug {
			return fmt.Errorf("problems_slug_key: %w", common.ErrConflict)
		}
	}
	p.CreatedAt, p.UpdatedAt = time.Now(), time.Now()
	r.s.problems[p.ID] = *p
	return nil
}

func (r problemRepo) Update(ctx context.Context, p *model.Problem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.problems[p.ID]; !ok {
		return common.ErrNotFound
	}
	p.UpdatedAt = time.Now()
	r.s.problems[p.ID] = *p
	return nil
}

func (r problemRepo) FindByID(ctx context.Context, id string) (*model.Problem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.problems[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &p, nil
}

func (r problemRepo) List(ctx context.Context, f model.ProblemFilter, userID string) ([]model.Problem, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var all []model.Problem
	for _, p := range r.s.problems {
		if f.Difficulty != "" && p.Difficulty != f.Difficulty {
			continue
		}
		if f.Tag != "" && !contains(p.Tags, f.Tag) {
			continue
		}
		p.Solved = r.s.solvedLocked(userID, p.ID)
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Slug < all[j].Slug })
	total := len(all)
	start := (f.Page - 1) * f.PageSize
	if start > total {
		start = total
	}
	end := start + f.PageSize
	if end > total {
		end = total
	}
	return append([]model.Problem{}, all[start:end]...), total, nil
}

func (r problemRepo) ListSolvedByUser(ctx context.Context, userID string) ([]model.Problem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.Problem{}
	for _, ps := range r.s.solved {
		if ps.UserID == userID {
			if p, ok := r.s.problems[ps.ProblemID]; ok {
				p.Solved = true
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func (r problemRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.problems[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.s.problems, id)
	return nil
}

func (s *Store) solvedLocked(userID, problemID string) bool {
	for _, ps := range s.solved {
		if ps.UserID == userID && ps.ProblemID == problemID {
			return true
		}
	}
	return false
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

type submissionRepo struct{ s *Store }

func (r submissionRepo) Create(ctx context.Context, tx *sql.Tx, sub *model.Submission) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.problems[sub.ProblemID]; !ok {
		return fmt.Errorf("submissions_problem_id_fkey: %w", common.ErrNotFound)
	}
	sub.CreatedAt, sub.UpdatedAt = time.Now(), time.Now()
	stored := *sub
	stored.TestCases = nil
	r.s.submissions = append(r.s.submissions, stored)
	return nil
}

func (r submissionRepo) CreateTestCaseResults(ctx context.Context, tx *sql.Tx, results []model.TestCaseResult) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FailCaseResults {
		return fmt.Errorf("insert test_case_results: %w", common.ErrPersistence)
	}
	for i := range results {
		results[i].CreatedAt = time.Now()
		r.s.results = append(r.s.results, results[i])
	}
	return nil
}

func (r submissionRepo) MarkSolved(ctx context.Context, tx *sql.Tx, userID, problemID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.solvedLocked(userID, problemID) {
		return nil
	}
	r.s.solved = append(r.s.solved, model.ProblemSolved{
		ID: uuid.NewString(), UserID: userID, ProblemID: problemID, CreatedAt: time.Now(),
	})
	return nil
}

func (r submissionRepo) ListByUser(ctx context.Context, userID string) ([]model.Submission, error) {
	return r.filter(func(sub model.Submission) bool { return sub.UserID == userID }, false), nil
}

func (r submissionRepo) ListByUserAndProblem(ctx context.Context, userID, problemID string) ([]model.Submission, error) {
	return r.filter(func(sub model.Submission) bool {
		return sub.UserID == userID && sub.ProblemID == problemID
	}, true), nil
}

func (r submissionRepo) CountByProblem(ctx context.Context, problemID string) (int, error) {
	return len(r.filter(func(sub model.Submission) bool { return sub.ProblemID == problemID }, false)), nil
}

func (r submissionRepo) filter(keep func(model.Submission) bool, withResults bool) []model.Submission {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.Submission{}
	for i := len(r.s.submissions) - 1; i >= 0; i-- {
		sub := r.s.submissions[i]
		if !keep(sub) {
			continue
		}
		if withResults {
			for _, tc := range r.s.results {
				if tc.SubmissionID == sub.ID {
					sub.TestCases = append(sub.TestCases, tc)
				}
			}
		}
		out = append(out, sub)
	}
	return out
}

type playlistRepo struct{ s *Store }

func (r playlistRepo) Create(ctx context.Context, p *model.Playlist) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.nameTakenLocked(p) {
		return fmt.Errorf("playlists_name_user_id_key: %w", common.ErrConflict)
	}
	p.CreatedAt, p.UpdatedAt = time.Now(), time.Now()
	stored := *p
	stored.Problems = nil
	r.s.playlists[p.ID] = stored
	return nil
}

func (r playlistRepo) Update(ctx context.Context, p *model.Playlist) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.playlists[p.ID]; !ok {
		return common.ErrNotFound
	}
	if r.s.nameTakenLocked(p) {
		return fmt.Errorf("playlists_name_user_id_key: %w", common.ErrConflict)
	}
	p.UpdatedAt = time.Now()
	stored := *p
	stored.Problems = nil
	r.s.playlists[p.ID] = stored
	return nil
}

func (s *Store) nameTakenLocked(p *model.Playlist) bool {
	for _, existing := range s.playlists {
		if existing.ID != p.ID && existing.UserID == p.UserID && existing.Name == p.Name {
			return true
		}
	}
	return false
}

func (r playlistRepo) FindByID(ctx context.Context, id string) (*model.Playlist, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.playlists[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &p, nil
}

func (r playlistRepo) ListByUser(ctx context.Context, userID string) ([]model.Playlist, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.Playlist{}
	for _, p := range r.s.playlists {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r playlistRepo) ListProblems(ctx context.Context, playlistID string) ([]model.Problem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.Problem{}
	for _, l := range r.s.links {
		if l.PlaylistID == playlistID {
			out = append(out, r.s.problems[l.ProblemID])
		}
	}
	return out, nil
}

func (r playlistRepo) AddProblems(ctx context.Context, tx *sql.Tx, playlistID string, problemIDs []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range problemIDs {
		if _, ok := r.s.problems[id]; !ok {
			return fmt.Errorf("problems_in_playlist_problem_id_fkey: %w", common.ErrNotFound)
		}
		dup := false
		for _, l := range r.s.links {
			if l.PlaylistID == playlistID && l.ProblemID == id {
				dup = true
				break
			}
		}
		if !dup {
			r.s.links = append(r.s.links, model.ProblemInPlaylist{
				ID: uuid.NewString(), PlaylistID: playlistID, ProblemID: id, CreatedAt: time.Now(),
			})
		}
	}
	return nil
}

func (r playlistRepo) RemoveProblems(ctx context.Context, tx *sql.Tx, playlistID string, problemIDs []string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kept := r.s.links[:0:0]
	removed := 0
	for _, l := range r.s.links {
		if l.PlaylistID == playlistID && contains(problemIDs, l.ProblemID) {
			removed++
			continue
		}
		kept = append(kept, l)
	}
	r.s.links = kept
	return removed, nil
}

func (r playlistRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.playlists[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.s.playlists, id)
	return nil
}

type sessionRepo struct{ s *Store }

func (r sessionRepo) Revoke(ctx context.Context, sessionID string, ttl time.Duration) error {
	if sessionID == "" || ttl <= 0 {
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.revoked[sessionID] = time.Now().Add(ttl)
	return nil
}

func (r sessionRepo) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	until, ok := r.s.revoked[sessionID]
	return ok && time.Now().Before(until), nil
}

var _ repository.Transactor = (*Store)(nil)
