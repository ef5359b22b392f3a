package repository

import (
	"context"
	"database/sql"

	"bitscode/internal/domain/model"

	"github.com/google/uuid"
)

type SubmissionRepository interface {
	Create(ctx context.Context, tx *sql.Tx, sub *model.Submission) error
	// CreateTestCaseResults stores one row per case. Callers run it in the same
	// transaction as Create so a submission never exists without its cases.
	CreateTestCaseResults(ctx context.Context, tx *sql.Tx, results []model.TestCaseResult) error
	// MarkSolved records that userID solved problemID. Repeated calls are no-ops.
	MarkSolved(ctx context.Context, tx *sql.Tx, userID, problemID string) error

	ListByUser(ctx context.Context, userID string) ([]model.Submission, error)
	ListByUserAndProblem(ctx context.Context, userID, problemID string) ([]model.Submission, error)
	CountByProblem(ctx context.Context, problemID string) (int, error)
}

type pgSubmissionRepository struct {
	db *sql.DB
}

func NewPgSubmissionRepository(db *sql.DB) SubmissionRepository {
	return &pgSubmissionRepository{db: db}
}

const submissionColumns = `s.id, s.user_id, s.problem_id, s.source_code, s.language, s.stdin, s.stdout, s.stderr,
       s.compile_output, s.status, s.memory, s.time, s.created_at, s.updated_at`

func (r *pgSubmissionRepository) Create(ctx context.Context, tx *sql.Tx, s *model.Submission) error {
	query := `INSERT INTO submissions (id, user_id, problem_id, source_code, language, stdin, stdout, stderr,
	                                   compile_output, status, memory, time)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	          RETURNING created_at, updated_at`
	err := conn(r.db, tx).QueryRowContext(ctx, query,
		s.ID, s.UserID, s.ProblemID, s.SourceCode, s.Language, s.Stdin, s.Stdout, s.Stderr,
		s.CompileOutput, s.Status, s.Memory, s.Time,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return dbError("pgSubmissionRepository.Create", err)
	}
	return nil
}

func (r *pgSubmissionRepository) CreateTestCaseResults(ctx context.Context, tx *sql.Tx, results []model.TestCaseResult) error {
	if len(results) == 0 {
		return nil
	}
	q := conn(r.db, tx)
	query := `INSERT INTO test_case_results (id, submission_id, test_case, passed, stdout, expected, stderr,
	                                         compile_output, status_id, status, diagnostic, memory, time)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	          RETURNING created_at`
	for i := range results {
		tc := &results[i]
		err := q.QueryRowContext(ctx, query,
			tc.ID, tc.SubmissionID, tc.TestCase, tc.Passed, tc.Stdout, tc.Expected, tc.Stderr,
			tc.CompileOutput, tc.StatusID, tc.Status, tc.Diagnostic, tc.Memory, tc.Time,
		).Scan(&tc.CreatedAt)
		if err != nil {
			return dbError("pgSubmissionRepository.CreateTestCaseResults", err)
		}
	}
	return nil
}

func (r *pgSubmissionRepository) MarkSolved(ctx context.Context, tx *sql.Tx, userID, problemID string) error {
	query := `INSERT INTO problem_solved (id, user_id, problem_id)
	          VALUES ($1, $2, $3)
	          ON CONFLICT (user_id, problem_id) DO NOTHING`
	if _, err := conn(r.db, tx).ExecContext(ctx, query, uuid.NewString(), userID, problemID); err != nil {
		return dbError("pgSubmissionRepository.MarkSolved", err)
	}
	return nil
}

func (r *pgSubmissionRepository) ListByUser(ctx context.Context, userID string) ([]model.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions s WHERE s.user_id = $1 ORDER BY s.created_at DESC`
	return r.list(ctx, "pgSubmissionRepository.ListByUser", query, userID)
}

// ListByUserAndProblem returns the submissions with their per-case results.
func (r *pgSubmissionRepository) ListByUserAndProblem(ctx context.Context, userID, problemID string) ([]model.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions s
	          WHERE s.user_id = $1 AND s.problem_id = $2 ORDER BY s.created_at DESC`
	subs, err := r.list(ctx, "pgSubmissionRepository.ListByUserAndProblem", query, userID, problemID)
	if err != nil || len(subs) == 0 {
		return subs, err
	}

	rows, err := r.db.QueryContext(ctx, `
        SELECT t.id, t.submission_id, t.test_case, t.passed, t.stdout, t.expected, t.stderr, t.compile_output,
               t.status_id, t.status, t.diagnostic, t.memory, t.time, t.created_at
        FROM test_case_results t
        JOIN submissions s ON s.id = t.submission_id
        WHERE s.user_id = $1 AND s.problem_id = $2
        ORDER BY t.submission_id, t.test_case`, userID, problemID)
	if err != nil {
		return nil, dbError("pgSubmissionRepository.ListByUserAndProblem results", err)
	}
	defer rows.Close()

	bySubmission := make(map[string][]model.TestCaseResult, len(subs))
	for rows.Next() {
		var tc model.TestCaseResult
		if err := rows.Scan(&tc.ID, &tc.SubmissionID, &tc.TestCase, &tc.Passed, &tc.Stdout, &tc.Expected,
			&tc.Stderr, &tc.CompileOutput, &tc.StatusID, &tc.Status, &tc.Diagnostic, &tc.Memory, &tc.Time,
			&tc.CreatedAt); err != nil {
			return nil, dbError("pgSubmissionRepository.ListByUserAndProblem scan result", err)
		}
		bySubmission[tc.SubmissionID] = append(bySubmission[tc.SubmissionID], tc)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("pgSubmissionRepository.ListByUserAndProblem results rows", err)
	}
	for i := range subs {
		subs[i].TestCases = bySubmission[subs[i].ID]
	}
	return subs, nil
}

func (r *pgSubmissionRepository) CountByProblem(ctx context.Context, problemID string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM submissions WHERE problem_id = $1`, problemID).Scan(&n); err != nil {
		return 0, dbError("pgSubmissionRepository.CountByProblem", err)
	}
	return n, nil
}

func (r *pgSubmissionRepository) list(ctx context.Context, op, query string, args ...any) ([]model.Submission, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbError(op, err)
	}
	defer rows.Close()

	subs := []model.Submission{}
	for rows.Next() {
		var s model.Submission
		if err := rows.Scan(&s.ID, &s.UserID, &s.ProblemID, &s.SourceCode, &s.Language, &s.Stdin, &s.Stdout,
			&s.Stderr, &s.CompileOutput, &s.Status, &s.Memory, &s.Time, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, dbError(op+" scan", err)
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(op+" rows", err)
	}
	return subs, nil
}
