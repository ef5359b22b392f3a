package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"bitscode/internal/common"
	"bitscode/internal/domain/model"
)

type ProblemRepository interface {
	Create(ctx context.Context, problem *model.Problem) error
	Update(ctx context.Context, problem *model.Problem) error
	FindByID(ctx context.Context, id string) (*model.Problem, error)
	// List pages through problems matching filter and marks those solved by userID.
	List(ctx context.Context, filter model.ProblemFilter, userID string) ([]model.Problem, int, error)
	ListSolvedByUser(ctx context.Context, userID string) ([]model.Problem, error)
	Delete(ctx context.Context, id string) error
}

type pgProblemRepository struct {
	db *sql.DB
}

func NewPgProblemRepository(db *sql.DB) ProblemRepository {
	return &pgProblemRepository{db: db}
}

const problemColumns = `p.id, p.title, p.slug, p.description, p.difficulty, p.tags, p.examples, p.constraints,
       p.hints, p.editorial, p.test_cases, p.code_snippets, p.reference_solutions, p.user_id,
       p.created_at, p.updated_at`

// problemJSON holds the JSONB encodings of a problem's structured fields.
type problemJSON struct {
	tags, examples, testCases, snippets, references string
}

func encodeProblem(p *model.Problem) (problemJSON, error) {
	var out problemJSON
	fields := []struct {
		dst *string
		v   any
	}{
		{&out.tags, nonNilTags(p.Tags)},
		{&out.testCases, p.TestCases},
		{&out.snippets, nonNilMap(p.CodeSnippets)},
		{&out.references, nonNilMap(p.ReferenceSolutions)},
	}
	for _, f := range fields {
		b, err := json.Marshal(f.v)
		if err != nil {
			return out, fmt.Errorf("encoding problem %s: %w", p.ID, err)
		}
		*f.dst = string(b)
	}
	out.examples = "{}"
	if len(p.Examples) > 0 {
		out.examples = string(p.Examples)
	}
	return out, nil
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func nonNilMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func (r *pgProblemRepository) Create(ctx context.Context, p *model.Problem) error {
	enc, err := encodeProblem(p)
	if err != nil {
		return err
	}
	query := `INSERT INTO problems (id, title, slug, description, difficulty, tags, examples, constraints, hints,
	                                editorial, test_cases, code_snippets, reference_solutions, user_id)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	          RETURNING created_at, updated_at`
	err = r.db.QueryRowContext(ctx, query,
		p.ID, p.Title, p.Slug, p.Description, p.Difficulty, enc.tags, enc.examples, p.Constraints, p.Hints,
		p.Editorial, enc.testCases, enc.snippets, enc.references, p.UserID,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return dbError("pgProblemRepository.Create", err)
	}
	return nil
}

func (r *pgProblemRepository) Update(ctx context.Context, p *model.Problem) error {
	enc, err := encodeProblem(p)
	if err != nil {
		return err
	}
	query := `UPDATE problems SET
                title = $1, slug = $2, description = $3, difficulty = $4, tags = $5, examples = $6,
                constraints = $7, hints = $8, editorial = $9, test_cases = $10, code_snippets = $11,
                reference_solutions = $12, updated_at = CURRENT_TIMESTAMP
              WHERE id = $13
              RETURNING updated_at`
	err = r.db.QueryRowContext(ctx, query,
		p.Title, p.Slug, p.Description, p.Difficulty, enc.tags, enc.examples,
		p.Constraints, p.Hints, p.Editorial, enc.testCases, enc.snippets,
		enc.references, p.ID,
	).Scan(&p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrNotFound
		}
		return dbError("pgProblemRepository.Update", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProblem(row rowScanner, extra ...any) (*model.Problem, error) {
	p := &model.Problem{}
	var tags, examples, testCases, snippets, references []byte
	dest := []any{
		&p.ID, &p.Title, &p.Slug, &p.Description, &p.Difficulty, &tags, &examples, &p.Constraints,
		&p.Hints, &p.Editorial, &testCases, &snippets, &references, &p.UserID,
		&p.CreatedAt, &p.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	for _, f := range []struct {
		raw []byte
		dst any
	}{
		{tags, &p.Tags},
		{testCases, &p.TestCases},
		{snippets, &p.CodeSnippets},
		{references, &p.ReferenceSolutions},
	} {
		if len(f.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(f.raw, f.dst); err != nil {
			return nil, fmt.Errorf("decoding problem %s: %w", p.ID, err)
		}
	}
	if len(examples) > 0 {
		p.Examples = json.RawMessage(examples)
	}
	return p, nil
}

func (r *pgProblemRepository) FindByID(ctx context.Context, id string) (*model.Problem, error) {
	query := `SELECT ` + problemColumns + ` FROM problems p WHERE p.id = $1`
	p, err := scanProblem(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, dbError("pgProblemRepository.FindByID", err)
	}
	return p, nil
}

func (r *pgProblemRepository) List(ctx context.Context, f model.ProblemFilter, userID string) ([]model.Problem, int, error) {
	var conditions []string
	var args []any
	argID := 1

	if f.Difficulty != "" {
		conditions = append(conditions, fmt.Sprintf("p.difficulty = $%d", argID))
		args = append(args, f.Difficulty)
		argID++
	}
	if f.Tag != "" {
		conditions = append(conditions, fmt.Sprintf("p.tags @> jsonb_build_array($%d::text)", argID))
		args = append(args, f.Tag)
		argID++
	}

	var where string
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM problems p` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, dbError("pgProblemRepository.List count", err)
	}

	query := `SELECT ` + problemColumns + `,
	          EXISTS (SELECT 1 FROM problem_solved ps WHERE ps.problem_id = p.id AND ps.user_id = ` +
		fmt.Sprintf("$%d", argID) + `) AS solved
	          FROM problems p` + where +
		fmt.Sprintf(" ORDER BY p.created_at DESC LIMIT $%d OFFSET $%d", argID+1, argID+2)
	args = append(args, userID, f.PageSize, (f.Page-1)*f.PageSize)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, dbError("pgProblemRepository.List", err)
	}
	defer rows.Close()

	problems := []model.Problem{}
	for rows.Next() {
		var solved bool
		p, err := scanProblem(rows, &solved)
		if err != nil {
			return nil, 0, dbError("pgProblemRepository.List scan", err)
		}
		p.Solved = solved
		problems = append(problems, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, dbError("pgProblemRepository.List rows", err)
	}
	return problems, total, nil
}

func (r *pgProblemRepository) ListSolvedByUser(ctx context.Context, userID string) ([]model.Problem, error) {
	query := `SELECT ` + problemColumns + `
	          FROM problems p
	          JOIN problem_solved ps ON ps.problem_id = p.id
	          WHERE ps.user_id = $1
	          ORDER BY ps.created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, dbError("pgProblemRepository.ListSolvedByUser", err)
	}
	defer rows.Close()

	problems := []model.Problem{}
	for rows.Next() {
		p, err := scanProblem(rows)
		if err != nil {
			return nil, dbError("pgProblemRepository.ListSolvedByUser scan", err)
		}
		p.Solved = true
		problems = append(problems, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("pgProblemRepository.ListSolvedByUser rows", err)
	}
	return problems, nil
}

func (r *pgProblemRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM problems WHERE id = $1`, id)
	if err != nil {
		return dbError("pgProblemRepository.Delete", err)
	}
	return expectAffected("pgProblemRepository.Delete", res)
}
