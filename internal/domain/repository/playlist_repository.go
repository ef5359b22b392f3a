package repository

import (
	"context"
	"database/sql"
	"errors"

	"bitscode/internal/common"
	"bitscode/internal/domain/model"

	"github.com/google/uuid"
)

type PlaylistRepository interface {
	Create(ctx context.Context, playlist *model.Playlist) error
	Update(ctx context.Context, playlist *model.Playlist) error
	FindByID(ctx context.Context, id string) (*model.Playlist, error)
	ListByUser(ctx context.Context, userID string) ([]model.Playlist, error)
	ListProblems(ctx context.Context, playlistID string) ([]model.Problem, error)
	// AddProblems links problems to a playlist, skipping ones already present.
	AddProblems(ctx context.Context, tx *sql.Tx, playlistID string, problemIDs []string) error
	RemoveProblems(ctx context.Context, tx *sql.Tx, playlistID string, problemIDs []string) (int, error)
	Delete(ctx context.Context, id string) error
}

type pgPlaylistRepository struct {
	db *sql.DB
}

func NewPgPlaylistRepository(db *sql.DB) PlaylistRepository {
	return &pgPlaylistRepository{db: db}
}

func (r *pgPlaylistRepository) Create(ctx context.Context, p *model.Playlist) error {
	query := `INSERT INTO playlists (id, name, description, user_id)
	          VALUES ($1, $2, $3, $4)
	          RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, p.ID, p.Name, p.Description, p.UserID).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return dbError("pgPlaylistRepository.Create", err)
	}
	return nil
}

func (r *pgPlaylistRepository) Update(ctx context.Context, p *model.Playlist) error {
	query := `UPDATE playlists SET name = $1, description = $2, updated_at = CURRENT_TIMESTAMP
	          WHERE id = $3
	          RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query, p.Name, p.Description, p.ID).Scan(&p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrNotFound
		}
		return dbError("pgPlaylistRepository.Update", err)
	}
	return nil
}

func (r *pgPlaylistRepository) FindByID(ctx context.Context, id string) (*model.Playlist, error) {
	query := `SELECT id, name, description, user_id, created_at, updated_at FROM playlists WHERE id = $1`
	p := &model.Playlist{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Name, &p.Description, &p.UserID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, dbError("pgPlaylistRepository.FindByID", err)
	}
	return p, nil
}

func (r *pgPlaylistRepository) ListByUser(ctx context.Context, userID string) ([]model.Playlist, error) {
	query := `SELECT id, name, description, user_id, created_at, updated_at
	          FROM playlists WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, dbError("pgPlaylistRepository.ListByUser", err)
	}
	defer rows.Close()

	playlists := []model.Playlist{}
	for rows.Next() {
		var p model.Playlist
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.UserID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, dbError("pgPlaylistRepository.ListByUser scan", err)
		}
		playlists = append(playlists, p)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("pgPlaylistRepository.ListByUser rows", err)
	}
	return playlists, nil
}

// ListProblems returns the playlist's problems in the order they were added.
func (r *pgPlaylistRepository) ListProblems(ctx context.Context, playlistID string) ([]model.Problem, error) {
	query := `SELECT ` + problemColumns + `
	          FROM problems p
	          JOIN problems_in_playlist pip ON pip.problem_id = p.id
	          WHERE pip.playlist_id = $1
	          ORDER BY pip.position`
	rows, err := r.db.QueryContext(ctx, query, playlistID)
	if err != nil {
		return nil, dbError("pgPlaylistRepository.ListProblems", err)
	}
	defer rows.Close()

	problems := []model.Problem{}
	for rows.Next() {
		p, err := scanProblem(rows)
		if err != nil {
			return nil, dbError("pgPlaylistRepository.ListProblems scan", err)
		}
		problems = append(problems, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("pgPlaylistRepository.ListProblems rows", err)
	}
	return problems, nil
}

func (r *pgPlaylistRepository) AddProblems(ctx context.Context, tx *sql.Tx, playlistID string, problemIDs []string) error {
	q := conn(r.db, tx)
	query := `INSERT INTO problems_in_playlist (id, playlist_id, problem_id)
	          VALUES ($1, $2, $3)
	          ON CONFLICT (playlist_id, problem_id) DO NOTHING`
	for _, problemID := range problemIDs {
		if _, err := q.ExecContext(ctx, query, uuid.NewString(), playlistID, problemID); err != nil {
			return dbError("pgPlaylistRepository.AddProblems", err)
		}
	}
	return nil
}

// RemoveProblems unlinks problems and reports how many links were removed.
func (r *pgPlaylistRepository) RemoveProblems(ctx context.Context, tx *sql.Tx, playlistID string, problemIDs []string) (int, error) {
	q := conn(r.db, tx)
	removed := 0
	for _, problemID := range problemIDs {
		res, err := q.ExecContext(ctx, `DELETE FROM problems_in_playlist WHERE playlist_id = $1 AND problem_id = $2`, playlistID, problemID)
		if err != nil {
			return 0, dbError("pgPlaylistRepository.RemoveProblems", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, dbError("pgPlaylistRepository.RemoveProblems", err)
		}
		removed += int(n)
	}
	return removed, nil
}

func (r *pgPlaylistRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM playlists WHERE id = $1`, id)
	if err != nil {
		return dbError("pgPlaylistRepository.Delete", err)
	}
	return expectAffected("pgPlaylistRepository.Delete", res)
}
