package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"bitscode/internal/common"
	"bitscode/internal/domain/model"
	"bitscode/internal/domain/repository"
	"bitscode/internal/platform/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PlaylistService manages user-owned playlists. Playlists of other users are
// reported as not found.
type PlaylistService struct {
	playlistRepo repository.PlaylistRepository
	tx           repository.Transactor
	log          *zap.Logger
}

func NewPlaylistService(playlistRepo repository.PlaylistRepository, tx repository.Transactor, log *zap.Logger) *PlaylistService {
	return &PlaylistService{playlistRepo: playlistRepo, tx: tx, log: logger.OrNop(log).Named("playlists")}
}

type PlaylistRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type PlaylistProblemsRequest struct {
	ProblemIDs []string `json:"problemIds"`
}

func (s *PlaylistService) Create(ctx context.Context, owner *model.Identity, req PlaylistRequest) (*model.Playlist, error) {
	if owner == nil {
		return nil, common.ErrUnauthorized
	}
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		return nil, common.Validationf("name is required")
	}
	p := &model.Playlist{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(*req.Name),
		Description: req.Description,
		UserID:      owner.UserID,
		Problems:    []model.Problem{},
	}
	if err := s.playlistRepo.Create(ctx, p); err != nil {
		return nil, conflictOrWrap(err, p.Name)
	}
	return p, nil
}

func (s *PlaylistService) Update(ctx context.Context, owner *model.Identity, id string, req PlaylistRequest) (*model.Playlist, error) {
	p, err := s.owned(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, common.Validationf("name cannot be empty")
		}
		p.Name = name
	}
	if req.Description != nil {
		p.Description = req.Description
	}
	if err := s.playlistRepo.Update(ctx, p); err != nil {
		return nil, conflictOrWrap(err, p.Name)
	}
	return p, nil
}

func conflictOrWrap(err error, name string) error {
	if errors.Is(err, common.ErrConflict) {
		return fmt.Errorf("a playlist named %q already exists: %w", name, common.ErrConflict)
	}
	return fmt.Errorf("failed to save playlist: %w", err)
}

// List returns the owner's playlists with their problems.
func (s *PlaylistService) List(ctx context.Context, owner *model.Identity) ([]model.Playlist, error) {
	if owner == nil {
		return nil, common.ErrUnauthorized
	}
	playlists, err := s.playlistRepo.ListByUser(ctx, owner.UserID)
	if err != nil {
		return nil, err
	}
	for i := range playlists {
		if playlists[i].Problems, err = s.problems(ctx, playlists[i].ID); err != nil {
			return nil, err
		}
	}
	return playlists, nil
}

func (s *PlaylistService) Get(ctx context.Context, owner *model.Identity, id string) (*model.Playlist, error) {
	p, err := s.owned(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if p.Problems, err = s.problems(ctx, id); err != nil {
		return nil, err
	}
	return p, nil
}

// AddProblems is idempotent: problems already in the playlist are skipped.
func (s *PlaylistService) AddProblems(ctx context.Context, owner *model.Identity, id string, req PlaylistProblemsRequest) (*model.Playlist, error) {
	ids, err := problemIDs(req)
	if err != nil {
		return nil, err
	}
	if _, err := s.owned(ctx, owner, id); err != nil {
		return nil, err
	}
	err = s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		return s.playlistRepo.AddProblems(ctx, tx, id, ids)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add problems to playlist: %w", err)
	}
	s.log.Info("problems added to playlist", zap.String("playlist_id", id), zap.Int("count", len(ids)))
	return s.Get(ctx, owner, id)
}

func (s *PlaylistService) RemoveProblems(ctx context.Context, owner *model.Identity, id string, req PlaylistProblemsRequest) (*model.Playlist, error) {
	ids, err := problemIDs(req)
	if err != nil {
		return nil, err
	}
	if _, err := s.owned(ctx, owner, id); err != nil {
		return nil, err
	}
	var removed int
	err = s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		removed, err = s.playlistRepo.RemoveProblems(ctx, tx, id, ids)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to remove problems from playlist: %w", err)
	}
	s.log.Info("problems removed from playlist", zap.String("playlist_id", id), zap.Int("removed", removed))
	return s.Get(ctx, owner, id)
}

func (s *PlaylistService) Delete(ctx context.Context, owner *model.Identity, id string) error {
	if _, err := s.owned(ctx, owner, id); err != nil {
		return err
	}
	return s.playlistRepo.Delete(ctx, id)
}

func (s *PlaylistService) owned(ctx context.Context, owner *model.Identity, id string) (*model.Playlist, error) {
	if owner == nil {
		return nil, common.ErrUnauthorized
	}
	p, err := s.playlistRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.UserID != owner.UserID {
		return nil, fmt.Errorf("playlist %s: %w", id, common.ErrNotFound)
	}
	return p, nil
}

func (s *PlaylistService) problems(ctx context.Context, playlistID string) ([]model.Problem, error) {
	problems, err := s.playlistRepo.ListProblems(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	for i := range problems {
		problems[i].ReferenceSolutions = nil
	}
	return problems, nil
}

// problemIDs returns the requested ids without blanks or repeats.
func problemIDs(req PlaylistProblemsRequest) ([]string, error) {
	seen := make(map[string]bool, len(req.ProblemIDs))
	ids := make([]string, 0, len(req.ProblemIDs))
	for _, id := range req.ProblemIDs {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, common.Validationf("problemIds must be a non-empty array")
	}
	return ids, nil
}
