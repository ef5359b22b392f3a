package model

import "time"

type Playlist struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	UserID      string    `json:"userId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Problems    []Problem `json:"problems,omitempty"`
}

type ProblemInPlaylist struct {
	ID         string    `json:"id"`
	PlaylistID string    `json:"playlistId"`
	ProblemID  string    `json:"problemId"`
	CreatedAt  time.Time `json:"createdAt"`
}
