package model

import "github.com/google/uuid"

// ModeRef is a game mode from the reference catalog.
type ModeRef struct {
	ID          uuid.UUID `json:"id"`
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
}

// ContentRef is a game content from the reference catalog.
type ContentRef struct {
	ID          uuid.UUID `json:"id"`
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
}
