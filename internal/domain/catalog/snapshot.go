// Package catalog holds the reference list of game modes and contents.
//
// Readers take an immutable Snapshot; refreshes build a new one and publish
// it atomically, so a reader never observes a half-loaded catalog.
package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/okian/highscore/internal/domain/model"
)

// Snapshot is an immutable view of the catalog.
type Snapshot struct {
	modesBySlug    map[string]model.ModeRef
	modesByID      map[uuid.UUID]model.ModeRef
	contentsBySlug map[string]model.ContentRef
	contentsByID   map[uuid.UUID]model.ContentRef
	modes          []model.ModeRef
	contents       []model.ContentRef
}

// NewSnapshot indexes modes and contents. Slugs and IDs must be unique and
// slugs non-empty.
func NewSnapshot(modes []model.ModeRef, contents []model.ContentRef) (*Snapshot, error) {
	s := &Snapshot{
		modesBySlug:    make(map[string]model.ModeRef, len(modes)),
		modesByID:      make(map[uuid.UUID]model.ModeRef, len(modes)),
		contentsBySlug: make(map[string]model.ContentRef, len(contents)),
		contentsByID:   make(map[uuid.UUID]model.ContentRef, len(contents)),
	}
	for _, m := range modes {
		if strings.TrimSpace(m.Slug) == "" {
			return nil, fmt.Errorf("%w: mode %q has an empty slug", ErrInvalidCatalog, m.Name)
		}
		if _, dup := s.modesBySlug[m.Slug]; dup {
			return nil, fmt.Errorf("%w: duplicate mode slug %q", ErrInvalidCatalog, m.Slug)
		}
		if _, dup := s.modesByID[m.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate mode id %s", ErrInvalidCatalog, m.ID)
		}
		s.modesBySlug[m.Slug] = m
		s.modesByID[m.ID] = m
		s.modes = append(s.modes, m)
	}
	for _, c := range contents {
		if strings.TrimSpace(c.Slug) == "" {
			return nil, fmt.Errorf("%w: content %q has an empty slug", ErrInvalidCatalog, c.Name)
		}
		if _, dup := s.contentsBySlug[c.Slug]; dup {
			return nil, fmt.Errorf("%w: duplicate content slug %q", ErrInvalidCatalog, c.Slug)
		}
		if _, dup := s.contentsByID[c.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate content id %s", ErrInvalidCatalog, c.ID)
		}
		s.contentsBySlug[c.Slug] = c
		s.contentsByID[c.ID] = c
		s.contents = append(s.contents, c)
	}
	sort.SliceStable(s.modes, func(i, j int) bool { return s.modes[i].Name < s.modes[j].Name })
	sort.SliceStable(s.contents, func(i, j int) bool { return s.contents[i].Name < s.contents[j].Name })
	return s, nil
}

// Empty returns a snapshot with no entries.
func Empty() *Snapshot {
	s, _ := NewSnapshot(nil, nil)
	return s
}

// ModeBySlug looks up a mode by its slug.
func (s *Snapshot) ModeBySlug(slug string) (model.ModeRef, bool) {
	m, ok := s.modesBySlug[slug]
	return m, ok
}

// ContentBySlug looks up a content by its slug.
func (s *Snapshot) ContentBySlug(slug string) (model.ContentRef, bool) {
	c, ok := s.contentsBySlug[slug]
	return c, ok
}

// ModeByID looks up a mode by its ID.
func (s *Snapshot) ModeByID(id uuid.UUID) (model.ModeRef, bool) {
	m, ok := s.modesByID[id]
	return m, ok
}

// ContentByID looks up a content by its ID.
func (s *Snapshot) ContentByID(id uuid.UUID) (model.ContentRef, bool) {
	c, ok := s.contentsByID[id]
	return c, ok
}

// Modes lists every mode ordered by name. The slice is a copy.
func (s *Snapshot) Modes() []model.ModeRef {
	return append([]model.ModeRef{}, s.modes...)
}

// Contents lists every content ordered by name. The slice is a copy.
func (s *Snapshot) Contents() []model.ContentRef {
	return append([]model.ContentRef{}, s.contents...)
}

// Size returns the number of modes and contents.
func (s *Snapshot) Size() (modes, contents int) {
	return len(s.modes), len(s.contents)
}
