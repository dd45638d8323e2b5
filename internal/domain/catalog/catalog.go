package catalog

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/okian/highscore/internal/domain/model"
	"github.com/okian/highscore/pkg/logger"
	"github.com/okian/highscore/pkg/metrics"
)

// Loader fetches the full catalog from its source.
type Loader interface {
	Load(ctx context.Context) ([]model.ModeRef, []model.ContentRef, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context) ([]model.ModeRef, []model.ContentRef, error)

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context) ([]model.ModeRef, []model.ContentRef, error) {
	return f(ctx)
}

// Source hands out the current snapshot.
type Source interface {
	Snapshot() *Snapshot
}

// Catalog publishes snapshots produced by its loader.
type Catalog struct {
	loader  Loader
	log     logger.Logger
	current atomic.Pointer[Snapshot]
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithLoader sets the loader used by Refresh.
func WithLoader(l Loader) Option {
	return func(c *Catalog) { c.loader = l }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Catalog) {
		if l != nil {
			c.log = l
		}
	}
}

// WithSnapshot publishes an initial snapshot.
func WithSnapshot(s *Snapshot) Option {
	return func(c *Catalog) {
		if s != nil {
			c.current.Store(s)
		}
	}
}

// New creates a catalog that starts empty unless WithSnapshot is given.
func New(opts ...Option) *Catalog {
	c := &Catalog{log: logger.Discard()}
	for _, opt := range opts {
		opt(c)
	}
	if c.current.Load() == nil {
		c.current.Store(Empty())
	}
	return c
}

// Snapshot returns the current snapshot. It is never nil.
func (c *Catalog) Snapshot() *Snapshot {
	return c.current.Load()
}

// Refresh loads the catalog and publishes it. On failure the previous
// snapshot stays in place.
func (c *Catalog) Refresh(ctx context.Context) error {
	if c.loader == nil {
		return ErrNoLoader
	}
	modes, contents, err := c.loader.Load(ctx)
	if err != nil {
		metrics.RecordCatalogRefresh(false)
		return fmt.Errorf("load catalog: %w", err)
	}
	snap, err := NewSnapshot(modes, contents)
	if err != nil {
		metrics.RecordCatalogRefresh(false)
		return err
	}
	c.current.Store(snap)

	nm, nc := snap.Size()
	metrics.RecordCatalogRefresh(true)
	metrics.UpdateCatalogSize(nm, nc)
	c.log.Debug(ctx, "catalog refreshed", logger.Int("modes", nm), logger.Int("contents", nc))
	return nil
}
