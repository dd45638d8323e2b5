package postgres

import (
	"context"
	"fmt"

	"github.com/okian/highscore/internal/domain/model"
	"github.com/uptrace/bun"
)

// CatalogLoader reads game modes and contents from the database.
type CatalogLoader struct {
	db bun.IDB
}

// NewCatalogLoader returns a loader using db.
func NewCatalogLoader(db bun.IDB) *CatalogLoader {
	return &CatalogLoader{db: db}
}

// Load implements catalog.Loader.
func (l *CatalogLoader) Load(ctx context.Context) ([]model.ModeRef, []model.ContentRef, error) {
	var modeRows []modeRow
	if err := l.db.NewSelect().Model(&modeRows).Order("gm.name ASC").Scan(ctx); err != nil {
		return nil, nil, storageFailure("load_modes", err)
	}
	var contentRows []contentRow
	if err := l.db.NewSelect().Model(&contentRows).Order("gc.name ASC").Scan(ctx); err != nil {
		return nil, nil, storageFailure("load_contents", err)
	}

	modes := make([]model.ModeRef, len(modeRows))
	for i, r := range modeRows {
		modes[i] = model.ModeRef{ID: r.ID, Slug: r.Slug, Name: r.Name, Description: r.Description}
	}
	contents := make([]model.ContentRef, len(contentRows))
	for i, r := range contentRows {
		contents[i] = model.ContentRef{ID: r.ID, Slug: r.Slug, Name: r.Name, Description: r.Description}
	}
	return modes, contents, nil
}

// SeedCatalog upserts modes and contents by ID in one transaction.
func SeedCatalog(ctx context.Context, db bun.IDB, modes []model.ModeRef, contents []model.ContentRef) error {
	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if len(modes) > 0 {
			rows := make([]modeRow, len(modes))
			for i, m := range modes {
				rows[i] = modeRow{ID: m.ID, Slug: m.Slug, Name: m.Name, Description: m.Description}
			}
			if _, err := tx.NewInsert().Model(&rows).
				On("CONFLICT (id) DO UPDATE").
				Set("slug = EXCLUDED.slug").
				Set("name = EXCLUDED.name").
				Set("description = EXCLUDED.description").
				Exec(ctx); err != nil {
				return fmt.Errorf("seed game modes: %w", err)
			}
		}
		if len(contents) > 0 {
			rows := make([]contentRow, len(contents))
			for i, c := range contents {
				rows[i] = contentRow{ID: c.ID, Slug: c.Slug, Name: c.Name, Description: c.Description}
			}
			if _, err := tx.NewInsert().Model(&rows).
				On("CONFLICT (id) DO UPDATE").
				Set("slug = EXCLUDED.slug").
				Set("name = EXCLUDED.name").
				Set("description = EXCLUDED.description").
				Exec(ctx); err != nil {
				return fmt.Errorf("seed game contents: %w", err)
			}
		}
		return nil
	})
}
