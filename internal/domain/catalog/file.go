package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/okian/highscore/internal/domain/model"
)

// idNamespace seeds IDs derived from slugs for entries that omit one.
var idNamespace = uuid.MustParse("3f5c8e62-0d1b-4b8e-9a57-6a1c0f4d2e90")

type fileEntry struct {
	ID          string `koanf:"id"`
	Slug        string `koanf:"slug"`
	Name        string `koanf:"name"`
	Description string `koanf:"description"`
}

type fileDoc struct {
	Modes    []fileEntry `koanf:"modes"`
	Contents []fileEntry `koanf:"contents"`
}

// FileLoader reads the catalog from a YAML document of the form
//
//	modes:
//	  - slug: classic
//	    name: Classic
//	contents:
//	  - id: 1b4e28ba-2fa1-11d2-883f-0016d3cca427
//	    slug: level-1
//	    name: Level 1
type FileLoader struct {
	Path string
}

// NewFileLoader returns a loader for path.
func NewFileLoader(path string) *FileLoader { return &FileLoader{Path: path} }

// Load implements Loader. The file is re-read on every call.
func (l *FileLoader) Load(_ context.Context) ([]model.ModeRef, []model.ContentRef, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(l.Path), yaml.Parser()); err != nil {
		return nil, nil, fmt.Errorf("%w: read %s: %w", ErrInvalidCatalog, l.Path, err)
	}
	var doc fileDoc
	if err := k.UnmarshalWithConf("", &doc, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, nil, fmt.Errorf("%w: decode %s: %w", ErrInvalidCatalog, l.Path, err)
	}

	modes := make([]model.ModeRef, 0, len(doc.Modes))
	for _, e := range doc.Modes {
		id, err := entryID("mode", e)
		if err != nil {
			return nil, nil, err
		}
		modes = append(modes, model.ModeRef{ID: id, Slug: e.Slug, Name: e.Name, Description: e.Description})
	}
	contents := make([]model.ContentRef, 0, len(doc.Contents))
	for _, e := range doc.Contents {
		id, err := entryID("content", e)
		if err != nil {
			return nil, nil, err
		}
		contents = append(contents, model.ContentRef{ID: id, Slug: e.Slug, Name: e.Name, Description: e.Description})
	}
	return modes, contents, nil
}

func entryID(kind string, e fileEntry) (uuid.UUID, error) {
	if e.ID == "" {
		return uuid.NewSHA1(idNamespace, []byte(kind+":"+e.Slug)), nil
	}
	id, err := uuid.Parse(e.ID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s %q: bad id: %w", ErrInvalidCatalog, kind, e.Slug, err)
	}
	return id, nil
}
