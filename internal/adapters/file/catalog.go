// Package file loads the feature catalog from a JSON document on disk.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/samirrijal/routeguide/internal/core/domain"
)

// CatalogFile implements ports.CatalogStore on a JSON file of the form
//
//	[{"location": {"latitude": 407838351, "longitude": -746143763}, "name": "..."}]
type CatalogFile struct {
	Path string
}

func NewCatalogFile(path string) *CatalogFile {
	return &CatalogFile{Path: path}
}

// Load reads and decodes the whole file.
func (c *CatalogFile) Load(_ context.Context) ([]domain.Feature, error) {
	f, err := os.Open(c.Path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	features, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.Path, err)
	}
	return features, nil
}

// Replace writes features to the file, replacing it atomically.
func (c *CatalogFile) Replace(_ context.Context, features []domain.Feature) error {
	tmp, err := os.CreateTemp(filepath.Dir(c.Path), ".catalog-*.json")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Encode(tmp, features); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), c.Path)
}

// Decode reads a JSON catalog.
func Decode(r io.Reader) ([]domain.Feature, error) {
	var features []domain.Feature
	if err := json.NewDecoder(r).Decode(&features); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return features, nil
}

// Encode writes a JSON catalog, one feature per line.
func Encode(w io.Writer, features []domain.Feature) error {
	if _, err := io.WriteString(w, "["); err != nil {
		return err
	}
	for i, f := range features {
		b, err := json.Marshal(f)
		if err != nil {
			return fmt.Errorf("encode feature %d: %w", i, err)
		}
		sep := ",\n"
		if i == 0 {
			sep = "\n"
		}
		if _, err := fmt.Fprintf(w, "%s  %s", sep, b); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "\n]\n")
	return err
}
