// Package filestore keeps crossings, images and cycle outputs on the local filesystem.
package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/samirrijal/cumulus/internal/core/domain"
)

// CrossingFile loads crossings from a JSON array. The file is re-read on every
// call so edits are picked up by the next cycle.
type CrossingFile struct {
	path string
}

// NewCrossingFile creates a new CrossingFile.
func NewCrossingFile(path string) *CrossingFile {
	return &CrossingFile{path: path}
}

func (f *CrossingFile) Load(_ context.Context) ([]domain.Crossing, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read crossings %s: %w", f.path, err)
	}

	var crossings []domain.Crossing
	if err := json.Unmarshal(data, &crossings); err != nil {
		return nil, fmt.Errorf("parse crossings %s: %w", f.path, err)
	}
	for i, c := range crossings {
		if c.Name == "" {
			return nil, fmt.Errorf("crossing %d in %s has no name", i+1, f.path)
		}
	}
	return crossings, nil
}
