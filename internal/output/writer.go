// Package output writes the final classified collection to disk.
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/anditomara/chatpulse/internal/model"
)

// Writer writes one dated JSON file per run into its directory.
type Writer struct {
	dir string
}

// NewWriter creates a writer rooted at dir.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Write persists records as a pretty-printed JSON array at
// <dir>/<YYYY-MM-DD>.json and returns the path.
func (w *Writer) Write(records []model.ClassifiedMessage, day time.Time) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	if records == nil {
		records = []model.ClassifiedMessage{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal records: %w", err)
	}

	path := filepath.Join(w.dir, day.UTC().Format("2006-01-02")+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write output: %w", err)
	}
	return path, nil
}
