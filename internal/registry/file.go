package registry

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/anditomara/chatpulse/internal/model"
)

// File reads sources from a YAML file. Run stats have nowhere durable to
// go in this mode, so they are only logged.
type File struct {
	path string
	log  *slog.Logger
}

var _ Registry = (*File)(nil)

// NewFile creates a file-backed registry.
func NewFile(path string, log *slog.Logger) *File {
	return &File{path: path, log: log}
}

// Sources parses the YAML source list.
func (f *File) Sources(ctx context.Context) ([]Source, error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}

	var doc struct {
		Sources []Source `yaml:"sources"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse sources file: %w", err)
	}
	return doc.Sources, nil
}

// SaveRunStats logs each entry instead of persisting it.
func (f *File) SaveRunStats(ctx context.Context, stats []model.ScrapeStats) error {
	for _, s := range stats {
		f.log.Info("run stats",
			"channel", s.ChannelID,
			"platform", s.Platform,
			"pulled", s.Pulled,
			"kept", s.Kept,
			"success", s.Success,
		)
	}
	return nil
}
