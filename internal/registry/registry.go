// Package registry supplies the per-run source list and persists run
// statistics. Production uses Postgres; the YAML file registry covers
// local runs without a database.
package registry

import (
	"context"

	"github.com/anditomara/chatpulse/internal/model"
)

// Source is one harvestable identifier and the platform it lives on.
type Source struct {
	ChannelID string         `yaml:"channelId"`
	Platform  model.Platform `yaml:"platform"`
}

// Registry provides sources and receives run stats.
type Registry interface {
	Sources(ctx context.Context) ([]Source, error)
	SaveRunStats(ctx context.Context, stats []model.ScrapeStats) error
}
