// Package scrape implements the per-source harvesting connectors. Each
// connector pulls raw items for one channel inside a trailing time window,
// screens out low-value filler, normalizes the survivors and reports
// pulled/kept counters. Connectors never return errors: an unrecoverable
// failure is folded into the stats entry for that source.
package scrape

import (
	"context"

	"github.com/anditomara/chatpulse/internal/model"
)

// Connector harvests one source identifier. The window is anchored to the
// invocation time; paged sources stop as soon as an item falls outside it,
// since later pages are assumed strictly older.
type Connector interface {
	Platform() model.Platform
	Harvest(ctx context.Context, channelID string) ([]model.Message, model.ScrapeStats)
}
