package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/anditomara/chatpulse/internal/model"
)

// Harvester is the connector surface the orchestrator dispatches against.
// Satisfied by the connectors in internal/scrape.
type Harvester interface {
	Platform() model.Platform
	Harvest(ctx context.Context, channelID string) ([]model.Message, model.ScrapeStats)
}

// SourceTask pairs one source identifier with its connector.
type SourceTask struct {
	ChannelID string
	Connector Harvester
}

// HarvestJob runs one source harvest inside the pool.
type HarvestJob struct {
	ChannelID string
	Connector Harvester
}

// Execute harvests the source. A panic inside a connector is contained
// here and converted into a failed stats entry so sibling tasks keep
// running.
func (j *HarvestJob) Execute(ctx context.Context) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("harvest panic: %v", r)
			res = &HarvestResult{
				Stats: model.FailedStats(j.ChannelID, j.Connector.Platform(), err),
				Err:   err,
			}
		}
	}()

	msgs, stats := j.Connector.Harvest(ctx, j.ChannelID)
	var err error
	if !stats.Success {
		err = errors.New(stats.Error)
	}
	return &HarvestResult{Messages: msgs, Stats: stats, Err: err}
}

// HarvestResult is the private buffer of one task: its records plus the
// stats entry, merged by the orchestrator only after every task joins.
type HarvestResult struct {
	Messages []model.Message
	Stats    model.ScrapeStats
	Err      error
}

// GetError returns the task failure, if any.
func (r *HarvestResult) GetError() error {
	return r.Err
}

// Orchestrator fans out harvest tasks across all platforms under a single
// shared concurrency cap.
type Orchestrator struct {
	concurrency int
	log         *slog.Logger
}

// NewOrchestrator creates an orchestrator with the given cap.
func NewOrchestrator(concurrency int, log *slog.Logger) *Orchestrator {
	if concurrency <= 0 {
		concurrency = 10
	}
	return &Orchestrator{concurrency: concurrency, log: log}
}

// Run dispatches one job per source and blocks until every job has
// resolved, success or isolated failure. It returns all records and one
// stats entry per attempted source; ordering across sources follows
// completion and is unspecified.
func (o *Orchestrator) Run(ctx context.Context, tasks []SourceTask) ([]model.Message, []model.ScrapeStats) {
	if len(tasks) == 0 {
		return nil, nil
	}

	pool := NewPool(o.concurrency)
	pool.Start(ctx)

	for _, task := range tasks {
		pool.Submit(&HarvestJob{ChannelID: task.ChannelID, Connector: task.Connector})
	}

	results := pool.Wait()

	var all []model.Message
	stats := make([]model.ScrapeStats, 0, len(results))
	for _, result := range results {
		hr := result.(*HarvestResult)
		if hr.Err != nil {
			o.log.Error("source failed", "channel", hr.Stats.ChannelID, "platform", hr.Stats.Platform, "error", hr.Err)
		}
		all = append(all, hr.Messages...)
		stats = append(stats, hr.Stats)
	}
	return all, stats
}
