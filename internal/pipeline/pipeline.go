// Package pipeline wires the full run: source registry, concurrent
// harvesting, merge/dedup, batched classification, verdict join and the
// final outputs.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/anditomara/chatpulse/internal/classify"
	"github.com/anditomara/chatpulse/internal/merge"
	"github.com/anditomara/chatpulse/internal/model"
	"github.com/anditomara/chatpulse/internal/notify"
	"github.com/anditomara/chatpulse/internal/output"
	"github.com/anditomara/chatpulse/internal/registry"
	"github.com/anditomara/chatpulse/internal/scrape"
	"github.com/anditomara/chatpulse/internal/worker"
)

// ErrSessionUnauthorized aborts a run whose registry contains chat-group
// sources while the gateway session is missing or not logged in. Nothing
// is harvested in that case.
var ErrSessionUnauthorized = errors.New("chat-group session is not authorized")

// Pipeline holds the run's collaborators. Everything is injected so runs
// are testable end to end with fakes.
type Pipeline struct {
	registry     registry.Registry
	session      scrape.GroupSession
	connectors   map[model.Platform]worker.Harvester
	orchestrator *worker.Orchestrator
	classifier   *classify.Classifier
	writer       *output.Writer
	notifier     notify.Notifier
	log          *slog.Logger
}

// Deps lists the collaborators a Pipeline needs.
type Deps struct {
	Registry     registry.Registry
	Session      scrape.GroupSession
	Connectors   map[model.Platform]worker.Harvester
	Orchestrator *worker.Orchestrator
	Classifier   *classify.Classifier
	Writer       *output.Writer
	Notifier     notify.Notifier
	Log          *slog.Logger
}

// New assembles a pipeline.
func New(deps Deps) *Pipeline {
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Pipeline{
		registry:     deps.Registry,
		session:      deps.Session,
		connectors:   deps.Connectors,
		orchestrator: deps.Orchestrator,
		classifier:   deps.Classifier,
		writer:       deps.Writer,
		notifier:     notifier,
		log:          deps.Log,
	}
}

// Summary reports what one run did.
type Summary struct {
	Sources    int
	Pulled     int
	Kept       int
	Merged     int
	Final      int
	OutputPath string
}

// Run executes one complete harvest-and-classify cycle. Individual source
// and batch failures are absorbed into stats and fallback verdicts; only
// an unauthorized session or a completely empty harvest aborts the run.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	sources, err := p.registry.Sources(ctx)
	if err != nil {
		return nil, fmt.Errorf("load sources: %w", err)
	}

	tasks, err := p.buildTasks(ctx, sources)
	if err != nil {
		return nil, err
	}

	records, stats := p.orchestrator.Run(ctx, tasks)

	if err := p.registry.SaveRunStats(ctx, stats); err != nil {
		p.log.Error("persist run stats", "error", err)
		p.alert(ctx, fmt.Sprintf("failed to persist run stats: %v", err))
	}

	merged, err := merge.Merge(records)
	if err != nil {
		if errors.Is(err, merge.ErrNoMessages) {
			p.log.Warn("no messages collected from any source")
			p.alert(ctx, "no messages collected from any source")
		}
		return nil, err
	}
	p.log.Info("merged messages", "total", len(merged))

	// Harvesting is fully complete before any classification starts; the
	// two concurrency domains never overlap.
	verdicts := p.classifier.Classify(ctx, merged)
	final := classify.Finalize(merged, verdicts)

	path, err := p.writer.Write(final, time.Now())
	if err != nil {
		return nil, fmt.Errorf("write output: %w", err)
	}

	pulled, kept := model.TotalCounts(stats)
	summary := &Summary{
		Sources:    len(tasks),
		Pulled:     pulled,
		Kept:       kept,
		Merged:     len(merged),
		Final:      len(final),
		OutputPath: path,
	}

	p.log.Info("run complete",
		"sources", summary.Sources,
		"pulled", summary.Pulled,
		"kept", summary.Kept,
		"final", summary.Final,
		"output", summary.OutputPath,
	)
	if err := p.notifier.Notify(ctx, fmt.Sprintf("run complete: pulled %d, kept %d, final %d", pulled, kept, summary.Final)); err != nil {
		p.log.Warn("notify summary", "error", err)
	}
	return summary, nil
}

// buildTasks maps sources to their connectors and enforces the session
// precondition before anything is dispatched.
func (p *Pipeline) buildTasks(ctx context.Context, sources []registry.Source) ([]worker.SourceTask, error) {
	needSession := false
	for _, s := range sources {
		if s.Platform == model.PlatformChatGroup {
			needSession = true
			break
		}
	}
	if needSession {
		if p.session == nil || !p.session.Authorized(ctx) {
			p.alert(ctx, "chat-group session is not authorized; run aborted")
			return nil, ErrSessionUnauthorized
		}
	}

	tasks := make([]worker.SourceTask, 0, len(sources))
	for _, s := range sources {
		connector, ok := p.connectors[s.Platform]
		if !ok {
			p.log.Warn("no connector for platform", "platform", s.Platform, "channel", s.ChannelID)
			continue
		}
		tasks = append(tasks, worker.SourceTask{ChannelID: s.ChannelID, Connector: connector})
	}
	return tasks, nil
}

func (p *Pipeline) alert(ctx context.Context, text string) {
	if err := p.notifier.Alert(ctx, text); err != nil {
		p.log.Warn("send alert", "error", err)
	}
}
