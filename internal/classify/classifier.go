// Package classify scores merged messages for relevance through a batched
// external scoring service and joins the verdicts back onto the records.
package classify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/anditomara/chatpulse/internal/model"
)

// classifySleep is the sleep used between retry attempts (injectable for
// tests).
var classifySleep = func(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// Classifier partitions messages into fixed-size batches and dispatches
// them under its own concurrency cap, independent from the harvesting
// cap. Batches fail independently: when one batch exhausts its attempts,
// every item in it receives the deterministic fallback verdict and the
// other batches are untouched.
type Classifier struct {
	scorer      Scorer
	system      string
	batchSize   int
	concurrency int
	maxAttempts int
	backoffBase time.Duration
	log         *slog.Logger
}

// NewClassifier builds a classifier over the given scorer.
func NewClassifier(scorer Scorer, cfg model.ClassifyConfig, concurrency int, log *slog.Logger) *Classifier {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 10
	}
	if concurrency <= 0 {
		concurrency = 5
	}
	maxAttempts := cfg.MaxRetries
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Classifier{
		scorer:      scorer,
		system:      systemPrompt(),
		batchSize:   batchSize,
		concurrency: concurrency,
		maxAttempts: maxAttempts,
		backoffBase: cfg.BackoffBase,
		log:         log,
	}
}

// Classify scores all records and returns one verdict per classifiable
// record. Records missing an id, platform or text are dropped up front:
// they are neither sent to the service nor given a fallback. Verdict
// order follows batch order (input order).
func (c *Classifier) Classify(ctx context.Context, records []model.Message) []model.Verdict {
	valid := records[:0:0]
	for _, r := range records {
		if r.ID == "" || r.Platform == "" || r.Text == "" {
			continue
		}
		valid = append(valid, r)
	}
	if len(valid) == 0 {
		c.log.Info("no valid messages to classify")
		return nil
	}

	batches := partition(valid, c.batchSize)
	results := make([][]model.Verdict, len(batches))

	var wg sync.WaitGroup
	sem := make(chan struct{}, c.concurrency)
	for i, batch := range batches {
		wg.Add(1)
		go func(idx int, batch []model.Message) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[idx] = c.classifyBatch(ctx, batch)
			c.log.Info("batch classified", "batch", idx, "items", len(results[idx]))
		}(i, batch)
	}
	wg.Wait()

	verdicts := make([]model.Verdict, 0, len(valid))
	for _, r := range results {
		verdicts = append(verdicts, r...)
	}
	return verdicts
}

// partition splits records into order-preserving batches of size n; the
// last batch may be smaller.
func partition(records []model.Message, n int) [][]model.Message {
	var batches [][]model.Message
	for start := 0; start < len(records); start += n {
		end := start + n
		if end > len(records) {
			end = len(records)
		}
		batches = append(batches, records[start:end])
	}
	return batches
}

// outcomeKind discriminates the result of one scoring attempt.
type outcomeKind int

const (
	outcomeSuccess outcomeKind = iota
	outcomeRetryable
	outcomeTerminal
)

// batchOutcome is the explicit result of one attempt at one batch.
type batchOutcome struct {
	kind     outcomeKind
	verdicts []model.Verdict
	err      error
}

// classifyBatch runs the bounded retry machine for one batch: up to
// maxAttempts tries with doubling backoff, then the whole batch degrades
// to fallback verdicts. There is no partial success within a batch.
func (c *Classifier) classifyBatch(ctx context.Context, batch []model.Message) []model.Verdict {
	user, err := batchPayload(batch)
	if err != nil {
		c.log.Error("encode batch", "error", err)
		return fallbackBatch(batch)
	}

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		outcome := c.attempt(ctx, batch, user)
		switch outcome.kind {
		case outcomeSuccess:
			return outcome.verdicts
		case outcomeTerminal:
			c.log.Error("batch failed terminally", "error", outcome.err)
			return fallbackBatch(batch)
		case outcomeRetryable:
			c.log.Warn("batch attempt failed", "attempt", attempt+1, "max", c.maxAttempts, "error", outcome.err)
			if attempt < c.maxAttempts-1 {
				classifySleep(ctx, backoffDelay(c.backoffBase, attempt))
			}
		}
	}
	return fallbackBatch(batch)
}

// attempt performs one round trip and classifies its outcome.
func (c *Classifier) attempt(ctx context.Context, batch []model.Message, user string) batchOutcome {
	content, err := c.scorer.Complete(ctx, c.system, user)
	if err != nil {
		if isTerminalAPIError(err) {
			return batchOutcome{kind: outcomeTerminal, err: err}
		}
		return batchOutcome{kind: outcomeRetryable, err: err}
	}

	verdicts, err := parseVerdicts(content, len(batch))
	if err != nil {
		return batchOutcome{kind: outcomeRetryable, err: err}
	}
	return batchOutcome{kind: outcomeSuccess, verdicts: verdicts}
}

// isTerminalAPIError reports errors retrying cannot fix, like a rejected
// API key. Everything else (timeouts, 5xx, malformed output) is worth
// another attempt.
func isTerminalAPIError(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case 401, 403, 404:
			return true
		}
	}
	return false
}

// batchItem is the request wire shape for one message.
type batchItem struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Platform string   `json:"platform"`
	Links    []string `json:"links"`
}

func batchPayload(batch []model.Message) (string, error) {
	items := make([]batchItem, len(batch))
	for i, r := range batch {
		links := r.Links
		if links == nil {
			links = []string{}
		}
		items[i] = batchItem{ID: r.ID, Text: r.Text, Platform: string(r.Platform), Links: links}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("marshal batch: %w", err)
	}
	return string(payload), nil
}

func fallbackBatch(batch []model.Message) []model.Verdict {
	verdicts := make([]model.Verdict, len(batch))
	for i, r := range batch {
		verdicts[i] = model.FallbackVerdict(r.Key())
	}
	return verdicts
}

// verdictWire tolerates the service's loose typing: keep and score arrive
// as native bool/number or as strings ("true", "0.92").
type verdictWire struct {
	ID       json.Number `json:"id"`
	Platform string      `json:"platform"`
	Keep     flexBool    `json:"keep"`
	Score    flexFloat   `json:"score"`
	Tags     []string    `json:"tags"`
}

type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	v, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("parse keep %q: %w", s, err)
	}
	*b = flexBool(v)
	return nil
}

type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("parse score %q: %w", s, err)
	}
	*f = flexFloat(v)
	return nil
}

// parseVerdicts accepts only a JSON array whose length equals the batch
// length; anything else is invalid and handled like a transport failure.
// Unknown tags are discarded and scores clamped into [0,1].
func parseVerdicts(content string, want int) ([]model.Verdict, error) {
	content = stripCodeFence(content)

	var wire []verdictWire
	if err := json.Unmarshal([]byte(content), &wire); err != nil {
		return nil, fmt.Errorf("invalid verdict array: %w", err)
	}
	if len(wire) != want {
		return nil, fmt.Errorf("verdict count mismatch: got %d, want %d", len(wire), want)
	}

	allowed := make(map[string]struct{}, len(model.AllowedTags))
	for _, tag := range model.AllowedTags {
		allowed[tag] = struct{}{}
	}

	verdicts := make([]model.Verdict, len(wire))
	for i, w := range wire {
		tags := make([]string, 0, len(w.Tags))
		for _, tag := range w.Tags {
			if _, ok := allowed[strings.ToLower(tag)]; ok {
				tags = append(tags, strings.ToLower(tag))
			}
		}

		score := float64(w.Score)
		if score < 0 {
			score = 0
		}
		if score > 1 {
			score = 1
		}

		verdicts[i] = model.Verdict{
			ID:       w.ID.String(),
			Platform: model.Platform(w.Platform),
			Keep:     bool(w.Keep),
			Score:    score,
			Tags:     tags,
		}
	}
	return verdicts, nil
}

// stripCodeFence removes a surrounding markdown code fence, which chat
// models add despite instructions.
func stripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	return strings.TrimSpace(content)
}

// backoffDelay doubles the base delay per attempt (0-indexed).
func backoffDelay(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	return base << uint(attempt)
}
