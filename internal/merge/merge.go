// Package merge combines per-source record sets into the single ordered
// working set the classifier consumes.
package merge

import (
	"errors"
	"sort"

	"github.com/anditomara/chatpulse/internal/model"
)

// ErrNoMessages signals that no source produced any record at all, as
// opposed to records existing but being filtered away. The caller alerts
// operators on this instead of silently writing an empty output.
var ErrNoMessages = errors.New("no messages collected from any source")

// Merge concatenates all per-source record sets, normalizes timestamps to
// UTC (records without a usable timestamp are dropped), deduplicates
// globally by exact text and sorts the survivors newest first.
//
// Among records sharing identical text the one with the latest timestamp
// wins; on an exact timestamp tie the record appearing later in the
// concatenation wins, which keeps the result deterministic for a stable
// input ordering. Merge is idempotent: merging its own output changes
// nothing.
func Merge(perSource ...[]model.Message) ([]model.Message, error) {
	var combined []model.Message
	for _, records := range perSource {
		combined = append(combined, records...)
	}
	if len(combined) == 0 {
		return nil, ErrNoMessages
	}

	// index of the winning record per text, in first-seen order
	best := make(map[string]int, len(combined))
	var order []string

	for i := range combined {
		combined[i].Timestamp = combined[i].Timestamp.UTC()
		if combined[i].Timestamp.IsZero() {
			continue
		}

		text := combined[i].Text
		prev, seen := best[text]
		if !seen {
			best[text] = i
			order = append(order, text)
			continue
		}
		if !combined[i].Timestamp.Before(combined[prev].Timestamp) {
			best[text] = i
		}
	}

	merged := make([]model.Message, 0, len(order))
	for _, text := range order {
		merged = append(merged, combined[best[text]])
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp.After(merged[j].Timestamp)
	})
	return merged, nil
}
