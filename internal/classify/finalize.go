package classify

import "github.com/anditomara/chatpulse/internal/model"

// Finalize left-joins verdicts onto records by (id, platform) and builds
// the public output. A record with no matching verdict is retained with a
// zero score and no tags; only an explicit keep=false removes a record.
// The internal keep flag never appears in the result.
func Finalize(records []model.Message, verdicts []model.Verdict) []model.ClassifiedMessage {
	byKey := make(map[model.MessageKey]model.Verdict, len(verdicts))
	for _, v := range verdicts {
		byKey[model.MessageKey{ID: v.ID, Platform: v.Platform}] = v
	}

	out := make([]model.ClassifiedMessage, 0, len(records))
	for _, r := range records {
		verdict, matched := byKey[r.Key()]
		if matched && !verdict.Keep {
			continue
		}

		cm := model.ClassifiedMessage{Message: r}
		if matched {
			cm.Score = verdict.Score
			cm.Tags = verdict.Tags
		}
		out = append(out, cm)
	}
	return out
}
