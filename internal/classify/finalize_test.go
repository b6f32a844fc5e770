package classify

import (
	"testing"
	"time"

	"github.com/anditomara/chatpulse/internal/model"
)

func TestFinalize_DropsOnlyExplicitDiscards(t *testing.T) {
	ts := time.Now().UTC()
	records := []model.Message{
		{ID: "1", Platform: model.PlatformChannel, Text: "kept", Timestamp: ts},
		{ID: "2", Platform: model.PlatformChannel, Text: "discarded", Timestamp: ts},
		{ID: "3", Platform: model.PlatformChannel, Text: "no verdict", Timestamp: ts},
	}
	verdicts := []model.Verdict{
		{ID: "1", Platform: model.PlatformChannel, Keep: true, Score: 0.85, Tags: []string{"news"}},
		{ID: "2", Platform: model.PlatformChannel, Keep: false, Score: 0.1, Tags: []string{}},
	}

	out := Finalize(records, verdicts)

	if len(out) != 2 {
		t.Fatalf("expected 2 records, got %d", len(out))
	}
	if out[0].ID != "1" || out[0].Score != 0.85 {
		t.Errorf("unexpected first record %+v", out[0])
	}
	if out[1].ID != "3" {
		t.Errorf("record without a verdict must be retained, got %+v", out[1])
	}
	if out[1].Score != 0 || out[1].Tags != nil {
		t.Errorf("unmatched record must carry zero score and no tags, got %+v", out[1])
	}
}

func TestFinalize_JoinsByIDAndPlatform(t *testing.T) {
	ts := time.Now().UTC()
	records := []model.Message{
		{ID: "7", Platform: model.PlatformChannel, Text: "channel seven", Timestamp: ts},
		{ID: "7", Platform: model.PlatformChatGroup, Text: "group seven", Timestamp: ts},
	}
	verdicts := []model.Verdict{
		{ID: "7", Platform: model.PlatformChatGroup, Keep: false},
	}

	out := Finalize(records, verdicts)

	if len(out) != 1 {
		t.Fatalf("expected 1 record, got %d", len(out))
	}
	if out[0].Platform != model.PlatformChannel {
		t.Errorf("discard must only hit the matching platform, got %+v", out[0])
	}
}

func TestFinalize_Empty(t *testing.T) {
	out := Finalize(nil, nil)
	if len(out) != 0 {
		t.Errorf("expected empty output, got %d records", len(out))
	}
}
