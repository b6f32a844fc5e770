package model

// AllowedTags is the controlled vocabulary the scoring service may assign.
// Tags outside this list are discarded when a response is parsed.
var AllowedTags = []string{
	"news",
	"governance",
	"product",
	"feedback",
	"scam",
	"education",
	"security",
}

// Verdict is the scoring service's decision for a single message, keyed by
// (ID, Platform). A fallback verdict always has Keep=false, Score=0 and no
// tags.
type Verdict struct {
	ID       string   `json:"id"`
	Platform Platform `json:"platform"`
	Keep     bool     `json:"keep"`
	Score    float64  `json:"score"`
	Tags     []string `json:"tags"`
}

// FallbackVerdict returns the deterministic negative verdict substituted
// when classification of a batch fails irrecoverably.
func FallbackVerdict(key MessageKey) Verdict {
	return Verdict{
		ID:       key.ID,
		Platform: key.Platform,
		Keep:     false,
		Score:    0.0,
		Tags:     []string{},
	}
}
