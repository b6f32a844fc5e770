package model

// ScrapeStats records the outcome of one connector invocation, success or
// failure. Kept is always <= Pulled: Pulled counts every item examined
// before filtering, Kept counts the survivors.
type ScrapeStats struct {
	ChannelID string   `json:"channel_id"`
	Platform  Platform `json:"platform"`
	Pulled    int      `json:"pulled"`
	Kept      int      `json:"kept"`
	Success   bool     `json:"success"`
	Error     string   `json:"error,omitempty"`
}

// FailedStats builds the stats entry for a source whose harvest failed
// entirely.
func FailedStats(channelID string, platform Platform, err error) ScrapeStats {
	s := ScrapeStats{ChannelID: channelID, Platform: platform}
	if err != nil {
		s.Error = err.Error()
	}
	return s
}

// TotalCounts sums pulled/kept across all entries for the run summary.
func TotalCounts(stats []ScrapeStats) (pulled, kept int) {
	for _, s := range stats {
		pulled += s.Pulled
		kept += s.Kept
	}
	return pulled, kept
}
