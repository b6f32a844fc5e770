package model

import "time"

// Platform identifies which connector produced a message.
type Platform string

const (
	PlatformChatGroup Platform = "chatgroup" // persistent-session chat groups
	PlatformChannel   Platform = "channel"   // token-based channel REST API
	PlatformAnalytics Platform = "analytics" // analytics endpoints (tweet aggregates)
)

// Message is one harvested unit. IDs are source-native and unique only
// within their platform; integer ids are rendered base-10. Messages are
// immutable after the connector returns them.
type Message struct {
	ID        string    `json:"id"`
	Platform  Platform  `json:"platform"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Author    string    `json:"author,omitempty"`
	Links     []string  `json:"links"`
}

// Key returns the identity key used to join verdicts onto messages.
func (m Message) Key() MessageKey {
	return MessageKey{ID: m.ID, Platform: m.Platform}
}

// MessageKey identifies a message across the classification boundary.
type MessageKey struct {
	ID       string
	Platform Platform
}

// ClassifiedMessage is the public output shape: the original message plus
// its relevance score and tags. The internal keep flag is never exposed.
type ClassifiedMessage struct {
	Message
	Score float64  `json:"score"`
	Tags  []string `json:"tags"`
}
