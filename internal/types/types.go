package types

import (
	"time"
)

type TrackedEvent struct {
	ID        int64
	OwnerID   int64
	Query     string
	CreatedAt time.Time
}

type SearchResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
}

// Verdict is the oracle's judgment of a single result. Both predicates must
// hold for the result to be actionable.
type Verdict struct {
	TopicRelevant bool `json:"topic_relevant"`
	FutureDated   bool `json:"future_date"`
}

func (v Verdict) Actionable() bool {
	return v.TopicRelevant && v.FutureDated
}

type EvaluatedResult struct {
	SearchResult
	Verdict
}

type Summary struct {
	Total             int `json:"total_results"`
	Relevant          int `json:"relevant_results"`
	FutureDated       int `json:"future_date_results"`
	RelevantAndFuture int `json:"relevant_and_future"`
}
