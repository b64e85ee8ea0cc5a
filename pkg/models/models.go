// Package models provides shared types for the annoq HTTP API and external tools.
// These types mirror the API JSON and are stable for use by pkg/client and other consumers.
package models

import "time"

// AnnotationQueue is a bounded queue of items (traces or threads) to be judged by a reviewer.
// Scope determines which item family populates the queue; FeedbackDefinitionNames is the set
// of score names recognized for this queue. Immutable for the duration of a review session.
type AnnotationQueue struct {
	ID                      string    `json:"id"`
	Name                    string    `json:"name"`
	Scope                   string    `json:"scope"` // trace or thread
	ProjectID               string    `json:"project_id"`
	ProjectName             string    `json:"project_name,omitempty"`
	Description             string    `json:"description,omitempty"`
	FeedbackDefinitionNames []string  `json:"feedback_definition_names"`
	CreatedAt               time.Time `json:"created_at,omitempty"`
}

// QueueItem is one unit to be judged: a trace or a thread, mutually exclusive per queue.
// ThreadStatus is set only for thread items and affects scoring eligibility.
type QueueItem struct {
	ID           string          `json:"id"`
	ThreadStatus string          `json:"thread_status,omitempty"` // active or inactive; empty for traces
	Input        string          `json:"input,omitempty"`
	Output       string          `json:"output,omitempty"`
	Scores       []FeedbackScore `json:"feedback_scores,omitempty"`
	Comments     []Comment       `json:"comments,omitempty"`
	CreatedAt    time.Time       `json:"created_at,omitempty"`
}

// FeedbackScore is a recorded judgment on an item. Two authorship shapes exist:
// the current shape carries per-author values in ValueByAuthor; the legacy shape
// records a single value with LastUpdatedBy. ValueByAuthor == nil means legacy.
type FeedbackScore struct {
	Name          string                 `json:"name"`
	Value         float64                `json:"value"`
	CategoryName  string                 `json:"category_name,omitempty"`
	Reason        string                 `json:"reason,omitempty"`
	LastUpdatedBy string                 `json:"last_updated_by,omitempty"`
	LastUpdatedAt time.Time              `json:"last_updated_at,omitempty"`
	ValueByAuthor map[string]AuthorValue `json:"value_by_author,omitempty"`
}

// AuthorValue is one author's contribution to a per-author feedback score.
// A nil Value means the author has no recorded value (an empty entry).
type AuthorValue struct {
	Value         *float64  `json:"value,omitempty"`
	CategoryName  string    `json:"category_name,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	LastUpdatedAt time.Time `json:"last_updated_at,omitempty"`
}

// Comment is a free-text comment on an item.
type Comment struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// ScoreUpdate is the payload for a score upsert (set or overwrite one score name on one item).
// ProjectID/ProjectName are carried for thread-scoped items only.
type ScoreUpdate struct {
	Name         string  `json:"name"`
	Value        float64 `json:"value"`
	CategoryName string  `json:"category_name,omitempty"`
	Reason       string  `json:"reason,omitempty"`
	ProjectID    string  `json:"project_id,omitempty"`
	ProjectName  string  `json:"project_name,omitempty"`
}
