// Package store defines the persistence interface and shared helpers for
// annotation queues, queue items, comments, and feedback scores.
// Implementations: *Store (SQLite, default) and *postgres.Store (PostgreSQL).
package store

import (
	"context"

	"github.com/akarl/annoq/pkg/models"
)

// Interface is the persistence contract the HTTP API is served from.
type Interface interface {
	// Queues
	ListQueues(ctx context.Context, limit int) ([]models.AnnotationQueue, error)
	GetQueue(ctx context.Context, id string) (*models.AnnotationQueue, error)
	CreateQueue(ctx context.Context, q models.AnnotationQueue) (string, error)
	DeleteQueue(ctx context.Context, id string) error

	// Items
	ListQueueItems(ctx context.Context, queueID string, limit int) ([]models.QueueItem, error)
	AddQueueItem(ctx context.Context, queueID string, item models.QueueItem) (string, error)
	SetThreadStatus(ctx context.Context, itemID, status string) error

	// Comments
	CreateComment(ctx context.Context, itemID, author, text string) (string, error)
	UpdateComment(ctx context.Context, commentID, text string) error
	DeleteComments(ctx context.Context, itemID string, ids []string) error

	// Feedback scores. Rows are per (item, name, author); rows written through
	// UpsertScore carry the per-author shape, seeded/imported legacy rows do not.
	UpsertScore(ctx context.Context, itemID, author string, u models.ScoreUpdate) error
	DeleteScores(ctx context.Context, itemID, author string, names []string) error

	// Lifecycle
	SeedDemo(ctx context.Context) error
	Close() error
}
