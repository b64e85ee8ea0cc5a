package store

import (
	"context"
	"fmt"
	"time"

	"github.com/akarl/annoq/pkg/models"
)

// SeedDemo populates an empty database with two demo queues so a fresh
// install has something to review. No-op when any queue already exists.
func (s *Store) SeedDemo(ctx context.Context) error {
	var n int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM annotation_queues`).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	traceQueue := models.AnnotationQueue{
		ID:                      "demo-traces",
		Name:                    "Demo trace review",
		Scope:                   models.ScopeTrace,
		ProjectID:               "demo-project",
		ProjectName:             "demo",
		Description:             "Sample single-turn completions for scoring.",
		FeedbackDefinitionNames: []string{"clarity", "tone"},
	}
	if _, err := s.CreateQueue(ctx, traceQueue); err != nil {
		return err
	}
	threadQueue := models.AnnotationQueue{
		ID:                      "demo-threads",
		Name:                    "Demo thread review",
		Scope:                   models.ScopeThread,
		ProjectID:               "demo-project",
		ProjectName:             "demo",
		Description:             "Sample conversations; close a thread before scoring it.",
		FeedbackDefinitionNames: []string{"helpfulness"},
	}
	if _, err := s.CreateQueue(ctx, threadQueue); err != nil {
		return err
	}

	traceItems := []models.QueueItem{
		{ID: "demo-trace-1", Input: "Summarize the meeting notes.", Output: "The team agreed to ship on Friday."},
		{ID: "demo-trace-2", Input: "Translate 'good morning' to French.", Output: "Bonjour."},
		{ID: "demo-trace-3", Input: "Explain recursion briefly.", Output: "A function that calls itself until a base case stops it."},
	}
	for _, it := range traceItems {
		if _, err := s.AddQueueItem(ctx, traceQueue.ID, it); err != nil {
			return err
		}
	}
	threadItems := []models.QueueItem{
		{ID: "demo-thread-1", ThreadStatus: models.ThreadStatusInactive, Input: "How do I reset my password?", Output: "Use the link on the sign-in page."},
		{ID: "demo-thread-2", ThreadStatus: models.ThreadStatusActive, Input: "My export keeps failing.", Output: "Can you share the job ID?"},
	}
	for _, it := range threadItems {
		if _, err := s.AddQueueItem(ctx, threadQueue.ID, it); err != nil {
			return err
		}
	}

	// One pre-scored trace, authored by another reviewer, so the demo queue
	// opens partially processed. Includes a legacy-shaped row (per_author=0)
	// to exercise the last_updated_by path.
	if _, err := s.CreateComment(ctx, "demo-trace-1", "sam", "Accurate but terse."); err != nil {
		return err
	}
	if err := s.UpsertScore(ctx, "demo-trace-1", "sam", models.ScoreUpdate{Name: "clarity", Value: 4}); err != nil {
		return err
	}
	if _, err := s.DB.ExecContext(ctx, `
INSERT INTO feedback_scores(item_id, name, author, value, category_name, reason, per_author, updated_at)
VALUES('demo-trace-2', 'tone', 'sam', 3, '', 'slightly flat', 0, ?)`, time.Now().Unix()); err != nil {
		return fmt.Errorf("seed legacy score: %w", err)
	}
	return nil
}
