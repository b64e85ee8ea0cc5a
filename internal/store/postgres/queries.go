package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/akarl/annoq/internal/store"
	"github.com/akarl/annoq/pkg/models"
)

func (s *Store) ListQueues(ctx context.Context, limit int) ([]models.AnnotationQueue, error) {
	if limit <= 0 {
		limit = models.DefaultQueueListLimit
	}
	rows, err := s.Pool.Query(ctx, `
SELECT id, name, scope, project_id, project_name, description, feedback_names, created_at
FROM annotation_queues ORDER BY created_at, id LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.AnnotationQueue
	for rows.Next() {
		var q models.AnnotationQueue
		var names string
		var created int64
		if err := rows.Scan(&q.ID, &q.Name, &q.Scope, &q.ProjectID, &q.ProjectName, &q.Description, &names, &created); err != nil {
			return nil, err
		}
		q.FeedbackDefinitionNames = store.SplitNames(names)
		q.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *Store) GetQueue(ctx context.Context, id string) (*models.AnnotationQueue, error) {
	var q models.AnnotationQueue
	var names string
	var created int64
	err := s.Pool.QueryRow(ctx, `
SELECT id, name, scope, project_id, project_name, description, feedback_names, created_at
FROM annotation_queues WHERE id = $1`, id).
		Scan(&q.ID, &q.Name, &q.Scope, &q.ProjectID, &q.ProjectName, &q.Description, &names, &created)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	q.FeedbackDefinitionNames = store.SplitNames(names)
	q.CreatedAt = time.Unix(created, 0).UTC()
	return &q, nil
}

func (s *Store) CreateQueue(ctx context.Context, q models.AnnotationQueue) (string, error) {
	if q.Name == "" {
		return "", errors.New("queue name required")
	}
	if q.Scope != models.ScopeTrace && q.Scope != models.ScopeThread {
		return "", fmt.Errorf("invalid queue scope %q", q.Scope)
	}
	if q.ID == "" {
		q.ID = store.NewID()
	}
	_, err := s.Pool.Exec(ctx, `
INSERT INTO annotation_queues(id, name, scope, project_id, project_name, description, feedback_names, created_at)
VALUES($1, $2, $3, $4, $5, $6, $7, $8)`,
		q.ID, q.Name, q.Scope, q.ProjectID, q.ProjectName, q.Description, store.JoinNames(q.FeedbackDefinitionNames), time.Now().Unix())
	if err != nil {
		return "", err
	}
	return q.ID, nil
}

func (s *Store) DeleteQueue(ctx context.Context, id string) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM annotation_queues WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("queue %s not found", id)
	}
	return nil
}

func (s *Store) ListQueueItems(ctx context.Context, queueID string, limit int) ([]models.QueueItem, error) {
	if limit <= 0 {
		limit = models.DefaultItemListLimit
	}
	rows, err := s.Pool.Query(ctx, `
SELECT id, thread_status, input, output, created_at
FROM queue_items WHERE queue_id = $1 ORDER BY position, id LIMIT $2`, queueID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []models.QueueItem
	for rows.Next() {
		var it models.QueueItem
		var created int64
		if err := rows.Scan(&it.ID, &it.ThreadStatus, &it.Input, &it.Output, &created); err != nil {
			return nil, err
		}
		it.CreatedAt = time.Unix(created, 0).UTC()
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	comments, err := s.queueComments(ctx, queueID)
	if err != nil {
		return nil, err
	}
	scores, err := s.queueScores(ctx, queueID)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].Comments = comments[items[i].ID]
		items[i].Scores = store.AssembleScores(scores[items[i].ID])
	}
	return items, nil
}

func (s *Store) queueComments(ctx context.Context, queueID string) (map[string][]models.Comment, error) {
	rows, err := s.Pool.Query(ctx, `
SELECT c.id, c.item_id, c.author, c.text, c.created_at
FROM item_comments c JOIN queue_items i ON i.id = c.item_id
WHERE i.queue_id = $1 ORDER BY c.created_at, c.id`, queueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string][]models.Comment)
	for rows.Next() {
		var c models.Comment
		var itemID string
		var created int64
		if err := rows.Scan(&c.ID, &itemID, &c.Author, &c.Text, &created); err != nil {
			return nil, err
		}
		c.CreatedAt = time.Unix(created, 0).UTC()
		out[itemID] = append(out[itemID], c)
	}
	return out, rows.Err()
}

func (s *Store) queueScores(ctx context.Context, queueID string) (map[string][]store.ScoreRow, error) {
	rows, err := s.Pool.Query(ctx, `
SELECT f.item_id, f.name, f.author, f.value, f.category_name, f.reason, f.per_author, f.updated_at
FROM feedback_scores f JOIN queue_items i ON i.id = f.item_id
WHERE i.queue_id = $1 ORDER BY f.updated_at, f.name`, queueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string][]store.ScoreRow)
	for rows.Next() {
		var r store.ScoreRow
		var perAuthor int16
		var updated int64
		if err := rows.Scan(&r.ItemID, &r.Name, &r.Author, &r.Value, &r.CategoryName, &r.Reason, &perAuthor, &updated); err != nil {
			return nil, err
		}
		r.PerAuthor = perAuthor != 0
		r.UpdatedAt = time.Unix(updated, 0).UTC()
		out[r.ItemID] = append(out[r.ItemID], r)
	}
	return out, rows.Err()
}

func (s *Store) AddQueueItem(ctx context.Context, queueID string, item models.QueueItem) (string, error) {
	if item.ID == "" {
		item.ID = store.NewID()
	}
	_, err := s.Pool.Exec(ctx, `
INSERT INTO queue_items(id, queue_id, thread_status, input, output, position, created_at)
VALUES($1, $2, $3, $4, $5, (SELECT COALESCE(MAX(position), 0) + 1 FROM queue_items WHERE queue_id = $2), $6)`,
		item.ID, queueID, item.ThreadStatus, item.Input, item.Output, time.Now().Unix())
	if err != nil {
		return "", err
	}
	return item.ID, nil
}

func (s *Store) SetThreadStatus(ctx context.Context, itemID, status string) error {
	if status != models.ThreadStatusActive && status != models.ThreadStatusInactive {
		return fmt.Errorf("invalid thread status %q", status)
	}
	tag, err := s.Pool.Exec(ctx, `UPDATE queue_items SET thread_status = $1 WHERE id = $2`, status, itemID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("item %s not found", itemID)
	}
	return nil
}

func (s *Store) CreateComment(ctx context.Context, itemID, author, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", errors.New("comment text required")
	}
	id := store.NewID()
	_, err := s.Pool.Exec(ctx, `
INSERT INTO item_comments(id, item_id, author, text, created_at) VALUES($1, $2, $3, $4, $5)`,
		id, itemID, author, text, time.Now().Unix())
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) UpdateComment(ctx context.Context, commentID, text string) error {
	tag, err := s.Pool.Exec(ctx, `UPDATE item_comments SET text = $1 WHERE id = $2`, text, commentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("comment %s not found", commentID)
	}
	return nil
}

func (s *Store) DeleteComments(ctx context.Context, itemID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.Pool.Exec(ctx, `DELETE FROM item_comments WHERE item_id = $1 AND id = ANY($2)`, itemID, ids)
	return err
}

func (s *Store) UpsertScore(ctx context.Context, itemID, author string, u models.ScoreUpdate) error {
	if u.Name == "" {
		return errors.New("score name required")
	}
	if author == "" {
		return errors.New("score author required")
	}
	_, err := s.Pool.Exec(ctx, `
INSERT INTO feedback_scores(item_id, name, author, value, category_name, reason, per_author, updated_at)
VALUES($1, $2, $3, $4, $5, $6, 1, $7)
ON CONFLICT (item_id, name, author) DO UPDATE SET
  value = EXCLUDED.value,
  category_name = EXCLUDED.category_name,
  reason = EXCLUDED.reason,
  per_author = 1,
  updated_at = EXCLUDED.updated_at`,
		itemID, u.Name, author, u.Value, u.CategoryName, u.Reason, time.Now().Unix())
	return err
}

func (s *Store) DeleteScores(ctx context.Context, itemID, author string, names []string) error {
	if len(names) == 0 {
		return nil
	}
	_, err := s.Pool.Exec(ctx, `DELETE FROM feedback_scores WHERE item_id = $1 AND author = $2 AND name = ANY($3)`, itemID, author, names)
	return err
}

// SeedDemo matches the SQLite seed: two demo queues when the database is empty.
func (s *Store) SeedDemo(ctx context.Context) error {
	var n int
	if err := s.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM annotation_queues`).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if _, err := s.CreateQueue(ctx, models.AnnotationQueue{
		ID: "demo-traces", Name: "Demo trace review", Scope: models.ScopeTrace,
		ProjectID: "demo-project", ProjectName: "demo",
		Description:             "Sample single-turn completions for scoring.",
		FeedbackDefinitionNames: []string{"clarity", "tone"},
	}); err != nil {
		return err
	}
	if _, err := s.CreateQueue(ctx, models.AnnotationQueue{
		ID: "demo-threads", Name: "Demo thread review", Scope: models.ScopeThread,
		ProjectID: "demo-project", ProjectName: "demo",
		Description:             "Sample conversations; close a thread before scoring it.",
		FeedbackDefinitionNames: []string{"helpfulness"},
	}); err != nil {
		return err
	}
	for _, it := range []models.QueueItem{
		{ID: "demo-trace-1", Input: "Summarize the meeting notes.", Output: "The team agreed to ship on Friday."},
		{ID: "demo-trace-2", Input: "Translate 'good morning' to French.", Output: "Bonjour."},
	} {
		if _, err := s.AddQueueItem(ctx, "demo-traces", it); err != nil {
			return err
		}
	}
	for _, it := range []models.QueueItem{
		{ID: "demo-thread-1", ThreadStatus: models.ThreadStatusInactive, Input: "How do I reset my password?", Output: "Use the link on the sign-in page."},
		{ID: "demo-thread-2", ThreadStatus: models.ThreadStatusActive, Input: "My export keeps failing.", Output: "Can you share the job ID?"},
	} {
		if _, err := s.AddQueueItem(ctx, "demo-threads", it); err != nil {
			return err
		}
	}
	return nil
}
