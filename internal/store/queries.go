package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/akarl/annoq/pkg/models"
)

// ListQueues returns queues ordered by creation time (limit 0 = default).
func (s *Store) ListQueues(ctx context.Context, limit int) ([]models.AnnotationQueue, error) {
	if limit <= 0 {
		limit = models.DefaultQueueListLimit
	}
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, name, scope, project_id, project_name, description, feedback_names, created_at
FROM annotation_queues ORDER BY created_at, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []models.AnnotationQueue
	for rows.Next() {
		q, err := scanQueue(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// GetQueue returns the queue by ID, or nil when absent.
func (s *Store) GetQueue(ctx context.Context, id string) (*models.AnnotationQueue, error) {
	row := s.DB.QueryRowContext(ctx, `
SELECT id, name, scope, project_id, project_name, description, feedback_names, created_at
FROM annotation_queues WHERE id = ?`, id)
	q, err := scanQueue(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQueue(r rowScanner) (models.AnnotationQueue, error) {
	var q models.AnnotationQueue
	var names string
	var created int64
	err := r.Scan(&q.ID, &q.Name, &q.Scope, &q.ProjectID, &q.ProjectName, &q.Description, &names, &created)
	if err != nil {
		return q, err
	}
	q.FeedbackDefinitionNames = SplitNames(names)
	q.CreatedAt = time.Unix(created, 0).UTC()
	return q, nil
}

// CreateQueue inserts the queue and returns its ID (generated when empty).
func (s *Store) CreateQueue(ctx context.Context, q models.AnnotationQueue) (string, error) {
	if q.Name == "" {
		return "", errors.New("queue name required")
	}
	if q.Scope != models.ScopeTrace && q.Scope != models.ScopeThread {
		return "", fmt.Errorf("invalid queue scope %q", q.Scope)
	}
	if q.ID == "" {
		q.ID = NewID()
	}
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO annotation_queues(id, name, scope, project_id, project_name, description, feedback_names, created_at)
VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		q.ID, q.Name, q.Scope, q.ProjectID, q.ProjectName, q.Description, JoinNames(q.FeedbackDefinitionNames), time.Now().Unix())
	if err != nil {
		return "", err
	}
	return q.ID, nil
}

// DeleteQueue removes the queue; items, comments, and scores cascade.
func (s *Store) DeleteQueue(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM annotation_queues WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("queue %s not found", id)
	}
	return nil
}

// ListQueueItems returns the queue's items in position order, each with its
// comments (by creation time) and assembled feedback scores.
func (s *Store) ListQueueItems(ctx context.Context, queueID string, limit int) ([]models.QueueItem, error) {
	if limit <= 0 {
		limit = models.DefaultItemListLimit
	}
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, thread_status, input, output, created_at
FROM queue_items WHERE queue_id = ? ORDER BY position, id LIMIT ?`, queueID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
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
		items[i].Scores = AssembleScores(scores[items[i].ID])
	}
	return items, nil
}

func (s *Store) queueComments(ctx context.Context, queueID string) (map[string][]models.Comment, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT c.id, c.item_id, c.author, c.text, c.created_at
FROM item_comments c JOIN queue_items i ON i.id = c.item_id
WHERE i.queue_id = ? ORDER BY c.created_at, c.id`, queueID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
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

func (s *Store) queueScores(ctx context.Context, queueID string) (map[string][]ScoreRow, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT f.item_id, f.name, f.author, f.value, f.category_name, f.reason, f.per_author, f.updated_at
FROM feedback_scores f JOIN queue_items i ON i.id = f.item_id
WHERE i.queue_id = ? ORDER BY f.updated_at, f.name`, queueID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	out := make(map[string][]ScoreRow)
	for rows.Next() {
		var r ScoreRow
		var perAuthor int
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

// AddQueueItem appends the item to the queue and returns its ID.
func (s *Store) AddQueueItem(ctx context.Context, queueID string, item models.QueueItem) (string, error) {
	if item.ID == "" {
		item.ID = NewID()
	}
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO queue_items(id, queue_id, thread_status, input, output, position, created_at)
VALUES(?, ?, ?, ?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM queue_items WHERE queue_id = ?), ?)`,
		item.ID, queueID, item.ThreadStatus, item.Input, item.Output, queueID, time.Now().Unix())
	if err != nil {
		return "", err
	}
	return item.ID, nil
}

// SetThreadStatus updates a thread item's status (active/inactive).
func (s *Store) SetThreadStatus(ctx context.Context, itemID, status string) error {
	if status != models.ThreadStatusActive && status != models.ThreadStatusInactive {
		return fmt.Errorf("invalid thread status %q", status)
	}
	res, err := s.DB.ExecContext(ctx, `UPDATE queue_items SET thread_status = ? WHERE id = ?`, status, itemID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("item %s not found", itemID)
	}
	return nil
}

// CreateComment adds a comment to the item and returns its ID.
func (s *Store) CreateComment(ctx context.Context, itemID, author, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", errors.New("comment text required")
	}
	id := NewID()
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO item_comments(id, item_id, author, text, created_at) VALUES(?, ?, ?, ?, ?)`,
		id, itemID, author, text, time.Now().Unix())
	if err != nil {
		return "", err
	}
	return id, nil
}

// UpdateComment replaces a comment's text.
func (s *Store) UpdateComment(ctx context.Context, commentID, text string) error {
	res, err := s.DB.ExecContext(ctx, `UPDATE item_comments SET text = ? WHERE id = ?`, text, commentID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("comment %s not found", commentID)
	}
	return nil
}

// DeleteComments removes the listed comments from the item.
func (s *Store) DeleteComments(ctx context.Context, itemID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, 0, len(ids)+1)
	args = append(args, itemID)
	for _, id := range ids {
		args = append(args, id)
	}
	q := `DELETE FROM item_comments WHERE item_id = ? AND id IN (?` + strings.Repeat(",?", len(ids)-1) + `)`
	_, err := s.DB.ExecContext(ctx, q, args...)
	return err
}

// UpsertScore sets or overwrites the author's value for one score name.
func (s *Store) UpsertScore(ctx context.Context, itemID, author string, u models.ScoreUpdate) error {
	if u.Name == "" {
		return errors.New("score name required")
	}
	if author == "" {
		return errors.New("score author required")
	}
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO feedback_scores(item_id, name, author, value, category_name, reason, per_author, updated_at)
VALUES(?, ?, ?, ?, ?, ?, 1, ?)
ON CONFLICT(item_id, name, author) DO UPDATE SET
  value = excluded.value,
  category_name = excluded.category_name,
  reason = excluded.reason,
  per_author = 1,
  updated_at = excluded.updated_at`,
		itemID, u.Name, author, u.Value, u.CategoryName, u.Reason, time.Now().Unix())
	return err
}

// DeleteScores removes the author's rows for the named scores.
func (s *Store) DeleteScores(ctx context.Context, itemID, author string, names []string) error {
	if len(names) == 0 {
		return nil
	}
	args := make([]any, 0, len(names)+2)
	args = append(args, itemID, author)
	for _, n := range names {
		args = append(args, n)
	}
	q := `DELETE FROM feedback_scores WHERE item_id = ? AND author = ? AND name IN (?` + strings.Repeat(",?", len(names)-1) + `)`
	_, err := s.DB.ExecContext(ctx, q, args...)
	return err
}
