package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/akarl/annoq/internal/diff"
	"github.com/akarl/annoq/internal/otel"
	"github.com/akarl/annoq/pkg/models"
)

// Persister dispatches annotation writes to the backing service. Trace and
// thread items have distinct call families; the session picks one by queue
// scope. Implementations: *client.Client.
type Persister interface {
	CreateTraceComment(ctx context.Context, traceID, text string) error
	UpdateTraceComment(ctx context.Context, commentID, traceID, text string) error
	DeleteTraceComments(ctx context.Context, traceID string, ids []string) error
	SetTraceScore(ctx context.Context, traceID string, update models.ScoreUpdate) error
	DeleteTraceScore(ctx context.Context, traceID, name string) error

	CreateThreadComment(ctx context.Context, threadID, text string) error
	UpdateThreadComment(ctx context.Context, commentID, threadID, text string) error
	DeleteThreadComments(ctx context.Context, threadID string, ids []string) error
	SetThreadScore(ctx context.Context, threadID string, update models.ScoreUpdate) error
	DeleteThreadScores(ctx context.Context, threadID string, names []string) error
}

// Submit persists the current draft's delta and advances to the next
// unprocessed item. No-op when the queue or items are not loaded, or when a
// blocking validation error applies.
//
// Persistence calls are awaited one by one and failures are joined into the
// returned error for the caller to surface, but the session never rolls back:
// the cache entry is evicted and navigation advances even when a call failed.
// Server state may then trail the reviewer's position; the next refetch
// reconciles what it can. One policy, applied uniformly.
func (s *Session) Submit(ctx context.Context) error {
	it := s.CurrentItem()
	if it == nil || s.queue == nil || s.cur == nil || s.persist == nil {
		return nil
	}
	if r := s.Validate(); len(r.Errors) > 0 {
		return nil
	}

	itemID := it.ID
	isThread := s.queue.Scope == models.ScopeThread
	var errs []error

	cd := diff.CommentChange(s.cur.Comment, s.cur.OriginalComment)
	if cd.Op != diff.OpNone {
		otel.RecordAnnotationOp(ctx, "comment", string(cd.Op))
	}
	switch cd.Op {
	case diff.OpCreate:
		if isThread {
			errs = append(errs, s.persist.CreateThreadComment(ctx, itemID, cd.Text))
		} else {
			errs = append(errs, s.persist.CreateTraceComment(ctx, itemID, cd.Text))
		}
	case diff.OpUpdate:
		if isThread {
			errs = append(errs, s.persist.UpdateThreadComment(ctx, cd.CommentID, itemID, cd.Text))
		} else {
			errs = append(errs, s.persist.UpdateTraceComment(ctx, cd.CommentID, itemID, cd.Text))
		}
	case diff.OpDelete:
		if isThread {
			errs = append(errs, s.persist.DeleteThreadComments(ctx, itemID, []string{cd.CommentID}))
		} else {
			errs = append(errs, s.persist.DeleteTraceComments(ctx, itemID, []string{cd.CommentID}))
		}
	}

	sd := diff.ScoreChanges(s.cur.Scores, s.cur.OriginalScores)
	for range sd.Deleted {
		otel.RecordAnnotationOp(ctx, "score", "delete")
	}
	for range sd.Changed {
		otel.RecordAnnotationOp(ctx, "score", "set")
	}
	if len(sd.Deleted) > 0 {
		if isThread {
			errs = append(errs, s.persist.DeleteThreadScores(ctx, itemID, sd.Deleted))
		} else {
			for _, name := range sd.Deleted {
				errs = append(errs, s.persist.DeleteTraceScore(ctx, itemID, name))
			}
		}
	}
	for _, e := range sd.Changed {
		u := models.ScoreUpdate{Name: e.Name, Value: e.Value, CategoryName: e.CategoryName, Reason: e.Reason}
		if isThread {
			u.ProjectID = s.queue.ProjectID
			u.ProjectName = s.queue.ProjectName
			errs = append(errs, s.persist.SetThreadScore(ctx, itemID, u))
		} else {
			errs = append(errs, s.persist.SetTraceScore(ctx, itemID, u))
		}
	}

	// Committed state is authoritative on the server now: no stale cache entry
	// may linger, and the live draft is dropped so the next visit re-hydrates.
	s.cache.Evict(itemID)
	s.cur, s.curItemID = nil, ""

	s.AdvanceToNextUnprocessed()
	// When navigation clamps in place (end of queue, nothing unprocessed) the
	// current item still needs a fresh draft.
	s.resolveCurrent()

	if err := errors.Join(errs...); err != nil {
		slog.Error("submit persistence incomplete", "item_id", itemID, "err", err)
		return fmt.Errorf("submit item %s: %w", itemID, err)
	}
	return nil
}
