// Package session owns the review state machine for one annotation queue and
// one reviewer: queue position, workflow phase, the draft cache, the current
// draft, and submission orchestration. A Session is single-goroutine by design
// (UI event loop semantics); callers serialize access.
package session

import (
	"github.com/akarl/annoq/internal/classify"
	"github.com/akarl/annoq/internal/draft"
	"github.com/akarl/annoq/internal/validate"
	"github.com/akarl/annoq/pkg/models"
)

// Phase is the workflow phase of a review session, separate from queue position.
type Phase string

const (
	PhaseInitial    Phase = "initial"
	PhaseAnnotating Phase = "annotating"
	PhaseCompleted  Phase = "completed"
)

// Session tracks which items are judged, preserves in-progress edits across
// navigation, and persists per-item deltas on submit. The queue and items are
// fed in by the caller (fetch and refetch are external); the reviewer identity
// is an opaque string and may be empty, in which case nothing ever classifies
// as processed.
type Session struct {
	persist  Persister
	reviewer string

	queue *models.AnnotationQueue
	items []models.QueueItem

	idx            int
	phase          Phase
	completedFired bool

	cache     *draft.Cache
	cur       *draft.Draft
	curItemID string

	unprocessed []string // item IDs not yet processed by reviewer, full-list order
}

// New returns a session for the reviewer. persist may be nil until Submit is used.
func New(persist Persister, reviewer string) *Session {
	return &Session{
		persist:  persist,
		reviewer: reviewer,
		phase:    PhaseInitial,
		cache:    draft.NewCache(),
	}
}

// SetQueue sets the queue definition and recomputes the processed partition.
func (s *Session) SetQueue(q *models.AnnotationQueue) {
	s.queue = q
	s.recompute()
	s.resolveCurrent()
}

// SetItems replaces the item list. Each refresh is a full replacement, not a
// patch: the partition and the COMPLETED check are recomputed, but the current
// index and cached drafts survive so in-flight reviewer work outlives polling.
// The index is clamped only if the list shrank beneath it.
func (s *Session) SetItems(items []models.QueueItem) {
	s.items = items
	if s.idx >= len(items) {
		s.idx = 0
		if n := len(items); n > 0 {
			s.idx = n - 1
		}
	}
	// If the refresh moved a different item under the current index, stash the
	// outgoing draft exactly as navigation would.
	if it := s.CurrentItem(); it == nil || it.ID != s.curItemID {
		s.leaveCurrent()
		s.cur, s.curItemID = nil, ""
	}
	s.recompute()
	s.resolveCurrent()
}

// Queue returns the queue definition, or nil before SetQueue.
func (s *Session) Queue() *models.AnnotationQueue { return s.queue }

// Reviewer returns the reviewer identity the session was created with.
func (s *Session) Reviewer() string { return s.reviewer }

// Phase returns the current workflow phase.
func (s *Session) Phase() Phase { return s.phase }

// CurrentIndex returns the 0-based position in the full item list.
func (s *Session) CurrentIndex() int { return s.idx }

// CurrentItem returns the item at the current index, or nil when no items are loaded.
func (s *Session) CurrentItem() *models.QueueItem {
	if s.idx < 0 || s.idx >= len(s.items) {
		return nil
	}
	return &s.items[s.idx]
}

// CurrentDraft returns the working draft for the current item, or nil when no
// items are loaded.
func (s *Session) CurrentDraft() *draft.Draft { return s.cur }

// UnprocessedIDs returns the IDs of items not yet processed by the reviewer,
// in full-list order.
func (s *Session) UnprocessedIDs() []string {
	out := make([]string, len(s.unprocessed))
	copy(out, s.unprocessed)
	return out
}

// ItemCount returns the number of loaded items.
func (s *Session) ItemCount() int { return len(s.items) }

// CachedDrafts returns the number of stashed (unsaved, navigated-away) drafts.
func (s *Session) CachedDrafts() int { return s.cache.Len() }

// SetComment replaces the current draft's comment text. Safe no-op with no
// current item (e.g. queue not yet loaded).
func (s *Session) SetComment(text string) {
	if s.cur != nil {
		s.cur.SetComment(text)
	}
}

// SetScore sets or overwrites the named score on the current draft. Safe no-op
// with no current item.
func (s *Session) SetScore(name string, value float64, category, reason string) {
	if s.cur != nil {
		s.cur.SetScore(name, value, category, reason)
	}
}

// RemoveScore drops the named score from the current draft. Safe no-op with no
// current item.
func (s *Session) RemoveScore(name string) {
	if s.cur != nil {
		s.cur.RemoveScore(name)
	}
}

// Validate returns submission eligibility for the current item and draft.
func (s *Session) Validate() validate.Result {
	scope := ""
	if s.queue != nil {
		scope = s.queue.Scope
	}
	return validate.Validate(s.CurrentItem(), scope, s.cur)
}

// HasUnsavedChanges reports whether the current draft differs from its original snapshot.
func (s *Session) HasUnsavedChanges() bool {
	return validate.HasUnsavedChanges(s.cur)
}

// Next moves to the next item, clamped to bounds. Unsaved edits on the current
// item are stashed into the draft cache first.
func (s *Session) Next() { s.moveTo(s.idx + 1) }

// Previous moves to the previous item, clamped to bounds. Unsaved edits on the
// current item are stashed into the draft cache first.
func (s *Session) Previous() { s.moveTo(s.idx - 1) }

// StartAnnotating enters the ANNOTATING phase and jumps to the first
// unprocessed item if any exist (full-list order); otherwise position stays put.
func (s *Session) StartAnnotating() {
	s.phase = PhaseAnnotating
	if len(s.unprocessed) > 0 {
		s.moveTo(s.indexOf(s.unprocessed[0]))
	}
}

// AdvanceToNextUnprocessed moves to the unprocessed item immediately following
// the current item in full-list order. From the last unprocessed item (or when
// the current item is not in the unprocessed list) it wraps to the first
// unprocessed item, so the reviewer loops until the queue is exhausted. With no
// unprocessed items at all it falls back to a plain bounded Next.
func (s *Session) AdvanceToNextUnprocessed() {
	if len(s.unprocessed) == 0 {
		s.Next()
		return
	}
	curID := ""
	if it := s.CurrentItem(); it != nil {
		curID = it.ID
	}
	pos := -1
	for i, id := range s.unprocessed {
		if id == curID {
			pos = i
			break
		}
	}
	target := s.unprocessed[0]
	if pos >= 0 && pos < len(s.unprocessed)-1 {
		target = s.unprocessed[pos+1]
	}
	s.moveTo(s.indexOf(target))
}

// moveTo changes the current index, stashing the outgoing draft when it has
// unsaved changes (untouched drafts are not cached) and resolving the draft for
// the incoming item. Out-of-bounds targets are ignored.
func (s *Session) moveTo(i int) {
	if i < 0 || i >= len(s.items) {
		return
	}
	s.leaveCurrent()
	s.idx = i
	s.cur, s.curItemID = nil, ""
	s.resolveCurrent()
}

// leaveCurrent writes the current draft into the cache iff it has unsaved
// changes. Called before any index change and before session-external teardown.
func (s *Session) leaveCurrent() {
	if s.cur == nil || s.curItemID == "" {
		return
	}
	if validate.HasUnsavedChanges(s.cur) {
		s.cache.Put(s.curItemID, s.cur)
	}
}

// resolveCurrent binds s.cur to the draft for the item at the current index:
// the live draft if the item identity is unchanged (edits survive refetch), the
// cached draft if one was stashed, else a fresh hydration from the item state.
func (s *Session) resolveCurrent() {
	it := s.CurrentItem()
	if it == nil {
		s.cur, s.curItemID = nil, ""
		return
	}
	if it.ID == s.curItemID && s.cur != nil {
		return
	}
	s.cur = s.cache.GetOrHydrate(*it, s.reviewer)
	s.curItemID = it.ID
}

// recompute rebuilds the processed partition from source and applies the
// COMPLETED transition. The transition is edge-triggered: it fires once per
// entry into the all-processed state, so a poll that re-delivers the same state
// cannot re-force the phase after the reviewer has moved on.
func (s *Session) recompute() {
	var recognized []string
	if s.queue != nil {
		recognized = s.queue.FeedbackDefinitionNames
	}
	_, s.unprocessed = classify.Partition(s.items, recognized, s.reviewer)

	if len(s.items) > 0 && len(s.unprocessed) == 0 {
		if !s.completedFired {
			s.completedFired = true
			s.phase = PhaseCompleted
		}
	} else {
		s.completedFired = false
	}
}

func (s *Session) indexOf(itemID string) int {
	for i := range s.items {
		if s.items[i].ID == itemID {
			return i
		}
	}
	return -1
}
