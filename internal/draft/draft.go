// Package draft holds the reviewer's in-progress annotation state for one queue
// item and the session-scoped cache that preserves it across navigation.
package draft

import (
	"github.com/akarl/annoq/internal/classify"
	"github.com/akarl/annoq/pkg/models"
)

// Comment is a draft's working comment. A non-empty ID means the text edits an
// existing persisted comment; an empty ID with non-empty text is a new comment.
type Comment struct {
	ID   string
	Text string
}

// ScoreEntry is one working score in a draft, keyed by name.
type ScoreEntry struct {
	Name         string
	Value        float64
	CategoryName string
	Reason       string
}

// Draft is the mutable working state for one item and one reviewer. The
// Original fields are deep copies captured once at hydration and never touched
// again for the draft's lifetime; diffing and unsaved-change detection compare
// against them, so they must reflect exactly what was persisted at hydration time.
type Draft struct {
	Comment Comment
	Scores  []ScoreEntry // insertion order

	OriginalComment Comment
	OriginalScores  []ScoreEntry
}

// Hydrate derives a fresh draft from the item's last-recorded state for
// reviewer: comment = the most recent comment authored by reviewer (latest
// CreatedAt wins), scores = the reviewer-attributable subset of the item's
// feedback scores under both authorship shapes.
func Hydrate(item models.QueueItem, reviewer string) *Draft {
	d := &Draft{}
	var latest *models.Comment
	for i := range item.Comments {
		c := &item.Comments[i]
		if reviewer == "" || c.Author != reviewer {
			continue
		}
		if latest == nil || c.CreatedAt.After(latest.CreatedAt) {
			latest = c
		}
	}
	if latest != nil {
		d.Comment = Comment{ID: latest.ID, Text: latest.Text}
	}
	for _, s := range item.Scores {
		if v, cat, reason, ok := classify.AuthoredEntry(s, reviewer); ok {
			d.Scores = append(d.Scores, ScoreEntry{Name: s.Name, Value: v, CategoryName: cat, Reason: reason})
		}
	}
	d.OriginalComment = d.Comment
	d.OriginalScores = cloneEntries(d.Scores)
	return d
}

// SetComment replaces the draft's comment text, keeping any existing comment ID.
func (d *Draft) SetComment(text string) {
	d.Comment.Text = text
}

// SetScore sets or overwrites the named score. Existing entries keep their
// position; new names append (insertion order).
func (d *Draft) SetScore(name string, value float64, category, reason string) {
	for i := range d.Scores {
		if d.Scores[i].Name == name {
			d.Scores[i] = ScoreEntry{Name: name, Value: value, CategoryName: category, Reason: reason}
			return
		}
	}
	d.Scores = append(d.Scores, ScoreEntry{Name: name, Value: value, CategoryName: category, Reason: reason})
}

// RemoveScore drops the named score from the draft, if present.
func (d *Draft) RemoveScore(name string) {
	for i := range d.Scores {
		if d.Scores[i].Name == name {
			d.Scores = append(d.Scores[:i], d.Scores[i+1:]...)
			return
		}
	}
}

// Score returns the named entry, if present.
func (d *Draft) Score(name string) (ScoreEntry, bool) {
	for _, e := range d.Scores {
		if e.Name == name {
			return e, true
		}
	}
	return ScoreEntry{}, false
}

func cloneEntries(in []ScoreEntry) []ScoreEntry {
	if in == nil {
		return nil
	}
	out := make([]ScoreEntry, len(in))
	copy(out, in)
	return out
}

// Cache maps item identity to a pending draft. Entries are written when the
// reviewer leaves an item with unsaved changes, consulted on re-entry, and
// removed once the item's draft is submitted. Session-local only: entries are
// discarded with the session.
type Cache struct {
	entries map[string]*Draft
}

// NewCache returns an empty draft cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]*Draft)}
}

// Get returns the cached draft for the item, if any.
func (c *Cache) Get(itemID string) (*Draft, bool) {
	d, ok := c.entries[itemID]
	return d, ok
}

// Put stores the draft for the item.
func (c *Cache) Put(itemID string, d *Draft) {
	if itemID == "" || d == nil {
		return
	}
	c.entries[itemID] = d
}

// Evict removes the item's entry. Call after a successful submit so the next
// visit re-hydrates from the now-authoritative server state.
func (c *Cache) Evict(itemID string) {
	delete(c.entries, itemID)
}

// Len returns the number of cached drafts.
func (c *Cache) Len() int {
	return len(c.entries)
}

// GetOrHydrate returns the cached draft for the item if one exists (in-progress
// edits win over re-derivation, and the cached draft's own original snapshot is
// preserved); otherwise it hydrates fresh from the item. Fresh hydration does
// not write into the cache — only leaving an item with unsaved changes does.
func (c *Cache) GetOrHydrate(item models.QueueItem, reviewer string) *Draft {
	if d, ok := c.entries[item.ID]; ok {
		return d
	}
	return Hydrate(item, reviewer)
}
