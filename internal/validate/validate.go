// Package validate derives submission eligibility for the current item and draft.
package validate

import (
	"strings"

	"github.com/akarl/annoq/internal/draft"
	"github.com/akarl/annoq/pkg/models"
)

// Blocking error codes.
const (
	CodeActiveThread = "active_thread"
)

// Error is a submission-blocking reason, surfaced to the caller. Blocking
// errors disable submission; they are not raised as Go errors.
type Error struct {
	Code    string
	Message string
}

// Result reports whether submission is possible and, if not, why.
type Result struct {
	CanSubmit bool
	Errors    []Error
}

// Validate inspects the current item and draft. CanSubmit is true iff there are
// zero blocking errors and the draft has unsaved changes. No errors and no
// changes means submission is disabled (nothing to persist), not an error state.
func Validate(item *models.QueueItem, scope string, d *draft.Draft) Result {
	var errs []Error
	if item != nil && scope == models.ScopeThread && item.ThreadStatus == models.ThreadStatusActive {
		errs = append(errs, Error{
			Code:    CodeActiveThread,
			Message: "active threads cannot accept scores; wait for the thread to become inactive",
		})
	}
	return Result{CanSubmit: len(errs) == 0 && HasUnsavedChanges(d), Errors: errs}
}

// HasUnsavedChanges reports whether the draft differs from its original
// snapshot: trimmed comment text inequality, or any score added, removed, or
// changed on value/reason/category. Same semantics as the diff engine's changed
// computation, as a boolean short-circuit.
func HasUnsavedChanges(d *draft.Draft) bool {
	if d == nil {
		return false
	}
	if strings.TrimSpace(d.Comment.Text) != strings.TrimSpace(d.OriginalComment.Text) {
		return true
	}
	if len(d.Scores) != len(d.OriginalScores) {
		return true
	}
	orig := make(map[string]draft.ScoreEntry, len(d.OriginalScores))
	for _, e := range d.OriginalScores {
		orig[e.Name] = e
	}
	for _, e := range d.Scores {
		o, ok := orig[e.Name]
		if !ok || o.Value != e.Value || o.CategoryName != e.CategoryName || o.Reason != e.Reason {
			return true
		}
	}
	return false
}
