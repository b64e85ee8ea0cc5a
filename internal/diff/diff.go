// Package diff computes the minimal persistence operations between a draft and
// its original snapshot. All functions are pure and stateless.
package diff

import (
	"strings"

	"github.com/akarl/annoq/internal/draft"
)

// CommentOp is the operation needed to persist a draft's comment.
type CommentOp string

const (
	OpNone   CommentOp = "none"
	OpCreate CommentOp = "create"
	OpUpdate CommentOp = "update"
	OpDelete CommentOp = "delete"
)

// CommentDiff is the single operation for the comment field. CommentID is set
// for update and delete; Text is the trimmed current text for create and update.
type CommentDiff struct {
	Op        CommentOp
	CommentID string
	Text      string
}

// CommentChange compares the draft's current comment against its original
// snapshot. Empty trimmed text with no original id is nothing to do; empty text
// over an existing id deletes it; new text with no id creates; differing text
// over an id updates; equal text is nothing to do.
func CommentChange(current, original draft.Comment) CommentDiff {
	text := strings.TrimSpace(current.Text)
	switch {
	case text == "" && original.ID == "":
		return CommentDiff{Op: OpNone}
	case text == "":
		return CommentDiff{Op: OpDelete, CommentID: original.ID}
	case original.ID == "":
		return CommentDiff{Op: OpCreate, Text: text}
	case text == strings.TrimSpace(original.Text):
		return CommentDiff{Op: OpNone}
	default:
		return CommentDiff{Op: OpUpdate, CommentID: original.ID, Text: text}
	}
}

// ScoreDiff lists the score operations to persist: Changed entries in draft
// insertion order, Deleted names in original insertion order.
type ScoreDiff struct {
	Changed []draft.ScoreEntry
	Deleted []string
}

// ScoreChanges compares current against original by name-based set comparison.
// An entry is changed when its name is new or any of value/reason/category
// differs from the matching original; exact matches are excluded so unchanged
// scores are never rewritten. A name present only in original is deleted.
func ScoreChanges(current, original []draft.ScoreEntry) ScoreDiff {
	orig := make(map[string]draft.ScoreEntry, len(original))
	for _, e := range original {
		orig[e.Name] = e
	}
	kept := make(map[string]bool, len(current))
	var out ScoreDiff
	for _, e := range current {
		kept[e.Name] = true
		if o, ok := orig[e.Name]; ok && o.Value == e.Value && o.CategoryName == e.CategoryName && o.Reason == e.Reason {
			continue
		}
		out.Changed = append(out.Changed, e)
	}
	for _, e := range original {
		if !kept[e.Name] {
			out.Deleted = append(out.Deleted, e.Name)
		}
	}
	return out
}
