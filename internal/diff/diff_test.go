package diff

import (
	"reflect"
	"testing"

	"github.com/akarl/annoq/internal/draft"
)

func TestCommentChange(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name     string
		current  draft.Comment
		original draft.Comment
		want     CommentDiff
	}{
		{"empty both", draft.Comment{}, draft.Comment{}, CommentDiff{Op: OpNone}},
		{"whitespace only, no original", draft.Comment{Text: "   "}, draft.Comment{}, CommentDiff{Op: OpNone}},
		{"cleared existing", draft.Comment{ID: "c1", Text: ""}, draft.Comment{ID: "c1", Text: "old"}, CommentDiff{Op: OpDelete, CommentID: "c1"}},
		{"new text", draft.Comment{Text: " fresh "}, draft.Comment{}, CommentDiff{Op: OpCreate, Text: "fresh"}},
		{"unchanged", draft.Comment{ID: "c1", Text: "same"}, draft.Comment{ID: "c1", Text: "same"}, CommentDiff{Op: OpNone}},
		{"unchanged modulo whitespace", draft.Comment{ID: "c1", Text: " same "}, draft.Comment{ID: "c1", Text: "same"}, CommentDiff{Op: OpNone}},
		{"edited", draft.Comment{ID: "c1", Text: "edited"}, draft.Comment{ID: "c1", Text: "old"}, CommentDiff{Op: OpUpdate, CommentID: "c1", Text: "edited"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := CommentChange(tc.current, tc.original)
			if got != tc.want {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestScoreChanges_completeness(t *testing.T) {
	t.Parallel()
	original := []draft.ScoreEntry{{Name: "clarity", Value: 3}}
	current := []draft.ScoreEntry{{Name: "clarity", Value: 5}, {Name: "tone", Value: 1}}
	got := ScoreChanges(current, original)
	if len(got.Deleted) != 0 {
		t.Fatalf("deleted = %v, want none", got.Deleted)
	}
	want := []draft.ScoreEntry{{Name: "clarity", Value: 5}, {Name: "tone", Value: 1}}
	if !reflect.DeepEqual(got.Changed, want) {
		t.Fatalf("changed = %+v, want %+v", got.Changed, want)
	}
}

func TestScoreChanges_unchangedExcluded(t *testing.T) {
	t.Parallel()
	entries := []draft.ScoreEntry{
		{Name: "clarity", Value: 3, CategoryName: "good", Reason: "fine"},
		{Name: "tone", Value: 1},
	}
	got := ScoreChanges(entries, entries)
	if len(got.Changed) != 0 || len(got.Deleted) != 0 {
		t.Fatalf("no-op diff = %+v", got)
	}
}

func TestScoreChanges_fieldLevelChange(t *testing.T) {
	t.Parallel()
	original := []draft.ScoreEntry{{Name: "clarity", Value: 3, Reason: "ok"}}
	for _, cur := range []draft.ScoreEntry{
		{Name: "clarity", Value: 4, Reason: "ok"},
		{Name: "clarity", Value: 3, Reason: "better"},
		{Name: "clarity", Value: 3, Reason: "ok", CategoryName: "new"},
	} {
		got := ScoreChanges([]draft.ScoreEntry{cur}, original)
		if len(got.Changed) != 1 {
			t.Fatalf("entry %+v should be changed", cur)
		}
	}
}

func TestScoreChanges_deletedKeepsOriginalOrder(t *testing.T) {
	t.Parallel()
	original := []draft.ScoreEntry{
		{Name: "a", Value: 1}, {Name: "b", Value: 2}, {Name: "c", Value: 3},
	}
	got := ScoreChanges([]draft.ScoreEntry{{Name: "b", Value: 2}}, original)
	if !reflect.DeepEqual(got.Deleted, []string{"a", "c"}) {
		t.Fatalf("deleted = %v", got.Deleted)
	}
	if len(got.Changed) != 0 {
		t.Fatalf("changed = %+v, want none", got.Changed)
	}
}
