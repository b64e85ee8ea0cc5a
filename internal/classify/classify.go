// Package classify decides whether a queue item is already processed by a reviewer.
package classify

import "github.com/akarl/annoq/pkg/models"

// IsProcessed reports whether the item carries at least one feedback score whose
// name is in recognized and whose authorship attributes to reviewer. An empty
// reviewer never matches (fail-closed). Pure; never mutates its inputs.
func IsProcessed(item models.QueueItem, recognized []string, reviewer string) bool {
	if reviewer == "" || len(recognized) == 0 {
		return false
	}
	names := make(map[string]bool, len(recognized))
	for _, n := range recognized {
		names[n] = true
	}
	for _, s := range item.Scores {
		if !names[s.Name] {
			continue
		}
		if attributesTo(s, reviewer) {
			return true
		}
	}
	return false
}

// attributesTo resolves score authorship under both historical shapes: a
// per-author value map (current) or a single last_updated_by field (legacy).
// The shape is picked by capability, not coerced: a nil map means legacy.
func attributesTo(s models.FeedbackScore, reviewer string) bool {
	if s.ValueByAuthor != nil {
		av, ok := s.ValueByAuthor[reviewer]
		return ok && av.Value != nil
	}
	return s.LastUpdatedBy == reviewer
}

// AuthoredEntry returns the reviewer's recorded (value, category, reason) for
// the score, resolving the same two shapes as IsProcessed. ok is false when the
// score does not attribute to reviewer.
func AuthoredEntry(s models.FeedbackScore, reviewer string) (value float64, category, reason string, ok bool) {
	if reviewer == "" {
		return 0, "", "", false
	}
	if s.ValueByAuthor != nil {
		av, present := s.ValueByAuthor[reviewer]
		if !present || av.Value == nil {
			return 0, "", "", false
		}
		return *av.Value, av.CategoryName, av.Reason, true
	}
	if s.LastUpdatedBy != reviewer {
		return 0, "", "", false
	}
	return s.Value, s.CategoryName, s.Reason, true
}

// Partition splits items into processed and unprocessed ID lists, both in
// full-list order. Recomputed from source on every items/identity/queue change.
func Partition(items []models.QueueItem, recognized []string, reviewer string) (processed, unprocessed []string) {
	for _, it := range items {
		if IsProcessed(it, recognized, reviewer) {
			processed = append(processed, it.ID)
		} else {
			unprocessed = append(unprocessed, it.ID)
		}
	}
	return processed, unprocessed
}
