package store

import (
	"time"

	"github.com/akarl/annoq/pkg/models"
)

// ScoreRow is one stored feedback-score row: (item, name, author). Rows written
// by the API carry PerAuthor = true; imported legacy data does not.
type ScoreRow struct {
	ItemID       string
	Name         string
	Author       string
	Value        float64
	CategoryName string
	Reason       string
	PerAuthor    bool
	UpdatedAt    time.Time
}

// AssembleScores folds rows (ordered by UpdatedAt ascending) for a single item
// into API-shaped feedback scores, one per name, in first-seen name order.
// A name whose rows all predate the per-author shape is emitted legacy-shaped
// (single value, last_updated_by, no map); otherwise the rows become a
// value_by_author map with the aggregate fields set from the latest row.
func AssembleScores(rows []ScoreRow) []models.FeedbackScore {
	var order []string
	byName := make(map[string][]ScoreRow)
	for _, r := range rows {
		if _, seen := byName[r.Name]; !seen {
			order = append(order, r.Name)
		}
		byName[r.Name] = append(byName[r.Name], r)
	}

	var out []models.FeedbackScore
	for _, name := range order {
		group := byName[name]
		latest := group[len(group)-1]
		fs := models.FeedbackScore{
			Name:          name,
			Value:         latest.Value,
			CategoryName:  latest.CategoryName,
			Reason:        latest.Reason,
			LastUpdatedBy: latest.Author,
			LastUpdatedAt: latest.UpdatedAt,
		}
		perAuthor := false
		for _, r := range group {
			if r.PerAuthor {
				perAuthor = true
				break
			}
		}
		if perAuthor {
			fs.ValueByAuthor = make(map[string]models.AuthorValue, len(group))
			for _, r := range group {
				v := r.Value
				fs.ValueByAuthor[r.Author] = models.AuthorValue{
					Value:         &v,
					CategoryName:  r.CategoryName,
					Reason:        r.Reason,
					LastUpdatedAt: r.UpdatedAt,
				}
			}
		}
		out = append(out, fs)
	}
	return out
}
