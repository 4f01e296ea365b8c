package recommend

import (
	"context"
	"fmt"

	"github.com/halfmovies/recsvc/internal/catalog"
)

// Engine decides between the personalized and curated strategies and
// produces a deterministically ranked result.
type Engine struct {
	facade catalog.Facade
	limit  int
}

func NewEngine(facade catalog.Facade, limit int) *Engine {
	if limit <= 0 {
		limit = 5
	}
	return &Engine{facade: facade, limit: limit}
}

// SelectAndRank picks a strategy for the user and returns the ranked,
// truncated projection. It is a pure recomputation: no caching, no audit.
func (e *Engine) SelectAndRank(ctx context.Context, userID string) (Result, error) {
	exists, err := e.facade.UserExists(ctx, userID)
	if err != nil {
		return Result{}, fmt.Errorf("resolve user %q: %w", userID, err)
	}
	if !exists {
		return Result{}, fmt.Errorf("user %q: %w", userID, catalog.ErrUserNotFound)
	}

	prefs, err := e.facade.GetPreferences(ctx, userID)
	if err != nil {
		return Result{}, fmt.Errorf("preferences for %q: %w", userID, err)
	}

	var (
		items    []catalog.ContentItem
		strategy Strategy
	)
	if hasSignal(prefs) {
		items, err = e.facade.QueryPersonalized(ctx, prefs.Languages, prefs.Genres, e.limit)
		if err != nil {
			return Result{}, fmt.Errorf("personalized query for %q: %w", userID, err)
		}
		strategy = StrategyPersonalized
	}

	// A preference match that comes back empty switches whole-sale to the
	// curated path; partial personalized results are never topped up.
	if len(items) == 0 {
		items, err = e.facade.QueryCurated(ctx, e.limit)
		if err != nil {
			return Result{}, fmt.Errorf("curated query for %q: %w", userID, err)
		}
		strategy = StrategyCurated
	}

	catalog.Rank(items)
	if len(items) > e.limit {
		items = items[:e.limit]
	}

	recs := make([]Item, 0, len(items))
	for _, it := range items {
		recs = append(recs, Item{
			ID:       it.ID,
			Title:    it.Title,
			Genre:    it.PrimaryGenre(),
			Language: it.Language,
		})
	}

	return Result{Recommendations: recs, Strategy: strategy}, nil
}

// hasSignal reports whether the record can drive the personalized path:
// both the language set and the genre set must be non-empty.
func hasSignal(p *catalog.Preferences) bool {
	return p != nil && len(p.Languages) > 0 && len(p.Genres) > 0
}
