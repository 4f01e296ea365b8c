package catalog

import (
	"context"
	"sync"
)

// InMemoryFacade is a map-backed facade for local/dev use and tests.
type InMemoryFacade struct {
	mu    sync.RWMutex
	users map[string]bool
	prefs map[string]Preferences
	items []ContentItem
}

func NewInMemoryFacade() *InMemoryFacade {
	return &InMemoryFacade{
		users: make(map[string]bool),
		prefs: make(map[string]Preferences),
	}
}

// AddUser registers a user, optionally with a preference record.
func (f *InMemoryFacade) AddUser(userID string, prefs *Preferences) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[userID] = true
	if prefs != nil {
		p := *prefs
		p.UserID = userID
		f.prefs[userID] = p
	}
}

// AddItems appends content items to the catalog.
func (f *InMemoryFacade) AddItems(items ...ContentItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, items...)
}

func (f *InMemoryFacade) UserExists(_ context.Context, userID string) (bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.users[userID], nil
}

func (f *InMemoryFacade) GetPreferences(_ context.Context, userID string) (*Preferences, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	p, ok := f.prefs[userID]
	if !ok {
		return nil, nil
	}
	out := p
	return &out, nil
}

func (f *InMemoryFacade) QueryPersonalized(_ context.Context, languages, genres []string, limit int) ([]ContentItem, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	langs := toSet(languages)
	wanted := toSet(genres)
	var out []ContentItem
	for _, it := range f.items {
		if !langs[it.Language] {
			continue
		}
		if !intersects(it.Genres, wanted) {
			continue
		}
		out = append(out, it)
	}
	return truncateRanked(out, limit), nil
}

func (f *InMemoryFacade) QueryCurated(_ context.Context, limit int) ([]ContentItem, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var out []ContentItem
	for _, it := range f.items {
		if !it.Featured {
			continue
		}
		out = append(out, it)
	}
	return truncateRanked(out, limit), nil
}

func (f *InMemoryFacade) Ping(_ context.Context) error { return nil }

func (f *InMemoryFacade) Close() error { return nil }

// truncateRanked mirrors the SQL facade: candidates come back already in
// ranking order, cut to the requested limit.
func truncateRanked(items []ContentItem, limit int) []ContentItem {
	Rank(items)
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

func toSet(values []string) map[string]bool {
	s := make(map[string]bool, len(values))
	for _, v := range values {
		s[v] = true
	}
	return s
}

func intersects(values []string, set map[string]bool) bool {
	for _, v := range values {
		if set[v] {
			return true
		}
	}
	return false
}
