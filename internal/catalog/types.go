package catalog

import (
	"context"
	"errors"
)

// ErrUserNotFound is returned when a user id does not resolve in the catalog.
var ErrUserNotFound = errors.New("user not found")

// ErrUnavailable marks transient catalog I/O failures. Callers may retry.
var ErrUnavailable = errors.New("catalog unavailable")

// Preferences holds a user's personalization signal. Either set may be
// empty; an empty set means the user gave no signal for that dimension.
type Preferences struct {
	UserID    string   `json:"user_id"`
	Languages []string `json:"languages"`
	Genres    []string `json:"genres"`
}

// ContentItem is a catalog row with the fields needed to rank it.
// Popularity and Rating are nil when the catalog has no score for the item.
type ContentItem struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Language   string   `json:"language"`
	Genres     []string `json:"genres"`
	Popularity *float64 `json:"popularity,omitempty"`
	Rating     *float64 `json:"rating,omitempty"`
	Featured   bool     `json:"featured"`
}

// PrimaryGenre returns the first genre tag, or empty when untagged.
func (c ContentItem) PrimaryGenre() string {
	if len(c.Genres) == 0 {
		return ""
	}
	return c.Genres[0]
}

// Facade is the read-only query surface over the content catalog.
type Facade interface {
	// UserExists reports whether the user id resolves to a known user.
	UserExists(ctx context.Context, userID string) (bool, error)

	// GetPreferences returns the user's preference record, or nil when the
	// user never recorded one. Absence is not an error.
	GetPreferences(ctx context.Context, userID string) (*Preferences, error)

	// QueryPersonalized returns items whose language is in languages and
	// whose genre tags intersect genres, up to limit.
	QueryPersonalized(ctx context.Context, languages, genres []string, limit int) ([]ContentItem, error)

	// QueryCurated returns featured items only, up to limit.
	QueryCurated(ctx context.Context, limit int) ([]ContentItem, error)

	// Ping verifies the underlying store is reachable.
	Ping(ctx context.Context) error

	Close() error
}
