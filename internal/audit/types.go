package audit

import (
	"context"
	"time"
)

// Entry records one recommendation decision. Entries are append-only;
// nothing in this service updates or deletes them.
type Entry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Strategy  string    `json:"strategy"`
	ItemCount int       `json:"item_count"`
	LatencyMS int64     `json:"latency_ms"`
	CreatedAt time.Time `json:"created_at"`
}

// Sink persists audit entries.
type Sink interface {
	Record(ctx context.Context, entry Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
	Close() error
}
