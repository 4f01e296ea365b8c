package catalog

import (
	"context"
	"strings"
)

// NewFacade creates a postgres-backed facade when configured, otherwise in-memory.
func NewFacade(ctx context.Context, databaseURL string) (Facade, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return NewInMemoryFacade(), nil
	}
	return NewPostgresFacade(ctx, databaseURL)
}
