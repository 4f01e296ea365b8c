package catalog

import "context"

// instrumentedFacade delegates to an inner facade and reports every
// failed operation through a callback, keyed by operation name.
type instrumentedFacade struct {
	inner   Facade
	onError func(op string)
}

// WithErrorHook wraps a facade so failed operations invoke hook with the
// operation name. Used to feed the catalog error counter without tying
// this package to a metrics backend.
func WithErrorHook(inner Facade, hook func(op string)) Facade {
	if hook == nil {
		return inner
	}
	return &instrumentedFacade{inner: inner, onError: hook}
}

func (f *instrumentedFacade) UserExists(ctx context.Context, userID string) (bool, error) {
	exists, err := f.inner.UserExists(ctx, userID)
	if err != nil {
		f.onError("user_exists")
	}
	return exists, err
}

func (f *instrumentedFacade) GetPreferences(ctx context.Context, userID string) (*Preferences, error) {
	prefs, err := f.inner.GetPreferences(ctx, userID)
	if err != nil {
		f.onError("get_preferences")
	}
	return prefs, err
}

func (f *instrumentedFacade) QueryPersonalized(ctx context.Context, languages, genres []string, limit int) ([]ContentItem, error) {
	items, err := f.inner.QueryPersonalized(ctx, languages, genres, limit)
	if err != nil {
		f.onError("query_personalized")
	}
	return items, err
}

func (f *instrumentedFacade) QueryCurated(ctx context.Context, limit int) ([]ContentItem, error) {
	items, err := f.inner.QueryCurated(ctx, limit)
	if err != nil {
		f.onError("query_curated")
	}
	return items, err
}

func (f *instrumentedFacade) Ping(ctx context.Context) error {
	if err := f.inner.Ping(ctx); err != nil {
		f.onError("ping")
		return err
	}
	return nil
}

func (f *instrumentedFacade) Close() error {
	return f.inner.Close()
}
