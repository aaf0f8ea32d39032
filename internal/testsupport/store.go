package testsupport

import (
	"context"
	"testing"

	"heatclip/internal/clipstore"
	"heatclip/internal/config"
)

// MustOpenStore opens a clipstore.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *clipstore.Store {
	t.Helper()

	store, err := clipstore.Open(cfg.DatabasePath())
	if err != nil {
		t.Fatalf("clipstore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustAddClip inserts a clip for tests using the provided store.
func MustAddClip(t testing.TB, store *clipstore.Store, clip clipstore.Clip) {
	t.Helper()

	if clip.Link == "" {
		clip.Link = "https://www.youtube.com/watch?v=test"
	}
	if err := store.Add(context.Background(), clip); err != nil {
		t.Fatalf("store.Add: %v", err)
	}
}

// IntPtr returns a pointer to v for optional label and prediction fields.
func IntPtr(v int) *int { return &v }
