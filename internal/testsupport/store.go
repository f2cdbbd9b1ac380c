package testsupport

import (
	"testing"

	"github.com/HanifCarroll/vox-prismatic-sub008/internal/config"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/content"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/queue"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/scheduler"
)

// MustOpenStore opens a job store for the provided config and registers
// cleanup. When cfg is nil a fresh test config is generated.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	if cfg == nil {
		cfg = NewConfig(t)
	}
	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("open job store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// MustOpenContentStore opens an entity store for the provided config and
// registers cleanup. When cfg is nil a fresh test config is generated.
func MustOpenContentStore(t testing.TB, cfg *config.Config) *content.Store {
	t.Helper()

	if cfg == nil {
		cfg = NewConfig(t)
	}
	store, err := content.Open(cfg)
	if err != nil {
		t.Fatalf("open content store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// MustOpenSchedulerStore opens a scheduler store for the provided config and
// registers cleanup. When cfg is nil a fresh test config is generated.
func MustOpenSchedulerStore(t testing.TB, cfg *config.Config) *scheduler.Store {
	t.Helper()

	if cfg == nil {
		cfg = NewConfig(t)
	}
	store, err := scheduler.Open(cfg)
	if err != nil {
		t.Fatalf("open scheduler store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
