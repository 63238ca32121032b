package catalog_test

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/iplantc/decat/internal/catalog"
	"github.com/iplantc/decat/internal/testutil"
)

func TestWatcher_SeedRewriteReloads(t *testing.T) {
	db, store := testutil.TestSeeded(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var reloads atomic.Int32
	go catalog.Watch(ctx, db, store, testutil.SeedFile, testutil.Logger(), func() {
		reloads.Add(1)
	})
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(store.Root(), testutil.SeedFile),
		[]byte("categories:\n  - id: fresh\n    name: Fresh\n"), 0o644)

	testutil.Eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cats, _ := db.Categories()
		return len(cats) == 1 && cats[0].ID == "fresh"
	}, "seed rewrite not synced by watcher")

	testutil.Eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		return reloads.Load() >= 1
	}, "expected reload callback")
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	db, store := testutil.TestSeeded(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var reloads atomic.Int32
	go catalog.Watch(ctx, db, store, testutil.SeedFile, testutil.Logger(), func() {
		reloads.Add(1)
	})
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(store.Root(), "notes.txt"), []byte("unrelated"), 0o644)
	time.Sleep(500 * time.Millisecond)

	if n := reloads.Load(); n != 0 {
		t.Errorf("reloads = %d, want 0", n)
	}
}

func TestWatcher_RenameIntoPlace(t *testing.T) {
	db, store := testutil.TestSeeded(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go catalog.Watch(ctx, db, store, testutil.SeedFile, testutil.Logger(), nil)
	time.Sleep(100 * time.Millisecond)

	// Atomic storage writes land via rename.
	_ = store.Write(testutil.SeedFile, []byte("categories:\n  - id: renamed\n    name: Renamed\n"))

	testutil.Eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cats, _ := db.Categories()
		return len(cats) == 1 && cats[0].ID == "renamed"
	}, "renamed seed not synced by watcher")
}
