package catalog

import (
	"fmt"
	"log/slog"

	"github.com/iplantc/decat/internal/seed"
	"github.com/iplantc/decat/internal/storage"
)

// Sync loads the seed document at seedPath into the catalog unless its
// checksum matches the last applied seed. A reload replaces every
// category, app, and membership, including favorites set at runtime.
// It reports whether the catalog changed.
func Sync(db Catalog, store storage.Provider, seedPath string, logger *slog.Logger) (bool, error) {
	info, err := store.Stat(seedPath)
	if err != nil {
		return false, err
	}

	applied, err := db.SeedChecksum()
	if err != nil {
		return false, err
	}
	if applied == info.Checksum {
		logger.Debug("sync: seed unchanged", slog.String("path", seedPath))
		return false, nil
	}

	data, err := store.Read(seedPath)
	if err != nil {
		return false, err
	}
	doc, err := seed.Parse(data)
	if err != nil {
		return false, fmt.Errorf("sync: %s: %w", seedPath, err)
	}
	if err := db.ReplaceFromSeed(doc, storage.Checksum(data)); err != nil {
		return false, err
	}

	logger.Info("sync: seed applied",
		slog.String("path", seedPath),
		slog.Int("categories", countCategories(doc.Categories)),
		slog.Int("apps", len(doc.Apps)),
		slog.Int("components", len(doc.Components)))
	return true, nil
}

func countCategories(cats []seed.Category) int {
	n := 0
	pending := append([]seed.Category(nil), cats...)
	for len(pending) > 0 {
		c := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		n++
		pending = append(pending, c.Categories...)
	}
	return n
}
