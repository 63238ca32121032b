// Package testutil provides shared test helpers for setting up catalogs.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/iplantc/decat/internal/catalog"
	"github.com/iplantc/decat/internal/storage"
)

// SeedFile is the seed path used by TestSeeded.
const SeedFile = "catalog.yaml"

// SampleSeed is a small catalog exercising nesting, favorites, the user
// apps group, and components.
//
// Subtree counts: pub 4, seq 3, align 2, img 1, ws 2, dev 1, fav 1.
const SampleSeed = `
categories:
  - id: pub
    name: Public Apps
    categories:
      - id: seq
        name: Sequencing
        categories:
          - id: align
            name: Alignment
      - id: img
        name: Imaging
  - id: ws
    name: Workspace
    categories:
      - id: dev
        name: Apps under development
      - id: fav
        name: Favorite Apps
apps:
  - id: bwa
    name: BWA
    description: Burrows-Wheeler short read aligner
    integrator: Ana
    categories: [align]
    components: [bwa-0.7]
  - id: bowtie
    name: Bowtie2
    description: Fast gapped-read aligner
    favorite: true
    categories: [align, fav]
    components: [bowtie-2.5]
  - id: fastqc
    name: FastQC
    description: Read quality control
    categories: [seq]
  - id: fiji
    name: Fiji
    description: Image processing
    categories: [img]
  - id: draft
    name: My Draft Tool
    categories: [dev]
components:
  - id: bwa-0.7
    name: bwa
    version: 0.7.17
    location: /usr/local/bin
  - id: bowtie-2.5
    name: bowtie2
    version: 2.5.1
    location: /usr/local/bin
    description: Bowtie 2 aligner
`

// Logger returns a logger that discards everything below errors.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// TestDB creates a temporary SQLite catalog that is automatically cleaned up.
func TestDB(t *testing.T) *catalog.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "decat-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := catalog.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestCatalogDir creates a temporary catalog directory with a storage.Provider.
func TestCatalogDir(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// TestSeeded returns a catalog loaded from SampleSeed and the store that
// holds the seed file.
func TestSeeded(t *testing.T) (*catalog.DB, storage.Provider) {
	t.Helper()
	_, store := TestCatalogDir(t)
	if err := store.Write(SeedFile, []byte(SampleSeed)); err != nil {
		t.Fatal(err)
	}
	db := TestDB(t)
	if _, err := catalog.Sync(db, store, SeedFile, Logger()); err != nil {
		t.Fatalf("sync sample seed: %v", err)
	}
	return db, store
}

// Eventually polls fn every tick until it returns true or timeout elapses.
func Eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}
