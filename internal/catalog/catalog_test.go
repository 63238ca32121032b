package catalog_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/iplantc/decat/internal/apperr"
	"github.com/iplantc/decat/internal/catalog"
	"github.com/iplantc/decat/internal/category"
	"github.com/iplantc/decat/internal/models"
	"github.com/iplantc/decat/internal/seed"
	"github.com/iplantc/decat/internal/testutil"
)

func countsByID(cats []category.Category) map[string]int {
	out := make(map[string]int)
	var walk func([]category.Category)
	walk = func(cs []category.Category) {
		for _, c := range cs {
			out[c.ID] = c.AppCount
			walk(c.Categories)
		}
	}
	walk(cats)
	return out
}

func TestCategories_NestedWithSubtreeCounts(t *testing.T) {
	db, _ := testutil.TestSeeded(t)

	cats, err := db.Categories()
	if err != nil {
		t.Fatalf("Categories: %v", err)
	}
	if len(cats) != 2 || cats[0].ID != "pub" || cats[1].ID != "ws" {
		t.Fatalf("roots = %+v, want [pub ws]", cats)
	}
	want := map[string]int{"pub": 4, "seq": 3, "align": 2, "img": 1, "ws": 2, "dev": 1, "fav": 1}
	if diff := cmp.Diff(want, countsByID(cats)); diff != "" {
		t.Errorf("counts (-want +got):\n%s", diff)
	}
}

func TestSync_SkipsUnchangedSeed(t *testing.T) {
	db, store := testutil.TestSeeded(t)
	changed, err := catalog.Sync(db, store, testutil.SeedFile, testutil.Logger())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if changed {
		t.Error("second sync of the same seed should be a no-op")
	}
}

func TestSync_ReplacesOnChange(t *testing.T) {
	db, store := testutil.TestSeeded(t)
	_ = store.Write(testutil.SeedFile, []byte("categories:\n  - id: only\n    name: Only\n"))

	changed, err := catalog.Sync(db, store, testutil.SeedFile, testutil.Logger())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if !changed {
		t.Fatal("expected catalog to change")
	}
	cats, _ := db.Categories()
	if len(cats) != 1 || cats[0].ID != "only" {
		t.Errorf("categories after replace = %+v", cats)
	}
	if _, err := db.GetApp("bwa"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("old app survived replace: %v", err)
	}
}

func TestSync_InvalidSeedKeepsCatalog(t *testing.T) {
	db, store := testutil.TestSeeded(t)
	_ = store.Write(testutil.SeedFile, []byte("apps:\n  - id: x\n    name: X\n    categories: [missing]\n"))

	if _, err := catalog.Sync(db, store, testutil.SeedFile, testutil.Logger()); err == nil {
		t.Fatal("expected validation error")
	}
	if _, err := db.GetApp("bwa"); err != nil {
		t.Errorf("catalog should be untouched: %v", err)
	}
}

func TestAppsInCategory_Subtree(t *testing.T) {
	db, _ := testutil.TestSeeded(t)

	apps, err := db.AppsInCategory("seq")
	if err != nil {
		t.Fatalf("AppsInCategory: %v", err)
	}
	var ids []string
	for _, a := range apps {
		ids = append(ids, a.ID)
	}
	if diff := cmp.Diff([]string{"bowtie", "bwa", "fastqc"}, ids); diff != "" {
		t.Errorf("apps (-want +got):\n%s", diff)
	}

	if _, err := db.AppsInCategory("nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown category err = %v", err)
	}
}

func TestGetApp(t *testing.T) {
	db, _ := testutil.TestSeeded(t)
	app, err := db.GetApp("bowtie")
	if err != nil {
		t.Fatalf("GetApp: %v", err)
	}
	if !app.IsFavorite {
		t.Error("bowtie should be a favorite")
	}
	if diff := cmp.Diff([]string{"align", "fav"}, app.CategoryIDs); diff != "" {
		t.Errorf("category ids (-want +got):\n%s", diff)
	}
}

func TestMembershipChangesCount(t *testing.T) {
	db, _ := testutil.TestSeeded(t)

	if err := db.AddAppToCategory("fiji", "align"); err != nil {
		t.Fatalf("AddAppToCategory: %v", err)
	}
	// Filing twice is a no-op.
	if err := db.AddAppToCategory("fiji", "align"); err != nil {
		t.Fatalf("repeat AddAppToCategory: %v", err)
	}
	n, _ := db.CountApps("align")
	if n != 3 {
		t.Errorf("align count = %d, want 3", n)
	}
	// fiji was already in img, so pub still has 4 distinct apps.
	n, _ = db.CountApps("pub")
	if n != 4 {
		t.Errorf("pub count = %d, want 4", n)
	}

	if err := db.RemoveAppFromCategory("fiji", "align"); err != nil {
		t.Fatalf("RemoveAppFromCategory: %v", err)
	}
	if err := db.RemoveAppFromCategory("fiji", "align"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second remove err = %v, want ErrNotFound", err)
	}
	if err := db.AddAppToCategory("ghost", "align"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown app err = %v, want ErrNotFound", err)
	}
}

func TestSetFavorite(t *testing.T) {
	db, _ := testutil.TestSeeded(t)

	changed, err := db.SetFavorite("bwa", true, "fav")
	if err != nil || !changed {
		t.Fatalf("SetFavorite = %v, %v", changed, err)
	}
	n, _ := db.CountApps("fav")
	if n != 2 {
		t.Errorf("fav count = %d, want 2", n)
	}

	changed, err = db.SetFavorite("bwa", true, "fav")
	if err != nil || changed {
		t.Errorf("repeat SetFavorite = %v, %v; want unchanged", changed, err)
	}

	if _, err := db.SetFavorite("bowtie", false, "fav"); err != nil {
		t.Fatalf("unfavorite: %v", err)
	}
	n, _ = db.CountApps("fav")
	if n != 1 {
		t.Errorf("fav count = %d, want 1", n)
	}

	if _, err := db.SetFavorite("ghost", true, ""); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown app err = %v", err)
	}
}

func TestInsertApp(t *testing.T) {
	db, _ := testutil.TestSeeded(t)
	app := models.App{ID: "copy-1", Name: "Copy of BWA", CategoryIDs: []string{"dev"}}
	if err := db.InsertApp(app, []string{"bwa-0.7"}); err != nil {
		t.Fatalf("InsertApp: %v", err)
	}
	if err := db.InsertApp(app, nil); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("duplicate insert err = %v", err)
	}
	comps, err := db.AppComponents("copy-1")
	if err != nil || len(comps) != 1 || comps[0].ID != "bwa-0.7" {
		t.Errorf("components = %+v, %v", comps, err)
	}
	n, _ := db.CountApps("dev")
	if n != 2 {
		t.Errorf("dev count = %d, want 2", n)
	}
}

func TestSearchApps(t *testing.T) {
	db, _ := testutil.TestSeeded(t)
	results, err := db.SearchApps("aligner", 10)
	if err != nil {
		t.Fatalf("SearchApps: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("results = %+v, want bwa and bowtie", results)
	}
}

func TestComponents(t *testing.T) {
	db, _ := testutil.TestSeeded(t)

	all, err := db.Components()
	if err != nil || len(all) != 2 {
		t.Fatalf("Components = %+v, %v", all, err)
	}
	if all[0].Name != "bowtie2" {
		t.Errorf("first component = %q, want bowtie2", all[0].Name)
	}

	found, err := db.SearchComponents("bowtie")
	if err != nil || len(found) != 1 || found[0].Version != "2.5.1" {
		t.Errorf("SearchComponents = %+v, %v", found, err)
	}

	if _, err := db.AppComponents("ghost"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown app err = %v", err)
	}
}

func TestExport_RoundTrip(t *testing.T) {
	db, _ := testutil.TestSeeded(t)
	doc, err := db.Export()
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	want, _ := seed.Parse([]byte(testutil.SampleSeed))
	if diff := cmp.Diff(want.Categories, doc.Categories); diff != "" {
		t.Errorf("categories (-want +got):\n%s", diff)
	}
	if len(doc.Apps) != len(want.Apps) || len(doc.Components) != len(want.Components) {
		t.Errorf("export sizes = %d apps, %d components", len(doc.Apps), len(doc.Components))
	}
	if err := doc.Validate(); err != nil {
		t.Errorf("exported document invalid: %v", err)
	}
}
