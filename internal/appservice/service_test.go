package appservice

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/iplantc/decat/internal/apperr"
	"github.com/iplantc/decat/internal/catalog"
	"github.com/iplantc/decat/internal/category"
	"github.com/iplantc/decat/internal/seed"
	"github.com/iplantc/decat/internal/testutil"
)

type recordingSink struct {
	mu      sync.Mutex
	counts  map[string]int
	reloads int
}

func (r *recordingSink) CategoryCountChanged(id string, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = make(map[string]int)
	}
	r.counts[id] = count
}

func (r *recordingSink) CatalogReloaded() {
	r.mu.Lock()
	r.reloads++
	r.mu.Unlock()
}

var testWorkspace = Workspace{Favorites: "favorite apps", UserApps: "Apps Under Development"}

func testService(t *testing.T) (*Service, *catalog.DB, *recordingSink) {
	t.Helper()
	db, _ := testutil.TestSeeded(t)
	sink := &recordingSink{}
	svc := NewService(db, testWorkspace, testutil.Logger(), WithEvents(sink))
	return svc, db, sink
}

func count(t *testing.T, svc *Service, id string) int {
	t.Helper()
	d, err := svc.Category(context.Background(), id)
	if err != nil {
		t.Fatalf("Category(%s): %v", id, err)
	}
	return d.AppCount
}

func TestCategories_LazyLoad(t *testing.T) {
	svc, _, _ := testService(t)
	cats, err := svc.Categories(context.Background())
	if err != nil {
		t.Fatalf("Categories: %v", err)
	}
	if len(cats) != 2 || cats[0].Name != "Public Apps" {
		t.Fatalf("roots = %+v", cats)
	}
	// Non-root children come back sorted by name.
	var names []string
	for _, c := range cats[1].Categories {
		names = append(names, c.Name)
	}
	if diff := cmp.Diff([]string{"Apps under development", "Favorite Apps"}, names); diff != "" {
		t.Errorf("workspace children (-want +got):\n%s", diff)
	}
}

func TestCategoryDetail(t *testing.T) {
	svc, _, _ := testService(t)
	d, err := svc.Category(context.Background(), "align")
	if err != nil {
		t.Fatalf("Category: %v", err)
	}
	if d.ParentID != "seq" || d.Root {
		t.Errorf("detail = %+v", d)
	}
	if diff := cmp.Diff([]string{"Public Apps", "Sequencing", "Alignment"}, d.Hierarchy); diff != "" {
		t.Errorf("hierarchy (-want +got):\n%s", diff)
	}

	if _, err := svc.Category(context.Background(), "nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown id err = %v", err)
	}
}

func TestFindCategory(t *testing.T) {
	svc, _, _ := testService(t)
	d, err := svc.FindCategory(context.Background(), "IMAGING")
	if err != nil || d.ID != "img" {
		t.Fatalf("FindCategory = %+v, %v", d, err)
	}
	if _, err := svc.FindCategory(context.Background(), "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing err = %v", err)
	}
}

func TestAppHierarchies(t *testing.T) {
	svc, _, _ := testService(t)
	got, err := svc.AppHierarchies(context.Background(), "bowtie")
	if err != nil {
		t.Fatalf("AppHierarchies: %v", err)
	}
	want := [][]string{
		{"Public Apps", "Sequencing", "Alignment"},
		{"Workspace", "Favorite Apps"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("hierarchies (-want +got):\n%s", diff)
	}
}

func TestAddAppToCategory_PropagatesCounts(t *testing.T) {
	svc, _, sink := testService(t)
	ctx := context.Background()

	d, err := svc.AddAppToCategory(ctx, "draft", "align")
	if err != nil {
		t.Fatalf("AddAppToCategory: %v", err)
	}
	if d.AppCount != 3 {
		t.Errorf("align count = %d, want 3", d.AppCount)
	}
	if got := count(t, svc, "seq"); got != 4 {
		t.Errorf("seq count = %d, want 4", got)
	}
	if got := count(t, svc, "pub"); got != 5 {
		t.Errorf("pub count = %d, want 5", got)
	}
	if sink.counts["pub"] != 5 || sink.counts["align"] != 3 {
		t.Errorf("sink counts = %v", sink.counts)
	}

	d, err = svc.RemoveAppFromCategory(ctx, "draft", "align")
	if err != nil {
		t.Fatalf("RemoveAppFromCategory: %v", err)
	}
	if d.AppCount != 2 || count(t, svc, "pub") != 4 {
		t.Errorf("counts after remove: align=%d pub=%d", d.AppCount, count(t, svc, "pub"))
	}
}

func TestAddAppToCategory_UnknownCategory(t *testing.T) {
	svc, _, _ := testService(t)
	_, err := svc.AddAppToCategory(context.Background(), "bwa", "nope")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSetFavorite_AdjustsFavoritesCount(t *testing.T) {
	svc, _, _ := testService(t)
	ctx := context.Background()

	app, err := svc.SetFavorite(ctx, "bwa", true)
	if err != nil {
		t.Fatalf("SetFavorite: %v", err)
	}
	if !app.IsFavorite {
		t.Error("bwa should be a favorite")
	}
	if got := count(t, svc, "fav"); got != 2 {
		t.Errorf("fav count = %d, want 2", got)
	}
	if got := count(t, svc, "ws"); got != 3 {
		t.Errorf("ws count = %d, want 3", got)
	}

	// Repeating is not a change.
	if _, err := svc.SetFavorite(ctx, "bwa", true); err != nil {
		t.Fatalf("repeat SetFavorite: %v", err)
	}
	if got := count(t, svc, "fav"); got != 2 {
		t.Errorf("fav count after repeat = %d, want 2", got)
	}

	if _, err := svc.SetFavorite(ctx, "bwa", false); err != nil {
		t.Fatalf("unfavorite: %v", err)
	}
	if got := count(t, svc, "fav"); got != 1 {
		t.Errorf("fav count after unfavorite = %d, want 1", got)
	}
}

func seededService(t *testing.T, doc *seed.Document) (*Service, *catalog.DB, *recordingSink) {
	t.Helper()
	db := testutil.TestDB(t)
	if err := db.ReplaceFromSeed(doc, "test"); err != nil {
		t.Fatalf("ReplaceFromSeed: %v", err)
	}
	sink := &recordingSink{}
	return NewService(db, testWorkspace, testutil.Logger(), WithEvents(sink)), db, sink
}

func TestRemoveAppFromCategory_SharedBetweenSiblings(t *testing.T) {
	svc, db, sink := seededService(t, &seed.Document{
		Categories: []seed.Category{{ID: "p", Name: "Parent", Categories: []seed.Category{
			{ID: "x", Name: "X"},
			{ID: "y", Name: "Y"},
		}}},
		Apps: []seed.App{{ID: "a", Name: "A", Categories: []string{"x", "y"}}},
	})
	ctx := context.Background()

	if got := count(t, svc, "p"); got != 1 {
		t.Fatalf("parent count = %d, want 1 distinct app", got)
	}
	if _, err := svc.RemoveAppFromCategory(ctx, "a", "x"); err != nil {
		t.Fatalf("remove from x: %v", err)
	}
	// The parent already dropped to zero, so this delta cannot propagate.
	d, err := svc.RemoveAppFromCategory(ctx, "a", "y")
	if err != nil {
		t.Fatalf("remove from y: %v", err)
	}
	if d.AppCount != 0 {
		t.Errorf("y count = %d, want 0", d.AppCount)
	}
	for _, id := range []string{"p", "x", "y"} {
		want, err := db.CountApps(id)
		if err != nil {
			t.Fatalf("CountApps(%s): %v", id, err)
		}
		if got := count(t, svc, id); got != want {
			t.Errorf("%s count = %d, catalog has %d", id, got, want)
		}
	}
	if sink.reloads != 1 {
		t.Errorf("reloads = %d, want 1 after the rejected adjustment", sink.reloads)
	}
}

func TestSetFavorite_AlreadyFiledUnderFavorites(t *testing.T) {
	svc, db, _ := seededService(t, &seed.Document{
		Categories: []seed.Category{{ID: "ws", Name: "Workspace", Categories: []seed.Category{
			{ID: "fav", Name: "Favorite Apps"},
		}}},
		Apps: []seed.App{{ID: "a", Name: "A", Categories: []string{"fav"}}},
	})
	ctx := context.Background()

	app, err := svc.SetFavorite(ctx, "a", true)
	if err != nil {
		t.Fatalf("SetFavorite: %v", err)
	}
	if !app.IsFavorite {
		t.Error("a should be a favorite")
	}
	want, _ := db.CountApps("fav")
	if got := count(t, svc, "fav"); got != 1 || got != want {
		t.Errorf("fav count = %d, catalog has %d, want 1", got, want)
	}
	if got := count(t, svc, "ws"); got != 1 {
		t.Errorf("ws count = %d, want 1", got)
	}
}

func TestCopyApp(t *testing.T) {
	svc, _, _ := testService(t)
	ctx := context.Background()

	cp, err := svc.CopyApp(ctx, "bwa")
	if err != nil {
		t.Fatalf("CopyApp: %v", err)
	}
	if !strings.HasPrefix(cp.Name, "Copy of BWA") || cp.ID == "bwa" {
		t.Errorf("copy = %+v", cp.App)
	}
	if diff := cmp.Diff([][]string{{"Workspace", "Apps under development"}}, cp.Hierarchies); diff != "" {
		t.Errorf("copy hierarchies (-want +got):\n%s", diff)
	}
	if got := count(t, svc, "dev"); got != 2 {
		t.Errorf("dev count = %d, want 2", got)
	}
	comps, err := svc.AppComponents(ctx, cp.ID)
	if err != nil || len(comps) != 1 {
		t.Errorf("copy components = %+v, %v", comps, err)
	}
}

func TestListApps_SyncsCount(t *testing.T) {
	svc, db, _ := testService(t)
	ctx := context.Background()

	// Load the tree, then change membership behind the service's back.
	_, _ = svc.Categories(ctx)
	_ = db.AddAppToCategory("fiji", "align")

	apps, err := svc.ListApps(ctx, "align")
	if err != nil {
		t.Fatalf("ListApps: %v", err)
	}
	if len(apps) != 3 {
		t.Errorf("apps = %d, want 3", len(apps))
	}
	if got := count(t, svc, "align"); got != 3 {
		t.Errorf("align count = %d, want 3", got)
	}
	if got := count(t, svc, "seq"); got != 4 {
		t.Errorf("seq count = %d, want 4", got)
	}
}

func TestReload_RebuildsTree(t *testing.T) {
	svc, _, sink := testService(t)
	ctx := context.Background()

	_, _ = svc.AddAppToCategory(ctx, "draft", "img")
	if err := svc.Reload(ctx); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if sink.reloads != 1 {
		t.Errorf("reloads = %d, want 1", sink.reloads)
	}
	// Rebuilt from the catalog, which kept the membership.
	if got := count(t, svc, "img"); got != 2 {
		t.Errorf("img count = %d, want 2", got)
	}
}

type failingCatalog struct {
	catalog.Catalog
}

func (failingCatalog) Categories() ([]category.Category, error) {
	return nil, errors.New("boom")
}

func TestCategories_FetchError(t *testing.T) {
	svc := NewService(failingCatalog{}, testWorkspace, testutil.Logger())
	if _, err := svc.Categories(context.Background()); err == nil {
		t.Fatal("expected fetch error")
	}
}
