package repo

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/miradorstack/mirador-intel/internal/models"
	"github.com/miradorstack/mirador-intel/internal/utils"
)

type sampleDoc struct {
	Name  string         `json:"name"`
	Count int            `json:"count"`
	Tags  map[string]int `json:"tags,omitempty"`
}

func exerciseStore(t *testing.T, store DocumentStore) {
	t.Helper()
	ctx := context.Background()

	var got sampleDoc
	if err := store.Load(ctx, "things/a", &got); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := store.Save(ctx, "things/a", sampleDoc{Name: "alpha", Count: 1, Tags: map[string]int{"x": 2}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Save(ctx, "things/b", sampleDoc{Name: "beta"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Save(ctx, "other/c", sampleDoc{Name: "gamma"}); err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := store.Load(ctx, "things/a", &got); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Name != "alpha" || got.Count != 1 || got.Tags["x"] != 2 {
		t.Fatalf("unexpected document %+v", got)
	}

	if err := store.Patch(ctx, "things/a", map[string]any{"count": 7}); err != nil {
		t.Fatalf("patch: %v", err)
	}
	got = sampleDoc{}
	if err := store.Load(ctx, "things/a", &got); err != nil {
		t.Fatalf("load after patch: %v", err)
	}
	if got.Name != "alpha" || got.Count != 7 {
		t.Fatalf("patch should only touch count, got %+v", got)
	}
	if err := store.Patch(ctx, "things/missing", map[string]any{"count": 1}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("patch on missing document should be ErrNotFound, got %v", err)
	}

	keys, err := store.List(ctx, "things/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(keys) != 2 || keys[0] != "things/a" || keys[1] != "things/b" {
		t.Fatalf("unexpected keys %v", keys)
	}

	if err := store.Append(ctx, "events", map[string]string{"type": "viewed"}); err != nil {
		t.Fatalf("append: %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	exerciseStore(t, store)
	if recs := store.Records("events"); len(recs) != 1 {
		t.Fatalf("expected one record, got %d", len(recs))
	}
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore(ctx, filepath.Join(t.TempDir(), "intel.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer store.Close(ctx)

	exerciseStore(t, store)
	n, err := store.CountRecords(ctx, "events")
	if err != nil || n != 1 {
		t.Fatalf("expected one record, got %d (%v)", n, err)
	}
}

func TestSQLiteStoreRequiresPath(t *testing.T) {
	if _, err := NewSQLiteStore(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestSplitPath(t *testing.T) {
	coll, id, err := splitPath("intel_profiles/u1")
	if err != nil || coll != "intel_profiles" || id != "u1" {
		t.Fatalf("unexpected split %q %q %v", coll, id, err)
	}
	for _, bad := range []string{"", "noslash", "/x", "x/"} {
		if _, _, err := splitPath(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestSplitPrefix(t *testing.T) {
	coll, idPrefix, err := splitPrefix("intel_profiles/")
	if err != nil || coll != "intel_profiles" || idPrefix != "" {
		t.Fatalf("unexpected split %q %q %v", coll, idPrefix, err)
	}
	coll, idPrefix, _ = splitPrefix("intel_profiles/u")
	if coll != "intel_profiles" || idPrefix != "u" {
		t.Fatalf("unexpected split %q %q", coll, idPrefix)
	}
}

func TestCatalogPatchesOwnedFields(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	_ = store.Save(ctx, Path(CollectionIngredients, "ing_1"), map[string]any{"name": "Tomato", "referencePrice": 3.1})
	_ = store.Save(ctx, Path(CollectionRecipes, "rec_1"), map[string]any{"name": "Salad", "costMode": "theoretical"})
	_ = store.Save(ctx, Path(CollectionStockItems, "stk_1"), map[string]any{"name": "Tomato box", "status": "unlinked"})

	catalog := NewCatalog(store, utils.FixedClock{T: now})
	if err := catalog.SetReferenceSupplier(ctx, "ing_1", "sup_2", 2.8); err != nil {
		t.Fatalf("set reference supplier: %v", err)
	}
	if err := catalog.SetCostMode(ctx, "rec_1", models.CostModeReal); err != nil {
		t.Fatalf("set cost mode: %v", err)
	}
	if err := catalog.LinkStockItem(ctx, "stk_1", "ing_1"); err != nil {
		t.Fatalf("link stock item: %v", err)
	}

	var ingredient map[string]any
	_ = store.Load(ctx, Path(CollectionIngredients, "ing_1"), &ingredient)
	if ingredient["name"] != "Tomato" || ingredient["referenceSupplierId"] != "sup_2" || ingredient["referencePrice"] != 2.8 {
		t.Fatalf("unexpected ingredient %+v", ingredient)
	}
	if ingredient["updatedAt"] != now.Format(time.RFC3339) {
		t.Fatalf("expected updatedAt stamp, got %v", ingredient["updatedAt"])
	}

	var stock map[string]any
	_ = store.Load(ctx, Path(CollectionStockItems, "stk_1"), &stock)
	if stock["status"] != StockStatusLinked || stock["ingredientId"] != "ing_1" {
		t.Fatalf("unexpected stock item %+v", stock)
	}

	if err := catalog.SetCostMode(ctx, "missing", models.CostModeReal); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing recipe, got %v", err)
	}
}
