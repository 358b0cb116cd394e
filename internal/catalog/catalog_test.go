package catalog

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	return Open(filepath.Join(t.TempDir(), "catalog.json"))
}

func TestIDForStable(t *testing.T) {
	c := testCatalog(t)

	first := c.IDFor("IMG_0001.jpg")
	for i := 0; i < 5; i++ {
		if got := c.IDFor("IMG_0001.jpg"); got != first {
			t.Fatalf("IDFor not stable: got %d, want %d", got, first)
		}
	}

	second := c.IDFor("IMG_0002.jpg")
	if second == first {
		t.Error("distinct paths must get distinct ids")
	}
}

func TestIDForSurvivesPersistLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")

	c := Open(path)
	id := c.IDFor("trip/IMG_0001.jpg")
	if err := c.Persist(); err != nil {
		t.Fatal(err)
	}

	reloaded := Open(path)
	if got := reloaded.IDFor("trip/IMG_0001.jpg"); got != id {
		t.Errorf("id changed across persist/load: got %d, want %d", got, id)
	}
}

func TestRenamePreservesID(t *testing.T) {
	c := testCatalog(t)

	id := c.IDFor("IMG_0001.jpg")
	c.Rename("IMG_0001.jpg", "archive/IMG_0001.jpg")

	if got, ok := c.PathFor(id); !ok || got != "archive/IMG_0001.jpg" {
		t.Errorf("PathFor(%d) = %q, %v; want archive/IMG_0001.jpg, true", id, got, ok)
	}

	// The old path no longer resolves to the old id
	if got := c.IDFor("IMG_0001.jpg"); got == id {
		t.Error("old path must allocate a new id after rename")
	}
}

func TestRenameDir(t *testing.T) {
	c := testCatalog(t)

	a := c.IDFor("2023/IMG_0001.jpg")
	b := c.IDFor("2023/sub/IMG_0002.jpg")
	other := c.IDFor("2024/IMG_0003.jpg")

	c.RenameDir("2023", "archive")

	if got, _ := c.PathFor(a); got != "archive/IMG_0001.jpg" {
		t.Errorf("PathFor(a) = %q", got)
	}
	if got, _ := c.PathFor(b); got != "archive/sub/IMG_0002.jpg" {
		t.Errorf("PathFor(b) = %q", got)
	}
	if got, _ := c.PathFor(other); got != "2024/IMG_0003.jpg" {
		t.Errorf("unrelated entry moved: %q", got)
	}
}

func TestRemoveNeverReusesID(t *testing.T) {
	c := testCatalog(t)

	id := c.IDFor("IMG_0001.jpg")
	c.Remove("IMG_0001.jpg")

	if _, ok := c.PathFor(id); ok {
		t.Error("removed id must not resolve")
	}
	if got := c.IDFor("IMG_0001.jpg"); got == id {
		t.Error("freed id must not be reused")
	}
}

func TestPersistIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	c := Open(path)
	c.IDFor("a.jpg")
	c.IDFor("b.jpg")

	if err := c.Persist(); err != nil {
		t.Fatal(err)
	}
	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if err := c.Persist(); err != nil {
		t.Fatal(err)
	}
	second, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if string(first) != string(second) {
		t.Error("repeated persist with no mutation must be byte-identical")
	}
}

func TestLoadCorruptStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := Open(path)
	if c.Len() != 0 {
		t.Errorf("corrupt catalog should load empty, got %d entries", c.Len())
	}
	if id := c.IDFor("fresh.jpg"); id != 1 {
		t.Errorf("empty catalog should allocate from 1, got %d", id)
	}
}

func TestPruneMissing(t *testing.T) {
	c := testCatalog(t)
	kept := c.IDFor("keep.jpg")
	c.IDFor("gone.jpg")

	pruned := c.PruneMissing(func(rel string) bool { return rel == "keep.jpg" })
	if pruned != 1 {
		t.Errorf("pruned = %d, want 1", pruned)
	}
	if _, ok := c.PathFor(kept); !ok {
		t.Error("surviving entry was pruned")
	}
	if c.Contains("gone.jpg") {
		t.Error("missing entry should be evicted")
	}
}

func TestConcurrentAllocation(t *testing.T) {
	c := testCatalog(t)

	var wg sync.WaitGroup
	ids := make([]uint32, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = c.IDFor("shared.jpg")
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		if id != ids[0] {
			t.Fatal("concurrent IDFor on one path must agree on a single id")
		}
	}
}
