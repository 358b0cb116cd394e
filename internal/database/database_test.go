package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"photo-catalog/internal/photo"
)

func newTestDB(t *testing.T) *Database {
	t.Helper()
	d, err := New(context.Background(), filepath.Join(t.TempDir(), "props.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if err := d.Close(); err != nil {
			t.Errorf("failed to close test database: %v", err)
		}
	})
	return d
}

func testProps() map[photo.Key]photo.Value {
	return map[photo.Key]photo.Value{
		photo.KeyFileName:    photo.String("IMG_0001.jpg"),
		photo.KeyFileSize:    photo.Number(123456),
		photo.KeyPixelWidth:  photo.Number(4000),
		photo.KeyPixelHeight: photo.Number(3000),
		photo.KeyKeywords:    photo.List("beach", "sunset"),
		photo.KeyFlagged:     photo.Bool(true),
	}
}

func TestPutAndGet(t *testing.T) {
	d := newTestDB(t)
	modTime := time.Unix(1700000000, 0)

	d.Put(42, "sub/IMG_0001.jpg", modTime, testProps())

	got, ok := d.Get(42, modTime)
	if !ok {
		t.Fatal("expected a cache hit")
	}
	want := testProps()
	if len(got) != len(want) {
		t.Fatalf("cached property count = %d, want %d", len(got), len(want))
	}
	for k, v := range want {
		if !got[k].Equal(v) {
			t.Errorf("property %s = %v, want %v", k, got[k], v)
		}
	}
}

func TestGetMiss(t *testing.T) {
	d := newTestDB(t)
	if _, ok := d.Get(999, time.Now()); ok {
		t.Error("unknown id should miss")
	}
}

func TestStaleModTimeMisses(t *testing.T) {
	d := newTestDB(t)
	modTime := time.Unix(1700000000, 0)

	d.Put(42, "IMG_0001.jpg", modTime, testProps())

	if _, ok := d.Get(42, modTime.Add(time.Minute)); ok {
		t.Error("row with a different mod time must be treated as stale")
	}
}

func TestPutReplacesExistingRow(t *testing.T) {
	d := newTestDB(t)
	modTime := time.Unix(1700000000, 0)

	d.Put(42, "IMG_0001.jpg", modTime, testProps())

	newer := modTime.Add(time.Hour)
	d.Put(42, "IMG_0001.jpg", newer, map[photo.Key]photo.Value{
		photo.KeyFileSize: photo.Number(999),
	})

	got, ok := d.Get(42, newer)
	if !ok {
		t.Fatal("expected a hit on the replaced row")
	}
	if n, _ := got[photo.KeyFileSize].AsNumber(); n != 999 {
		t.Errorf("FileSize after replace = %v, want 999", n)
	}
}

func TestInvalidate(t *testing.T) {
	d := newTestDB(t)
	modTime := time.Unix(1700000000, 0)

	d.Put(42, "IMG_0001.jpg", modTime, testProps())
	d.Invalidate(42)

	if _, ok := d.Get(42, modTime); ok {
		t.Error("invalidated row must miss")
	}
}

func TestEmpty(t *testing.T) {
	d := newTestDB(t)
	modTime := time.Unix(1700000000, 0)

	d.Put(1, "a.jpg", modTime, testProps())
	d.Put(2, "b.jpg", modTime, testProps())

	if err := d.Empty(context.Background()); err != nil {
		t.Fatal(err)
	}

	if _, ok := d.Get(1, modTime); ok {
		t.Error("emptied cache must miss")
	}
	if _, ok := d.Get(2, modTime); ok {
		t.Error("emptied cache must miss")
	}
}

func TestUpdatePathKeepsRowValid(t *testing.T) {
	d := newTestDB(t)
	modTime := time.Unix(1700000000, 0)

	d.Put(42, "old/IMG_0001.jpg", modTime, testProps())
	d.UpdatePath(42, "new/IMG_0001.jpg")

	if _, ok := d.Get(42, modTime); !ok {
		t.Error("path update must not invalidate the cached properties")
	}
}
