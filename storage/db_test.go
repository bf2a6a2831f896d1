package storage

import (
	"errors"
	"path/filepath"
	"testing"
)

func testRoundTrip(t *testing.T, db Database) {
	t.Helper()
	if _, err := db.Get([]byte("missing")); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
	if err := db.Put([]byte("key"), []byte("value")); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	value, err := db.Get([]byte("key"))
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if string(value) != "value" {
		t.Fatalf("got %q, want %q", value, "value")
	}
	if err := db.Put([]byte("key"), []byte("other")); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
	value, err = db.Get([]byte("key"))
	if err != nil {
		t.Fatalf("get after overwrite failed: %v", err)
	}
	if string(value) != "other" {
		t.Fatalf("got %q, want %q", value, "other")
	}
}

func TestMemDB(t *testing.T) {
	db := NewMemDB()
	defer db.Close()
	testRoundTrip(t, db)
}

func TestMemDBCopiesValues(t *testing.T) {
	db := NewMemDB()
	defer db.Close()
	value := []byte("value")
	if err := db.Put([]byte("key"), value); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	value[0] = 'x'
	stored, err := db.Get([]byte("key"))
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if string(stored) != "value" {
		t.Fatal("stored value aliases the caller's slice")
	}
}

func TestLevelDB(t *testing.T) {
	db, err := NewLevelDB(filepath.Join(t.TempDir(), "leveldb"))
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer db.Close()
	testRoundTrip(t, db)
}

func TestBoltDB(t *testing.T) {
	db, err := NewBoltDB(filepath.Join(t.TempDir(), "bolt"))
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer db.Close()
	testRoundTrip(t, db)
}
