package cache

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
)

// contract runs the CollectionCache behavior shared by all drivers.
func contract(t *testing.T, c CollectionCache) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := c.Read(ctx, "projects"); err != nil || ok {
		t.Fatalf("fresh cache must miss: ok=%v err=%v", ok, err)
	}
	if err := c.Write(ctx, "projects", []byte(`{"p1":{}}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	payload, ok, err := c.Read(ctx, "projects")
	if err != nil || !ok || !bytes.Equal(payload, []byte(`{"p1":{}}`)) {
		t.Fatalf("read back: ok=%v err=%v payload=%s", ok, err, payload)
	}
	if err := c.Write(ctx, "projects", []byte(`{"p1":{},"p2":{}}`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	payload, _, err = c.Read(ctx, "projects")
	if err != nil || !bytes.Contains(payload, []byte("p2")) {
		t.Fatalf("overwrite not visible: err=%v payload=%s", err, payload)
	}
	if _, ok, _ := c.Read(ctx, "milestones"); ok {
		t.Fatal("collections must be independent")
	}
}

func TestMemoryCacheContract(t *testing.T) {
	contract(t, NewMemory())
}

func TestSQLiteCacheContract(t *testing.T) {
	c, err := NewSQLite(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("open sqlite cache: %v", err)
	}
	defer func() { _ = c.Close() }()
	contract(t, c)
}

func TestSQLiteCacheSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	c, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := c.Write(ctx, "disputes", []byte(`{"d1":{}}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()
	payload, ok, err := reopened.Read(ctx, "disputes")
	if err != nil || !ok || !bytes.Contains(payload, []byte("d1")) {
		t.Fatalf("snapshot lost across reopen: ok=%v err=%v payload=%s", ok, err, payload)
	}
}

func TestOpenSelectsDriver(t *testing.T) {
	c, err := Open(Config{})
	if err != nil {
		t.Fatalf("open default: %v", err)
	}
	if _, ok := c.(*Memory); !ok {
		t.Fatalf("default driver must be memory, got %T", c)
	}

	c, err = Open(Config{Driver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "c.db")})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if _, ok := c.(*SQLite); !ok {
		t.Fatalf("expected sqlite driver, got %T", c)
	}
	_ = c.Close()

	if _, err := Open(Config{Driver: "voodoo"}); err == nil {
		t.Fatal("unknown driver must fail")
	}
}
