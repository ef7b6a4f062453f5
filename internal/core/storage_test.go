package core

import (
	"context"
	"path/filepath"
	"testing"

	"buildledger/internal/infra/persistence/memory"
	"buildledger/internal/infra/persistence/sqlite"
)

func TestOpenPersistentStoreDefaultsToMemory(t *testing.T) {
	store, err := OpenPersistentStore(StorageOptions{}, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, ok := store.(*memory.Store); !ok {
		t.Fatalf("expected memory store, got %T", store)
	}
}

func TestOpenPersistentStoreSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	store, err := OpenPersistentStore(StorageOptions{Driver: StorageSQLite, SQLitePath: path}, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	sqliteStore, ok := store.(*sqlite.Store)
	if !ok {
		t.Fatalf("expected sqlite store, got %T", store)
	}
	defer func() { _ = sqliteStore.Close() }()
	if _, err := store.RunInTransaction(context.Background(), func(tx Transaction) error { return nil }); err != nil {
		t.Fatalf("empty transaction: %v", err)
	}
}

func TestOpenPersistentStoreRejectsBadInput(t *testing.T) {
	if _, err := OpenPersistentStore(StorageOptions{Driver: "dynamo"}, nil); err == nil {
		t.Fatal("unknown driver must error")
	}
	if _, err := OpenPersistentStore(StorageOptions{Driver: StoragePostgres}, nil); err == nil {
		t.Fatal("postgres without a DSN must error")
	}
}
