package fs

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"buildledger/internal/infra/blob"
)

func TestRoundTripAndSidecar(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()

	if _, err := store.Put(ctx, "disputes/d1/report.pdf", strings.NewReader("contents"), blob.PutOptions{ContentType: "application/pdf"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	info, rc, err := store.Get(ctx, "disputes/d1/report.pdf")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "contents" || info.ContentType != "application/pdf" || info.Size != 8 {
		t.Fatalf("round trip mismatch: %q %+v", data, info)
	}

	existed, err := store.Delete(ctx, "disputes/d1/report.pdf")
	if err != nil || !existed {
		t.Fatalf("delete: existed=%v err=%v", existed, err)
	}
	if _, _, err := store.Get(ctx, "disputes/d1/report.pdf"); !errors.Is(err, blob.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestKeySanitization(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()
	for _, key := range []string{"", "/abs", "../escape", "a/../../b"} {
		if _, err := store.Put(ctx, key, strings.NewReader("x"), blob.PutOptions{}); err == nil {
			t.Fatalf("key %q must be rejected", key)
		}
	}
}

func TestListWalksNestedKeys(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()
	for _, key := range []string{"disputes/d1/a.txt", "disputes/d2/b.txt"} {
		if _, err := store.Put(ctx, key, strings.NewReader("x"), blob.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	infos, err := store.List(ctx, "disputes/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("expected 2 entries, got %+v", infos)
	}
}
