package memory

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"buildledger/internal/infra/blob"
)

func TestPutGetDeleteRoundTrip(t *testing.T) {
	store := New()
	ctx := context.Background()

	info, err := store.Put(ctx, "disputes/d1/photo.jpg", strings.NewReader("pixels"), blob.PutOptions{ContentType: "image/jpeg"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 6 || info.ContentType != "image/jpeg" {
		t.Fatalf("unexpected info: %+v", info)
	}

	if _, err := store.Put(ctx, "disputes/d1/photo.jpg", strings.NewReader("x"), blob.PutOptions{}); err == nil {
		t.Fatal("overwrite must fail")
	}

	_, rc, err := store.Get(ctx, "disputes/d1/photo.jpg")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "pixels" {
		t.Fatalf("content mismatch: %q", data)
	}

	existed, err := store.Delete(ctx, "disputes/d1/photo.jpg")
	if err != nil || !existed {
		t.Fatalf("delete: existed=%v err=%v", existed, err)
	}
	if _, _, err := store.Get(ctx, "disputes/d1/photo.jpg"); !errors.Is(err, blob.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestListFiltersByPrefix(t *testing.T) {
	store := New()
	ctx := context.Background()
	for _, key := range []string{"disputes/d1/a", "disputes/d1/b", "disputes/d2/c"} {
		if _, err := store.Put(ctx, key, strings.NewReader("x"), blob.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	infos, err := store.List(ctx, "disputes/d1/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 || infos[0].Key != "disputes/d1/a" || infos[1].Key != "disputes/d1/b" {
		t.Fatalf("unexpected listing: %+v", infos)
	}
}
