package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"buildledger/pkg/domain"
)

func TestListCollectionDecodesEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/projects" || r.Method != http.MethodGet {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"success":true,"data":[{"id":"p1"},{"id":"p2"}]}`))
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second)
	records, err := client.ListCollection(context.Background(), "projects")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	var first struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(records[0], &first); err != nil || first.ID != "p1" {
		t.Fatalf("record decode: id=%q err=%v", first.ID, err)
	}
}

func TestEnvelopeFailureIsRemoteUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"message":"backend down"}`))
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second)
	_, err := client.ListCollection(context.Background(), "milestones")
	var unavailable domain.RemoteUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected RemoteUnavailableError, got %v", err)
	}
	if unavailable.Collection != "milestones" {
		t.Fatalf("wrong collection label: %s", unavailable.Collection)
	}
}

func TestNon2xxIsRemoteUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second)
	var unavailable domain.RemoteUnavailableError
	if _, err := client.GetRecord(context.Background(), "projects", "p1"); !errors.As(err, &unavailable) {
		t.Fatalf("expected RemoteUnavailableError, got %v", err)
	}
}

func TestTransportErrorIsRemoteUnavailable(t *testing.T) {
	// Point at a server that is already closed.
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	client := New(srv.URL, 200*time.Millisecond)
	var unavailable domain.RemoteUnavailableError
	if err := client.CreateRecord(context.Background(), "payments", map[string]any{"id": "x"}); !errors.As(err, &unavailable) {
		t.Fatalf("expected RemoteUnavailableError, got %v", err)
	}
}

func TestUpdateRecordSendsJSONBody(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/milestones/m1" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second)
	if err := client.UpdateRecord(context.Background(), "milestones", "m1", map[string]any{"status": "paid"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if gotBody["status"] != "paid" {
		t.Fatalf("body not delivered: %+v", gotBody)
	}
}
