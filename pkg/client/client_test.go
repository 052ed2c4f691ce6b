package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClient_CreateSiteAndEmit(t *testing.T) {
	var gotPath, gotMethod, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		buf := make([]byte, r.ContentLength)
		_, _ = r.Body.Read(buf)
		gotBody = string(buf)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL)
	if err := c.CreateSite(context.Background(), "c1", "counter"); err != nil {
		t.Fatalf("CreateSite() = %v, want nil", err)
	}
	if gotMethod != http.MethodPost || gotPath != "/sites" {
		t.Fatalf("request = %s %s, want POST /sites", gotMethod, gotPath)
	}
	if gotBody == "" {
		t.Fatalf("expected a non-empty request body")
	}
}

func TestClient_EmitBlockingDecodesValue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sites/sa/emit-blocking/get" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.URL.Query().Get("timeout_ms") != "250" {
			t.Errorf("timeout_ms = %s, want 250", r.URL.Query().Get("timeout_ms"))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"value": 42})
	}))
	defer srv.Close()

	c := New(srv.URL)
	v, err := c.EmitBlocking(context.Background(), "sa", "get", struct{}{}, 250*time.Millisecond)
	if err != nil {
		t.Fatalf("EmitBlocking() = %v, want nil", err)
	}
	if got, ok := v.(float64); !ok || got != 42 {
		t.Fatalf("value = %v, want 42", v)
	}
}

func TestClient_EmitBlockingTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "timed out waiting for a reply", http.StatusRequestTimeout)
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.EmitBlocking(context.Background(), "sa", "get", struct{}{}, time.Millisecond)
	if err != ErrTimedOut {
		t.Fatalf("err = %v, want ErrTimedOut", err)
	}
}

func TestClient_ListSites(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string][]string{"sites": {"a", "b"}})
	}))
	defer srv.Close()

	c := New(srv.URL)
	sites, err := c.ListSites(context.Background())
	if err != nil {
		t.Fatalf("ListSites() = %v, want nil", err)
	}
	if len(sites) != 2 || sites[0] != "a" || sites[1] != "b" {
		t.Fatalf("sites = %v, want [a b]", sites)
	}
}

func TestClient_VolatileValueErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "site not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.VolatileValue(context.Background(), "missing", "counter")
	if err == nil {
		t.Fatalf("VolatileValue() = nil, want error")
	}
}
