package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestServer_CreateEmitAndReadVolatile(t *testing.T) {
	srv := NewServer(NewLogger("error"))

	createBody, _ := json.Marshal(createSiteRequest{Name: "c1", Kind: "counter"})
	req := httptest.NewRequest(http.MethodPost, "/sites", bytes.NewReader(createBody))
	w := httptest.NewRecorder()
	srv.handleSiteRoutes(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("create site: status = %d, body = %s", w.Code, w.Body.String())
	}

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/sites/c1/emit/incr", nil)
		w := httptest.NewRecorder()
		srv.handleSiteRoutes(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("emit incr: status = %d, body = %s", w.Code, w.Body.String())
		}
	}

	deadlineReq := httptest.NewRequest(http.MethodGet, "/sites/c1/volatile/counter", nil)
	var lastBody string
	for attempt := 0; attempt < 200; attempt++ {
		w := httptest.NewRecorder()
		srv.handleSiteRoutes(w, deadlineReq)
		lastBody = w.Body.String()
		var resp map[string]any
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err == nil {
			if v, ok := resp["value"].(float64); ok && v == 3 {
				return
			}
		}
	}
	t.Fatalf("counter never reached 3, last response: %s", lastBody)
}

func TestServer_CreateSiteTwiceIsRejected(t *testing.T) {
	srv := NewServer(NewLogger("error"))

	body, _ := json.Marshal(createSiteRequest{Name: "dup", Kind: "counter"})
	req := httptest.NewRequest(http.MethodPost, "/sites", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.handleSiteRoutes(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("first create: status = %d", w.Code)
	}

	req2 := httptest.NewRequest(http.MethodPost, "/sites", bytes.NewReader(body))
	w2 := httptest.NewRecorder()
	srv.handleSiteRoutes(w2, req2)
	if w2.Code != http.StatusBadRequest {
		t.Fatalf("second create: status = %d, want 400", w2.Code)
	}
}

func TestServer_EmitBlockingOnMissingSite(t *testing.T) {
	srv := NewServer(NewLogger("error"))

	req := httptest.NewRequest(http.MethodPost, "/sites/nope/emit-blocking/get", nil)
	w := httptest.NewRecorder()
	srv.handleSiteRoutes(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestServer_SingleAccessGetSet(t *testing.T) {
	srv := NewServer(NewLogger("error"))

	body, _ := json.Marshal(createSiteRequest{Name: "sa", Kind: "single-access"})
	req := httptest.NewRequest(http.MethodPost, "/sites", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.handleSiteRoutes(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("create site: status = %d, body = %s", w.Code, w.Body.String())
	}

	setBody, _ := json.Marshal(42)
	setReq := httptest.NewRequest(http.MethodPost, "/sites/sa/emit/set", bytes.NewReader(setBody))
	setW := httptest.NewRecorder()
	srv.handleSiteRoutes(setW, setReq)
	if setW.Code != http.StatusOK {
		t.Fatalf("emit set: status = %d, body = %s", setW.Code, setW.Body.String())
	}

	getReq := httptest.NewRequest(http.MethodPost, "/sites/sa/emit-blocking/get?timeout_ms=1000", nil)
	getW := httptest.NewRecorder()
	srv.handleSiteRoutes(getW, getReq)
	if getW.Code != http.StatusOK {
		t.Fatalf("emit-blocking get: status = %d, body = %s", getW.Code, getW.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(getW.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if v, ok := resp["value"].(float64); !ok || v != 42 {
		t.Fatalf("value = %v, want 42", resp["value"])
	}
}
