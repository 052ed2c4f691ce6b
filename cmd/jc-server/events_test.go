package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestServer_EventsStreamsReactionCommits(t *testing.T) {
	srv := NewServer(NewLogger("error"))

	mux := http.NewServeMux()
	mux.HandleFunc("/sites", srv.handleSiteRoutes)
	mux.HandleFunc("/sites/", srv.handleSiteRoutes)
	ts := httptest.NewServer(mux)
	defer ts.Close()

	createBody := strings.NewReader(`{"name":"c1","kind":"counter"}`)
	resp, err := http.Post(ts.URL+"/sites", "application/json", createBody)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("create site failed: err=%v status=%v", err, resp)
	}
	resp.Body.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/sites/c1/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dialing events websocket: %v", err)
	}
	defer conn.Close()

	if _, err := http.Post(ts.URL+"/sites/c1/emit/incr", "application/json", nil); err != nil {
		t.Fatalf("emit incr: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("reading event: %v", err)
	}

	var event map[string]any
	if err := json.Unmarshal(data, &event); err != nil {
		t.Fatalf("decoding event json: %v", err)
	}
	if event["site"] != "c1" {
		t.Fatalf("event site = %v, want c1", event["site"])
	}
}
