// Command jc-server hosts join-calculus reaction sites behind an HTTP API:
// POST /sites creates a named scenario site, and the remaining /sites/{name}/...
// routes emit molecules into it, read back its state, and (via /events)
// stream a live websocket feed of committed reactions. Grounded on
// cmd/achemdb-server's config/logger/server/handlers split, rebuilt around
// internal/scenarios.Manager instead of achem.EnvironmentManager.
package main

import (
	"log"
	"net/http"
)

func main() {
	cfg := loadServerConfig()
	logger := NewLogger(cfg.LogLevel)

	srv := NewServer(logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", srv.handleHealth)
	mux.HandleFunc("/sites", srv.handleSiteRoutes)
	mux.HandleFunc("/sites/", srv.handleSiteRoutes)

	logger.Infof("jc-server listening on %s", cfg.Addr)
	log.Fatal(http.ListenAndServe(cfg.Addr, mux))
}
