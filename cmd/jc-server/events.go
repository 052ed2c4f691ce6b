package main

import (
	"net/http"

	"github.com/winitzki/chymyst-go/internal/jc"
	"github.com/winitzki/chymyst-go/internal/jc/notifiers"
)

// siteEvents bundles one site's notification manager with the websocket
// notifier feeding its /events endpoint, created lazily on first use.
type siteEvents struct {
	manager  *jc.NotificationManager
	wsNotify *notifiers.WebSocketNotifier
}

// eventsFor lazily wires a NotificationManager + WebSocketNotifier onto the
// named site the first time its /events endpoint is requested.
func (s *Server) eventsFor(name string) (*siteEvents, error) {
	s.eventsMu.Lock()
	defer s.eventsMu.Unlock()

	if e, ok := s.events[name]; ok {
		return e, nil
	}

	h, exists := s.manager.Get(name)
	if !exists {
		return nil, errSiteNotFound
	}

	nm := jc.NewNotificationManager(256)
	ws := notifiers.NewWebSocketNotifier(name + "-ws")
	nm.RegisterNotifier(ws)
	h.SetNotificationManager(nm)

	e := &siteEvents{manager: nm, wsNotify: ws}
	s.events[name] = e
	return e, nil
}

// GET /sites/{name}/events
// Upgrades to a websocket stream of ReactionEvent JSON objects, one per
// reaction committed on this site from this point on.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request, name string) {
	e, err := s.eventsFor(name)
	if err != nil {
		if err == errSiteNotFound {
			http.Error(w, "site not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	upgrader := e.wsNotify.GetUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnf("websocket upgrade failed: site=%s error=%v", name, err)
		return
	}

	e.wsNotify.RegisterClient(conn)
	defer e.wsNotify.UnregisterClient(conn)

	// Drain and discard inbound frames; this is a broadcast-only feed, but we
	// still need to read so the connection notices client disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
