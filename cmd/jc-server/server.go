package main

import (
	"errors"
	"sync"

	"github.com/winitzki/chymyst-go/internal/scenarios"
)

var errSiteNotFound = errors.New("site not found")

// Server hosts the HTTP surface over a scenarios.Manager: each named site is
// one of the reference join-calculus scenarios from the specification,
// created on demand and then driven by emitting named molecules.
type Server struct {
	manager *scenarios.Manager
	logger  *Logger

	eventsMu sync.Mutex
	events   map[string]*siteEvents
}

func NewServer(logger *Logger) *Server {
	return &Server{
		manager: scenarios.NewManager(),
		logger:  logger,
		events:  make(map[string]*siteEvents),
	}
}
