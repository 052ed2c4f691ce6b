package jc

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// MoleculeSnapshot is the JSON-friendly view of one consumed input molecule
// attached to a ReactionEvent.
type MoleculeSnapshot struct {
	Name    string `json:"name"`
	Payload any    `json:"payload"`
}

// ReactionEvent describes one committed reaction firing: which site, which
// reaction, and which input molecules it consumed. Grounded on
// internal/achem/notifications.go's NotificationEvent, repurposed from
// chemistry-simulation telemetry (partners/effects of a stochastic tick) to
// join-calculus reaction-commit telemetry.
type ReactionEvent struct {
	Site           string             `json:"site"`
	Reaction       string             `json:"reaction"`
	Timestamp      time.Time          `json:"timestamp"`
	ConsumedInputs []MoleculeSnapshot `json:"consumed_inputs"`
}

func (e ReactionEvent) JSON() ([]byte, error) { return json.Marshal(e) }

// Notifier is an external sink for reaction events: a webhook POST, a
// websocket broadcast, a log line. Grounded on internal/achem/notifications.go's
// Notifier interface.
type Notifier interface {
	ID() string
	Type() string
	Notify(ctx context.Context, event ReactionEvent) error
	Close() error
}

type notificationJob struct {
	notifier Notifier
	event    ReactionEvent
}

// NotificationManager fans a ReactionEvent for every firing out to every
// registered Notifier via a bounded job queue, so a slow notifier never
// blocks the reaction that triggered it. Grounded on
// internal/achem/notifications.go's NotificationManager worker-queue shape.
type NotificationManager struct {
	mu        sync.RWMutex
	notifiers map[string]Notifier
	jobs      chan notificationJob
	closed    bool
	wg        sync.WaitGroup
}

func NewNotificationManager(queueSize int) *NotificationManager {
	if queueSize <= 0 {
		queueSize = 256
	}
	m := &NotificationManager{
		notifiers: make(map[string]Notifier),
		jobs:      make(chan notificationJob, queueSize),
	}
	m.wg.Add(1)
	go m.run()
	return m
}

func (m *NotificationManager) run() {
	defer m.wg.Done()
	for job := range m.jobs {
		job.notifier.Notify(context.Background(), job.event)
	}
}

func (m *NotificationManager) RegisterNotifier(n Notifier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifiers[n.ID()] = n
}

// Notify builds the event for a just-completed reaction and queues it for
// every registered notifier. If a notifier's queue slot is full the event is
// dropped for that notifier rather than blocking the reaction-firing
// goroutine.
func (m *NotificationManager) Notify(site *ReactionSite, r *Reaction, assignment MatchAssignment) {
	m.mu.RLock()
	if m.closed || len(m.notifiers) == 0 {
		m.mu.RUnlock()
		return
	}
	notifiers := make([]Notifier, 0, len(m.notifiers))
	for _, n := range m.notifiers {
		notifiers = append(notifiers, n)
	}
	m.mu.RUnlock()

	event := ReactionEvent{Site: site.Name(), Reaction: r.Info.Name, Timestamp: time.Now()}
	for idx, v := range assignment {
		event.ConsumedInputs = append(event.ConsumedInputs, MoleculeSnapshot{
			Name:    r.Info.Inputs[idx].Emitter.Name(),
			Payload: v.Payload,
		})
	}

	for _, n := range notifiers {
		select {
		case m.jobs <- notificationJob{notifier: n, event: event}:
		default:
		}
	}
}

// Close stops the worker, then closes every registered notifier.
func (m *NotificationManager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	notifiers := make([]Notifier, 0, len(m.notifiers))
	for _, n := range m.notifiers {
		notifiers = append(notifiers, n)
	}
	m.mu.Unlock()

	close(m.jobs)
	m.wg.Wait()
	for _, n := range notifiers {
		n.Close()
	}
}
