package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const defaultHeartbeat = 15 * time.Second

// Client is one SSE connection subscribed to a single job.
type Client struct {
	ID       uuid.UUID
	JobID    string
	Outbound chan Event
	done     chan struct{}
	once     sync.Once
}

// Hub delivers events to the SSE clients of this process.
type Hub struct {
	mu            sync.RWMutex
	logger        zerolog.Logger
	subscriptions map[string]map[*Client]bool
	Heartbeat     time.Duration
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		logger:        logger.With().Str("component", "sse_hub").Logger(),
		subscriptions: make(map[string]map[*Client]bool),
		Heartbeat:     defaultHeartbeat,
	}
}

// Subscribe registers a client for the job's events.
func (h *Hub) Subscribe(jobID string) *Client {
	c := &Client{
		ID:       uuid.New(),
		JobID:    strings.TrimSpace(jobID),
		Outbound: make(chan Event, 16),
		done:     make(chan struct{}),
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.subscriptions[c.JobID]
	if !ok {
		clients = make(map[*Client]bool)
		h.subscriptions[c.JobID] = clients
	}
	clients[c] = true
	h.logger.Debug().Str("client_id", c.ID.String()).Str("job_id", c.JobID).Msg("sse client subscribed")
	return c
}

// Unsubscribe removes the client and closes its outbound channel.
func (h *Hub) Unsubscribe(c *Client) {
	c.once.Do(func() {
		h.mu.Lock()
		if clients, ok := h.subscriptions[c.JobID]; ok {
			delete(clients, c)
			if len(clients) == 0 {
				delete(h.subscriptions, c.JobID)
			}
		}
		close(c.done)
		close(c.Outbound)
		h.mu.Unlock()
	})
}

// Publish broadcasts locally. It satisfies Publisher for single-replica setups.
func (h *Hub) Publish(_ context.Context, ev Event) error {
	h.Broadcast(ev)
	return nil
}

// Broadcast delivers ev to every client of its job. Slow clients drop events
// rather than stall the publisher.
func (h *Hub) Broadcast(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if ev.JobID == "" {
		return
	}
	for c := range h.subscriptions[ev.JobID] {
		select {
		case c.Outbound <- ev:
		default:
			h.logger.Warn().Str("client_id", c.ID.String()).Msg("dropping sse event; outbound buffer full")
		}
	}
}

// Close disconnects every client. Serve loops return once their client is gone.
func (h *Hub) Close() {
	h.mu.RLock()
	var clients []*Client
	for _, set := range h.subscriptions {
		for c := range set {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()
	for _, c := range clients {
		h.Unsubscribe(c)
	}
}

// Subscribers returns the number of clients of a job.
func (h *Hub) Subscribers(jobID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscriptions[jobID])
}

// Resync drops progress events queued for c and returns any terminal events
// among them. Callers subscribe, read the current state, then Resync so the
// stream starts from that state without losing the final event.
func (c *Client) Resync() []Event {
	var terminal []Event
	for {
		select {
		case ev, ok := <-c.Outbound:
			if !ok {
				return terminal
			}
			if ev.Type != EventProgress {
				terminal = append(terminal, ev)
			}
		default:
			return terminal
		}
	}
}

// Serve writes initial, then streams the client's events until the request
// ends or a terminal event is written. render may rewrite each event before it
// is sent.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, c *Client, render func(Event) Event, initial ...Event) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	flusher.Flush()

	// send reports whether the stream should continue.
	send := func(ev Event) bool {
		if render != nil {
			ev = render(ev)
		}
		if err := WriteEvent(w, ev); err != nil {
			h.logger.Warn().Err(err).Msg("failed to write sse event")
			return false
		}
		flusher.Flush()
		return ev.Type == EventProgress
	}
	for _, ev := range initial {
		if !send(ev) {
			return
		}
	}

	interval := h.Heartbeat
	if interval <= 0 {
		interval = defaultHeartbeat
	}
	heartbeat := time.NewTicker(interval)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case ev, ok := <-c.Outbound:
			if !ok || !send(ev) {
				return
			}
		}
	}
}

// WriteEvent writes ev in text/event-stream framing.
func WriteEvent(w io.Writer, ev Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, raw)
	return err
}
