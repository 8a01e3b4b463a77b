package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/flemzord/sweagent/internal/agent"
	"github.com/flemzord/sweagent/internal/provider"
)

// Step event kinds.
const (
	EventState    = "state"
	EventFinished = "finished"
)

const writeTimeout = 5 * time.Second

// StepEvent is the JSON snapshot pushed to step stream subscribers.
type StepEvent struct {
	Kind      string          `json:"kind"`
	Step      int             `json:"step"`
	State     agent.State     `json:"state"`
	Tools     []string        `json:"tools,omitempty"`
	Error     string          `json:"error,omitempty"`
	Usage     *provider.Usage `json:"usage,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

func newStepEvent(kind string, step agent.Step, now time.Time) StepEvent {
	ev := StepEvent{
		Kind:      kind,
		Step:      step.Number,
		State:     step.State,
		Error:     step.Error,
		Usage:     step.Usage,
		Timestamp: now,
	}
	for _, c := range step.ToolCalls {
		ev.Tools = append(ev.Tools, c.Name)
	}
	return ev
}

type subscriber struct {
	ch chan StepEvent
}

// Hub fans step events out to websocket subscribers. It implements
// agent.Observer. A subscriber whose queue is full is dropped.
type Hub struct {
	buffer int
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	subs     map[*subscriber]struct{}
	last     *StepEvent
	finished int
	closed   bool
}

// NewHub creates a hub queueing up to buffer events per subscriber.
func NewHub(buffer int, logger *slog.Logger) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		buffer: buffer,
		logger: logger.With("component", "step_stream"),
		now:    time.Now,
		subs:   make(map[*subscriber]struct{}),
	}
}

var _ agent.Observer = (*Hub)(nil)

// OnStateChange implements agent.Observer.
func (h *Hub) OnStateChange(step agent.Step) {
	h.publish(newStepEvent(EventState, step, h.now()))
}

// OnStepFinished implements agent.Observer.
func (h *Hub) OnStepFinished(step agent.Step) {
	h.publish(newStepEvent(EventFinished, step, h.now()))
}

func (h *Hub) publish(ev StepEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.last = &ev
	if ev.Kind == EventFinished {
		h.finished++
	}
	for s := range h.subs {
		select {
		case s.ch <- ev:
		default:
			h.dropLocked(s)
			h.logger.Warn("dropped slow step subscriber", "step", ev.Step)
		}
	}
}

// Subscribe registers a subscriber. The returned channel is closed when
// the subscriber is dropped, the hub closes, or cancel is called. The
// last event seen, if any, is queued first.
func (h *Hub) Subscribe() (<-chan StepEvent, func()) {
	s := &subscriber{ch: make(chan StepEvent, h.buffer)}

	h.mu.Lock()
	if h.closed {
		close(s.ch)
		h.mu.Unlock()
		return s.ch, func() {}
	}
	if h.last != nil {
		s.ch <- *h.last
	}
	h.subs[s] = struct{}{}
	h.mu.Unlock()

	return s.ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.dropLocked(s)
	}
}

func (h *Hub) dropLocked(s *subscriber) {
	if _, ok := h.subs[s]; !ok {
		return
	}
	delete(h.subs, s)
	close(s.ch)
}

// Subscribers returns the number of live subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Last returns the most recent event and the number of finished steps.
func (h *Hub) Last() (*StepEvent, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.last == nil {
		return nil, h.finished
	}
	ev := *h.last
	return &ev, h.finished
}

// Close drops every subscriber and stops accepting new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for s := range h.subs {
		h.dropLocked(s)
	}
}

// ServeHTTP upgrades the request to a websocket and streams step events
// as JSON text messages until the client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket accept failed", "error", err)
		return
	}
	defer func() { _ = conn.CloseNow() }()

	events, cancel := h.Subscribe()
	defer cancel()

	// Clients only listen; CloseRead handles their control frames.
	ctx := conn.CloseRead(r.Context())

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				_ = conn.Close(websocket.StatusGoingAway, h.closeReason())
				return
			}
			if err := h.write(ctx, conn, ev); err != nil {
				h.logger.Debug("step stream write failed", "error", err)
				return
			}
		}
	}
}

func (h *Hub) closeReason() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return "server shutting down"
	}
	return "subscriber too slow"
}

func (h *Hub) write(ctx context.Context, conn *websocket.Conn, ev StepEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}
