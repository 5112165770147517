package inspector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/vango-dev/reactor/pkg/reactive"
)

// ErrHubStopped is returned by hub calls made after Run has returned.
var ErrHubStopped = errors.New("inspector: hub stopped")

// Frame is a message sent to subscribed clients.
type Frame struct {
	// Type is "snapshot" for the first frame and "change" afterwards.
	Type string `json:"type"`

	// Seq increases by one per change across all clients.
	Seq uint64 `json:"seq"`

	// State is the plain state after the change.
	State any `json:"state"`
}

// Hub owns a reactive runtime and its state object. A runtime is
// single-threaded, so every access runs on the goroutine executing Run;
// other goroutines submit work through the hub's methods.
type Hub struct {
	rt    *reactive.Runtime
	state *reactive.Object

	requests chan request
	done     chan struct{}

	logger *slog.Logger

	// Owned by the Run goroutine.
	clients map[string]*client
	seq     uint64
}

type request struct {
	fn     func() error
	result chan error
}

type client struct {
	frames  chan Frame
	watcher *reactive.Watcher
}

// ClientBuffer is the number of frames queued per client before frames
// are dropped.
const ClientBuffer = 16

// NewHub creates a hub whose state starts as a copy of initial.
func NewHub(initial map[string]any, logger *slog.Logger, opts ...reactive.Option) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	state := make(map[string]any, len(initial))
	for k, v := range initial {
		state[k] = v
	}

	rt := reactive.New(append([]reactive.Option{reactive.WithLogger(logger)}, opts...)...)
	return &Hub{
		rt:       rt,
		state:    rt.Reactive(state),
		requests: make(chan request),
		done:     make(chan struct{}),
		logger:   logger,
		clients:  make(map[string]*client),
	}
}

// Run serves requests until ctx is cancelled. On return every subscriber
// is stopped and its frame channel closed.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	defer h.stopClients()

	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-h.requests:
			req.result <- h.exec(req.fn)
		}
	}
}

// exec runs fn and turns a panic into an error so that one bad request
// cannot take the hub down.
func (h *Hub) exec(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("inspector: request panicked", "panic", r)
			err = fmt.Errorf("inspector: request panicked: %v", r)
		}
	}()
	return fn()
}

// do runs fn on the hub goroutine and waits for it. ctx only bounds the
// wait for the hub to accept fn; an accepted fn always completes and its
// result is returned, so work such as a subscription is never orphaned.
func (h *Hub) do(ctx context.Context, fn func() error) error {
	req := request{fn: fn, result: make(chan error, 1)}
	select {
	case h.requests <- req:
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	return <-req.result
}

// Snapshot returns a plain copy of the whole state.
func (h *Hub) Snapshot(ctx context.Context) (map[string]any, error) {
	var snap map[string]any
	err := h.do(ctx, func() error {
		snap, _ = h.state.Snapshot().(map[string]any)
		return nil
	})
	return snap, err
}

// Get returns a plain copy of the value under key.
func (h *Hub) Get(ctx context.Context, key string) (value any, ok bool, err error) {
	err = h.do(ctx, func() error {
		if !h.state.Has(key) {
			return nil
		}
		ok = true
		value = h.state.Get(key)
		if obj, isObj := value.(*reactive.Object); isObj {
			value = obj.Snapshot()
		}
		return nil
	})
	return value, ok, err
}

// Set writes value under key, notifying subscribers if it changed.
func (h *Hub) Set(ctx context.Context, key string, value any) error {
	return h.do(ctx, func() error {
		return h.state.Set(key, normalizeJSON(value))
	})
}

// Delete removes key, notifying subscribers if it existed.
func (h *Hub) Delete(ctx context.Context, key string) error {
	return h.do(ctx, func() error {
		return h.state.Delete(key)
	})
}

// Stats returns the runtime's registry and cache sizes.
func (h *Hub) Stats(ctx context.Context) (reactive.Stats, error) {
	var stats reactive.Stats
	err := h.do(ctx, func() error {
		stats = h.rt.Stats()
		return nil
	})
	return stats, err
}

// Subscribe registers a client. The returned channel receives a snapshot
// frame, then one change frame per change, and is closed by Unsubscribe
// or when the hub stops.
func (h *Hub) Subscribe(ctx context.Context, id string) (<-chan Frame, error) {
	var frames <-chan Frame
	err := h.do(ctx, func() error {
		var err error
		frames, err = h.subscribe(id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return frames, nil
}

// subscribe registers a client. It must run on the hub goroutine.
func (h *Hub) subscribe(id string) (<-chan Frame, error) {
	if _, exists := h.clients[id]; exists {
		return nil, fmt.Errorf("inspector: client %s already subscribed", id)
	}

	c := &client{frames: make(chan Frame, ClientBuffer)}
	w, err := reactive.Watch(h.rt, h.state, func(_, _ any, _ reactive.OnCleanup) {
		h.seq++
		h.push(id, c, Frame{Type: "change", Seq: h.seq, State: h.state.Snapshot()})
	}, reactive.WithWatchName("client:"+id))
	if err != nil {
		return nil, err
	}

	c.watcher = w
	h.clients[id] = c
	h.push(id, c, Frame{Type: "snapshot", Seq: h.seq, State: h.state.Snapshot()})
	h.logger.Debug("inspector: client subscribed", "client", id, "clients", len(h.clients))
	return c.frames, nil
}

// Unsubscribe stops the client's watcher and closes its channel.
func (h *Hub) Unsubscribe(ctx context.Context, id string) error {
	return h.do(ctx, func() error {
		c, ok := h.clients[id]
		if !ok {
			return nil
		}
		delete(h.clients, id)
		c.watcher.Stop()
		close(c.frames)
		h.logger.Debug("inspector: client unsubscribed", "client", id, "clients", len(h.clients))
		return nil
	})
}

// push queues f without blocking the hub. Slow clients lose frames; the
// next frame carries the full state anyway.
func (h *Hub) push(id string, c *client, f Frame) {
	select {
	case c.frames <- f:
	default:
		h.logger.Warn("inspector: dropping frame for slow client", "client", id, "seq", f.Seq)
	}
}

func (h *Hub) stopClients() {
	for id, c := range h.clients {
		c.watcher.Stop()
		close(c.frames)
		delete(h.clients, id)
	}
}

// normalizeJSON turns integral JSON numbers into ints so that they compare
// equal to the ints already in the state.
func normalizeJSON(v any) any {
	switch t := v.(type) {
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1<<53 {
			return int(t)
		}
		return t
	case map[string]any:
		for k, e := range t {
			t[k] = normalizeJSON(e)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = normalizeJSON(e)
		}
		return t
	}
	return v
}
