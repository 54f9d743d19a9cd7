// Package push maintains the client's subscription to the server-pushed
// event stream: a single logical connection with fixed-backoff reconnects,
// a bounded retry budget, and typed decoding of inbound frames.
package push

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fairyhunter13/marketplace-client/internal/model"
	"github.com/fairyhunter13/marketplace-client/internal/obs"
)

// Config holds the channel's connection policy.
type Config struct {
	URL    string
	Header http.Header
	// Backoff is the fixed delay between reconnect attempts.
	Backoff time.Duration
	// MaxRetries bounds consecutive failed attempts before the channel
	// fails terminally. The budget resets on every successful handshake.
	MaxRetries int
	// Buffer is the capacity of the decoded-event channel.
	Buffer int
	// OnStateChange, when set, is invoked from the channel goroutine on
	// every state transition.
	OnStateChange func(State)
}

// Channel is the push subscription. Zero value is not usable; construct
// with New and drive it with Start/Stop.
type Channel struct {
	cfg    Config
	dialer Dialer

	state  atomic.Int32
	events chan model.PushEvent

	dropped atomic.Uint64

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New constructs a Channel in the Disconnected state.
func New(cfg Config, dialer Dialer) *Channel {
	if cfg.Buffer <= 0 {
		cfg.Buffer = 64
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 3 * time.Second
	}
	return &Channel{
		cfg:    cfg,
		dialer: dialer,
		events: make(chan model.PushEvent, cfg.Buffer),
	}
}

// Events exposes the decoded push events.
func (c *Channel) Events() <-chan model.PushEvent { return c.events }

// State returns the current connection state.
func (c *Channel) State() State { return State(c.state.Load()) }

// Dropped returns the number of events discarded because the event buffer
// was full.
func (c *Channel) Dropped() uint64 { return c.dropped.Load() }

// Start begins the connect loop. It is a no-op if the channel is already
// running.
func (c *Channel) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.run(runCtx)
}

// Stop releases the subscription and forces the Disconnected state. Safe to
// call more than once.
func (c *Channel) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	// run may have already exited terminally (Failed); a stop is still a
	// release, so the observable state is always Disconnected afterwards
	c.setState(StateDisconnected)
}

func (c *Channel) setState(s State) {
	prev := State(c.state.Swap(int32(s)))
	if prev == s {
		return
	}
	obs.Logger.Info("push_state", "from", prev.String(), "to", s.String())
	if c.cfg.OnStateChange != nil {
		c.cfg.OnStateChange(s)
	}
}

// run is the connect/read loop. It owns all state transitions.
func (c *Channel) run(ctx context.Context) {
	defer close(c.done)
	retries := 0
	for {
		c.setState(StateConnecting)
		conn, err := c.dialer.Dial(ctx, c.cfg.URL, c.cfg.Header)
		if err != nil {
			if ctx.Err() != nil {
				c.setState(StateDisconnected)
				return
			}
			retries++
			obs.Logger.Warn("push_dial_failed", "error", err, "attempt", retries, "max", c.cfg.MaxRetries)
			if retries > c.cfg.MaxRetries {
				obs.Logger.Error("push_retries_exhausted", "attempts", retries)
				c.setState(StateFailed)
				return
			}
			if !c.sleep(ctx) {
				c.setState(StateDisconnected)
				return
			}
			continue
		}

		c.setState(StateConnected)
		retries = 0
		obs.Logger.Info("push_connected", "url", c.cfg.URL)

		c.readLoop(ctx, conn)
		_ = conn.Close()

		if ctx.Err() != nil {
			c.setState(StateDisconnected)
			return
		}
		retries++
		obs.Logger.Warn("push_connection_lost", "attempt", retries, "max", c.cfg.MaxRetries)
		if retries > c.cfg.MaxRetries {
			obs.Logger.Error("push_retries_exhausted", "attempts", retries)
			c.setState(StateFailed)
			return
		}
		if !c.sleep(ctx) {
			c.setState(StateDisconnected)
			return
		}
	}
}

// readLoop decodes frames until the connection drops or ctx is cancelled.
// Malformed frames are dropped without leaving the Connected state.
func (c *Channel) readLoop(ctx context.Context, conn Conn) {
	type read struct {
		data []byte
		err  error
	}
	reads := make(chan read)
	go func() {
		for {
			data, err := conn.ReadMessage()
			select {
			case reads <- read{data: data, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case r := <-reads:
			if r.err != nil {
				return
			}
			ev, ok, err := decodeFrame(r.data)
			if err != nil {
				obs.Logger.Error("frame_dropped", "error", err)
				continue
			}
			if !ok {
				obs.Logger.Debug("frame_skipped", "reason", "unrecognized event")
				continue
			}
			select {
			case c.events <- ev:
			default:
				c.dropped.Add(1)
				obs.Logger.Warn("event_buffer_full", "event", ev.Name)
			}
		}
	}
}

// sleep waits the fixed backoff; false means the context ended first.
func (c *Channel) sleep(ctx context.Context) bool {
	t := time.NewTimer(c.cfg.Backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
