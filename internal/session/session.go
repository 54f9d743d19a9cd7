// Package session owns the process-wide realtime state: the push channel and
// the notification reconciler. It is constructed once at startup and torn
// down at logout; nothing here is ambient or global.
package session

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/fairyhunter13/marketplace-client/internal/model"
	"github.com/fairyhunter13/marketplace-client/internal/notify"
	"github.com/fairyhunter13/marketplace-client/internal/obs"
	"github.com/fairyhunter13/marketplace-client/internal/push"
)

// Config bundles what the session needs to decide on and run the push
// subscription.
type Config struct {
	Role         model.Role
	PushURL      string
	SessionToken string
	Backoff      time.Duration
	MaxRetries   int
	Buffer       int
	DismissAfter time.Duration
}

// Session wires the push channel into the reconciler for the lifetime of an
// authenticated session. Only buyers consume the event stream; for any other
// role the channel stays disconnected and no subscription is attempted.
type Session struct {
	role    model.Role
	channel *push.Channel
	notes   *notify.Reconciler

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	started bool
	closed  bool
}

// New builds a Session. dialer is the push transport; tests pass a fake.
func New(cfg Config, dialer push.Dialer) *Session {
	header := http.Header{}
	if cfg.SessionToken != "" {
		header.Set("Authorization", "Bearer "+cfg.SessionToken)
	}
	ch := push.New(push.Config{
		URL:        cfg.PushURL,
		Header:     header,
		Backoff:    cfg.Backoff,
		MaxRetries: cfg.MaxRetries,
		Buffer:     cfg.Buffer,
		OnStateChange: func(s push.State) {
			if s == push.StateConnected {
				obs.Logger.Info("realtime_ready")
			}
		},
	}, dialer)
	return &Session{
		role:    cfg.Role,
		channel: ch,
		notes:   notify.New(cfg.DismissAfter),
	}
}

// Start connects the push channel when the role consumes the event stream
// and begins dispatching events into the reconciler. For non-buyer roles it
// does nothing.
func (s *Session) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.closed {
		return
	}
	if s.role != model.RoleBuyer {
		obs.Logger.Info("push_skipped", "role", string(s.role))
		return
	}
	s.started = true
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.channel.Start(runCtx)
	s.wg.Add(1)
	go s.dispatch(runCtx)
}

// dispatch drains channel events into the reconciler.
func (s *Session) dispatch(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-s.channel.Events():
			s.notes.Apply(ev)
		}
	}
}

// Close tears the session down: the subscription is released, pending
// dismiss timers are stopped. Safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.channel.Stop()
	s.wg.Wait()
	s.notes.Close()
	obs.Logger.Info("session_closed")
}

// Role returns the role decoded at construction.
func (s *Session) Role() model.Role { return s.role }

// PushState exposes the channel state for the UI surface.
func (s *Session) PushState() push.State { return s.channel.State() }

// Notifications exposes the reconciler for the UI surface.
func (s *Session) Notifications() *notify.Reconciler { return s.notes }

// DroppedEvents reports events discarded because the buffer was full.
func (s *Session) DroppedEvents() uint64 { return s.channel.Dropped() }
