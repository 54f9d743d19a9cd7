// Package notify maps accepted push events onto transient, dismissible
// notification state: at most one visible notification per kind, each with
// its own auto-dismiss timer.
package notify

import (
	"sync"
	"time"

	"github.com/fairyhunter13/marketplace-client/internal/model"
	"github.com/fairyhunter13/marketplace-client/internal/obs"
)

// Kind partitions notifications; a newer event of the same kind replaces the
// previous one.
type Kind string

const (
	KindProduct Kind = "product"
	KindOrder   Kind = "order"
)

// Notification is one visible entry.
type Notification struct {
	Kind    Kind      `json:"kind"`
	Title   string    `json:"title"`
	Body    string    `json:"body"`
	Target  string    `json:"target"`
	ShownAt time.Time `json:"shown_at"`
}

type slot struct {
	n     Notification
	timer *time.Timer
	// gen guards against a superseded timer firing late: only the timer
	// carrying the current generation may dismiss.
	gen uint64
}

// Reconciler holds the per-kind notification slots. It never touches cart,
// catalog, or push channel state.
type Reconciler struct {
	mu           sync.Mutex
	dismissAfter time.Duration
	slots        map[Kind]*slot
}

// New creates a Reconciler whose notifications auto-dismiss after d.
func New(d time.Duration) *Reconciler {
	return &Reconciler{dismissAfter: d, slots: make(map[Kind]*slot)}
}

// Apply upserts the notification derived from ev. Events of a kind already
// visible replace it and restart its timer; the newer event always wins.
func (r *Reconciler) Apply(ev model.PushEvent) {
	switch {
	case ev.ProductCreated != nil:
		p := ev.ProductCreated
		r.upsert(Notification{
			Kind:   KindProduct,
			Title:  "New product available",
			Body:   p.ProductName,
			Target: "/products/" + p.ProductID,
		})
	case ev.OrderUpdated != nil:
		o := ev.OrderUpdated
		r.upsert(Notification{
			Kind:   KindOrder,
			Title:  "Order updated",
			Body:   o.Status,
			Target: "/orders/" + o.OrderID,
		})
	}
}

func (r *Reconciler) upsert(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[n.Kind]
	if !ok {
		s = &slot{}
		r.slots[n.Kind] = s
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	n.ShownAt = time.Now()
	s.n = n
	gen := s.gen
	kind := n.Kind
	s.timer = time.AfterFunc(r.dismissAfter, func() {
		r.dismissIfCurrent(kind, gen)
	})
	obs.Logger.Info("notification_shown", "kind", string(n.Kind), "title", n.Title)
}

// dismissIfCurrent is the timer path: it only clears the slot if no newer
// notification replaced the one the timer was armed for.
func (r *Reconciler) dismissIfCurrent(kind Kind, gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[kind]
	if !ok || s.gen != gen {
		return
	}
	r.clearLocked(kind, s)
}

// Dismiss manually clears the visible notification of the given kind.
func (r *Reconciler) Dismiss(kind Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[kind]
	if !ok {
		return
	}
	r.clearLocked(kind, s)
}

func (r *Reconciler) clearLocked(kind Kind, s *slot) {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	delete(r.slots, kind)
	obs.Logger.Info("notification_dismissed", "kind", string(kind))
}

// View returns the navigation target for the visible notification of the
// given kind. Pure read: it does not dismiss or mutate anything.
func (r *Reconciler) View(kind Kind) (target string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, found := r.slots[kind]
	if !found {
		return "", false
	}
	return s.n.Target, true
}

// Visible returns the currently visible notification of the given kind.
func (r *Reconciler) Visible(kind Kind) (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[kind]
	if !ok {
		return Notification{}, false
	}
	return s.n, true
}

// Snapshot returns all visible notifications, product kind first.
func (r *Reconciler) Snapshot() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Notification
	for _, kind := range []Kind{KindProduct, KindOrder} {
		if s, ok := r.slots[kind]; ok {
			out = append(out, s.n)
		}
	}
	return out
}

// Close stops all pending timers. Called on session teardown.
func (r *Reconciler) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for kind, s := range r.slots {
		if s.timer != nil {
			s.timer.Stop()
		}
		delete(r.slots, kind)
	}
}
