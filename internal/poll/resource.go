// Package poll implements the fetch/refresh state machine behind every
// polling data view, independent of how fetches are scheduled or rendered.
package poll

import (
	"sync"
	"time"
)

// Status is the display state of a Resource.
type Status int

const (
	Idle Status = iota
	Loading
	Ready
	Error
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Trigger says why a fetch is being requested.
type Trigger int

const (
	TriggerTimer Trigger = iota
	TriggerManual
)

func (t Trigger) String() string {
	if t == TriggerManual {
		return "manual"
	}
	return "timer"
}

// Ticket identifies one issued fetch. Tickets increase monotonically per
// Resource and are never reused, including across remounts.
type Ticket uint64

// Snapshot is a point-in-time copy of a Resource's state.
type Snapshot[T any] struct {
	Endpoint          string
	Status            Status
	Value             T
	HasValue          bool
	Err               error
	UpdatedAt         time.Time
	ConsecutiveErrors int
	InFlight          bool
	Pending           bool
	Mounted           bool
}

// Stale reports whether a previous value is being shown alongside a newer failure.
func (s Snapshot[T]) Stale() bool {
	return s.Status == Error && s.HasValue
}

// Resource tracks one remote payload through mount, refresh and teardown.
//
// Only the most recently issued ticket may be applied. At most one fetch is
// in flight unless Invalidate deliberately supersedes it.
type Resource[T any] struct {
	mu       sync.Mutex
	endpoint string
	interval time.Duration
	now      func() time.Time

	mounted  bool
	issued   Ticket
	inFlight bool
	pending  bool

	status    Status
	value     T
	hasValue  bool
	err       error
	updatedAt time.Time
	errCount  int
}

// NewResource creates an idle resource. A zero interval means the resource is
// fetched once per mount and then only on request.
func NewResource[T any](endpoint string, interval time.Duration) *Resource[T] {
	return &Resource[T]{
		endpoint: endpoint,
		interval: interval,
		now:      time.Now,
	}
}

func (r *Resource[T]) Endpoint() string { return r.endpoint }

func (r *Resource[T]) Interval() time.Duration { return r.interval }

// Mount starts the resource's lifecycle and issues its first fetch. A value
// kept from an earlier mount stays visible while loading. Mounting an already
// mounted resource is a no-op.
func (r *Resource[T]) Mount() (Ticket, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.mounted {
		return 0, false
	}
	r.mounted = true
	r.inFlight = false
	r.pending = false
	return r.issueLocked(), true
}

// Begin requests a refresh. It returns false when the resource is unmounted or
// a fetch is already in flight; a manual request made while in flight is
// remembered and served by the next timer tick, or by Followup for fetch-once
// resources.
func (r *Resource[T]) Begin(trigger Trigger) (Ticket, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.mounted {
		return 0, false
	}
	if r.inFlight {
		if trigger == TriggerManual {
			r.pending = true
		}
		return 0, false
	}
	return r.issueLocked(), true
}

// Invalidate issues a new ticket even when a fetch is in flight. The older
// fetch's result is discarded when it arrives.
func (r *Resource[T]) Invalidate() (Ticket, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.mounted {
		return 0, false
	}
	return r.issueLocked(), true
}

// Followup issues the fetch owed to a coalesced manual refresh on a fetch-once
// resource. Polled resources wait for their next timer tick instead.
func (r *Resource[T]) Followup() (Ticket, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.mounted || r.inFlight || !r.pending || r.interval > 0 {
		return 0, false
	}
	return r.issueLocked(), true
}

func (r *Resource[T]) issueLocked() Ticket {
	r.issued++
	r.inFlight = true
	r.pending = false
	r.status = Loading
	return r.issued
}

// Resolve applies the outcome of the fetch identified by t. It reports false,
// leaving state untouched, when the resource is unmounted or t has been
// superseded by a newer ticket.
func (r *Resource[T]) Resolve(t Ticket, v T, err error) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.mounted || t != r.issued || !r.inFlight {
		return false
	}
	r.inFlight = false

	if err != nil {
		r.status = Error
		r.err = err
		r.errCount++
		return true
	}
	r.status = Ready
	r.value = v
	r.hasValue = true
	r.err = nil
	r.errCount = 0
	r.updatedAt = r.now()
	return true
}

// Unmount ends the lifecycle. Results of fetches issued before Unmount are
// discarded; the last state stays readable through Snapshot.
func (r *Resource[T]) Unmount() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.mounted = false
	r.inFlight = false
	r.pending = false
	if r.status == Loading {
		if r.err != nil {
			r.status = Error
		} else if r.hasValue {
			r.status = Ready
		} else {
			r.status = Idle
		}
	}
}

// Current reports whether t is the latest issued ticket of a mounted resource.
func (r *Resource[T]) Current(t Ticket) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mounted && t == r.issued
}

func (r *Resource[T]) Snapshot() Snapshot[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot[T]{
		Endpoint:          r.endpoint,
		Status:            r.status,
		Value:             r.value,
		HasValue:          r.hasValue,
		Err:               r.err,
		UpdatedAt:         r.updatedAt,
		ConsecutiveErrors: r.errCount,
		InFlight:          r.inFlight,
		Pending:           r.pending,
		Mounted:           r.mounted,
	}
}

// Update replaces the held value without a fetch, for local adjustments
// between polls such as countdown decrements. It is ignored until a value has
// been applied.
func (r *Resource[T]) Update(fn func(T) T) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.hasValue {
		return false
	}
	r.value = fn(r.value)
	return true
}
