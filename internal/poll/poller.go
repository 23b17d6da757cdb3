package poll

import (
	"context"
	"sync"
	"time"
)

// FetchFunc loads one value. It must return promptly once ctx is cancelled.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Handle controls a running poller.
type Handle struct {
	cancel   context.CancelFunc
	refresh  chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// Stop cancels the poller and any fetch it has in flight, then waits for its
// goroutines to exit. It is safe to call more than once.
func (h *Handle) Stop() {
	h.stopOnce.Do(h.cancel)
	<-h.done
}

// Refresh asks for a manual refresh. It never blocks; requests made while one
// is already queued are merged.
func (h *Handle) Refresh() {
	select {
	case h.refresh <- struct{}{}:
	default:
	}
}

// Done is closed once the poller has fully stopped.
func (h *Handle) Done() <-chan struct{} { return h.done }

type result[T any] struct {
	ticket Ticket
	value  T
	err    error
}

type poller[T any] struct {
	res      *Resource[T]
	fetch    FetchFunc[T]
	onChange func(Snapshot[T])
	refresh  chan struct{}
	results  chan result[T]
	wg       sync.WaitGroup
}

// Start mounts res and keeps it refreshed on its interval until ctx is
// cancelled or the returned Handle is stopped. onChange, if non-nil, is
// called from the poller goroutine after every applied result.
func Start[T any](ctx context.Context, res *Resource[T], fetch FetchFunc[T], onChange func(Snapshot[T])) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	p := &poller[T]{
		res:      res,
		fetch:    fetch,
		onChange: onChange,
		refresh:  make(chan struct{}, 1),
		results:  make(chan result[T], 1),
	}
	h := &Handle{
		cancel:  cancel,
		refresh: p.refresh,
		done:    make(chan struct{}),
	}

	go func() {
		defer close(h.done)
		p.run(ctx)
	}()
	return h
}

func (p *poller[T]) run(ctx context.Context) {
	defer func() {
		p.res.Unmount()
		p.wg.Wait()
	}()

	if t, ok := p.res.Mount(); ok {
		p.launch(ctx, t)
	}

	var tick <-chan time.Time
	if iv := p.res.Interval(); iv > 0 {
		ticker := time.NewTicker(iv)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			if t, ok := p.res.Begin(TriggerTimer); ok {
				p.launch(ctx, t)
			}
		case <-p.refresh:
			if t, ok := p.res.Begin(TriggerManual); ok {
				p.launch(ctx, t)
			}
		case r := <-p.results:
			if !p.res.Resolve(r.ticket, r.value, r.err) {
				continue
			}
			if p.onChange != nil {
				p.onChange(p.res.Snapshot())
			}
			if t, ok := p.res.Followup(); ok {
				p.launch(ctx, t)
			}
		}
	}
}

func (p *poller[T]) launch(ctx context.Context, t Ticket) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		v, err := p.fetch(ctx)
		select {
		case p.results <- result[T]{ticket: t, value: v, err: err}:
		case <-ctx.Done():
		}
	}()
}
