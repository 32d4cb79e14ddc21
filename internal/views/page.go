package views

import (
	"context"
	"errors"
	"sync"
)

// Status is the load state of a page.
type Status int

const (
	StatusLoading Status = iota
	StatusError
	StatusReady
)

func (s Status) String() string {
	switch s {
	case StatusError:
		return "error"
	case StatusReady:
		return "ready"
	default:
		return "loading"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ErrUnmounted is returned by Mount and Refresh when the page was unmounted
// or reloaded while the load was in flight. The result has been dropped.
var ErrUnmounted = errors.New("page unmounted")

// Loader fetches the data for a page.
type Loader[T any] func(ctx context.Context) (T, error)

// State is a point-in-time copy of a page.
type State[T any] struct {
	Status  Status `json:"status"`
	Data    T      `json:"data"`
	Err     error  `json:"-"`
	Message string `json:"error,omitempty"`
}

// Page runs a Loader through the mount, refresh and unmount lifecycle and
// tracks Loading, Error and Ready. Only the most recent load may publish its
// result; earlier or post-unmount results are discarded.
type Page[T any] struct {
	load     Loader[T]
	fallback string
	onError  func(error)

	mu      sync.Mutex
	state   State[T]
	gen     uint64
	cancel  context.CancelFunc
	mounted bool
}

// NewPage creates an unmounted page. fallback is the user message shown when
// the error carries no server message.
func NewPage[T any](load Loader[T], fallback string, onError func(error)) *Page[T] {
	return &Page[T]{load: load, fallback: fallback, onError: onError}
}

// Mount marks the page mounted and loads it. It blocks until the load
// completes and returns the load error, if any.
func (p *Page[T]) Mount(ctx context.Context) error {
	p.mu.Lock()
	p.mounted = true
	p.mu.Unlock()
	return p.run(ctx)
}

// Refresh reloads a mounted page. Data from the previous load stays visible
// until the new load finishes.
func (p *Page[T]) Refresh(ctx context.Context) error {
	p.mu.Lock()
	mounted := p.mounted
	p.mu.Unlock()
	if !mounted {
		return ErrUnmounted
	}
	return p.run(ctx)
}

// Unmount cancels any in-flight load.
func (p *Page[T]) Unmount() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mounted = false
	p.gen++
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

// State returns a copy of the current state.
func (p *Page[T]) State() State[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Page[T]) run(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.gen++
	gen := p.gen
	p.cancel = cancel
	if p.state.Status != StatusReady {
		p.state.Status = StatusLoading
	}
	p.mu.Unlock()

	data, err := p.load(ctx)

	p.mu.Lock()
	if gen != p.gen || !p.mounted {
		p.mu.Unlock()
		return ErrUnmounted
	}
	p.cancel = nil
	if err != nil {
		p.state = State[T]{Status: StatusError, Data: p.state.Data, Err: err, Message: UserMessage(err, p.fallback)}
	} else {
		p.state = State[T]{Status: StatusReady, Data: data}
	}
	p.mu.Unlock()

	if err != nil && p.onError != nil {
		p.onError(err)
	}
	return err
}
