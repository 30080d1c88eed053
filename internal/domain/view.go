package domain

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Dispatcher runs fn on the goroutine that owns the view, typically the UI event loop.
type Dispatcher func(fn func())

// SaveOptions controls a View.Save call.
type SaveOptions struct {
	// Wait delays the change notification until the remote save has completed.
	Wait bool
	// OnError runs when the persister fails. The view keeps its local attributes.
	OnError func(v *View, err error)
	// OnSuccess runs with the id returned by the persister.
	OnSuccess func(v *View, response string)
}

// View is a view record shared between the application, which owns it, and the dialogs
// that edit it. Observers are notified synchronously on the goroutine that mutates it.
type View struct {
	mu        sync.Mutex
	attrs     ViewAttributes
	destroyed bool
	dispatch  Dispatcher

	nextObserverID   int
	changeObservers  map[int]func(*View)
	destroyObservers map[int]func(*View)
}

// NewView wraps attrs in a view record.
func NewView(attrs ViewAttributes) *View {
	return &View{
		attrs:            attrs.Clone(),
		changeObservers:  make(map[int]func(*View)),
		destroyObservers: make(map[int]func(*View)),
	}
}

// NewDefaultView returns an unsaved view showing every category of g.
func NewDefaultView(g *Graph) *View {
	attrs := ViewAttributes{
		Topology: TopologyLayer2,
		Zoom:     DefaultZoom,
	}
	if g != nil {
		attrs.Categories = g.Categories()
	}
	return NewView(attrs)
}

// SetDispatcher sets where save continuations run. Without one they run on the
// persister's goroutine.
func (v *View) SetDispatcher(d Dispatcher) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.dispatch = d
}

// Attributes returns a copy of the current attributes.
func (v *View) Attributes() ViewAttributes {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.attrs.Clone()
}

// ID returns the view id, empty until the first successful save.
func (v *View) ID() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.attrs.ViewID
}

// IsNew reports whether the view has never been persisted.
func (v *View) IsNew() bool {
	return v.ID() == ""
}

// Set applies mutate to the attributes and notifies change observers.
func (v *View) Set(mutate func(a *ViewAttributes)) {
	v.mu.Lock()
	mutate(&v.attrs)
	v.mu.Unlock()
	v.notify(v.changeObservers)
}

// OnChange subscribes fn to attribute changes. The returned func unsubscribes and may
// be called more than once.
func (v *View) OnChange(fn func(*View)) func() {
	unsubscribe, _ := v.subscribe(v.changeObservers, fn)
	return unsubscribe
}

// OnDestroy subscribes fn to the destruction of the view. On a view that is already
// destroyed fn runs immediately.
func (v *View) OnDestroy(fn func(*View)) func() {
	unsubscribe, ok := v.subscribe(v.destroyObservers, fn)
	if !ok {
		fn(v)
	}
	return unsubscribe
}

// Destroy notifies destroy observers once and drops every subscription.
func (v *View) Destroy() {
	v.mu.Lock()
	if v.destroyed {
		v.mu.Unlock()
		return
	}
	v.destroyed = true
	v.mu.Unlock()

	v.notify(v.destroyObservers)

	v.mu.Lock()
	clear(v.changeObservers)
	clear(v.destroyObservers)
	v.mu.Unlock()
}

// Save persists a snapshot of the attributes on a separate goroutine and returns
// immediately. The returned channel is closed once the continuation has run.
func (v *View) Save(ctx context.Context, p Persister, opts SaveOptions) <-chan struct{} {
	snapshot := v.Attributes()
	if !opts.Wait {
		v.notify(v.changeObservers)
	}

	done := make(chan struct{})
	go func() {
		id, err := p.SaveView(ctx, snapshot)
		if err != nil && !errors.Is(err, ErrPersist) {
			err = fmt.Errorf("%w: %w", ErrPersist, err)
		}
		v.run(func() {
			defer close(done)
			if err != nil {
				if opts.OnError != nil {
					opts.OnError(v, err)
				}
				return
			}
			if opts.Wait {
				v.notify(v.changeObservers)
			}
			if opts.OnSuccess != nil {
				opts.OnSuccess(v, id)
			}
		})
	}()
	return done
}

func (v *View) run(fn func()) {
	v.mu.Lock()
	dispatch := v.dispatch
	v.mu.Unlock()
	if dispatch == nil {
		fn()
		return
	}
	dispatch(fn)
}

// subscribe registers fn and reports false, registering nothing, once the view is destroyed.
func (v *View) subscribe(observers map[int]func(*View), fn func(*View)) (func(), bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.destroyed {
		return func() {}, false
	}
	id := v.nextObserverID
	v.nextObserverID++
	observers[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			v.mu.Lock()
			defer v.mu.Unlock()
			delete(observers, id)
		})
	}, true
}

// notify calls observers in subscription order, outside the lock so that observers may
// read the view or unsubscribe.
func (v *View) notify(observers map[int]func(*View)) {
	v.mu.Lock()
	ids := slices.Sorted(maps.Keys(observers))
	fns := make([]func(*View), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, observers[id])
	}
	v.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}
