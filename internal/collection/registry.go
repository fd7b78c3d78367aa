package collection

import (
	"fmt"
	"sync"

	"tabletop-core/internal/document"
	"tabletop-core/internal/protocol"
)

// CollectionTarget registers an observer for the collection as a whole
// rather than for one document id.
const CollectionTarget = "*"

// RenderContext tells a dependent view what changed so it can decide
// between a full and an incremental redraw.
type RenderContext struct {
	Action       protocol.Action
	DocumentType string
	Documents    []*document.Document
	UserID       string
	Broadcast    bool
	Label        string
}

// View is any rendering surface whose content depends on a document or
// collection. Views must not mutate collection state from Render; a view
// that needs a follow-up change issues a new request, which queues.
type View interface {
	Render(force bool, ctx RenderContext) error
}

// Registry tracks which live views depend on which target. It never owns
// view lifetime; a view that closes itself just unregisters.
type Registry struct {
	mu        sync.Mutex
	observers map[string][]View
}

func NewRegistry() *Registry {
	return &Registry{observers: make(map[string][]View)}
}

// Register adds a view for a target (document id or CollectionTarget).
// Registering the same view twice for one target has no further effect.
func (r *Registry) Register(target string, view View) {
	if view == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.observers[target] {
		if existing == view {
			return
		}
	}
	r.observers[target] = append(r.observers[target], view)
}

// Unregister removes a view from every target it was registered for.
// Unknown views are a no-op.
func (r *Registry) Unregister(view View) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for target, views := range r.observers {
		kept := views[:0]
		for _, v := range views {
			if v != view {
				kept = append(kept, v)
			}
		}
		if len(kept) == 0 {
			delete(r.observers, target)
		} else {
			r.observers[target] = kept
		}
	}
}

// Notify invokes every view currently registered for target. A view
// failing or panicking does not stop the fan-out; failures are collected
// and returned once all views ran.
func (r *Registry) Notify(target string, ctx RenderContext) error {
	r.mu.Lock()
	views := make([]View, len(r.observers[target]))
	copy(views, r.observers[target])
	r.mu.Unlock()

	var errs []error
	for _, view := range views {
		if err := safeRender(view, ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return &protocol.ObserverError{Target: target, Errs: errs}
	}
	return nil
}

func safeRender(view View, ctx RenderContext) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("observer panic: %v", rec)
		}
	}()
	return view.Render(false, ctx)
}

// Clear drops every registration, used at session teardown.
func (r *Registry) Clear() {
	r.mu.Lock()
	r.observers = make(map[string][]View)
	r.mu.Unlock()
}
