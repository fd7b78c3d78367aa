// Package collection holds the client-side authority for each world
// document type: an insertion-ordered keyed store, the dispatcher that
// applies socket responses to it, and the registry of dependent views.
package collection

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"tabletop-core/internal/document"
	"tabletop-core/internal/protocol"
	"tabletop-core/internal/schema"
)

// ErrNotRendered is returned when a pass-through collection is asked to
// render its own directory.
var ErrNotRendered = errors.New("collection is not independently rendered")

// MutationSink receives every applied mutation, independent of the
// render flag. Used to mirror changes into the event bus and the world
// graph.
type MutationSink interface {
	DocumentsModified(action protocol.Action, documentType string, docs []*document.Document, userID string)
}

// Lookup resolves a sibling collection by document type, so the
// dispatcher can fan out to dependent collections without holding
// references to all of them.
type Lookup func(documentType string) (*World, bool)

// Config wires one World collection.
type Config struct {
	DocumentName string
	NotRendered  bool
	Validator    *schema.Registry
	Sinks        []MutationSink
	Lookup       Lookup
}

// World is the in-memory authoritative store for one document type
// during a session. Documents enter and leave only through Apply and the
// session lifecycle; insertion order drives default listing order.
type World struct {
	documentName string
	rendered     bool
	validator    *schema.Registry
	sinks        []MutationSink
	lookup       Lookup
	registry     *Registry

	mu   sync.RWMutex
	keys []string
	docs map[string]*document.Document
}

func NewWorld(cfg Config) (*World, error) {
	if cfg.DocumentName == "" {
		return nil, fmt.Errorf("collection requires a document name")
	}
	return &World{
		documentName: cfg.DocumentName,
		rendered:     !cfg.NotRendered,
		validator:    cfg.Validator,
		sinks:        cfg.Sinks,
		lookup:       cfg.Lookup,
		registry:     NewRegistry(),
		docs:         make(map[string]*document.Document),
	}, nil
}

func (w *World) DocumentName() string { return w.documentName }
func (w *World) Rendered() bool       { return w.rendered }

// Registry exposes the dependent-view registry for this collection.
func (w *World) Registry() *Registry { return w.registry }

func (w *World) Get(id string) (*document.Document, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	doc, ok := w.docs[id]
	return doc, ok
}

// Contents lists the documents in insertion order.
func (w *World) Contents() []*document.Document {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]*document.Document, 0, len(w.keys))
	for _, id := range w.keys {
		out = append(out, w.docs[id])
	}
	return out
}

func (w *World) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.keys)
}

// Init populates the collection from a full snapshot at session start.
// Existing contents are discarded first.
func (w *World) Init(snapshot []map[string]interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.keys = nil
	w.docs = make(map[string]*document.Document, len(snapshot))
	var errs []error
	for _, data := range snapshot {
		doc, err := document.FromData(data)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if _, exists := w.docs[doc.ID]; exists {
			errs = append(errs, &protocol.DuplicateIDError{DocumentType: w.documentName, ID: doc.ID})
			continue
		}
		w.docs[doc.ID] = doc
		w.keys = append(w.keys, doc.ID)
	}
	if len(errs) > 0 {
		return &protocol.BatchError{Action: protocol.ActionCreate, DocumentType: w.documentName, Errs: errs}
	}
	return nil
}

// Teardown clears all entries and detaches every observer.
func (w *World) Teardown() {
	w.mu.Lock()
	w.keys = nil
	w.docs = make(map[string]*document.Document)
	w.mu.Unlock()
	w.registry.Clear()
}

// Snapshot flattens the collection back to wire-shaped data, in order.
func (w *World) Snapshot() []map[string]interface{} {
	contents := w.Contents()
	out := make([]map[string]interface{}, len(contents))
	for i, doc := range contents {
		out[i] = doc.ToData()
	}
	return out
}

// RenderDirectory asks this collection's own directory views to redraw.
// Pass-through collections refuse; their content is shown elsewhere.
func (w *World) RenderDirectory(ctx RenderContext) error {
	if !w.rendered {
		return ErrNotRendered
	}
	ctx.DocumentType = w.documentName
	return w.registry.Notify(CollectionTarget, ctx)
}

// Apply is the modification dispatcher: it applies a socket response to
// local state, reports per-target failures without aborting the batch,
// and triggers dependent-view notification when the operation asks for a
// render. Responses for another document type are rejected untouched.
func (w *World) Apply(resp *protocol.Response) error {
	if resp == nil {
		return protocol.ErrMalformedResponse
	}
	if resp.Type != w.documentName {
		return fmt.Errorf("response type %q does not match collection %q", resp.Type, w.documentName)
	}
	if resp.Error != nil {
		// a failed request mutates nothing locally
		return resp.Error
	}

	var affected []*document.Document
	var errs []error

	switch resp.Action {
	case protocol.ActionCreate:
		affected, errs = w.applyCreate(resp.Result)
	case protocol.ActionUpdate:
		affected, errs = w.applyUpdate(resp.Result)
	case protocol.ActionDelete:
		affected = w.applyDelete(resp.Result)
	case protocol.ActionGet:
		// reads mutate nothing and render nothing
		return nil
	default:
		return fmt.Errorf("unknown action %q for %s", resp.Action, w.documentName)
	}

	if len(affected) > 0 {
		for _, sink := range w.sinks {
			sink.DocumentsModified(resp.Action, w.documentName, affected, resp.UserID)
		}
	}

	if resp.Operation.Render && len(affected) > 0 {
		ctx := RenderContext{
			Action:       resp.Action,
			DocumentType: w.documentName,
			Documents:    affected,
			UserID:       resp.UserID,
			Broadcast:    resp.Broadcast,
			Label:        resp.Operation.RenderContext,
		}
		if err := w.notify(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return &protocol.BatchError{Action: resp.Action, DocumentType: w.documentName, Errs: errs}
	}
	return nil
}

func (w *World) applyCreate(result []map[string]interface{}) ([]*document.Document, []error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	var affected []*document.Document
	var errs []error
	for _, data := range result {
		doc, err := document.FromData(data)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if _, exists := w.docs[doc.ID]; exists {
			errs = append(errs, &protocol.DuplicateIDError{DocumentType: w.documentName, ID: doc.ID})
			continue
		}
		if w.validator != nil {
			if err := w.validator.Validate(w.documentName, doc.ToData()); err != nil {
				errs = append(errs, fmt.Errorf("create %s: %w", doc.ID, err))
				continue
			}
		}
		w.docs[doc.ID] = doc
		w.keys = append(w.keys, doc.ID)
		affected = append(affected, doc)
	}
	return affected, errs
}

func (w *World) applyUpdate(result []map[string]interface{}) ([]*document.Document, []error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	var affected []*document.Document
	var errs []error
	for _, data := range result {
		id, _ := data["_id"].(string)
		if id == "" {
			errs = append(errs, fmt.Errorf("update target missing _id"))
			continue
		}
		doc, exists := w.docs[id]
		if !exists {
			errs = append(errs, &protocol.NotFoundError{DocumentType: w.documentName, ID: id})
			continue
		}
		// merge into a copy so a failed validation leaves the stored
		// document untouched
		merged := doc.Clone()
		merged.ApplyDiff(data)
		if w.validator != nil {
			if err := w.validator.Validate(w.documentName, merged.ToData()); err != nil {
				errs = append(errs, fmt.Errorf("update %s: %w", id, err))
				continue
			}
		}
		w.docs[id] = merged
		affected = append(affected, merged)
	}
	return affected, errs
}

func (w *World) applyDelete(result []map[string]interface{}) []*document.Document {
	w.mu.Lock()
	defer w.mu.Unlock()
	var affected []*document.Document
	for _, data := range result {
		id, _ := data["_id"].(string)
		doc, exists := w.docs[id]
		if !exists {
			// deleting an absent id is already satisfied
			continue
		}
		delete(w.docs, id)
		for i, key := range w.keys {
			if key == id {
				w.keys = append(w.keys[:i], w.keys[i+1:]...)
				break
			}
		}
		affected = append(affected, doc)
	}
	return affected
}

// notify fans out to observers of each affected document, then to the
// collection-level view, then to dependent collections per the static
// type table. Runs outside the data lock. A pass-through collection has
// no directory of its own, so its collection-level observers stay quiet
// here too; document sheets and dependent collections are notified
// either way.
func (w *World) notify(ctx RenderContext) error {
	var errs []error
	for _, doc := range ctx.Documents {
		if err := w.registry.Notify(doc.ID, ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if w.rendered {
		if err := w.registry.Notify(CollectionTarget, ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if w.lookup != nil {
		for _, depType := range DependentTypes(w.documentName) {
			dep, ok := w.lookup(depType)
			if !ok {
				continue
			}
			if err := dep.Registry().Notify(CollectionTarget, ctx); err != nil {
				log.Printf("Dependent %s views failed after %s %s: %v", depType, ctx.Action, w.documentName, err)
			}
		}
	}
	if len(errs) > 0 {
		return &protocol.ObserverError{Target: w.documentName, Errs: errs}
	}
	return nil
}
