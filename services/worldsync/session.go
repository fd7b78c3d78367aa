package worldsync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"tabletop-core/internal/collection"
	"tabletop-core/internal/document"
	"tabletop-core/internal/protocol"
	"tabletop-core/internal/schema"
)

// Transport is the persistent connection the session speaks through.
// *socket.Client satisfies it; tests substitute a fake.
type Transport interface {
	Request(ctx context.Context, op protocol.Operation) (*protocol.Response, error)
	Send(op protocol.Operation) error
	Inbound() <-chan *protocol.Response
	Close() error
}

type SessionConfig struct {
	WorldID       string
	UserID        string
	Transport     Transport
	DocumentTypes []string
	PassThrough   []string
	Validator     *schema.Registry
	Sinks         []collection.MutationSink
}

// Session is the process-wide state of one world session: the collection
// per document type, the transport, and the single apply loop that keeps
// responses ordered.
type Session struct {
	worldID   string
	userID    string
	transport Transport

	collections map[string]*collection.World
	order       []string

	wg   sync.WaitGroup
	once sync.Once
}

func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.Transport == nil {
		return nil, fmt.Errorf("session requires a transport")
	}
	if len(cfg.DocumentTypes) == 0 {
		return nil, fmt.Errorf("session requires at least one document type")
	}
	passThrough := make(map[string]bool, len(cfg.PassThrough))
	for _, documentType := range cfg.PassThrough {
		passThrough[documentType] = true
	}

	s := &Session{
		worldID:     cfg.WorldID,
		userID:      cfg.UserID,
		transport:   cfg.Transport,
		collections: make(map[string]*collection.World, len(cfg.DocumentTypes)),
	}
	for _, documentType := range cfg.DocumentTypes {
		world, err := collection.NewWorld(collection.Config{
			DocumentName: documentType,
			NotRendered:  passThrough[documentType],
			Validator:    cfg.Validator,
			Sinks:        cfg.Sinks,
			Lookup:       s.lookup,
		})
		if err != nil {
			return nil, err
		}
		s.collections[documentType] = world
		s.order = append(s.order, documentType)
	}
	return s, nil
}

func (s *Session) WorldID() string { return s.worldID }
func (s *Session) UserID() string  { return s.userID }

func (s *Session) lookup(documentType string) (*collection.World, bool) {
	world, ok := s.collections[documentType]
	return world, ok
}

// Collection returns the World for a document type.
func (s *Session) Collection(documentType string) (*collection.World, bool) {
	return s.lookup(documentType)
}

// Collections lists every collection in configuration order.
func (s *Session) Collections() []*collection.World {
	out := make([]*collection.World, 0, len(s.order))
	for _, documentType := range s.order {
		out = append(out, s.collections[documentType])
	}
	return out
}

// Start runs the apply loop: every inbound response, direct or
// broadcast, is applied in arrival order by this one goroutine. Requests
// triggered from view notifications therefore queue instead of recursing
// into dispatch.
func (s *Session) Start(ctx context.Context) {
	s.once.Do(func() {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case resp, ok := <-s.transport.Inbound():
					if !ok {
						return
					}
					s.dispatch(resp)
				}
			}
		}()
	})
}

func (s *Session) dispatch(resp *protocol.Response) {
	world, ok := s.collections[resp.Type]
	if !ok {
		log.Printf("Dropping response for untracked type %q", resp.Type)
		return
	}
	if err := world.Apply(resp); err != nil {
		var respErr *protocol.ResponseError
		if errors.As(err, &respErr) {
			log.Printf("Server rejected %s %s: %v", resp.Action, resp.Type, respErr)
			return
		}
		log.Printf("Applied %s %s with errors: %v", resp.Action, resp.Type, err)
	}
}

// Init populates every collection from a full world snapshot, keyed by
// document type. Types absent from the snapshot start empty.
func (s *Session) Init(snapshot map[string][]map[string]interface{}) error {
	var errs []error
	for _, documentType := range s.order {
		if err := s.collections[documentType].Init(snapshot[documentType]); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", documentType, err))
		}
	}
	return errors.Join(errs...)
}

// Snapshot flattens every collection back to wire data.
func (s *Session) Snapshot() map[string][]map[string]interface{} {
	out := make(map[string][]map[string]interface{}, len(s.order))
	for _, documentType := range s.order {
		out[documentType] = s.collections[documentType].Snapshot()
	}
	return out
}

// Teardown ends the session: clears every collection, detaches all
// observers and closes the transport.
func (s *Session) Teardown() {
	for _, world := range s.collections {
		world.Teardown()
	}
	if err := s.transport.Close(); err != nil {
		log.Printf("Transport close: %v", err)
	}
	s.wg.Wait()
}

func (s *Session) request(ctx context.Context, documentType string, action protocol.Action, targets []protocol.Target, opts protocol.Options) (*protocol.Response, error) {
	if _, ok := s.collections[documentType]; !ok {
		return nil, fmt.Errorf("untracked document type %q", documentType)
	}
	op, err := protocol.NewOperation(documentType, action, targets, opts)
	if err != nil {
		return nil, err
	}
	resp, err := s.transport.Request(ctx, op)
	if err != nil {
		// the request failed before a response; local state untouched
		return nil, err
	}
	if resp.Error != nil {
		return resp, resp.Error
	}
	return resp, nil
}

// CreateDocuments asks the server to create documents from the given
// payloads. The local collection mutates when the response comes back
// through the apply loop, not here.
func (s *Session) CreateDocuments(ctx context.Context, documentType string, data []map[string]interface{}, opts protocol.Options) (*protocol.Response, error) {
	targets := make([]protocol.Target, len(data))
	for i, d := range data {
		targets[i] = protocol.Target{Data: d}
	}
	return s.request(ctx, documentType, protocol.ActionCreate, targets, opts)
}

// UpdateDocuments sends differential updates; each entry must carry _id.
func (s *Session) UpdateDocuments(ctx context.Context, documentType string, updates []map[string]interface{}, opts protocol.Options) (*protocol.Response, error) {
	targets := make([]protocol.Target, len(updates))
	for i, u := range updates {
		targets[i] = protocol.Target{Data: u}
	}
	return s.request(ctx, documentType, protocol.ActionUpdate, targets, opts)
}

// DeleteDocuments requests deletion of the named ids.
func (s *Session) DeleteDocuments(ctx context.Context, documentType string, ids []string, opts protocol.Options) (*protocol.Response, error) {
	targets := make([]protocol.Target, len(ids))
	for i, id := range ids {
		targets[i] = protocol.Target{ID: id}
	}
	return s.request(ctx, documentType, protocol.ActionDelete, targets, opts)
}

// GetDocuments answers a get from local state; the collection is the
// client-side authority for its type, so no round trip is made. Passing
// no ids returns the full contents in insertion order. Missing ids are
// reported per target without dropping the ones that were found.
func (s *Session) GetDocuments(documentType string, ids []string) ([]*document.Document, error) {
	world, ok := s.collections[documentType]
	if !ok {
		return nil, fmt.Errorf("untracked document type %q", documentType)
	}
	if len(ids) == 0 {
		return world.Contents(), nil
	}
	var docs []*document.Document
	var errs []error
	for _, id := range ids {
		if doc, found := world.Get(id); found {
			docs = append(docs, doc)
		} else {
			errs = append(errs, &protocol.NotFoundError{DocumentType: documentType, ID: id})
		}
	}
	if len(errs) > 0 {
		return docs, &protocol.BatchError{Action: protocol.ActionGet, DocumentType: documentType, Errs: errs}
	}
	return docs, nil
}
