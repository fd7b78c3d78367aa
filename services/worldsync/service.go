package worldsync

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"tabletop-core/internal/archive"
	"tabletop-core/internal/collection"
	"tabletop-core/internal/config"
	"tabletop-core/internal/eventbus"
	"tabletop-core/internal/schema"
	"tabletop-core/internal/socket"
	"tabletop-core/internal/worldgraph"
)

// Service assembles a running session from configuration: transport,
// schema validation, optional kafka mirror, optional world graph and
// optional snapshot archive.
type Service struct {
	cfg     *config.Config
	session *Session
	mirror  *eventbus.Mirror
	graph   *worldgraph.Graph
	store   *archive.Store
}

func NewService(cfg *config.Config) (*Service, error) {
	svc := &Service{cfg: cfg}

	validator, err := loadSchemas(cfg.SchemaDir)
	if err != nil {
		return nil, err
	}

	var sinks []collection.MutationSink
	if len(cfg.KafkaBrokers) > 0 {
		svc.mirror = eventbus.NewMirror(cfg.KafkaBrokers, cfg.WorldID, "world-client")
		sinks = append(sinks, svc.mirror)
	}
	if cfg.Neo4j.URI != "" {
		graph, err := worldgraph.NewGraph(worldgraph.Config{
			URI:      cfg.Neo4j.URI,
			User:     cfg.Neo4j.User,
			Password: cfg.Neo4j.Password,
			WorldID:  cfg.WorldID,
		})
		if err != nil {
			return nil, fmt.Errorf("world graph: %w", err)
		}
		svc.graph = graph
		sinks = append(sinks, graph)
	}
	if cfg.Archive.Endpoint != "" {
		store, err := archive.NewStore(archive.Config{
			Endpoint:        cfg.Archive.Endpoint,
			AccessKeyID:     cfg.Archive.AccessKey,
			SecretAccessKey: cfg.Archive.SecretKey,
			UseSSL:          cfg.Archive.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("snapshot archive: %w", err)
		}
		svc.store = store
	}

	transport, err := socket.Dial(context.Background(), socket.Config{
		URL:              cfg.ServerURL,
		HandshakeTimeout: 10 * time.Second,
	})
	if err != nil {
		return nil, err
	}

	session, err := NewSession(SessionConfig{
		WorldID:       cfg.WorldID,
		UserID:        cfg.UserID,
		Transport:     transport,
		DocumentTypes: cfg.DocumentTypes,
		PassThrough:   cfg.PassThrough,
		Validator:     validator,
		Sinks:         sinks,
	})
	if err != nil {
		transport.Close()
		return nil, err
	}
	svc.session = session
	return svc, nil
}

func (s *Service) Session() *Session { return s.session }

// Start restores an archived snapshot when a store is configured, then
// runs the apply loop.
func (s *Service) Start(ctx context.Context) {
	if s.store != nil {
		snapshot, err := s.store.LoadSnapshot(ctx, s.cfg.WorldID, s.cfg.DocumentTypes)
		if err != nil {
			log.Printf("Snapshot restore failed: %v", err)
		} else if len(snapshot) > 0 {
			if err := s.session.Init(snapshot); err != nil {
				log.Printf("Snapshot init completed with errors: %v", err)
			}
			log.Printf("Restored %d collection(s) for world %s", len(snapshot), s.cfg.WorldID)
		}
	}
	if s.mirror != nil {
		if err := s.mirror.PublishSessionEvent(ctx, "session.started"); err != nil {
			log.Printf("Session event publish failed: %v", err)
		}
	}
	s.session.Start(ctx)
	log.Printf("World session %s started, tracking %d document type(s)", s.cfg.WorldID, len(s.cfg.DocumentTypes))
}

// Stop flushes a snapshot when a store is configured and tears the
// session down.
func (s *Service) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if s.store != nil {
		if err := s.store.SaveSnapshot(ctx, s.cfg.WorldID, s.session.Snapshot()); err != nil {
			log.Printf("Snapshot flush failed: %v", err)
		}
	}
	if s.mirror != nil {
		if err := s.mirror.PublishSessionEvent(ctx, "session.stopped"); err != nil {
			log.Printf("Session event publish failed: %v", err)
		}
	}
	s.session.Teardown()
	if s.mirror != nil {
		s.mirror.Close()
	}
	if s.graph != nil {
		s.graph.Close()
	}
	log.Printf("World session %s stopped", s.cfg.WorldID)
}

// loadSchemas reads <Type>.schema.json files from dir into a validation
// registry. An empty dir means no validation.
func loadSchemas(dir string) (*schema.Registry, error) {
	if dir == "" {
		return nil, nil
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*.schema.json"))
	if err != nil {
		return nil, err
	}
	schema.RegisterCustomFormats()
	registry := schema.NewRegistry()
	for _, match := range matches {
		data, err := os.ReadFile(match)
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", match, err)
		}
		documentType := filepath.Base(match)
		documentType = documentType[:len(documentType)-len(".schema.json")]
		if err := registry.Register(documentType, data); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
