// Package worldgraph mirrors document reference edges (folder
// containment, actor ownership) into Neo4j for campaign tooling.
package worldgraph

import (
	"fmt"
	"log"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"tabletop-core/internal/document"
	"tabletop-core/internal/protocol"
)

type Config struct {
	URI      string
	User     string
	Password string
	WorldID  string
}

type Graph struct {
	driver  neo4j.Driver
	worldID string
}

func NewGraph(cfg Config) (*Graph, error) {
	driver, err := neo4j.NewDriver(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j driver creation failed: %w", err)
	}
	if err := driver.VerifyConnectivity(); err != nil {
		_ = driver.Close()
		return nil, fmt.Errorf("neo4j connectivity test failed: %w", err)
	}
	return &Graph{driver: driver, worldID: cfg.WorldID}, nil
}

// ownerOf reads the owning actor id off a document payload, when present.
func ownerOf(doc *document.Document) string {
	owner, _ := doc.System["owner"].(string)
	return owner
}

// referenceEdges lists the outgoing edges a document implies: folder
// containment and actor ownership. Keys are relationship types, values
// the id on the other end.
func referenceEdges(doc *document.Document) map[string]string {
	edges := make(map[string]string)
	if doc.Folder != "" {
		edges["IN_FOLDER"] = doc.Folder
	}
	if owner := ownerOf(doc); owner != "" {
		edges["OWNS"] = owner
	}
	return edges
}

func (g *Graph) upsertDocument(documentType string, doc *document.Document) error {
	session := g.driver.NewSession(neo4j.SessionConfig{DatabaseName: "neo4j"})
	defer session.Close()

	query := `
MERGE (d:Document {id: $id, world: $world})
SET d.type = $type,
    d.name = $name,
    d.sort = $sort
RETURN d
`
	_, err := session.Run(query, map[string]any{
		"id":    doc.ID,
		"world": g.worldID,
		"type":  documentType,
		"name":  doc.Name,
		"sort":  doc.Sort,
	})
	if err != nil {
		return err
	}

	edges := referenceEdges(doc)

	if folder, ok := edges["IN_FOLDER"]; ok {
		if err := g.relate(session, doc.ID, folder, "IN_FOLDER"); err != nil {
			return err
		}
	} else {
		// folder cleared: drop a stale containment edge if one exists
		_, err = session.Run(`
MATCH (d:Document {id: $id, world: $world})-[r:IN_FOLDER]->()
DELETE r
`, map[string]any{"id": doc.ID, "world": g.worldID})
		if err != nil {
			return err
		}
	}

	if owner, ok := edges["OWNS"]; ok {
		// the owning actor points at its possession
		return g.relate(session, owner, doc.ID, "OWNS")
	}
	_, err = session.Run(`
MATCH ()-[r:OWNS]->(d:Document {id: $id, world: $world})
DELETE r
`, map[string]any{"id": doc.ID, "world": g.worldID})
	return err
}

func (g *Graph) relate(session neo4j.Session, fromID, toID, relType string) error {
	query := fmt.Sprintf(`
MATCH (a:Document {id: $from_id, world: $world})
MERGE (b:Document {id: $to_id, world: $world})
MERGE (a)-[r:%s]->(b)
RETURN r
`, relType)
	_, err := session.Run(query, map[string]any{
		"from_id": fromID,
		"to_id":   toID,
		"world":   g.worldID,
	})
	return err
}

func (g *Graph) deleteDocument(doc *document.Document) error {
	session := g.driver.NewSession(neo4j.SessionConfig{DatabaseName: "neo4j"})
	defer session.Close()
	_, err := session.Run(`
MATCH (d:Document {id: $id, world: $world})
DETACH DELETE d
`, map[string]any{"id": doc.ID, "world": g.worldID})
	return err
}

// DocumentsModified implements the collection mutation sink. Graph
// failures are logged; the dispatcher never waits on the mirror.
func (g *Graph) DocumentsModified(action protocol.Action, documentType string, docs []*document.Document, userID string) {
	for _, doc := range docs {
		var err error
		switch action {
		case protocol.ActionCreate, protocol.ActionUpdate:
			err = g.upsertDocument(documentType, doc)
		case protocol.ActionDelete:
			err = g.deleteDocument(doc)
		}
		if err != nil {
			log.Printf("World graph %s failed for %s %s: %v", action, documentType, doc.ID, err)
		}
	}
}

func (g *Graph) Close() error {
	return g.driver.Close()
}
