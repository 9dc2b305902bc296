package graphsync

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/abhisek/kpath/internal/kgraph"
	"github.com/abhisek/kpath/internal/knowledge"
)

// Relationship types per relation kind. Cypher cannot parameterize types.
var relTypes = map[knowledge.RelationKind]string{
	knowledge.RelationPrerequisite: "PREREQUISITE",
	knowledge.RelationRelated:      "RELATED",
	knowledge.RelationContains:     "CONTAINS",
}

// removedRelType marks prerequisite edges dropped to break a cycle.
const removedRelType = "REMOVED_PREREQUISITE"

// Stats counts what an export wrote.
type Stats struct {
	Nodes     int `json:"nodes"`
	Relations int `json:"relations"`
	Removed   int `json:"removed"`
}

type batch struct {
	nodes []map[string]any
	rels  map[string][]map[string]any
	stats Stats
}

func nodeKey(unit string, id int64) string {
	return fmt.Sprintf("%s/%d", unit, id)
}

// records flattens g into UNWIND parameters grouped by relationship type.
func records(unit string, g *kgraph.Graph, now string) batch {
	b := batch{rels: make(map[string][]map[string]any)}
	for _, kp := range g.Points() {
		n := map[string]any{
			"key":       nodeKey(unit, kp.ID),
			"id":        kp.ID,
			"unit":      unit,
			"name":      kp.Label(),
			"summary":   kp.Summary,
			"keywords":  kp.Keywords,
			"synced_at": now,
		}
		if kp.Span != nil {
			n["start_time"] = kp.Span.Start
			n["end_time"] = kp.Span.End
		}
		b.nodes = append(b.nodes, n)
	}
	b.stats.Nodes = len(b.nodes)

	for _, r := range g.Relations() {
		typ, ok := relTypes[r.Kind]
		if !ok {
			continue
		}
		b.rels[typ] = append(b.rels[typ], map[string]any{
			"from":       nodeKey(unit, r.Source),
			"to":         nodeKey(unit, r.Target),
			"confidence": r.Confidence,
			"unit":       unit,
			"synced_at":  now,
		})
		b.stats.Relations++
	}
	for _, rr := range g.Removed() {
		b.rels[removedRelType] = append(b.rels[removedRelType], map[string]any{
			"from":       nodeKey(unit, rr.Relation.Source),
			"to":         nodeKey(unit, rr.Relation.Target),
			"confidence": rr.Relation.Confidence,
			"cycle":      rr.Cycle,
			"round":      int64(rr.Round),
			"unit":       unit,
			"synced_at":  now,
		})
		b.stats.Removed++
	}
	return b
}

// Export replaces the unit's subgraph in Neo4j with g in one write
// transaction. Nodes are merged by (unit, id); the unit's previous
// relationships are deleted first so removed edges do not linger.
func (c *Client) Export(ctx context.Context, unit string, g *kgraph.Graph) (Stats, error) {
	if c == nil || c.Driver == nil {
		return Stats{}, nil
	}
	if unit == "" {
		return Stats{}, fmt.Errorf("graphsync: missing unit name")
	}

	b := records(unit, g, time.Now().UTC().Format(time.RFC3339Nano))

	session := c.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: c.Database,
	})
	defer session.Close(ctx)

	// Best effort; restricted users may not manage schema.
	if res, err := session.Run(ctx, `CREATE CONSTRAINT knowledge_point_key IF NOT EXISTS FOR (k:KnowledgePoint) REQUIRE k.key IS UNIQUE`, nil); err != nil {
		c.log.Warn("neo4j schema init failed (continuing)", "error", err)
	} else {
		_, _ = res.Consume(ctx)
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if err := run(ctx, tx, `
MATCH (a:KnowledgePoint {unit: $unit})-[r]->(:KnowledgePoint {unit: $unit})
DELETE r
`, map[string]any{"unit": unit}); err != nil {
			return nil, err
		}

		if len(b.nodes) > 0 {
			if err := run(ctx, tx, `
UNWIND $nodes AS n
MERGE (k:KnowledgePoint {key: n.key})
SET k += n
`, map[string]any{"nodes": b.nodes}); err != nil {
				return nil, err
			}
		}

		for typ, rels := range b.rels {
			if err := run(ctx, tx, `
UNWIND $rels AS r
MATCH (a:KnowledgePoint {key: r.from})
MATCH (b:KnowledgePoint {key: r.to})
CREATE (a)-[e:`+typ+`]->(b)
SET e += r
`, map[string]any{"rels": rels}); err != nil {
				return nil, fmt.Errorf("write %s: %w", typ, err)
			}
		}
		return nil, nil
	})
	if err != nil {
		return Stats{}, fmt.Errorf("graphsync: export %q: %w", unit, err)
	}

	c.log.Info("graph exported", "unit", unit, "nodes", b.stats.Nodes, "relations", b.stats.Relations, "removed", b.stats.Removed)
	return b.stats, nil
}

func run(ctx context.Context, tx neo4j.ManagedTransaction, cypher string, params map[string]any) error {
	res, err := tx.Run(ctx, cypher, params)
	if err != nil {
		return err
	}
	_, err = res.Consume(ctx)
	return err
}
