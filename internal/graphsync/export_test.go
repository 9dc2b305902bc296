package graphsync

import (
	"context"
	"os"
	"testing"

	"github.com/abhisek/kpath/internal/kgraph"
	"github.com/abhisek/kpath/internal/knowledge"
)

func cyclicGraph() *kgraph.Graph {
	points := []knowledge.KnowledgePoint{
		{ID: 1, Name: "Functions", Span: &knowledge.Span{Start: 0, End: 60}},
		{ID: 2, Name: "Limits"},
		{ID: 3},
	}
	relations := []knowledge.Relation{
		{Source: 1, Target: 2, Kind: knowledge.RelationPrerequisite, Confidence: 0.9},
		{Source: 2, Target: 3, Kind: knowledge.RelationPrerequisite, Confidence: 0.5},
		{Source: 3, Target: 1, Kind: knowledge.RelationPrerequisite, Confidence: 0.7},
		{Source: 1, Target: 3, Kind: knowledge.RelationRelated, Confidence: 0.4},
	}
	return kgraph.Build(points, relations)
}

func TestRecords(t *testing.T) {
	b := records("calc", cyclicGraph(), "now")

	if b.stats != (Stats{Nodes: 3, Relations: 3, Removed: 1}) {
		t.Fatalf("stats = %+v", b.stats)
	}
	if got := b.nodes[0]["key"]; got != "calc/1" {
		t.Errorf("first node key = %v, want calc/1", got)
	}
	if _, ok := b.nodes[0]["start_time"]; !ok {
		t.Error("span not exported for node 1")
	}
	if _, ok := b.nodes[1]["start_time"]; ok {
		t.Error("node 2 has no span but start_time was exported")
	}
	if got := b.nodes[2]["name"]; got != "KP3" {
		t.Errorf("unnamed node label = %v, want KP3", got)
	}
	if n := len(b.rels["PREREQUISITE"]); n != 2 {
		t.Errorf("PREREQUISITE rels = %d, want 2", n)
	}
	if n := len(b.rels["RELATED"]); n != 1 {
		t.Errorf("RELATED rels = %d, want 1", n)
	}
	removed := b.rels[removedRelType]
	if len(removed) != 1 || removed[0]["from"] != "calc/2" || removed[0]["to"] != "calc/3" {
		t.Errorf("removed rels = %v, want calc/2 -> calc/3", removed)
	}
}

func TestNilClientIsNoop(t *testing.T) {
	var c *Client
	stats, err := c.Export(context.Background(), "calc", cyclicGraph())
	if err != nil || stats != (Stats{}) {
		t.Fatalf("Export on nil client = %+v, %v", stats, err)
	}
	if err := c.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestDialEmptyURI(t *testing.T) {
	c, err := Dial(context.Background(), Params{}, nil)
	if err != nil || c != nil {
		t.Fatalf("Dial(empty) = %v, %v", c, err)
	}
}

func TestExport_Neo4j(t *testing.T) {
	uri := os.Getenv("KPATH_TEST_NEO4J")
	if uri == "" {
		t.Skip("KPATH_TEST_NEO4J not set")
	}
	ctx := context.Background()
	c, err := Dial(ctx, Params{URI: uri, User: os.Getenv("KPATH_TEST_NEO4J_USER"), Password: os.Getenv("KPATH_TEST_NEO4J_PASSWORD")}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close(ctx)

	for range 2 {
		stats, err := c.Export(ctx, "graphsync-test", cyclicGraph())
		if err != nil {
			t.Fatal(err)
		}
		if stats.Nodes != 3 {
			t.Fatalf("nodes = %d, want 3", stats.Nodes)
		}
	}
}
