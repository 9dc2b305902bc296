package kgraph

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/abhisek/kpath/internal/knowledge"
)

func TestBuildAll_PreservesOrder(t *testing.T) {
	var units []Unit
	for i := 1; i <= 6; i++ {
		n := int64(i)
		units = append(units, Unit{
			Name:   fmt.Sprintf("unit-%d", i),
			Points: points(1, 2, n+2),
			Relations: []knowledge.Relation{
				prereq(1, 2, 0.9),
				prereq(2, 1, 0.2),
			},
		})
	}

	got, err := BuildAll(context.Background(), units, 2)
	if err != nil {
		t.Fatalf("BuildAll: %v", err)
	}
	if len(got) != len(units) {
		t.Fatalf("got %d graphs, want %d", len(got), len(units))
	}
	for i, ug := range got {
		if ug.Name != units[i].Name {
			t.Errorf("result %d is %q, want %q", i, ug.Name, units[i].Name)
		}
		if ug.Graph.Len() != 3 {
			t.Errorf("%s: Len = %d, want 3", ug.Name, ug.Graph.Len())
		}
		if len(ug.Graph.Removed()) != 1 {
			t.Errorf("%s: removed %d edges, want 1", ug.Name, len(ug.Graph.Removed()))
		}
	}
}

func TestBuildAll_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := BuildAll(ctx, []Unit{{Name: "a", Points: points(1)}}, 1)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestBuildAll_Empty(t *testing.T) {
	got, err := BuildAll(context.Background(), nil, 4)
	if err != nil || len(got) != 0 {
		t.Errorf("BuildAll(nil) = %v, %v", got, err)
	}
}
