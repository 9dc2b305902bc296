package kgraph

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/abhisek/kpath/internal/knowledge"
)

// Unit is one content unit's worth of builder input.
type Unit struct {
	Name      string
	Points    []knowledge.KnowledgePoint
	Relations []knowledge.Relation
}

// UnitGraph pairs a unit name with its built graph.
type UnitGraph struct {
	Name  string
	Graph *Graph
}

// BuildAll builds independent units in parallel, running at most concurrency
// builds at once (concurrency <= 0 means one per unit). Results are returned
// in input order. Units not yet started when ctx is cancelled are skipped and
// the context error is returned.
func (b *Builder) BuildAll(ctx context.Context, units []Unit, concurrency int) ([]UnitGraph, error) {
	out := make([]UnitGraph, len(units))
	g, ctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for i, u := range units {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("build unit %q: %w", u.Name, err)
			}
			log := b.log.With("unit", u.Name)
			ub := &Builder{log: log, maxCycleLength: b.maxCycleLength, maxCyclesPerRound: b.maxCyclesPerRound}
			out[i] = UnitGraph{Name: u.Name, Graph: ub.Build(u.Points, u.Relations)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// BuildAll is shorthand for NewBuilder(opts...).BuildAll(ctx, units, concurrency).
func BuildAll(ctx context.Context, units []Unit, concurrency int, opts ...Option) ([]UnitGraph, error) {
	return NewBuilder(opts...).BuildAll(ctx, units, concurrency)
}
