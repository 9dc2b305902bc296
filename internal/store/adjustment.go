package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// eventRepo implements EventRepo on the adjustments table.
type eventRepo struct {
	db  *sql.DB
	seq *sequence
}

func (r *eventRepo) AppendAdjustment(ctx context.Context, a Adjustment) (int64, error) {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now()
	}

	query, args := builder().Insert("adjustments").
		Columns("sequence", "learner_id", "path_id", "kind", "knowledge_point_id",
			"reason", "changed", "old_length", "new_length", "timestamp").
		Values(seqNum, a.LearnerID, a.PathID, a.Kind, a.KnowledgePointID,
			a.Reason, a.Changed, a.OldLength, a.NewLength, a.Timestamp.UTC().UnixNano()).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return 0, fmt.Errorf("save adjustment: %w", err)
	}
	return seqNum, nil
}

func (r *eventRepo) Adjustments(ctx context.Context, learnerID string, opts QueryOpts) ([]Adjustment, error) {
	preds := []*entsql.Predicate{entsql.EQ("learner_id", learnerID)}
	if opts.After > 0 {
		preds = append(preds, entsql.GT("sequence", opts.After))
	}
	if opts.Before > 0 {
		preds = append(preds, entsql.LT("sequence", opts.Before))
	}
	if !opts.From.IsZero() {
		preds = append(preds, entsql.GTE("timestamp", opts.From.UTC().UnixNano()))
	}
	if !opts.To.IsZero() {
		preds = append(preds, entsql.LTE("timestamp", opts.To.UTC().UnixNano()))
	}

	sel := builder().
		Select("sequence", "learner_id", "path_id", "kind", "knowledge_point_id",
			"reason", "changed", "old_length", "new_length", "timestamp").
		From(entsql.Table("adjustments")).
		Where(entsql.And(preds...)).
		OrderBy(entsql.Desc("sequence"))
	if opts.Limit > 0 {
		sel = sel.Limit(opts.Limit)
	}
	query, args := sel.Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query adjustments: %w", err)
	}
	defer rows.Close()

	var out []Adjustment
	for rows.Next() {
		var (
			a  Adjustment
			ts int64
		)
		if err := rows.Scan(&a.Sequence, &a.LearnerID, &a.PathID, &a.Kind, &a.KnowledgePointID,
			&a.Reason, &a.Changed, &a.OldLength, &a.NewLength, &ts); err != nil {
			return nil, fmt.Errorf("scan adjustment: %w", err)
		}
		a.Timestamp = time.Unix(0, ts).UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}
