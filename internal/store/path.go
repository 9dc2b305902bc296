package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	"golang.org/x/mod/semver"

	"github.com/abhisek/kpath/internal/planner"
)

// pathRepo implements PathRepo on the paths table.
type pathRepo struct {
	db  *sql.DB
	seq *sequence
}

func (r *pathRepo) Save(ctx context.Context, p planner.Path) (*PathRecord, error) {
	nodes := p.Nodes
	if nodes == nil {
		nodes = []planner.PathNode{}
	}
	data, err := json.Marshal(nodes)
	if err != nil {
		return nil, fmt.Errorf("marshal path nodes: %w", err)
	}

	seq, err := r.seq.Next(ctx)
	if err != nil {
		return nil, err
	}

	rec := &PathRecord{
		ID:            uuid.NewString(),
		Sequence:      seq,
		FormatVersion: PathFormatVersion,
		CreatedAt:     time.Now().UTC(),
		Path:          p.Clone(),
	}
	query, args := builder().Insert("paths").
		Columns("id", "learner_id", "sequence", "format_version", "nodes", "created_at").
		Values(rec.ID, p.LearnerID, rec.Sequence, rec.FormatVersion, string(data), rec.CreatedAt.UnixNano()).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("save path: %w", err)
	}
	return rec, nil
}

func (r *pathRepo) Latest(ctx context.Context, learnerID string) (*PathRecord, error) {
	query, args := builder().
		Select("id", "learner_id", "sequence", "format_version", "nodes", "created_at").
		From(entsql.Table("paths")).
		Where(entsql.EQ("learner_id", learnerID)).
		OrderBy(entsql.Desc("sequence")).
		Limit(1).
		Query()

	var (
		rec       PathRecord
		nodes     string
		createdAt int64
	)
	err := r.db.QueryRowContext(ctx, query, args...).
		Scan(&rec.ID, &rec.Path.LearnerID, &rec.Sequence, &rec.FormatVersion, &nodes, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query latest path: %w", err)
	}

	if !semver.IsValid(rec.FormatVersion) || semver.Major(rec.FormatVersion) != semver.Major(PathFormatVersion) {
		return nil, &ErrIncompatibleFormat{Found: rec.FormatVersion, Supported: PathFormatVersion}
	}
	if err := json.Unmarshal([]byte(nodes), &rec.Path.Nodes); err != nil {
		return nil, fmt.Errorf("unmarshal path %s: %w", rec.ID, err)
	}
	rec.CreatedAt = time.Unix(0, createdAt).UTC()
	return &rec, nil
}

func (r *pathRepo) Prune(ctx context.Context, learnerID string, keep int) error {
	if keep < 1 {
		keep = 1
	}
	// Find the sequence threshold: the first path past the keep newest.
	query, args := builder().
		Select("sequence").
		From(entsql.Table("paths")).
		Where(entsql.EQ("learner_id", learnerID)).
		OrderBy(entsql.Desc("sequence")).
		Limit(1).
		Offset(keep).
		Query()

	var threshold int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&threshold); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil // fewer than keep paths exist
		}
		return fmt.Errorf("query paths for prune: %w", err)
	}

	query, args = builder().Delete("paths").
		Where(entsql.And(
			entsql.EQ("learner_id", learnerID),
			entsql.LTE("sequence", threshold),
		)).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("prune paths: %w", err)
	}
	return nil
}

func (r *pathRepo) Delete(ctx context.Context, id string) error {
	query, args := builder().Delete("paths").Where(entsql.EQ("id", id)).Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete path %s: %w", id, err)
	}
	return nil
}
