package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/kpath/internal/knowledge"
	"github.com/abhisek/kpath/internal/mastery"
)

// MasteryRepo persists mastery status per learner and knowledge point.
type MasteryRepo struct {
	db *sql.DB
}

var _ mastery.Recorder = (*MasteryRepo)(nil)

// Get returns the stored status, or unlearned when there is none.
func (r *MasteryRepo) Get(ctx context.Context, learnerID string, kpID int64) (knowledge.MasteryStatus, error) {
	query, args := builder().
		Select("status").
		From(entsql.Table("mastery")).
		Where(entsql.And(
			entsql.EQ("learner_id", learnerID),
			entsql.EQ("knowledge_point_id", kpID),
		)).
		Query()

	var status string
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return knowledge.StatusUnlearned, nil
		}
		return "", fmt.Errorf("query mastery: %w", err)
	}
	return knowledge.ParseMasteryStatus(status)
}

// Set stores status, replacing any previous value.
func (r *MasteryRepo) Set(ctx context.Context, learnerID string, kpID int64, status knowledge.MasteryStatus) error {
	if _, err := knowledge.ParseMasteryStatus(string(status)); err != nil {
		return err
	}
	query, args := builder().Insert("mastery").
		Columns("learner_id", "knowledge_point_id", "status", "updated_at").
		Values(learnerID, kpID, string(status), time.Now().UTC().UnixNano()).
		OnConflict(
			entsql.ConflictColumns("learner_id", "knowledge_point_id"),
			entsql.ResolveWithNewValues(),
		).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save mastery: %w", err)
	}
	return nil
}

// List returns every stored status of the learner.
func (r *MasteryRepo) List(ctx context.Context, learnerID string) (map[int64]knowledge.MasteryStatus, error) {
	entries, err := r.Entries(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]knowledge.MasteryStatus, len(entries))
	for _, e := range entries {
		out[e.KnowledgePointID] = e.Status
	}
	return out, nil
}

// Entries returns the learner's stored statuses ordered by knowledge point.
func (r *MasteryRepo) Entries(ctx context.Context, learnerID string) ([]MasteryEntry, error) {
	query, args := builder().
		Select("knowledge_point_id", "status", "updated_at").
		From(entsql.Table("mastery")).
		Where(entsql.EQ("learner_id", learnerID)).
		OrderBy("knowledge_point_id").
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query mastery: %w", err)
	}
	defer rows.Close()

	var out []MasteryEntry
	for rows.Next() {
		var (
			e       MasteryEntry
			status  string
			updated int64
		)
		if err := rows.Scan(&e.KnowledgePointID, &status, &updated); err != nil {
			return nil, fmt.Errorf("scan mastery: %w", err)
		}
		e.Status = knowledge.MasteryStatus(status)
		e.UpdatedAt = time.Unix(0, updated).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}
