package store

import (
	"context"
	"fmt"
	"time"

	"github.com/abhisek/kpath/internal/knowledge"
	"github.com/abhisek/kpath/internal/planner"
)

// PathFormatVersion is the semantic version of the persisted node encoding.
// Records whose major version differs cannot be loaded.
const PathFormatVersion = "v1.0.0"

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit  int       // max results (0 = unlimited)
	After  int64     // sequence > After
	Before int64     // sequence < Before
	From   time.Time // timestamp >= From
	To     time.Time // timestamp <= To
}

// PathRecord is a stored path with its bookkeeping fields.
type PathRecord struct {
	ID            string
	Sequence      int64
	FormatVersion string
	CreatedAt     time.Time
	Path          planner.Path
}

// PathRepo stores generated and adjusted paths per learner.
type PathRepo interface {
	// Save stores p as the learner's newest path.
	Save(ctx context.Context, p planner.Path) (*PathRecord, error)

	// Latest returns the learner's most recent path, or nil if none exist.
	Latest(ctx context.Context, learnerID string) (*PathRecord, error)

	// Prune deletes all but the keep most recent paths of the learner.
	Prune(ctx context.Context, learnerID string, keep int) error

	// Delete removes one path. Deleting a missing path is not an error.
	Delete(ctx context.Context, id string) error
}

// Adjustment is one logged path adjustment.
type Adjustment struct {
	Sequence         int64     `json:"sequence"`
	LearnerID        string    `json:"learner_id"`
	PathID           string    `json:"path_id,omitempty"`
	Kind             string    `json:"kind"`
	KnowledgePointID int64     `json:"knowledge_point_id"`
	Reason           string    `json:"reason"`
	Changed          bool      `json:"changed"`
	OldLength        int       `json:"old_length"`
	NewLength        int       `json:"new_length"`
	Timestamp        time.Time `json:"timestamp"`
}

// EventRepo provides append and query access to the adjustment log.
type EventRepo interface {
	// AppendAdjustment records an adjustment and returns its sequence.
	AppendAdjustment(ctx context.Context, a Adjustment) (int64, error)

	// Adjustments returns the learner's adjustments, newest first.
	Adjustments(ctx context.Context, learnerID string, opts QueryOpts) ([]Adjustment, error)
}

// MasteryEntry is one stored mastery status.
type MasteryEntry struct {
	KnowledgePointID int64
	Status           knowledge.MasteryStatus
	UpdatedAt        time.Time
}

// ErrIncompatibleFormat indicates a stored path encoded with an unsupported
// major format version.
type ErrIncompatibleFormat struct {
	Found     string
	Supported string
}

func (e *ErrIncompatibleFormat) Error() string {
	return fmt.Sprintf("incompatible path format %s (supported %s)", e.Found, e.Supported)
}
