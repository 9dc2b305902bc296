// Package learner runs planning and adjustment for one learner at a time,
// loading and persisting state around the pure core.
package learner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abhisek/kpath/internal/adjuster"
	"github.com/abhisek/kpath/internal/knowledge"
	"github.com/abhisek/kpath/internal/lock"
	"github.com/abhisek/kpath/internal/logger"
	"github.com/abhisek/kpath/internal/mastery"
	"github.com/abhisek/kpath/internal/planner"
	"github.com/abhisek/kpath/internal/store"
)

// ErrNoPath is returned when a learner has no stored path to adjust.
var ErrNoPath = errors.New("no path stored for learner")

// Config holds the collaborators of a Service.
type Config struct {
	Paths   store.PathRepo
	Events  store.EventRepo
	Mastery mastery.Recorder
	Locker  lock.Locker
	Planner planner.Planner
	Log     *logger.Logger

	// Keep is how many paths to retain per learner; 0 keeps all.
	Keep int
	// TrackMastery records the status change each event implies.
	TrackMastery bool
}

// Service provides per-learner planning and adjustment.
type Service struct {
	paths        store.PathRepo
	events       store.EventRepo
	mastery      mastery.Recorder
	locker       lock.Locker
	planner      planner.Planner
	adjuster     *adjuster.Adjuster
	log          *logger.Logger
	keep         int
	trackMastery bool
}

// NewService creates a Service. Paths, Events and Mastery are required;
// Locker and Planner default to in-process implementations.
func NewService(cfg Config) (*Service, error) {
	if cfg.Paths == nil || cfg.Events == nil || cfg.Mastery == nil {
		return nil, fmt.Errorf("learner service: path, event and mastery stores are required")
	}
	log := logger.OrNop(cfg.Log).With("service", "LearnerService")
	s := &Service{
		paths:        cfg.Paths,
		events:       cfg.Events,
		mastery:      cfg.Mastery,
		locker:       cfg.Locker,
		planner:      cfg.Planner,
		adjuster:     adjuster.New(log),
		log:          log,
		keep:         cfg.Keep,
		trackMastery: cfg.TrackMastery,
	}
	if s.locker == nil {
		s.locker = lock.NewKeyedMutex()
	}
	if s.planner == nil {
		s.planner = planner.New(log)
	}
	return s, nil
}

// Plan generates a fresh path over g from the learner's stored mastery and
// saves it.
func (s *Service) Plan(ctx context.Context, learnerID string, g planner.DependencyGraph, opts planner.Options) (*store.PathRecord, error) {
	unlock, err := s.locker.Lock(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	points := g.Points()
	ids := make([]int64, len(points))
	for i, kp := range points {
		ids[i] = kp.ID
	}
	snapshot, err := mastery.Load(ctx, s.mastery, learnerID, ids)
	if err != nil {
		return nil, fmt.Errorf("plan for %s: %w", learnerID, err)
	}

	path := s.planner.Generate(learnerID, snapshot, g, opts)
	rec, err := s.paths.Save(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("plan for %s: %w", learnerID, err)
	}
	if s.keep > 0 {
		if err := s.paths.Prune(ctx, learnerID, s.keep); err != nil {
			s.log.Warn("prune paths failed", "learner", learnerID, "error", err)
		}
	}
	s.log.Info("path planned", "learner", learnerID, "path", rec.ID, "nodes", path.Len())
	return rec, nil
}

// Current returns the learner's latest path, or ErrNoPath.
func (s *Service) Current(ctx context.Context, learnerID string) (*store.PathRecord, error) {
	rec, err := s.paths.Latest(ctx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("load path for %s: %w", learnerID, err)
	}
	if rec == nil {
		return nil, fmt.Errorf("%s: %w", learnerID, ErrNoPath)
	}
	return rec, nil
}

// Outcome is the result of applying one event.
type Outcome struct {
	adjuster.Result
	PathID     string              `json:"path_id"`
	Sequence   int64               `json:"sequence"`
	Transition *mastery.Transition `json:"transition,omitempty"`
	Next       *planner.Suggestion `json:"next,omitempty"`
}

// Apply adjusts the learner's latest path with e under the learner's lock.
// A changed path is saved as a new version; every event is logged.
func (s *Service) Apply(ctx context.Context, learnerID string, e adjuster.Event) (*Outcome, error) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	unlock, err := s.locker.Lock(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	rec, err := s.Current(ctx, learnerID)
	if err != nil {
		return nil, err
	}

	res, err := s.adjuster.Adjust(rec.Path, e)
	if err != nil {
		return nil, err
	}

	out := &Outcome{Result: res, PathID: rec.ID}
	var saved *store.PathRecord
	if res.Changed {
		saved, err = s.paths.Save(ctx, res.Path)
		if err != nil {
			return nil, fmt.Errorf("save adjusted path: %w", err)
		}
		out.PathID = saved.ID
	}

	out.Sequence, err = s.events.AppendAdjustment(ctx, store.Adjustment{
		LearnerID:        learnerID,
		PathID:           out.PathID,
		Kind:             string(e.Kind),
		KnowledgePointID: e.KnowledgePointID,
		Reason:           res.Reason,
		Changed:          res.Changed,
		OldLength:        rec.Path.Len(),
		NewLength:        res.Path.Len(),
		Timestamp:        e.Timestamp,
	})
	if err != nil {
		// An adjusted path is only current once its adjustment is logged.
		if saved != nil {
			if derr := s.paths.Delete(context.WithoutCancel(ctx), saved.ID); derr != nil {
				s.log.Error("discard unlogged path failed", "learner", learnerID, "path", saved.ID, "error", derr)
			}
		}
		return nil, fmt.Errorf("log adjustment: %w", err)
	}
	if saved != nil && s.keep > 0 {
		if err := s.paths.Prune(ctx, learnerID, s.keep); err != nil {
			s.log.Warn("prune paths failed", "learner", learnerID, "error", err)
		}
	}

	if s.trackMastery {
		tr, err := s.recordMastery(ctx, learnerID, e)
		if err != nil {
			return nil, err
		}
		out.Transition = tr
	}

	if next, ok := res.Path.Next(0); ok {
		out.Next = &next
	}
	return out, nil
}

// eventTriggers maps the events that move mastery. Remedial completion is
// left to external re-evaluation.
var eventTriggers = map[adjuster.EventKind]mastery.Trigger{
	adjuster.EventCompleted: mastery.TriggerCompleted,
	adjuster.EventMastered:  mastery.TriggerMastered,
	adjuster.EventDifficult: mastery.TriggerDifficult,
}

func (s *Service) recordMastery(ctx context.Context, learnerID string, e adjuster.Event) (*mastery.Transition, error) {
	trigger, ok := eventTriggers[e.Kind]
	if !ok {
		return nil, nil
	}
	from, err := s.mastery.Get(ctx, learnerID, e.KnowledgePointID)
	if err != nil {
		return nil, fmt.Errorf("read mastery: %w", err)
	}
	to, changed := mastery.Implied(from, trigger)
	if !changed {
		return nil, nil
	}
	if err := s.mastery.Set(ctx, learnerID, e.KnowledgePointID, to); err != nil {
		return nil, fmt.Errorf("record mastery: %w", err)
	}
	s.log.Debug("mastery updated", "learner", learnerID, "kp", e.KnowledgePointID, "from", from, "to", to)
	return &mastery.Transition{
		LearnerID:        learnerID,
		KnowledgePointID: e.KnowledgePointID,
		From:             from,
		To:               to,
		Trigger:          trigger,
	}, nil
}

// SetMastery records a manual status change.
func (s *Service) SetMastery(ctx context.Context, learnerID string, kpID int64, status knowledge.MasteryStatus) error {
	if err := s.mastery.Set(ctx, learnerID, kpID, status); err != nil {
		return fmt.Errorf("set mastery for %s: %w", learnerID, err)
	}
	return nil
}

// Mastery returns every stored status of the learner.
func (s *Service) Mastery(ctx context.Context, learnerID string) (map[int64]knowledge.MasteryStatus, error) {
	m, err := s.mastery.List(ctx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("list mastery for %s: %w", learnerID, err)
	}
	return m, nil
}

// History returns the learner's logged adjustments, newest first.
func (s *Service) History(ctx context.Context, learnerID string, limit int) ([]store.Adjustment, error) {
	return s.events.Adjustments(ctx, learnerID, store.QueryOpts{Limit: limit})
}
