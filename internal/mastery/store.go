package mastery

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/abhisek/kpath/internal/knowledge"
)

// Store reads mastery status. Points without an entry are unlearned.
type Store interface {
	Get(ctx context.Context, learnerID string, kpID int64) (knowledge.MasteryStatus, error)
}

// Recorder is a Store that can also write status.
type Recorder interface {
	Store
	Set(ctx context.Context, learnerID string, kpID int64, status knowledge.MasteryStatus) error
	List(ctx context.Context, learnerID string) (map[int64]knowledge.MasteryStatus, error)
}

// Load builds a snapshot of the learner's status for ids.
func Load(ctx context.Context, s Store, learnerID string, ids []int64) (map[int64]knowledge.MasteryStatus, error) {
	out := make(map[int64]knowledge.MasteryStatus, len(ids))
	for _, id := range ids {
		st, err := s.Get(ctx, learnerID, id)
		if err != nil {
			return nil, fmt.Errorf("load mastery for %d: %w", id, err)
		}
		if st == "" {
			st = knowledge.StatusUnlearned
		}
		out[id] = st
	}
	return out, nil
}

// MemStore is an in-memory Recorder.
type MemStore struct {
	mu       sync.RWMutex
	learners map[string]map[int64]knowledge.MasteryStatus
}

var _ Recorder = (*MemStore)(nil)

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{learners: make(map[string]map[int64]knowledge.MasteryStatus)}
}

func (m *MemStore) Get(_ context.Context, learnerID string, kpID int64) (knowledge.MasteryStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return knowledge.StatusOf(m.learners[learnerID], kpID), nil
}

func (m *MemStore) Set(_ context.Context, learnerID string, kpID int64, status knowledge.MasteryStatus) error {
	if _, err := knowledge.ParseMasteryStatus(string(status)); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.learners[learnerID] == nil {
		m.learners[learnerID] = make(map[int64]knowledge.MasteryStatus)
	}
	m.learners[learnerID][kpID] = status
	return nil
}

func (m *MemStore) List(_ context.Context, learnerID string) (map[int64]knowledge.MasteryStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := maps.Clone(m.learners[learnerID])
	if out == nil {
		out = make(map[int64]knowledge.MasteryStatus)
	}
	return out, nil
}
