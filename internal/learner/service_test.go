package learner

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/kpath/internal/adjuster"
	"github.com/abhisek/kpath/internal/kgraph"
	"github.com/abhisek/kpath/internal/knowledge"
	"github.com/abhisek/kpath/internal/mastery"
	"github.com/abhisek/kpath/internal/planner"
	"github.com/abhisek/kpath/internal/store"
)

type fixture struct {
	svc     *Service
	store   *store.Store
	mastery *mastery.MemStore
	graph   *kgraph.Graph
}

func newFixture(t *testing.T, track bool) fixture {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "kpath.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ms := mastery.NewMemStore()
	svc, err := NewService(Config{
		Paths:        st.PathRepo(),
		Events:       st.EventRepo(),
		Mastery:      ms,
		Keep:         3,
		TrackMastery: track,
	})
	require.NoError(t, err)

	g := kgraph.Build([]knowledge.KnowledgePoint{
		{ID: 1, Name: "Functions"},
		{ID: 2, Name: "Limits"},
		{ID: 3, Name: "Derivatives"},
	}, []knowledge.Relation{
		{Source: 1, Target: 2, Kind: knowledge.RelationPrerequisite, Confidence: 0.9},
		{Source: 2, Target: 3, Kind: knowledge.RelationPrerequisite, Confidence: 0.8},
	})
	return fixture{svc: svc, store: st, mastery: ms, graph: g}
}

func TestNewService_RequiresStores(t *testing.T) {
	_, err := NewService(Config{})
	assert.Error(t, err)
}

func TestPlan_UsesStoredMastery(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	require.NoError(t, f.mastery.Set(ctx, "l1", 1, knowledge.StatusMastered))

	rec, err := f.svc.Plan(ctx, "l1", f.graph, planner.Options{})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, rec.Path.ContentIDs())

	cur, err := f.svc.Current(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, cur.ID)
}

func TestApply_NoPath(t *testing.T) {
	f := newFixture(t, false)
	_, err := f.svc.Apply(context.Background(), "nobody", adjuster.Event{Kind: adjuster.EventDifficult, KnowledgePointID: 1})
	assert.True(t, errors.Is(err, ErrNoPath), "err = %v", err)
}

func TestApply_DifficultThenRemedialCompleted(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	first, err := f.svc.Plan(ctx, "l1", f.graph, planner.Options{})
	require.NoError(t, err)

	out, err := f.svc.Apply(ctx, "l1", adjuster.Event{Kind: adjuster.EventDifficult, KnowledgePointID: 2})
	require.NoError(t, err)
	assert.True(t, out.Changed)
	assert.NotEqual(t, first.ID, out.PathID)
	assert.Equal(t, 4, out.Path.Len())
	require.NotNil(t, out.Next)
	assert.Equal(t, int64(1), out.Next.KnowledgePointID)

	// Replaying the event logs it but saves nothing new.
	again, err := f.svc.Apply(ctx, "l1", adjuster.Event{Kind: adjuster.EventDifficult, KnowledgePointID: 2})
	require.NoError(t, err)
	assert.False(t, again.Changed)
	assert.Equal(t, out.PathID, again.PathID)

	done, err := f.svc.Apply(ctx, "l1", adjuster.Event{Kind: adjuster.EventRemedialCompleted, KnowledgePointID: 2})
	require.NoError(t, err)
	assert.True(t, done.Changed)

	cur, err := f.svc.Current(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, first.Path.ContentIDs(), cur.Path.ContentIDs())
	assert.Equal(t, 3, cur.Path.Len())

	history, err := f.svc.History(ctx, "l1", 0)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "remedial_completed", history[0].Kind)
	assert.Equal(t, 4, history[0].OldLength)
	assert.Equal(t, 3, history[0].NewLength)
	assert.False(t, history[1].Changed)
}

func TestApply_UnknownEvent(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	_, err := f.svc.Plan(ctx, "l1", f.graph, planner.Options{})
	require.NoError(t, err)

	_, err = f.svc.Apply(ctx, "l1", adjuster.Event{Kind: "paused", KnowledgePointID: 1})
	var unknown *adjuster.UnknownEventError
	assert.ErrorAs(t, err, &unknown)

	history, err := f.svc.History(ctx, "l1", 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestApply_TracksMastery(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	_, err := f.svc.Plan(ctx, "l1", f.graph, planner.Options{})
	require.NoError(t, err)

	out, err := f.svc.Apply(ctx, "l1", adjuster.Event{Kind: adjuster.EventCompleted, KnowledgePointID: 1})
	require.NoError(t, err)
	require.NotNil(t, out.Transition)
	assert.Equal(t, knowledge.StatusLearning, out.Transition.To)

	out, err = f.svc.Apply(ctx, "l1", adjuster.Event{Kind: adjuster.EventMastered, KnowledgePointID: 1})
	require.NoError(t, err)
	assert.Equal(t, knowledge.StatusMastered, out.Transition.To)
	assert.Equal(t, knowledge.StatusLearning, out.Transition.From)

	status, err := f.mastery.Get(ctx, "l1", 1)
	require.NoError(t, err)
	assert.Equal(t, knowledge.StatusMastered, status)

	// A fresh plan now skips the mastered point.
	rec, err := f.svc.Plan(ctx, "l1", f.graph, planner.Options{})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, rec.Path.ContentIDs())
}

func TestPlan_PrunesOldPaths(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := f.svc.Plan(ctx, "l1", f.graph, planner.Options{})
		require.NoError(t, err)
	}

	var count int
	require.NoError(t, f.store.DB().QueryRow(`SELECT COUNT(*) FROM paths WHERE learner_id = 'l1'`).Scan(&count))
	assert.Equal(t, 3, count)
}

func TestSetMasteryAndList(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	require.NoError(t, f.svc.SetMastery(ctx, "l1", 2, knowledge.StatusLearning))
	require.NoError(t, f.svc.SetMastery(ctx, "l1", 3, knowledge.StatusMastered))

	m, err := f.svc.Mastery(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, map[int64]knowledge.MasteryStatus{2: knowledge.StatusLearning, 3: knowledge.StatusMastered}, m)

	m, err = f.svc.Mastery(ctx, "l2")
	require.NoError(t, err)
	assert.Empty(t, m)
}

type failingEvents struct {
	store.EventRepo
	err error
}

func (f failingEvents) AppendAdjustment(context.Context, store.Adjustment) (int64, error) {
	return 0, f.err
}

func TestApply_LogFailureKeepsPreviousPath(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	first, err := f.svc.Plan(ctx, "l1", f.graph, planner.Options{})
	require.NoError(t, err)

	logErr := errors.New("disk full")
	f.svc.events = failingEvents{EventRepo: f.svc.events, err: logErr}
	_, err = f.svc.Apply(ctx, "l1", adjuster.Event{Kind: adjuster.EventDifficult, KnowledgePointID: 2})
	assert.ErrorIs(t, err, logErr)

	cur, err := f.svc.Current(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, cur.ID)

	// With logging restored the retry applies the adjustment for real.
	f.svc.events = f.store.EventRepo()
	out, err := f.svc.Apply(ctx, "l1", adjuster.Event{Kind: adjuster.EventDifficult, KnowledgePointID: 2})
	require.NoError(t, err)
	assert.True(t, out.Changed)

	history, err := f.svc.History(ctx, "l1", 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].Changed)
}

func TestApply_RemedialCompletedLeavesMastery(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	_, err := f.svc.Plan(ctx, "l1", f.graph, planner.Options{})
	require.NoError(t, err)

	out, err := f.svc.Apply(ctx, "l1", adjuster.Event{Kind: adjuster.EventDifficult, KnowledgePointID: 2})
	require.NoError(t, err)
	require.NotNil(t, out.Transition)
	assert.Equal(t, mastery.TriggerDifficult, out.Transition.Trigger)

	out, err = f.svc.Apply(ctx, "l1", adjuster.Event{Kind: adjuster.EventRemedialCompleted, KnowledgePointID: 2})
	require.NoError(t, err)
	assert.Nil(t, out.Transition)

	status, err := f.mastery.Get(ctx, "l1", 2)
	require.NoError(t, err)
	assert.Equal(t, knowledge.StatusDifficult, status)
}
