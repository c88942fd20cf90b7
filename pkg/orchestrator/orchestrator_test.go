package orchestrator

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/Opster/opensearch-ilm-orchestrator/api/v1"
	"github.com/Opster/opensearch-ilm-orchestrator/opensearch-gateway/services"
	"github.com/Opster/opensearch-ilm-orchestrator/pkg/executor"
	"github.com/Opster/opensearch-ilm-orchestrator/pkg/executor/fake"
	"github.com/Opster/opensearch-ilm-orchestrator/pkg/metrics"
	"github.com/Opster/opensearch-ilm-orchestrator/pkg/store"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestOrchestrator(t *testing.T) (*Orchestrator, *store.MemoryStore, *fake.Engine) {
	t.Helper()
	st := store.NewMemoryStore()
	engine := fake.NewEngine()
	exec := executor.New(engine, 5*time.Second, logr.Discard())
	o := New(st, engine, exec, metrics.New(), logr.Discard(), Options{
		TickInterval:             time.Second,
		MaxConcurrentTransitions: 4,
	})
	o.now = func() time.Time { return testNow }
	return o, st, engine
}

func days(n int) *v1.Duration {
	d := v1.Duration(time.Duration(n) * 24 * time.Hour)
	return &d
}

// retentionPolicy rolls over daily, bumps priority in warm, shrinks in
// cold and deletes after 30 days.
func retentionPolicy() v1.Policy {
	return v1.Policy{
		ID: "logs-retention",
		Template: &v1.Template{
			IndexPatterns: []string{"logs-*"},
			Priority:      10,
		},
		Phases: []v1.Phase{
			{Name: v1.PhaseHot, Actions: []v1.Action{
				{Rollover: &v1.RolloverAction{MaxAge: days(1)}},
			}},
			{Name: v1.PhaseWarm, MinAge: days(1), Actions: []v1.Action{
				{SetPriority: &v1.SetPriorityAction{Priority: 50}},
			}},
			{Name: v1.PhaseCold, MinAge: days(7), Actions: []v1.Action{
				{ReadOnly: &v1.ReadOnlyAction{}},
				{Shrink: &v1.ShrinkAction{TargetShards: 1}},
			}},
			{Name: v1.PhaseDelete, MinAge: days(30), Actions: []v1.Action{
				{Delete: &v1.DeleteAction{}},
			}},
		},
	}
}

func seed(t *testing.T, st *store.MemoryStore, engine *fake.Engine, managed v1.ManagedIndex, state services.IndexState) {
	t.Helper()
	ctx := context.Background()
	require.Nil(t, st.PutPolicy(ctx, retentionPolicy()))
	engine.AddIndex(state)
	require.Nil(t, st.UpsertIndex(ctx, managed))
}

func countCalls(engine *fake.Engine, op string) int {
	count := 0
	for _, call := range engine.Calls() {
		if strings.HasPrefix(call, op+" ") {
			count++
		}
	}
	return count
}

func TestFreshIndexStaysInHot(t *testing.T) {
	o, st, engine := newTestOrchestrator(t)
	seed(t, st, engine,
		v1.ManagedIndex{Index: "logs-000001", PolicyID: "logs-retention", Phase: v1.PhaseHot, RolloverAlias: "logs", CreatedAt: testNow},
		services.IndexState{Index: "logs-000001", WriteAlias: "logs", Aliases: []string{"logs"}},
	)

	require.Nil(t, o.ProcessIndex(context.Background(), "logs-000001"))

	got, err := st.GetIndex(context.Background(), "logs-000001")
	require.Nil(t, err)
	assert.Equal(t, v1.PhaseHot, got.Phase)
	assert.Nil(t, got.Transition)
	assert.Equal(t, 0, countCalls(engine, "rollover"))
}

func TestHotAdvancesToWarmWithRollover(t *testing.T) {
	o, st, engine := newTestOrchestrator(t)
	seed(t, st, engine,
		v1.ManagedIndex{Index: "logs-000001", PolicyID: "logs-retention", Phase: v1.PhaseHot, RolloverAlias: "logs", CreatedAt: testNow.Add(-2 * 24 * time.Hour)},
		services.IndexState{Index: "logs-000001", WriteAlias: "logs", Aliases: []string{"logs"}},
	)

	require.Nil(t, o.ProcessIndex(context.Background(), "logs-000001"))

	got, err := st.GetIndex(context.Background(), "logs-000001")
	require.Nil(t, err)
	assert.Equal(t, v1.PhaseWarm, got.Phase)
	assert.Nil(t, got.Transition)
	assert.Empty(t, got.LastError)
	require.Len(t, got.History, 1)
	assert.Equal(t, v1.OutcomeCompleted, got.History[0].Outcome)
	assert.NotEmpty(t, got.History[0].ID)

	// The write alias rolled over to a new physical index before the
	// warm actions touched the old one.
	assert.Equal(t, 1, countCalls(engine, "rollover"))
	state, _ := engine.State("logs-000001")
	assert.False(t, state.IsWriteIndex())
	assert.Equal(t, int64(50), state.Priority)
}

func TestTimeoutRetryResumesAtFailedAction(t *testing.T) {
	o, st, engine := newTestOrchestrator(t)
	seed(t, st, engine,
		v1.ManagedIndex{Index: "logs-000001", PolicyID: "logs-retention", Phase: v1.PhaseWarm, CreatedAt: testNow.Add(-8 * 24 * time.Hour)},
		services.IndexState{Index: "logs-000001"},
	)
	engine.FailNext("shrink", services.WrapTransportError(context.DeadlineExceeded))

	err := o.ProcessIndex(context.Background(), "logs-000001")
	require.NotNil(t, err)
	require.ErrorIs(t, err, services.ErrRequestTimeout)

	got, errGet := st.GetIndex(context.Background(), "logs-000001")
	require.Nil(t, errGet)
	assert.Equal(t, v1.PhaseWarm, got.Phase)
	assert.False(t, got.Paused)
	assert.Contains(t, got.LastError, "request timed out")
	require.NotNil(t, got.Transition)
	assert.Equal(t, v1.PhaseCold, got.Transition.Target)
	assert.Equal(t, 1, got.Transition.CompletedActions)

	// Next tick resumes at shrink without replaying read-only.
	require.Nil(t, o.ProcessIndex(context.Background(), "logs-000001"))
	got, errGet = st.GetIndex(context.Background(), "logs-000001")
	require.Nil(t, errGet)
	assert.Equal(t, v1.PhaseCold, got.Phase)
	assert.Empty(t, got.LastError)
	assert.Equal(t, 1, countCalls(engine, "set_read_only"))
	assert.Equal(t, 2, countCalls(engine, "shrink"))
}

func TestDeleteTransitionPurgesRecord(t *testing.T) {
	o, st, engine := newTestOrchestrator(t)
	seed(t, st, engine,
		v1.ManagedIndex{Index: "logs-000001", PolicyID: "logs-retention", Phase: v1.PhaseCold, CreatedAt: testNow.Add(-31 * 24 * time.Hour)},
		services.IndexState{Index: "logs-000001", ReadOnly: true},
	)

	require.Nil(t, o.ProcessIndex(context.Background(), "logs-000001"))

	assert.False(t, engine.HasIndex("logs-000001"))
	_, err := st.GetIndex(context.Background(), "logs-000001")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteOnLiveWriteIndexPausesRecord(t *testing.T) {
	o, st, engine := newTestOrchestrator(t)
	seed(t, st, engine,
		v1.ManagedIndex{Index: "logs-000001", PolicyID: "logs-retention", Phase: v1.PhaseCold, RolloverAlias: "logs", CreatedAt: testNow.Add(-31 * 24 * time.Hour)},
		services.IndexState{Index: "logs-000001", WriteAlias: "logs", ReadOnly: true},
	)

	err := o.ProcessIndex(context.Background(), "logs-000001")
	require.ErrorIs(t, err, services.ErrNotEligible)

	got, errGet := st.GetIndex(context.Background(), "logs-000001")
	require.Nil(t, errGet)
	assert.True(t, got.Paused)
	assert.Equal(t, v1.PhaseCold, got.Phase)
	assert.Contains(t, got.LastError, "not eligible")
	assert.True(t, engine.HasIndex("logs-000001"))

	// A paused record is skipped by the tick loop.
	eligible, errList := st.ListEligible(context.Background())
	require.Nil(t, errList)
	assert.Empty(t, eligible)
}

func TestIndexGoneDuringDeleteTransitionIsPurged(t *testing.T) {
	o, st, _ := newTestOrchestrator(t)
	ctx := context.Background()
	require.Nil(t, st.PutPolicy(ctx, retentionPolicy()))
	require.Nil(t, st.UpsertIndex(ctx, v1.ManagedIndex{
		Index:      "logs-000001",
		PolicyID:   "logs-retention",
		Phase:      v1.PhaseCold,
		CreatedAt:  testNow.Add(-31 * 24 * time.Hour),
		Transition: &v1.TransitionProgress{Target: v1.PhaseDelete, StartedAt: testNow},
	}))

	require.Nil(t, o.ProcessIndex(ctx, "logs-000001"))

	_, err := st.GetIndex(ctx, "logs-000001")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestIndexGoneOutsideDeleteIsPaused(t *testing.T) {
	o, st, _ := newTestOrchestrator(t)
	ctx := context.Background()
	require.Nil(t, st.PutPolicy(ctx, retentionPolicy()))
	require.Nil(t, st.UpsertIndex(ctx, v1.ManagedIndex{
		Index:     "logs-000001",
		PolicyID:  "logs-retention",
		Phase:     v1.PhaseWarm,
		CreatedAt: testNow.Add(-2 * 24 * time.Hour),
	}))

	require.Nil(t, o.ProcessIndex(ctx, "logs-000001"))

	got, err := st.GetIndex(ctx, "logs-000001")
	require.Nil(t, err)
	assert.True(t, got.Paused)
	assert.Equal(t, "index missing from engine", got.LastError)
}

func TestForcePhaseMovesBackward(t *testing.T) {
	o, st, engine := newTestOrchestrator(t)
	seed(t, st, engine,
		v1.ManagedIndex{Index: "logs-000001", PolicyID: "logs-retention", Phase: v1.PhaseCold, CreatedAt: testNow.Add(-10 * 24 * time.Hour)},
		services.IndexState{Index: "logs-000001", ReadOnly: true, Priority: 50},
	)

	require.Nil(t, o.ForcePhase(context.Background(), "logs-000001", v1.PhaseWarm))

	got, err := st.GetIndex(context.Background(), "logs-000001")
	require.Nil(t, err)
	assert.Equal(t, v1.PhaseWarm, got.Phase)
	require.NotEmpty(t, got.History)
	assert.Equal(t, v1.OutcomeForced, got.History[len(got.History)-1].Outcome)
	// The warm actions ran through the executor's idempotency checks:
	// priority already converged, nothing re-applied.
	assert.Equal(t, 0, countCalls(engine, "set_priority"))
}

func TestForcePhaseRejectsUnconfiguredPhase(t *testing.T) {
	o, st, engine := newTestOrchestrator(t)
	policy := retentionPolicy()
	policy.Phases = policy.Phases[:2] // hot, warm
	ctx := context.Background()
	require.Nil(t, st.PutPolicy(ctx, policy))
	engine.AddIndex(services.IndexState{Index: "logs-000001"})
	require.Nil(t, st.UpsertIndex(ctx, v1.ManagedIndex{Index: "logs-000001", PolicyID: "logs-retention", Phase: v1.PhaseHot, CreatedAt: testNow}))

	err := o.ForcePhase(ctx, "logs-000001", v1.PhaseCold)
	assert.ErrorIs(t, err, v1.ErrInvalidPolicy)
}

func TestApplyPolicyRejectsInvalidAndDetectsNoop(t *testing.T) {
	o, st, _ := newTestOrchestrator(t)
	ctx := context.Background()

	invalid := retentionPolicy()
	invalid.Phases[1].Actions = append(invalid.Phases[1].Actions, v1.Action{Rollover: &v1.RolloverAction{MaxAge: days(1)}})
	_, err := o.ApplyPolicy(ctx, invalid)
	require.ErrorIs(t, err, v1.ErrInvalidPolicy)
	_, err = st.GetPolicy(ctx, invalid.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	changed, err := o.ApplyPolicy(ctx, retentionPolicy())
	require.Nil(t, err)
	assert.True(t, changed)

	changed, err = o.ApplyPolicy(ctx, retentionPolicy())
	require.Nil(t, err)
	assert.False(t, changed)

	updated := retentionPolicy()
	updated.Phases[3].MinAge = days(60)
	changed, err = o.ApplyPolicy(ctx, updated)
	require.Nil(t, err)
	assert.True(t, changed)
}

func TestDeletePolicyRefusesWhileBound(t *testing.T) {
	o, st, engine := newTestOrchestrator(t)
	seed(t, st, engine,
		v1.ManagedIndex{Index: "logs-000001", PolicyID: "logs-retention", Phase: v1.PhaseHot, CreatedAt: testNow},
		services.IndexState{Index: "logs-000001"},
	)
	ctx := context.Background()

	err := o.DeletePolicy(ctx, "logs-retention")
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "still manages")

	require.Nil(t, st.RemoveIndex(ctx, "logs-000001"))
	assert.Nil(t, o.DeletePolicy(ctx, "logs-retention"))
}

func TestDiscoveryBindsMatchingIndices(t *testing.T) {
	o, st, engine := newTestOrchestrator(t)
	ctx := context.Background()
	require.Nil(t, st.PutPolicy(ctx, retentionPolicy()))

	catchAll := retentionPolicy()
	catchAll.ID = "catch-all"
	catchAll.Template = &v1.Template{IndexPatterns: []string{"*"}, Priority: 1}
	require.Nil(t, st.PutPolicy(ctx, catchAll))

	engine.AddIndex(services.IndexState{Index: "logs-000001", CreationDate: testNow, WriteAlias: "logs", Aliases: []string{"logs"}})
	engine.AddIndex(services.IndexState{Index: "logs-000002" + executor.ShrinkTargetSuffix, CreationDate: testNow})
	engine.AddIndex(services.IndexState{Index: "metrics-000001", CreationDate: testNow})

	require.Nil(t, o.discover(ctx))

	got, err := st.GetIndex(ctx, "logs-000001")
	require.Nil(t, err)
	// Template priority 10 beats the catch-all's 1.
	assert.Equal(t, "logs-retention", got.PolicyID)
	assert.Equal(t, v1.PhaseHot, got.Phase)
	assert.Equal(t, "logs", got.RolloverAlias)
	assert.True(t, testNow.Equal(got.CreatedAt))

	gotMetrics, err := st.GetIndex(ctx, "metrics-000001")
	require.Nil(t, err)
	assert.Equal(t, "catch-all", gotMetrics.PolicyID)

	_, err = st.GetIndex(ctx, "logs-000002"+executor.ShrinkTargetSuffix)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestTickProcessesEligibleIndices(t *testing.T) {
	o, st, engine := newTestOrchestrator(t)
	seed(t, st, engine,
		v1.ManagedIndex{Index: "logs-000001", PolicyID: "logs-retention", Phase: v1.PhaseHot, RolloverAlias: "logs", CreatedAt: testNow.Add(-2 * 24 * time.Hour)},
		services.IndexState{Index: "logs-000001", WriteAlias: "logs", Aliases: []string{"logs"}},
	)

	o.Tick(context.Background())

	got, err := st.GetIndex(context.Background(), "logs-000001")
	require.Nil(t, err)
	assert.Equal(t, v1.PhaseWarm, got.Phase)
}

func TestRetryNowClearsPauseAndProcesses(t *testing.T) {
	o, st, engine := newTestOrchestrator(t)
	seed(t, st, engine,
		v1.ManagedIndex{Index: "logs-000001", PolicyID: "logs-retention", Phase: v1.PhaseHot, CreatedAt: testNow, Paused: true, LastError: "boom"},
		services.IndexState{Index: "logs-000001"},
	)

	require.Nil(t, o.RetryNow(context.Background(), "logs-000001"))

	got, err := st.GetIndex(context.Background(), "logs-000001")
	require.Nil(t, err)
	assert.False(t, got.Paused)
}

func TestPauseAndResume(t *testing.T) {
	o, st, engine := newTestOrchestrator(t)
	seed(t, st, engine,
		v1.ManagedIndex{Index: "logs-000001", PolicyID: "logs-retention", Phase: v1.PhaseHot, CreatedAt: testNow},
		services.IndexState{Index: "logs-000001"},
	)
	ctx := context.Background()

	require.Nil(t, o.Pause(ctx, "logs-000001"))
	eligible, err := st.ListEligible(ctx)
	require.Nil(t, err)
	assert.Empty(t, eligible)

	require.Nil(t, o.Resume(ctx, "logs-000001"))
	eligible, err = st.ListEligible(ctx)
	require.Nil(t, err)
	assert.Len(t, eligible, 1)
}

func TestExplainReflectsPendingError(t *testing.T) {
	o, st, engine := newTestOrchestrator(t)
	seed(t, st, engine,
		v1.ManagedIndex{Index: "logs-000001", PolicyID: "logs-retention", Phase: v1.PhaseWarm, CreatedAt: testNow.Add(-8 * 24 * time.Hour)},
		services.IndexState{Index: "logs-000001"},
	)
	engine.FailNext("shrink", services.WrapTransportError(context.DeadlineExceeded))
	_ = o.ProcessIndex(context.Background(), "logs-000001")

	explanation, err := o.Explain(context.Background(), "logs-000001")
	require.Nil(t, err)
	assert.Equal(t, v1.PhaseWarm, explanation.Phase)
	assert.Contains(t, explanation.LastError, "request timed out")
	require.NotNil(t, explanation.Transition)
	assert.Equal(t, v1.PhaseCold, explanation.Transition.Target)
}

// stallingEngine hangs selected calls until the caller's context expires,
// the way a wedged engine would.
type stallingEngine struct {
	*fake.Engine
	stallState   bool
	stallIndices bool
}

func (s *stallingEngine) GetIndexState(ctx context.Context, index string) (services.IndexState, error) {
	if s.stallState {
		<-ctx.Done()
		return services.IndexState{}, ctx.Err()
	}
	return s.Engine.GetIndexState(ctx, index)
}

func (s *stallingEngine) GetIndices(ctx context.Context, pattern string) ([]string, error) {
	if s.stallIndices {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.Engine.GetIndices(ctx, pattern)
}

func TestHungStateRefreshSurfacesAsRetryableTimeout(t *testing.T) {
	st := store.NewMemoryStore()
	engine := &stallingEngine{Engine: fake.NewEngine(), stallState: true}
	exec := executor.New(engine, 50*time.Millisecond, logr.Discard())
	o := New(st, engine, exec, metrics.New(), logr.Discard(), Options{
		EngineCallTimeout: 50 * time.Millisecond,
	})
	o.now = func() time.Time { return testNow }
	ctx := context.Background()
	require.Nil(t, st.PutPolicy(ctx, retentionPolicy()))
	require.Nil(t, st.UpsertIndex(ctx, v1.ManagedIndex{Index: "logs-000001", PolicyID: "logs-retention", Phase: v1.PhaseWarm, CreatedAt: testNow.Add(-2 * 24 * time.Hour)}))

	err := o.ProcessIndex(ctx, "logs-000001")
	require.ErrorIs(t, err, services.ErrRequestTimeout)
	assert.True(t, services.IsRetryable(err))

	got, errGet := st.GetIndex(ctx, "logs-000001")
	require.Nil(t, errGet)
	assert.Equal(t, v1.PhaseWarm, got.Phase)
	assert.False(t, got.Paused)
	assert.Contains(t, got.LastError, "request timed out")

	// A full tick over the hung engine still terminates.
	o.Tick(ctx)
}

func TestHungDiscoveryDoesNotBlockTick(t *testing.T) {
	st := store.NewMemoryStore()
	engine := &stallingEngine{Engine: fake.NewEngine(), stallIndices: true}
	exec := executor.New(engine, 50*time.Millisecond, logr.Discard())
	o := New(st, engine, exec, metrics.New(), logr.Discard(), Options{
		EngineCallTimeout: 50 * time.Millisecond,
	})
	o.now = func() time.Time { return testNow }
	ctx := context.Background()
	require.Nil(t, st.PutPolicy(ctx, retentionPolicy()))

	o.Tick(ctx)

	indices, err := st.ListIndices(ctx)
	require.Nil(t, err)
	assert.Empty(t, indices)
}

func TestAdminOpsRefuseWhileTransitionInFlight(t *testing.T) {
	o, st, engine := newTestOrchestrator(t)
	seed(t, st, engine,
		v1.ManagedIndex{Index: "logs-000001", PolicyID: "logs-retention", Phase: v1.PhaseHot, CreatedAt: testNow},
		services.IndexState{Index: "logs-000001"},
	)
	ctx := context.Background()

	require.True(t, o.acquireLease("logs-000001"))

	err := o.RetryNow(ctx, "logs-000001")
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "transition in flight")

	err = o.ForcePhase(ctx, "logs-000001", v1.PhaseWarm)
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "transition in flight")

	o.releaseLease("logs-000001")
	assert.Nil(t, o.RetryNow(ctx, "logs-000001"))
}

// cancellingEngine cancels the run's context while the first settings
// call is in flight, simulating a shutdown arriving mid-transition.
type cancellingEngine struct {
	*fake.Engine
	cancel context.CancelFunc
}

func (c *cancellingEngine) SetReadOnly(ctx context.Context, index string, readOnly bool) error {
	err := c.Engine.SetReadOnly(ctx, index, readOnly)
	c.cancel()
	return err
}

func TestCancellationStopsBetweenActionsAndKeepsProgress(t *testing.T) {
	st := store.NewMemoryStore()
	base := fake.NewEngine()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	engine := &cancellingEngine{Engine: base, cancel: cancel}
	exec := executor.New(engine, 5*time.Second, logr.Discard())
	o := New(st, engine, exec, metrics.New(), logr.Discard(), Options{})
	o.now = func() time.Time { return testNow }

	require.Nil(t, st.PutPolicy(context.Background(), retentionPolicy()))
	base.AddIndex(services.IndexState{Index: "logs-000001"})
	require.Nil(t, st.UpsertIndex(context.Background(), v1.ManagedIndex{
		Index:     "logs-000001",
		PolicyID:  "logs-retention",
		Phase:     v1.PhaseWarm,
		CreatedAt: testNow.Add(-8 * 24 * time.Hour),
	}))

	// The cold transition's read-only action completes, then the cancel
	// is honored before shrink starts.
	require.Nil(t, o.ProcessIndex(ctx, "logs-000001"))

	got, err := st.GetIndex(context.Background(), "logs-000001")
	require.Nil(t, err)
	assert.Equal(t, v1.PhaseWarm, got.Phase)
	require.NotNil(t, got.Transition)
	assert.Equal(t, v1.PhaseCold, got.Transition.Target)
	assert.Equal(t, 1, got.Transition.CompletedActions)
	assert.Equal(t, 0, countCalls(base, "shrink"))

	// The next tick picks up where the shutdown stopped.
	require.Nil(t, o.ProcessIndex(context.Background(), "logs-000001"))
	got, err = st.GetIndex(context.Background(), "logs-000001")
	require.Nil(t, err)
	assert.Equal(t, v1.PhaseCold, got.Phase)
	assert.Equal(t, 1, countCalls(base, "set_read_only"))
	assert.Equal(t, 1, countCalls(base, "shrink"))
}

func TestPhaseOnlyAdvancesForward(t *testing.T) {
	o, st, engine := newTestOrchestrator(t)
	seed(t, st, engine,
		v1.ManagedIndex{Index: "logs-000001", PolicyID: "logs-retention", Phase: v1.PhaseHot, RolloverAlias: "logs", CreatedAt: testNow.Add(-40 * 24 * time.Hour)},
		services.IndexState{Index: "logs-000001", WriteAlias: "logs", Aliases: []string{"logs"}},
	)
	ctx := context.Background()

	ranks := []int{v1.PhaseHot.Rank()}
	for i := 0; i < 6; i++ {
		_ = o.ProcessIndex(ctx, "logs-000001")
		got, err := st.GetIndex(ctx, "logs-000001")
		if err != nil {
			// Purged after delete, the terminal outcome.
			assert.ErrorIs(t, err, store.ErrNotFound)
			break
		}
		ranks = append(ranks, got.Phase.Rank())
	}
	for i := 1; i < len(ranks); i++ {
		assert.GreaterOrEqual(t, ranks[i], ranks[i-1])
	}
	assert.False(t, engine.HasIndex("logs-000001"))
}
