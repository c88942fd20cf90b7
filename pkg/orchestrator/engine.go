package orchestrator

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/Opster/opensearch-ilm-orchestrator/opensearch-gateway/responses"
	"github.com/Opster/opensearch-ilm-orchestrator/opensearch-gateway/services"
	"github.com/Opster/opensearch-ilm-orchestrator/pkg/executor"
	"github.com/Opster/opensearch-ilm-orchestrator/pkg/metrics"
)

// EngineClient is everything the orchestrator needs from the engine: the
// executor's collaborator surface plus pattern-based index discovery.
// *services.OsClusterClient implements it.
type EngineClient interface {
	executor.Collaborator
	GetIndices(ctx context.Context, pattern string) ([]string, error)
}

// throttledEngine wraps an EngineClient with a shared rate limiter and
// per-operation latency instrumentation. All orchestrator and executor
// traffic goes through one limiter so a large tick cannot flood the
// engine.
type throttledEngine struct {
	engine  EngineClient
	limiter *rate.Limiter
	metrics *metrics.Metrics
}

// Throttle builds the rate-limited, instrumented engine wrapper.
// callsPerSecond <= 0 disables throttling but keeps the instrumentation.
func Throttle(engine EngineClient, callsPerSecond float64, m *metrics.Metrics) EngineClient {
	limit := rate.Inf
	burst := 1
	if callsPerSecond > 0 {
		limit = rate.Limit(callsPerSecond)
		burst = int(callsPerSecond)
		if burst < 1 {
			burst = 1
		}
	}
	return &throttledEngine{
		engine:  engine,
		limiter: rate.NewLimiter(limit, burst),
		metrics: m,
	}
}

func (t *throttledEngine) observe(ctx context.Context, operation string) (func(), error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, services.WrapTransportError(err)
	}
	start := time.Now()
	return func() {
		t.metrics.EngineCallDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}, nil
}

func (t *throttledEngine) GetIndexState(ctx context.Context, index string) (services.IndexState, error) {
	done, err := t.observe(ctx, "get_index_state")
	if err != nil {
		return services.IndexState{}, err
	}
	defer done()
	return t.engine.GetIndexState(ctx, index)
}

func (t *throttledEngine) SetReadOnly(ctx context.Context, index string, readOnly bool) error {
	done, err := t.observe(ctx, "set_read_only")
	if err != nil {
		return err
	}
	defer done()
	return t.engine.SetReadOnly(ctx, index, readOnly)
}

func (t *throttledEngine) SetReplicaCount(ctx context.Context, index string, replicas int64) error {
	done, err := t.observe(ctx, "set_replica_count")
	if err != nil {
		return err
	}
	defer done()
	return t.engine.SetReplicaCount(ctx, index, replicas)
}

func (t *throttledEngine) SetPriority(ctx context.Context, index string, priority int64) error {
	done, err := t.observe(ctx, "set_priority")
	if err != nil {
		return err
	}
	defer done()
	return t.engine.SetPriority(ctx, index, priority)
}

func (t *throttledEngine) RolloverAlias(ctx context.Context, alias string) (responses.RolloverResponse, error) {
	done, err := t.observe(ctx, "rollover")
	if err != nil {
		return responses.RolloverResponse{}, err
	}
	defer done()
	return t.engine.RolloverAlias(ctx, alias)
}

func (t *throttledEngine) ForceMerge(ctx context.Context, index string, maxNumSegments int64) error {
	done, err := t.observe(ctx, "force_merge")
	if err != nil {
		return err
	}
	defer done()
	return t.engine.ForceMerge(ctx, index, maxNumSegments)
}

func (t *throttledEngine) Shrink(ctx context.Context, index string, target string, targetShards int) error {
	done, err := t.observe(ctx, "shrink")
	if err != nil {
		return err
	}
	defer done()
	return t.engine.Shrink(ctx, index, target, targetShards)
}

func (t *throttledEngine) DeleteIndex(ctx context.Context, index string) error {
	done, err := t.observe(ctx, "delete_index")
	if err != nil {
		return err
	}
	defer done()
	return t.engine.DeleteIndex(ctx, index)
}

func (t *throttledEngine) IndexExists(ctx context.Context, index string) (bool, error) {
	done, err := t.observe(ctx, "index_exists")
	if err != nil {
		return false, err
	}
	defer done()
	return t.engine.IndexExists(ctx, index)
}

func (t *throttledEngine) GetIndices(ctx context.Context, pattern string) ([]string, error) {
	done, err := t.observe(ctx, "get_indices")
	if err != nil {
		return nil, err
	}
	defer done()
	return t.engine.GetIndices(ctx, pattern)
}
