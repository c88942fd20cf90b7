package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/opensearch-project/opensearch-go/opensearchapi"
	"github.com/opensearch-project/opensearch-go/opensearchutil"

	"github.com/Opster/opensearch-ilm-orchestrator/opensearch-gateway/requests"
	"github.com/Opster/opensearch-ilm-orchestrator/opensearch-gateway/responses"
	"github.com/Opster/opensearch-ilm-orchestrator/pkg/helpers"
)

// IndexState is the observed state of a physical index, assembled from
// the settings, stats and alias APIs. The orchestrator re-derives phase
// convergence from it instead of trusting local bookkeeping alone.
type IndexState struct {
	Index        string
	CreationDate time.Time
	SizeBytes    int64
	DocCount     int64
	ReadOnly     bool
	ReplicaCount int64
	Priority     int64
	// WriteAlias is the alias this index currently accepts writes for,
	// empty if the index serves no live writes.
	WriteAlias string
	// Aliases are all aliases pointing at the index.
	Aliases []string
}

func (s IndexState) IsWriteIndex() bool {
	return s.WriteAlias != ""
}

// GetIndexState fetches settings, primary stats and alias bindings for
// the index and folds them into a single IndexState.
func (client *OsClusterClient) GetIndexState(ctx context.Context, index string) (IndexState, error) {
	state := IndexState{Index: index}

	settingsReq := opensearchapi.IndicesGetSettingsRequest{Index: []string{index}}
	settingsRes, err := settingsReq.Do(ctx, client.client)
	if err != nil {
		return state, WrapTransportError(err)
	}
	defer settingsRes.Body.Close()
	if settingsRes.StatusCode == 404 {
		return state, NotFoundError(index)
	}
	if settingsRes.IsError() {
		return state, EngineError(settingsRes.String())
	}
	settings := responses.GetIndexSettingsResponse{}
	if err := json.NewDecoder(settingsRes.Body).Decode(&settings); err != nil {
		return state, err
	}
	entry, ok := settings[index]
	if !ok {
		return state, NotFoundError(index)
	}
	if created, ok := helpers.ParseSettingTime(entry.Settings, []string{"index", "creation_date"}); ok {
		state.CreationDate = created
	}
	state.ReadOnly = helpers.ParseSettingBool(entry.Settings, []string{"index", "blocks", "write"})
	state.ReplicaCount = helpers.ParseSettingInt64(entry.Settings, []string{"index", "number_of_replicas"}, 1)
	state.Priority = helpers.ParseSettingInt64(entry.Settings, []string{"index", "priority"}, 1)

	statsReq := opensearchapi.IndicesStatsRequest{
		Index:  []string{index},
		Metric: []string{"docs", "store"},
	}
	statsRes, err := statsReq.Do(ctx, client.client)
	if err != nil {
		return state, WrapTransportError(err)
	}
	defer statsRes.Body.Close()
	if statsRes.IsError() {
		return state, EngineError(statsRes.String())
	}
	stats := responses.IndexStatsResponse{}
	if err := json.NewDecoder(statsRes.Body).Decode(&stats); err != nil {
		return state, err
	}
	if indexStats, ok := stats.Indices[index]; ok {
		state.DocCount = indexStats.Primaries.Docs.Count
		state.SizeBytes = indexStats.Primaries.Store.SizeInBytes
	}

	aliasReq := opensearchapi.IndicesGetAliasRequest{Index: []string{index}}
	aliasRes, err := aliasReq.Do(ctx, client.client)
	if err != nil {
		return state, WrapTransportError(err)
	}
	defer aliasRes.Body.Close()
	// A 404 here only means no aliases are bound.
	if aliasRes.StatusCode != 404 {
		if aliasRes.IsError() {
			return state, EngineError(aliasRes.String())
		}
		aliases := responses.GetAliasResponse{}
		if err := json.NewDecoder(aliasRes.Body).Decode(&aliases); err != nil {
			return state, err
		}
		if aliasEntry, ok := aliases[index]; ok {
			for name, details := range aliasEntry.Aliases {
				state.Aliases = append(state.Aliases, name)
				if details.IsWriteIndex {
					state.WriteAlias = name
				}
			}
		}
	}

	return state, nil
}

// SetReadOnly toggles the write block on the index.
func (client *OsClusterClient) SetReadOnly(ctx context.Context, index string, readOnly bool) error {
	body := requests.IndexSettings{BlocksWrite: &readOnly}
	return client.putIndexSettings(ctx, index, body)
}

// SetReplicaCount updates the replica count of the index.
func (client *OsClusterClient) SetReplicaCount(ctx context.Context, index string, replicas int64) error {
	body := requests.IndexSettings{NumberOfReplicas: &replicas}
	return client.putIndexSettings(ctx, index, body)
}

// SetPriority updates the recovery priority of the index.
func (client *OsClusterClient) SetPriority(ctx context.Context, index string, priority int64) error {
	body := requests.IndexSettings{Priority: &priority}
	return client.putIndexSettings(ctx, index, body)
}

func (client *OsClusterClient) putIndexSettings(ctx context.Context, index string, settings requests.IndexSettings) error {
	req := opensearchapi.IndicesPutSettingsRequest{
		Index: []string{index},
		Body:  opensearchutil.NewJSONReader(settings),
	}
	res, err := req.Do(ctx, client.client)
	if err != nil {
		return WrapTransportError(err)
	}
	defer res.Body.Close()
	if res.StatusCode == 404 {
		return NotFoundError(index)
	}
	if res.IsError() {
		return EngineError(res.String())
	}
	return nil
}

// RolloverAlias rolls the write alias over to a new physical index. The
// engine picks the new index name and repoints the alias atomically.
func (client *OsClusterClient) RolloverAlias(ctx context.Context, alias string) (responses.RolloverResponse, error) {
	var response responses.RolloverResponse
	req := opensearchapi.IndicesRolloverRequest{Alias: alias}
	res, err := req.Do(ctx, client.client)
	if err != nil {
		return response, WrapTransportError(err)
	}
	defer res.Body.Close()
	if res.StatusCode == 404 {
		return response, NotFoundError(alias)
	}
	if res.IsError() {
		return response, EngineError(res.String())
	}
	err = json.NewDecoder(res.Body).Decode(&response)
	return response, err
}

// ForceMerge merges the index down to at most maxNumSegments segments.
func (client *OsClusterClient) ForceMerge(ctx context.Context, index string, maxNumSegments int64) error {
	segments := int(maxNumSegments)
	req := opensearchapi.IndicesForcemergeRequest{
		Index:          []string{index},
		MaxNumSegments: &segments,
	}
	res, err := req.Do(ctx, client.client)
	if err != nil {
		return WrapTransportError(err)
	}
	defer res.Body.Close()
	if res.StatusCode == 404 {
		return NotFoundError(index)
	}
	if res.IsError() {
		return EngineError(res.String())
	}
	return nil
}

// Shrink shrinks the index into target with the given primary shard count.
func (client *OsClusterClient) Shrink(ctx context.Context, index string, target string, targetShards int) error {
	body := requests.Shrink{Settings: requests.ShrinkSettings{NumberOfShards: targetShards}}
	req := opensearchapi.IndicesShrinkRequest{
		Index:  index,
		Target: target,
		Body:   opensearchutil.NewJSONReader(body),
	}
	res, err := req.Do(ctx, client.client)
	if err != nil {
		return WrapTransportError(err)
	}
	defer res.Body.Close()
	if res.StatusCode == 404 {
		return NotFoundError(index)
	}
	if res.IsError() {
		return EngineError(res.String())
	}
	return nil
}

// DeleteIndex removes the physical index.
func (client *OsClusterClient) DeleteIndex(ctx context.Context, index string) error {
	req := opensearchapi.IndicesDeleteRequest{Index: []string{index}}
	res, err := req.Do(ctx, client.client)
	if err != nil {
		return WrapTransportError(err)
	}
	defer res.Body.Close()
	// Already gone counts as deleted.
	if res.StatusCode == 404 {
		return nil
	}
	if res.IsError() {
		return EngineError(res.String())
	}
	return nil
}

// IndexExists checks whether the named index is present.
func (client *OsClusterClient) IndexExists(ctx context.Context, index string) (bool, error) {
	req := opensearchapi.CatIndicesRequest{
		Format: "json",
		Index:  []string{index},
	}
	res, err := req.Do(ctx, client.client)
	if err != nil {
		return false, WrapTransportError(err)
	}
	defer res.Body.Close()
	if res.StatusCode == 404 {
		return false, nil
	}
	if res.IsError() {
		return false, EngineError(res.String())
	}
	return true, nil
}

// GetIndices lists index names matching the pattern. System indices
// (leading dot) are skipped, the orchestrator never manages them.
func (client *OsClusterClient) GetIndices(ctx context.Context, pattern string) ([]string, error) {
	req := opensearchapi.CatIndicesRequest{
		Format: "json",
		Index:  []string{pattern},
	}
	res, err := req.Do(ctx, client.client)
	if err != nil {
		return nil, WrapTransportError(err)
	}
	defer res.Body.Close()
	if res.StatusCode == 404 {
		return nil, nil
	}
	if res.IsError() {
		return nil, EngineError(res.String())
	}
	var indices []responses.CatIndicesResponse
	if err := json.NewDecoder(res.Body).Decode(&indices); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(indices))
	for _, idx := range indices {
		if len(idx.Index) > 0 && idx.Index[0] == '.' {
			continue
		}
		names = append(names, idx.Index)
	}
	return names, nil
}
