package responses

// IndexStatsResponse is the subset of the _stats API the orchestrator
// reads: primary store size and document count per index.
type IndexStatsResponse struct {
	Indices map[string]IndexStats `json:"indices"`
}

type IndexStats struct {
	Primaries IndexStatsPrimaries `json:"primaries"`
}

type IndexStatsPrimaries struct {
	Docs  IndexStatsDocs  `json:"docs"`
	Store IndexStatsStore `json:"store"`
}

type IndexStatsDocs struct {
	Count   int64 `json:"count"`
	Deleted int64 `json:"deleted"`
}

type IndexStatsStore struct {
	SizeInBytes int64 `json:"size_in_bytes"`
}
