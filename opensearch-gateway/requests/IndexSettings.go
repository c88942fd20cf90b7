package requests

// IndexSettings is the body for the index settings update API. Flat dotted
// keys keep the payload minimal; unset fields are omitted.
type IndexSettings struct {
	BlocksWrite      *bool  `json:"index.blocks.write,omitempty"`
	NumberOfReplicas *int64 `json:"index.number_of_replicas,omitempty"`
	Priority         *int64 `json:"index.priority,omitempty"`
}

// Shrink is the body for the shrink API.
type Shrink struct {
	Settings ShrinkSettings `json:"settings"`
}

type ShrinkSettings struct {
	NumberOfShards int `json:"index.number_of_shards"`
}
