package responses

// GetIndexSettingsResponse maps index name to its settings document. The
// settings tree is left untyped: the engine returns leaf values as strings
// and versions differ in which keys are present.
type GetIndexSettingsResponse map[string]IndexSettingsEntry

type IndexSettingsEntry struct {
	Settings map[string]interface{} `json:"settings"`
}
