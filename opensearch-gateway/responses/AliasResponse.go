package responses

// GetAliasResponse maps index name to its alias bindings.
type GetAliasResponse map[string]AliasEntry

type AliasEntry struct {
	Aliases map[string]AliasDetails `json:"aliases"`
}

type AliasDetails struct {
	IsWriteIndex bool `json:"is_write_index"`
}
