package responses

type RolloverResponse struct {
	Acknowledged bool   `json:"acknowledged"`
	OldIndex     string `json:"old_index"`
	NewIndex     string `json:"new_index"`
	RolledOver   bool   `json:"rolled_over"`
	DryRun       bool   `json:"dry_run"`
}
