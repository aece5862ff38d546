package cleanup

// PurgeJob is what we push to Redis Streams. Keys and Prefix are
// alternatives: explicit objects to delete, or a whole parent path.
type PurgeJob struct {
	Keys   []string `json:"keys,omitempty"`
	Prefix string   `json:"prefix,omitempty"`
}
