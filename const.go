package auction

const (
	// EngineVersion is the current version of the auction core
	EngineVersion = "v1.0.0"

	// SnapshotSchemaVersion is the current version of the book snapshot schema
	// Increment this when the snapshot format changes in a backward-incompatible way
	SnapshotSchemaVersion = 1
)
