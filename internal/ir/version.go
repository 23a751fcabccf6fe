package ir

// Version constants for the link schema and engine.
const (
	// SchemaVersion is the link record schema version.
	SchemaVersion = "1"

	// EngineVersion is the linkcast engine version.
	EngineVersion = "0.1.0"
)
