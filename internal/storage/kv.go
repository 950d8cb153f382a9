// Package storage provides the durable key-value store backing the
// workspace snapshot and the bridge identity, plus export/import of the
// snapshot as a portable JSON artifact.
package storage

// Durable keys. The whole workspace lives under a single key and is always
// rewritten as one full snapshot.
const (
	WorkspaceKey = "tabflow_sessions"
	BridgeIDKey  = "tabflow_bridge_id"
)

// KV is a minimal durable key-value store.
type KV interface {
	// Get returns the value for key, reporting whether it was present.
	Get(key string) ([]byte, bool, error)
	// Put overwrites the value for key.
	Put(key string, value []byte) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error
	Close() error
}
