package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tabflow/backend/internal/domain/workspace"
)

// ErrBadSnapshot is returned by ImportSnapshot when the payload is not a
// JSON array of sessions. The existing durable snapshot is left untouched.
var ErrBadSnapshot = errors.New("snapshot is not a JSON array of sessions")

// WorkspaceStore persists the workspace as one JSON snapshot under a fixed
// key, and the bridge identity under its own key. Saves are full overwrites.
type WorkspaceStore struct {
	kv     KV
	logger *zap.Logger
}

// NewWorkspaceStore creates a store over the given KV.
func NewWorkspaceStore(kv KV, logger *zap.Logger) *WorkspaceStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkspaceStore{kv: kv, logger: logger}
}

// Load reads the durable snapshot. An absent key loads as an empty
// workspace. A malformed value also loads as empty: absence and corruption
// are indistinguishable to the caller, and failing soft keeps the UI usable.
func (s *WorkspaceStore) Load() (workspace.Workspace, error) {
	data, ok, err := s.kv.Get(WorkspaceKey)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	if !ok {
		return workspace.Workspace{}, nil
	}

	var w workspace.Workspace
	if err := json.Unmarshal(data, &w); err != nil {
		s.logger.Warn("stored workspace snapshot is malformed, starting empty",
			zap.Int("bytes", len(data)),
			zap.Error(err),
		)
		return workspace.Workspace{}, nil
	}
	return normalize(w), nil
}

// Save serializes the full workspace and overwrites the durable key.
func (s *WorkspaceStore) Save(w workspace.Workspace) error {
	data, err := json.Marshal(normalize(w))
	if err != nil {
		return fmt.Errorf("marshal workspace: %w", err)
	}
	if err := s.kv.Put(WorkspaceKey, data); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// ExportSnapshot returns the current durable JSON verbatim (or "[]" if
// nothing was ever saved) together with the dated artifact filename.
func (s *WorkspaceStore) ExportSnapshot() ([]byte, string, error) {
	data, ok, err := s.kv.Get(WorkspaceKey)
	if err != nil {
		return nil, "", fmt.Errorf("read snapshot: %w", err)
	}
	if !ok {
		data = []byte("[]")
	}
	name := fmt.Sprintf("tabflow_export_%s.json", time.Now().UTC().Format("2006-01-02"))
	return data, name, nil
}

// ImportSnapshot parses text as a JSON array of sessions. On success it
// replaces the durable snapshot and returns the imported workspace, with
// session and tab ids preserved verbatim. On failure the existing snapshot
// is untouched and ErrBadSnapshot is returned; user-facing messaging is the
// caller's concern.
func (s *WorkspaceStore) ImportSnapshot(text []byte) (workspace.Workspace, error) {
	var w workspace.Workspace
	if err := json.Unmarshal(text, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSnapshot, err)
	}
	if w == nil {
		// "null" unmarshals cleanly but is not an array.
		return nil, ErrBadSnapshot
	}
	w = normalize(w)
	if err := s.Save(w); err != nil {
		return nil, err
	}
	return w, nil
}

// LoadBridgeID returns the persisted bridge identity, or "" if none is set.
func (s *WorkspaceStore) LoadBridgeID() (string, error) {
	data, ok, err := s.kv.Get(BridgeIDKey)
	if err != nil {
		return "", fmt.Errorf("read bridge id: %w", err)
	}
	if !ok {
		return "", nil
	}
	return string(data), nil
}

// SaveBridgeID persists the bridge identity for reuse across restarts.
func (s *WorkspaceStore) SaveBridgeID(bridgeID string) error {
	if err := s.kv.Put(BridgeIDKey, []byte(bridgeID)); err != nil {
		return fmt.Errorf("write bridge id: %w", err)
	}
	return nil
}

// normalize keeps tab and tag slices non-nil so snapshots serialize with []
// rather than null.
func normalize(w workspace.Workspace) workspace.Workspace {
	for i := range w {
		if w[i].Tabs == nil {
			w[i].Tabs = []workspace.Tab{}
		}
		if w[i].Tags == nil {
			w[i].Tags = []string{}
		}
	}
	return w
}
