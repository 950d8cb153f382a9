package workspace

import (
	"fmt"
	"sync"
)

// Store is the durable snapshot store the repository writes through to.
// Implemented by storage.WorkspaceStore; tests inject an in-memory stand-in.
type Store interface {
	Load() (Workspace, error)
	Save(Workspace) error
}

// Observer receives workspace gauge updates after every mutation.
type Observer interface {
	RecordWorkspace(sessions, tabs int)
	RecordSave()
}

// Repository is the in-memory authoritative workspace plus its write-through
// persistence. Every mutation produces a new snapshot and immediately saves
// the full workspace; there is no dirty tracking and no partial update.
// Workspaces are small (tens of sessions), so the write amplification is an
// acceptable trade for crash safety.
type Repository struct {
	mu       sync.RWMutex
	store    Store
	current  Workspace
	observer Observer
}

// NewRepository loads the durable snapshot and returns a repository over it.
// An absent or malformed snapshot loads as an empty workspace.
func NewRepository(store Store) (*Repository, error) {
	w, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load workspace: %w", err)
	}
	return &Repository{store: store, current: w}, nil
}

// WithObserver attaches a metrics observer.
func (r *Repository) WithObserver(o Observer) *Repository {
	r.observer = o
	return r
}

// Snapshot returns a copy of the current workspace.
func (r *Repository) Snapshot() Workspace {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current.Clone()
}

// Get returns one session by id.
func (r *Repository) Get(sessionID string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current.Session(sessionID)
}

// CreateSession appends a new empty session and persists the workspace.
func (r *Repository) CreateSession(name string, tags []string) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	next, s := r.current.CreateSession(name, tags)
	if err := r.commit(next); err != nil {
		return Session{}, err
	}
	return s, nil
}

// CreateSessionFromTab creates a session seeded with one tab and persists.
func (r *Repository) CreateSessionFromTab(tab Tab, tags []string) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	next, s := r.current.CreateSessionFromTab(tab, tags)
	if err := r.commit(next); err != nil {
		return Session{}, err
	}
	return s, nil
}

// Rename replaces a session's name. Absent ids are a no-op, not an error.
func (r *Repository) Rename(sessionID, name string) error {
	return r.apply(func(w Workspace) Workspace { return w.Rename(sessionID, name) })
}

// Delete removes a session. Absent ids are a no-op.
func (r *Repository) Delete(sessionID string) error {
	return r.apply(func(w Workspace) Workspace { return w.Delete(sessionID) })
}

// AddTab merges a tab into a session, deduplicating by URL.
func (r *Repository) AddTab(sessionID string, tab Tab) error {
	return r.apply(func(w Workspace) Workspace { return w.AddTab(sessionID, tab) })
}

// RemoveTab removes a tab by id. Absent ids are a no-op.
func (r *Repository) RemoveTab(sessionID, tabID string) error {
	return r.apply(func(w Workspace) Workspace { return w.RemoveTab(sessionID, tabID) })
}

// SetTags replaces a session's tags. Absent ids are a no-op.
func (r *Repository) SetTags(sessionID string, tags []string) error {
	return r.apply(func(w Workspace) Workspace { return w.SetTags(sessionID, tags) })
}

// SetPosition moves a session's canvas card. Absent ids are a no-op.
func (r *Repository) SetPosition(sessionID string, x, y float64) error {
	return r.apply(func(w Workspace) Workspace { return w.SetPosition(sessionID, x, y) })
}

// Search returns fuzzy name/tag matches over the current workspace.
func (r *Repository) Search(query string) []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current.Search(query)
}

// Stats summarizes the current workspace.
func (r *Repository) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current.ComputeStats()
}

// Replace swaps the in-memory workspace after a successful import. The
// durable key has already been rewritten by the import, so this only updates
// memory and the gauges.
func (r *Repository) Replace(w Workspace) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = w.Clone()
	if r.observer != nil {
		r.observer.RecordWorkspace(len(r.current), r.current.TabCount())
	}
}

func (r *Repository) apply(op func(Workspace) Workspace) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.commit(op(r.current))
}

// commit persists the next snapshot and, only if the save succeeds, makes it
// current. Must be called with r.mu held.
func (r *Repository) commit(next Workspace) error {
	if err := r.store.Save(next); err != nil {
		return fmt.Errorf("save workspace: %w", err)
	}
	r.current = next
	if r.observer != nil {
		r.observer.RecordWorkspace(len(next), next.TabCount())
		r.observer.RecordSave()
	}
	return nil
}
