// Package inbox holds the transient list of live tabs most recently fetched
// from the browser extension. The inbox is never persisted and its tabs keep
// their extension-native ids; synthetic ids are assigned only when a tab is
// merged into a session.
package inbox

import (
	"sync"

	"github.com/tabflow/backend/internal/domain/workspace"
)

// Inbox is the holding area between the bridge and the workspace. A fetch
// replaces the whole contents; entries are consumed one at a time as the
// user drags them into sessions.
type Inbox struct {
	mu   sync.RWMutex
	seq  uint64
	tabs []workspace.Tab
}

// New creates an empty inbox.
func New() *Inbox {
	return &Inbox{}
}

// Replace substitutes the full contents with the result of fetch seq.
// A reply carrying a sequence number older than the newest one applied is
// discarded, so a slow early reply can never overwrite a later fetch.
// Returns whether the replacement was applied.
func (i *Inbox) Replace(seq uint64, tabs []workspace.Tab) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if seq < i.seq {
		return false
	}
	i.seq = seq
	i.tabs = append([]workspace.Tab{}, tabs...)
	return true
}

// Consume removes one entry by its extension-native id, called after a
// successful drag-drop merge. Absent ids are a no-op.
func (i *Inbox) Consume(tabID string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	for n, t := range i.tabs {
		if t.ID == tabID {
			i.tabs = append(i.tabs[:n:n], i.tabs[n+1:]...)
			return true
		}
	}
	return false
}

// List returns a copy of the current contents in fetch order.
func (i *Inbox) List() []workspace.Tab {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return append([]workspace.Tab{}, i.tabs...)
}

// Len returns the number of held tabs.
func (i *Inbox) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.tabs)
}
