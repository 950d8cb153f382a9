package workspace

import (
	"time"

	"github.com/tabflow/backend/internal/shared/id"
)

// DefaultSessionName is used when a session is created without a name.
const DefaultSessionName = "New Project"

// CreateSession appends a new empty session with a fresh id and returns the
// new workspace together with the created session.
func (w Workspace) CreateSession(name string, tags []string) (Workspace, Session) {
	if name == "" {
		name = DefaultSessionName
	}
	s := Session{
		ID:        id.NewSessionID().String(),
		Name:      name,
		Tabs:      []Tab{},
		CreatedAt: time.Now().UnixMilli(),
		Tags:      append([]string{}, tags...),
	}
	out := w.Clone()
	return append(out, s), s
}

// CreateSessionFromTab creates a new session seeded with a single tab. Used
// when a live inbox tab is dropped onto open canvas space rather than onto an
// existing session. The tab gets a fresh synthetic id.
func (w Workspace) CreateSessionFromTab(tab Tab, tags []string) (Workspace, Session) {
	out, s := w.CreateSession("", tags)
	tab.ID = id.NewTabID().String()
	s.Tabs = append(s.Tabs, tab)
	out[len(out)-1] = s
	return out, s
}

// Rename replaces the session's display name. No-op if the id is absent.
func (w Workspace) Rename(sessionID, name string) Workspace {
	out := w.Clone()
	if i := out.indexOf(sessionID); i >= 0 {
		out[i].Name = name
	}
	return out
}

// Delete removes a session. No-op if the id is absent. Irreversible.
func (w Workspace) Delete(sessionID string) Workspace {
	out := make(Workspace, 0, len(w))
	for _, s := range w {
		if s.ID == sessionID {
			continue
		}
		out = append(out, s.clone())
	}
	return out
}

// AddTab appends a tab to the session, assigning it a fresh synthetic id.
// If the target session already holds a tab with the same URL the operation
// is a no-op: the first write wins and the existing entry is kept unchanged.
// No-op if the session id is absent.
func (w Workspace) AddTab(sessionID string, tab Tab) Workspace {
	out := w.Clone()
	i := out.indexOf(sessionID)
	if i < 0 || out[i].hasURL(tab.URL) {
		return out
	}
	tab.ID = id.NewTabID().String()
	out[i].Tabs = append(out[i].Tabs, tab)
	return out
}

// RemoveTab removes a tab by id. No-op if either id is absent.
func (w Workspace) RemoveTab(sessionID, tabID string) Workspace {
	out := w.Clone()
	i := out.indexOf(sessionID)
	if i < 0 {
		return out
	}
	tabs := make([]Tab, 0, len(out[i].Tabs))
	for _, t := range out[i].Tabs {
		if t.ID == tabID {
			continue
		}
		tabs = append(tabs, t)
	}
	out[i].Tabs = tabs
	return out
}

// SetTags replaces the session's tag list. No-op if the id is absent.
func (w Workspace) SetTags(sessionID string, tags []string) Workspace {
	out := w.Clone()
	if i := out.indexOf(sessionID); i >= 0 {
		out[i].Tags = append([]string{}, tags...)
	}
	return out
}

// SetPosition moves the session's card on the canvas. No-op if the id is
// absent. Positions carry no invariant.
func (w Workspace) SetPosition(sessionID string, x, y float64) Workspace {
	out := w.Clone()
	if i := out.indexOf(sessionID); i >= 0 {
		out[i].X = &x
		out[i].Y = &y
	}
	return out
}
