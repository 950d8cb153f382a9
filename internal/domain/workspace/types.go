// Package workspace holds the session/tab data model and the mutation
// operations over it. All operations are pure transformations: they return
// a new Workspace and never modify the receiver, so a reader can never
// observe a partially applied mutation.
package workspace

// Tab is a snapshot of one browser tab. URL is the tab's semantic identity
// for deduplication; ID is a synthetic, collection-local identifier assigned
// when the tab enters a session.
type Tab struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	FavIconURL string `json:"favIconUrl,omitempty"`
}

// Session is a named, ordered group of tabs. Within one session no two tabs
// share a URL. CreatedAt is unix milliseconds, matching the snapshot format.
type Session struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Tabs      []Tab    `json:"tabs"`
	CreatedAt int64    `json:"createdAt"`
	Tags      []string `json:"tags"`
	X         *float64 `json:"x,omitempty"`
	Y         *float64 `json:"y,omitempty"`
}

// Workspace is the ordered collection of all sessions, the unit of
// persistence and of export/import. Session IDs are unique within it.
type Workspace []Session

// Session returns the session with the given id, if present.
func (w Workspace) Session(id string) (Session, bool) {
	for _, s := range w {
		if s.ID == id {
			return s, true
		}
	}
	return Session{}, false
}

// TabCount returns the total number of tabs across all sessions.
func (w Workspace) TabCount() int {
	n := 0
	for _, s := range w {
		n += len(s.Tabs)
	}
	return n
}

// Clone returns a deep copy of the workspace.
func (w Workspace) Clone() Workspace {
	out := make(Workspace, len(w))
	for i, s := range w {
		out[i] = s.clone()
	}
	return out
}

func (s Session) clone() Session {
	c := s
	// Keep slices non-nil so the serialized shape is stable ([] rather than null).
	c.Tabs = append([]Tab{}, s.Tabs...)
	c.Tags = append([]string{}, s.Tags...)
	if s.X != nil {
		x := *s.X
		c.X = &x
	}
	if s.Y != nil {
		y := *s.Y
		c.Y = &y
	}
	return c
}

func (s Session) hasURL(url string) bool {
	for _, t := range s.Tabs {
		if t.URL == url {
			return true
		}
	}
	return false
}

func (w Workspace) indexOf(id string) int {
	for i, s := range w {
		if s.ID == id {
			return i
		}
	}
	return -1
}
