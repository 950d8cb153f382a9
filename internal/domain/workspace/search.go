package workspace

import (
	"strings"

	"github.com/sahilm/fuzzy"
)

// searchSource adapts a workspace to fuzzy.Source. Each session is matched
// against its name plus its tags joined into one haystack string.
type searchSource Workspace

func (s searchSource) String(i int) string {
	sess := s[i]
	return sess.Name + " " + strings.Join(sess.Tags, " ")
}

func (s searchSource) Len() int { return len(s) }

// Search returns the sessions whose name or tags fuzzy-match the query,
// best matches first. An empty query returns the whole workspace.
func (w Workspace) Search(query string) []Session {
	if strings.TrimSpace(query) == "" {
		return w.Clone()
	}
	matches := fuzzy.FindFrom(query, searchSource(w))
	out := make([]Session, 0, len(matches))
	for _, m := range matches {
		out = append(out, w[m.Index].clone())
	}
	return out
}
