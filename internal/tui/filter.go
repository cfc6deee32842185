package tui

import (
	"strings"

	"github.com/cantoplayer/canto/internal/domain"
	"github.com/sahilm/fuzzy"
)

// queueSource implements fuzzy.Source over the queue without copying titles
type queueSource []domain.PlaylistItem

func (q queueSource) String(i int) string {
	return strings.ToLower(q[i].Artist + " " + q[i].Name)
}

func (q queueSource) Len() int {
	return len(q)
}

// filterQueue returns the indices of items matching query, best match first.
// An empty query matches nothing; callers show the whole queue instead.
func filterQueue(items []domain.PlaylistItem, query string) []int {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	matches := fuzzy.FindFrom(strings.ToLower(query), queueSource(items))
	idx := make([]int, len(matches))
	for i, match := range matches {
		idx[i] = match.Index
	}
	return idx
}
