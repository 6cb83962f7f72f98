package search

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/matst80/slask-browser/pkg/facet"
	"github.com/matst80/slask-browser/pkg/selection"
	"github.com/matst80/slask-browser/pkg/types"
)

var searchQueries = promauto.NewCounter(prometheus.CounterOpts{
	Name: "slaskbrowser_search_queries_total",
	Help: "The number of facet label searches performed",
})

// State of the navigator. Idle means no active query, Searching an active
// query with the match list built, Navigating a designated current match.
type State int

const (
	Idle State = iota
	Searching
	Navigating
)

type Direction int

const (
	Next Direction = 1
	Prev Direction = -1
)

// Match is one hit of the label search, in UI traversal order: groups in
// declaration order, tree siblings lexicographic, depth first. Node is nil
// for flat values. Matches are rebuilt from scratch on every query change.
type Match struct {
	Label    string
	Id       types.FilterId
	GroupKey string
	Path     string
	Node     *facet.Node
}

// Navigator is the incremental search over facet option labels. It owns the
// hidden/expanded bookkeeping the find bar renders from and only ever mutates
// the selection through Commit.
type Navigator struct {
	mu           sync.Mutex
	facets       *facet.FacetItemHandler
	sel          *selection.Selection
	query        string
	matches      []Match
	current      int
	hiddenGroups map[string]struct{}
	hiddenNodes  map[string]struct{}
	expanded     map[string]struct{}
}

func NewNavigator(facets *facet.FacetItemHandler, sel *selection.Selection) *Navigator {
	n := &Navigator{facets: facets, sel: sel}
	n.clearLocked()
	return n
}

func nodeKey(groupKey, path string) string {
	return groupKey + ":" + path
}

// Search rebuilds the match list for the query. An empty query always goes
// back to Idle; a query matching nothing stays in Searching with an empty
// list and every group hidden.
func (n *Navigator) Search(query string) []Match {
	n.mu.Lock()
	defer n.mu.Unlock()
	if query == "" {
		n.clearLocked()
		return nil
	}
	searchQueries.Inc()
	n.query = query
	n.matches = n.matches[:0]
	n.hiddenGroups = map[string]struct{}{}
	n.hiddenNodes = map[string]struct{}{}
	n.expanded = map[string]struct{}{}

	needle := strings.ToLower(query)
	for _, f := range n.facets.Groups() {
		key := f.GetBaseField().Key
		before := len(n.matches)
		if tree, ok := f.(*facet.TreeField); ok {
			for _, root := range tree.SortedRoots() {
				n.scanNode(needle, key, "", root)
			}
		} else {
			for _, value := range f.SortedValues() {
				if strings.Contains(strings.ToLower(value), needle) {
					n.matches = append(n.matches, Match{
						Label:    value,
						Id:       types.MakeFilterId(key, value),
						GroupKey: key,
					})
				}
			}
		}
		if len(n.matches) == before {
			n.hiddenGroups[key] = struct{}{}
		}
	}
	if len(n.matches) > 0 {
		n.current = 0
		n.revealLocked(n.matches[0])
	} else {
		n.current = -1
	}
	return n.matchesLocked()
}

// scanNode walks the subtree depth first and reports whether it contains any
// hit. Hitless subtrees are hidden; nodes with hits below them are
// force-expanded regardless of prior collapse state.
func (n *Navigator) scanNode(needle, groupKey, parentPath string, node *facet.Node) bool {
	path := node.Value
	if parentPath != "" {
		path = parentPath + facet.PathSeparator + node.Value
	}
	hit := strings.Contains(strings.ToLower(node.Value), needle)
	if hit {
		n.matches = append(n.matches, Match{
			Label:    node.Value,
			Id:       types.MakeFilterId(groupKey, node.Value),
			GroupKey: groupKey,
			Path:     path,
			Node:     node,
		})
	}
	hitBelow := false
	for _, child := range node.SortedChildren() {
		if n.scanNode(needle, groupKey, path, child) {
			hitBelow = true
		}
	}
	if hitBelow {
		n.expanded[nodeKey(groupKey, path)] = struct{}{}
	}
	if !hit && !hitBelow {
		n.hiddenNodes[nodeKey(groupKey, path)] = struct{}{}
		return false
	}
	return true
}

// Navigate moves the current match by one, wrapping at both ends. A no-op
// while the match list is empty. The newly current match is revealed by
// expanding its collapsed ancestors.
func (n *Navigator) Navigate(dir Direction) (Match, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.matches) == 0 {
		return Match{}, false
	}
	n.current = (n.current + int(dir) + len(n.matches)) % len(n.matches)
	match := n.matches[n.current]
	n.revealLocked(match)
	return match, true
}

// Commit toggles the current match's FilterId through the selection, the
// navigator's only mutation path into it. Returns whether the id is now
// selected.
func (n *Navigator) Commit() (bool, bool) {
	n.mu.Lock()
	var match Match
	ok := n.current >= 0 && n.current < len(n.matches)
	if ok {
		match = n.matches[n.current]
	}
	n.mu.Unlock()
	if !ok {
		return false, false
	}
	key, value := match.Id.Split()
	return n.sel.Toggle(key, value), true
}

// Clear discards the match list, unhides everything and returns to Idle.
func (n *Navigator) Clear() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.clearLocked()
}

func (n *Navigator) clearLocked() {
	n.query = ""
	n.matches = nil
	n.current = -1
	n.hiddenGroups = map[string]struct{}{}
	n.hiddenNodes = map[string]struct{}{}
	n.expanded = map[string]struct{}{}
}

func (n *Navigator) revealLocked(match Match) {
	if match.Path == "" {
		return
	}
	segments := strings.Split(match.Path, facet.PathSeparator)
	for i := 1; i < len(segments); i++ {
		ancestor := strings.Join(segments[:i], facet.PathSeparator)
		n.expanded[nodeKey(match.GroupKey, ancestor)] = struct{}{}
	}
}

func (n *Navigator) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.query == "" {
		return Idle
	}
	if n.current >= 0 {
		return Navigating
	}
	return Searching
}

func (n *Navigator) Query() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.query
}

func (n *Navigator) CurrentIndex() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// Current returns the designated match while navigating.
func (n *Navigator) Current() (Match, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current < 0 || n.current >= len(n.matches) {
		return Match{}, false
	}
	return n.matches[n.current], true
}

func (n *Navigator) Matches() []Match {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.matchesLocked()
}

func (n *Navigator) matchesLocked() []Match {
	ret := make([]Match, len(n.matches))
	copy(ret, n.matches)
	return ret
}

// IsGroupHidden reports whether a whole group has zero hits under the active
// query. Always false while Idle.
func (n *Navigator) IsGroupHidden(groupKey string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.hiddenGroups[groupKey]
	return ok
}

// IsNodeHidden reports whether a tree subtree contains no hit anywhere.
func (n *Navigator) IsNodeHidden(groupKey, path string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.hiddenNodes[nodeKey(groupKey, path)]
	return ok
}

// IsExpanded reports whether a tree node was force-expanded to reveal a hit
// in its subtree or by match navigation.
func (n *Navigator) IsExpanded(groupKey, path string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.expanded[nodeKey(groupKey, path)]
	return ok
}
