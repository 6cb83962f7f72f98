package selection

import (
	"slices"
	"sync"

	"github.com/matst80/slask-browser/pkg/facet"
	"github.com/matst80/slask-browser/pkg/types"
)

// Selection is the set of active FilterIds. A FilterId is present exactly
// when its value was last toggled on and not since toggled off, cleared with
// its group or wiped by Reset. Every mutating operation that actually changes
// membership triggers the notifier once, bulk operations included.
type Selection struct {
	mu       sync.Mutex
	ids      map[types.FilterId]struct{}
	facets   *facet.FacetItemHandler
	notifier *Notifier
}

func NewSelection(facets *facet.FacetItemHandler, notifier *Notifier) *Selection {
	return &Selection{
		ids:      map[types.FilterId]struct{}{},
		facets:   facets,
		notifier: notifier,
	}
}

// Toggle flips membership of "{key}:{value}" and reports whether it is now
// selected.
func (s *Selection) Toggle(key, value string) bool {
	id := types.MakeFilterId(key, value)
	s.mu.Lock()
	_, selected := s.ids[id]
	if selected {
		delete(s.ids, id)
	} else {
		s.ids[id] = struct{}{}
	}
	s.mu.Unlock()
	s.notifier.Trigger()
	return !selected
}

// SelectAllInGroup adds every selectable value of the group: all distinct
// values of a flat group, the leaf values of a hierarchical one. Intermediate
// tree nodes are structural and never selected. Returns the ids added.
func (s *Selection) SelectAllInGroup(key string) []types.FilterId {
	f, ok := s.facets.Get(key)
	if !ok {
		return nil
	}
	return s.add(key, f.SortedValues())
}

// ClearGroup removes every selected id whose facet key matches.
func (s *Selection) ClearGroup(key string) []types.FilterId {
	s.mu.Lock()
	removed := make([]types.FilterId, 0)
	for id := range s.ids {
		if id.Key() == key {
			delete(s.ids, id)
			removed = append(removed, id)
		}
	}
	s.mu.Unlock()
	if len(removed) > 0 {
		s.notifier.Trigger()
	}
	slices.Sort(removed)
	return removed
}

// SelectAllUnder selects the leaf values of the subtree at the ">"-joined
// path. An unknown path or a flat group is a no-op.
func (s *Selection) SelectAllUnder(key, path string) []types.FilterId {
	return s.add(key, s.leavesUnder(key, path))
}

// ClearUnder deselects the leaf values of the subtree at path.
func (s *Selection) ClearUnder(key, path string) []types.FilterId {
	values := s.leavesUnder(key, path)
	s.mu.Lock()
	removed := make([]types.FilterId, 0, len(values))
	for _, value := range values {
		id := types.MakeFilterId(key, value)
		if _, ok := s.ids[id]; ok {
			delete(s.ids, id)
			removed = append(removed, id)
		}
	}
	s.mu.Unlock()
	if len(removed) > 0 {
		s.notifier.Trigger()
	}
	return removed
}

// Reset empties the selection. A pending debounced signal from earlier
// mutations is cancelled first so nothing stale fires after the clear.
func (s *Selection) Reset() {
	s.notifier.Cancel()
	s.mu.Lock()
	changed := len(s.ids) > 0
	s.ids = map[types.FilterId]struct{}{}
	s.mu.Unlock()
	if changed {
		s.notifier.Trigger()
	}
}

func (s *Selection) Has(id types.FilterId) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}

func (s *Selection) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// Ids returns the selected ids in sorted order.
func (s *Selection) Ids() []types.FilterId {
	s.mu.Lock()
	defer s.mu.Unlock()
	ret := make([]types.FilterId, 0, len(s.ids))
	for id := range s.ids {
		ret = append(ret, id)
	}
	slices.Sort(ret)
	return ret
}

// SelectedIn lists the selected values of one group, sorted.
func (s *Selection) SelectedIn(key string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ret := make([]string, 0)
	for id := range s.ids {
		if k, v := id.Split(); k == key {
			ret = append(ret, v)
		}
	}
	slices.Sort(ret)
	return ret
}

// AsFilters groups the selected ids by facet key for the predicate
// evaluator.
func (s *Selection) AsFilters() *types.Filters {
	filters := &types.Filters{}
	for _, id := range s.Ids() {
		key, value := id.Split()
		filters.Add(key, value)
	}
	return filters
}

func (s *Selection) add(key string, values []string) []types.FilterId {
	s.mu.Lock()
	added := make([]types.FilterId, 0, len(values))
	for _, value := range values {
		id := types.MakeFilterId(key, value)
		if _, ok := s.ids[id]; !ok {
			s.ids[id] = struct{}{}
			added = append(added, id)
		}
	}
	s.mu.Unlock()
	if len(added) > 0 {
		s.notifier.Trigger()
	}
	return added
}

func (s *Selection) leavesUnder(key, path string) []string {
	tree, ok := s.facets.GetTreeFacet(key)
	if !ok {
		return nil
	}
	node, ok := tree.FindNodeByPath(path)
	if !ok {
		return nil
	}
	values := make([]string, 0)
	node.WalkLeaves(func(n *facet.Node) {
		values = append(values, n.Value)
	})
	return values
}
