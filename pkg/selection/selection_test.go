package selection

import (
	"slices"
	"testing"
	"time"

	"github.com/matst80/slask-browser/pkg/facet"
	"github.com/matst80/slask-browser/pkg/types"
)

func testSelection(t *testing.T) *Selection {
	t.Helper()
	h := facet.NewFacetItemHandler(facet.DefaultGroups())
	h.BuildFacets([]types.Record{
		{Path: "ep1", Scenes: []string{"kitchen"}, Robots: []string{"arm1"}, Objects: [][]string{{"a", "b"}}},
		{Path: "ep2", Scenes: []string{"garage"}, Robots: []string{"arm2"}, Objects: [][]string{{"a", "c", "d"}}},
	})
	return NewSelection(h, NewNotifier(time.Millisecond))
}

func TestToggleIdempotence(t *testing.T) {
	s := testSelection(t)

	if !s.Toggle("scene", "kitchen") {
		t.Error("first toggle must select")
	}
	if !s.Has(types.MakeFilterId("scene", "kitchen")) {
		t.Error("id missing after toggle on")
	}
	if s.Toggle("scene", "kitchen") {
		t.Error("second toggle must deselect")
	}
	if s.Len() != 0 {
		t.Errorf("expected empty selection, got %d ids", s.Len())
	}
}

func TestSelectAllInGroupFlat(t *testing.T) {
	s := testSelection(t)

	added := s.SelectAllInGroup("scene")
	if len(added) != 2 {
		t.Fatalf("expected 2 ids added, got %v", added)
	}
	if got := s.SelectedIn("scene"); !slices.Equal(got, []string{"garage", "kitchen"}) {
		t.Errorf("expected both scenes selected, got %v", got)
	}
	// already selected values are not re-added
	if again := s.SelectAllInGroup("scene"); len(again) != 0 {
		t.Errorf("expected no new ids, got %v", again)
	}
}

func TestSelectAllInGroupTreeTouchesOnlyLeaves(t *testing.T) {
	s := testSelection(t)

	s.SelectAllInGroup("object")
	got := s.SelectedIn("object")
	if !slices.Equal(got, []string{"b", "d"}) {
		t.Errorf("expected leaf values [b d], got %v", got)
	}
	if s.Has(types.MakeFilterId("object", "a")) || s.Has(types.MakeFilterId("object", "c")) {
		t.Error("intermediate nodes must never be selected by bulk select")
	}
}

func TestSelectAllUnder(t *testing.T) {
	s := testSelection(t)

	added := s.SelectAllUnder("object", "a")
	values := make([]string, 0, len(added))
	for _, id := range added {
		values = append(values, id.Value())
	}
	slices.Sort(values)
	if !slices.Equal(values, []string{"b", "d"}) {
		t.Errorf("expected leaves [b d] under a, got %v", values)
	}
}

func TestSelectAllUnderUnknownPathIsNoop(t *testing.T) {
	s := testSelection(t)

	if added := s.SelectAllUnder("object", "a>missing"); len(added) != 0 {
		t.Errorf("unknown path must be a no-op, got %v", added)
	}
	if added := s.SelectAllUnder("scene", "a"); len(added) != 0 {
		t.Errorf("flat group must be a no-op for under-select, got %v", added)
	}
	if s.Len() != 0 {
		t.Errorf("expected empty selection, got %d", s.Len())
	}
}

func TestClearUnder(t *testing.T) {
	s := testSelection(t)
	s.SelectAllInGroup("object")
	s.Toggle("scene", "kitchen")

	removed := s.ClearUnder("object", "a>c")
	if len(removed) != 1 || removed[0] != types.MakeFilterId("object", "d") {
		t.Errorf("expected only d cleared, got %v", removed)
	}
	if !s.Has(types.MakeFilterId("object", "b")) {
		t.Error("b is outside the cleared subtree, must stay")
	}
	if !s.Has(types.MakeFilterId("scene", "kitchen")) {
		t.Error("other groups must not be touched")
	}
}

func TestClearGroup(t *testing.T) {
	s := testSelection(t)
	s.SelectAllInGroup("object")
	s.Toggle("scene", "kitchen")

	removed := s.ClearGroup("object")
	if len(removed) != 2 {
		t.Errorf("expected 2 ids removed, got %v", removed)
	}
	if s.Len() != 1 {
		t.Errorf("scene selection must survive, got %d ids", s.Len())
	}
	if cleared := s.ClearGroup("object"); len(cleared) != 0 {
		t.Errorf("clearing an empty group again must remove nothing, got %v", cleared)
	}
}

func TestReset(t *testing.T) {
	s := testSelection(t)
	s.SelectAllInGroup("scene")
	s.Toggle("robot", "arm1")

	s.Reset()
	if s.Len() != 0 {
		t.Errorf("expected empty selection after reset, got %d", s.Len())
	}
}

func TestAsFiltersGroupsByKey(t *testing.T) {
	s := testSelection(t)
	s.Toggle("scene", "kitchen")
	s.Toggle("scene", "garage")
	s.Toggle("robot", "arm1")

	filters := s.AsFilters()
	if len(filters.StringFilter) != 2 {
		t.Fatalf("expected 2 filter groups, got %v", filters.StringFilter)
	}
	for _, group := range filters.StringFilter {
		switch group.Key {
		case "scene":
			if len(group.Values) != 2 {
				t.Errorf("scene: expected 2 values, got %v", group.Values)
			}
		case "robot":
			if !slices.Equal(group.Values, []string{"arm1"}) {
				t.Errorf("robot: expected [arm1], got %v", group.Values)
			}
		default:
			t.Errorf("unexpected group %s", group.Key)
		}
	}
}
