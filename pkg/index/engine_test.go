package index

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/matst80/slask-browser/pkg/types"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	e := NewEngine(EngineOptions{Debounce: time.Millisecond})
	e.LoadRecords([]types.Record{
		{
			Path:        "ep1",
			Title:       "Kitchen pick",
			Scenes:      []string{"kitchen"},
			Robots:      []string{"arm1"},
			EndEffector: "gripper",
			Actions:     []string{"pick"},
			Objects:     [][]string{{"tools", "drill"}},
		},
		{
			Path:    "ep2",
			Title:   "Kitchen place",
			Scenes:  []string{"kitchen"},
			Robots:  []string{"arm2"},
			Actions: []string{"place"},
			Objects: [][]string{{"kitchen", "drawer", "handle"}},
		},
		{
			Path:   "ep3",
			Title:  "Garage sort",
			Scenes: []string{"garage"},
			Robots: []string{"arm1"},
			Objects: [][]string{
				{"tools", "hammer"},
			},
		},
	})
	return e
}

func paths(records []types.Record) []string {
	ret := make([]string, len(records))
	for i, r := range records {
		ret[i] = r.Path
	}
	return ret
}

func TestGroupDisjunctionInterGroupConjunction(t *testing.T) {
	e := testEngine(t)
	sel := e.Selection()

	sel.Toggle("scene", "kitchen")
	if got := paths(e.ApplyFilters("")); len(got) != 2 || got[0] != "ep1" || got[1] != "ep2" {
		t.Errorf("scene:kitchen alone: expected [ep1 ep2], got %v", got)
	}

	sel.Toggle("robot", "arm1")
	if got := paths(e.ApplyFilters("")); len(got) != 1 || got[0] != "ep1" {
		t.Errorf("scene:kitchen AND robot:arm1: expected [ep1], got %v", got)
	}

	// second value in the same group widens the result (OR within group)
	sel.Toggle("robot", "arm2")
	if got := paths(e.ApplyFilters("")); len(got) != 2 {
		t.Errorf("robot arm1 OR arm2: expected 2 records, got %v", got)
	}
}

func TestHierarchyAncestorMatching(t *testing.T) {
	e := testEngine(t)
	sel := e.Selection()

	sel.Toggle("object", "tools")
	if got := paths(e.ApplyFilters("")); len(got) != 2 || got[0] != "ep1" || got[1] != "ep3" {
		t.Errorf("ancestor selection: expected [ep1 ep3], got %v", got)
	}

	sel.Reset()
	sel.Toggle("object", "drill")
	if got := paths(e.ApplyFilters("")); len(got) != 1 || got[0] != "ep1" {
		t.Errorf("leaf selection: expected [ep1], got %v", got)
	}
}

func TestApplyFiltersTextQuery(t *testing.T) {
	e := testEngine(t)

	if got := paths(e.ApplyFilters("KITCHEN")); len(got) != 2 {
		t.Errorf("query is case-insensitive substring, expected 2 hits, got %v", got)
	}
	if got := e.ApplyFilters("no such record"); len(got) != 0 {
		t.Errorf("expected no hits, got %v", paths(got))
	}

	e.Selection().Toggle("robot", "arm1")
	if got := paths(e.ApplyFilters("sort")); len(got) != 1 || got[0] != "ep3" {
		t.Errorf("query AND facets: expected [ep3], got %v", got)
	}
}

func TestApplyFiltersPreservesOrder(t *testing.T) {
	e := testEngine(t)
	e.Selection().Toggle("robot", "arm1")

	got := paths(e.ApplyFilters(""))
	if len(got) != 2 || got[0] != "ep1" || got[1] != "ep3" {
		t.Errorf("expected original collection order [ep1 ep3], got %v", got)
	}
}

func TestResetRoundTrip(t *testing.T) {
	e := testEngine(t)
	sel := e.Selection()
	sel.Toggle("scene", "garage")
	sel.Toggle("object", "drill")

	sel.Reset()
	got := paths(e.ApplyFilters(""))
	if len(got) != 3 || got[0] != "ep1" || got[1] != "ep2" || got[2] != "ep3" {
		t.Errorf("reset then empty query must return everything in order, got %v", got)
	}
}

func TestCountIndependentOfSelection(t *testing.T) {
	e := testEngine(t)

	before := e.Count("scene", "kitchen")
	if before != 2 {
		t.Fatalf("count scene:kitchen: expected 2, got %d", before)
	}
	e.Selection().SelectAllInGroup("robot")
	if after := e.Count("scene", "kitchen"); after != before {
		t.Errorf("count changed under unrelated selection: %d != %d", after, before)
	}
}

func TestCountAnyDepthAndUnknown(t *testing.T) {
	e := testEngine(t)

	if got := e.Count("object", "tools"); got != 2 {
		t.Errorf("count object:tools: expected 2 (any depth), got %d", got)
	}
	if got := e.Count("object", "handle"); got != 1 {
		t.Errorf("count object:handle: expected 1, got %d", got)
	}
	if got := e.Count("object", "missing"); got != 0 {
		t.Errorf("unknown value must count 0, got %d", got)
	}
	if got := e.Count("nope", "x"); got != 0 {
		t.Errorf("unknown group must count 0, got %d", got)
	}
}

func TestCountInvalidatedOnReload(t *testing.T) {
	e := testEngine(t)
	if got := e.Count("scene", "kitchen"); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
	e.LoadRecords([]types.Record{{Path: "only", Scenes: []string{"kitchen"}}})
	if got := e.Count("scene", "kitchen"); got != 1 {
		t.Errorf("expected recomputed count 1 after reload, got %d", got)
	}
}

func TestMatchWithPathFilter(t *testing.T) {
	e := testEngine(t)

	filters := &types.Filters{PathFilter: []types.PathFilter{{Key: "object", Path: []string{"tools"}}}}
	hits := e.Match(filters)
	if got := hits.ToArray(); len(got) != 2 || got[0] != 0 || got[1] != 2 {
		t.Errorf("under tools: expected records 0 and 2, got %v", got)
	}

	filters = &types.Filters{PathFilter: []types.PathFilter{{Key: "object", Path: []string{"tools", "missing"}}}}
	if hits := e.Match(filters); !hits.IsEmpty() {
		t.Errorf("unknown subtree must match nothing, got %v", hits.ToArray())
	}
}

func TestUpsertRecords(t *testing.T) {
	e := testEngine(t)

	e.UpsertRecords([]types.Record{
		{Path: "ep2", Title: "Replaced", Scenes: []string{"lab"}},
		{Path: "ep4", Title: "New one", Scenes: []string{"lab"}},
	})
	got := paths(e.ApplyFilters(""))
	if len(got) != 4 || got[1] != "ep2" || got[3] != "ep4" {
		t.Errorf("expected ep2 replaced in place and ep4 appended, got %v", got)
	}
	if count := e.Count("scene", "lab"); count != 2 {
		t.Errorf("expected 2 lab records after upsert, got %d", count)
	}
}

func TestDebounceCoalescesToggleBurst(t *testing.T) {
	e := NewEngine(EngineOptions{Debounce: 20 * time.Millisecond})
	e.LoadRecords([]types.Record{{Path: "ep1", Scenes: []string{"kitchen"}}})

	var fired atomic.Int32
	// subscribe after load so the load itself is not counted
	id := e.Subscribe(func() { fired.Add(1) })
	defer e.Unsubscribe(id)

	sel := e.Selection()
	for range 5 {
		sel.Toggle("scene", "kitchen")
	}
	time.Sleep(100 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Errorf("5 rapid toggles must produce one signal, got %d", got)
	}
}
