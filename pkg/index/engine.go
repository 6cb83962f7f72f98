package index

import (
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/matst80/slask-browser/pkg/facet"
	"github.com/matst80/slask-browser/pkg/selection"
	"github.com/matst80/slask-browser/pkg/types"
)

var recordsTotal = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "slaskbrowser_records_total",
	Help: "The total number of records in the engine",
})

// Engine ties the facet groups, the selection state and the record
// collection together. Records are immutable between loads; ids are their
// positions in the collection slice, so ascending bitmap iteration preserves
// the original record order.
type Engine struct {
	mu       sync.RWMutex
	records  []types.Record
	facets   *facet.FacetItemHandler
	notifier *selection.Notifier
	sel      *selection.Selection

	countMu sync.Mutex
	counts  map[types.FilterId]int
}

type EngineOptions struct {
	Groups   []facet.GroupDef
	Debounce time.Duration
}

func NewEngine(opts EngineOptions) *Engine {
	if opts.Groups == nil {
		opts.Groups = facet.DefaultGroups()
	}
	facets := facet.NewFacetItemHandler(opts.Groups)
	notifier := selection.NewNotifier(opts.Debounce)
	return &Engine{
		facets:   facets,
		notifier: notifier,
		sel:      selection.NewSelection(facets, notifier),
	}
}

// LoadRecords replaces the collection: facet groups are rebuilt, affected
// counts invalidated as a batch and the selection reset since its ids may no
// longer exist.
func (e *Engine) LoadRecords(records []types.Record) {
	e.mu.Lock()
	e.records = records
	e.mu.Unlock()
	e.facets.BuildFacets(records)
	e.invalidateCounts()
	e.sel.Reset()
	recordsTotal.Set(float64(len(records)))
}

// UpsertRecords merges a batch by record path and rebuilds. New paths append
// at the end, existing paths are replaced in place so surviving records keep
// their relative order.
func (e *Engine) UpsertRecords(batch []types.Record) {
	e.mu.Lock()
	byPath := make(map[string]int, len(e.records))
	for i := range e.records {
		byPath[e.records[i].Path] = i
	}
	for _, record := range batch {
		if i, ok := byPath[record.Path]; ok {
			e.records[i] = record
		} else {
			byPath[record.Path] = len(e.records)
			e.records = append(e.records, record)
		}
	}
	records := e.records
	e.mu.Unlock()
	e.facets.BuildFacets(records)
	e.invalidateCounts()
	e.sel.Reset()
	recordsTotal.Set(float64(len(records)))
}

func (e *Engine) Records() []types.Record {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.records
}

func (e *Engine) Facets() *facet.FacetItemHandler {
	return e.facets
}

func (e *Engine) Selection() *selection.Selection {
	return e.sel
}

// Subscribe registers a "filters changed" handler on the engine's notifier.
func (e *Engine) Subscribe(fn func()) uuid.UUID {
	return e.notifier.Subscribe(fn)
}

func (e *Engine) Unsubscribe(id uuid.UUID) {
	e.notifier.Unsubscribe(id)
}

// Match evaluates a stateless filter set: disjunction of values within a
// group, conjunction across groups. Groups without selections impose no
// constraint; with no constraints at all every record matches.
func (e *Engine) Match(filters *types.Filters) *roaring.Bitmap {
	e.mu.RLock()
	total := len(e.records)
	e.mu.RUnlock()

	all := roaring.New()
	all.AddRange(0, uint64(total))
	if filters.IsEmpty() {
		return all
	}
	result := all
	for _, group := range filters.StringFilter {
		f, ok := e.facets.Get(group.Key)
		if !ok || len(group.Values) == 0 {
			continue
		}
		sets := make([]*roaring.Bitmap, 0, len(group.Values))
		for _, value := range group.Values {
			sets = append(sets, f.MatchValue(value))
		}
		result.And(roaring.FastOr(sets...))
	}
	for _, under := range filters.PathFilter {
		tree, ok := e.facets.GetTreeFacet(under.Key)
		if !ok {
			continue
		}
		result.And(tree.MatchPath(under.Path))
	}
	return result
}

// ApplyFilters returns the records passing both the free text query and the
// current selection, in original collection order.
func (e *Engine) ApplyFilters(query string) []types.Record {
	hits := e.Match(e.sel.AsFilters())
	e.mu.RLock()
	defer e.mu.RUnlock()
	ret := make([]types.Record, 0, hits.GetCardinality())
	it := hits.Iterator()
	for it.HasNext() {
		record := &e.records[it.Next()]
		if record.MatchesQuery(query) {
			ret = append(ret, *record)
		}
	}
	return ret
}

// Count reports how many records the single facet value would match in
// isolation, independent of the current selection. Unknown ids count zero.
// The cache is invalidated whenever the collection changes and recomputed in
// one batch on the first request after that.
func (e *Engine) Count(facetKey, facetValue string) int {
	e.countMu.Lock()
	defer e.countMu.Unlock()
	if e.counts == nil {
		e.counts = e.computeCounts()
	}
	return e.counts[types.MakeFilterId(facetKey, facetValue)]
}

func (e *Engine) invalidateCounts() {
	e.countMu.Lock()
	e.counts = nil
	e.countMu.Unlock()
}

func (e *Engine) computeCounts() map[types.FilterId]int {
	counts := make(map[types.FilterId]int)
	for _, f := range e.facets.Groups() {
		key := f.GetBaseField().Key
		for value, count := range f.CountAll() {
			counts[types.MakeFilterId(key, value)] = count
		}
	}
	return counts
}
