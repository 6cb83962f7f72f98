package facet

import (
	"sync"

	"github.com/matst80/slask-browser/pkg/types"
)

// GroupDef declares one facet group and how to read its values off a record.
// Exactly one of Flat or Paths is set, matching Tree.
type GroupDef struct {
	Field *BaseField
	Tree  bool
	Flat  func(r *types.Record) []string
	Paths func(r *types.Record) [][]string
}

// DefaultGroups is the facet layout of the dataset browser: four flat groups
// and the hierarchical object taxonomy, in declaration (presentation) order.
func DefaultGroups() []GroupDef {
	return []GroupDef{
		{
			Field: &BaseField{Key: "scene", Name: "Scene", Priority: 5},
			Flat:  func(r *types.Record) []string { return r.Scenes },
		},
		{
			Field: &BaseField{Key: "robot", Name: "Robot", Priority: 4},
			Flat:  func(r *types.Record) []string { return r.Robots },
		},
		{
			Field: &BaseField{Key: "effector", Name: "End effector", Priority: 3},
			Flat: func(r *types.Record) []string {
				if r.EndEffector == "" {
					return nil
				}
				return []string{r.EndEffector}
			},
		},
		{
			Field: &BaseField{Key: "action", Name: "Action", Priority: 2},
			Flat:  func(r *types.Record) []string { return r.Actions },
		},
		{
			Field: &BaseField{Key: "object", Name: "Object", Priority: 1},
			Tree:  true,
			Paths: func(r *types.Record) [][]string { return r.Objects },
		},
	}
}

// FacetItemHandler owns the facet groups built from the record collection.
// Groups are immutable between BuildFacets calls.
type FacetItemHandler struct {
	mu     sync.RWMutex
	defs   []GroupDef
	groups []Facet
	byKey  map[string]Facet
}

func NewFacetItemHandler(defs []GroupDef) *FacetItemHandler {
	h := &FacetItemHandler{defs: defs}
	h.BuildFacets(nil)
	return h
}

// BuildFacets rebuilds every group from scratch. Record ids are the indices
// into the given slice; records with empty fields simply contribute nothing.
func (h *FacetItemHandler) BuildFacets(records []types.Record) {
	groups := make([]Facet, 0, len(h.defs))
	byKey := make(map[string]Facet, len(h.defs))
	for _, def := range h.defs {
		var f Facet
		if def.Tree {
			f = EmptyTreeValueField(def.Field)
		} else {
			f = EmptyKeyValueField(def.Field)
		}
		groups = append(groups, f)
		byKey[def.Field.Key] = f
	}
	for i := range records {
		id := types.RecordId(i)
		for gi, def := range h.defs {
			if def.Tree {
				if paths := def.Paths(&records[i]); len(paths) > 0 {
					groups[gi].AddValueLink(paths, id)
				}
			} else {
				if values := def.Flat(&records[i]); len(values) > 0 {
					groups[gi].AddValueLink(values, id)
				}
			}
		}
	}
	h.mu.Lock()
	h.groups = groups
	h.byKey = byKey
	h.mu.Unlock()
}

// Groups returns the facets in declaration order.
func (h *FacetItemHandler) Groups() []Facet {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ret := make([]Facet, len(h.groups))
	copy(ret, h.groups)
	return ret
}

func (h *FacetItemHandler) Get(key string) (Facet, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	f, ok := h.byKey[key]
	return f, ok
}

// GetTreeFacet returns the group only when it is hierarchical.
func (h *FacetItemHandler) GetTreeFacet(key string) (*TreeField, bool) {
	f, ok := h.Get(key)
	if !ok {
		return nil, false
	}
	if tf, ok := f.(*TreeField); ok {
		return tf, true
	}
	return nil, false
}
