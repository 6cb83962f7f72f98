package facet

import (
	"github.com/RoaringBitmap/roaring/v2"
	"github.com/matst80/slask-browser/pkg/types"
)

const (
	FacetKeyType  = 1
	FacetTreeType = 2
)

// BaseField carries the presentation metadata shared by all facet groups.
type BaseField struct {
	Key         string  `json:"key"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Priority    float64 `json:"prio,omitempty"`
	HideFacet   bool    `json:"hide,omitempty"`
}

// Facet is one filterable group, flat (KeyField) or hierarchical (TreeField).
// Posting sets are roaring bitmaps over RecordIds.
type Facet interface {
	GetType() uint
	GetBaseField() *BaseField
	// AddValueLink threads one record's value(s) into the group. Returns
	// false when the value contributes nothing (nil, empty, wrong shape).
	AddValueLink(value any, id types.RecordId) bool
	// MatchValue returns the records satisfying a single selected value in
	// isolation. For tree facets this matches the segment at any depth.
	// Unknown values yield an empty set, never nil.
	MatchValue(value string) *roaring.Bitmap
	// SortedValues lists the distinct selectable values in lexicographic
	// order. For tree facets these are the leaf values.
	SortedValues() []string
	// Count is the number of records MatchValue(value) would return.
	Count(value string) int
	// CountAll materializes Count for every known value in one pass. For
	// tree facets this covers every segment value, not just leaves.
	CountAll() map[string]int
	UniqueCount() int
}

func emptyBitmap() *roaring.Bitmap {
	return roaring.New()
}
