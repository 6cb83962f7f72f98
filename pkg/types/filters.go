package types

import "strings"

// FilterId identifies one selectable facet value, "{facetKey}:{facetValue}".
// Hierarchical values are keyed by the bare segment value, not the full path,
// so equally named leaves under different parents share an id.
type FilterId string

func MakeFilterId(facetKey, facetValue string) FilterId {
	return FilterId(facetKey + ":" + facetValue)
}

// Split returns the facet key and value parts. The value may itself contain
// ':' so only the first separator counts.
func (f FilterId) Split() (string, string) {
	key, value, found := strings.Cut(string(f), ":")
	if !found {
		return string(f), ""
	}
	return key, value
}

func (f FilterId) Key() string {
	key, _ := f.Split()
	return key
}

func (f FilterId) Value() string {
	_, value := f.Split()
	return value
}

// StringFilter is one facet constraint: any of Values satisfies the group.
type StringFilter struct {
	Key    string   `json:"key"`
	Values []string `json:"values"`
}

// PathFilter constrains a hierarchical facet to the records under the exact
// node at Path.
type PathFilter struct {
	Key  string   `json:"key"`
	Path []string `json:"path"`
}

// Filters is a stateless filter request, one entry per constrained facet
// group. Groups not present impose no constraint.
type Filters struct {
	StringFilter []StringFilter `json:"string" schema:"-"`
	PathFilter   []PathFilter   `json:"under,omitempty" schema:"-"`
}

func (f *Filters) IsEmpty() bool {
	return f == nil || (len(f.StringFilter) == 0 && len(f.PathFilter) == 0)
}

// Add appends a value to the group entry for key, creating it when absent.
func (f *Filters) Add(key, value string) {
	for i := range f.StringFilter {
		if f.StringFilter[i].Key == key {
			f.StringFilter[i].Values = append(f.StringFilter[i].Values, value)
			return
		}
	}
	f.StringFilter = append(f.StringFilter, StringFilter{Key: key, Values: []string{value}})
}
