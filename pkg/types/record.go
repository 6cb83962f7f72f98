package types

import "strings"

// RecordId is the dense index of a record in the loaded collection. Ids are
// assigned in load order and are only stable until the next full reload.
type RecordId = uint32

// Record is one dataset entry. Records are supplied once per load and never
// mutated by the engine; empty fields are legal and simply contribute no
// facet values.
type Record struct {
	Path        string     `json:"path"`
	Title       string     `json:"title"`
	Scenes      []string   `json:"scenes,omitempty"`
	Robots      []string   `json:"robots,omitempty"`
	EndEffector string     `json:"endEffector,omitempty"`
	Actions     []string   `json:"actions,omitempty"`
	Objects     [][]string `json:"objects,omitempty"`
}

// DisplayName is the label matched by the free text query.
func (r *Record) DisplayName() string {
	if r.Title != "" {
		return r.Title
	}
	return r.Path
}

// MatchesQuery reports whether the record display name contains the query,
// case insensitive. An empty query matches everything.
func (r *Record) MatchesQuery(query string) bool {
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(r.DisplayName()), strings.ToLower(query))
}
