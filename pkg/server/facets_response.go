package server

import (
	"github.com/matst80/slask-browser/pkg/facet"
	"github.com/matst80/slask-browser/pkg/index"
)

type FacetValue struct {
	Value    string `json:"value"`
	Count    int    `json:"count"`
	Selected bool   `json:"selected,omitempty"`
}

type TreeNodeJson struct {
	Value    string          `json:"value"`
	Path     string          `json:"path"`
	IsLeaf   bool            `json:"isLeaf,omitempty"`
	Count    int             `json:"count"`
	Selected bool            `json:"selected,omitempty"`
	Children []*TreeNodeJson `json:"children,omitempty"`
}

type JsonFacet struct {
	*facet.BaseField
	Type     string          `json:"type"`
	Values   []FacetValue    `json:"values,omitempty"`
	Children []*TreeNodeJson `json:"children,omitempty"`
}

// BuildFacetsResponse renders the facet groups in declaration order, values
// and siblings sorted lexicographically, with per-value counts and the
// current selection flags.
func BuildFacetsResponse(eng *index.Engine) []JsonFacet {
	sel := eng.Selection()
	groups := eng.Facets().Groups()
	ret := make([]JsonFacet, 0, len(groups))
	for _, f := range groups {
		base := f.GetBaseField()
		if base.HideFacet {
			continue
		}
		selected := make(map[string]struct{})
		for _, value := range sel.SelectedIn(base.Key) {
			selected[value] = struct{}{}
		}
		jf := JsonFacet{BaseField: base}
		if tree, ok := f.(*facet.TreeField); ok {
			jf.Type = "hierarchical"
			for _, root := range tree.SortedRoots() {
				jf.Children = append(jf.Children, buildTreeNode(selected, "", root))
			}
		} else {
			jf.Type = "flat"
			for _, value := range f.SortedValues() {
				_, isSelected := selected[value]
				jf.Values = append(jf.Values, FacetValue{
					Value:    value,
					Count:    eng.Count(base.Key, value),
					Selected: isSelected,
				})
			}
		}
		ret = append(ret, jf)
	}
	return ret
}

func buildTreeNode(selected map[string]struct{}, parentPath string, node *facet.Node) *TreeNodeJson {
	path := node.Value
	if parentPath != "" {
		path = parentPath + facet.PathSeparator + node.Value
	}
	_, isSelected := selected[node.Value]
	ret := &TreeNodeJson{
		Value:    node.Value,
		Path:     path,
		IsLeaf:   node.IsLeaf,
		Count:    int(node.Ids().GetCardinality()),
		Selected: isSelected,
	}
	for _, child := range node.SortedChildren() {
		ret.Children = append(ret.Children, buildTreeNode(selected, path, child))
	}
	return ret
}
