package facet

import (
	"log"
	"slices"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/matst80/slask-browser/pkg/types"
)

// PathSeparator joins hierarchy segments into the path form used by the
// selection and navigation operations.
const PathSeparator = ">"

// Node is one segment in a hierarchical facet tree. IsLeaf is independent of
// Children: a node is a leaf when at least one record's path terminates
// there, even if other records continue deeper through it.
type Node struct {
	Value    string
	IsLeaf   bool
	Children map[string]*Node
	ids      *roaring.Bitmap
}

func newNode(value string) *Node {
	return &Node{
		Value:    value,
		Children: map[string]*Node{},
		ids:      roaring.New(),
	}
}

// Ids returns the records whose path passes through this node. Callers must
// treat the bitmap as read only.
func (n *Node) Ids() *roaring.Bitmap {
	return n.ids
}

// SortedChildren orders siblings lexicographically at read time, keeping the
// tree shape independent of record iteration order.
func (n *Node) SortedChildren() []*Node {
	keys := make([]string, 0, len(n.Children))
	for key := range n.Children {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	ret := make([]*Node, len(keys))
	for i, key := range keys {
		ret[i] = n.Children[key]
	}
	return ret
}

// WalkLeaves visits every leaf-flagged node in the subtree rooted at n,
// including n itself, siblings in lexicographic order.
func (n *Node) WalkLeaves(visit func(*Node)) {
	if n.IsLeaf {
		visit(n)
	}
	for _, child := range n.SortedChildren() {
		child.WalkLeaves(visit)
	}
}

// TreeField is a hierarchical facet group. Besides the tree itself it keeps a
// per-segment-value posting bitmap so a selected value matches records at any
// depth of their path, the same rule the predicate evaluator applies.
type TreeField struct {
	*BaseField
	Children map[string]*Node
	segments map[string]*roaring.Bitmap
}

func EmptyTreeValueField(field *BaseField) *TreeField {
	return &TreeField{
		BaseField: field,
		Children:  map[string]*Node{},
		segments:  map[string]*roaring.Bitmap{},
	}
}

func (t *TreeField) GetType() uint {
	return FacetTreeType
}

func (t *TreeField) GetBaseField() *BaseField {
	return t.BaseField
}

func (t *TreeField) addSegment(value string, id types.RecordId) {
	if ids, ok := t.segments[value]; ok {
		ids.Add(id)
	} else {
		ids = roaring.New()
		ids.Add(id)
		t.segments[value] = ids
	}
}

func (t *TreeField) addPath(path []string, id types.RecordId) bool {
	keys := make([]string, 0, len(path))
	for _, segment := range path {
		part := strings.TrimSpace(segment)
		if part == "" {
			continue
		}
		keys = append(keys, part)
	}
	if len(keys) == 0 {
		return false
	}
	children := t.Children
	var curr *Node
	for _, key := range keys {
		next, ok := children[key]
		if !ok {
			next = newNode(key)
			children[key] = next
		}
		next.ids.Add(id)
		t.addSegment(key, id)
		curr = next
		children = next.Children
	}
	curr.IsLeaf = true
	return true
}

func (t *TreeField) AddValueLink(data any, id types.RecordId) bool {
	switch typed := data.(type) {
	case nil:
		return false
	case []string:
		return t.addPath(typed, id)
	case [][]string:
		added := false
		for _, path := range typed {
			if t.addPath(path, id) {
				added = true
			}
		}
		return added
	case []any:
		added := false
		for _, v := range typed {
			switch path := v.(type) {
			case []string:
				if t.addPath(path, id) {
					added = true
				}
			case string:
				if t.addPath([]string{path}, id) {
					added = true
				}
			}
		}
		return added
	default:
		log.Printf("TreeField: AddValueLink: unknown type %T, key: %s", typed, t.Key)
	}
	return false
}

// MatchValue matches the segment value at any depth, so selecting an
// ancestor catches records whose paths continue deeper.
func (t *TreeField) MatchValue(value string) *roaring.Bitmap {
	if ids, ok := t.segments[value]; ok {
		return ids
	}
	return emptyBitmap()
}

// MatchPath walks the exact path from the root and returns the records under
// that node. Any absent segment yields an empty set.
func (t *TreeField) MatchPath(path []string) *roaring.Bitmap {
	node, ok := t.FindNode(path)
	if !ok {
		return emptyBitmap()
	}
	return node.ids
}

// FindNode resolves a segment sequence to its node. Unknown paths are an
// absence, not an error.
func (t *TreeField) FindNode(path []string) (*Node, bool) {
	if len(path) == 0 {
		return nil, false
	}
	children := t.Children
	var curr *Node
	for _, segment := range path {
		next, ok := children[segment]
		if !ok {
			return nil, false
		}
		curr = next
		children = next.Children
	}
	return curr, true
}

// FindNodeByPath resolves a ">"-joined path string.
func (t *TreeField) FindNodeByPath(joined string) (*Node, bool) {
	if joined == "" {
		return nil, false
	}
	return t.FindNode(strings.Split(joined, PathSeparator))
}

// SortedRoots orders the top level nodes lexicographically.
func (t *TreeField) SortedRoots() []*Node {
	keys := make([]string, 0, len(t.Children))
	for key := range t.Children {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	ret := make([]*Node, len(keys))
	for i, key := range keys {
		ret[i] = t.Children[key]
	}
	return ret
}

// SortedValues lists the distinct leaf values of the tree. Two leaves with
// the same value under different parents collapse into one entry, matching
// the bare-value selection keying.
func (t *TreeField) SortedValues() []string {
	seen := map[string]struct{}{}
	for _, root := range t.SortedRoots() {
		root.WalkLeaves(func(n *Node) {
			seen[n.Value] = struct{}{}
		})
	}
	ret := make([]string, 0, len(seen))
	for value := range seen {
		ret = append(ret, value)
	}
	slices.Sort(ret)
	return ret
}

func (t *TreeField) Count(value string) int {
	if ids, ok := t.segments[value]; ok {
		return int(ids.GetCardinality())
	}
	return 0
}

func (t *TreeField) CountAll() map[string]int {
	ret := make(map[string]int, len(t.segments))
	for value, ids := range t.segments {
		ret[value] = int(ids.GetCardinality())
	}
	return ret
}

func (t *TreeField) UniqueCount() int {
	return len(t.segments)
}
