package facet

import (
	"log"
	"slices"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/matst80/slask-browser/pkg/types"
)

// KeyField is a flat facet group, a set of distinct string values each with
// its posting bitmap.
type KeyField struct {
	*BaseField
	Keys map[string]*roaring.Bitmap
}

func EmptyKeyValueField(field *BaseField) *KeyField {
	return &KeyField{
		BaseField: field,
		Keys:      map[string]*roaring.Bitmap{},
	}
}

func (f *KeyField) GetType() uint {
	return FacetKeyType
}

func (f *KeyField) GetBaseField() *BaseField {
	return f.BaseField
}

func (f *KeyField) addValue(value string, id types.RecordId) bool {
	part := strings.TrimSpace(value)
	if part == "" {
		return false
	}
	if ids, ok := f.Keys[part]; ok {
		ids.Add(id)
	} else {
		ids = roaring.New()
		ids.Add(id)
		f.Keys[part] = ids
	}
	return true
}

func (f *KeyField) AddValueLink(data any, id types.RecordId) bool {
	switch typed := data.(type) {
	case nil:
		return false
	case string:
		return f.addValue(typed, id)
	case []string:
		added := false
		for _, v := range typed {
			if f.addValue(v, id) {
				added = true
			}
		}
		return added
	case []any:
		added := false
		for _, v := range typed {
			if s, ok := v.(string); ok && f.addValue(s, id) {
				added = true
			}
		}
		return added
	default:
		log.Printf("KeyField: AddValueLink: unknown type %T, key: %s", typed, f.Key)
	}
	return false
}

func (f *KeyField) MatchValue(value string) *roaring.Bitmap {
	if ids, ok := f.Keys[value]; ok {
		return ids
	}
	return emptyBitmap()
}

// SortedValues orders at read time so record iteration order never leaks
// into presentation.
func (f *KeyField) SortedValues() []string {
	ret := make([]string, 0, len(f.Keys))
	for value := range f.Keys {
		ret = append(ret, value)
	}
	slices.Sort(ret)
	return ret
}

func (f *KeyField) Count(value string) int {
	if ids, ok := f.Keys[value]; ok {
		return int(ids.GetCardinality())
	}
	return 0
}

func (f *KeyField) CountAll() map[string]int {
	ret := make(map[string]int, len(f.Keys))
	for value, ids := range f.Keys {
		ret[value] = int(ids.GetCardinality())
	}
	return ret
}

func (f *KeyField) UniqueCount() int {
	return len(f.Keys)
}
