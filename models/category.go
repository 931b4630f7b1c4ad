package models

import (
	"bytes"
	"encoding/json"
)

// Ref is the minimal bookmark reference the categorizer works with.
type Ref struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// CategoryMap maps category names to ordered bookmark references. Category
// order is insertion order (first appearance wins), which keeps merge output
// and exports deterministic. The zero value is ready to use.
type CategoryMap struct {
	names []string
	items map[string][]Ref
}

// NewCategoryMap returns an empty CategoryMap.
func NewCategoryMap() *CategoryMap {
	return &CategoryMap{items: make(map[string][]Ref)}
}

// Append adds refs to a category, creating it if new. Existing categories
// are never renamed or removed; refs are concatenated in call order.
func (m *CategoryMap) Append(name string, refs ...Ref) {
	if m.items == nil {
		m.items = make(map[string][]Ref)
	}
	if _, ok := m.items[name]; !ok {
		m.names = append(m.names, name)
	}
	m.items[name] = append(m.items[name], refs...)
}

// Items returns the refs for a category, or nil if absent.
func (m *CategoryMap) Items(name string) []Ref {
	if m.items == nil {
		return nil
	}
	return m.items[name]
}

// Names returns category names in first-appearance order.
func (m *CategoryMap) Names() []string {
	return m.names
}

// Len returns the number of categories.
func (m *CategoryMap) Len() int {
	return len(m.names)
}

// Total returns the number of refs across all categories.
func (m *CategoryMap) Total() int {
	n := 0
	for _, name := range m.names {
		n += len(m.items[name])
	}
	return n
}

// Merge folds other into m: list-concatenate on existing names, insert new
// names in other's order.
func (m *CategoryMap) Merge(other *CategoryMap) {
	if other == nil {
		return
	}
	for _, name := range other.names {
		m.Append(name, other.items[name]...)
	}
}

// MarshalJSON emits categories in insertion order, so a serialize/parse
// round trip preserves the map exactly.
func (m *CategoryMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range m.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		refs := m.items[name]
		if refs == nil {
			refs = []Ref{}
		}
		val, err := json.Marshal(refs)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
