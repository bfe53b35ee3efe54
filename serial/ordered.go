package serial

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// OrderedMap is a string-keyed map that remembers insertion order. Three
// places in the wire format hash their insertion order into the block hash
// (trans, pow.work, and each round's factors) so a plain Go map — which
// iterates in randomized order — cannot be used for them; see spec §9,
// "Ordered maps in the hash domain".
type OrderedMap[V any] struct {
	keys []string
	vals map[string]V
}

// NewOrderedMap returns an empty ordered map.
func NewOrderedMap[V any]() *OrderedMap[V] {
	return &OrderedMap[V]{vals: make(map[string]V)}
}

// Set inserts key at the end of the iteration order if it is new, or
// updates the value in place (keeping its original position) if it already
// exists.
func (m *OrderedMap[V]) Set(key string, val V) {
	if m.vals == nil {
		m.vals = make(map[string]V)
	}
	if _, ok := m.vals[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.vals[key] = val
}

// Get returns the value for key and whether it was present.
func (m *OrderedMap[V]) Get(key string) (V, bool) {
	v, ok := m.vals[key]
	return v, ok
}

// Has reports whether key is present.
func (m *OrderedMap[V]) Has(key string) bool {
	_, ok := m.vals[key]
	return ok
}

// Len returns the number of entries.
func (m *OrderedMap[V]) Len() int {
	return len(m.keys)
}

// Keys returns the keys in insertion order. The returned slice must not be
// mutated by the caller.
func (m *OrderedMap[V]) Keys() []string {
	return m.keys
}

// Values returns the values in the same order as Keys.
func (m *OrderedMap[V]) Values() []V {
	out := make([]V, 0, len(m.keys))
	for _, k := range m.keys {
		out = append(out, m.vals[k])
	}
	return out
}

// Prefix returns a new OrderedMap containing only the first n entries, in
// the same order. Used by pow to bind round i to rounds 0..i-1 of work.
func (m *OrderedMap[V]) Prefix(n int) *OrderedMap[V] {
	out := NewOrderedMap[V]()
	if n > len(m.keys) {
		n = len(m.keys)
	}
	for _, k := range m.keys[:n] {
		out.Set(k, m.vals[k])
	}
	return out
}

// Range calls fn for every entry in insertion order.
func (m *OrderedMap[V]) Range(fn func(key string, val V)) {
	for _, k := range m.keys {
		fn(k, m.vals[k])
	}
}

// MarshalJSON emits the map as a JSON object with keys in insertion order
// and no inter-token whitespace, matching the canonical wire format.
func (m *OrderedMap[V]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(m.vals[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object while preserving the key order found
// on the wire, using the decoder's token stream rather than Go's (order
// losing) native map decoding.
func (m *OrderedMap[V]) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("serial: expected object, got %v", tok)
	}

	*m = *NewOrderedMap[V]()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("serial: expected string key, got %v", keyTok)
		}

		var val V
		if err := dec.Decode(&val); err != nil {
			return err
		}
		m.Set(key, val)
	}

	if _, err := dec.Token(); err != nil { // closing '}'
		return err
	}
	return nil
}
