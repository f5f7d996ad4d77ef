package recommend

import (
	"encoding/json"

	"github.com/fxamacker/cbor/v2"
)

// Relation wraps a joined row that the upstream data service returns
// either as a single object or as an array, depending on the join
// cardinality. Decoding accepts both shapes (plus null) so consumers
// never need per-call-site array checks.
type Relation[T any] struct {
	value *T
}

// Rel builds a Relation holding a value. Intended for tests and in-memory
// data sources.
func Rel[T any](v T) Relation[T] {
	return Relation[T]{value: &v}
}

// One returns the joined value, or nil when the relation was absent.
func (r Relation[T]) One() *T {
	return r.value
}

// UnmarshalJSON accepts an object, an array (first element wins), an empty
// array, or null. An empty array and null both decode to an absent value.
func (r *Relation[T]) UnmarshalJSON(data []byte) error {
	r.value = nil

	trimmed := firstNonSpace(data)
	switch trimmed {
	case 'n': // null
		return nil
	case '[':
		var list []T
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		if len(list) > 0 {
			r.value = &list[0]
		}
		return nil
	default:
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		r.value = &v
		return nil
	}
}

// MarshalJSON encodes the held value, or null when absent.
func (r Relation[T]) MarshalJSON() ([]byte, error) {
	if r.value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(r.value)
}

// MarshalCBOR encodes the held value, or nil when absent. Used by the
// Redis response cache, which stores payloads as CBOR.
func (r Relation[T]) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(r.value)
}

// UnmarshalCBOR decodes a cached value-or-nil relation.
func (r *Relation[T]) UnmarshalCBOR(data []byte) error {
	var v *T
	if err := cbor.Unmarshal(data, &v); err != nil {
		return err
	}
	r.value = v
	return nil
}

// firstNonSpace returns the first non-whitespace byte of data, or 0 for
// empty input.
func firstNonSpace(data []byte) byte {
	for _, b := range data {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return b
	}
	return 0
}
