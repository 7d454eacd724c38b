package params

import (
	"net/url"
	"sort"

	"github.com/samber/lo"
)

// Map is a parameter collection keyed by string. Iteration order carries no
// meaning.
type Map map[string]Value

// Clone returns a shallow copy of m. Lists are copied so that the clone can
// be mutated independently.
func (m Map) Clone() Map {
	out := make(Map, len(m))
	for k, v := range m {
		if list, ok := v.(List); ok {
			v = append(List(nil), list...)
		}
		out[k] = v
	}
	return out
}

// Keys returns the keys of m in byte-wise order.
func (m Map) Keys() []string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return keys
}

// Without returns a copy of m without the given keys.
func (m Map) Without(keys ...string) Map {
	return lo.OmitByKeys(m.Clone(), keys)
}

// Values converts m into url.Values for query string serialization. Lists
// become repeated keys; with bracketLists they are written as key[]=v the
// way Rails-style query strings carry arrays.
func (m Map) Values(bracketLists bool) url.Values {
	out := make(url.Values, len(m))
	for key, value := range m {
		name := key
		if _, isList := value.(List); isList && bracketLists {
			name += "[]"
		}
		for _, text := range Strings(value) {
			out.Add(name, text)
		}
	}
	return out
}
