package params

import (
	"fmt"
	"math"
	"net/http"
	"net/url"
	"reflect"
	"strings"

	"github.com/gorilla/mux"
)

// FromValues converts parsed query or form values. A key seen once becomes
// a String, a key seen several times becomes a List. Keys written with a
// trailing "[]" are always lists, with the brackets dropped. When both k and
// k[] are present they merge into one list, plain items first.
func FromValues(values url.Values) Map {
	out := make(Map, len(values))
	for key, items := range values {
		if name, ok := strings.CutSuffix(key, "[]"); ok && name != "" {
			if _, plain := values[name]; plain {
				continue
			}
			out[name] = toList(nil, items)
			continue
		}

		bracketed, hasBracketed := values[key+"[]"]
		if !hasBracketed && len(items) == 1 {
			out[key] = String(items[0])
			continue
		}
		out[key] = toList(toList(nil, items), bracketed)
	}
	return out
}

func toList(list List, items []string) List {
	if list == nil {
		list = make(List, 0, len(items))
	}
	for _, item := range items {
		list = append(list, String(item))
	}
	return list
}

// FromRequest collects the parameters of r: query string, form body and
// gorilla/mux route variables. Route variables win over query values of the
// same name.
func FromRequest(r *http.Request) (Map, error) {
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("failed to parse request parameters: %w", err)
	}

	out := FromValues(r.Form)
	for key, value := range mux.Vars(r) {
		out[key] = String(value)
	}
	return out, nil
}

// FromMap normalizes a map with string keys. See Normalize.
func FromMap(in map[string]interface{}) (Map, error) {
	return Normalize(in)
}

// Normalize converts any Go map into a Map. Keys may be of any string kind
// (including named string types), implement fmt.Stringer, or be integers.
// Values may be strings, integers, booleans, slices of those, or Values.
// Nil values are dropped, matching how query strings omit them.
func Normalize(in interface{}) (Map, error) {
	if m, ok := in.(Map); ok {
		return m.Clone(), nil
	}

	rv := reflect.ValueOf(in)
	if rv.Kind() != reflect.Map {
		return nil, fmt.Errorf("params: cannot normalize %T, want a map", in)
	}

	out := make(Map, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		key, err := keyString(iter.Key())
		if err != nil {
			return nil, err
		}

		raw := iter.Value().Interface()
		if raw == nil {
			continue
		}

		value, err := ValueOf(raw)
		if err != nil {
			return nil, fmt.Errorf("params: key %q: %w", key, err)
		}
		if _, dup := out[key]; dup {
			return nil, fmt.Errorf("params: key %q appears more than once after normalization", key)
		}
		out[key] = value
	}
	return out, nil
}

// ValueOf converts a Go value into a Value.
func ValueOf(raw interface{}) (Value, error) {
	switch v := raw.(type) {
	case List:
		for _, elem := range v {
			if _, ok := Text(elem); !ok {
				return nil, fmt.Errorf("nested lists are not supported")
			}
		}
		return v, nil
	case Value:
		return v, nil
	case string:
		return String(v), nil
	case []byte:
		return String(v), nil
	case bool:
		return Bool(v), nil
	case fmt.Stringer:
		return String(v.String()), nil
	}

	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.String:
		return String(rv.String()), nil
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Integer(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return nil, fmt.Errorf("integer %d overflows int64", u)
		}
		return Integer(u), nil
	case reflect.Slice, reflect.Array:
		list := make(List, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			elem := rv.Index(i).Interface()
			if elem == nil {
				continue
			}
			value, err := ValueOf(elem)
			if err != nil {
				return nil, err
			}
			if _, ok := Text(value); !ok {
				return nil, fmt.Errorf("nested lists are not supported")
			}
			list = append(list, value)
		}
		return list, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", raw)
	}
}

func keyString(k reflect.Value) (string, error) {
	if k.Kind() == reflect.Interface {
		if k.IsNil() {
			return "", fmt.Errorf("params: nil key")
		}
		k = k.Elem()
	}

	if s, ok := k.Interface().(fmt.Stringer); ok {
		return s.String(), nil
	}

	switch k.Kind() {
	case reflect.String:
		return k.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return fmt.Sprintf("%d", k.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return fmt.Sprintf("%d", k.Uint()), nil
	default:
		return "", fmt.Errorf("params: unsupported key type %s", k.Type())
	}
}
