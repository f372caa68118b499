package catalog

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"slices"
	"sort"
	"strconv"
	"strings"
)

// Kind is the variant held by a Value.
type Kind uint8

const (
	Absent Kind = iota
	Null
	Bool
	String
	Number
	StringArray
	Array
	Object
)

var kindNames = [...]string{"absent", "null", "boolean", "string", "number", "array", "array", "object"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Value is a catalog value: an attribute value, a setting or a domain entry
// field. The zero Value is Absent, which is distinct from an explicit null.
type Value struct {
	kind Kind
	b    bool
	s    string
	n    float64
	strs []string
	arr  []any
	obj  map[string]any
}

func BoolValue(b bool) Value { return Value{kind: Bool, b: b} }
func StringValue(s string) Value { return Value{kind: String, s: s} }
func NumberValue(n float64) Value { return Value{kind: Number, n: n} }
func NullValue() Value { return Value{kind: Null} }
func StringsValue(s []string) Value { return Value{kind: StringArray, strs: append([]string(nil), s...)} }
func ObjectValue(m map[string]any) Value { return Value{kind: Object, obj: m} }

// ValueOf wraps a decoded JSON or YAML value. Integers become numbers,
// arrays of strings become StringArray.
func ValueOf(v any) Value {
	switch t := Normalize(v).(type) {
	case nil:
		return NullValue()
	case bool:
		return BoolValue(t)
	case string:
		return StringValue(t)
	case float64:
		return NumberValue(t)
	case []any:
		strs := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return Value{kind: Array, arr: t}
			}
			strs = append(strs, s)
		}
		return Value{kind: StringArray, strs: strs}
	case map[string]any:
		return ObjectValue(t)
	default:
		return StringValue(fmt.Sprint(t))
	}
}

// Normalize converts a decoded YAML tree into the shape encoding/json
// produces: numbers as float64, maps keyed by string.
func Normalize(v any) any {
	switch t := v.(type) {
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case uint64:
		return float64(t)
	case float32:
		return float64(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = Normalize(e)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[fmt.Sprint(k)] = Normalize(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Normalize(e)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = e
		}
		return out
	}
	return v
}

func (v Value) Kind() Kind { return v.kind }

// IsZero reports whether v is Absent.
func (v Value) IsZero() bool { return v.kind == Absent }

// Present reports whether v was given, null included.
func (v Value) Present() bool { return v.kind != Absent }

func (v Value) Bool() (bool, bool) { return v.b, v.kind == Bool }
func (v Value) Str() (string, bool) { return v.s, v.kind == String }
func (v Value) Num() (float64, bool) { return v.n, v.kind == Number }

// Strings returns the elements of a StringArray.
func (v Value) Strings() ([]string, bool) { return v.strs, v.kind == StringArray }

// Object returns the fields of an Object.
func (v Value) Object() (map[string]any, bool) { return v.obj, v.kind == Object }

// Field returns a field of an Object value; Absent for anything else.
func (v Value) Field(name string) Value {
	if v.kind != Object {
		return Value{}
	}
	f, ok := v.obj[name]
	if !ok {
		return Value{}
	}
	return ValueOf(f)
}

// Raw returns v as a plain decoded value; nil for Absent and Null.
func (v Value) Raw() any {
	switch v.kind {
	case Bool:
		return v.b
	case String:
		return v.s
	case Number:
		return v.n
	case StringArray:
		out := make([]any, len(v.strs))
		for i, s := range v.strs {
			out[i] = s
		}
		return out
	case Array:
		return v.arr
	case Object:
		return v.obj
	}
	return nil
}

// Truthy follows the loose truthiness catalogs were written against:
// absent, null, false, 0, NaN and "" are false.
func (v Value) Truthy() bool {
	switch v.kind {
	case Absent, Null:
		return false
	case Bool:
		return v.b
	case String:
		return v.s != ""
	case Number:
		return v.n != 0 && !math.IsNaN(v.n)
	}
	return true
}

// Blank reports whether v is absent, null or a blank string.
func (v Value) Blank() bool {
	switch v.kind {
	case Absent, Null:
		return true
	case String:
		return strings.TrimSpace(v.s) == ""
	}
	return false
}

// Equal reports strict equality. Arrays and objects compare deeply.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case Absent, Null:
		return true
	case Bool:
		return v.b == o.b
	case String:
		return v.s == o.s
	case Number:
		return v.n == o.n
	case StringArray:
		return slices.Equal(v.strs, o.strs)
	case Array:
		return reflect.DeepEqual(v.arr, o.arr)
	case Object:
		return reflect.DeepEqual(v.obj, o.obj)
	}
	return false
}

// EqualFold is Equal with strings compared case-insensitively.
func (v Value) EqualFold(o Value) bool {
	if v.kind == String && o.kind == String {
		return strings.EqualFold(v.s, o.s)
	}
	return v.Equal(o)
}

// Text formats v for messages and export parameters.
func (v Value) Text() string {
	switch v.kind {
	case Absent:
		return "undefined"
	case Null:
		return "null"
	case Bool:
		return strconv.FormatBool(v.b)
	case String:
		return v.s
	case Number:
		return strconv.FormatFloat(v.n, 'f', -1, 64)
	case StringArray:
		return strings.Join(v.strs, ",")
	case Array:
		parts := make([]string, len(v.arr))
		for i, e := range v.arr {
			parts[i] = ValueOf(e).Text()
		}
		return strings.Join(parts, ",")
	case Object:
		keys := make([]string, 0, len(v.obj))
		for k := range v.obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return "{" + strings.Join(keys, ",") + "}"
	}
	return ""
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Raw())
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = ValueOf(raw)
	return nil
}

func (v Value) MarshalYAML() (any, error) {
	return v.Raw(), nil
}
