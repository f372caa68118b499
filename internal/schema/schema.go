// Package schema validates decoded JSON/YAML trees against a small
// declarative schema language: objects with properties, required lists and
// closed property sets; arrays with item schemas and a minimum length;
// primitive types, enums, regular expression patterns and named formats.
//
// Validation never stops at the first problem. Every violation found is
// returned, in a deterministic order.
package schema

import (
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Type is a primitive schema type.
type Type string

const (
	Object  Type = "object"
	Array   Type = "array"
	String  Type = "string"
	Number  Type = "number"
	Boolean Type = "boolean"
	Null    Type = "null"
	Any     Type = "any"
)

// Schema describes the expected shape of a value. An empty Type list
// accepts any type.
type Schema struct {
	Type        []Type             `json:"type,omitempty" yaml:"type,omitempty"`
	Description string             `json:"description,omitempty" yaml:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty" yaml:"properties,omitempty"`
	Required    []string           `json:"required,omitempty" yaml:"required,omitempty"`
	// AdditionalProperties, when non-nil and false, rejects properties not
	// listed in Properties.
	AdditionalProperties *bool   `json:"additionalProperties,omitempty" yaml:"additionalProperties,omitempty"`
	Items                *Schema `json:"items,omitempty" yaml:"items,omitempty"`
	MinItems             int     `json:"minItems,omitempty" yaml:"minItems,omitempty"`
	Enum                 []any   `json:"enum,omitempty" yaml:"enum,omitempty"`
	Pattern              string  `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	// Format names a go-playground/validator tag, e.g. "uri" or "email".
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// Violation is one schema problem.
type Violation struct {
	// Path locates the value, e.g. "ExtentLayers[2].url". Empty for the
	// root.
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	if v.Path == "" {
		return v.Message
	}
	return v.Path + ": " + v.Message
}

var formats = validator.New()

// KeyOrder returns the keys of the object at path in the order they should
// be visited.
type KeyOrder func(path string) []string

// Validate checks v against s and returns every violation. Object
// properties are visited in sorted order.
func Validate(v any, s *Schema) []Violation {
	return ValidateOrdered(v, s, nil)
}

// ValidateOrdered is Validate visiting object properties in the order
// given by order, typically the order of the source document. Keys order
// does not list follow, sorted.
func ValidateOrdered(v any, s *Schema, order KeyOrder) []Violation {
	w := walker{order: order}
	w.value("", v, s)
	return w.out
}

type walker struct {
	out      []Violation
	order    KeyOrder
	patterns map[string]*regexp.Regexp
}

func (w *walker) add(path, format string, args ...any) {
	w.out = append(w.out, Violation{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (w *walker) value(path string, v any, s *Schema) {
	if s == nil {
		return
	}
	t := typeOf(v)
	if !s.accepts(t) {
		w.add(path, "%s value found, but %s is required", t, s.typeText())
		return
	}
	if len(s.Enum) > 0 && !inEnum(v, s.Enum) {
		w.add(path, "does not have a value in the enumeration %s", enumText(s.Enum))
	}

	switch t {
	case Object:
		w.object(path, v.(map[string]any), s)
	case Array:
		w.array(path, v.([]any), s)
	case String:
		w.str(path, v.(string), s)
	}
}

func (w *walker) object(path string, m map[string]any, s *Schema) {
	for _, name := range s.Required {
		if _, ok := m[name]; !ok {
			w.add(join(path, name), "is missing and it is not optional")
		}
	}

	for _, k := range w.keys(path, m) {
		ps, ok := s.Properties[k]
		if !ok {
			if s.AdditionalProperties != nil && !*s.AdditionalProperties {
				w.add(join(path, k), "the property %s is not defined in the schema and the schema does not allow additional properties", k)
			}
			continue
		}
		w.value(join(path, k), m[k], ps)
	}
}

func (w *walker) keys(path string, m map[string]any) []string {
	keys := make([]string, 0, len(m))
	seen := make(map[string]bool, len(m))
	if w.order != nil {
		for _, k := range w.order(path) {
			if _, ok := m[k]; ok && !seen[k] {
				keys = append(keys, k)
				seen[k] = true
			}
		}
	}
	rest := make([]string, 0, len(m)-len(keys))
	for k := range m {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

func (w *walker) array(path string, a []any, s *Schema) {
	if s.MinItems > 0 && len(a) < s.MinItems {
		w.add(path, "there must be a minimum of %d in the array", s.MinItems)
	}
	if s.Items == nil {
		return
	}
	for i, e := range a {
		w.value(fmt.Sprintf("%s[%d]", path, i), e, s.Items)
	}
}

func (w *walker) str(path, v string, s *Schema) {
	if s.Pattern != "" {
		re, err := w.compile(s.Pattern)
		if err != nil {
			w.add(path, "schema pattern %q is invalid: %v", s.Pattern, err)
		} else if !re.MatchString(v) {
			w.add(path, "does not match the regex pattern %s", s.Pattern)
		}
	}
	if s.Format != "" {
		if err := formats.Var(v, s.Format); err != nil {
			w.add(path, "%q is not a valid %s", v, s.Format)
		}
	}
}

func (w *walker) compile(pattern string) (*regexp.Regexp, error) {
	if re, ok := w.patterns[pattern]; ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	if w.patterns == nil {
		w.patterns = map[string]*regexp.Regexp{}
	}
	w.patterns[pattern] = re
	return re, nil
}

func (s *Schema) accepts(t Type) bool {
	if len(s.Type) == 0 {
		return true
	}
	for _, want := range s.Type {
		if want == Any || want == t {
			return true
		}
	}
	return false
}

func (s *Schema) typeText() string {
	parts := make([]string, len(s.Type))
	for i, t := range s.Type {
		parts[i] = article(string(t))
	}
	return strings.Join(parts, " or ")
}

func article(t string) string {
	if t == "" {
		return t
	}
	switch t[0] {
	case 'a', 'e', 'i', 'o', 'u':
		return "an " + t
	}
	return "a " + t
}

func typeOf(v any) Type {
	switch v.(type) {
	case nil:
		return Null
	case bool:
		return Boolean
	case string:
		return String
	case float64, float32, int, int64, int32, uint64:
		return Number
	case []any:
		return Array
	case map[string]any:
		return Object
	}
	return Any
}

func inEnum(v any, enum []any) bool {
	return slices.ContainsFunc(enum, func(e any) bool {
		return typeOf(e) == typeOf(v) && fmt.Sprint(e) == fmt.Sprint(v)
	})
}

func enumText(enum []any) string {
	parts := make([]string, len(enum))
	for i, e := range enum {
		parts[i] = fmt.Sprint(e)
	}
	return strings.Join(parts, ",")
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

// Closed returns a *bool false for AdditionalProperties.
func Closed() *bool {
	b := false
	return &b
}

// Types is shorthand for a Type list.
func Types(t ...Type) []Type { return t }
