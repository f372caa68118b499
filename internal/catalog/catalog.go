// Package catalog models a product catalog: application settings, domains
// (named lookup tables) and the attribute tables products are built from.
//
// A catalog is loaded as a plain tree first so that the schema validator
// can see it exactly as written; the typed accessors read from that tree
// and tolerate malformed input.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Well-known top-level entries.
const (
	AppLevelSettings         = "AppLevelSettings"
	ProductTypes             = "ProductTypes"
	ExtentLayers             = "ExtentLayers"
	BasemapLayers            = "BasemapLayers"
	Exporters                = "Exporters"
	ScaleList                = "ScaleList"
	PageSizeList             = "PageSizeList"
	MapCommands              = "MapCommands"
	BaseProductTable         = "BaseProductTable"
	BaseProductInstanceTable = "BaseProductInstanceTable"
	ProductDefinitions       = "ProductDefinitions"
)

// ErrNotDefined is matched by every *NotDefinedError.
var ErrNotDefined = errors.New("not defined in catalog")

// NotDefinedError reports a required setting or table missing from a
// catalog.
type NotDefinedError struct {
	What string // "setting" or "table"
	Name string
}

func (e *NotDefinedError) Error() string {
	return fmt.Sprintf("the requested %s (%s) is not defined in the configuration file", e.What, e.Name)
}

func (e *NotDefinedError) Is(target error) bool { return target == ErrNotDefined }

// Catalog is a loaded product catalog.
type Catalog struct {
	raw map[string]any
	// order holds the key order of every mapping in the parsed document,
	// by path.
	order map[string][]string
}

// New wraps a decoded catalog tree.
func New(raw map[string]any) *Catalog {
	if raw == nil {
		raw = map[string]any{}
	}
	n, _ := Normalize(raw).(map[string]any)
	return &Catalog{raw: n}
}

// Parse decodes a catalog from YAML or JSON.
func Parse(data []byte) (*Catalog, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	c := New(raw)
	c.order = map[string][]string{}
	c.collectOrder("", &doc)
	return c, nil
}

func (c *Catalog) collectOrder(path string, n *yaml.Node) {
	switch n.Kind {
	case yaml.DocumentNode:
		for _, e := range n.Content {
			c.collectOrder(path, e)
		}
	case yaml.AliasNode:
		if n.Alias != nil {
			c.collectOrder(path, n.Alias)
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			k := n.Content[i].Value
			c.order[path] = append(c.order[path], k)
			c.collectOrder(JoinPath(path, k), n.Content[i+1])
		}
	case yaml.SequenceNode:
		for i, e := range n.Content {
			c.collectOrder(fmt.Sprintf("%s[%d]", path, i), e)
		}
	}
}

// KeyOrder returns the keys of the mapping at path, e.g. "AppLevelSettings"
// or "Fixed25KTable[0]", in document order. It is nil for catalogs not
// read from a document.
func (c *Catalog) KeyOrder(path string) []string {
	return c.order[path]
}

// JoinPath appends a key to a catalog path.
func JoinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

// Load reads a catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Raw returns the decoded tree. Callers must not modify it.
func (c *Catalog) Raw() map[string]any { return c.raw }

// Has reports whether a top-level entry exists.
func (c *Catalog) Has(name string) bool {
	_, ok := c.raw[name]
	return ok
}

// Names returns the top-level entry names, sorted.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.raw))
	for k := range c.raw {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Entry returns a top-level entry as a Value.
func (c *Catalog) Entry(name string) Value {
	v, ok := c.raw[name]
	if !ok {
		return Value{}
	}
	return ValueOf(v)
}

// Setting returns an application level setting.
func (c *Catalog) Setting(name string) (Value, bool) {
	v := c.Entry(AppLevelSettings).Field(name)
	return v, v.Present()
}

// RequireSetting is Setting with a *NotDefinedError for missing settings.
func (c *Catalog) RequireSetting(name string) (Value, error) {
	v, ok := c.Setting(name)
	if !ok {
		return Value{}, &NotDefinedError{What: "setting", Name: name}
	}
	return v, nil
}

// SettingText returns a string setting, "" when missing.
func (c *Catalog) SettingText(name string) string {
	v, _ := c.Setting(name)
	s, _ := v.Str()
	return s
}

// SettingBool returns a boolean setting, false when missing.
func (c *Catalog) SettingBool(name string) bool {
	v, _ := c.Setting(name)
	b, _ := v.Bool()
	return b
}

func (c *Catalog) rows(name string) ([]map[string]any, bool) {
	arr, ok := c.raw[name].([]any)
	if !ok {
		return nil, false
	}
	rows := make([]map[string]any, 0, len(arr))
	for _, e := range arr {
		m, _ := e.(map[string]any)
		rows = append(rows, m)
	}
	return rows, true
}

// Table returns a top-level entry read as an attribute table. It reports
// false when the entry is missing or not an array.
func (c *Catalog) Table(name string) (Table, bool) {
	rows, ok := c.rows(name)
	if !ok {
		return nil, false
	}
	t := make(Table, len(rows))
	for i, r := range rows {
		t[i] = AttributeFromMap(r)
	}
	return t, true
}

// RequireTable is Table with a *NotDefinedError for missing tables.
func (c *Catalog) RequireTable(name string) (Table, error) {
	t, ok := c.Table(name)
	if !ok {
		return nil, &NotDefinedError{What: "table", Name: name}
	}
	return t, nil
}

// Domain returns a top-level entry read as a domain.
func (c *Catalog) Domain(name string) (Domain, bool) {
	rows, ok := c.rows(name)
	if !ok {
		return Domain{}, false
	}
	d := Domain{Name: name, Entries: make([]Entry, len(rows))}
	for i, r := range rows {
		e := make(Entry, len(r))
		for k, v := range r {
			e[k] = ValueOf(v)
		}
		d.Entries[i] = e
	}
	return d, true
}

// ProductDefinitions returns the declared product table pairs.
func (c *Catalog) ProductDefinitions() []ProductDefinition {
	d, _ := c.Domain(ProductDefinitions)
	defs := make([]ProductDefinition, 0, len(d.Entries))
	for _, e := range d.Entries {
		defs = append(defs, ProductDefinition{
			AttrTable:     e.Text("attrTable"),
			InstanceTable: e.Text("instanceTable"),
		})
	}
	return defs
}

// ProductDefinition names the attribute table of a product and the table
// added when it is instantiated.
type ProductDefinition struct {
	AttrTable     string `json:"attrTable"`
	InstanceTable string `json:"instanceTable,omitempty"`
}

// Entry is a domain row.
type Entry map[string]Value

// Value returns the row's value field.
func (e Entry) Value() Value { return e["value"] }

// Text returns a string field, "" when missing.
func (e Entry) Text(name string) string {
	s, _ := e[name].Str()
	return s
}

// Domain is a named lookup table of legal values.
type Domain struct {
	Name    string  `json:"name"`
	Entries []Entry `json:"entries"`
}

// Contains reports whether v matches some entry value, strings compared
// case-insensitively. A falsy v is always contained.
func (d Domain) Contains(v Value) bool {
	if !v.Truthy() {
		return true
	}
	for _, e := range d.Entries {
		if e.Value().EqualFold(v) {
			return true
		}
	}
	return false
}

// Lookup returns the first entry whose value equals v.
func (d Domain) Lookup(v Value) (Entry, bool) {
	for _, e := range d.Entries {
		if e.Value().EqualFold(v) {
			return e, true
		}
	}
	return nil, false
}

// Values returns the entry values.
func (d Domain) Values() []Value {
	out := make([]Value, len(d.Entries))
	for i, e := range d.Entries {
		out[i] = e.Value()
	}
	return out
}

// AttributeFromMap reads an attribute row. Properties of the wrong type
// are dropped; the schema validator reports them.
func AttributeFromMap(m map[string]any) Attribute {
	var a Attribute
	if m == nil {
		return a
	}
	a.Attr, _ = m["attr"].(string)
	a.DisplayName = strField(m, "displayName")
	a.Domain = strField(m, "domain")
	a.Source = strField(m, "source")
	a.IsEditable = boolField(m, "isEditable")
	a.PassToServer = boolField(m, "passToServer")
	if v, ok := m["value"]; ok {
		a.Value = ValueOf(v)
	}
	if f, ok := m["filter"].([]any); ok {
		a.Filter = make([]Value, len(f))
		for i, e := range f {
			a.Filter[i] = ValueOf(e)
		}
	}
	return a
}

// Map returns the row as a plain tree, the inverse of AttributeFromMap.
func (a Attribute) Map() map[string]any {
	m := map[string]any{"attr": a.Attr}
	if a.DisplayName != nil {
		m["displayName"] = *a.DisplayName
	}
	if a.Domain != nil {
		m["domain"] = *a.Domain
	}
	if a.Source != nil {
		m["source"] = *a.Source
	}
	if a.IsEditable != nil {
		m["isEditable"] = *a.IsEditable
	}
	if a.PassToServer != nil {
		m["passToServer"] = *a.PassToServer
	}
	if a.Value.Present() {
		m["value"] = a.Value.Raw()
	}
	if a.Filter != nil {
		f := make([]any, len(a.Filter))
		for i, v := range a.Filter {
			f[i] = v.Raw()
		}
		m["filter"] = f
	}
	return m
}

func strField(m map[string]any, key string) *string {
	if s, ok := m[key].(string); ok {
		return &s
	}
	return nil
}

func boolField(m map[string]any, key string) *bool {
	if b, ok := m[key].(bool); ok {
		return &b
	}
	return nil
}
