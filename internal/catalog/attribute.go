package catalog

import "strings"

// Attribute is one configurable property of a product, a row of an
// attribute table. Optional fields are nil when the row does not give them.
type Attribute struct {
	Attr         string  `json:"attr" yaml:"attr"`
	DisplayName  *string `json:"displayName,omitempty" yaml:"displayName,omitempty"`
	Domain       *string `json:"domain,omitempty" yaml:"domain,omitempty"`
	Filter       []Value `json:"filter,omitempty" yaml:"filter,omitempty"`
	Value        Value   `json:"value,omitzero" yaml:"value,omitempty"`
	IsEditable   *bool   `json:"isEditable,omitempty" yaml:"isEditable,omitempty"`
	PassToServer *bool   `json:"passToServer,omitempty" yaml:"passToServer,omitempty"`
	Source       *string `json:"source,omitempty" yaml:"source,omitempty"`
}

// Name returns the closed attribute name of a.
func (a Attribute) Name() AttributeName { return AttributeName(a.Attr) }

// Display returns the display name, "" when hidden.
func (a Attribute) Display() string { return deref(a.DisplayName) }

// DomainName returns the referenced domain, "" for none.
func (a Attribute) DomainName() string { return deref(a.Domain) }

// SourceField returns the extent layer field key the value is read from.
func (a Attribute) SourceField() string { return deref(a.Source) }

// Passed reports whether the attribute is sent to the export service.
func (a Attribute) Passed() bool { return a.PassToServer != nil && *a.PassToServer }

// Editable reports whether users may change the value.
func (a Attribute) Editable() bool { return a.IsEditable != nil && *a.IsEditable }

// HasProperty reports whether a gives the named row property.
func (a Attribute) HasProperty(name string) bool {
	switch name {
	case "attr":
		return a.Attr != ""
	case "displayName":
		return a.DisplayName != nil
	case "domain":
		return a.Domain != nil
	case "filter":
		return a.Filter != nil
	case "value":
		return a.Value.Present()
	case "isEditable":
		return a.IsEditable != nil
	case "passToServer":
		return a.PassToServer != nil
	case "source":
		return a.Source != nil
	}
	return false
}

// FilterStrings returns the filter entries as strings.
func (a Attribute) FilterStrings() []string {
	if a.Filter == nil {
		return nil
	}
	out := make([]string, len(a.Filter))
	for i, f := range a.Filter {
		out[i] = f.Text()
	}
	return out
}

// Clone returns a deep enough copy: slices and pointers are not shared.
func (a Attribute) Clone() Attribute {
	out := a
	out.DisplayName = clonePtr(a.DisplayName)
	out.Domain = clonePtr(a.Domain)
	out.IsEditable = clonePtr(a.IsEditable)
	out.PassToServer = clonePtr(a.PassToServer)
	out.Source = clonePtr(a.Source)
	if a.Filter != nil {
		out.Filter = append([]Value{}, a.Filter...)
	}
	return out
}

// Merge overlays every property override gives onto base.
func Merge(base, override Attribute) Attribute {
	out := base.Clone()
	o := override.Clone()
	if o.DisplayName != nil {
		out.DisplayName = o.DisplayName
	}
	if o.Domain != nil {
		out.Domain = o.Domain
	}
	if o.Filter != nil {
		out.Filter = o.Filter
	}
	if o.Value.Present() {
		out.Value = o.Value
	}
	if o.IsEditable != nil {
		out.IsEditable = o.IsEditable
	}
	if o.PassToServer != nil {
		out.PassToServer = o.PassToServer
	}
	if o.Source != nil {
		out.Source = o.Source
	}
	return out
}

// Table is an ordered attribute table. Order is display order.
type Table []Attribute

// Index returns the position of the first row named attr, or -1.
func (t Table) Index(attr string) int {
	for i, a := range t {
		if a.Attr == attr {
			return i
		}
	}
	return -1
}

// Get returns the first row named attr.
func (t Table) Get(attr string) (Attribute, bool) {
	if i := t.Index(attr); i >= 0 {
		return t[i], true
	}
	return Attribute{}, false
}

// Clone copies every row.
func (t Table) Clone() Table {
	if t == nil {
		return nil
	}
	out := make(Table, len(t))
	for i, a := range t {
		out[i] = a.Clone()
	}
	return out
}

// MergeTables overlays override onto base. A row of override replaces the
// properties it gives on every base row with the same attr; rows with new
// attr names are appended in override order. Neither input is modified.
func MergeTables(base, override Table) Table {
	out := base.Clone()
	for _, o := range override {
		found := false
		for i := range out {
			if out[i].Attr == o.Attr {
				out[i] = Merge(out[i], o)
				found = true
			}
		}
		if !found {
			out = append(out, o.Clone())
		}
	}
	return out
}

// Value returns the value of attr, Absent when the row is missing.
func (t Table) Value(attr string) Value {
	a, _ := t.Get(attr)
	return a.Value
}

// Text returns the value of attr as text, "" when it is missing, null or
// blank.
func (t Table) Text(attr string) string {
	v := t.Value(attr)
	if v.Blank() {
		return ""
	}
	return v.Text()
}

// SetValue sets the value of the first row named attr. It reports false
// when there is no such row.
func (t Table) SetValue(attr string, v Value) bool {
	i := t.Index(attr)
	if i < 0 {
		return false
	}
	t[i].Value = v
	return true
}

// Displayed returns the rows with a non-blank display name.
func (t Table) Displayed() Table {
	var out Table
	for _, a := range t {
		if strings.TrimSpace(a.Display()) != "" {
			out = append(out, a)
		}
	}
	return out
}

// Passed returns the rows sent to the export service.
func (t Table) Passed() Table {
	var out Table
	for _, a := range t {
		if a.Passed() {
			out = append(out, a)
		}
	}
	return out
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Ptr returns a pointer to v, for building attribute rows.
func Ptr[T any](v T) *T { return &v }
