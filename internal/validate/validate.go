// Package validate checks a product catalog for structural and referential
// problems: schema conformance, dangling domain references, values missing
// from their domains, wrongly typed attributes, redefined passToServer
// flags and, optionally, extent layer fields that do not exist on the
// server.
package validate

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/joeblew999/plat-pod/internal/catalog"
	"github.com/joeblew999/plat-pod/internal/page"
	"github.com/joeblew999/plat-pod/internal/schema"
)

// DefaultWorkers bounds concurrent field list requests.
const DefaultWorkers = 4

// Validator checks catalogs. The zero value runs every synchronous check
// and skips remote field checks.
type Validator struct {
	// Lister fetches layer field lists. Nil skips remote field checks.
	Lister FieldLister
	// FieldChecks overrides the catalog's isDataFieldChecks setting.
	FieldChecks *bool
	// Workers bounds concurrent field list requests; zero means
	// DefaultWorkers.
	Workers int
	Logger  *slog.Logger
}

// Check runs the synchronous checks on c and returns the errors found.
func Check(c *catalog.Catalog) []Error {
	s := NewSession(nil)
	var v Validator
	v.check(c, s)
	return s.Errors()
}

// Run validates c into sess. Synchronous problems are in sess when Run
// returns. Remote field checks continue in the background and report into
// sess as responses arrive; the returned FieldCheck resolves once all of
// them have completed. Cancelling ctx abandons outstanding requests.
func (v *Validator) Run(ctx context.Context, c *catalog.Catalog, sess *Session) *FieldCheck {
	r := v.check(c, sess)

	enabled := c.SettingBool("isDataFieldChecks")
	if v.FieldChecks != nil {
		enabled = *v.FieldChecks
	}
	if !enabled || v.Lister == nil {
		return resolved()
	}
	return v.dispatch(ctx, r.planFieldChecks(), sess)
}

func (v *Validator) logger() *slog.Logger {
	if v.Logger == nil {
		return slog.Default()
	}
	return v.Logger
}

type run struct {
	c    *catalog.Catalog
	s    *Session
	log  *slog.Logger
	base catalog.Table
	inst catalog.Table
}

func (r *run) report(e Error) { r.s.Report(e) }

func (v *Validator) check(c *catalog.Catalog, s *Session) *run {
	r := &run{c: c, s: s, log: v.logger()}
	r.base, _ = c.Table(catalog.BaseProductTable)
	r.inst, _ = c.Table(catalog.BaseProductInstanceTable)
	defs := c.ProductDefinitions()

	r.schema("", c.Raw(), CatalogSchema)
	for _, def := range defs {
		if raw, ok := c.Raw()[def.AttrTable]; ok && def.AttrTable != "" {
			r.schema(def.AttrTable, raw, ProductTableSchema)
		}
		if raw, ok := c.Raw()[def.InstanceTable]; ok && def.InstanceTable != "" {
			r.schema(def.InstanceTable, raw, InstanceTableSchema)
		}
	}

	r.productTypes()
	r.mapCommands()
	r.basemapLayer()

	r.attributes(catalog.BaseProductTable, r.base, catalog.BaseRole)
	r.domains(catalog.BaseProductTable, r.base)

	r.attributes(catalog.BaseProductInstanceTable, r.inst, catalog.BaseInstanceRole)
	r.domains(catalog.BaseProductInstanceTable, r.inst, r.base)
	r.redefined(catalog.BaseProductInstanceTable, r.inst, r.base)

	for i, def := range defs {
		// A missing product table still leaves the instance table to check.
		prod, ok := c.Table(def.AttrTable)
		if !ok {
			r.report(tableNotDefined(def.AttrTable, fmt.Sprintf("%s[%d].attrTable", catalog.ProductDefinitions, i)))
		} else {
			r.attributes(def.AttrTable, prod, catalog.ProductRole)
			r.domains(def.AttrTable, prod, r.base)

			r.domains(catalog.BaseProductInstanceTable, r.inst, r.base, prod)
			r.redefined(catalog.BaseProductInstanceTable, r.inst, prod)
		}

		if def.InstanceTable == "" {
			continue
		}
		inst, ok := c.Table(def.InstanceTable)
		if !ok {
			r.report(tableNotDefined(def.InstanceTable, fmt.Sprintf("%s[%d].instanceTable", catalog.ProductDefinitions, i)))
			continue
		}
		r.attributes(def.InstanceTable, inst, catalog.InstanceRole)
		r.domains(def.InstanceTable, inst, r.base, prod, r.inst)
		r.redefined(def.InstanceTable, inst, r.inst, prod)
	}
	return r
}

func (r *run) schema(name string, v any, s *schema.Schema) {
	order := func(path string) []string { return r.c.KeyOrder(within(name, path)) }
	for _, vi := range schema.ValidateOrdered(v, s, order) {
		r.report(schemaError(within(name, vi.Path), vi.Message))
	}
}

// within places a path relative to the top-level entry name.
func within(name, path string) string {
	switch {
	case name == "":
		return path
	case path == "" || path[0] == '[':
		return name + path
	}
	return name + "." + path
}

func (r *run) productTypes() {
	types, _ := r.c.Domain(catalog.ProductTypes)
	for i, e := range types.Entries {
		if src := e.Text("source"); src != "" && !r.c.Has(src) {
			r.report(domainNotDefined(i, src))
		}
	}
}

func (r *run) mapCommands() {
	cmds, _ := r.c.Domain(catalog.MapCommands)
	if len(cmds.Entries) == 0 {
		return
	}
	if v := cmds.Entries[0].Value(); v.Text() != "-" {
		r.report(domainValueInvalid(catalog.MapCommands+"[0]", v.Text()))
	}
}

func (r *run) basemapLayer() {
	v, err := r.c.RequireSetting("defaultBasemapLayer")
	if err != nil {
		r.report(settingNotDefined("defaultBasemapLayer"))
		return
	}
	layers, _ := r.c.Domain(catalog.BasemapLayers)
	for _, e := range layers.Entries {
		if e.Value().EqualFold(v) {
			return
		}
	}
	r.report(basemapLayerInvalid(v.Text()))
}

// attributes checks the value types of known attribute names and the inner
// structure of mapExtent and pageMargin values.
func (r *run) attributes(name string, t catalog.Table, role catalog.TableRole) {
	for _, a := range t {
		n := a.Name()
		msg := fmt.Sprintf("Property %s['%s'].value", name, a.Attr)
		where := fmt.Sprintf("%s['%s'].value", name, a.Attr)

		mandatory := n.Mandatory(role)
		if mandatory {
			r.checkType(a.Value, n.RequiredType(role).String(), msg)
		}
		if !a.Value.Truthy() {
			continue
		}

		switch n.Structure() {
		case catalog.MapExtentType:
			if r.checkType(a.Value, "object", msg) {
				for _, f := range []string{"xmin", "ymin", "xmax", "ymax"} {
					r.checkType(a.Value.Field(f), "number", where+"."+f)
				}
				wkid := a.Value.Field("spatialReference").Field("wkid")
				r.checkType(wkid, "number", where+".spatialReference.wkid")
			}
		case catalog.PageMarginType:
			s, ok := a.Value.Str()
			if !ok {
				if !mandatory {
					r.checkType(a.Value, "string", msg)
				}
				continue
			}
			for _, p := range page.LintMargin(s) {
				switch p.Kind {
				case page.TooManyValues:
					r.report(tooManyDefined(where))
				case page.UnknownUnits:
					r.report(unknownUnits(where))
				case page.InvalidNumber:
					r.report(invalidNumber(where, p.Token))
				}
			}
		}
	}
}

// checkType reports v missing or not of the wanted type.
func (r *run) checkType(v catalog.Value, want, msg string) bool {
	switch v.Kind() {
	case catalog.Absent, catalog.Null:
		r.report(valueNotDefined(msg))
		return false
	}
	if got := typeName(v); got != want {
		r.report(valueNotExpected(msg, got, want))
		return false
	}
	return true
}

func typeName(v catalog.Value) string {
	switch v.Kind() {
	case catalog.Bool:
		return "boolean"
	case catalog.String:
		return "string"
	case catalog.Number:
		return "number"
	case catalog.Absent:
		return "undefined"
	}
	return "object"
}

// domains checks that values and filter entries are listed in the row's
// domain. A row without a usable domain of its own takes the domain of the
// same attribute in the first base table that declares one.
func (r *run) domains(name string, t catalog.Table, bases ...catalog.Table) {
	for i, a := range t {
		domain := a.DomainName()
		if domain != "" && !r.c.Has(domain) {
			r.report(tableDomainNotDefined(name, i, domain))
			domain = ""
		}
		if domain == "" {
			domain = r.inheritedDomain(a.Attr, bases)
		}

		if domain == "" {
			if a.Value.Truthy() && a.Filter != nil && !slices.ContainsFunc(a.Filter, a.Value.Equal) {
				r.report(tableInvalidValue(name, i, a.Value.Text(), "filter"))
			}
			continue
		}

		d, _ := r.c.Domain(domain)
		if !d.Contains(a.Value) {
			r.report(tableInvalidValue(name, i, a.Value.Text(), domain))
		}
		for _, f := range a.Filter {
			if !d.Contains(f) {
				r.report(tableInvalidValue(name, i, f.Text(), domain))
			}
		}
	}
}

func (r *run) inheritedDomain(attr string, bases []catalog.Table) string {
	for _, b := range bases {
		for _, ba := range b {
			if ba.Attr == attr && ba.DomainName() != "" && r.c.Has(ba.DomainName()) {
				return ba.DomainName()
			}
		}
	}
	return ""
}

// redefined reports rows that set passToServer on an attribute a base
// table already sets it on.
func (r *run) redefined(name string, t catalog.Table, bases ...catalog.Table) {
	for _, a := range t {
		if a.PassToServer == nil {
			continue
		}
		for _, b := range bases {
			if ba, ok := b.Get(a.Attr); ok && ba.PassToServer != nil {
				r.report(passToServerRedefined(name, a.Attr))
				break
			}
		}
	}
}
