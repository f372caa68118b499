package catalog

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePath = "../../configs/podconfig.yaml"

func TestMergeTables(t *testing.T) {
	base := Table{
		{Attr: "exporter", Domain: Ptr("Exporters"), Value: StringValue("PDF"), PassToServer: Ptr(true)},
		{Attr: "scale", Value: NumberValue(500000)},
	}
	override := Table{
		{Attr: "scale", Value: NumberValue(25000), IsEditable: Ptr(false)},
		{Attr: "quad_id", Source: Ptr("data1")},
	}

	got := MergeTables(base, override)
	want := Table{
		{Attr: "exporter", Domain: Ptr("Exporters"), Value: StringValue("PDF"), PassToServer: Ptr(true)},
		{Attr: "scale", Value: NumberValue(25000), IsEditable: Ptr(false)},
		{Attr: "quad_id", Source: Ptr("data1")},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("MergeTables mismatch (-want +got):\n%s", diff)
	}

	// inputs untouched
	assert.Equal(t, 500000.0, base[1].Value.Raw())
	assert.Len(t, base, 2)

	got[0].PassToServer = Ptr(false)
	assert.True(t, base[0].Passed())
}

func TestMergeKeepsUnspecified(t *testing.T) {
	m := Merge(
		Attribute{Attr: "orientation", DisplayName: Ptr("Orientation"), Filter: []Value{StringValue("Portrait"), StringValue("Landscape")}},
		Attribute{Attr: "orientation", DisplayName: Ptr("")},
	)
	assert.Equal(t, "", m.Display())
	assert.Equal(t, []string{"Portrait", "Landscape"}, m.FilterStrings())

	// explicit null overrides
	m = Merge(Attribute{Attr: "mapExtent", Value: ObjectValue(map[string]any{"xmin": 1.0})}, Attribute{Attr: "mapExtent", Value: NullValue()})
	assert.Equal(t, Null, m.Value.Kind())
}

func TestValueTruthy(t *testing.T) {
	tests := []struct {
		v    Value
		want bool
	}{
		{Value{}, false},
		{NullValue(), false},
		{BoolValue(false), false},
		{NumberValue(0), false},
		{StringValue(""), false},
		{StringValue("0"), true},
		{NumberValue(1000), true},
		{StringsValue(nil), true},
		{ObjectValue(map[string]any{}), true},
	}
	for _, tt := range tests {
		t.Run(tt.v.Kind().String()+"/"+tt.v.Text(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.v.Truthy())
		})
	}
}

func TestValueEqualFold(t *testing.T) {
	assert.True(t, StringValue("light gray canvas").EqualFold(StringValue("Light Gray Canvas")))
	assert.False(t, StringValue("light gray canvas").Equal(StringValue("Light Gray Canvas")))
	assert.False(t, StringValue("500000").EqualFold(NumberValue(500000)))
	assert.True(t, NumberValue(500000).EqualFold(NumberValue(500000)))
}

func TestValueJSON(t *testing.T) {
	a := Attribute{Attr: "scale", Value: NumberValue(25000)}
	data, err := json.Marshal(a)
	require.NoError(t, err)
	assert.JSONEq(t, `{"attr":"scale","value":25000}`, string(data))

	// absent value is omitted, null is kept
	data, err = json.Marshal(Attribute{Attr: "geometry"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"attr":"geometry"}`, string(data))
	data, err = json.Marshal(Attribute{Attr: "mapExtent", Value: NullValue()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"attr":"mapExtent","value":null}`, string(data))

	var back Attribute
	require.NoError(t, json.Unmarshal([]byte(`{"attr":"filter","filter":["a","b"],"value":null}`), &back))
	assert.Equal(t, Null, back.Value.Kind())
	assert.Equal(t, []string{"a", "b"}, back.FilterStrings())
}

func TestParseNormalizesNumbers(t *testing.T) {
	c, err := Parse([]byte(`
ScaleList:
  - { value: 5000, displayName: "1:5,000" }
Nested:
  - { attr: mapExtent, value: { xmin: 1, spatialReference: { wkid: 102100 } } }
`))
	require.NoError(t, err)

	d, ok := c.Domain(ScaleList)
	require.True(t, ok)
	n, ok := d.Entries[0].Value().Num()
	require.True(t, ok)
	assert.Equal(t, 5000.0, n)

	tbl, ok := c.Table("Nested")
	require.True(t, ok)
	wkid, ok := tbl.Value("mapExtent").Field("spatialReference").Field("wkid").Num()
	require.True(t, ok)
	assert.Equal(t, 102100.0, wkid)
}

func TestParseInvalid(t *testing.T) {
	_, err := Parse([]byte("AppLevelSettings: [\n"))
	assert.Error(t, err)
}

func TestDomainContains(t *testing.T) {
	d := Domain{Name: "Exporters", Entries: []Entry{
		{"value": StringValue("PDF")},
		{"value": StringValue("Map Package")},
	}}
	assert.True(t, d.Contains(StringValue("pdf")))
	assert.True(t, d.Contains(StringValue("MAP PACKAGE")))
	assert.False(t, d.Contains(StringValue("PNG")))
	assert.True(t, d.Contains(StringValue("")))
	assert.True(t, d.Contains(NullValue()))

	e, ok := d.Lookup(StringValue("map package"))
	require.True(t, ok)
	assert.Equal(t, "Map Package", e.Text("value"))
}

func TestAttributeMapRoundTrip(t *testing.T) {
	m := map[string]any{
		"attr":         "exporter",
		"displayName":  "Export Format",
		"domain":       "Exporters",
		"value":        "PDF",
		"passToServer": true,
		"isEditable":   true,
		"filter":       []any{"PDF", "JPEG"},
	}
	a := AttributeFromMap(m)
	assert.True(t, a.Passed())
	assert.True(t, a.Editable())
	assert.True(t, a.HasProperty("domain"))
	assert.False(t, a.HasProperty("source"))
	if diff := cmp.Diff(m, a.Map()); diff != "" {
		t.Errorf("Map mismatch (-want +got):\n%s", diff)
	}

	// wrong-typed properties are dropped
	a = AttributeFromMap(map[string]any{"attr": "x", "passToServer": "yes"})
	assert.False(t, a.HasProperty("passToServer"))
}

func TestSampleCatalog(t *testing.T) {
	c, err := Load(samplePath)
	require.NoError(t, err)

	assert.Equal(t, "Light Gray Canvas", c.SettingText("defaultBasemapLayer"))
	assert.True(t, c.SettingBool("isDataFieldChecks"))

	defs := c.ProductDefinitions()
	require.Len(t, defs, 4)
	assert.Equal(t, ProductDefinition{AttrTable: "Fixed25KTable", InstanceTable: "Fixed25KInstanceTable"}, defs[0])

	base, err := c.RequireTable(BaseProductTable)
	require.NoError(t, err)
	exp, ok := base.Get("exporter")
	require.True(t, ok)
	assert.Equal(t, "Exporters", exp.DomainName())

	cmds, ok := c.Domain(MapCommands)
	require.True(t, ok)
	assert.Equal(t, "-", cmds.Entries[0].Text("value"))
}

func TestNotDefined(t *testing.T) {
	c := New(nil)

	_, err := c.RequireSetting("gpExportGatewayUrl")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotDefined))
	assert.Contains(t, err.Error(), "gpExportGatewayUrl")

	_, err = c.RequireTable("NoSuchTable")
	var nd *NotDefinedError
	require.ErrorAs(t, err, &nd)
	assert.Equal(t, "table", nd.What)
}

func TestParseKeyOrder(t *testing.T) {
	c, err := Parse([]byte("Zulu:\n  b: 1\n  a: 2\nAlpha:\n  - { z: 1, y: 2 }\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Zulu", "Alpha"}, c.KeyOrder(""))
	assert.Equal(t, []string{"b", "a"}, c.KeyOrder("Zulu"))
	assert.Equal(t, []string{"z", "y"}, c.KeyOrder("Alpha[0]"))
	assert.Nil(t, New(map[string]any{"a": 1}).KeyOrder(""))
}
