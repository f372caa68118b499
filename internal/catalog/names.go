package catalog

// AttributeName is an attribute name the application knows. Catalogs may
// define any other attribute; those are passed through untyped.
type AttributeName string

const (
	AttrType                  AttributeName = "type"
	AttrProductName           AttributeName = "productName"
	AttrDescription           AttributeName = "description"
	AttrMakeMapScript         AttributeName = "makeMapScript"
	AttrToolName              AttributeName = "toolName"
	AttrLayersOverride        AttributeName = "layersOverride"
	AttrImageOverride         AttributeName = "imageOverride"
	AttrExtentLayer           AttributeName = "extentLayer"
	AttrBasemapLayer          AttributeName = "basemapLayer"
	AttrMapExtent             AttributeName = "mapExtent"
	AttrMXD                   AttributeName = "mxd"
	AttrGridXML               AttributeName = "gridXml"
	AttrLayoutRulesXML        AttributeName = "layoutrulesXML"
	AttrPageMargin            AttributeName = "pageMargin"
	AttrExporter              AttributeName = "exporter"
	AttrExportOption          AttributeName = "exportOption"
	AttrGeometry              AttributeName = "geometry"
	AttrAngle                 AttributeName = "angle"
	AttrScale                 AttributeName = "scale"
	AttrPageSize              AttributeName = "pageSize"
	AttrOrientation           AttributeName = "orientation"
	AttrMapCommandDefault     AttributeName = "mapCommandDefault"
	AttrMapCommandButtons     AttributeName = "mapCommandButtons"
	AttrMapCommandContextMenu AttributeName = "mapCommandContextMenu"
	AttrRoundToNearest        AttributeName = "roundToNearest"
	AttrThumbnail             AttributeName = "thumbnail"
	AttrUnits                 AttributeName = "units"
	AttrWidth                 AttributeName = "width"
	AttrHeight                AttributeName = "height"
	AttrMapSheetName          AttributeName = "mapSheetName"
	AttrCustomName            AttributeName = "customName"
)

// ValueType is the value type an attribute name requires.
type ValueType int

const (
	AnyType ValueType = iota
	BoolType
	StringType
	NumberType
	// MapExtentType is an optional object with numeric xmin, ymin, xmax,
	// ymax and spatialReference.wkid.
	MapExtentType
	// PageMarginType is an optional string in margin syntax.
	PageMarginType
)

func (t ValueType) String() string {
	switch t {
	case BoolType:
		return "boolean"
	case StringType, PageMarginType:
		return "string"
	case NumberType:
		return "number"
	case MapExtentType:
		return "object"
	}
	return "any"
}

// TableRole is the part an attribute table plays in a catalog.
type TableRole int

const (
	BaseRole TableRole = iota
	BaseInstanceRole
	ProductRole
	InstanceRole
)

func (r TableRole) String() string {
	switch r {
	case BaseRole:
		return "base"
	case BaseInstanceRole:
		return "base instance"
	case ProductRole:
		return "product"
	}
	return "instance"
}

var (
	boolNames = map[AttributeName]bool{
		AttrLayersOverride: true,
		AttrImageOverride:  true,
	}
	stringNames = map[AttributeName]bool{
		AttrBasemapLayer:      true,
		AttrDescription:       true,
		AttrExporter:          true,
		AttrExtentLayer:       true,
		AttrGridXML:           true,
		AttrMakeMapScript:     true,
		AttrMapCommandDefault: true,
		AttrMXD:               true,
		AttrOrientation:       true,
		AttrPageMargin:        true,
		AttrPageSize:          true,
		AttrProductName:       true,
		AttrThumbnail:         true,
		AttrType:              true,
		AttrLayoutRulesXML:    true,
		AttrUnits:             true,
	}
	numberNames = map[AttributeName]bool{
		AttrScale: true,
	}
)

// RequiredType returns the type a row named n must carry in a table of the
// given role, AnyType when the name is unchecked there. Booleans are checked
// in every table; strings and numbers only in product tables, where
// templates are written.
func (n AttributeName) RequiredType(role TableRole) ValueType {
	switch {
	case boolNames[n]:
		return BoolType
	case role != ProductRole:
		return AnyType
	case stringNames[n]:
		return StringType
	case numberNames[n]:
		return NumberType
	}
	return AnyType
}

// Mandatory reports whether a row named n in a table of the given role must
// carry a value of its RequiredType.
func (n AttributeName) Mandatory(role TableRole) bool {
	return n.RequiredType(role) != AnyType
}

// Structure returns MapExtentType or PageMarginType for the attributes whose
// value has an inner structure, checked in every table when set, and
// AnyType for the rest.
func (n AttributeName) Structure() ValueType {
	switch n {
	case AttrMapExtent:
		return MapExtentType
	case AttrPageMargin:
		return PageMarginType
	}
	return AnyType
}

// Matches reports whether v satisfies t. AnyType, MapExtentType and
// PageMarginType accept anything here; their structure is checked
// separately.
func (t ValueType) Matches(v Value) bool {
	switch t {
	case BoolType:
		return v.Kind() == Bool
	case StringType:
		return v.Kind() == String
	case NumberType:
		return v.Kind() == Number
	}
	return true
}
