package validate

import (
	"github.com/joeblew999/plat-pod/internal/schema"
)

var (
	str     = &schema.Schema{Type: schema.Types(schema.String)}
	num     = &schema.Schema{Type: schema.Types(schema.Number)}
	boolean = &schema.Schema{Type: schema.Types(schema.Boolean)}
	anyType = &schema.Schema{Type: schema.Types(schema.Any)}
	uri     = &schema.Schema{Type: schema.Types(schema.String), Format: "uri"}
	strList = &schema.Schema{Type: schema.Types(schema.Array), Items: str}
)

func object(props map[string]*schema.Schema, required ...string) *schema.Schema {
	return &schema.Schema{Type: schema.Types(schema.Object), Properties: props, Required: required}
}

func closed(s *schema.Schema) *schema.Schema {
	s.AdditionalProperties = schema.Closed()
	return s
}

func arrayOf(items *schema.Schema) *schema.Schema {
	return &schema.Schema{Type: schema.Types(schema.Array), Items: items}
}

// CatalogSchema is the structure of a whole catalog. Product and instance
// tables are listed in ProductDefinitions and checked with ProductTableSchema
// and InstanceTableSchema.
var CatalogSchema = object(map[string]*schema.Schema{
	"AppLevelSettings": closed(object(map[string]*schema.Schema{
		"logoImage":           str,
		"applicationTitle":    str,
		"applicationSubtitle": str,
		"SplashScreen": object(map[string]*schema.Schema{
			"enable":        boolean,
			"enableContact": boolean,
			"title":         str,
			"text":          str,
			"email":         str,
			"emailAlias":    str,
			"website":       str,
		}, "enable", "enableContact", "title", "text", "email", "emailAlias", "website"),
		"isSplash":            boolean,
		"isSplashContactInfo": boolean,
		"splashTitle":         str,
		"splashText":          str,
		"splashEmailDesc":     str,
		"splashEmail": {
			Type:    schema.Types(schema.String),
			Pattern: `^([a-z0-9_-]+\.)*[a-z0-9_-]+@[a-z0-9_-]+(\.[a-z0-9_-]+)*\.[a-z]{2,6}$`,
		},
		"splashEmailAlias":          str,
		"splashWebsiteDesc":         str,
		"splashWebsite":             str,
		"splashDoNotShow":           str,
		"isExportedFilesAliveCheck": boolean,
		"maxProductsInExportGrid":   num,
		"maxProductsToExport":       num,
		"isDataFieldChecks":         boolean,
		"defaultBasemapLayer":       str,
		"geocodeServiceUrl":         str,
		"geometryServiceUrl":        str,
		"gpCalculateExtentUrl":      str,
		"gpCalculateStripMapUrl":    str,
		"gpCalculatePageSizeUrl":    str,
		"gpCalculateScaleUrl":       str,
		"gpExportGatewayUrl":        str,
	},
		"logoImage", "applicationTitle", "isSplash", "isSplashContactInfo", "splashTitle", "splashText",
		"splashEmailDesc", "splashEmail", "splashEmailAlias", "splashWebsiteDesc", "splashWebsite", "splashDoNotShow",
		"isExportedFilesAliveCheck", "maxProductsInExportGrid", "maxProductsToExport", "isDataFieldChecks",
		"defaultBasemapLayer", "geocodeServiceUrl", "geometryServiceUrl", "gpCalculateExtentUrl",
		"gpCalculateStripMapUrl", "gpCalculatePageSizeUrl", "gpCalculateScaleUrl", "gpExportGatewayUrl",
	)),

	"ProductTypes": arrayOf(closed(object(map[string]*schema.Schema{
		"value":  {Enum: []any{"Fixed", "Area", "Scale", "PageSize"}},
		"source": {Type: schema.Types(schema.String, schema.Null)},
	}, "value", "source"))),

	"ExtentLayers": arrayOf(closed(object(map[string]*schema.Schema{
		"value":    str,
		"url":      uri,
		"sublayer": num,
		"data0":    str,
		"data1":    str,
		"oidField": str,
	}, "value", "url", "sublayer", "data0"))),

	"BasemapLayers": arrayOf(closed(object(map[string]*schema.Schema{
		"value":    str,
		"url":      uri,
		"oidField": str,
	}, "value", "url"))),

	"Exporters": arrayOf(closed(object(map[string]*schema.Schema{
		"value":      str,
		"extensions": str,
	}, "value", "extensions"))),

	"ScaleList": arrayOf(closed(object(map[string]*schema.Schema{
		"value":       num,
		"displayName": str,
	}, "value", "displayName"))),

	"PageSizeList": arrayOf(closed(object(map[string]*schema.Schema{
		"value":       str,
		"displayName": str,
		"tooltip":     str,
		"width":       num,
		"height":      num,
		"units":       {Enum: []any{"INCHES", "POINTS", "MILLIMETERS", "CENTIMETERS"}},
	}, "value", "displayName", "tooltip"))),

	"MapCommands": {
		Type: schema.Types(schema.Array),
		Items: closed(object(map[string]*schema.Schema{
			"value":       str,
			"displayName": str,
			"image":       str,
			"tooltip":     str,
		}, "value", "displayName", "image", "tooltip")),
		MinItems: 2,
	},

	"BaseProductTable": arrayOf(object(map[string]*schema.Schema{
		"attr":         str,
		"domain":       str,
		"displayName":  str,
		"passToServer": boolean,
		"value":        anyType,
		"isEditable":   boolean,
		"filter":       strList,
	}, "attr")),

	"BaseProductInstanceTable": arrayOf(object(map[string]*schema.Schema{
		"attr":         str,
		"displayName":  str,
		"source":       str,
		"passToServer": boolean,
		"isEditable":   boolean,
	}, "attr")),

	"ProductDefinitions": arrayOf(closed(object(map[string]*schema.Schema{
		"attrTable":     str,
		"instanceTable": str,
	}, "attrTable"))),
},
	"AppLevelSettings", "ProductTypes", "ExtentLayers", "BasemapLayers", "Exporters", "ScaleList",
	"PageSizeList", "MapCommands", "BaseProductTable", "BaseProductInstanceTable", "ProductDefinitions",
)

// ProductTableSchema is the structure of a product attribute table.
var ProductTableSchema = arrayOf(closed(object(map[string]*schema.Schema{
	"attr":         str,
	"displayName":  str,
	"domain":       str,
	"value":        anyType,
	"isEditable":   boolean,
	"filter":       strList,
	"source":       str,
	"passToServer": boolean,
}, "attr")))

// InstanceTableSchema is the structure of a product instance table.
var InstanceTableSchema = arrayOf(closed(object(map[string]*schema.Schema{
	"attr":        str,
	"displayName": str,
	"isEditable":  boolean,
	"source":      str,
}, "attr")))
