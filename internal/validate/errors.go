package validate

import (
	"fmt"
	"strings"
)

// Severity of a validation error.
type Severity int

const (
	// Fatal problems make the catalog unusable; callers should refuse to
	// start with it.
	Fatal Severity = iota
	// Warning problems may be transient, like an unreachable layer.
	Warning
)

func (s Severity) String() string {
	if s == Warning {
		return "warning"
	}
	return "error"
}

func (s Severity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Severity) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "warning":
		*s = Warning
	case "error", "fatal":
		*s = Fatal
	default:
		return fmt.Errorf("unknown severity %q", b)
	}
	return nil
}

// Kind classifies an error by the check that produced it.
type Kind string

const (
	KindSchema                Kind = "schema"
	KindDomainNotDefined      Kind = "domainNotDefined"
	KindDomainValueInvalid    Kind = "domainValueInvalid"
	KindBasemapLayerInvalid   Kind = "basemapLayerInvalid"
	KindTableNotDefined       Kind = "tableNotDefined"
	KindPassToServerRedefined Kind = "passToServerRedefined"
	KindValueNotDefined       Kind = "valueNotDefined"
	KindValueNotExpected      Kind = "valueNotExpected"
	KindTooManyDefined        Kind = "tooManyDefined"
	KindUnknownUnits          Kind = "unknownUnits"
	KindInvalidNumber         Kind = "invalidNumber"
	KindTableDomainNotDefined Kind = "tableDomainNotDefined"
	KindTableInvalidValue     Kind = "tableInvalidValue"
	KindPropertyNotFound      Kind = "propertyNotFound"
	KindSettingNotDefined     Kind = "settingNotDefined"
	KindFieldNotFound         Kind = "fieldNotFound"
	KindFieldsUnavailable     Kind = "fieldsUnavailable"
)

// Error is one problem found in a catalog.
type Error struct {
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	Kind     Kind     `json:"kind"`
}

func (e Error) String() string {
	return e.Severity.String() + ": " + e.Message
}

func fatal(kind Kind, format string, args ...any) Error {
	return Error{Message: fmt.Sprintf(format, args...), Severity: Fatal, Kind: kind}
}

func warning(kind Kind, format string, args ...any) Error {
	return Error{Message: fmt.Sprintf(format, args...), Severity: Warning, Kind: kind}
}

// Messages. Paths inside them use the catalog's own names.

func schemaError(path, msg string) Error {
	return fatal(KindSchema, "property : %s\nmessage :  %s", path, msg)
}

func domainNotDefined(i int, domain string) Error {
	return fatal(KindDomainNotDefined, "ProductTypes[%d] refers to domain '%s' which is not defined.", i, domain)
}

func domainValueInvalid(domain, value string) Error {
	return fatal(KindDomainValueInvalid, "%s.value is (%s) but it should be a special separator value (-)", domain, value)
}

func basemapLayerInvalid(layer string) Error {
	return fatal(KindBasemapLayerInvalid, "AppLevelSettings.defaultBasemapLayer (%s) is not listed in 'BasemapLayers[].value'", layer)
}

func tableNotDefined(table, ref string) Error {
	return fatal(KindTableNotDefined, "Attribute table (%s) is not defined, referenced from: %s", table, ref)
}

func passToServerRedefined(table, attr string) Error {
	return fatal(KindPassToServerRedefined, "passToServer redefined: %s['%s']", table, attr)
}

func valueNotDefined(msg string) Error {
	return fatal(KindValueNotDefined, "'%s' is not defined.", msg)
}

func valueNotExpected(msg, got, want string) Error {
	return fatal(KindValueNotExpected, "'%s' is of type '%s', while '%s' was expected.", msg, got, want)
}

func tooManyDefined(msg string) Error {
	return fatal(KindTooManyDefined, "%s has too many values defined.", msg)
}

func unknownUnits(msg string) Error {
	return fatal(KindUnknownUnits, "%s specifies unknown measurement units.", msg)
}

func invalidNumber(msg, number string) Error {
	return fatal(KindInvalidNumber, "%s specifies incorrect numeric value: %s", msg, number)
}

func tableDomainNotDefined(table string, row int, domain string) Error {
	return fatal(KindTableDomainNotDefined, "%s[%d].domain refers to domain (%s) which is not defined.", table, row, domain)
}

func tableInvalidValue(table string, row int, value, domain string) Error {
	return fatal(KindTableInvalidValue, "%s['%d'].value (%s) is not listed in %s[].value", table, row, value, domain)
}

func propertyNotFound(attr, layer, field string) Error {
	return fatal(KindPropertyNotFound, "Attribute %s refers to a property %s.%s which cannot be found.", attr, layer, field)
}

func settingNotDefined(name string) Error {
	return fatal(KindSettingNotDefined, "The requested setting (%s) is not defined in the configuration file.", name)
}
