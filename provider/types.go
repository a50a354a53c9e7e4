// Copyright 2026 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package provider

import (
	"database/sql/driver"
	"encoding/xml"
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cast"
)

// DBType is the database facing type of a parameter.
type DBType int

const (
	Unknown DBType = iota
	Boolean
	Int16
	Int32
	Int64
	Single
	Double
	Decimal
	String
	Binary
	Date
	DateTime
	GUID
	XMLType
	Object
)

var dbTypeNames = [...]string{
	Unknown:  "unknown",
	Boolean:  "boolean",
	Int16:    "int16",
	Int32:    "int32",
	Int64:    "int64",
	Single:   "single",
	Double:   "double",
	Decimal:  "decimal",
	String:   "string",
	Binary:   "binary",
	Date:     "date",
	DateTime: "datetime",
	GUID:     "guid",
	XMLType:  "xml",
	Object:   "object",
}

func (t DBType) String() string {
	if t < 0 || int(t) >= len(dbTypeNames) {
		return fmt.Sprintf("DBType(%d)", int(t))
	}
	return dbTypeNames[t]
}

// XML is XML text. Values of this type are bound as XML parameters and XML
// result columns are returned as XML.
type XML string

// XMLDocument wraps a value that is serialised with encoding/xml when bound
// as a parameter.
type XMLDocument struct {
	Value any
}

var (
	timeType         = reflect.TypeOf(time.Time{})
	uuidType         = reflect.TypeOf(uuid.UUID{})
	bytesType        = reflect.TypeOf([]byte(nil))
	xmlMarshalerType = reflect.TypeOf((*xml.Marshaler)(nil)).Elem()
	driverValuerType = reflect.TypeOf((*driver.Valuer)(nil)).Elem()
)

// IsXMLValue reports whether v carries XML content.
func IsXMLValue(v any) bool {
	switch v.(type) {
	case XML, *XML, XMLDocument, *XMLDocument:
		return true
	}
	return v != nil && reflect.TypeOf(v).Implements(xmlMarshalerType)
}

// InferDBType returns the DBType for a Go value. A nil value, or a nil
// pointer to a type with no DBType, is Unknown.
func InferDBType(v any) DBType {
	if v == nil {
		return Unknown
	}
	if IsXMLValue(v) {
		return XMLType
	}
	return inferType(reflect.TypeOf(v))
}

func inferType(t reflect.Type) DBType {
	switch t {
	case timeType:
		return DateTime
	case uuidType:
		return GUID
	case bytesType:
		return Binary
	}
	if t.Implements(xmlMarshalerType) {
		return XMLType
	}
	switch t.Kind() {
	case reflect.Pointer:
		return inferType(t.Elem())
	case reflect.Bool:
		return Boolean
	case reflect.Int8, reflect.Int16, reflect.Uint8:
		return Int16
	case reflect.Int32, reflect.Uint16:
		return Int32
	case reflect.Int, reflect.Int64, reflect.Uint, reflect.Uint32, reflect.Uint64:
		return Int64
	case reflect.Float32:
		return Single
	case reflect.Float64:
		return Double
	case reflect.String:
		return String
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return Binary
		}
	case reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 && t.Len() == 16 {
			return GUID
		}
	}
	if t.Implements(driverValuerType) {
		return Object
	}
	return Unknown
}

// conversions converts a non-nil Go value to the canonical Go representation
// of a DBType. Types without an entry are passed through unchanged.
var conversions = map[DBType]func(v any) (any, error){
	Boolean:  func(v any) (any, error) { return cast.ToBoolE(v) },
	Int16:    func(v any) (any, error) { return toInt(v, math.MinInt16, math.MaxInt16, func(n int64) any { return int16(n) }) },
	Int32:    func(v any) (any, error) { return toInt(v, math.MinInt32, math.MaxInt32, func(n int64) any { return int32(n) }) },
	Int64:    func(v any) (any, error) { return cast.ToInt64E(v) },
	Single:   func(v any) (any, error) { return cast.ToFloat32E(v) },
	Double:   func(v any) (any, error) { return cast.ToFloat64E(v) },
	String:   toString,
	Date:     func(v any) (any, error) { return cast.ToTimeE(v) },
	DateTime: func(v any) (any, error) { return cast.ToTimeE(v) },
	Binary:   toBytes,
	GUID:     toGUID,
	XMLType:  toXML,
}

// ConvertValue converts v to the canonical Go representation for p's DBType:
// pointers are dereferenced, XML content is serialised to XML text, GUIDs
// become uuid.UUID and other values are cast to the declared type. Values
// implementing driver.Valuer are passed through for the driver to handle,
// unless p is declared XML or GUID. A nil v, or nil pointer, is returned as
// nil.
func ConvertValue(p *Parameter, v any) (any, error) {
	v = indirect(v)
	if v == nil {
		return nil, nil
	}
	if IsXMLValue(v) {
		return toXML(v)
	}
	if _, ok := v.(driver.Valuer); ok && p.DBType != GUID {
		return v, nil
	}
	convert, ok := conversions[p.DBType]
	if !ok || InferDBType(v) == p.DBType && p.DBType != GUID {
		return v, nil
	}
	out, err := convert(v)
	if err != nil {
		return nil, fmt.Errorf("cannot convert %T to %s for parameter %q: %w", v, p.DBType, p.Name, err)
	}
	return out, nil
}

// indirect dereferences pointers, returning nil for a nil pointer.
func indirect(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer {
		return v
	}
	// Pointers to XML documents are serialised, not dereferenced.
	if IsXMLValue(v) {
		if rv.IsNil() {
			return nil
		}
		return v
	}
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	return rv.Interface()
}

// toInt casts v to an integer in [min, max] and narrows it with narrow.
func toInt(v any, min, max int64, narrow func(int64) any) (any, error) {
	n, err := cast.ToInt64E(v)
	if err != nil {
		return nil, err
	}
	if n < min || n > max {
		return nil, fmt.Errorf("%d out of range [%d, %d]", n, min, max)
	}
	return narrow(n), nil
}

func toString(v any) (any, error) {
	switch v := v.(type) {
	case []byte:
		return string(v), nil
	case uuid.UUID:
		return v.String(), nil
	}
	return cast.ToStringE(v)
}

func toBytes(v any) (any, error) {
	switch v := v.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	case uuid.UUID:
		return v[:], nil
	}
	return nil, fmt.Errorf("unable to cast %#v of type %T to []byte", v, v)
}

func toGUID(v any) (any, error) {
	switch v := v.(type) {
	case uuid.UUID:
		return v, nil
	case [16]byte:
		return uuid.UUID(v), nil
	case string:
		return uuid.Parse(v)
	case []byte:
		if len(v) == 16 {
			return uuid.FromBytes(v)
		}
		return uuid.ParseBytes(v)
	}
	return nil, fmt.Errorf("unable to cast %#v of type %T to uuid", v, v)
}

func toXML(v any) (any, error) {
	switch v := v.(type) {
	case XML:
		return string(v), nil
	case *XML:
		return string(*v), nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case XMLDocument:
		return marshalXML(v.Value)
	case *XMLDocument:
		return marshalXML(v.Value)
	}
	return marshalXML(v)
}

func marshalXML(v any) (any, error) {
	b, err := xml.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
