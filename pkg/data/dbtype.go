package data

import (
	"database/sql"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DbType is the provider-neutral type tag carried by parameters and column
// metadata.
type DbType int

const (
	DbTypeAnsiString DbType = iota
	DbTypeBinary
	DbTypeByte
	DbTypeBoolean
	DbTypeCurrency
	DbTypeDate
	DbTypeDateTime
	DbTypeDecimal
	DbTypeDouble
	DbTypeGuid
	DbTypeInt16
	DbTypeInt32
	DbTypeInt64
	DbTypeObject
	DbTypeSByte
	DbTypeSingle
	DbTypeString
	DbTypeTime
	DbTypeUInt16
	DbTypeUInt32
	DbTypeUInt64
	DbTypeVarNumeric
	DbTypeAnsiStringFixedLength
	DbTypeStringFixedLength
	DbTypeXml
	DbTypeDateTime2
	DbTypeDateTimeOffset
)

var dbTypeNames = [...]string{
	DbTypeAnsiString:            "AnsiString",
	DbTypeBinary:                "Binary",
	DbTypeByte:                  "Byte",
	DbTypeBoolean:               "Boolean",
	DbTypeCurrency:              "Currency",
	DbTypeDate:                  "Date",
	DbTypeDateTime:              "DateTime",
	DbTypeDecimal:               "Decimal",
	DbTypeDouble:                "Double",
	DbTypeGuid:                  "Guid",
	DbTypeInt16:                 "Int16",
	DbTypeInt32:                 "Int32",
	DbTypeInt64:                 "Int64",
	DbTypeObject:                "Object",
	DbTypeSByte:                 "SByte",
	DbTypeSingle:                "Single",
	DbTypeString:                "String",
	DbTypeTime:                  "Time",
	DbTypeUInt16:                "UInt16",
	DbTypeUInt32:                "UInt32",
	DbTypeUInt64:                "UInt64",
	DbTypeVarNumeric:            "VarNumeric",
	DbTypeAnsiStringFixedLength: "AnsiStringFixedLength",
	DbTypeStringFixedLength:     "StringFixedLength",
	DbTypeXml:                   "Xml",
	DbTypeDateTime2:             "DateTime2",
	DbTypeDateTimeOffset:        "DateTimeOffset",
}

func (t DbType) String() string {
	if t >= 0 && int(t) < len(dbTypeNames) {
		return dbTypeNames[t]
	}
	return fmt.Sprintf("DbType(%d)", int(t))
}

// DbTypeOf returns the DbType for values of type T. Pointer and sql.Null*
// wrappers map like their underlying type; anything unrecognised is
// DbTypeObject.
func DbTypeOf[T any]() DbType {
	var zero T
	if t := dbTypeOfValue(zero); t != DbTypeObject {
		return t
	}
	return DbTypeForScanType(reflect.TypeOf((*T)(nil)).Elem())
}

// DbTypeForScanType returns the DbType for a driver scan type such as the
// one reported by sql.ColumnType.ScanType.
func DbTypeForScanType(t reflect.Type) DbType {
	if t == nil {
		return DbTypeObject
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() == reflect.Interface {
		return DbTypeObject
	}
	return dbTypeOfValue(reflect.Zero(t).Interface())
}

func dbTypeOfValue(v any) DbType {
	switch v.(type) {
	case uint8, *uint8, sql.NullByte:
		return DbTypeByte
	case int8, *int8:
		return DbTypeSByte
	case int16, *int16, sql.NullInt16:
		return DbTypeInt16
	case uint16, *uint16:
		return DbTypeUInt16
	case int32, *int32, sql.NullInt32:
		return DbTypeInt32
	case uint32, *uint32:
		return DbTypeUInt32
	case int64, *int64, int, *int, sql.NullInt64:
		return DbTypeInt64
	case uint64, *uint64, uint, *uint:
		return DbTypeUInt64
	case float32, *float32:
		return DbTypeSingle
	case float64, *float64, sql.NullFloat64:
		return DbTypeDouble
	case decimal.Decimal, *decimal.Decimal, decimal.NullDecimal:
		return DbTypeDecimal
	case bool, *bool, sql.NullBool:
		return DbTypeBoolean
	case string, *string, sql.NullString, sql.RawBytes:
		return DbTypeString
	case uuid.UUID, *uuid.UUID, uuid.NullUUID:
		return DbTypeGuid
	case time.Time, *time.Time, sql.NullTime:
		return DbTypeDateTime
	case time.Duration, *time.Duration:
		return DbTypeTime
	case []byte:
		return DbTypeBinary
	default:
		return DbTypeObject
	}
}
