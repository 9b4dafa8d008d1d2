package data

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"

	"github.com/VatsalSy/dbscope/internal/errors"
)

// Null is the type of DBNull.
type Null struct{}

func (Null) String() string { return "NULL" }

// DBNull is the value a scalar or parameter holds when it is SQL NULL. It is
// distinct from nil, which ExecuteScalar uses for "no rows".
var DBNull = Null{}

// IsNull reports whether v is nil, DBNull, a nil pointer or an invalid
// sql.Null* style value.
func IsNull(v any) bool {
	if v == nil {
		return true
	}
	if _, ok := v.(Null); ok {
		return true
	}
	if valuer, ok := v.(driver.Valuer); ok {
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Pointer && rv.IsNil() {
			return true
		}
		inner, err := valuer.Value()
		return err == nil && inner == nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return rv.IsNil()
	}
	return false
}

var (
	scannerType = reflect.TypeOf((*sql.Scanner)(nil)).Elem()
	timeType    = reflect.TypeOf(time.Time{})
	durType     = reflect.TypeOf(time.Duration(0))
	uuidType    = reflect.TypeOf(uuid.UUID{})
	decimalType = reflect.TypeOf(decimal.Decimal{})
)

// isNullable reports whether the zero value of t can stand for SQL NULL.
func isNullable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return true
	}
	return !isKnownType(t) && reflect.PointerTo(t).Implements(scannerType)
}

// ConvertValue converts a raw scalar to T. SQL NULL, given as nil or DBNull,
// yields the zero value when T is nullable and a conversion error wrapping
// ErrNullValue otherwise.
//
// Text converts to integers in base 10 only. Floats converted to integers
// are rounded half to even rather than truncated.
func ConvertValue[T any](raw any) (T, error) {
	var zero T
	t := reflect.TypeOf((*T)(nil)).Elem()

	v, err := convertTo(raw, t)
	if err != nil {
		return zero, err
	}
	if !v.IsValid() {
		return zero, nil
	}
	return v.Interface().(T), nil
}

// convertTo returns the zero reflect.Value for a NULL assigned to a nullable
// type.
func convertTo(raw any, t reflect.Type) (reflect.Value, error) {
	if IsNull(raw) {
		if isNullable(t) {
			return reflect.Value{}, nil
		}
		return reflect.Value{}, errors.Conversion(t.String(), errors.ErrNullValue)
	}

	if t.Kind() == reflect.Interface {
		rv := reflect.ValueOf(raw)
		if rv.Type().Implements(t) {
			out := reflect.New(t).Elem()
			out.Set(rv)
			return out, nil
		}
		return reflect.Value{}, conversionError(raw, t, nil)
	}

	rv := reflect.ValueOf(raw)
	if rv.Type() == t {
		return rv, nil
	}

	if rv.Kind() == reflect.Pointer {
		return convertTo(rv.Elem().Interface(), t)
	}

	if t.Kind() == reflect.Pointer {
		inner, err := convertTo(raw, t.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.New(t.Elem())
		out.Elem().Set(inner)
		return out, nil
	}

	if reflect.PointerTo(t).Implements(scannerType) && !isKnownType(t) {
		out := reflect.New(t)
		if err := out.Interface().(sql.Scanner).Scan(raw); err != nil {
			return reflect.Value{}, conversionError(raw, t, err)
		}
		return out.Elem(), nil
	}

	out, err := convertKnown(raw, t)
	if err != nil {
		return reflect.Value{}, conversionError(raw, t, err)
	}
	return out, nil
}

func isKnownType(t reflect.Type) bool {
	return t == timeType || t == durType || t == uuidType || t == decimalType
}

func convertKnown(raw any, t reflect.Type) (reflect.Value, error) {
	switch t {
	case timeType:
		v, err := cast.ToTimeE(raw)
		return reflect.ValueOf(v), err
	case durType:
		v, err := cast.ToDurationE(raw)
		return reflect.ValueOf(v), err
	case uuidType:
		v, err := toUUID(raw)
		return reflect.ValueOf(v), err
	case decimalType:
		v, err := toDecimal(raw)
		return reflect.ValueOf(v), err
	}

	if b, ok := raw.([]byte); ok && t.Kind() != reflect.Slice {
		raw = string(b)
	}
	if d, ok := raw.(decimal.Decimal); ok {
		if t.Kind() == reflect.String {
			return reflect.ValueOf(d.String()).Convert(t), nil
		}
		raw = d.InexactFloat64()
	}

	switch t.Kind() {
	case reflect.String:
		s, err := cast.ToStringE(raw)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(s).Convert(t), nil
	case reflect.Bool:
		if n, ok := raw.(int64); ok {
			return reflect.ValueOf(n != 0).Convert(t), nil
		}
		b, err := cast.ToBoolE(raw)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(b).Convert(t), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := toInt64(raw)
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.New(t).Elem()
		if out.OverflowInt(n) {
			return reflect.Value{}, fmt.Errorf("value %d overflows %s", n, t)
		}
		out.SetInt(n)
		return out, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := toUint64(raw)
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.New(t).Elem()
		if out.OverflowUint(n) {
			return reflect.Value{}, fmt.Errorf("value %d overflows %s", n, t)
		}
		out.SetUint(n)
		return out, nil
	case reflect.Float32, reflect.Float64:
		f, err := cast.ToFloat64E(raw)
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.New(t).Elem()
		if t.Kind() == reflect.Float32 && !math.IsInf(f, 0) && math.Abs(f) > math.MaxFloat32 {
			return reflect.Value{}, fmt.Errorf("value %g overflows %s", f, t)
		}
		out.SetFloat(f)
		return out, nil
	}

	rv := reflect.ValueOf(raw)
	if rv.Type().ConvertibleTo(t) {
		return rv.Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("no conversion from %T", raw)
}

func toUUID(raw any) (uuid.UUID, error) {
	switch v := raw.(type) {
	case string:
		return uuid.Parse(v)
	case []byte:
		if len(v) == 16 {
			return uuid.FromBytes(v)
		}
		return uuid.ParseBytes(v)
	case [16]byte:
		return uuid.UUID(v), nil
	}
	return uuid.Nil, fmt.Errorf("no conversion from %T", raw)
}

func toDecimal(raw any) (decimal.Decimal, error) {
	switch v := raw.(type) {
	case string:
		return decimal.NewFromString(v)
	case []byte:
		return decimal.NewFromString(string(v))
	case float32:
		return decimal.NewFromFloat32(v), nil
	case float64:
		return decimal.NewFromFloat(v), nil
	}
	if rv := reflect.ValueOf(raw); isUnsignedKind(rv.Kind()) {
		return decimal.NewFromUint64(rv.Uint()), nil
	}
	n, err := toInt64(raw)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromInt(n), nil
}

// toInt64 reads text in base 10, so "010" is ten and "0x1F" is an error.
// Floats round half to even.
func toInt64(raw any) (int64, error) {
	switch v := raw.(type) {
	case string:
		return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	case float32:
		return roundToInt64(float64(v))
	case float64:
		return roundToInt64(v)
	}
	if rv := reflect.ValueOf(raw); isUnsignedKind(rv.Kind()) {
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows int64", u)
		}
		return int64(u), nil
	}
	return cast.ToInt64E(raw)
}

func toUint64(raw any) (uint64, error) {
	switch v := raw.(type) {
	case string:
		return strconv.ParseUint(strings.TrimSpace(v), 10, 64)
	case float32, float64:
		n, err := toInt64(v)
		if err != nil {
			return 0, err
		}
		if n < 0 {
			return 0, fmt.Errorf("negative value %d", n)
		}
		return uint64(n), nil
	}
	rv := reflect.ValueOf(raw)
	switch {
	case isUnsignedKind(rv.Kind()):
		return rv.Uint(), nil
	case isSignedKind(rv.Kind()):
		if n := rv.Int(); n < 0 {
			return 0, fmt.Errorf("negative value %d", n)
		}
		return uint64(rv.Int()), nil
	}
	return cast.ToUint64E(raw)
}

func roundToInt64(f float64) (int64, error) {
	r := math.RoundToEven(f)
	if math.IsNaN(r) || r < math.MinInt64 || r >= math.MaxInt64 {
		return 0, fmt.Errorf("value %g overflows int64", f)
	}
	return int64(r), nil
}

func isSignedKind(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isUnsignedKind(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uintptr
}

func conversionError(raw any, t reflect.Type, cause error) error {
	msg := fmt.Sprintf("cannot convert %T to %s", raw, t)
	if cause != nil {
		return errors.Conversion(t.String(), errors.Wrap(cause, msg))
	}
	return errors.Conversion(t.String(), errors.NewSimple(msg))
}
