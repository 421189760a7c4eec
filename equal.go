package choices

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// LooseEqual compares a and b with coercion between scalars:
//
//	nil    == nil                       only
//	bool   == bool/number/string        after bool -> 0 or 1
//	number == string                    after parsing the trimmed string ("" is 0)
//	string == string, number == number  directly
//
// NaN and unparsable strings never compare equal to numbers. Composite values
// (maps, slices, pointers, structs) are equal only when they are the same
// value: the same map, the same slice window, the same pointer, or == for
// comparable structs.
func LooseEqual(a, b any) bool {
	aNil, bNil := isNil(a), isNil(b)
	if aNil || bNil {
		return aNil && bNil
	}
	sa, aScalar := scalarOf(a)
	sb, bScalar := scalarOf(b)
	if aScalar != bScalar {
		return false
	}
	if aScalar {
		return sa.looseEqual(sb)
	}
	return sameValue(a, b)
}

type scalarKind int

const (
	scalarBool scalarKind = iota
	scalarInt
	scalarUint
	scalarFloat
	scalarString
)

type scalar struct {
	kind scalarKind
	b    bool
	i    int64
	u    uint64
	f    float64
	s    string
}

func scalarOf(value any) (scalar, bool) {
	if n, ok := value.(json.Number); ok {
		return scalar{kind: scalarFloat, f: parseNumber(string(n))}, true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Bool:
		return scalar{kind: scalarBool, b: rv.Bool()}, true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return scalar{kind: scalarInt, i: rv.Int()}, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return scalar{kind: scalarUint, u: rv.Uint()}, true
	case reflect.Float32, reflect.Float64:
		return scalar{kind: scalarFloat, f: rv.Float()}, true
	case reflect.String:
		return scalar{kind: scalarString, s: rv.String()}, true
	}
	return scalar{}, false
}

func (s scalar) isNumeric() bool {
	return s.kind == scalarInt || s.kind == scalarUint || s.kind == scalarFloat
}

func (s scalar) looseEqual(other scalar) bool {
	switch {
	case s.kind == scalarString && other.kind == scalarString:
		return s.s == other.s
	case s.kind == scalarBool && other.kind == scalarBool:
		return s.b == other.b
	case s.isNumeric() && other.isNumeric():
		return numbersEqual(s, other)
	}
	// mixed kinds compare as numbers
	return s.number() == other.number()
}

func (s scalar) number() float64 {
	switch s.kind {
	case scalarBool:
		if s.b {
			return 1
		}
		return 0
	case scalarInt:
		return float64(s.i)
	case scalarUint:
		return float64(s.u)
	case scalarString:
		return parseNumber(s.s)
	default:
		return s.f
	}
}

// numbersEqual compares integers exactly and falls back to float64.
func numbersEqual(a, b scalar) bool {
	switch {
	case a.kind == scalarInt && b.kind == scalarInt:
		return a.i == b.i
	case a.kind == scalarUint && b.kind == scalarUint:
		return a.u == b.u
	case a.kind == scalarInt && b.kind == scalarUint:
		return a.i >= 0 && uint64(a.i) == b.u
	case a.kind == scalarUint && b.kind == scalarInt:
		return b.i >= 0 && uint64(b.i) == a.u
	}
	return a.number() == b.number()
}

// parseNumber converts a string the way numeric coercion does: surrounding
// whitespace is ignored, the empty string is 0, 0x/0o/0b prefixes and
// Infinity are accepted. Anything else unparsable is NaN.
func parseNumber(raw string) float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}
	switch s {
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	if len(s) > 2 && s[0] == '0' {
		base := 0
		switch s[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			if strings.ContainsRune(s[2:], '_') {
				return math.NaN()
			}
			n, err := strconv.ParseUint(s[2:], base, 64)
			if err != nil {
				return math.NaN()
			}
			return float64(n)
		}
	}
	for _, r := range s {
		if !strings.ContainsRune("0123456789.eE+-", r) {
			return math.NaN()
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

func sameValue(a, b any) bool {
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if ra.Type() != rb.Type() {
		return false
	}
	switch ra.Kind() {
	case reflect.Map, reflect.Pointer, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return ra.Pointer() == rb.Pointer()
	case reflect.Slice:
		return ra.Pointer() == rb.Pointer() && ra.Len() == rb.Len()
	}
	return ra.Comparable() && rb.Comparable() && ra.Equal(rb)
}

// isPlainObject reports whether value is a plain data object: a string keyed
// map or Fields. Slices, structs and pointers are not.
func isPlainObject(value any) bool {
	if isNil(value) {
		return false
	}
	if _, ok := value.(Fields); ok {
		return true
	}
	rv := reflect.ValueOf(value)
	return rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String
}

func plainObject(value any) map[string]any {
	if fields, ok := value.(Fields); ok {
		out := make(map[string]any, len(fields))
		for _, field := range fields {
			out[field.Key] = field.Value
		}
		return out
	}
	rv := reflect.ValueOf(value)
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out
}

var deepEqualOptions = []cmp.Option{
	cmp.Exporter(func(reflect.Type) bool { return true }),
	cmpopts.EquateEmpty(),
	cmp.FilterValues(func(x, y any) bool {
		_, xNumber := numericScalar(x)
		_, yNumber := numericScalar(y)
		return xNumber && yNumber
	}, cmp.Comparer(func(x, y any) bool {
		sx, _ := numericScalar(x)
		sy, _ := numericScalar(y)
		return numbersEqual(sx, sy)
	})),
}

func numericScalar(value any) (scalar, bool) {
	if value == nil {
		return scalar{}, false
	}
	s, ok := scalarOf(value)
	return s, ok && s.isNumeric()
}

// deepEqual compares two plain objects field by field. Leaves compare
// strictly, except that numbers of different Go types compare by value.
func deepEqual(a, b any) bool {
	return cmp.Equal(canonical(plainObject(a)), canonical(plainObject(b)), deepEqualOptions...)
}

// canonical rewrites Fields and every string keyed map as map[string]any,
// and List and every slice or array other than []byte as []any, at any
// depth, so typed and decoded containers compare alike.
func canonical(value any) any {
	switch typed := value.(type) {
	case nil:
		return nil
	case Fields:
		out := make(map[string]any, len(typed))
		for _, field := range typed {
			out[field.Key] = canonical(field.Value)
		}
		return out
	case []byte:
		return typed
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return value
		}
		if rv.IsNil() {
			return map[string]any(nil)
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = canonical(iter.Value().Interface())
		}
		return out
	case reflect.Slice:
		if rv.IsNil() {
			return []any(nil)
		}
		return canonicalSlice(rv)
	case reflect.Array:
		return canonicalSlice(rv)
	}
	return value
}

func canonicalSlice(rv reflect.Value) []any {
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = canonical(rv.Index(i).Interface())
	}
	return out
}
