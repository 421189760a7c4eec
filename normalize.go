package choices

import (
	"context"
	"encoding/json"
	"reflect"
	"sort"
	"strconv"
	"time"
)

const maskPrefix = "__mask_"

// Normalizer converts options sources into canonical record lists.
type Normalizer struct {
	cfg config
}

// New constructs a Normalizer. Without options it behaves exactly like the
// package level Normalize function.
func New(opts ...Option) *Normalizer {
	return &Normalizer{cfg: applyOptions(opts)}
}

var defaultNormalizer = &Normalizer{}

// Normalize converts source into a canonical record list.
//
// Sequences are mapped element by element, mappings become one record per key
// and suppliers are invoked once. When a supplier yields a Deferred, register
// receives the supplier and the returned list is empty.
func Normalize(source any, register RegisterLoader) ([]Record, error) {
	return defaultNormalizer.Normalize(source, register)
}

// Normalize converts source into a canonical record list applying the
// configured filter rule.
func (n *Normalizer) Normalize(source any, register RegisterLoader) ([]Record, error) {
	return n.NormalizeContext(context.Background(), source, register)
}

// NormalizeContext is Normalize with a context used for activity hooks.
func (n *Normalizer) NormalizeContext(ctx context.Context, source any, register RegisterLoader) ([]Record, error) {
	if n == nil {
		n = defaultNormalizer
	}
	start := time.Now()
	result, err := normalizeSource(source, register)
	if err == nil && n.cfg.filter != "" && !result.deferred {
		result.records, err = n.filter(result.records)
	}
	n.logger().LogNormalization(NormalizationLogEvent{
		Kind:     result.kind,
		Records:  len(result.records),
		Masked:   result.masked,
		Deferred: result.deferred,
		Duration: time.Since(start),
		Err:      err,
	})
	if err != nil {
		return nil, err
	}
	n.emit(ctx, result)
	return result.records, nil
}

type normalization struct {
	kind     SourceKind
	records  []Record
	masked   int
	deferred bool
}

func normalizeSource(source any, register RegisterLoader) (normalization, error) {
	kind, err := classify(source)
	if err != nil {
		return normalization{kind: kind}, err
	}
	switch kind {
	case KindSequence:
		records, masked := normalizeSequence(sequenceElements(source))
		return normalization{kind: kind, records: records, masked: masked}, nil
	case KindMapping:
		return normalization{kind: kind, records: normalizeMapping(mappingPairs(source))}, nil
	case KindSupplier:
		supplier := asSupplier(source)
		produced := supplier()
		if _, ok := produced.(Deferred); ok {
			if register != nil {
				register(supplier)
			}
			return normalization{kind: kind, records: []Record{}, deferred: true}, nil
		}
		nested, err := normalizeSource(produced, register)
		nested.kind = KindSupplier
		return nested, err
	default:
		return normalization{kind: kind}, invalidSource(source)
	}
}

// classify resolves the shape of source once, at the boundary.
func classify(source any) (SourceKind, error) {
	switch source.(type) {
	case nil:
		return KindInvalid, invalidSource(source)
	case Supplier, func() any:
		return KindSupplier, nil
	case Mapping, Fields, map[string]any, map[string]string:
		return KindMapping, nil
	case List, []any:
		return KindSequence, nil
	}
	rv := reflect.ValueOf(source)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return KindSequence, nil
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			return KindMapping, nil
		}
	case reflect.Func:
		if isSupplierFunc(rv.Type()) && !rv.IsNil() {
			return KindSupplier, nil
		}
	}
	return KindInvalid, invalidSource(source)
}

// isSupplierFunc accepts any func taking no arguments and returning one value,
// such as func() []string or func() Mapping.
func isSupplierFunc(t reflect.Type) bool {
	return t.NumIn() == 0 && t.NumOut() == 1 && !t.IsVariadic()
}

func asSupplier(source any) Supplier {
	switch typed := source.(type) {
	case Supplier:
		return typed
	case func() any:
		return Supplier(typed)
	}
	rv := reflect.ValueOf(source)
	return func() any {
		return rv.Call(nil)[0].Interface()
	}
}

func sequenceElements(source any) []any {
	switch typed := source.(type) {
	case List:
		return typed
	case []any:
		return typed
	}
	rv := reflect.ValueOf(source)
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

func normalizeSequence(elements []any) ([]Record, int) {
	counter := 1
	records := make([]Record, len(elements))
	for i, element := range elements {
		records[i] = normalizeElement(element, &counter)
	}
	return records, counter - 1
}

func normalizeElement(element any, counter *int) Record {
	if isScalar(element) {
		return Record{Label: element, Value: element}
	}
	switch typed := element.(type) {
	case Record:
		if typed.Passthrough {
			return typed.clone()
		}
		return mask(typed.clone(), typed.Value != nil, counter)
	case *Record:
		if typed == nil {
			return Record{Raw: element, Passthrough: true}
		}
		return normalizeElement(*typed, counter)
	case Fields:
		record, hasValue := recordFromFields(typed)
		return mask(record, hasValue, counter)
	case map[string]any:
		record, hasValue := recordFromFields(fieldsFromMap(typed))
		return mask(record, hasValue, counter)
	}
	if rv := reflect.ValueOf(element); rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String {
		record, hasValue := recordFromFields(fieldsFromMapValue(rv))
		return mask(record, hasValue, counter)
	}
	return Record{Raw: element, Passthrough: true}
}

// mask rewrites a non-string value into a fresh token. Records without a
// value, or with a string value, are returned as they are.
func mask(record Record, hasValue bool, counter *int) Record {
	if !hasValue || isString(record.Value) {
		return record
	}
	record.Original = record.Value
	record.Masked = true
	record.Value = maskPrefix + strconv.Itoa(*counter)
	*counter++
	return record
}

func recordFromFields(fields Fields) (Record, bool) {
	var record Record
	hasValue := false
	for _, field := range fields {
		switch field.Key {
		case "label":
			record.Label = field.Value
		case "value":
			record.Value = field.Value
			hasValue = true
		default:
			record.Attrs = append(record.Attrs, field)
		}
	}
	return record, hasValue
}

func fieldsFromMap(source map[string]any) Fields {
	keys := make([]string, 0, len(source))
	for key := range source {
		keys = append(keys, key)
	}
	orderKeys(keys)
	fields := make(Fields, len(keys))
	for i, key := range keys {
		fields[i] = Attr{Key: key, Value: source[key]}
	}
	return fields
}

// fieldsFromMapValue is fieldsFromMap for typed maps like map[string]int.
func fieldsFromMapValue(rv reflect.Value) Fields {
	source := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		source[iter.Key().String()] = iter.Value().Interface()
	}
	return fieldsFromMap(source)
}

func normalizeMapping(pairs []Pair) []Record {
	records := make([]Record, len(pairs))
	for i, pair := range pairs {
		records[i] = Record{Label: pair.Label, Value: pair.Key}
	}
	return records
}

func mappingPairs(source any) []Pair {
	switch typed := source.(type) {
	case Mapping:
		return typed
	case Fields:
		pairs := make([]Pair, len(typed))
		for i, field := range typed {
			pairs[i] = Pair{Key: field.Key, Label: field.Value}
		}
		return pairs
	}
	fields := fieldsFromMapValue(reflect.ValueOf(source))
	pairs := make([]Pair, len(fields))
	for i, field := range fields {
		pairs[i] = Pair{Key: field.Key, Label: field.Value}
	}
	return pairs
}

// ObjectFields returns fields in object enumeration order: array index keys
// ascending first, then the other keys in their original order. A repeated
// key keeps its first position and its last value. Decoders use it so that
// document objects enumerate like parsed objects do.
func ObjectFields(fields Fields) Fields {
	position := make(map[string]int, len(fields))
	out := make(Fields, 0, len(fields))
	for _, field := range fields {
		if i, seen := position[field.Key]; seen {
			out[i].Value = field.Value
			continue
		}
		position[field.Key] = len(out)
		out = append(out, field)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, aIndex := arrayIndex(out[i].Key)
		b, bIndex := arrayIndex(out[j].Key)
		if aIndex && bIndex {
			return a < b
		}
		return aIndex && !bIndex
	})
	return out
}

// orderKeys sorts map keys the way object keys enumerate: array index keys
// ascending first, then the remaining keys lexically.
func orderKeys(keys []string) {
	sort.SliceStable(keys, func(i, j int) bool {
		a, aIndex := arrayIndex(keys[i])
		b, bIndex := arrayIndex(keys[j])
		switch {
		case aIndex && bIndex:
			return a < b
		case aIndex != bIndex:
			return aIndex
		default:
			return keys[i] < keys[j]
		}
	})
}

func arrayIndex(key string) (uint64, bool) {
	if key == "" || (len(key) > 1 && key[0] == '0') {
		return 0, false
	}
	index, err := strconv.ParseUint(key, 10, 32)
	if err != nil || index == 1<<32-1 {
		return 0, false
	}
	return index, true
}

func isString(value any) bool {
	if value == nil {
		return false
	}
	if _, ok := value.(json.Number); ok {
		return false
	}
	return reflect.ValueOf(value).Kind() == reflect.String
}

func isNumber(value any) bool {
	if value == nil {
		return false
	}
	if _, ok := value.(json.Number); ok {
		return true
	}
	switch reflect.ValueOf(value).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func isScalar(value any) bool {
	return isString(value) || isNumber(value)
}

func (n *Normalizer) logger() NormalizationLogger {
	if n.cfg.logger != nil {
		return n.cfg.logger
	}
	return noopNormalizationLogger{}
}
