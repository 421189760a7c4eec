package choices

import (
	"fmt"
	"reflect"
)

// SchemaFormat identifies the representation a schema document encodes.
type SchemaFormat string

const (
	// SchemaFormatDescriptors is a flat list of ChoiceDescriptor values.
	SchemaFormatDescriptors SchemaFormat = "descriptors"
	// SchemaFormatJSONSchema is a JSON Schema enum fragment.
	SchemaFormatJSONSchema SchemaFormat = "jsonschema"
)

// SchemaDocument wraps a generated schema. Document is JSON-serialisable.
type SchemaDocument struct {
	Format   SchemaFormat
	Document any
}

// SchemaGenerator describes a canonical option list. Implementations must be
// safe for concurrent use and return an empty document for an empty list.
type SchemaGenerator interface {
	Generate(records []Record) (SchemaDocument, error)
}

// ChoiceDescriptor describes a single selectable value.
type ChoiceDescriptor struct {
	Value  any    `json:"value"`
	Label  any    `json:"label,omitempty"`
	Type   string `json:"type"`
	Masked bool   `json:"masked,omitempty"`
}

// DefaultSchemaGenerator returns the JSON Schema enum generator.
func DefaultSchemaGenerator() SchemaGenerator {
	return enumGenerator{}
}

// DescriptorSchemaGenerator returns the flat descriptor generator.
func DescriptorSchemaGenerator() SchemaGenerator {
	return descriptorGenerator{}
}

// Describe generates the default schema document for records.
func Describe(records []Record) (SchemaDocument, error) {
	return DefaultSchemaGenerator().Generate(records)
}

type enumGenerator struct{}

// Generate emits {"type":"string","enum":[...],"x-enum-labels":[...]}. The
// type is only set when every value is a string; masked records also list
// their original under "x-enum-originals".
func (enumGenerator) Generate(records []Record) (SchemaDocument, error) {
	values := []any{}
	labels := []any{}
	originals := map[string]any{}
	allStrings := true
	for _, record := range records {
		if record.Passthrough {
			continue
		}
		values = append(values, record.Value)
		labels = append(labels, record.Label)
		if !isString(record.Value) {
			allStrings = false
		}
		if record.Masked {
			originals[fmt.Sprint(record.Value)] = record.Original
		}
	}
	document := map[string]any{
		"enum":          values,
		"x-enum-labels": labels,
	}
	if allStrings && len(values) > 0 {
		document["type"] = "string"
	}
	if len(originals) > 0 {
		document["x-enum-originals"] = originals
	}
	return SchemaDocument{Format: SchemaFormatJSONSchema, Document: document}, nil
}

type descriptorGenerator struct{}

func (descriptorGenerator) Generate(records []Record) (SchemaDocument, error) {
	descriptors := make([]ChoiceDescriptor, 0, len(records))
	for _, record := range records {
		if record.Passthrough {
			continue
		}
		descriptors = append(descriptors, ChoiceDescriptor{
			Value:  record.Value,
			Label:  record.Label,
			Type:   typeName(record.TrueValue()),
			Masked: record.Masked,
		})
	}
	return SchemaDocument{
		Format:   SchemaFormatDescriptors,
		Document: descriptors,
	}, nil
}

// typeName reports the JSON type a value encodes as.
func typeName(value any) string {
	switch {
	case isNil(value):
		return "null"
	case isString(value):
		return "string"
	case isNumber(value):
		return "number"
	case isPlainObject(value):
		return "object"
	}
	switch reflect.ValueOf(value).Kind() {
	case reflect.Bool:
		return "boolean"
	case reflect.Slice, reflect.Array:
		return "array"
	}
	return fmt.Sprintf("%T", value)
}
