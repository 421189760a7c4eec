package choices

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/goliatone/go-choices/pkg/activity"
)

// Attr is a pass-through attribute copied verbatim from a source record.
type Attr struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// Record is the canonical unit of a selectable choice.
//
// Value is always a string when Masked is true, and Original then holds the
// value that was replaced. Elements that could not be read as a choice are
// kept in position with Passthrough set and the element stored in Raw.
type Record struct {
	Label    any
	Value    any
	Original any
	Masked   bool
	Attrs    []Attr

	Raw         any
	Passthrough bool
}

// Attr returns the pass-through attribute stored under key.
func (r Record) Attr(key string) (any, bool) {
	for _, attr := range r.Attrs {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	return nil, false
}

// TrueValue returns Original for masked records and Value otherwise.
func (r Record) TrueValue() any {
	if r.Masked {
		return r.Original
	}
	return r.Value
}

func (r Record) clone() Record {
	out := r
	if len(r.Attrs) > 0 {
		out.Attrs = append([]Attr(nil), r.Attrs...)
	} else {
		out.Attrs = nil
	}
	return out
}

// MarshalJSON encodes the record as an object with label, value, original
// (masked records only) followed by the attributes in order.
func (r Record) MarshalJSON() ([]byte, error) {
	if r.Passthrough {
		return json.Marshal(r.Raw)
	}
	fields := Fields{{Key: "label", Value: r.Label}, {Key: "value", Value: r.Value}}
	if r.Masked {
		fields = append(fields, Attr{Key: "original", Value: r.Original})
	}
	fields = append(fields, r.Attrs...)
	return fields.MarshalJSON()
}

// Fields is an ordered record, the Go counterpart of an object literal. Used
// as an element of a sequence it is a choice record; used as the whole source
// it is a key to label mapping.
type Fields []Attr

// Get returns the value stored under key.
func (f Fields) Get(key string) (any, bool) {
	for _, attr := range f {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	return nil, false
}

// MarshalJSON encodes the fields as a JSON object keeping their order.
func (f Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, attr := range f {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(attr.Key)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(attr.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// List is an ordered sequence source. Elements may mix scalars and records.
type List []any

// Pair is one key to label entry of a Mapping.
type Pair struct {
	Key   string
	Label any
}

// Mapping is an ordered key to label source. Keys become values.
type Mapping []Pair

// MarshalJSON encodes the mapping as a JSON object keeping its order.
func (m Mapping) MarshalJSON() ([]byte, error) {
	fields := make(Fields, len(m))
	for i, pair := range m {
		fields[i] = Attr{Key: pair.Key, Value: pair.Label}
	}
	return fields.MarshalJSON()
}

// Supplier produces an options source on demand. The result may be a
// Deferred, in which case normalization registers the supplier as a loader
// instead of resolving it. Any func with no arguments and one result, such as
// func() []string, is accepted as a supplier source.
type Supplier func() any

// RegisterLoader receives the supplier of a deferred source.
type RegisterLoader func(Supplier)

// Deferred is a not yet available options source.
type Deferred interface {
	Await(ctx context.Context) (any, error)
}

// SourceKind identifies the shape an options source was resolved to.
type SourceKind int

const (
	// KindInvalid marks a value that is not an options source.
	KindInvalid SourceKind = iota
	// KindSequence is an ordered sequence of scalars and records.
	KindSequence
	// KindMapping is a key to label mapping.
	KindMapping
	// KindSupplier is a function producing one of the other shapes.
	KindSupplier
)

func (k SourceKind) String() string {
	switch k {
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	case KindSupplier:
		return "supplier"
	default:
		return "invalid"
	}
}

// Option configures a Normalizer.
type Option func(*config)

type config struct {
	evaluator       Evaluator
	filter          string
	programCache    ProgramCache
	functions       *FunctionRegistry
	evaluatorLogger EvaluatorLogger
	logger          NormalizationLogger
	activityHooks   activity.Hooks
	activityChannel string
	args            map[string]any
	metadata        map[string]any
	now             func() time.Time
}

func applyOptions(opts []Option) config {
	cfg := config{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithFilterRule keeps only the records for which rule evaluates to true.
func WithFilterRule(rule string) Option {
	return func(cfg *config) {
		cfg.filter = rule
	}
}

// WithRuleArgs exposes args to filter rules under "args".
func WithRuleArgs(args map[string]any) Option {
	return func(cfg *config) {
		cfg.args = copyMap(args)
	}
}

// WithRuleMetadata exposes metadata to filter rules under "metadata".
func WithRuleMetadata(metadata map[string]any) Option {
	return func(cfg *config) {
		cfg.metadata = copyMap(metadata)
	}
}

// WithClock overrides the time source used for rule contexts.
func WithClock(now func() time.Time) Option {
	return func(cfg *config) {
		cfg.now = now
	}
}

func copyMap(origin map[string]any) map[string]any {
	if len(origin) == 0 {
		return nil
	}
	out := make(map[string]any, len(origin))
	for key, value := range origin {
		out[key] = value
	}
	return out
}
