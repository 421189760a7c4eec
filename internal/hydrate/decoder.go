// Package hydrate decodes JSON and YAML payloads into options sources while
// keeping the key order of every object.
package hydrate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	choices "github.com/goliatone/go-choices"
	"gopkg.in/yaml.v3"
)

// Format names a payload encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrUnknownFormat reports a payload whose format cannot be determined.
var ErrUnknownFormat = errors.New("hydrate: unknown format")

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, path)
	}
}

// Context identifies the payload being decoded.
type Context struct {
	Name   string
	Format Format
}

// PreHook rewrites the raw payload before decoding.
type PreHook func(Context, []byte) ([]byte, error)

// PostHook adjusts or validates the decoded source.
type PostHook func(Context, any) (any, error)

// DecoderOption configures a Decoder instance.
type DecoderOption func(*Decoder)

// Decoder converts payloads into options sources. Objects become
// choices.Fields, arrays choices.List, integers int and other numbers
// float64.
type Decoder struct {
	preHooks  []PreHook
	postHooks []PostHook
	useNumber bool
}

// WithPreHook applies hook prior to decoding.
func WithPreHook(hook PreHook) DecoderOption {
	return func(d *Decoder) {
		d.preHooks = append(d.preHooks, hook)
	}
}

// WithPostHook applies hook after decoding completes.
func WithPostHook(hook PostHook) DecoderOption {
	return func(d *Decoder) {
		d.postHooks = append(d.postHooks, hook)
	}
}

// WithUseNumber keeps JSON numbers as json.Number.
func WithUseNumber() DecoderOption {
	return func(d *Decoder) {
		d.useNumber = true
	}
}

func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode converts payload applying the configured hooks.
func (d *Decoder) Decode(ctx Context, payload []byte) (any, error) {
	current := payload
	for _, hook := range d.preHooks {
		if hook == nil {
			continue
		}
		next, err := hook(ctx, current)
		if err != nil {
			return nil, fmt.Errorf("hydrate: pre-hook for %q failed: %w", ctx.Name, err)
		}
		if next != nil {
			current = next
		}
	}

	var (
		source any
		err    error
	)
	switch ctx.Format {
	case FormatJSON:
		source, err = decodeJSON(current, d.useNumber)
	case FormatYAML:
		source, err = decodeYAML(current)
	default:
		return nil, fmt.Errorf("%w: %q for %q", ErrUnknownFormat, ctx.Format, ctx.Name)
	}
	if err != nil {
		return nil, fmt.Errorf("hydrate: decode %q: %w", ctx.Name, err)
	}

	for _, hook := range d.postHooks {
		if hook == nil {
			continue
		}
		next, err := hook(ctx, source)
		if err != nil {
			return nil, fmt.Errorf("hydrate: post-hook for %q failed: %w", ctx.Name, err)
		}
		source = next
	}
	return source, nil
}

// Decode decodes payload with a default Decoder.
func Decode(format Format, payload []byte) (any, error) {
	return NewDecoder().Decode(Context{Format: format}, payload)
}

func decodeJSON(payload []byte, useNumber bool) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	value, err := readJSONValue(dec, useNumber)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after top-level value")
	}
	return value, nil
}

func readJSONValue(dec *json.Decoder, useNumber bool) (any, error) {
	token, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch typed := token.(type) {
	case json.Delim:
		switch typed {
		case '{':
			fields := choices.Fields{}
			for dec.More() {
				keyToken, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, _ := keyToken.(string)
				value, err := readJSONValue(dec, useNumber)
				if err != nil {
					return nil, err
				}
				fields = append(fields, choices.Attr{Key: key, Value: value})
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return choices.ObjectFields(fields), nil
		case '[':
			list := choices.List{}
			for dec.More() {
				value, err := readJSONValue(dec, useNumber)
				if err != nil {
					return nil, err
				}
				list = append(list, value)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return list, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %q", typed)
	case json.Number:
		if useNumber {
			return typed, nil
		}
		if i, err := typed.Int64(); err == nil {
			return int(i), nil
		}
		return typed.Float64()
	default:
		return typed, nil
	}
}

func decodeYAML(payload []byte) (any, error) {
	var document yaml.Node
	if err := yaml.Unmarshal(payload, &document); err != nil {
		return nil, err
	}
	if document.Kind == 0 {
		return nil, fmt.Errorf("empty document")
	}
	return yamlValue(&document)
}

func yamlValue(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return nil, nil
		}
		return yamlValue(node.Content[0])
	case yaml.MappingNode:
		fields := make(choices.Fields, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			value, err := yamlValue(node.Content[i+1])
			if err != nil {
				return nil, err
			}
			fields = append(fields, choices.Attr{Key: node.Content[i].Value, Value: value})
		}
		return choices.ObjectFields(fields), nil
	case yaml.SequenceNode:
		list := make(choices.List, 0, len(node.Content))
		for _, item := range node.Content {
			value, err := yamlValue(item)
			if err != nil {
				return nil, err
			}
			list = append(list, value)
		}
		return list, nil
	case yaml.AliasNode:
		return yamlValue(node.Alias)
	default:
		var value any
		if err := node.Decode(&value); err != nil {
			return nil, fmt.Errorf("line %d: %w", node.Line, err)
		}
		return value, nil
	}
}
