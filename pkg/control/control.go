// Package control is a reference host for normalized option lists: it stores
// the canonical records, keeps the loader a deferred source registered, runs
// the secondary asynchronous load and tracks the selected value.
package control

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	choices "github.com/goliatone/go-choices"
	"github.com/goliatone/go-choices/pkg/activity"
)

var (
	// ErrNoLoader reports a Load call on a control without a registered loader.
	ErrNoLoader = errors.New("control: no loader registered")
	// ErrSuperseded reports a load whose result was discarded because the
	// options were replaced while it was running.
	ErrSuperseded = errors.New("control: load superseded")
)

// Option configures a Control.
type Option func(*Control)

// WithName labels the control in emitted events.
func WithName(name string) Option {
	return func(c *Control) {
		c.name = strings.TrimSpace(name)
	}
}

// WithNormalizer replaces the normalizer used for every options source.
func WithNormalizer(n *choices.Normalizer) Option {
	return func(c *Control) {
		if n != nil {
			c.normalizer = n
		}
	}
}

// WithActivityHooks notifies hooks when a deferred source loads and when
// the selected value changes.
func WithActivityHooks(hooks activity.Hooks) Option {
	return func(c *Control) {
		c.hooks = activity.CloneHooks(hooks)
	}
}

// WithActivityChannel sets the channel stamped on emitted events.
func WithActivityChannel(channel string) Option {
	return func(c *Control) {
		c.channel = channel
	}
}

// WithErrorHandler receives activity hook failures. They never fail the
// control operation that emitted them.
func WithErrorHandler(fn func(error)) Option {
	return func(c *Control) {
		c.onError = fn
	}
}

// Control holds one option list and its current value. It is safe for
// concurrent use.
type Control struct {
	mu         sync.RWMutex
	options    []choices.Record
	loader     choices.Supplier
	value      any
	generation uint64

	name       string
	normalizer *choices.Normalizer
	hooks      activity.Hooks
	channel    string
	onError    func(error)
}

func New(opts ...Option) *Control {
	c := &Control{options: []choices.Record{}}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// SetOptions normalizes source and replaces the option list. A deferred
// source leaves the list empty and keeps its supplier as the loader; any
// other source clears the loader. In-flight loads are superseded.
func (c *Control) SetOptions(ctx context.Context, source any) error {
	var loader choices.Supplier
	records, err := c.normalizer.NormalizeContext(ctx, source, func(fn choices.Supplier) { loader = fn })
	if err != nil {
		return fmt.Errorf("control: set options: %w", err)
	}

	c.mu.Lock()
	c.options = records
	c.loader = loader
	c.generation++
	c.mu.Unlock()
	return nil
}

// Options returns a copy of the current option list.
func (c *Control) Options() []choices.Record {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]choices.Record(nil), c.options...)
}

// Loader returns the supplier registered by the last deferred source, or nil.
func (c *Control) Loader() choices.Supplier {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loader
}

// Load invokes the registered loader, awaits its result with ctx and
// replaces the option list with the normalized outcome. The result is
// discarded with ErrSuperseded when SetOptions ran in the meantime.
func (c *Control) Load(ctx context.Context) error {
	c.mu.RLock()
	loader, generation := c.loader, c.generation
	c.mu.RUnlock()
	if loader == nil {
		return ErrNoLoader
	}

	source := loader()
	if deferred, ok := source.(choices.Deferred); ok {
		resolved, err := deferred.Await(ctx)
		if err != nil {
			return fmt.Errorf("control: load: %w", err)
		}
		source = resolved
	}
	records, err := c.normalizer.NormalizeContext(ctx, source, nil)
	if err != nil {
		return fmt.Errorf("control: load: %w", err)
	}

	c.mu.Lock()
	if c.generation != generation {
		c.mu.Unlock()
		return ErrSuperseded
	}
	c.options = records
	c.generation++
	c.mu.Unlock()

	c.emit(ctx, activity.BuildLoadedEvent(c.eventInput(choices.KindSupplier.String(), records, nil)))
	return nil
}

// SetValue stores the true value behind candidate: a masked token is
// replaced by the original it stands for. It returns the stored value.
func (c *Control) SetValue(ctx context.Context, candidate any) any {
	c.mu.Lock()
	value := choices.ResolveOriginal(c.options, candidate)
	c.value = value
	records := c.options
	c.mu.Unlock()

	c.emit(ctx, activity.BuildSelectedEvent(c.eventInput("", records, value)))
	return value
}

// Value returns the current value.
func (c *Control) Value() any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// IsSelected reports whether record should render as selected for the
// current value.
func (c *Control) IsSelected(record choices.Record) bool {
	if record.Passthrough {
		return false
	}
	return choices.ShouldSelect(c.Value(), record.TrueValue())
}

// Selected returns the records that should render as selected.
func (c *Control) Selected() []choices.Record {
	c.mu.RLock()
	records, value := c.options, c.value
	c.mu.RUnlock()

	var selected []choices.Record
	for _, record := range records {
		if !record.Passthrough && choices.ShouldSelect(value, record.TrueValue()) {
			selected = append(selected, record)
		}
	}
	return selected
}

func (c *Control) eventInput(kind string, records []choices.Record, value any) activity.EventInput {
	masked := 0
	for _, record := range records {
		if record.Masked {
			masked++
		}
	}
	return activity.EventInput{
		Channel: c.channel,
		Value:   value,
		List: activity.ListContext{
			Name:    c.name,
			Kind:    kind,
			Records: len(records),
			Masked:  masked,
		},
	}
}

func (c *Control) emit(ctx context.Context, event activity.Event) {
	if len(c.hooks) == 0 {
		return
	}
	emitter := activity.NewEmitter(c.hooks, activity.Config{Enabled: true, Channel: c.channel})
	if err := emitter.Emit(ctx, event); err != nil && c.onError != nil {
		c.onError(err)
	}
}
