package choices

import (
	"context"

	"github.com/goliatone/go-choices/pkg/activity"
)

// WithActivityHooks notifies hooks after every successful normalization and
// when a loader is registered. Nil hooks are dropped.
func WithActivityHooks(hooks activity.Hooks) Option {
	normalized := activity.CloneHooks(hooks)
	return func(cfg *config) {
		cfg.activityHooks = normalized
	}
}

// WithActivityChannel sets the channel stamped on emitted events.
func WithActivityChannel(channel string) Option {
	return func(cfg *config) {
		cfg.activityChannel = channel
	}
}

// ActivityHooks returns a copy of the configured hooks.
func (n *Normalizer) ActivityHooks() activity.Hooks {
	if n == nil {
		return nil
	}
	return activity.CloneHooks(n.cfg.activityHooks)
}

// emit reports a normalization pass. Hook failures never fail normalization;
// they are handed to the logger instead.
func (n *Normalizer) emit(ctx context.Context, result normalization) {
	if len(n.cfg.activityHooks) == 0 {
		return
	}
	emitter := activity.NewEmitter(n.cfg.activityHooks, activity.Config{
		Enabled: true,
		Channel: n.cfg.activityChannel,
	})
	input := activity.EventInput{
		List: activity.ListContext{
			Kind:     result.kind.String(),
			Records:  len(result.records),
			Masked:   result.masked,
			Deferred: result.deferred,
		},
	}
	event := activity.BuildNormalizedEvent(input)
	if result.deferred {
		event = activity.BuildLoaderRegisteredEvent(input)
	}
	if err := emitter.Emit(ctx, event); err != nil {
		n.logger().LogNormalization(NormalizationLogEvent{
			Kind:     result.kind,
			Records:  len(result.records),
			Masked:   result.masked,
			Deferred: result.deferred,
			Err:      err,
		})
	}
}
