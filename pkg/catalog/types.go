package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	choices "github.com/goliatone/go-choices"
)

var (
	// ErrNotFound reports a Ref with no stored source.
	ErrNotFound = errors.New("catalog: source not found")
	// ErrETagMismatch reports a mutation against a stale version.
	ErrETagMismatch = errors.New("catalog: etag mismatch")
	// ErrInvalidRef reports a Ref that cannot be turned into a key.
	ErrInvalidRef = errors.New("catalog: invalid ref")
)

// Ref identifies one stored options source.
type Ref struct {
	Namespace string
	Name      string
}

// Identifier returns the deterministic storage key "namespace/name", or
// "name" when no namespace is set.
func (r Ref) Identifier() (string, error) {
	if err := validSegment(r.Name); err != nil {
		return "", fmt.Errorf("%w: name: %v", ErrInvalidRef, err)
	}
	if r.Namespace == "" {
		return r.Name, nil
	}
	if err := validSegment(r.Namespace); err != nil {
		return "", fmt.Errorf("%w: namespace: %v", ErrInvalidRef, err)
	}
	return r.Namespace + "/" + r.Name, nil
}

func (r Ref) String() string {
	if r.Namespace == "" {
		return r.Name
	}
	return r.Namespace + "/" + r.Name
}

func validSegment(segment string) error {
	switch {
	case segment == "":
		return errors.New("must not be empty")
	case segment == "." || segment == "..":
		return fmt.Errorf("%q is reserved", segment)
	case strings.ContainsAny(segment, `/\`):
		return fmt.Errorf("%q must not contain path separators", segment)
	}
	return nil
}

// Meta is storage-owned metadata used for audit and concurrency control.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty"`
	ETag       string            `json:"etag,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Store loads and saves one source for a single Ref.
type Store interface {
	Load(ctx context.Context, ref Ref) (source any, meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, source any, meta Meta) (Meta, error)
}

// Mutator receives the current source (nil when none is stored) and returns
// the replacement.
type Mutator func(source any) (any, error)

// Resolver resolves stored sources and normalizes them.
type Resolver struct {
	Store Store
	// Normalizer defaults to the package level choices behaviour.
	Normalizer *choices.Normalizer
}

// Resolve loads the raw source stored under ref.
func (r Resolver) Resolve(ctx context.Context, ref Ref) (any, Meta, error) {
	if r.Store == nil {
		return nil, Meta{}, fmt.Errorf("catalog: store is required")
	}
	source, meta, ok, err := r.Store.Load(ctx, ref)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("catalog: load %q: %w", ref, err)
	}
	if !ok {
		return nil, Meta{}, fmt.Errorf("%w: %q", ErrNotFound, ref)
	}
	return source, meta, nil
}

// Records resolves ref and normalizes it. Stored suppliers that yield a
// deferred source are awaited with ctx.
func (r Resolver) Records(ctx context.Context, ref Ref) ([]choices.Record, Meta, error) {
	source, meta, err := r.Resolve(ctx, ref)
	if err != nil {
		return nil, Meta{}, err
	}
	var loader choices.Supplier
	records, err := r.Normalizer.NormalizeContext(ctx, source, func(fn choices.Supplier) { loader = fn })
	if err != nil {
		return nil, Meta{}, fmt.Errorf("catalog: normalize %q: %w", ref, err)
	}
	if loader == nil {
		return records, meta, nil
	}
	resolved := loader()
	if deferred, ok := resolved.(choices.Deferred); ok {
		resolved, err = deferred.Await(ctx)
		if err != nil {
			return nil, Meta{}, fmt.Errorf("catalog: await %q: %w", ref, err)
		}
	}
	records, err = r.Normalizer.NormalizeContext(ctx, resolved, nil)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("catalog: normalize %q: %w", ref, err)
	}
	return records, meta, nil
}

// Supplier returns a choices.Supplier whose result is deferred: normalizing
// it registers the supplier as a loader, and awaiting the result reads the
// current source from the store.
func (r Resolver) Supplier(ref Ref) choices.Supplier {
	return func() any {
		return choices.DeferredFunc(func(ctx context.Context) (any, error) {
			source, _, err := r.Resolve(ctx, ref)
			return source, err
		})
	}
}

// Mutate loads one source, applies fn, checks the result normalizes, then
// saves it. A non-empty meta.ETag must match the stored ETag.
func (r Resolver) Mutate(ctx context.Context, ref Ref, meta Meta, fn Mutator) (Meta, error) {
	if r.Store == nil {
		return Meta{}, fmt.Errorf("catalog: store is required")
	}
	if fn == nil {
		return Meta{}, fmt.Errorf("catalog: mutator is required")
	}
	if _, err := ref.Identifier(); err != nil {
		return Meta{}, err
	}

	source, loadedMeta, ok, err := r.Store.Load(ctx, ref)
	if err != nil {
		return Meta{}, fmt.Errorf("catalog: load %q: %w", ref, err)
	}
	if !ok {
		source = nil
		loadedMeta = Meta{}
	}

	if meta.ETag != "" && loadedMeta.ETag != "" && meta.ETag != loadedMeta.ETag {
		return loadedMeta, fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, meta.ETag, loadedMeta.ETag)
	}

	next, err := fn(source)
	if err != nil {
		return loadedMeta, err
	}
	if _, err := choices.Normalize(next, nil); err != nil {
		return loadedMeta, fmt.Errorf("catalog: mutate %q: %w", ref, err)
	}

	saved, err := r.Store.Save(ctx, ref, next, mergeMeta(loadedMeta, meta))
	if err != nil {
		return loadedMeta, fmt.Errorf("catalog: save %q: %w", ref, err)
	}
	return saved, nil
}

func mergeMeta(base, override Meta) Meta {
	out := base
	if override.SnapshotID != "" {
		out.SnapshotID = override.SnapshotID
	}
	if override.ETag != "" {
		out.ETag = override.ETag
	}
	if !override.UpdatedAt.IsZero() {
		out.UpdatedAt = override.UpdatedAt
	}
	if override.Extra != nil {
		out.Extra = override.Extra
	}
	return out
}
