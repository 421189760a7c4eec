package catalog_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	choices "github.com/goliatone/go-choices"
	"github.com/goliatone/go-choices/pkg/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestFileStoreLoadsYAMLInKeyOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "forms", "sizes.yaml"), "l: Large\ns: Small\nm: Medium\n")

	resolver := catalog.Resolver{Store: catalog.NewFileStore(dir)}
	records, meta, err := resolver.Records(context.Background(), catalog.Ref{Namespace: "forms", Name: "sizes"})
	require.NoError(t, err)
	assert.Equal(t, "forms/sizes", meta.SnapshotID)
	assert.Len(t, meta.ETag, 64)

	values := make([]any, len(records))
	for i, record := range records {
		values[i] = record.Value
	}
	assert.Equal(t, []any{"l", "s", "m"}, values)
}

func TestFileStoreLoadsJSONSequence(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "colors.json"), `["red", {"value": 7, "label": "seven", "hex": "#777"}, "blue"]`)

	resolver := catalog.Resolver{Store: catalog.NewFileStore(dir)}
	records, _, err := resolver.Records(context.Background(), catalog.Ref{Name: "colors"})
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "__mask_1", records[1].Value)
	assert.Equal(t, 7, records[1].Original)
	hex, ok := records[1].Attr("hex")
	assert.True(t, ok)
	assert.Equal(t, "#777", hex)
}

func TestFileStoreLoadMissing(t *testing.T) {
	_, _, ok, err := catalog.NewFileStore(t.TempDir()).Load(context.Background(), catalog.Ref{Name: "missing"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStoreSaveReplacesYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "sizes.yml"), "- s\n")
	store := catalog.NewFileStore(dir)
	ref := catalog.Ref{Name: "sizes"}

	_, before, ok, err := store.Load(context.Background(), ref)
	require.NoError(t, err)
	require.True(t, ok)

	saved, err := store.Save(context.Background(), ref, choices.List{"s", "m"}, catalog.Meta{})
	require.NoError(t, err)
	assert.NotEqual(t, before.ETag, saved.ETag)

	_, err = os.Stat(filepath.Join(dir, "sizes.yml"))
	assert.True(t, os.IsNotExist(err))

	source, meta, ok, err := store.Load(context.Background(), ref)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, saved.ETag, meta.ETag)
	assert.Equal(t, choices.List{"s", "m"}, source)
}

func TestFileStoreMutateChecksContentETag(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "colors.json"), `["red"]`)
	resolver := catalog.Resolver{Store: catalog.NewFileStore(dir)}
	ref := catalog.Ref{Name: "colors"}

	_, meta, err := resolver.Resolve(context.Background(), ref)
	require.NoError(t, err)

	writeFile(t, filepath.Join(dir, "colors.json"), `["red", "green"]`)

	_, err = resolver.Mutate(context.Background(), ref, meta, func(source any) (any, error) {
		return source, nil
	})
	assert.ErrorIs(t, err, catalog.ErrETagMismatch)
}

func TestFileStoreWatchReportsChangedRef(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "forms"), 0o755))
	store := catalog.NewFileStore(dir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan catalog.Ref, 16)
	done := make(chan error, 1)
	go func() {
		done <- store.Watch(ctx, func(ref catalog.Ref) { changes <- ref })
	}()

	want := catalog.Ref{Namespace: "forms", Name: "sizes"}
	deadline := time.After(5 * time.Second)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case ref := <-changes:
			if ref == want {
				cancel()
				require.NoError(t, <-done)
				return
			}
		case <-ticker.C:
			// the watcher may not be registered on the first write
			writeFile(t, filepath.Join(dir, "forms", "sizes.json"), `["s"]`)
		case <-deadline:
			t.Fatal("expected a change notification for forms/sizes")
		}
	}
}

func TestFileStoreWatchRequiresCallback(t *testing.T) {
	err := catalog.NewFileStore(t.TempDir()).Watch(context.Background(), nil)
	assert.Error(t, err)
}
