package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/goliatone/go-choices/internal/hydrate"
)

var sourceExtensions = []string{".json", ".yaml", ".yml"}

// FileStoreOption configures a FileStore.
type FileStoreOption func(*FileStore)

// WithDecoder replaces the decoder used to read stored files.
func WithDecoder(decoder *hydrate.Decoder) FileStoreOption {
	return func(s *FileStore) {
		if decoder != nil {
			s.decoder = decoder
		}
	}
}

// WithWatchErrorHandler receives errors reported by the file watcher.
// Watching continues after the handler returns.
func WithWatchErrorHandler(fn func(error)) FileStoreOption {
	return func(s *FileStore) {
		s.onWatchError = fn
	}
}

// FileStore keeps one JSON or YAML file per Ref under a root directory:
// "<root>/<namespace>/<name>.<ext>". Saves always write JSON.
type FileStore struct {
	root         string
	decoder      *hydrate.Decoder
	onWatchError func(error)
}

func NewFileStore(root string, opts ...FileStoreOption) *FileStore {
	s := &FileStore{root: root, decoder: hydrate.NewDecoder()}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Root returns the directory the store reads from.
func (s *FileStore) Root() string {
	return s.root
}

func (s *FileStore) Load(_ context.Context, ref Ref) (any, Meta, bool, error) {
	key, err := ref.Identifier()
	if err != nil {
		return nil, Meta{}, false, err
	}
	for _, ext := range sourceExtensions {
		path := filepath.Join(s.root, filepath.FromSlash(key)+ext)
		payload, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, Meta{}, false, err
		}
		info, err := os.Stat(path)
		if err != nil {
			return nil, Meta{}, false, err
		}
		format, err := hydrate.FormatFromPath(path)
		if err != nil {
			return nil, Meta{}, false, err
		}
		source, err := s.decoder.Decode(hydrate.Context{Name: key, Format: format}, payload)
		if err != nil {
			return nil, Meta{}, false, err
		}
		return source, Meta{
			SnapshotID: key,
			ETag:       contentETag(payload),
			UpdatedAt:  info.ModTime(),
			Extra:      map[string]string{"path": path},
		}, true, nil
	}
	return nil, Meta{}, false, nil
}

// Save writes source as indented JSON through a temporary file and removes
// YAML files stored under the same Ref.
func (s *FileStore) Save(_ context.Context, ref Ref, source any, _ Meta) (Meta, error) {
	key, err := ref.Identifier()
	if err != nil {
		return Meta{}, err
	}
	payload, err := json.MarshalIndent(source, "", "  ")
	if err != nil {
		return Meta{}, fmt.Errorf("catalog: encode %q: %w", ref, err)
	}
	payload = append(payload, '\n')

	base := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(base), 0o755); err != nil {
		return Meta{}, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(base), ".choices-*")
	if err != nil {
		return Meta{}, err
	}
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return Meta{}, err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return Meta{}, err
	}
	path := base + ".json"
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return Meta{}, err
	}
	for _, ext := range sourceExtensions[1:] {
		if err := os.Remove(base + ext); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Meta{}, err
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return Meta{}, err
	}
	return Meta{
		SnapshotID: key,
		ETag:       contentETag(payload),
		UpdatedAt:  info.ModTime(),
		Extra:      map[string]string{"path": path},
	}, nil
}

// Watch calls fn with the Ref of every source file that is written, created,
// removed or renamed under the root directory. It blocks until ctx is done.
func (s *FileStore) Watch(ctx context.Context, fn func(Ref)) error {
	if fn == nil {
		return fmt.Errorf("catalog: watch callback is required")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("catalog: create watcher: %w", err)
	}
	defer watcher.Close()

	if err := s.watchTree(watcher, s.root); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("catalog: watcher events channel closed")
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := s.watchTree(watcher, event.Name); err != nil {
						s.watchError(err)
					}
					continue
				}
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if ref, ok := s.refFromPath(event.Name); ok {
				fn(ref)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("catalog: watcher errors channel closed")
			}
			s.watchError(err)
		}
	}
}

func (s *FileStore) watchTree(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(entry.Name(), ".") {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("catalog: watch %q: %w", path, err)
		}
		return nil
	})
}

// refFromPath maps "<root>/ns/name.json" back to its Ref. Hidden files and
// files with other extensions are ignored.
func (s *FileStore) refFromPath(path string) (Ref, bool) {
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return Ref{}, false
	}
	rel = filepath.ToSlash(rel)
	ext := strings.ToLower(filepath.Ext(rel))
	known := false
	for _, candidate := range sourceExtensions {
		if ext == candidate {
			known = true
			break
		}
	}
	if !known || strings.HasPrefix(filepath.Base(rel), ".") {
		return Ref{}, false
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	var ref Ref
	if ns, name, ok := strings.Cut(rel, "/"); ok {
		ref = Ref{Namespace: ns, Name: name}
	} else {
		ref = Ref{Name: rel}
	}
	if _, err := ref.Identifier(); err != nil {
		return Ref{}, false
	}
	return ref, true
}

func (s *FileStore) watchError(err error) {
	if s.onWatchError != nil && err != nil {
		s.onWatchError(err)
	}
}

func contentETag(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
