package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-choices/internal/clone"
	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store keyed by Ref.Identifier. Sources are
// deep copied on the way in and out. Every save issues a new ETag.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]memoryRecord
	now     func() time.Time
}

type memoryRecord struct {
	source any
	meta   Meta
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]memoryRecord{}, now: time.Now}
}

func (s *MemoryStore) Load(_ context.Context, ref Ref) (any, Meta, bool, error) {
	key, err := ref.Identifier()
	if err != nil {
		return nil, Meta{}, false, err
	}

	s.mu.RLock()
	record, ok := s.records[key]
	s.mu.RUnlock()
	if !ok {
		return nil, Meta{}, false, nil
	}
	return clone.Value(record.source), cloneMeta(record.meta), true, nil
}

func (s *MemoryStore) Save(_ context.Context, ref Ref, source any, meta Meta) (Meta, error) {
	key, err := ref.Identifier()
	if err != nil {
		return Meta{}, err
	}

	saved := cloneMeta(meta)
	if saved.SnapshotID == "" {
		saved.SnapshotID = uuid.NewString()
	}
	saved.ETag = uuid.NewString()
	if saved.UpdatedAt.IsZero() {
		saved.UpdatedAt = s.now()
	}

	s.mu.Lock()
	s.records[key] = memoryRecord{source: clone.Value(source), meta: saved}
	s.mu.Unlock()
	return cloneMeta(saved), nil
}

// Len returns the number of stored sources.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func cloneMeta(meta Meta) Meta {
	out := meta
	if meta.Extra == nil {
		return out
	}
	out.Extra = make(map[string]string, len(meta.Extra))
	for k, v := range meta.Extra {
		out.Extra[k] = v
	}
	return out
}
