// Package memory implements the backend contract with in-memory rows.
// Intended for demos and testing — no database required. It is also the
// reference for the execution semantics the engine expects, in
// particular the interaction of immediate/delayed annotations with
// main-query filtering.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/matthewbaird/genq/internal/backend"
	"github.com/matthewbaird/genq/internal/schema"
)

// Store holds rows for every registered entity, in insertion order.
type Store struct {
	mu       sync.RWMutex
	registry *schema.Registry
	rows     map[string][]*row
	byKey    map[string]map[any]*row
}

type row struct {
	values map[string]any   // scalar fields, including the primary key
	rels   map[string][]any // relation name -> ordered target keys
}

// NewStore creates an empty store over the given schema.
func NewStore(registry *schema.Registry) *Store {
	return &Store{
		registry: registry,
		rows:     make(map[string][]*row),
		byKey:    make(map[string]map[any]*row),
	}
}

// Insert adds one row. Scalar values are stored as given; relation
// entries may hold a single key, a key slice or nil. Reverse relations
// are not maintained automatically — use Link for both directions.
func (s *Store) Insert(entity string, values map[string]any) error {
	et := s.registry.Entity(entity)
	if et == nil {
		return fmt.Errorf("memory: unknown entity %q", entity)
	}

	r := &row{values: make(map[string]any), rels: make(map[string][]any)}
	for name, v := range values {
		if et.Relation(name) != nil {
			r.rels[name] = toKeys(v)
			continue
		}
		r.values[name] = v
	}

	pk, ok := r.values[et.PrimaryKey]
	if !ok {
		return fmt.Errorf("memory: %s row is missing primary key %q", entity, et.PrimaryKey)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[entity] = append(s.rows[entity], r)
	if s.byKey[entity] == nil {
		s.byKey[entity] = make(map[any]*row)
	}
	s.byKey[entity][pk] = r
	return nil
}

// Link appends target keys to a relation of an existing row.
func (s *Store) Link(entity string, key any, relation string, targets ...any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.byKey[entity][key]
	if r == nil {
		return fmt.Errorf("memory: no %s row with key %v", entity, key)
	}
	r.rels[relation] = append(r.rels[relation], targets...)
	return nil
}

func toKeys(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	case []int64:
		keys := make([]any, len(t))
		for i, k := range t {
			keys[i] = k
		}
		return keys
	case []int:
		keys := make([]any, len(t))
		for i, k := range t {
			keys[i] = int64(k)
		}
		return keys
	case int:
		return []any{int64(t)}
	default:
		return []any{t}
	}
}

// Query creates a fresh plan for the entity.
func (s *Store) Query(entity string) (backend.Query, error) {
	et := s.registry.Entity(entity)
	if et == nil {
		return nil, fmt.Errorf("memory: unknown entity %q", entity)
	}
	return &query{st: s, et: et}, nil
}

// Related returns the rows behind a relation of rec, narrowed by spec.
func (s *Store) Related(ctx context.Context, rec backend.Record, relation string, spec backend.RelatedSpec) ([]backend.Record, error) {
	mrec, ok := rec.(*record)
	if !ok {
		return nil, fmt.Errorf("memory: foreign record type %T", rec)
	}
	rel := mrec.et.Relation(relation)
	if rel == nil {
		return nil, fmt.Errorf("memory: %s has no relation %q", mrec.et.Name, relation)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	related := s.relatedRecords(mrec, rel)
	matched := related[:0:0]
	for _, r := range related {
		if s.matchesAll(r, spec.Filters) {
			matched = append(matched, r)
		}
	}
	s.sortRecords(matched, spec.Sort)

	if spec.Start > len(matched) {
		matched = nil
	} else {
		matched = matched[spec.Start:]
	}
	if spec.Limit > 0 && spec.Limit < len(matched) {
		matched = matched[:spec.Limit]
	}

	out := make([]backend.Record, len(matched))
	for i, r := range matched {
		out[i] = r
	}
	return out, nil
}

// record implements backend.Record over a stored row plus any
// per-query annotation values.
type record struct {
	st  *Store
	et  *schema.EntityType
	r   *row
	ann map[string]any
}

func (rec *record) Entity() string { return rec.et.Name }

func (rec *record) Field(name string) (any, bool) {
	if v, ok := rec.ann[name]; ok {
		return v, true
	}
	v, ok := rec.r.values[name]
	return v, ok
}

func (rec *record) RelatedKeys(relation string) []any {
	keys := rec.r.rels[relation]
	out := make([]any, len(keys))
	copy(out, keys)
	return out
}

// relatedRecords resolves a relation's target rows. Callers hold the
// store lock.
func (s *Store) relatedRecords(rec *record, rel *schema.Relation) []*record {
	target := s.registry.Entity(rel.Target)
	if target == nil {
		return nil
	}
	keys := rec.r.rels[rel.Name]
	out := make([]*record, 0, len(keys))
	for _, k := range keys {
		if r := s.byKey[rel.Target][k]; r != nil {
			out = append(out, &record{st: s, et: target, r: r})
		}
	}
	return out
}
