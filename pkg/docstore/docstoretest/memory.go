// Package docstoretest provides an in-memory docstore.Collection for tests.
package docstoretest

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"github.com/diagnosis/luxsuv-reservations/pkg/docstore"
)

// Memory keeps documents in insertion order. Fields passed to NewMemory are
// treated as unique, mirroring a unique index.
type Memory struct {
	mu     sync.Mutex
	name   string
	unique []string
	order  []string
	docs   map[string]map[string]any
	err    error
}

var _ docstore.Collection = (*Memory)(nil)

func NewMemory(name string, uniqueFields ...string) *Memory {
	return &Memory{
		name:   name,
		unique: uniqueFields,
		docs:   make(map[string]map[string]any),
	}
}

// FailWith makes every following call return err. Pass nil to recover.
func (m *Memory) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Len reports how many documents are stored.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.order)
}

func (m *Memory) Name() string { return m.name }

func (m *Memory) InsertOne(ctx context.Context, rec docstore.Record) (docstore.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ctx); err != nil {
		return docstore.Record{}, err
	}
	if _, ok := m.docs[rec.ID]; ok {
		return docstore.Record{}, fmt.Errorf("insert %s: duplicate id: %w", m.name, docstore.ErrConstraint)
	}

	var doc map[string]any
	if err := json.Unmarshal(rec.Doc, &doc); err != nil {
		return docstore.Record{}, fmt.Errorf("insert %s: %w", m.name, err)
	}
	if err := m.checkUnique("", doc); err != nil {
		return docstore.Record{}, err
	}

	m.docs[rec.ID] = doc
	m.order = append(m.order, rec.ID)
	return m.record(rec.ID)
}

func (m *Memory) FindOne(ctx context.Context, filter docstore.Filter) (docstore.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ctx); err != nil {
		return docstore.Record{}, err
	}
	id, ok, err := m.first(filter)
	if err != nil {
		return docstore.Record{}, err
	}
	if !ok {
		return docstore.Record{}, docstore.ErrNoDocuments
	}
	return m.record(id)
}

func (m *Memory) Find(ctx context.Context, filter docstore.Filter) ([]docstore.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ctx); err != nil {
		return nil, err
	}
	want, err := normalize(filter)
	if err != nil {
		return nil, err
	}

	out := []docstore.Record{}
	for _, id := range m.order {
		if matches(id, m.docs[id], want) {
			rec, err := m.record(id)
			if err != nil {
				return nil, err
			}
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *Memory) FindOneAndUpdate(ctx context.Context, filter docstore.Filter, patch docstore.Patch) (docstore.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ctx); err != nil {
		return docstore.Record{}, err
	}
	id, ok, err := m.first(filter)
	if err != nil {
		return docstore.Record{}, err
	}
	if !ok {
		return docstore.Record{}, docstore.ErrNoDocuments
	}

	fields, err := normalize(docstore.Filter(patch))
	if err != nil {
		return docstore.Record{}, err
	}
	next := make(map[string]any, len(m.docs[id])+len(fields))
	for k, v := range m.docs[id] {
		next[k] = v
	}
	for k, v := range fields {
		next[k] = v
	}
	if err := m.checkUnique(id, next); err != nil {
		return docstore.Record{}, err
	}

	m.docs[id] = next
	return m.record(id)
}

func (m *Memory) FindOneAndDelete(ctx context.Context, filter docstore.Filter) (docstore.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ctx); err != nil {
		return docstore.Record{}, err
	}
	id, ok, err := m.first(filter)
	if err != nil {
		return docstore.Record{}, err
	}
	if !ok {
		return docstore.Record{}, docstore.ErrNoDocuments
	}

	rec, err := m.record(id)
	if err != nil {
		return docstore.Record{}, err
	}
	delete(m.docs, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return rec, nil
}

func (m *Memory) check(ctx context.Context) error {
	if m.err != nil {
		return m.err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", docstore.ErrUnavailable, err)
	}
	return nil
}

func (m *Memory) first(filter docstore.Filter) (string, bool, error) {
	want, err := normalize(filter)
	if err != nil {
		return "", false, err
	}
	for _, id := range m.order {
		if matches(id, m.docs[id], want) {
			return id, true, nil
		}
	}
	return "", false, nil
}

func (m *Memory) checkUnique(self string, doc map[string]any) error {
	for _, field := range m.unique {
		v, ok := doc[field]
		if !ok || v == nil {
			continue
		}
		for id, other := range m.docs {
			if id != self && reflect.DeepEqual(other[field], v) {
				return fmt.Errorf("%s: duplicate %s: %w", m.name, field, docstore.ErrConstraint)
			}
		}
	}
	return nil
}

func (m *Memory) record(id string) (docstore.Record, error) {
	body, err := json.Marshal(m.docs[id])
	if err != nil {
		return docstore.Record{}, err
	}
	return docstore.Record{ID: id, Doc: body}, nil
}

// normalize round-trips filter values through JSON so they compare equal to
// decoded documents.
func normalize(filter docstore.Filter) (map[string]any, error) {
	if len(filter) == 0 {
		return nil, nil
	}
	body, err := json.Marshal(filter)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func matches(id string, doc, want map[string]any) bool {
	for k, v := range want {
		if k == docstore.IDField {
			if v != id {
				return false
			}
			continue
		}
		if !reflect.DeepEqual(doc[k], v) {
			return false
		}
	}
	return true
}
