// Package testutil provides in-memory implementations of the fixture ports for tests.
package testutil

import (
	"context"
	"errors"
	"sort"
	"sync"

	"mongo-fixtures/internal/fixtures/domain/model"
	"mongo-fixtures/internal/fixtures/domain/repository"
)

// OpKind names a recorded store operation
type OpKind string

const (
	OpList   OpKind = "list"
	OpClear  OpKind = "clear"
	OpInsert OpKind = "insert"
	OpClose  OpKind = "close"
)

// Op is one store call, recorded in the order calls started
type Op struct {
	Kind       OpKind
	Collection string
	Count      int
}

// MemoryStore is a concurrency-safe repository.Store backed by maps.
// Collections are created by Seed or by the first insert.
type MemoryStore struct {
	mu          sync.Mutex
	collections map[string][]model.Document
	ops         []Op
	closed      bool

	listErr   error
	clearErr  map[string]error
	insertErr map[string]error

	// OnInsert, when set, runs before every insert outside the store lock.
	OnInsert func(collection string)
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string][]model.Document),
		clearErr:    make(map[string]error),
		insertErr:   make(map[string]error),
	}
}

var _ repository.Store = (*MemoryStore)(nil)

// ErrStoreClosed is returned by every call made after Close
var ErrStoreClosed = errors.New("memory store closed")

// Seed appends docs to a collection, creating it when needed
func (s *MemoryStore) Seed(collection string, docs ...model.Document) *MemoryStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing := s.collections[collection]
	if existing == nil {
		existing = []model.Document{}
	}
	for _, d := range docs {
		existing = append(existing, d.Clone())
	}
	s.collections[collection] = existing
	return s
}

// FailList makes ListCollectionNames return err
func (s *MemoryStore) FailList(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listErr = err
}

// FailClear makes clearing collection return err
func (s *MemoryStore) FailClear(collection string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearErr[collection] = err
}

// FailInsert makes inserting into collection return err
func (s *MemoryStore) FailInsert(collection string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertErr[collection] = err
}

func (s *MemoryStore) ListCollectionNames(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	s.ops = append(s.ops, Op{Kind: OpList})
	if s.listErr != nil {
		return nil, s.listErr
	}
	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *MemoryStore) ClearCollection(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	s.ops = append(s.ops, Op{Kind: OpClear, Collection: name})
	if err := s.clearErr[name]; err != nil {
		return err
	}
	if _, ok := s.collections[name]; ok {
		s.collections[name] = []model.Document{}
	}
	return nil
}

func (s *MemoryStore) InsertMany(ctx context.Context, name string, docs []model.Document) error {
	if s.OnInsert != nil {
		s.OnInsert(name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	s.ops = append(s.ops, Op{Kind: OpInsert, Collection: name, Count: len(docs)})
	if err := s.insertErr[name]; err != nil {
		return err
	}
	for _, d := range docs {
		s.collections[name] = append(s.collections[name], d.Clone())
	}
	return nil
}

func (s *MemoryStore) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	s.closed = true
	s.ops = append(s.ops, Op{Kind: OpClose})
	return nil
}

// Documents returns a copy of the documents of a collection in insertion order
func (s *MemoryStore) Documents(collection string) []model.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs := make([]model.Document, len(s.collections[collection]))
	for i, d := range s.collections[collection] {
		docs[i] = d.Clone()
	}
	return docs
}

// Count returns the number of documents in a collection
func (s *MemoryStore) Count(collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.collections[collection])
}

// HasCollection reports whether a collection exists
func (s *MemoryStore) HasCollection(collection string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.collections[collection]
	return ok
}

// Ops returns the recorded calls
func (s *MemoryStore) Ops() []Op {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Op(nil), s.ops...)
}

// OpsOf returns the recorded calls of one kind
func (s *MemoryStore) OpsOf(kind OpKind) []Op {
	var out []Op
	for _, op := range s.Ops() {
		if op.Kind == kind {
			out = append(out, op)
		}
	}
	return out
}

// Closed reports whether Close was called
func (s *MemoryStore) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// MemoryConnector hands out a single MemoryStore and counts Connect calls
type MemoryConnector struct {
	Store *MemoryStore
	Err   error
	DB    string

	mu    sync.Mutex
	calls int
}

// NewMemoryConnector returns a connector for store
func NewMemoryConnector(store *MemoryStore) *MemoryConnector {
	return &MemoryConnector{Store: store, DB: "fixtures_test"}
}

var _ repository.Connector = (*MemoryConnector)(nil)

func (c *MemoryConnector) Connect(ctx context.Context) (repository.Store, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.Err != nil {
		return nil, c.Err
	}
	return c.Store, nil
}

func (c *MemoryConnector) Database() string { return c.DB }

// Calls returns the number of Connect calls
func (c *MemoryConnector) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}
