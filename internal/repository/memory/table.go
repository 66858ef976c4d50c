// Package memory implements the repositories in process. It backs the tests and
// STORE_DRIVER=memory, and enforces the same unique constraints as the Mongo indexes.
package memory

import (
	"sort"
	"sync"

	"github.com/harentsoaR/vetclinic-api/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// uniqueKey extracts the value of a unique field; an empty key is not indexed.
type uniqueKey[T any] struct {
	field string
	key   func(*T) string
}

// table stores documents as BSON so callers never share memory with the store.
type table[T any] struct {
	mu      sync.RWMutex
	docs    map[primitive.ObjectID][]byte
	order   []primitive.ObjectID
	id      func(*T) primitive.ObjectID
	uniques []uniqueKey[T]
}

func newTable[T any](id func(*T) primitive.ObjectID, uniques ...uniqueKey[T]) *table[T] {
	return &table[T]{docs: make(map[primitive.ObjectID][]byte), id: id, uniques: uniques}
}

func encode[T any](doc *T) ([]byte, error) {
	return bson.Marshal(doc)
}

func decode[T any](raw []byte) (*T, error) {
	var doc T
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (t *table[T]) insert(doc *T) error {
	raw, err := encode(doc)
	if err != nil {
		return err
	}
	id := t.id(doc)

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.docs[id]; ok {
		return &repository.DuplicateKeyError{Field: "_id"}
	}
	if err := t.checkUniques(doc, id); err != nil {
		return err
	}
	t.docs[id] = raw
	t.order = append(t.order, id)
	return nil
}

func (t *table[T]) replace(doc *T) error {
	raw, err := encode(doc)
	if err != nil {
		return err
	}
	id := t.id(doc)

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.docs[id]; !ok {
		return repository.ErrNotFound
	}
	if err := t.checkUniques(doc, id); err != nil {
		return err
	}
	t.docs[id] = raw
	return nil
}

// checkUniques must be called with the write lock held.
func (t *table[T]) checkUniques(doc *T, self primitive.ObjectID) error {
	for _, u := range t.uniques {
		want := u.key(doc)
		if want == "" {
			continue
		}
		for id, raw := range t.docs {
			if id == self {
				continue
			}
			other, err := decode[T](raw)
			if err != nil {
				return err
			}
			if u.key(other) == want {
				return &repository.DuplicateKeyError{Field: u.field}
			}
		}
	}
	return nil
}

func (t *table[T]) get(id primitive.ObjectID) (*T, error) {
	t.mu.RLock()
	raw, ok := t.docs[id]
	t.mu.RUnlock()
	if !ok {
		return nil, repository.ErrNotFound
	}
	return decode[T](raw)
}

// filter returns copies of the documents matching keep in insertion order.
func (t *table[T]) filter(keep func(*T) bool) ([]*T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]*T, 0)
	for _, id := range t.order {
		doc, err := decode[T](t.docs[id])
		if err != nil {
			return nil, err
		}
		if keep == nil || keep(doc) {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (t *table[T]) first(keep func(*T) bool) (*T, error) {
	docs, err := t.filter(keep)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, repository.ErrNotFound
	}
	return docs[0], nil
}

func sortBy[T any](docs []*T, less func(a, b *T) bool) {
	sort.SliceStable(docs, func(i, j int) bool { return less(docs[i], docs[j]) })
}
