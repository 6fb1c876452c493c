package service

import (
	"context"
	"sort"
	"sync"

	cerrors "github.com/abgdnv/productcatalog/internal/catalog/errors"
	"github.com/abgdnv/productcatalog/internal/catalog/store"
	"github.com/abgdnv/productcatalog/pkg/messaging"
	"github.com/stretchr/testify/mock"
)

// memStore is an in-memory ProductStore with injectable failures.
type memStore struct {
	mu        sync.Mutex
	nextID    int64
	rows      map[int64]store.Product
	createErr error
	updateErr error
	deleteErr error
	findErr   error
}

func newMemStore() *memStore {
	return &memStore{nextID: 1, rows: map[int64]store.Product{}}
}

func (m *memStore) Create(_ context.Context, p *store.Product) (*store.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	created := *p
	created.ID = m.nextID
	m.nextID++
	m.rows[created.ID] = created
	return &created, nil
}

func (m *memStore) FindByID(_ context.Context, id int64) (*store.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	p, ok := m.rows[id]
	if !ok {
		return nil, cerrors.NewNotFound(id)
	}
	return &p, nil
}

func (m *memStore) FindAll(_ context.Context) ([]store.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	out := make([]store.Product, 0, len(m.rows))
	for _, p := range m.rows {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) Update(_ context.Context, p *store.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	existing, ok := m.rows[p.ID]
	if !ok {
		return cerrors.NewNotFound(p.ID)
	}
	updated := *p
	updated.CreatedAt = existing.CreatedAt
	m.rows[p.ID] = updated
	return nil
}

func (m *memStore) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.rows[id]; !ok {
		return cerrors.NewNotFound(id)
	}
	delete(m.rows, id)
	return nil
}

// memBlobs is an in-memory blob.Store recording the order of operations.
type memBlobs struct {
	mu        sync.Mutex
	data      map[string][]byte
	ops       []string
	putErr    error
	deleteErr error
}

func newMemBlobs() *memBlobs {
	return &memBlobs{data: map[string][]byte{}}
}

func (b *memBlobs) Put(_ context.Context, key string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ops = append(b.ops, "put "+key)
	if b.putErr != nil {
		return &cerrors.StorageError{Op: "put", Key: key, Err: b.putErr}
	}
	b.data[key] = append([]byte(nil), data...)
	return nil
}

func (b *memBlobs) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.data[key]
	if !ok {
		return nil, &cerrors.StorageError{Op: "get", Key: key, Err: cerrors.ErrBlobNotFound}
	}
	return data, nil
}

func (b *memBlobs) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ops = append(b.ops, "delete "+key)
	if b.deleteErr != nil {
		return &cerrors.StorageError{Op: "delete", Key: key, Err: b.deleteErr}
	}
	delete(b.data, key)
	return nil
}

func (b *memBlobs) has(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.data[key]
	return ok
}

func (b *memBlobs) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// mockPublisher is a testify mock of messaging.Publisher.
type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, event messaging.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
