package service

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// testRepo is a minimal in-memory impl of Repository for tests.
type testRepo struct {
	mu   sync.Mutex
	data map[uuid.UUID]Tenant
}

func newTestRepo() *testRepo {
	return &testRepo{data: make(map[uuid.UUID]Tenant)}
}

func (r *testRepo) List(ctx context.Context, opts ListOptions) (ListResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]Tenant, 0, len(r.data))
	for _, t := range r.data {
		items = append(items, t)
	}
	return ListResult{Tenants: items, Page: 1, PageSize: len(items), TotalItems: len(items), TotalPages: 1}, nil
}

func (r *testRepo) Create(ctx context.Context, t Tenant) (Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.data {
		if existing.Slug == t.Slug {
			return Tenant{}, ErrConflictSlug
		}
	}
	r.data[t.ID] = t
	return t, nil
}

func (r *testRepo) Get(ctx context.Context, id uuid.UUID) (Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.data[id]
	if !ok {
		return Tenant{}, ErrNotFound
	}
	return t, nil
}

func (r *testRepo) Update(ctx context.Context, t Tenant) (Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[t.ID]; !ok {
		return Tenant{}, ErrNotFound
	}
	r.data[t.ID] = t
	return t, nil
}

func (r *testRepo) FindBySlug(ctx context.Context, slug string) (Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.data {
		if t.Slug == slug {
			return t, nil
		}
	}
	return Tenant{}, ErrNotFound
}
