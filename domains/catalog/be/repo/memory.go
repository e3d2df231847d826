package repo

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/skillsight-analytics/skillsight-saas/domains/catalog/be/service"
)

// MemoryRepository is a simple in-memory implementation suitable for tests and early development.
type MemoryRepository struct {
	mu        sync.RWMutex
	templates map[uuid.UUID]service.Template
	deployed  map[uuid.UUID]map[uuid.UUID]struct{}
}

// NewMemoryRepository constructs a MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		templates: make(map[uuid.UUID]service.Template),
		deployed:  make(map[uuid.UUID]map[uuid.UUID]struct{}),
	}
}

// Upsert stores or replaces a template.
func (r *MemoryRepository) Upsert(t service.Template) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[t.ID] = t
}

// MarkDeployed records a deployed template for a tenant.
func (r *MemoryRepository) MarkDeployed(tenantID, templateID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deployed[tenantID] == nil {
		r.deployed[tenantID] = make(map[uuid.UUID]struct{})
	}
	r.deployed[tenantID][templateID] = struct{}{}
}

func (r *MemoryRepository) ListActiveTemplates(ctx context.Context) ([]service.Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]service.Template, 0, len(r.templates))
	for _, t := range r.templates {
		if !t.IsActive {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *MemoryRepository) GetTemplate(ctx context.Context, id uuid.UUID) (service.Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.templates[id]
	if !ok {
		return service.Template{}, service.ErrNotFound
	}
	return t, nil
}

func (r *MemoryRepository) DeployedTemplateIDs(ctx context.Context, tenantID uuid.UUID) (map[uuid.UUID]struct{}, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[uuid.UUID]struct{}, len(r.deployed[tenantID]))
	for id := range r.deployed[tenantID] {
		out[id] = struct{}{}
	}
	return out, nil
}

// Ensure interface compliance.
var _ service.Repository = (*MemoryRepository)(nil)
