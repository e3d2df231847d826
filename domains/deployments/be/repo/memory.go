package repo

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/skillsight-analytics/skillsight-saas/domains/deployments/be/service"
)

// MemoryRepository is a simple in-memory implementation suitable for tests and early development.
type MemoryRepository struct {
	mu            sync.Mutex
	globalModules map[uuid.UUID]service.GlobalModule
	globalTabs    map[uuid.UUID]service.GlobalTab
	templateNames map[uuid.UUID]string
	reports       map[uuid.UUID]service.DeployedReport
	orgModules    map[uuid.UUID]service.OrganizationModule
	tenantTabs    map[uuid.UUID]service.TenantTab
	log           []service.LogEntry
}

// NewMemoryRepository constructs a MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		globalModules: make(map[uuid.UUID]service.GlobalModule),
		globalTabs:    make(map[uuid.UUID]service.GlobalTab),
		templateNames: make(map[uuid.UUID]string),
		reports:       make(map[uuid.UUID]service.DeployedReport),
		orgModules:    make(map[uuid.UUID]service.OrganizationModule),
		tenantTabs:    make(map[uuid.UUID]service.TenantTab),
	}
}

// SeedHierarchy stores a global module with its tabs and template names.
func (r *MemoryRepository) SeedHierarchy(module service.GlobalModule, tabs []service.GlobalTab, templateNames map[uuid.UUID]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.globalModules[module.ID] = module
	for _, tab := range tabs {
		r.globalTabs[tab.ID] = tab
	}
	for id, name := range templateNames {
		r.templateNames[id] = name
	}
}

func (r *MemoryRepository) ListTabTemplates(ctx context.Context) ([]service.TabTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]service.TabTemplate, 0, len(r.globalTabs))
	for _, tab := range r.globalTabs {
		module, ok := r.globalModules[tab.GlobalModuleID]
		if !ok {
			continue
		}
		out = append(out, service.TabTemplate{
			Tab:          tab,
			Module:       module,
			TemplateName: r.templateNames[tab.TemplateID],
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Module.Position != out[j].Module.Position {
			return out[i].Module.Position < out[j].Module.Position
		}
		return out[i].Tab.Position < out[j].Tab.Position
	})
	return out, nil
}

func (r *MemoryRepository) GlobalModule(ctx context.Context, id uuid.UUID) (service.GlobalModule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	module, ok := r.globalModules[id]
	if !ok {
		return service.GlobalModule{}, service.ErrNotFound
	}
	return module, nil
}

func (r *MemoryRepository) FindDeployedByExternalID(ctx context.Context, tenantID uuid.UUID, externalReportID string) (service.DeployedReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, report := range r.reports {
		if report.TenantID != tenantID || report.Status == service.StatusArchived {
			continue
		}
		if report.ExternalReportID != nil && strings.EqualFold(*report.ExternalReportID, externalReportID) {
			return report, nil
		}
	}
	return service.DeployedReport{}, service.ErrNotFound
}

func (r *MemoryRepository) FindDeployedByTemplate(ctx context.Context, tenantID, templateID uuid.UUID) (service.DeployedReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, report := range r.reports {
		if report.TenantID == tenantID && report.TemplateID == templateID && report.Status != service.StatusArchived {
			return report, nil
		}
	}
	return service.DeployedReport{}, service.ErrNotFound
}

func (r *MemoryRepository) CreateDeployedReport(ctx context.Context, report service.DeployedReport) (service.DeployedReport, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.reports {
		if existing.TenantID != report.TenantID || existing.Status == service.StatusArchived {
			continue
		}
		if existing.TemplateID == report.TemplateID {
			return existing, false, nil
		}
		if existing.ExternalReportID != nil && report.ExternalReportID != nil &&
			strings.EqualFold(*existing.ExternalReportID, *report.ExternalReportID) {
			return existing, false, nil
		}
	}

	now := time.Now().UTC()
	report.CreatedAt = now
	report.UpdatedAt = now
	r.reports[report.ID] = report
	return report, true, nil
}

func (r *MemoryRepository) UpdateDeployedStatus(ctx context.Context, id uuid.UUID, status service.DeployStatus, errorMessage *string) (service.DeployedReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	report, ok := r.reports[id]
	if !ok {
		return service.DeployedReport{}, service.ErrNotFound
	}
	if !service.AllowedTransition(report.Status, status) {
		return service.DeployedReport{}, service.ErrInvalidTransition
	}

	report.Status = status
	report.ErrorMessage = errorMessage
	report.UpdatedAt = time.Now().UTC()
	r.reports[id] = report
	return report, nil
}

func (r *MemoryRepository) EnsureOrganizationModule(ctx context.Context, module service.OrganizationModule) (service.OrganizationModule, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.orgModules {
		if existing.TenantID == module.TenantID && existing.GlobalModuleID == module.GlobalModuleID {
			return existing, false, nil
		}
	}

	module.CreatedAt = time.Now().UTC()
	r.orgModules[module.ID] = module
	return module, true, nil
}

func (r *MemoryRepository) EnsureTenantTab(ctx context.Context, tab service.TenantTab) (service.TenantTab, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.tenantTabs {
		if existing.OrganizationModuleID == tab.OrganizationModuleID && existing.Name == tab.Name {
			return existing, false, nil
		}
	}

	tab.CreatedAt = time.Now().UTC()
	r.tenantTabs[tab.ID] = tab
	return tab, true, nil
}

func (r *MemoryRepository) AppendLog(ctx context.Context, entry service.LogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	r.log = append(r.log, entry)
	return nil
}

func (r *MemoryRepository) ListLog(ctx context.Context, tenantID uuid.UUID, limit int) ([]service.LogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []service.LogEntry
	for i := len(r.log) - 1; i >= 0 && len(out) < limit; i-- {
		if r.log[i].TenantID == tenantID {
			out = append(out, r.log[i])
		}
	}
	return out, nil
}

// Ensure interface compliance.
var _ service.Repository = (*MemoryRepository)(nil)
