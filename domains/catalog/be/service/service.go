package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/skillsight-analytics/skillsight-saas/platform/go/provider"
)

// Errors returned by the service layer.
var (
	ErrNotFound       = errors.New("catalog template not found")
	ErrTenantNotFound = errors.New("tenant not found")
)

// Template is the domain model for a catalog item eligible for deployment.
// Codes holds the structured provider fields persisted alongside the name;
// when any of them is set the stored values are authoritative and the display
// name is not parsed.
type Template struct {
	ID                 uuid.UUID
	Name               string
	Category           string
	Codes              provider.Codes
	RoleName           *string
	Version            *provider.Version
	ExternalTemplateID *string
	IsActive           bool
	IsTemplate         bool
}

// EffectiveCodes returns the provider codes the matcher should score against:
// the stored structured fields when present, otherwise the codes parsed from
// the display name.
func (t Template) EffectiveCodes() provider.Codes {
	if !t.Codes.IsEmpty() {
		return t.Codes
	}
	return provider.ParseTemplateName(t.Name).Codes
}

// MatchCandidate is one ranked result of a matching run. Candidates are
// recomputed per run and never persisted.
type MatchCandidate struct {
	TemplateID uuid.UUID
	Name       string
	Category   string
	CodeString string
	MatchType  MatchType
	MatchScore int
	IsDeployed bool
	Codes      provider.Codes
}

// MatchResult wraps the ranked candidate list with aggregate counts.
type MatchResult struct {
	Candidates    []MatchCandidate
	TotalMatching int
	Deployed      int
	Pending       int
}

// Repository abstracts catalog persistence.
type Repository interface {
	ListActiveTemplates(ctx context.Context) ([]Template, error)
	GetTemplate(ctx context.Context, id uuid.UUID) (Template, error)
	// DeployedTemplateIDs returns the ids of templates with a non-archived
	// deployed report for the tenant. Queried fresh per matching run.
	DeployedTemplateIDs(ctx context.Context, tenantID uuid.UUID) (map[uuid.UUID]struct{}, error)
}

// TenantConfigSource supplies the tenant's configured provider codes.
type TenantConfigSource interface {
	ProviderCodes(ctx context.Context, tenantID uuid.UUID) (provider.Codes, error)
}

// Service ranks catalog templates against a tenant's provider configuration.
type Service struct {
	repo    Repository
	tenants TenantConfigSource
}

// New constructs a Service with required dependencies.
func New(repo Repository, tenants TenantConfigSource) *Service {
	if repo == nil {
		panic("catalog repo is required")
	}
	if tenants == nil {
		panic("tenant config source is required")
	}
	return &Service{repo: repo, tenants: tenants}
}

// MatchCatalog scores every active template against the tenant's provider
// configuration and returns the eligible candidates ranked by score. Ties are
// broken by category then name so repeated runs produce identical output.
func (s *Service) MatchCatalog(ctx context.Context, tenantID uuid.UUID) (MatchResult, error) {
	tenantCodes, err := s.tenants.ProviderCodes(ctx, tenantID)
	if err != nil {
		return MatchResult{}, fmt.Errorf("load tenant provider codes: %w", err)
	}

	templates, err := s.repo.ListActiveTemplates(ctx)
	if err != nil {
		return MatchResult{}, fmt.Errorf("list catalog templates: %w", err)
	}

	deployedIDs, err := s.repo.DeployedTemplateIDs(ctx, tenantID)
	if err != nil {
		return MatchResult{}, fmt.Errorf("load deployed template ids: %w", err)
	}

	seen := make(map[uuid.UUID]struct{}, len(templates))
	candidates := make([]MatchCandidate, 0, len(templates))
	for _, template := range templates {
		if !template.IsActive || !template.IsTemplate {
			continue
		}
		if _, dup := seen[template.ID]; dup {
			continue
		}
		seen[template.ID] = struct{}{}

		codes := template.EffectiveCodes()
		score := Score(codes, tenantCodes)
		if score <= 0 {
			continue
		}

		_, deployed := deployedIDs[template.ID]
		candidates = append(candidates, MatchCandidate{
			TemplateID: template.ID,
			Name:       template.Name,
			Category:   template.Category,
			CodeString: provider.BuildCodeString(codes),
			MatchType:  Classify(codes, tenantCodes),
			MatchScore: score,
			IsDeployed: deployed,
			Codes:      codes,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].MatchScore != candidates[j].MatchScore {
			return candidates[i].MatchScore > candidates[j].MatchScore
		}
		if candidates[i].Category != candidates[j].Category {
			return candidates[i].Category < candidates[j].Category
		}
		if candidates[i].Name != candidates[j].Name {
			return candidates[i].Name < candidates[j].Name
		}
		// identical names: fall back to id so the order stays total
		return candidates[i].TemplateID.String() < candidates[j].TemplateID.String()
	})

	deployed := 0
	for _, c := range candidates {
		if c.IsDeployed {
			deployed++
		}
	}

	return MatchResult{
		Candidates:    candidates,
		TotalMatching: len(candidates),
		Deployed:      deployed,
		Pending:       len(candidates) - deployed,
	}, nil
}

// Get returns one catalog template by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Template, error) {
	return s.repo.GetTemplate(ctx, id)
}
