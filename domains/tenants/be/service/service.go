package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/skillsight-analytics/skillsight-saas/platform/go/provider"
)

// Errors returned by the service layer.
var (
	ErrNotFound     = errors.New("tenant not found")
	ErrConflictSlug = errors.New("tenant slug already exists")
	ErrInvalidCode  = errors.New("unknown provider code")
	ErrSlugRequired = errors.New("tenant slug is required")
)

// Tenant represents a training provider organization. Codes captures the
// provider systems the organization runs; the catalog matcher scores
// templates against them. ExternalWorkspaceID points at the hosted BI
// workspace reports are deployed into.
type Tenant struct {
	ID                  uuid.UUID
	Slug                string
	DisplayName         *string
	Codes               provider.Codes
	ExternalWorkspaceID *string
	IsActive            bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// CreateInput represents the request to register a tenant.
type CreateInput struct {
	Slug                string
	DisplayName         *string
	Codes               provider.Codes
	ExternalWorkspaceID *string
}

// UpdateInput represents mutable fields for a tenant. Nil fields are left
// untouched.
type UpdateInput struct {
	DisplayName         *string
	Codes               *provider.Codes
	ExternalWorkspaceID *string
}

// ListResult wraps paginated tenants.
type ListResult struct {
	Tenants    []Tenant
	Page       int
	PageSize   int
	TotalItems int
	TotalPages int
}

// ListOptions captures pagination.
type ListOptions struct {
	Page     int
	PageSize int
}

// Repository abstracts persistence.
type Repository interface {
	List(ctx context.Context, opts ListOptions) (ListResult, error)
	Create(ctx context.Context, t Tenant) (Tenant, error)
	Get(ctx context.Context, id uuid.UUID) (Tenant, error)
	Update(ctx context.Context, t Tenant) (Tenant, error)
	FindBySlug(ctx context.Context, slug string) (Tenant, error)
}

// Service provides tenant registry operations.
type Service struct {
	repo Repository
}

// New constructs a Service with required dependencies.
func New(repo Repository) *Service {
	if repo == nil {
		panic("tenants repo is required")
	}
	return &Service{repo: repo}
}

// List tenants.
func (s *Service) List(ctx context.Context, opts ListOptions) (ListResult, error) {
	return s.repo.List(ctx, opts)
}

// Create registers a new tenant.
func (s *Service) Create(ctx context.Context, input CreateInput) (Tenant, error) {
	slug := strings.TrimSpace(strings.ToLower(input.Slug))
	if slug == "" {
		return Tenant{}, ErrSlugRequired
	}
	if err := validateCodes(input.Codes); err != nil {
		return Tenant{}, err
	}

	now := time.Now().UTC()
	t := Tenant{
		ID:                  uuid.New(),
		Slug:                slug,
		DisplayName:         input.DisplayName,
		Codes:               normalizeCodes(input.Codes),
		ExternalWorkspaceID: input.ExternalWorkspaceID,
		IsActive:            true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	return s.repo.Create(ctx, t)
}

// Get returns a tenant by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Tenant, error) {
	return s.repo.Get(ctx, id)
}

// FindBySlug returns a tenant by its slug.
func (s *Service) FindBySlug(ctx context.Context, slug string) (Tenant, error) {
	return s.repo.FindBySlug(ctx, strings.TrimSpace(strings.ToLower(slug)))
}

// Update modifies mutable fields of a tenant.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (Tenant, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Tenant{}, err
	}

	next := current
	if input.DisplayName != nil {
		next.DisplayName = input.DisplayName
	}
	if input.Codes != nil {
		if err := validateCodes(*input.Codes); err != nil {
			return Tenant{}, err
		}
		next.Codes = normalizeCodes(*input.Codes)
	}
	if input.ExternalWorkspaceID != nil {
		next.ExternalWorkspaceID = input.ExternalWorkspaceID
	}
	next.UpdatedAt = time.Now().UTC()

	return s.repo.Update(ctx, next)
}

// ProviderCodes returns the tenant's configured provider codes. The catalog
// matcher consumes this.
func (s *Service) ProviderCodes(ctx context.Context, tenantID uuid.UUID) (provider.Codes, error) {
	t, err := s.repo.Get(ctx, tenantID)
	if err != nil {
		return provider.Codes{}, err
	}
	return t.Codes, nil
}

// WorkspaceID returns the tenant's external workspace identity, nil when no
// workspace is configured. The deployment reconciler consumes this.
func (s *Service) WorkspaceID(ctx context.Context, tenantID uuid.UUID) (*string, error) {
	t, err := s.repo.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return t.ExternalWorkspaceID, nil
}

func validateCodes(codes provider.Codes) error {
	if codes.LMS != nil && !provider.KnownLMSCode(*codes.LMS) {
		return fmt.Errorf("%w: lms %q", ErrInvalidCode, *codes.LMS)
	}
	if codes.EnglishMaths != nil && !provider.KnownEnglishMathsCode(*codes.EnglishMaths) {
		return fmt.Errorf("%w: english and maths %q", ErrInvalidCode, *codes.EnglishMaths)
	}
	if codes.CRM != nil && !provider.KnownCRMCode(*codes.CRM) {
		return fmt.Errorf("%w: crm %q", ErrInvalidCode, *codes.CRM)
	}
	if codes.HR != nil && !provider.KnownHRCode(*codes.HR) {
		return fmt.Errorf("%w: hr %q", ErrInvalidCode, *codes.HR)
	}
	return nil
}

func normalizeCodes(codes provider.Codes) provider.Codes {
	return provider.Codes{
		LMS:          upper(codes.LMS),
		EnglishMaths: upper(codes.EnglishMaths),
		CRM:          upper(codes.CRM),
		HR:           upper(codes.HR),
	}
}

func upper(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.ToUpper(*s)
	return &v
}
