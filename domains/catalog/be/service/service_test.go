package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/skillsight-analytics/skillsight-saas/platform/go/provider"
)

// stubRepo is a minimal in-memory impl of Repository for tests.
type stubRepo struct {
	templates []Template
	deployed  map[uuid.UUID]struct{}
	listErr   error
}

func (r *stubRepo) ListActiveTemplates(ctx context.Context) ([]Template, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.templates, nil
}

func (r *stubRepo) GetTemplate(ctx context.Context, id uuid.UUID) (Template, error) {
	for _, tpl := range r.templates {
		if tpl.ID == id {
			return tpl, nil
		}
	}
	return Template{}, ErrNotFound
}

func (r *stubRepo) DeployedTemplateIDs(ctx context.Context, tenantID uuid.UUID) (map[uuid.UUID]struct{}, error) {
	if r.deployed == nil {
		return map[uuid.UUID]struct{}{}, nil
	}
	return r.deployed, nil
}

type stubTenants struct {
	codes provider.Codes
	err   error
}

func (s stubTenants) ProviderCodes(ctx context.Context, tenantID uuid.UUID) (provider.Codes, error) {
	return s.codes, s.err
}

func namedTemplate(name, category string) Template {
	return Template{
		ID:         uuid.New(),
		Name:       name,
		Category:   category,
		IsActive:   true,
		IsTemplate: true,
	}
}

func TestMatchCatalogRanksByScore(t *testing.T) {
	repo := &stubRepo{templates: []Template{
		namedTemplate("Universal Dashboard v1.0", "general"),
		namedTemplate("APTEM-BKSB-HUBSPOT - Operations Leader v1.2", "operations"),
		namedTemplate("APTEM - Coach v1.0", "coaching"),
		namedTemplate("BUD-BKSB-HUBSPOT - Operations Leader v1.2", "operations"),
	}}
	svc := New(repo, stubTenants{codes: tenantCodes()})

	result, err := svc.MatchCatalog(context.Background(), uuid.New())
	require.NoError(t, err)

	require.Len(t, result.Candidates, 3)
	require.Equal(t, "APTEM-BKSB-HUBSPOT - Operations Leader v1.2", result.Candidates[0].Name)
	require.Equal(t, 90, result.Candidates[0].MatchScore)
	require.Equal(t, MatchTypeCore, result.Candidates[0].MatchType)
	require.Equal(t, "APTEM - Coach v1.0", result.Candidates[1].Name)
	require.Equal(t, 40, result.Candidates[1].MatchScore)
	require.Equal(t, "Universal Dashboard v1.0", result.Candidates[2].Name)
	require.Equal(t, 25, result.Candidates[2].MatchScore)
	require.Equal(t, MatchTypeUniversal, result.Candidates[2].MatchType)

	require.Equal(t, 3, result.TotalMatching)
	require.Equal(t, 0, result.Deployed)
	require.Equal(t, 3, result.Pending)
}

func TestMatchCatalogStoredCodesAuthoritative(t *testing.T) {
	// stored fields say BUD even though the display name says APTEM
	template := namedTemplate("APTEM-BKSB-HUBSPOT - Mislabeled v1.0", "operations")
	template.Codes = provider.Codes{LMS: strPtr("BUD")}

	repo := &stubRepo{templates: []Template{template}}
	svc := New(repo, stubTenants{codes: tenantCodes()})

	result, err := svc.MatchCatalog(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Empty(t, result.Candidates)
}

func TestMatchCatalogDeployedFlagAndCounts(t *testing.T) {
	deployedTemplate := namedTemplate("APTEM-BKSB-HUBSPOT - Leader v1.0", "operations")
	pendingTemplate := namedTemplate("APTEM - Coach v1.0", "coaching")

	repo := &stubRepo{
		templates: []Template{deployedTemplate, pendingTemplate},
		deployed:  map[uuid.UUID]struct{}{deployedTemplate.ID: {}},
	}
	svc := New(repo, stubTenants{codes: tenantCodes()})

	result, err := svc.MatchCatalog(context.Background(), uuid.New())
	require.NoError(t, err)

	require.Equal(t, 2, result.TotalMatching)
	require.Equal(t, 1, result.Deployed)
	require.Equal(t, 1, result.Pending)
	require.True(t, result.Candidates[0].IsDeployed)
	require.False(t, result.Candidates[1].IsDeployed)
}

func TestMatchCatalogSkipsInactiveAndNonTemplates(t *testing.T) {
	inactive := namedTemplate("APTEM - Inactive v1.0", "x")
	inactive.IsActive = false
	notTemplate := namedTemplate("APTEM - Raw Report v1.0", "x")
	notTemplate.IsTemplate = false

	repo := &stubRepo{templates: []Template{inactive, notTemplate}}
	svc := New(repo, stubTenants{codes: tenantCodes()})

	result, err := svc.MatchCatalog(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Empty(t, result.Candidates)
}

func TestMatchCatalogDeterministicTieBreaks(t *testing.T) {
	a := namedTemplate("APTEM - Coach v1.0", "beta")
	b := namedTemplate("APTEM - Assessor v1.0", "beta")
	c := namedTemplate("APTEM - Assessor v1.0", "alpha")

	repo := &stubRepo{templates: []Template{a, b, c}}
	svc := New(repo, stubTenants{codes: tenantCodes()})

	first, err := svc.MatchCatalog(context.Background(), uuid.New())
	require.NoError(t, err)
	second, err := svc.MatchCatalog(context.Background(), uuid.New())
	require.NoError(t, err)

	require.Equal(t, first.Candidates, second.Candidates)
	require.Equal(t, "alpha", first.Candidates[0].Category)
	require.Equal(t, "APTEM - Assessor v1.0", first.Candidates[1].Name)
	require.Equal(t, "APTEM - Coach v1.0", first.Candidates[2].Name)
}

func TestMatchCatalogTenantLookupFailure(t *testing.T) {
	svc := New(&stubRepo{}, stubTenants{err: ErrTenantNotFound})

	_, err := svc.MatchCatalog(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrTenantNotFound)
}

func TestMatchCatalogRepositoryFailure(t *testing.T) {
	boom := errors.New("db down")
	svc := New(&stubRepo{listErr: boom}, stubTenants{codes: tenantCodes()})

	_, err := svc.MatchCatalog(context.Background(), uuid.New())
	require.ErrorIs(t, err, boom)
}
