package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/skillsight-analytics/skillsight-saas/platform/go/provider"
)

func strPtr(s string) *string { return &s }

func TestCreateNormalizesSlugAndCodes(t *testing.T) {
	svc := New(newTestRepo())

	created, err := svc.Create(context.Background(), CreateInput{
		Slug:  "  Acme-Training ",
		Codes: provider.Codes{LMS: strPtr("aptem"), CRM: strPtr("hubspot")},
	})
	require.NoError(t, err)
	require.Equal(t, "acme-training", created.Slug)
	require.Equal(t, "APTEM", *created.Codes.LMS)
	require.Equal(t, "HUBSPOT", *created.Codes.CRM)
	require.Nil(t, created.Codes.EnglishMaths)
	require.True(t, created.IsActive)
}

func TestCreateRejectsEmptySlug(t *testing.T) {
	svc := New(newTestRepo())

	_, err := svc.Create(context.Background(), CreateInput{Slug: "   "})
	require.ErrorIs(t, err, ErrSlugRequired)
}

func TestCreateRejectsUnknownProviderCode(t *testing.T) {
	svc := New(newTestRepo())

	_, err := svc.Create(context.Background(), CreateInput{
		Slug:  "acme",
		Codes: provider.Codes{LMS: strPtr("MOODLE")},
	})
	require.ErrorIs(t, err, ErrInvalidCode)
}

func TestCreateDuplicateSlugConflicts(t *testing.T) {
	svc := New(newTestRepo())

	_, err := svc.Create(context.Background(), CreateInput{Slug: "acme"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateInput{Slug: "ACME"})
	require.ErrorIs(t, err, ErrConflictSlug)
}

func TestUpdateReplacesCodesAndWorkspace(t *testing.T) {
	svc := New(newTestRepo())

	created, err := svc.Create(context.Background(), CreateInput{
		Slug:  "acme",
		Codes: provider.Codes{LMS: strPtr("APTEM")},
	})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), created.ID, UpdateInput{
		Codes:               &provider.Codes{LMS: strPtr("bud"), EnglishMaths: strPtr("BKSB")},
		ExternalWorkspaceID: strPtr("ws-42"),
	})
	require.NoError(t, err)
	require.Equal(t, "BUD", *updated.Codes.LMS)
	require.Equal(t, "BKSB", *updated.Codes.EnglishMaths)
	require.Equal(t, "ws-42", *updated.ExternalWorkspaceID)
}

func TestUpdateKeepsUntouchedFields(t *testing.T) {
	svc := New(newTestRepo())

	created, err := svc.Create(context.Background(), CreateInput{
		Slug:        "acme",
		DisplayName: strPtr("Acme Training"),
		Codes:       provider.Codes{LMS: strPtr("APTEM")},
	})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), created.ID, UpdateInput{
		ExternalWorkspaceID: strPtr("ws-1"),
	})
	require.NoError(t, err)
	require.Equal(t, "Acme Training", *updated.DisplayName)
	require.Equal(t, "APTEM", *updated.Codes.LMS)
}

func TestProviderCodesForMatcher(t *testing.T) {
	svc := New(newTestRepo())

	created, err := svc.Create(context.Background(), CreateInput{
		Slug:  "acme",
		Codes: provider.Codes{LMS: strPtr("APTEM"), HR: strPtr("SAGEHR")},
	})
	require.NoError(t, err)

	codes, err := svc.ProviderCodes(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, "APTEM", *codes.LMS)
	require.Equal(t, "SAGEHR", *codes.HR)
	require.Nil(t, codes.CRM)
}

func TestWorkspaceIDNilWhenUnconfigured(t *testing.T) {
	svc := New(newTestRepo())

	created, err := svc.Create(context.Background(), CreateInput{Slug: "acme"})
	require.NoError(t, err)

	ws, err := svc.WorkspaceID(context.Background(), created.ID)
	require.NoError(t, err)
	require.Nil(t, ws)
}

func TestFindBySlugNormalizesInput(t *testing.T) {
	svc := New(newTestRepo())

	created, err := svc.Create(context.Background(), CreateInput{Slug: "acme"})
	require.NoError(t, err)

	found, err := svc.FindBySlug(context.Background(), "  ACME ")
	require.NoError(t, err)
	require.Equal(t, created.ID, found.ID)
}
