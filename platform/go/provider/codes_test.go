package provider

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string {
	return &s
}

func TestParseTemplateNameFullConvention(t *testing.T) {
	parsed := ParseTemplateName("APTEM-BKSB-HUBSPOT - Operations Leader v1.2")

	require.Equal(t, strPtr("APTEM"), parsed.Codes.LMS)
	require.Equal(t, strPtr("BKSB"), parsed.Codes.EnglishMaths)
	require.Equal(t, strPtr("HUBSPOT"), parsed.Codes.CRM)
	require.Nil(t, parsed.Codes.HR)
	require.Equal(t, strPtr("Operations Leader"), parsed.RoleName)
	require.NotNil(t, parsed.Version)
	require.Equal(t, Version{Major: 1, Minor: 2}, *parsed.Version)
}

func TestParseTemplateNameAllFourSlots(t *testing.T) {
	parsed := ParseTemplateName("BUD-FUNC-SF-SAGEHR - HR Manager v2.0")

	require.Equal(t, strPtr("BUD"), parsed.Codes.LMS)
	require.Equal(t, strPtr("FUNC"), parsed.Codes.EnglishMaths)
	require.Equal(t, strPtr("SF"), parsed.Codes.CRM)
	require.Equal(t, strPtr("SAGEHR"), parsed.Codes.HR)
	require.Equal(t, strPtr("HR Manager"), parsed.RoleName)
}

func TestParseTemplateNameNoSeparatorIsUniversal(t *testing.T) {
	parsed := ParseTemplateName("Universal Dashboard v1.0")

	require.True(t, parsed.Codes.IsEmpty())
	require.Nil(t, parsed.RoleName)
	require.Nil(t, parsed.Version)
}

func TestParseTemplateNameLowercaseCodes(t *testing.T) {
	parsed := ParseTemplateName("aptem-bksb - Coach")

	require.Equal(t, strPtr("APTEM"), parsed.Codes.LMS)
	require.Equal(t, strPtr("BKSB"), parsed.Codes.EnglishMaths)
	require.Equal(t, strPtr("Coach"), parsed.RoleName)
	require.Nil(t, parsed.Version)
}

func TestParseTemplateNameUnknownCodesDropped(t *testing.T) {
	parsed := ParseTemplateName("APTEM-FOO-BAR - Tutor v3.1")

	require.Equal(t, strPtr("APTEM"), parsed.Codes.LMS)
	require.Nil(t, parsed.Codes.EnglishMaths)
	require.Nil(t, parsed.Codes.CRM)
	require.Nil(t, parsed.Codes.HR)
	require.Equal(t, strPtr("Tutor"), parsed.RoleName)
}

func TestParseTemplateNameVersionWithoutVPrefix(t *testing.T) {
	parsed := ParseTemplateName("ONEFILE - Assessor 2.4")

	require.Equal(t, strPtr("ONEFILE"), parsed.Codes.LMS)
	require.Equal(t, strPtr("Assessor"), parsed.RoleName)
	require.NotNil(t, parsed.Version)
	require.Equal(t, Version{Major: 2, Minor: 4}, *parsed.Version)
}

func TestParseTemplateNameVersionOnlyRemainder(t *testing.T) {
	parsed := ParseTemplateName("APTEM - v1.0")

	require.Equal(t, strPtr("APTEM"), parsed.Codes.LMS)
	require.Nil(t, parsed.RoleName)
	require.NotNil(t, parsed.Version)
	require.Equal(t, Version{Major: 1, Minor: 0}, *parsed.Version)
}

func TestParseTemplateNameNonVersionSuffixStaysInRole(t *testing.T) {
	parsed := ParseTemplateName("APTEM - Progress Review v1")

	require.Equal(t, strPtr("Progress Review v1"), parsed.RoleName)
	require.Nil(t, parsed.Version)
}

func TestParseTemplateNameOnlyFirstSeparatorCounts(t *testing.T) {
	parsed := ParseTemplateName("APTEM-BKSB - Senior - Leader v1.3")

	require.Equal(t, strPtr("APTEM"), parsed.Codes.LMS)
	require.Equal(t, strPtr("BKSB"), parsed.Codes.EnglishMaths)
	require.Equal(t, strPtr("Senior - Leader"), parsed.RoleName)
	require.NotNil(t, parsed.Version)
}

func TestParseTemplateNameTotalOnDegenerateInputs(t *testing.T) {
	for _, name := range []string{"", " - ", "-", "--- - ---", " - v1.2", "APTEM", "a - b - c - d"} {
		require.NotPanics(t, func() {
			_ = ParseTemplateName(name)
		}, "input %q", name)
	}
}

func TestBuildCodeStringOrdersSlots(t *testing.T) {
	codes := Codes{
		LMS:          strPtr("APTEM"),
		EnglishMaths: strPtr("BKSB"),
		CRM:          strPtr("HUBSPOT"),
		HR:           strPtr("SAGEHR"),
	}
	require.Equal(t, "APTEM-BKSB-HUBSPOT-SAGEHR", BuildCodeString(codes))
}

func TestBuildCodeStringOmitsAbsentSlots(t *testing.T) {
	require.Equal(t, "", BuildCodeString(Codes{}))
	require.Equal(t, "BKSB-ZOHO", BuildCodeString(Codes{EnglishMaths: strPtr("BKSB"), CRM: strPtr("ZOHO")}))
}

func TestBuildThenParseRoundTrip(t *testing.T) {
	cases := []Codes{
		{LMS: strPtr("APTEM")},
		{LMS: strPtr("BUD"), EnglishMaths: strPtr("FUNC")},
		{LMS: strPtr("ONEFILE"), EnglishMaths: strPtr("SMARTASSESSOR"), CRM: strPtr("DYNAMICS")},
		{LMS: strPtr("APTEM"), EnglishMaths: strPtr("BKSB"), CRM: strPtr("HUBSPOT"), HR: strPtr("BAMBOOHR")},
		{CRM: strPtr("SF")},
		{HR: strPtr("SAGEHR")},
		{},
	}

	for _, codes := range cases {
		name := BuildCodeString(codes) + " - Role v1.0"
		parsed := ParseTemplateName(name)
		require.Equal(t, codes, parsed.Codes, "round trip for %q", name)
	}
}
