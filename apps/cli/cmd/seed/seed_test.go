package seed

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/skillsight-analytics/skillsight-saas/platform/go/persistence"
)

func TestSeedSchemaAcceptsValidFile(t *testing.T) {
	payload := []byte(`{
		"templates": [
			{"id": "` + uuid.NewString() + `", "name": "APTEM - Operations Manager", "category": "Operations"}
		],
		"modules": [
			{"name": "Operations", "position": 1, "tabs": [
				{"name": "Overview", "templateName": "APTEM - Operations Manager", "position": 1}
			]}
		]
	}`)

	validator := persistence.NewSeedValidator()
	require.NoError(t, validator.Validate("catalog-hierarchy", seedSchema, payload))
}

func TestSeedSchemaRejectsMissingTemplateID(t *testing.T) {
	payload := []byte(`{
		"templates": [{"name": "APTEM - Operations Manager", "category": "Operations"}],
		"modules": []
	}`)

	validator := persistence.NewSeedValidator()
	require.Error(t, validator.Validate("catalog-hierarchy", seedSchema, payload))
}

func TestCheckTabReferencesRejectsUnknownTemplate(t *testing.T) {
	seed := seedFile{
		Templates: []seedTemplate{{ID: uuid.New(), Name: "APTEM - Operations Manager", Category: "Operations"}},
		Modules: []seedModule{{
			Name:     "Operations",
			Position: 1,
			Tabs: []seedTab{
				{Name: "Overview", TemplateName: "BUD - Quality Lead", Position: 1},
			},
		}},
	}

	err := checkTabReferences(seed)
	require.Error(t, err)
	require.Contains(t, err.Error(), "BUD - Quality Lead")
}

func TestCheckTabReferencesIsCaseInsensitive(t *testing.T) {
	seed := seedFile{
		Templates: []seedTemplate{{ID: uuid.New(), Name: "APTEM - Operations Manager", Category: "Operations"}},
		Modules: []seedModule{{
			Name:     "Operations",
			Position: 1,
			Tabs: []seedTab{
				{Name: "Overview", TemplateName: "aptem - operations manager", Position: 1},
			},
		}},
	}

	require.NoError(t, checkTabReferences(seed))
}

func TestToTemplateDefaults(t *testing.T) {
	tpl := toTemplate(seedTemplate{ID: uuid.New(), Name: "APTEM - Operations Manager", Category: "Operations"})
	require.True(t, tpl.IsActive)
	require.True(t, tpl.IsTemplate)
	require.Nil(t, tpl.Version)

	inactive := false
	tpl = toTemplate(seedTemplate{ID: uuid.New(), Name: "X", Category: "Y", IsActive: &inactive})
	require.False(t, tpl.IsActive)
}
