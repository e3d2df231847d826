// Package seed imports catalog templates and the global module/tab hierarchy
// from a JSON seed file. Seed files are validated against an embedded JSON
// Schema before anything touches the database, and every write is an upsert
// keyed on natural identity, so re-running a seed converges instead of
// duplicating.
package seed

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	catalogrepo "github.com/skillsight-analytics/skillsight-saas/domains/catalog/be/repo"
	catalogservice "github.com/skillsight-analytics/skillsight-saas/domains/catalog/be/service"
	deploymentsrepo "github.com/skillsight-analytics/skillsight-saas/domains/deployments/be/repo"
	deploymentsservice "github.com/skillsight-analytics/skillsight-saas/domains/deployments/be/service"
	"github.com/skillsight-analytics/skillsight-saas/platform/go/persistence"
	"github.com/skillsight-analytics/skillsight-saas/platform/go/provider"
)

//go:embed schema.json
var seedSchema []byte

type seedCodes struct {
	LMS          *string `json:"lms"`
	EnglishMaths *string `json:"englishMaths"`
	CRM          *string `json:"crm"`
	HR           *string `json:"hr"`
}

type seedVersion struct {
	Major int `json:"major"`
	Minor int `json:"minor"`
}

type seedTemplate struct {
	ID                 uuid.UUID    `json:"id"`
	Name               string       `json:"name"`
	Category           string       `json:"category"`
	Codes              *seedCodes   `json:"providerCodes"`
	RoleName           *string      `json:"roleName"`
	Version            *seedVersion `json:"version"`
	ExternalTemplateID *string      `json:"externalTemplateId"`
	IsActive           *bool        `json:"isActive"`
	IsTemplate         *bool        `json:"isTemplate"`
}

type seedTab struct {
	Name         string  `json:"name"`
	TemplateName string  `json:"templateName"`
	PageName     *string `json:"pageName"`
	Position     int     `json:"position"`
}

type seedModule struct {
	Name     string    `json:"name"`
	Position int       `json:"position"`
	Tabs     []seedTab `json:"tabs"`
}

type seedFile struct {
	Templates []seedTemplate `json:"templates"`
	Modules   []seedModule   `json:"modules"`
}

// Command groups seed importers.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Import catalog and hierarchy seed data",
	}

	cmd.AddCommand(importCommand())
	return cmd
}

func importCommand() *cobra.Command {
	var (
		databaseURL string
		filePath    string
	)

	c := &cobra.Command{
		Use:   "import",
		Short: "Import a catalog/hierarchy seed file",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			payload, err := os.ReadFile(filePath)
			if err != nil {
				return fmt.Errorf("read seed file: %w", err)
			}

			validator := persistence.NewSeedValidator()
			if err := validator.Validate("catalog-hierarchy", seedSchema, payload); err != nil {
				return fmt.Errorf("seed file %s: %w", filePath, err)
			}

			var seed seedFile
			if err := json.Unmarshal(payload, &seed); err != nil {
				return fmt.Errorf("decode seed file: %w", err)
			}
			if err := checkTabReferences(seed); err != nil {
				return err
			}

			pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: databaseURL})
			if err != nil {
				return fmt.Errorf("init pool: %w", err)
			}
			defer persistence.ClosePool(pool)

			catalogRepo := catalogrepo.NewPostgresRepository(pool)
			deploymentsRepo := deploymentsrepo.NewPostgresRepository(pool)

			templateIDsByName := make(map[string]uuid.UUID, len(seed.Templates))
			for _, tpl := range seed.Templates {
				if err := catalogRepo.Upsert(ctx, toTemplate(tpl)); err != nil {
					return fmt.Errorf("upsert template %q: %w", tpl.Name, err)
				}
				templateIDsByName[strings.ToLower(tpl.Name)] = tpl.ID
			}

			var tabCount int
			for _, mod := range seed.Modules {
				persisted, err := deploymentsRepo.UpsertGlobalModule(ctx, deploymentsservice.GlobalModule{
					ID:       uuid.New(),
					Name:     mod.Name,
					Position: mod.Position,
				})
				if err != nil {
					return fmt.Errorf("upsert module %q: %w", mod.Name, err)
				}

				for _, tab := range mod.Tabs {
					templateID := templateIDsByName[strings.ToLower(tab.TemplateName)]
					if _, err := deploymentsRepo.UpsertGlobalTab(ctx, deploymentsservice.GlobalTab{
						ID:             uuid.New(),
						GlobalModuleID: persisted.ID,
						Name:           tab.Name,
						TemplateID:     templateID,
						PageName:       tab.PageName,
						Position:       tab.Position,
					}); err != nil {
						return fmt.Errorf("upsert tab %q in module %q: %w", tab.Name, mod.Name, err)
					}
					tabCount++
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Seed imported: %d templates, %d modules, %d tabs\n",
				len(seed.Templates), len(seed.Modules), tabCount)
			return nil
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", "", "PostgreSQL connection string")
	c.Flags().StringVar(&filePath, "file", "", "path to the JSON seed file")

	_ = c.MarkFlagRequired("database-url")
	_ = c.MarkFlagRequired("file")

	return c
}

// checkTabReferences rejects tabs pointing at template names the seed file
// does not define. Referencing templates across seed files would make imports
// order-dependent.
func checkTabReferences(seed seedFile) error {
	known := make(map[string]struct{}, len(seed.Templates))
	for _, tpl := range seed.Templates {
		known[strings.ToLower(tpl.Name)] = struct{}{}
	}
	for _, mod := range seed.Modules {
		for _, tab := range mod.Tabs {
			if _, ok := known[strings.ToLower(tab.TemplateName)]; !ok {
				return fmt.Errorf("tab %q in module %q references unknown template %q", tab.Name, mod.Name, tab.TemplateName)
			}
		}
	}
	return nil
}

func toTemplate(tpl seedTemplate) catalogservice.Template {
	out := catalogservice.Template{
		ID:                 tpl.ID,
		Name:               tpl.Name,
		Category:           tpl.Category,
		RoleName:           tpl.RoleName,
		ExternalTemplateID: tpl.ExternalTemplateID,
		IsActive:           true,
		IsTemplate:         true,
	}
	if tpl.Codes != nil {
		out.Codes = provider.Codes{
			LMS:          tpl.Codes.LMS,
			EnglishMaths: tpl.Codes.EnglishMaths,
			CRM:          tpl.Codes.CRM,
			HR:           tpl.Codes.HR,
		}
	}
	if tpl.Version != nil {
		out.Version = &provider.Version{Major: tpl.Version.Major, Minor: tpl.Version.Minor}
	}
	if tpl.IsActive != nil {
		out.IsActive = *tpl.IsActive
	}
	if tpl.IsTemplate != nil {
		out.IsTemplate = *tpl.IsTemplate
	}
	return out
}
