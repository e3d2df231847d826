package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/skillsight-analytics/skillsight-saas/database"
	tenantsrepo "github.com/skillsight-analytics/skillsight-saas/domains/tenants/be/repo"
	tenantsservice "github.com/skillsight-analytics/skillsight-saas/domains/tenants/be/service"
	"github.com/skillsight-analytics/skillsight-saas/platform/go/persistence"
	"github.com/skillsight-analytics/skillsight-saas/platform/go/provider"
)

// Notes/constraints:
// - With --apply-schema the command runs the embedded core DDL (admin tenant
//   registry plus platform catalog/deployment tables). Statements use IF NOT
//   EXISTS so reruns are harmless.
// - Tenant creation is check-or-create by slug, so the command is safe to run
//   on every environment rollout.

// Command groups bootstrap helpers (schema init, first tenant).
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Bootstrap platform resources (core schema, first tenant)",
		Long:  "Bootstrap platform resources such as the core database schema and the first tenant record.",
	}

	cmd.AddCommand(platformCommand())
	return cmd
}

func platformCommand() *cobra.Command {
	var (
		databaseURL string
		applySchema bool
		tenantSlug  string
		tenantName  string
		workspaceID string
		lmsCode     string
		emCode      string
		crmCode     string
		hrCode      string
	)

	c := &cobra.Command{
		Use:   "platform",
		Short: "Apply core schema and create the first tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: databaseURL})
			if err != nil {
				return fmt.Errorf("init pool: %w", err)
			}
			defer persistence.ClosePool(pool)

			if applySchema {
				if err := applyCoreSchema(ctx, pool); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Core schema applied.")
			}

			if err := ensureCoreSchemaReady(ctx, pool); err != nil {
				return err
			}

			tenantSvc := tenantsservice.New(tenantsrepo.NewPostgresRepository(pool))

			tenantRec, err := tenantSvc.FindBySlug(ctx, tenantSlug)
			if err != nil {
				if !errors.Is(err, tenantsservice.ErrNotFound) {
					return fmt.Errorf("get tenant by slug: %w", err)
				}
				tenantRec, err = tenantSvc.Create(ctx, tenantsservice.CreateInput{
					Slug:        tenantSlug,
					DisplayName: strPtrOrNil(tenantName),
					Codes: provider.Codes{
						LMS:          strPtrOrNil(lmsCode),
						EnglishMaths: strPtrOrNil(emCode),
						CRM:          strPtrOrNil(crmCode),
						HR:           strPtrOrNil(hrCode),
					},
					ExternalWorkspaceID: strPtrOrNil(workspaceID),
				})
				if err != nil {
					return fmt.Errorf("create tenant: %w", err)
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Bootstrap complete. Tenant: %s (%s)\n", tenantRec.Slug, tenantRec.ID)
			return nil
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", "", "PostgreSQL connection string")
	c.Flags().BoolVar(&applySchema, "apply-schema", false, "apply the embedded core DDL before creating the tenant")
	c.Flags().StringVar(&tenantSlug, "tenant-slug", "", "slug for the first tenant")
	c.Flags().StringVar(&tenantName, "tenant-name", "", "display name for the first tenant")
	c.Flags().StringVar(&workspaceID, "workspace-id", "", "external BI workspace id for the tenant (optional)")
	c.Flags().StringVar(&lmsCode, "lms", "", "LMS provider code (APTEM, BUD, ONEFILE)")
	c.Flags().StringVar(&emCode, "english-maths", "", "English & maths provider code (BKSB, FUNC, SMARTASSESSOR)")
	c.Flags().StringVar(&crmCode, "crm", "", "CRM provider code (HUBSPOT, SF, DYNAMICS, ZOHO)")
	c.Flags().StringVar(&hrCode, "hr", "", "HR provider code (SAGEHR, BAMBOOHR)")

	_ = c.MarkFlagRequired("database-url")
	_ = c.MarkFlagRequired("tenant-slug")

	return c
}

func applyCoreSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, schema := range []string{"admin", "platform"} {
		if _, err := pool.Exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema)); err != nil {
			return fmt.Errorf("create schema %s: %w", schema, err)
		}
	}
	for _, asset := range sqlassets.Core() {
		for _, stmt := range strings.Split(asset, ";") {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}
			if _, err := pool.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("apply core ddl: %w", err)
			}
		}
	}
	return nil
}

// ensureCoreSchemaReady verifies the admin schema and tenants table exist. It
// does not create them unless --apply-schema was given.
func ensureCoreSchemaReady(ctx context.Context, pool *pgxpool.Pool) error {
	var exists bool
	if err := pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM pg_namespace WHERE nspname = 'admin')`).Scan(&exists); err != nil {
		return fmt.Errorf("check admin schema: %w", err)
	}
	if !exists {
		return errors.New("admin schema not found (run with --apply-schema or apply migrations first)")
	}

	if err := pool.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1
            FROM pg_class c
            JOIN pg_namespace n ON n.oid = c.relnamespace
            WHERE n.nspname = 'admin' AND c.relname = 'tenants' AND c.relkind = 'r'
        )`).Scan(&exists); err != nil {
		return fmt.Errorf("check tenants table: %w", err)
	}
	if !exists {
		return errors.New("tenants table not found in admin schema (run with --apply-schema or apply migrations first)")
	}

	return nil
}

func strPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
