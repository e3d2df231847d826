package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skillsight-analytics/skillsight-saas/domains/deployments/be/service"
	"github.com/skillsight-analytics/skillsight-saas/platform/go/persistence"
)

// Fully-qualified tables owned by this repository.
const (
	GlobalModulesTable       = "platform.global_modules"
	GlobalTabsTable          = "platform.global_tabs"
	OrganizationModulesTable = "platform.organization_modules"
	TenantTabsTable          = "platform.tenant_tabs"
	DeployedReportsTable     = "platform.deployed_reports"
	DeploymentLogTable       = "platform.deployment_log"
	CatalogTemplatesTable    = "platform.catalog_templates"
)

const deployedColumns = `deployed_report_id, tenant_id, template_id, external_report_id,
    external_workspace_id, external_dataset_id, status, error_message, created_at, updated_at`

// PostgresRepository implements the deployments repository over pgxpool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs a repository; assumes migrations already created the tables.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("pool is required")
	}
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) ListTabTemplates(ctx context.Context) ([]service.TabTemplate, error) {
	query := fmt.Sprintf(`
        SELECT gt.global_tab_id, gt.global_module_id, gt.name, gt.template_id, gt.page_name, gt.position,
               gm.global_module_id, gm.name, gm.position,
               ct.name
        FROM %s gt
        JOIN %s gm ON gm.global_module_id = gt.global_module_id
        JOIN %s ct ON ct.template_id = gt.template_id
        ORDER BY gm.position, gt.position
    `, GlobalTabsTable, GlobalModulesTable, CatalogTemplatesTable)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []service.TabTemplate
	for rows.Next() {
		var tt service.TabTemplate
		if err := rows.Scan(
			&tt.Tab.ID, &tt.Tab.GlobalModuleID, &tt.Tab.Name, &tt.Tab.TemplateID, &tt.Tab.PageName, &tt.Tab.Position,
			&tt.Module.ID, &tt.Module.Name, &tt.Module.Position,
			&tt.TemplateName,
		); err != nil {
			return nil, err
		}
		out = append(out, tt)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) GlobalModule(ctx context.Context, id uuid.UUID) (service.GlobalModule, error) {
	query := fmt.Sprintf("SELECT global_module_id, name, position FROM %s WHERE global_module_id = $1", GlobalModulesTable)

	var module service.GlobalModule
	if err := r.pool.QueryRow(ctx, query, id).Scan(&module.ID, &module.Name, &module.Position); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return service.GlobalModule{}, service.ErrNotFound
		}
		return service.GlobalModule{}, err
	}
	return module, nil
}

func (r *PostgresRepository) FindDeployedByExternalID(ctx context.Context, tenantID uuid.UUID, externalReportID string) (service.DeployedReport, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s
        WHERE tenant_id = $1 AND external_report_id = $2 AND status <> 'archived'`, deployedColumns, DeployedReportsTable)
	return scanDeployed(r.pool.QueryRow(ctx, query, tenantID, externalReportID))
}

func (r *PostgresRepository) FindDeployedByTemplate(ctx context.Context, tenantID, templateID uuid.UUID) (service.DeployedReport, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s
        WHERE tenant_id = $1 AND template_id = $2 AND status <> 'archived'`, deployedColumns, DeployedReportsTable)
	return scanDeployed(r.pool.QueryRow(ctx, query, tenantID, templateID))
}

// CreateDeployedReport inserts the row. A concurrent insert of the same
// template or external report loses the unique-index race; the existing row
// is returned with created=false.
func (r *PostgresRepository) CreateDeployedReport(ctx context.Context, report service.DeployedReport) (service.DeployedReport, bool, error) {
	now := time.Now().UTC()
	query := fmt.Sprintf(`
        INSERT INTO %s (
            deployed_report_id, tenant_id, template_id, external_report_id,
            external_workspace_id, external_dataset_id, status, error_message, created_at, updated_at
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$9)
        RETURNING %s
    `, DeployedReportsTable, deployedColumns)

	row := r.pool.QueryRow(ctx, query,
		report.ID, report.TenantID, report.TemplateID, report.ExternalReportID,
		report.ExternalWorkspaceID, report.ExternalDatasetID, report.Status, report.ErrorMessage, now,
	)

	created, err := scanDeployed(row)
	if err == nil {
		return created, true, nil
	}
	if !persistence.IsUniqueViolation(err, "") {
		return service.DeployedReport{}, false, err
	}

	if report.ExternalReportID != nil {
		existing, findErr := r.FindDeployedByExternalID(ctx, report.TenantID, *report.ExternalReportID)
		if findErr == nil {
			return existing, false, nil
		}
	}
	existing, findErr := r.FindDeployedByTemplate(ctx, report.TenantID, report.TemplateID)
	if findErr != nil {
		return service.DeployedReport{}, false, err
	}
	return existing, false, nil
}

func (r *PostgresRepository) UpdateDeployedStatus(ctx context.Context, id uuid.UUID, status service.DeployStatus, errorMessage *string) (service.DeployedReport, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return service.DeployedReport{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var current service.DeployStatus
	lockQuery := fmt.Sprintf("SELECT status FROM %s WHERE deployed_report_id = $1 FOR UPDATE", DeployedReportsTable)
	if err := tx.QueryRow(ctx, lockQuery, id).Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return service.DeployedReport{}, service.ErrNotFound
		}
		return service.DeployedReport{}, err
	}

	if !service.AllowedTransition(current, status) {
		return service.DeployedReport{}, service.ErrInvalidTransition
	}

	updateQuery := fmt.Sprintf(`
        UPDATE %s SET status = $2, error_message = $3, updated_at = $4
        WHERE deployed_report_id = $1
        RETURNING %s
    `, DeployedReportsTable, deployedColumns)

	updated, err := scanDeployed(tx.QueryRow(ctx, updateQuery, id, status, errorMessage, time.Now().UTC()))
	if err != nil {
		return service.DeployedReport{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return service.DeployedReport{}, err
	}
	return updated, nil
}

func (r *PostgresRepository) EnsureOrganizationModule(ctx context.Context, module service.OrganizationModule) (service.OrganizationModule, bool, error) {
	query := fmt.Sprintf(`
        INSERT INTO %s (organization_module_id, tenant_id, global_module_id, name, position, created_at)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING organization_module_id, tenant_id, global_module_id, name, position, created_at
    `, OrganizationModulesTable)

	row := r.pool.QueryRow(ctx, query,
		module.ID, module.TenantID, module.GlobalModuleID, module.Name, module.Position, time.Now().UTC(),
	)

	created, err := scanOrgModule(row)
	if err == nil {
		return created, true, nil
	}
	if !persistence.IsUniqueViolation(err, "organization_modules_tenant_module_unique") {
		return service.OrganizationModule{}, false, err
	}

	selectQuery := fmt.Sprintf(`SELECT organization_module_id, tenant_id, global_module_id, name, position, created_at
        FROM %s WHERE tenant_id = $1 AND global_module_id = $2`, OrganizationModulesTable)
	existing, findErr := scanOrgModule(r.pool.QueryRow(ctx, selectQuery, module.TenantID, module.GlobalModuleID))
	if findErr != nil {
		return service.OrganizationModule{}, false, err
	}
	return existing, false, nil
}

func (r *PostgresRepository) EnsureTenantTab(ctx context.Context, tab service.TenantTab) (service.TenantTab, bool, error) {
	query := fmt.Sprintf(`
        INSERT INTO %s (tenant_tab_id, organization_module_id, global_tab_id, name,
            deployed_report_id, external_page_id, position, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING tenant_tab_id, organization_module_id, global_tab_id, name,
            deployed_report_id, external_page_id, position, created_at
    `, TenantTabsTable)

	row := r.pool.QueryRow(ctx, query,
		tab.ID, tab.OrganizationModuleID, tab.GlobalTabID, tab.Name,
		tab.DeployedReportID, tab.ExternalPageID, tab.Position, time.Now().UTC(),
	)

	created, err := scanTenantTab(row)
	if err == nil {
		return created, true, nil
	}
	if !persistence.IsUniqueViolation(err, "tenant_tabs_module_name_unique") {
		return service.TenantTab{}, false, err
	}

	selectQuery := fmt.Sprintf(`SELECT tenant_tab_id, organization_module_id, global_tab_id, name,
        deployed_report_id, external_page_id, position, created_at
        FROM %s WHERE organization_module_id = $1 AND name = $2`, TenantTabsTable)
	existing, findErr := scanTenantTab(r.pool.QueryRow(ctx, selectQuery, tab.OrganizationModuleID, tab.Name))
	if findErr != nil {
		return service.TenantTab{}, false, err
	}
	return existing, false, nil
}

func (r *PostgresRepository) AppendLog(ctx context.Context, entry service.LogEntry) error {
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := fmt.Sprintf(`
        INSERT INTO %s (log_id, tenant_id, deployed_report_id, action, outcome, detail, actor_kind, actor_user_id, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    `, DeploymentLogTable)

	_, err := r.pool.Exec(ctx, query,
		entry.ID, entry.TenantID, entry.DeployedReportID, entry.Action, entry.Outcome,
		entry.Detail, entry.ActorKind, entry.ActorUserID, createdAt,
	)
	return err
}

func (r *PostgresRepository) ListLog(ctx context.Context, tenantID uuid.UUID, limit int) ([]service.LogEntry, error) {
	query := fmt.Sprintf(`SELECT log_id, tenant_id, deployed_report_id, action, outcome, detail, actor_kind, actor_user_id, created_at
        FROM %s WHERE tenant_id = $1
        ORDER BY created_at DESC
        LIMIT %d`, DeploymentLogTable, limit)

	rows, err := r.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []service.LogEntry
	for rows.Next() {
		var entry service.LogEntry
		if err := rows.Scan(
			&entry.ID, &entry.TenantID, &entry.DeployedReportID, &entry.Action, &entry.Outcome,
			&entry.Detail, &entry.ActorKind, &entry.ActorUserID, &entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

// UpsertGlobalModule inserts or updates a global module by name. The seed
// importer uses this.
func (r *PostgresRepository) UpsertGlobalModule(ctx context.Context, module service.GlobalModule) (service.GlobalModule, error) {
	query := fmt.Sprintf(`
        INSERT INTO %s (global_module_id, name, position)
        VALUES ($1,$2,$3)
        ON CONFLICT ON CONSTRAINT global_modules_name_unique DO UPDATE SET position = EXCLUDED.position
        RETURNING global_module_id, name, position
    `, GlobalModulesTable)

	var out service.GlobalModule
	err := r.pool.QueryRow(ctx, query, module.ID, module.Name, module.Position).
		Scan(&out.ID, &out.Name, &out.Position)
	return out, err
}

// UpsertGlobalTab inserts or updates a global tab by (module, name).
func (r *PostgresRepository) UpsertGlobalTab(ctx context.Context, tab service.GlobalTab) (service.GlobalTab, error) {
	query := fmt.Sprintf(`
        INSERT INTO %s (global_tab_id, global_module_id, name, template_id, page_name, position)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT ON CONSTRAINT global_tabs_module_name_unique DO UPDATE SET
            template_id = EXCLUDED.template_id,
            page_name = EXCLUDED.page_name,
            position = EXCLUDED.position
        RETURNING global_tab_id, global_module_id, name, template_id, page_name, position
    `, GlobalTabsTable)

	var out service.GlobalTab
	err := r.pool.QueryRow(ctx, query, tab.ID, tab.GlobalModuleID, tab.Name, tab.TemplateID, tab.PageName, tab.Position).
		Scan(&out.ID, &out.GlobalModuleID, &out.Name, &out.TemplateID, &out.PageName, &out.Position)
	return out, err
}

func scanDeployed(row pgx.Row) (service.DeployedReport, error) {
	var report service.DeployedReport
	if err := row.Scan(
		&report.ID, &report.TenantID, &report.TemplateID, &report.ExternalReportID,
		&report.ExternalWorkspaceID, &report.ExternalDatasetID, &report.Status, &report.ErrorMessage,
		&report.CreatedAt, &report.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return service.DeployedReport{}, service.ErrNotFound
		}
		return service.DeployedReport{}, err
	}
	return report, nil
}

func scanOrgModule(row pgx.Row) (service.OrganizationModule, error) {
	var module service.OrganizationModule
	if err := row.Scan(
		&module.ID, &module.TenantID, &module.GlobalModuleID, &module.Name, &module.Position, &module.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return service.OrganizationModule{}, service.ErrNotFound
		}
		return service.OrganizationModule{}, err
	}
	return module, nil
}

func scanTenantTab(row pgx.Row) (service.TenantTab, error) {
	var tab service.TenantTab
	if err := row.Scan(
		&tab.ID, &tab.OrganizationModuleID, &tab.GlobalTabID, &tab.Name,
		&tab.DeployedReportID, &tab.ExternalPageID, &tab.Position, &tab.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return service.TenantTab{}, service.ErrNotFound
		}
		return service.TenantTab{}, err
	}
	return tab, nil
}

// Ensure interface compliance.
var _ service.Repository = (*PostgresRepository)(nil)
