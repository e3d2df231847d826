package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skillsight-analytics/skillsight-saas/domains/catalog/be/service"
	"github.com/skillsight-analytics/skillsight-saas/platform/go/provider"
)

// CatalogTemplatesTable defines the fully-qualified catalog table.
const CatalogTemplatesTable = "platform.catalog_templates"

// DeployedReportsTable is read here to answer which templates a tenant has deployed.
const DeployedReportsTable = "platform.deployed_reports"

const templateColumns = `template_id, name, category, lms_code, english_maths_code,
    crm_code, hr_code, role_name, version_major, version_minor,
    external_template_id, is_active, is_template`

// PostgresRepository implements the catalog repository over pgxpool.
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

func (r *PostgresRepository) ListActiveTemplates(ctx context.Context) ([]service.Template, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE is_active ORDER BY category, name", templateColumns, CatalogTemplatesTable)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []service.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

func (r *PostgresRepository) GetTemplate(ctx context.Context, id uuid.UUID) (service.Template, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE template_id = $1", templateColumns, CatalogTemplatesTable)
	return scanTemplate(r.pool.QueryRow(ctx, query, id))
}

func (r *PostgresRepository) DeployedTemplateIDs(ctx context.Context, tenantID uuid.UUID) (map[uuid.UUID]struct{}, error) {
	query := fmt.Sprintf(`SELECT DISTINCT template_id FROM %s
        WHERE tenant_id = $1 AND status <> 'archived'`, DeployedReportsTable)

	rows, err := r.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[uuid.UUID]struct{})
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}

// Upsert inserts or replaces a template by id. The seed importer uses this.
func (r *PostgresRepository) Upsert(ctx context.Context, t service.Template) error {
	var major, minor *int
	if t.Version != nil {
		major, minor = &t.Version.Major, &t.Version.Minor
	}

	query := fmt.Sprintf(`
        INSERT INTO %s (
            template_id, name, category, lms_code, english_maths_code,
            crm_code, hr_code, role_name, version_major, version_minor,
            external_template_id, is_active, is_template
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        ON CONFLICT (template_id) DO UPDATE SET
            name = EXCLUDED.name,
            category = EXCLUDED.category,
            lms_code = EXCLUDED.lms_code,
            english_maths_code = EXCLUDED.english_maths_code,
            crm_code = EXCLUDED.crm_code,
            hr_code = EXCLUDED.hr_code,
            role_name = EXCLUDED.role_name,
            version_major = EXCLUDED.version_major,
            version_minor = EXCLUDED.version_minor,
            external_template_id = EXCLUDED.external_template_id,
            is_active = EXCLUDED.is_active,
            is_template = EXCLUDED.is_template,
            updated_at = now()
    `, CatalogTemplatesTable)

	_, err := r.pool.Exec(ctx, query,
		t.ID, t.Name, t.Category, t.Codes.LMS, t.Codes.EnglishMaths,
		t.Codes.CRM, t.Codes.HR, t.RoleName, major, minor,
		t.ExternalTemplateID, t.IsActive, t.IsTemplate,
	)
	return err
}

func scanTemplate(row pgx.Row) (service.Template, error) {
	var t service.Template
	var codes provider.Codes
	var major, minor *int
	if err := row.Scan(
		&t.ID, &t.Name, &t.Category, &codes.LMS, &codes.EnglishMaths,
		&codes.CRM, &codes.HR, &t.RoleName, &major, &minor,
		&t.ExternalTemplateID, &t.IsActive, &t.IsTemplate,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return service.Template{}, service.ErrNotFound
		}
		return service.Template{}, err
	}
	t.Codes = codes
	if major != nil && minor != nil {
		t.Version = &provider.Version{Major: *major, Minor: *minor}
	}
	return t, nil
}

// Ensure interface compliance.
var _ service.Repository = (*PostgresRepository)(nil)
