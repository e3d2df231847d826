package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skillsight-analytics/skillsight-saas/domains/tenants/be/service"
	"github.com/skillsight-analytics/skillsight-saas/platform/go/persistence"
	"github.com/skillsight-analytics/skillsight-saas/platform/go/provider"
)

// TenantsTable defines the fully-qualified tenants table.
const TenantsTable = "admin.tenants"

const tenantColumns = `tenant_id, slug, display_name, lms_code, english_maths_code,
    crm_code, hr_code, external_workspace_id, is_active, created_at, updated_at`

// PostgresRepository implements the tenant repository over pgxpool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs a repository; assumes migrations already created the table.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("pool is required")
	}
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) List(ctx context.Context, opts service.ListOptions) (service.ListResult, error) {
	page := opts.Page
	if page < 1 {
		page = 1
	}
	size := opts.PageSize
	if size <= 0 {
		size = 20
	}
	offset := (page - 1) * size

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE is_active", TenantsTable)
	if err := r.pool.QueryRow(ctx, countQuery).Scan(&total); err != nil {
		return service.ListResult{}, err
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE is_active
        ORDER BY created_at
        LIMIT %d OFFSET %d`, tenantColumns, TenantsTable, size, offset)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return service.ListResult{}, err
	}
	defer rows.Close()

	var tenants []service.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return service.ListResult{}, err
		}
		tenants = append(tenants, t)
	}
	if err = rows.Err(); err != nil {
		return service.ListResult{}, err
	}

	totalPages := (total + size - 1) / size
	return service.ListResult{Tenants: tenants, Page: page, PageSize: size, TotalItems: total, TotalPages: totalPages}, nil
}

func (r *PostgresRepository) Create(ctx context.Context, t service.Tenant) (service.Tenant, error) {
	query := fmt.Sprintf(`
        INSERT INTO %s (
            tenant_id, slug, display_name, lms_code, english_maths_code,
            crm_code, hr_code, external_workspace_id, is_active, created_at, updated_at
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,TRUE,$9,$10)
        RETURNING %s
    `, TenantsTable, tenantColumns)

	row := r.pool.QueryRow(ctx, query,
		t.ID, t.Slug, t.DisplayName, t.Codes.LMS, t.Codes.EnglishMaths,
		t.Codes.CRM, t.Codes.HR, t.ExternalWorkspaceID, t.CreatedAt, t.UpdatedAt,
	)

	out, err := scanTenant(row)
	if err != nil {
		if persistence.IsUniqueViolation(err, "tenants_slug_unique_active") {
			return service.Tenant{}, service.ErrConflictSlug
		}
		return service.Tenant{}, err
	}
	return out, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (service.Tenant, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE tenant_id = $1 AND is_active", tenantColumns, TenantsTable)
	return scanTenant(r.pool.QueryRow(ctx, query, id))
}

func (r *PostgresRepository) Update(ctx context.Context, t service.Tenant) (service.Tenant, error) {
	query := fmt.Sprintf(`
        UPDATE %s SET
            display_name = $2, lms_code = $3, english_maths_code = $4,
            crm_code = $5, hr_code = $6, external_workspace_id = $7, updated_at = $8
        WHERE tenant_id = $1 AND is_active
        RETURNING %s
    `, TenantsTable, tenantColumns)

	row := r.pool.QueryRow(ctx, query,
		t.ID, t.DisplayName, t.Codes.LMS, t.Codes.EnglishMaths,
		t.Codes.CRM, t.Codes.HR, t.ExternalWorkspaceID, t.UpdatedAt,
	)
	return scanTenant(row)
}

func (r *PostgresRepository) FindBySlug(ctx context.Context, slug string) (service.Tenant, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE slug = $1 AND is_active", tenantColumns, TenantsTable)
	return scanTenant(r.pool.QueryRow(ctx, query, slug))
}

func scanTenant(row pgx.Row) (service.Tenant, error) {
	var t service.Tenant
	var codes provider.Codes
	if err := row.Scan(
		&t.ID, &t.Slug, &t.DisplayName, &codes.LMS, &codes.EnglishMaths,
		&codes.CRM, &codes.HR, &t.ExternalWorkspaceID, &t.IsActive, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return service.Tenant{}, service.ErrNotFound
		}
		return service.Tenant{}, err
	}
	t.Codes = codes
	return t, nil
}

// Ensure interface compliance.
var _ service.Repository = (*PostgresRepository)(nil)
