package postgres

import (
	"context"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arklim/smb-platform-access/internal/core/domain"
	"github.com/arklim/smb-platform-access/internal/core/port"
	"github.com/arklim/smb-platform-access/internal/repository"
)

// TenantRepository implements tenant persistence operations. Reads exclude
// soft-deleted rows.
type TenantRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewTenantRepository constructs a PostgreSQL-backed tenant repository.
func NewTenantRepository(pool *pgxpool.Pool) *TenantRepository {
	return &TenantRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository configured to execute within the provided transaction.
func (r *TenantRepository) WithTx(tx pgx.Tx) *TenantRepository {
	if tx == nil {
		return r
	}
	return &TenantRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a new tenant.
func (r *TenantRepository) Create(ctx context.Context, tenant domain.Tenant) error {
	stmt, args, err := r.builder.Insert("access.tenants").
		Columns("id", "name", "slug", "email", "website", "status", "settings", "created_at").
		Values(tenant.ID, tenant.Name, tenant.Slug, tenant.Email, tenant.Website, string(tenant.Status), tenant.Settings, tenant.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert tenant sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return mapInsertError(err, "insert tenant")
	}

	return nil
}

func (r *TenantRepository) selectTenant() squirrel.SelectBuilder {
	return r.builder.Select(
		"id", "name", "slug", "email", "website", "status", "settings",
		"created_at", "updated_at", "deleted_at",
	).
		From("access.tenants").
		Where(squirrel.Eq{"deleted_at": nil})
}

func scanTenant(row pgx.Row) (*domain.Tenant, error) {
	var (
		tenant domain.Tenant
		status string
	)
	if err := row.Scan(
		&tenant.ID,
		&tenant.Name,
		&tenant.Slug,
		&tenant.Email,
		&tenant.Website,
		&status,
		&tenant.Settings,
		&tenant.CreatedAt,
		&tenant.UpdatedAt,
		&tenant.DeletedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan tenant: %w", err)
	}
	tenant.Status = domain.TenantStatus(status)
	return &tenant, nil
}

// GetByID retrieves a live tenant by its ID.
func (r *TenantRepository) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	stmt, args, err := r.selectTenant().Where(squirrel.Eq{"id": id}).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select tenant by id sql: %w", err)
	}

	return scanTenant(r.exec.QueryRow(ctx, stmt, args...))
}

// GetBySlug retrieves a live tenant by its unique slug.
func (r *TenantRepository) GetBySlug(ctx context.Context, slug string) (*domain.Tenant, error) {
	stmt, args, err := r.selectTenant().Where(squirrel.Eq{"slug": slug}).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select tenant by slug sql: %w", err)
	}

	return scanTenant(r.exec.QueryRow(ctx, stmt, args...))
}

// UpdateStatus transitions the tenant's lifecycle status.
func (r *TenantRepository) UpdateStatus(ctx context.Context, id string, status domain.TenantStatus) error {
	stmt, args, err := r.builder.Update("access.tenants").
		Set("status", string(status)).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": id, "deleted_at": nil}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update tenant status sql: %w", err)
	}

	res, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update tenant status: %w", err)
	}

	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// SoftDelete stamps the tombstone on the tenant.
func (r *TenantRepository) SoftDelete(ctx context.Context, id string, deletedAt time.Time) error {
	stmt, args, err := r.builder.Update("access.tenants").
		Set("deleted_at", deletedAt).
		Where(squirrel.Eq{"id": id, "deleted_at": nil}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build soft delete tenant sql: %w", err)
	}

	res, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("soft delete tenant: %w", err)
	}

	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Delete removes the tenant row (cascades to every tenant-scoped child via FK).
func (r *TenantRepository) Delete(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Delete("access.tenants").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete tenant sql: %w", err)
	}

	res, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete tenant: %w", err)
	}

	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

var _ port.TenantRepository = (*TenantRepository)(nil)
