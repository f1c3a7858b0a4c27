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

// RoleRepository implements role and role-permission persistence. Reads
// exclude soft-deleted roles.
type RoleRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewRoleRepository constructs a PostgreSQL-backed role repository.
func NewRoleRepository(pool *pgxpool.Pool) *RoleRepository {
	return &RoleRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository configured to execute within the provided transaction.
func (r *RoleRepository) WithTx(tx pgx.Tx) *RoleRepository {
	if tx == nil {
		return r
	}
	return &RoleRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a new role.
func (r *RoleRepository) Create(ctx context.Context, role domain.Role) error {
	stmt, args, err := r.builder.Insert("access.roles").
		Columns("id", "tenant_id", "key", "name", "description", "is_system", "is_active", "created_at").
		Values(
			role.ID, role.TenantID, role.Key, role.Name, role.Description,
			role.IsSystem, role.IsActive, role.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert role sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return mapInsertError(err, "insert role")
	}

	return nil
}

func (r *RoleRepository) selectRole() squirrel.SelectBuilder {
	return r.builder.Select(
		"id", "tenant_id", "key", "name", "description", "is_system", "is_active",
		"created_at", "updated_at", "deleted_at",
	).
		From("access.roles").
		Where(squirrel.Eq{"deleted_at": nil})
}

func scanRole(row pgx.Row) (*domain.Role, error) {
	var role domain.Role
	if err := row.Scan(
		&role.ID,
		&role.TenantID,
		&role.Key,
		&role.Name,
		&role.Description,
		&role.IsSystem,
		&role.IsActive,
		&role.CreatedAt,
		&role.UpdatedAt,
		&role.DeletedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan role: %w", err)
	}
	return &role, nil
}

// GetByID retrieves a live role by its ID.
func (r *RoleRepository) GetByID(ctx context.Context, id string) (*domain.Role, error) {
	stmt, args, err := r.selectRole().Where(squirrel.Eq{"id": id}).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select role by id sql: %w", err)
	}

	return scanRole(r.exec.QueryRow(ctx, stmt, args...))
}

// GetByTenantAndKey retrieves a live role by its unique (tenant, key) pair.
func (r *RoleRepository) GetByTenantAndKey(ctx context.Context, tenantID, key string) (*domain.Role, error) {
	stmt, args, err := r.selectRole().
		Where(squirrel.Eq{"tenant_id": tenantID, "key": key}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select role by key sql: %w", err)
	}

	return scanRole(r.exec.QueryRow(ctx, stmt, args...))
}

// ListByTenant returns the tenant's live roles sorted by key.
func (r *RoleRepository) ListByTenant(ctx context.Context, tenantID string) ([]domain.Role, error) {
	stmt, args, err := r.selectRole().
		Where(squirrel.Eq{"tenant_id": tenantID}).
		OrderBy("key ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list roles sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query roles: %w", err)
	}
	defer rows.Close()

	roles := make([]domain.Role, 0)
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, *role)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roles: %w", err)
	}

	return roles, nil
}

// SoftDelete stamps the tombstone on the role.
func (r *RoleRepository) SoftDelete(ctx context.Context, id string, deletedAt time.Time) error {
	stmt, args, err := r.builder.Update("access.roles").
		Set("deleted_at", deletedAt).
		Where(squirrel.Eq{"id": id, "deleted_at": nil}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build soft delete role sql: %w", err)
	}

	res, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("soft delete role: %w", err)
	}

	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// UpsertPermission inserts or replaces the (role, permission) mapping.
func (r *RoleRepository) UpsertPermission(ctx context.Context, rp domain.RolePermission) error {
	stmt, args, err := r.builder.Insert("access.role_permissions").
		Columns("role_id", "permission_id", "effect", "conditions", "created_at").
		Values(rp.RoleID, rp.PermissionID, string(rp.Effect), rp.Conditions, rp.CreatedAt).
		Suffix("ON CONFLICT (role_id, permission_id) DO UPDATE SET effect = EXCLUDED.effect, conditions = EXCLUDED.conditions").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert role permission sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("upsert role permission: %w", err)
	}

	return nil
}

// RemovePermission deletes the (role, permission) mapping.
func (r *RoleRepository) RemovePermission(ctx context.Context, roleID, permissionID string) error {
	stmt, args, err := r.builder.Delete("access.role_permissions").
		Where(squirrel.Eq{"role_id": roleID, "permission_id": permissionID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build remove role permission sql: %w", err)
	}

	res, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("remove role permission: %w", err)
	}

	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// ListPermissions returns the mappings currently attached to the role.
func (r *RoleRepository) ListPermissions(ctx context.Context, roleID string) ([]domain.RolePermission, error) {
	stmt, args, err := r.builder.Select("role_id", "permission_id", "effect", "conditions", "created_at").
		From("access.role_permissions").
		Where(squirrel.Eq{"role_id": roleID}).
		OrderBy("permission_id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list role permissions sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query role permissions: %w", err)
	}
	defer rows.Close()

	rolePerms := make([]domain.RolePermission, 0)
	for rows.Next() {
		var (
			rp     domain.RolePermission
			effect string
		)
		if err := rows.Scan(&rp.RoleID, &rp.PermissionID, &effect, &rp.Conditions, &rp.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan role permission: %w", err)
		}
		rp.Effect = domain.Effect(effect)
		rolePerms = append(rolePerms, rp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate role permissions: %w", err)
	}

	return rolePerms, nil
}

var _ port.RoleRepository = (*RoleRepository)(nil)
