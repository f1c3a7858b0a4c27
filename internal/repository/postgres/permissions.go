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

// PermissionRepository implements global permission catalog persistence.
type PermissionRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewPermissionRepository constructs a PostgreSQL-backed permission repository.
func NewPermissionRepository(pool *pgxpool.Pool) *PermissionRepository {
	return &PermissionRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a catalog entry.
func (r *PermissionRepository) Create(ctx context.Context, permission domain.Permission) error {
	stmt, args, err := r.builder.Insert("access.permissions").
		Columns("id", "key", "name", "description", "resource", "action", "is_active", "created_at").
		Values(
			permission.ID, permission.Key, permission.Name, permission.Description,
			permission.Resource, permission.Action, permission.IsActive, permission.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert permission sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return mapInsertError(err, "insert permission")
	}

	return nil
}

func (r *PermissionRepository) selectPermission() squirrel.SelectBuilder {
	return r.builder.Select(
		"id", "key", "name", "description", "resource", "action", "is_active",
		"created_at", "updated_at",
	).From("access.permissions")
}

func scanPermission(row pgx.Row) (*domain.Permission, error) {
	var permission domain.Permission
	if err := row.Scan(
		&permission.ID,
		&permission.Key,
		&permission.Name,
		&permission.Description,
		&permission.Resource,
		&permission.Action,
		&permission.IsActive,
		&permission.CreatedAt,
		&permission.UpdatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan permission: %w", err)
	}
	return &permission, nil
}

// GetByID retrieves a permission by its ID.
func (r *PermissionRepository) GetByID(ctx context.Context, id string) (*domain.Permission, error) {
	stmt, args, err := r.selectPermission().Where(squirrel.Eq{"id": id}).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select permission by id sql: %w", err)
	}

	return scanPermission(r.exec.QueryRow(ctx, stmt, args...))
}

// GetByKey retrieves a permission by its unique key.
func (r *PermissionRepository) GetByKey(ctx context.Context, key string) (*domain.Permission, error) {
	stmt, args, err := r.selectPermission().Where(squirrel.Eq{"key": key}).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select permission by key sql: %w", err)
	}

	return scanPermission(r.exec.QueryRow(ctx, stmt, args...))
}

func applyPermissionFilter(query squirrel.SelectBuilder, filter port.PermissionFilter) squirrel.SelectBuilder {
	if filter.Resource != "" {
		query = query.Where(squirrel.Eq{"resource": filter.Resource})
	}
	if filter.ActiveOnly {
		query = query.Where(squirrel.Eq{"is_active": true})
	}
	return query
}

// List returns catalog entries matching the filter, ordered by key.
func (r *PermissionRepository) List(ctx context.Context, filter port.PermissionFilter) ([]domain.Permission, error) {
	query := applyPermissionFilter(r.selectPermission(), filter).OrderBy("key ASC")
	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		query = query.Offset(uint64(filter.Offset))
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list permissions sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query permissions: %w", err)
	}
	defer rows.Close()

	permissions := make([]domain.Permission, 0)
	for rows.Next() {
		permission, err := scanPermission(rows)
		if err != nil {
			return nil, err
		}
		permissions = append(permissions, *permission)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate permissions: %w", err)
	}

	return permissions, nil
}

// Count returns the number of catalog entries matching the filter.
func (r *PermissionRepository) Count(ctx context.Context, filter port.PermissionFilter) (int, error) {
	query := applyPermissionFilter(
		r.builder.Select("COUNT(*)").From("access.permissions"),
		filter,
	)

	stmt, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count permissions sql: %w", err)
	}

	var count int
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count permissions: %w", err)
	}

	return count, nil
}

// SetActive flips the catalog entry's active flag.
func (r *PermissionRepository) SetActive(ctx context.Context, id string, active bool) error {
	stmt, args, err := r.builder.Update("access.permissions").
		Set("is_active", active).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set permission active sql: %w", err)
	}

	res, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("set permission active: %w", err)
	}

	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

var _ port.PermissionRepository = (*PermissionRepository)(nil)
