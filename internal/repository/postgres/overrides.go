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

// OverrideRepository implements member permission override persistence.
// Reads exclude soft-deleted rows.
type OverrideRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewOverrideRepository constructs a PostgreSQL-backed override repository.
func NewOverrideRepository(pool *pgxpool.Pool) *OverrideRepository {
	return &OverrideRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Upsert inserts or replaces the override for (membership, permission),
// resurrecting a soft-deleted row.
func (r *OverrideRepository) Upsert(ctx context.Context, override domain.MemberPermissionOverride) error {
	stmt, args, err := r.builder.Insert("access.member_permission_overrides").
		Columns("id", "tenant_id", "membership_id", "permission_id", "effect", "conditions", "created_at", "deleted_at").
		Values(
			override.ID, override.TenantID, override.MembershipID, override.PermissionID,
			string(override.Effect), override.Conditions, override.CreatedAt, nil,
		).
		Suffix("ON CONFLICT (membership_id, permission_id) DO UPDATE SET effect = EXCLUDED.effect, conditions = EXCLUDED.conditions, updated_at = NOW(), deleted_at = NULL").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert member override sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("upsert member override: %w", err)
	}

	return nil
}

// Clear soft deletes the override for (membership, permission).
func (r *OverrideRepository) Clear(ctx context.Context, membershipID, permissionID string, deletedAt time.Time) error {
	stmt, args, err := r.builder.Update("access.member_permission_overrides").
		Set("deleted_at", deletedAt).
		Where(squirrel.Eq{"membership_id": membershipID, "permission_id": permissionID, "deleted_at": nil}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build clear member override sql: %w", err)
	}

	res, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("clear member override: %w", err)
	}

	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *OverrideRepository) selectOverride() squirrel.SelectBuilder {
	return r.builder.Select(
		"id", "tenant_id", "membership_id", "permission_id", "effect", "conditions",
		"created_at", "updated_at", "deleted_at",
	).
		From("access.member_permission_overrides").
		Where(squirrel.Eq{"deleted_at": nil})
}

func scanOverride(row pgx.Row) (*domain.MemberPermissionOverride, error) {
	var (
		override domain.MemberPermissionOverride
		effect   string
	)
	if err := row.Scan(
		&override.ID,
		&override.TenantID,
		&override.MembershipID,
		&override.PermissionID,
		&effect,
		&override.Conditions,
		&override.CreatedAt,
		&override.UpdatedAt,
		&override.DeletedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan member override: %w", err)
	}
	override.Effect = domain.Effect(effect)
	return &override, nil
}

// GetByMembershipAndPermission retrieves the live override for the exact pair.
func (r *OverrideRepository) GetByMembershipAndPermission(ctx context.Context, membershipID, permissionID string) (*domain.MemberPermissionOverride, error) {
	stmt, args, err := r.selectOverride().
		Where(squirrel.Eq{"membership_id": membershipID, "permission_id": permissionID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select member override sql: %w", err)
	}

	return scanOverride(r.exec.QueryRow(ctx, stmt, args...))
}

// ListByMembership returns the membership's live overrides.
func (r *OverrideRepository) ListByMembership(ctx context.Context, membershipID string) ([]domain.MemberPermissionOverride, error) {
	stmt, args, err := r.selectOverride().
		Where(squirrel.Eq{"membership_id": membershipID}).
		OrderBy("permission_id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list member overrides sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query member overrides: %w", err)
	}
	defer rows.Close()

	overrides := make([]domain.MemberPermissionOverride, 0)
	for rows.Next() {
		override, err := scanOverride(rows)
		if err != nil {
			return nil, err
		}
		overrides = append(overrides, *override)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate member overrides: %w", err)
	}

	return overrides, nil
}

var _ port.OverrideRepository = (*OverrideRepository)(nil)
