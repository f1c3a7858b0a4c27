package postgres

import (
	"context"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arklim/smb-platform-access/internal/core/domain"
	"github.com/arklim/smb-platform-access/internal/core/port"
	"github.com/arklim/smb-platform-access/internal/repository"
)

// AssignmentRepository implements member role assignment persistence.
type AssignmentRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAssignmentRepository constructs a PostgreSQL-backed assignment repository.
func NewAssignmentRepository(pool *pgxpool.Pool) *AssignmentRepository {
	return &AssignmentRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Upsert inserts the assignment or reactivates a revoked one. The operation
// is idempotent on (membership, role).
func (r *AssignmentRepository) Upsert(ctx context.Context, assignment domain.MemberRoleAssignment) error {
	stmt, args, err := r.builder.Insert("access.member_roles").
		Columns(
			"id", "tenant_id", "membership_id", "role_id", "assigned_by_user_id",
			"is_active", "assigned_at", "revoked_at",
		).
		Values(
			assignment.ID, assignment.TenantID, assignment.MembershipID, assignment.RoleID,
			assignment.AssignedByUserID, assignment.IsActive, assignment.AssignedAt, nil,
		).
		Suffix("ON CONFLICT (membership_id, role_id) DO UPDATE SET is_active = TRUE, revoked_at = NULL, assigned_by_user_id = EXCLUDED.assigned_by_user_id, assigned_at = EXCLUDED.assigned_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert member role sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("upsert member role: %w", err)
	}

	return nil
}

// Revoke deactivates the assignment and stamps the revocation time.
func (r *AssignmentRepository) Revoke(ctx context.Context, membershipID, roleID string, revokedAt time.Time) error {
	stmt, args, err := r.builder.Update("access.member_roles").
		Set("is_active", false).
		Set("revoked_at", revokedAt).
		Where(squirrel.Eq{"membership_id": membershipID, "role_id": roleID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build revoke member role sql: %w", err)
	}

	res, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("revoke member role: %w", err)
	}

	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// ListActiveByMembership returns active, non-revoked assignments joined
// against live, active roles.
func (r *AssignmentRepository) ListActiveByMembership(ctx context.Context, membershipID string) ([]domain.MemberRoleAssignment, error) {
	stmt, args, err := r.builder.Select(
		"mr.id", "mr.tenant_id", "mr.membership_id", "mr.role_id",
		"mr.assigned_by_user_id", "mr.is_active", "mr.assigned_at", "mr.revoked_at",
	).
		From("access.member_roles mr").
		Join("access.roles r ON r.id = mr.role_id").
		Where(squirrel.Eq{
			"mr.membership_id": membershipID,
			"mr.is_active":     true,
			"mr.revoked_at":    nil,
			"r.is_active":      true,
			"r.deleted_at":     nil,
		}).
		OrderBy("mr.assigned_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list member roles sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query member roles: %w", err)
	}
	defer rows.Close()

	assignments := make([]domain.MemberRoleAssignment, 0)
	for rows.Next() {
		var assignment domain.MemberRoleAssignment
		if err := rows.Scan(
			&assignment.ID,
			&assignment.TenantID,
			&assignment.MembershipID,
			&assignment.RoleID,
			&assignment.AssignedByUserID,
			&assignment.IsActive,
			&assignment.AssignedAt,
			&assignment.RevokedAt,
		); err != nil {
			return nil, fmt.Errorf("scan member role: %w", err)
		}
		assignments = append(assignments, assignment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate member roles: %w", err)
	}

	return assignments, nil
}

var _ port.AssignmentRepository = (*AssignmentRepository)(nil)
