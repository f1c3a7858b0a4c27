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

// MembershipRepository implements membership persistence operations. Reads
// exclude soft-deleted rows.
type MembershipRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewMembershipRepository constructs a PostgreSQL-backed membership repository.
func NewMembershipRepository(pool *pgxpool.Pool) *MembershipRepository {
	return &MembershipRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository configured to execute within the provided transaction.
func (r *MembershipRepository) WithTx(tx pgx.Tx) *MembershipRepository {
	if tx == nil {
		return r
	}
	return &MembershipRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a new membership.
func (r *MembershipRepository) Create(ctx context.Context, membership domain.Membership) error {
	stmt, args, err := r.builder.Insert("access.memberships").
		Columns(
			"id", "tenant_id", "user_id", "role", "is_active", "is_primary",
			"deactivated_by_cascade", "joined_at", "created_at",
		).
		Values(
			membership.ID, membership.TenantID, membership.UserID, membership.Role,
			membership.IsActive, membership.IsPrimary, membership.DeactivatedByCascade,
			membership.JoinedAt, membership.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert membership sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return mapInsertError(err, "insert membership")
	}

	return nil
}

func (r *MembershipRepository) selectMembership() squirrel.SelectBuilder {
	return r.builder.Select(
		"id", "tenant_id", "user_id", "role", "is_active", "is_primary",
		"deactivated_by_cascade", "joined_at", "created_at", "updated_at", "deleted_at",
	).
		From("access.memberships").
		Where(squirrel.Eq{"deleted_at": nil})
}

func scanMembership(row pgx.Row) (*domain.Membership, error) {
	var membership domain.Membership
	if err := row.Scan(
		&membership.ID,
		&membership.TenantID,
		&membership.UserID,
		&membership.Role,
		&membership.IsActive,
		&membership.IsPrimary,
		&membership.DeactivatedByCascade,
		&membership.JoinedAt,
		&membership.CreatedAt,
		&membership.UpdatedAt,
		&membership.DeletedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan membership: %w", err)
	}
	return &membership, nil
}

// GetByID retrieves a live membership by its ID.
func (r *MembershipRepository) GetByID(ctx context.Context, id string) (*domain.Membership, error) {
	stmt, args, err := r.selectMembership().Where(squirrel.Eq{"id": id}).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select membership by id sql: %w", err)
	}

	return scanMembership(r.exec.QueryRow(ctx, stmt, args...))
}

// GetByUserAndTenant retrieves the membership linking the user and tenant.
func (r *MembershipRepository) GetByUserAndTenant(ctx context.Context, userID, tenantID string) (*domain.Membership, error) {
	stmt, args, err := r.selectMembership().
		Where(squirrel.Eq{"user_id": userID, "tenant_id": tenantID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select membership by user and tenant sql: %w", err)
	}

	return scanMembership(r.exec.QueryRow(ctx, stmt, args...))
}

func (r *MembershipRepository) list(ctx context.Context, query squirrel.SelectBuilder) ([]domain.Membership, error) {
	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list memberships sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query memberships: %w", err)
	}
	defer rows.Close()

	memberships := make([]domain.Membership, 0)
	for rows.Next() {
		membership, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		memberships = append(memberships, *membership)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate memberships: %w", err)
	}

	return memberships, nil
}

// ListByUser returns the user's memberships ordered by join time.
func (r *MembershipRepository) ListByUser(ctx context.Context, userID string, activeOnly bool) ([]domain.Membership, error) {
	query := r.selectMembership().Where(squirrel.Eq{"user_id": userID}).OrderBy("joined_at ASC")
	if activeOnly {
		query = query.Where(squirrel.Eq{"is_active": true})
	}
	return r.list(ctx, query)
}

// ListByTenant returns the tenant's memberships ordered by join time.
func (r *MembershipRepository) ListByTenant(ctx context.Context, tenantID string, activeOnly bool) ([]domain.Membership, error) {
	query := r.selectMembership().Where(squirrel.Eq{"tenant_id": tenantID}).OrderBy("joined_at ASC")
	if activeOnly {
		query = query.Where(squirrel.Eq{"is_active": true})
	}
	return r.list(ctx, query)
}

// UpdateRole changes the legacy coarse role label.
func (r *MembershipRepository) UpdateRole(ctx context.Context, id string, role string) error {
	stmt, args, err := r.builder.Update("access.memberships").
		Set("role", role).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": id, "deleted_at": nil}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update membership role sql: %w", err)
	}

	res, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update membership role: %w", err)
	}

	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// SetActivity writes the activity and cascade flags.
func (r *MembershipRepository) SetActivity(ctx context.Context, id string, update port.MembershipActivityUpdate) error {
	stmt, args, err := r.builder.Update("access.memberships").
		Set("is_active", update.IsActive).
		Set("deactivated_by_cascade", update.DeactivatedByCascade).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": id, "deleted_at": nil}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set membership activity sql: %w", err)
	}

	res, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("set membership activity: %w", err)
	}

	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// CascadeActivity flips activity tenant-wide. Deactivation marks every
// active membership with the cascade flag; reactivation restores only the
// memberships that flag identifies, leaving admin-deactivated ones alone.
func (r *MembershipRepository) CascadeActivity(ctx context.Context, tenantID string, active bool) (int, error) {
	query := r.builder.Update("access.memberships").
		Set("is_active", active).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"tenant_id": tenantID, "deleted_at": nil})

	if active {
		query = query.
			Set("deactivated_by_cascade", false).
			Where(squirrel.Eq{"is_active": false, "deactivated_by_cascade": true})
	} else {
		query = query.
			Set("deactivated_by_cascade", true).
			Where(squirrel.Eq{"is_active": true})
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build cascade membership activity sql: %w", err)
	}

	res, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("cascade membership activity: %w", err)
	}

	return int(res.RowsAffected()), nil
}

// SetPrimary clears the primary flag on every membership of the user and
// sets it on the given membership. Callers run this inside a transaction so
// no reader observes zero or two primaries.
func (r *MembershipRepository) SetPrimary(ctx context.Context, userID, membershipID string) error {
	clearStmt, clearArgs, err := r.builder.Update("access.memberships").
		Set("is_primary", false).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"user_id": userID, "is_primary": true, "deleted_at": nil}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build clear primary sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, clearStmt, clearArgs...); err != nil {
		return fmt.Errorf("clear primary memberships: %w", err)
	}

	setStmt, setArgs, err := r.builder.Update("access.memberships").
		Set("is_primary", true).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": membershipID, "deleted_at": nil}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set primary sql: %w", err)
	}

	res, err := r.exec.Exec(ctx, setStmt, setArgs...)
	if err != nil {
		return fmt.Errorf("set primary membership: %w", err)
	}

	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// ClearPrimary unsets the primary flag on one membership.
func (r *MembershipRepository) ClearPrimary(ctx context.Context, membershipID string) error {
	stmt, args, err := r.builder.Update("access.memberships").
		Set("is_primary", false).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": membershipID, "deleted_at": nil}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build clear primary membership sql: %w", err)
	}

	res, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("clear primary membership: %w", err)
	}

	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Delete removes the membership row (cascades to assignments and overrides via FK).
func (r *MembershipRepository) Delete(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Delete("access.memberships").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete membership sql: %w", err)
	}

	res, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete membership: %w", err)
	}

	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

var _ port.MembershipRepository = (*MembershipRepository)(nil)
