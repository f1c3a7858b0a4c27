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

// GrantRepository implements resource grant persistence. Reads exclude
// soft-deleted rows and match the full subject/resource tuple exactly.
type GrantRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewGrantRepository constructs a PostgreSQL-backed grant repository.
func NewGrantRepository(pool *pgxpool.Pool) *GrantRepository {
	return &GrantRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Upsert inserts or replaces the grant for the exact subject/resource tuple,
// resurrecting a soft-deleted row.
func (r *GrantRepository) Upsert(ctx context.Context, grant domain.ResourceGrant) error {
	stmt, args, err := r.builder.Insert("access.resource_grants").
		Columns(
			"id", "tenant_id", "subject_type", "subject_id", "resource_type", "resource_id",
			"access_level", "conditions", "created_by_user_id", "created_at", "deleted_at",
		).
		Values(
			grant.ID, grant.TenantID, string(grant.SubjectType), grant.SubjectID,
			grant.ResourceType, grant.ResourceID, string(grant.AccessLevel),
			grant.Conditions, grant.CreatedByUserID, grant.CreatedAt, nil,
		).
		Suffix("ON CONFLICT (tenant_id, subject_type, subject_id, resource_type, resource_id) DO UPDATE SET access_level = EXCLUDED.access_level, conditions = EXCLUDED.conditions, updated_at = NOW(), deleted_at = NULL").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert resource grant sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("upsert resource grant: %w", err)
	}

	return nil
}

// Revoke soft deletes the grant for the exact subject/resource tuple.
func (r *GrantRepository) Revoke(ctx context.Context, tenantID string, subject domain.GrantSubjectType, subjectID, resourceType, resourceID string, deletedAt time.Time) error {
	stmt, args, err := r.builder.Update("access.resource_grants").
		Set("deleted_at", deletedAt).
		Where(squirrel.Eq{
			"tenant_id":     tenantID,
			"subject_type":  string(subject),
			"subject_id":    subjectID,
			"resource_type": resourceType,
			"resource_id":   resourceID,
			"deleted_at":    nil,
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build revoke resource grant sql: %w", err)
	}

	res, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("revoke resource grant: %w", err)
	}

	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *GrantRepository) selectGrant() squirrel.SelectBuilder {
	return r.builder.Select(
		"id", "tenant_id", "subject_type", "subject_id", "resource_type", "resource_id",
		"access_level", "conditions", "created_by_user_id", "created_at", "updated_at", "deleted_at",
	).
		From("access.resource_grants").
		Where(squirrel.Eq{"deleted_at": nil})
}

func scanGrant(row pgx.Row) (*domain.ResourceGrant, error) {
	var (
		grant       domain.ResourceGrant
		subjectType string
		accessLevel string
	)
	if err := row.Scan(
		&grant.ID,
		&grant.TenantID,
		&subjectType,
		&grant.SubjectID,
		&grant.ResourceType,
		&grant.ResourceID,
		&accessLevel,
		&grant.Conditions,
		&grant.CreatedByUserID,
		&grant.CreatedAt,
		&grant.UpdatedAt,
		&grant.DeletedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan resource grant: %w", err)
	}
	grant.SubjectType = domain.GrantSubjectType(subjectType)
	grant.AccessLevel = domain.AccessLevel(accessLevel)
	return &grant, nil
}

// Get retrieves the live grant matching the exact subject/resource tuple.
func (r *GrantRepository) Get(ctx context.Context, tenantID string, subject domain.GrantSubjectType, subjectID, resourceType, resourceID string) (*domain.ResourceGrant, error) {
	stmt, args, err := r.selectGrant().
		Where(squirrel.Eq{
			"tenant_id":     tenantID,
			"subject_type":  string(subject),
			"subject_id":    subjectID,
			"resource_type": resourceType,
			"resource_id":   resourceID,
		}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select resource grant sql: %w", err)
	}

	return scanGrant(r.exec.QueryRow(ctx, stmt, args...))
}

// ListBySubject returns the subject's live grants.
func (r *GrantRepository) ListBySubject(ctx context.Context, tenantID string, subject domain.GrantSubjectType, subjectID string) ([]domain.ResourceGrant, error) {
	stmt, args, err := r.selectGrant().
		Where(squirrel.Eq{
			"tenant_id":    tenantID,
			"subject_type": string(subject),
			"subject_id":   subjectID,
		}).
		OrderBy("resource_type ASC", "resource_id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list resource grants sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query resource grants: %w", err)
	}
	defer rows.Close()

	grants := make([]domain.ResourceGrant, 0)
	for rows.Next() {
		grant, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		grants = append(grants, *grant)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate resource grants: %w", err)
	}

	return grants, nil
}

var _ port.GrantRepository = (*GrantRepository)(nil)
