package port

import (
	"context"
	"time"

	"github.com/arklim/smb-platform-access/internal/core/domain"
)

// GrantRepository manages object-level resource grants. Read methods exclude
// soft-deleted rows by construction; lookups are exact match only.
type GrantRepository interface {
	Upsert(ctx context.Context, grant domain.ResourceGrant) error
	Revoke(ctx context.Context, tenantID string, subject domain.GrantSubjectType, subjectID, resourceType, resourceID string, deletedAt time.Time) error
	Get(ctx context.Context, tenantID string, subject domain.GrantSubjectType, subjectID, resourceType, resourceID string) (*domain.ResourceGrant, error)
	ListBySubject(ctx context.Context, tenantID string, subject domain.GrantSubjectType, subjectID string) ([]domain.ResourceGrant, error)
}
