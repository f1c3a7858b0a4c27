package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"

	"github.com/arklim/smb-platform-access/internal/core/domain"
	"github.com/arklim/smb-platform-access/internal/core/port"
	"github.com/arklim/smb-platform-access/internal/repository"
)

var (
	// ErrInvalidAccessLevel indicates the level is not read, write, admin, or full.
	ErrInvalidAccessLevel = errors.New("invalid access level")
	// ErrGrantNotFound is returned when no grant matches the exact resource reference.
	ErrGrantNotFound = errors.New("resource grant not found")
)

// GrantService manages object-level resource grants. Grants target
// memberships; the subject discriminator stays on the stored rows for
// forward compatibility.
type GrantService struct {
	memberships port.MembershipRepository
	grants      port.GrantRepository
	cache       port.PolicyCache
}

// NewGrantService constructs a GrantService. The cache may be nil.
func NewGrantService(memberships port.MembershipRepository, grants port.GrantRepository, cache port.PolicyCache) *GrantService {
	return &GrantService{memberships: memberships, grants: grants, cache: cache}
}

// Grant upserts an access level for the membership on one concrete resource
// instance.
func (s *GrantService) Grant(ctx context.Context, tenantID, membershipID, resourceType, resourceID string, level domain.AccessLevel, conditions domain.Conditions, createdBy string) (*domain.ResourceGrant, error) {
	if !level.Valid() {
		return nil, ErrInvalidAccessLevel
	}

	resourceType = strings.TrimSpace(resourceType)
	resourceID = strings.TrimSpace(resourceID)
	if resourceType == "" || resourceID == "" {
		return nil, fmt.Errorf("resource type and id are required")
	}

	membership, err := s.memberships.GetByID(ctx, membershipID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMembershipNotFound
		}
		return nil, fmt.Errorf("lookup membership: %w", err)
	}
	if membership.TenantID != tenantID {
		return nil, ErrTenantMismatch
	}

	grant := domain.ResourceGrant{
		ID:           uuid.NewString(),
		TenantID:     tenantID,
		SubjectType:  domain.GrantSubjectMembership,
		SubjectID:    membershipID,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		AccessLevel:  level,
		Conditions:   conditions,
		CreatedAt:    time.Now().UTC(),
	}
	if trimmed := strings.TrimSpace(createdBy); trimmed != "" {
		grant.CreatedByUserID = &trimmed
	}

	if err := s.grants.Upsert(ctx, grant); err != nil {
		return nil, fmt.Errorf("upsert resource grant: %w", err)
	}

	if err := s.invalidate(ctx, membershipID); err != nil {
		return nil, err
	}
	return &grant, nil
}

// Revoke soft deletes the grant matching the exact resource reference.
func (s *GrantService) Revoke(ctx context.Context, tenantID, membershipID, resourceType, resourceID string) error {
	err := s.grants.Revoke(ctx, tenantID, domain.GrantSubjectMembership, membershipID, resourceType, resourceID, time.Now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrGrantNotFound
		}
		return fmt.Errorf("revoke resource grant: %w", err)
	}

	return s.invalidate(ctx, membershipID)
}

// ListGrants returns the membership's live grants.
func (s *GrantService) ListGrants(ctx context.Context, tenantID, membershipID string) ([]domain.ResourceGrant, error) {
	return s.grants.ListBySubject(ctx, tenantID, domain.GrantSubjectMembership, membershipID)
}

// invalidate drops the membership's cached policy state. A failed
// invalidation fails the mutation so a revoked grant is never still honored
// from cache.
func (s *GrantService) invalidate(ctx context.Context, membershipID string) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.InvalidateMembership(ctx, membershipID); err != nil {
		return fmt.Errorf("invalidate policy cache: %w", err)
	}
	return nil
}
