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

// ErrTenantMismatch indicates the role or permission belongs to a different
// tenant than the membership.
var ErrTenantMismatch = errors.New("role and membership belong to different tenants")

// MemberAccessService manages role assignments and permission overrides for
// memberships. Every mutation invalidates the membership's cached policy
// state before returning, so the next evaluation observes the change.
type MemberAccessService struct {
	memberships port.MembershipRepository
	roles       port.RoleRepository
	permissions port.PermissionRepository
	assignments port.AssignmentRepository
	overrides   port.OverrideRepository
	cache       port.PolicyCache
	publisher   port.EventPublisher
}

// NewMemberAccessService constructs a MemberAccessService. The cache and
// publisher may be nil.
func NewMemberAccessService(
	memberships port.MembershipRepository,
	roles port.RoleRepository,
	permissions port.PermissionRepository,
	assignments port.AssignmentRepository,
	overrides port.OverrideRepository,
	cache port.PolicyCache,
	publisher port.EventPublisher,
) *MemberAccessService {
	return &MemberAccessService{
		memberships: memberships,
		roles:       roles,
		permissions: permissions,
		assignments: assignments,
		overrides:   overrides,
		cache:       cache,
		publisher:   publisher,
	}
}

// AssignRole attaches a role to a membership. The operation is an idempotent
// upsert: a previously revoked assignment is reactivated.
func (s *MemberAccessService) AssignRole(ctx context.Context, membershipID, roleID, assignedBy string) error {
	membership, err := s.membership(ctx, membershipID)
	if err != nil {
		return err
	}

	role, err := s.roles.GetByID(ctx, roleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrRoleNotFound
		}
		return fmt.Errorf("lookup role: %w", err)
	}
	if role.TenantID != membership.TenantID {
		return ErrTenantMismatch
	}

	now := time.Now().UTC()
	assignment := domain.MemberRoleAssignment{
		ID:           uuid.NewString(),
		TenantID:     membership.TenantID,
		MembershipID: membershipID,
		RoleID:       roleID,
		IsActive:     true,
		AssignedAt:   now,
	}
	if trimmed := strings.TrimSpace(assignedBy); trimmed != "" {
		assignment.AssignedByUserID = &trimmed
	}

	if err := s.assignments.Upsert(ctx, assignment); err != nil {
		return fmt.Errorf("assign role: %w", err)
	}

	if err := s.invalidate(ctx, membershipID); err != nil {
		return err
	}

	if s.publisher != nil {
		_ = s.publisher.PublishRolesAssigned(ctx, domain.RolesAssignedEvent{
			EventID:      uuid.NewString(),
			TenantID:     membership.TenantID,
			MembershipID: membershipID,
			RolesAdded:   []domain.RoleChange{{RoleID: role.ID, RoleKey: role.Key}},
			AssignedBy:   strings.TrimSpace(assignedBy),
			AssignedAt:   now,
		})
	}

	return nil
}

// RevokeRole deactivates the assignment and stamps the revocation time. The
// revocation is visible to the next evaluation.
func (s *MemberAccessService) RevokeRole(ctx context.Context, membershipID, roleID string) error {
	membership, err := s.membership(ctx, membershipID)
	if err != nil {
		return err
	}

	role, err := s.roles.GetByID(ctx, roleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrRoleNotFound
		}
		return fmt.Errorf("lookup role: %w", err)
	}

	now := time.Now().UTC()
	if err := s.assignments.Revoke(ctx, membershipID, roleID, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrRoleNotFound
		}
		return fmt.Errorf("revoke role: %w", err)
	}

	if err := s.invalidate(ctx, membershipID); err != nil {
		return err
	}

	if s.publisher != nil {
		_ = s.publisher.PublishRolesRevoked(ctx, domain.RolesRevokedEvent{
			EventID:      uuid.NewString(),
			TenantID:     membership.TenantID,
			MembershipID: membershipID,
			RolesRemoved: []domain.RoleChange{{RoleID: role.ID, RoleKey: role.Key}},
			RevokedAt:    now,
		})
	}

	return nil
}

// SetMemberOverride upserts a direct allow or deny on one permission for the
// membership, superseding role aggregation for that permission.
func (s *MemberAccessService) SetMemberOverride(ctx context.Context, membershipID, permissionID string, effect domain.Effect, conditions domain.Conditions) error {
	if !effect.Valid() {
		return ErrInvalidEffect
	}

	membership, err := s.membership(ctx, membershipID)
	if err != nil {
		return err
	}

	if _, err := s.permissions.GetByID(ctx, permissionID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPermissionNotFound
		}
		return fmt.Errorf("lookup permission: %w", err)
	}

	override := domain.MemberPermissionOverride{
		ID:           uuid.NewString(),
		TenantID:     membership.TenantID,
		MembershipID: membershipID,
		PermissionID: permissionID,
		Effect:       effect,
		Conditions:   conditions,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.overrides.Upsert(ctx, override); err != nil {
		return fmt.Errorf("set member override: %w", err)
	}

	return s.invalidate(ctx, membershipID)
}

// ClearMemberOverride soft deletes the override for the permission.
func (s *MemberAccessService) ClearMemberOverride(ctx context.Context, membershipID, permissionID string) error {
	if _, err := s.membership(ctx, membershipID); err != nil {
		return err
	}

	if err := s.overrides.Clear(ctx, membershipID, permissionID, time.Now().UTC()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPermissionNotFound
		}
		return fmt.Errorf("clear member override: %w", err)
	}

	return s.invalidate(ctx, membershipID)
}

// ListMemberOverrides returns the membership's live overrides.
func (s *MemberAccessService) ListMemberOverrides(ctx context.Context, membershipID string) ([]domain.MemberPermissionOverride, error) {
	if _, err := s.membership(ctx, membershipID); err != nil {
		return nil, err
	}
	return s.overrides.ListByMembership(ctx, membershipID)
}

func (s *MemberAccessService) membership(ctx context.Context, membershipID string) (*domain.Membership, error) {
	membership, err := s.memberships.GetByID(ctx, membershipID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMembershipNotFound
		}
		return nil, fmt.Errorf("lookup membership: %w", err)
	}
	return membership, nil
}

// invalidate drops the membership's cached policy state. The error is
// surfaced to the caller: reporting success while the cache still serves the
// old decision would hide a revocation until the entry expires.
func (s *MemberAccessService) invalidate(ctx context.Context, membershipID string) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.InvalidateMembership(ctx, membershipID); err != nil {
		return fmt.Errorf("invalidate policy cache: %w", err)
	}
	return nil
}
