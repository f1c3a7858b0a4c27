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
	// ErrMembershipExists indicates the user already belongs to the tenant.
	ErrMembershipExists = errors.New("membership already exists")
	// ErrMembershipNotFound is returned when no membership links the user and tenant.
	ErrMembershipNotFound = errors.New("membership not found")
	// ErrMembershipInactive indicates the operation requires an active membership.
	ErrMembershipInactive = errors.New("membership is not active")
	// ErrTenantNotActive indicates the operation requires the tenant to be active.
	ErrTenantNotActive = errors.New("tenant is not active")
)

// MembershipService owns the user-to-tenant membership relation, including
// the single-primary invariant.
type MembershipService struct {
	tenants     port.TenantRepository
	memberships port.MembershipRepository
	tx          port.TxManager
	publisher   port.EventPublisher
}

// NewMembershipService constructs a MembershipService. The publisher may be nil.
func NewMembershipService(
	tenants port.TenantRepository,
	memberships port.MembershipRepository,
	tx port.TxManager,
	publisher port.EventPublisher,
) *MembershipService {
	return &MembershipService{
		tenants:     tenants,
		memberships: memberships,
		tx:          tx,
		publisher:   publisher,
	}
}

// CreateMembership joins a user to a tenant with the legacy coarse role
// label. Joining a suspended or deactivated tenant is rejected.
func (s *MembershipService) CreateMembership(ctx context.Context, userID, tenantID, role string) (*domain.Membership, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	tenant, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("lookup tenant: %w", err)
	}
	if tenant.Status != domain.TenantStatusActive && tenant.Status != domain.TenantStatusTrial {
		return nil, ErrTenantNotActive
	}

	if existing, err := s.memberships.GetByUserAndTenant(ctx, userID, tenantID); err == nil && existing != nil {
		return nil, ErrMembershipExists
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup membership: %w", err)
	}

	role = strings.TrimSpace(role)
	if role == "" {
		role = domain.RoleKeyMember
	}

	now := time.Now().UTC()
	membership := domain.Membership{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		UserID:    userID,
		Role:      role,
		IsActive:  true,
		JoinedAt:  now,
		CreatedAt: now,
	}

	if err := s.memberships.Create(ctx, membership); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrMembershipExists
		}
		return nil, fmt.Errorf("create membership: %w", err)
	}

	return &membership, nil
}

// GetMembership resolves the membership linking the user and tenant.
func (s *MembershipService) GetMembership(ctx context.Context, userID, tenantID string) (*domain.Membership, error) {
	membership, err := s.memberships.GetByUserAndTenant(ctx, userID, tenantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMembershipNotFound
		}
		return nil, fmt.Errorf("lookup membership: %w", err)
	}
	return membership, nil
}

// ListUserMemberships returns the user's memberships, optionally only active ones.
func (s *MembershipService) ListUserMemberships(ctx context.Context, userID string, activeOnly bool) ([]domain.Membership, error) {
	return s.memberships.ListByUser(ctx, userID, activeOnly)
}

// ListTenantMembers returns the tenant's memberships, optionally only active ones.
func (s *MembershipService) ListTenantMembers(ctx context.Context, tenantID string, activeOnly bool) ([]domain.Membership, error) {
	return s.memberships.ListByTenant(ctx, tenantID, activeOnly)
}

// SetPrimaryTenant makes the tenant the user's default context. The target
// tenant must be active and the membership active; the unset-all-then-set-one
// write commits in one transaction so at most one primary is ever observable.
func (s *MembershipService) SetPrimaryTenant(ctx context.Context, userID, tenantID string) error {
	tenant, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTenantNotFound
		}
		return fmt.Errorf("lookup tenant: %w", err)
	}
	if tenant.Status != domain.TenantStatusActive {
		return ErrTenantNotActive
	}

	membership, err := s.memberships.GetByUserAndTenant(ctx, userID, tenantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrMembershipNotFound
		}
		return fmt.Errorf("lookup membership: %w", err)
	}
	if !membership.IsActive {
		return ErrMembershipInactive
	}

	err = s.tx.WithinTransaction(ctx, func(repos port.TxRepositories) error {
		return repos.Memberships().SetPrimary(ctx, userID, membership.ID)
	})
	if err != nil {
		return fmt.Errorf("set primary tenant: %w", err)
	}

	if s.publisher != nil {
		_ = s.publisher.PublishPrimaryTenantChanged(ctx, domain.PrimaryTenantChangedEvent{
			EventID:   uuid.NewString(),
			UserID:    userID,
			TenantID:  tenantID,
			ChangedAt: time.Now().UTC(),
		})
	}

	return nil
}

// UpdateMembershipRole changes the legacy coarse role label.
func (s *MembershipService) UpdateMembershipRole(ctx context.Context, userID, tenantID, newRole string) error {
	newRole = strings.TrimSpace(newRole)
	if newRole == "" {
		return fmt.Errorf("role is required")
	}

	membership, err := s.GetMembership(ctx, userID, tenantID)
	if err != nil {
		return err
	}

	if err := s.memberships.UpdateRole(ctx, membership.ID, newRole); err != nil {
		return fmt.Errorf("update membership role: %w", err)
	}
	return nil
}

// DeactivateMembership suspends the membership by direct admin action. A
// deactivated primary membership loses its primary flag so the invariant
// that the primary membership is active holds. The cascade flag is cleared:
// an admin-deactivated membership is not restored when its tenant returns to
// active.
func (s *MembershipService) DeactivateMembership(ctx context.Context, userID, tenantID string) error {
	membership, err := s.GetMembership(ctx, userID, tenantID)
	if err != nil {
		return err
	}

	return s.tx.WithinTransaction(ctx, func(repos port.TxRepositories) error {
		update := port.MembershipActivityUpdate{IsActive: false, DeactivatedByCascade: false}
		if err := repos.Memberships().SetActivity(ctx, membership.ID, update); err != nil {
			return fmt.Errorf("deactivate membership: %w", err)
		}
		if membership.IsPrimary {
			if err := repos.Memberships().ClearPrimary(ctx, membership.ID); err != nil {
				return fmt.Errorf("clear primary flag: %w", err)
			}
		}
		return nil
	})
}

// ActivateMembership restores a membership by direct admin action.
func (s *MembershipService) ActivateMembership(ctx context.Context, userID, tenantID string) error {
	membership, err := s.GetMembership(ctx, userID, tenantID)
	if err != nil {
		return err
	}

	update := port.MembershipActivityUpdate{IsActive: true, DeactivatedByCascade: false}
	if err := s.memberships.SetActivity(ctx, membership.ID, update); err != nil {
		return fmt.Errorf("activate membership: %w", err)
	}
	return nil
}

// DeleteMembership removes the membership row; the storage cascade deletes
// its role assignments and overrides.
func (s *MembershipService) DeleteMembership(ctx context.Context, userID, tenantID string) error {
	membership, err := s.GetMembership(ctx, userID, tenantID)
	if err != nil {
		return err
	}

	if err := s.memberships.Delete(ctx, membership.ID); err != nil {
		return fmt.Errorf("delete membership: %w", err)
	}
	return nil
}
