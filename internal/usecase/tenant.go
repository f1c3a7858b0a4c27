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
	// ErrTenantExists indicates a tenant with the provided slug already exists.
	ErrTenantExists = errors.New("tenant already exists")
	// ErrTenantNotFound is returned when the tenant does not exist or is soft deleted.
	ErrTenantNotFound = errors.New("tenant not found")
	// ErrInvalidTenantStatus indicates the requested status is not a known lifecycle state.
	ErrInvalidTenantStatus = errors.New("invalid tenant status")
)

// System role display names keyed by role key, seeded at tenant creation.
var systemRoleNames = map[string]string{
	domain.RoleKeyOwner:  "Owner",
	domain.RoleKeyAdmin:  "Administrator",
	domain.RoleKeyMember: "Member",
	domain.RoleKeyViewer: "Viewer",
}

// CreateTenantInput captures the payload for creating a tenant.
type CreateTenantInput struct {
	Name    string
	Slug    string
	Email   *string
	Website *string
	Trial   bool
}

// TenantService owns the tenant lifecycle: creation with system role seeding
// and owner membership, status transitions with membership cascades, and
// soft/permanent deletion.
type TenantService struct {
	tenants     port.TenantRepository
	memberships port.MembershipRepository
	roles       port.RoleRepository
	tx          port.TxManager
	publisher   port.EventPublisher
}

// NewTenantService constructs a TenantService. The publisher may be nil.
func NewTenantService(
	tenants port.TenantRepository,
	memberships port.MembershipRepository,
	roles port.RoleRepository,
	tx port.TxManager,
	publisher port.EventPublisher,
) *TenantService {
	return &TenantService{
		tenants:     tenants,
		memberships: memberships,
		roles:       roles,
		tx:          tx,
		publisher:   publisher,
	}
}

// CreateTenant provisions a tenant in trial or active status, seeds the
// system roles, and creates the owner membership. The membership is primary
// when the owner has no other primary membership.
func (s *TenantService) CreateTenant(ctx context.Context, ownerUserID string, input CreateTenantInput) (*domain.Tenant, error) {
	ownerUserID = strings.TrimSpace(ownerUserID)
	if ownerUserID == "" {
		return nil, fmt.Errorf("owner user id is required")
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("tenant name is required")
	}

	slug := strings.ToLower(strings.TrimSpace(input.Slug))
	if slug == "" {
		return nil, fmt.Errorf("tenant slug is required")
	}

	if existing, err := s.tenants.GetBySlug(ctx, slug); err == nil && existing != nil {
		return nil, ErrTenantExists
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup tenant by slug: %w", err)
	}

	status := domain.TenantStatusActive
	if input.Trial {
		status = domain.TenantStatusTrial
	}

	now := time.Now().UTC()
	tenant := domain.Tenant{
		ID:        uuid.NewString(),
		Name:      name,
		Slug:      slug,
		Email:     input.Email,
		Website:   input.Website,
		Status:    status,
		CreatedAt: now,
	}

	if err := s.tenants.Create(ctx, tenant); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrTenantExists
		}
		return nil, fmt.Errorf("create tenant: %w", err)
	}

	for _, key := range domain.SystemRoleKeys() {
		role := domain.Role{
			ID:        uuid.NewString(),
			TenantID:  tenant.ID,
			Key:       key,
			Name:      systemRoleNames[key],
			IsSystem:  true,
			IsActive:  true,
			CreatedAt: now,
		}
		if err := s.roles.Create(ctx, role); err != nil {
			return nil, fmt.Errorf("seed system role %q: %w", key, err)
		}
	}

	isPrimary, err := s.ownerNeedsPrimary(ctx, ownerUserID)
	if err != nil {
		return nil, err
	}

	membership := domain.Membership{
		ID:        uuid.NewString(),
		TenantID:  tenant.ID,
		UserID:    ownerUserID,
		Role:      domain.RoleKeyOwner,
		IsActive:  true,
		IsPrimary: isPrimary,
		JoinedAt:  now,
		CreatedAt: now,
	}
	if err := s.memberships.Create(ctx, membership); err != nil {
		return nil, fmt.Errorf("create owner membership: %w", err)
	}

	if s.publisher != nil {
		_ = s.publisher.PublishTenantCreated(ctx, domain.TenantCreatedEvent{
			EventID:     uuid.NewString(),
			TenantID:    tenant.ID,
			Slug:        tenant.Slug,
			Status:      string(tenant.Status),
			OwnerUserID: ownerUserID,
			CreatedAt:   now,
		})
	}

	return &tenant, nil
}

// ownerNeedsPrimary reports whether the user currently has no primary
// membership, in which case the new one becomes primary.
func (s *TenantService) ownerNeedsPrimary(ctx context.Context, userID string) (bool, error) {
	memberships, err := s.memberships.ListByUser(ctx, userID, false)
	if err != nil {
		return false, fmt.Errorf("list user memberships: %w", err)
	}
	for _, m := range memberships {
		if m.IsPrimary {
			return false, nil
		}
	}
	return true, nil
}

// UpdateTenantStatus transitions the tenant lifecycle state. Leaving active
// cascades deactivation to every membership of the tenant; returning to
// active reactivates only the memberships that the cascade suspended. The
// status change and the cascade commit atomically.
func (s *TenantService) UpdateTenantStatus(ctx context.Context, tenantID string, newStatus domain.TenantStatus) error {
	if !newStatus.Valid() {
		return ErrInvalidTenantStatus
	}

	tenant, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTenantNotFound
		}
		return fmt.Errorf("lookup tenant: %w", err)
	}

	oldStatus := tenant.Status
	if oldStatus == newStatus {
		return nil
	}

	cascaded := 0
	err = s.tx.WithinTransaction(ctx, func(repos port.TxRepositories) error {
		if err := repos.Tenants().UpdateStatus(ctx, tenantID, newStatus); err != nil {
			return fmt.Errorf("update tenant status: %w", err)
		}

		switch {
		case oldStatus == domain.TenantStatusActive && newStatus != domain.TenantStatusActive:
			n, err := repos.Memberships().CascadeActivity(ctx, tenantID, false)
			if err != nil {
				return fmt.Errorf("cascade membership deactivation: %w", err)
			}
			cascaded = n
		case oldStatus != domain.TenantStatusActive && newStatus == domain.TenantStatusActive:
			n, err := repos.Memberships().CascadeActivity(ctx, tenantID, true)
			if err != nil {
				return fmt.Errorf("cascade membership reactivation: %w", err)
			}
			cascaded = n
		}

		return nil
	})
	if err != nil {
		return err
	}

	if s.publisher != nil {
		_ = s.publisher.PublishTenantStatusChanged(ctx, domain.TenantStatusChangedEvent{
			EventID:             uuid.NewString(),
			TenantID:            tenantID,
			OldStatus:           string(oldStatus),
			NewStatus:           string(newStatus),
			MembershipsCascaded: cascaded,
			ChangedAt:           time.Now().UTC(),
		})
	}

	return nil
}

// SoftDeleteTenant tombstones the tenant and deactivates its memberships.
func (s *TenantService) SoftDeleteTenant(ctx context.Context, tenantID string) error {
	if _, err := s.tenants.GetByID(ctx, tenantID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTenantNotFound
		}
		return fmt.Errorf("lookup tenant: %w", err)
	}

	deletedAt := time.Now().UTC()
	return s.tx.WithinTransaction(ctx, func(repos port.TxRepositories) error {
		if err := repos.Tenants().SoftDelete(ctx, tenantID, deletedAt); err != nil {
			return fmt.Errorf("soft delete tenant: %w", err)
		}
		if _, err := repos.Memberships().CascadeActivity(ctx, tenantID, false); err != nil {
			return fmt.Errorf("cascade membership deactivation: %w", err)
		}
		return nil
	})
}

// PermanentDeleteTenant removes the tenant row; the storage cascade deletes
// every tenant-scoped child.
func (s *TenantService) PermanentDeleteTenant(ctx context.Context, tenantID string) error {
	if err := s.tenants.Delete(ctx, tenantID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTenantNotFound
		}
		return fmt.Errorf("delete tenant: %w", err)
	}
	return nil
}

// GetTenant fetches one live tenant.
func (s *TenantService) GetTenant(ctx context.Context, tenantID string) (*domain.Tenant, error) {
	tenant, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("lookup tenant: %w", err)
	}
	return tenant, nil
}
