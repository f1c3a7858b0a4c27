package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/arklim/smb-platform-access/internal/core/domain"
)

type membershipFixture struct {
	tenants     *memTenantRepo
	memberships *memMembershipRepo
	publisher   *capturingPublisher
	service     *MembershipService
}

func newMembershipFixture() *membershipFixture {
	tenants := newMemTenantRepo()
	memberships := newMemMembershipRepo()
	publisher := &capturingPublisher{}
	tx := &memTxManager{repos: memTxRepos{tenants: tenants, memberships: memberships}}

	return &membershipFixture{
		tenants:     tenants,
		memberships: memberships,
		publisher:   publisher,
		service:     NewMembershipService(tenants, memberships, tx, publisher),
	}
}

func (f *membershipFixture) addTenant(id string, status domain.TenantStatus) {
	_ = f.tenants.Create(context.Background(), domain.Tenant{
		ID: id, Name: id, Slug: id, Status: status,
	})
}

func TestCreateMembershipDefaultsRole(t *testing.T) {
	f := newMembershipFixture()
	f.addTenant("tenant-1", domain.TenantStatusActive)

	membership, err := f.service.CreateMembership(context.Background(), "user-1", "tenant-1", "")
	if err != nil {
		t.Fatalf("CreateMembership: %v", err)
	}
	if membership.Role != domain.RoleKeyMember {
		t.Errorf("role = %q, want member", membership.Role)
	}
	if !membership.IsActive {
		t.Error("new membership should be active")
	}
	if membership.IsPrimary {
		t.Error("new membership must not be primary by default")
	}
}

func TestCreateMembershipTrialTenantAllowed(t *testing.T) {
	f := newMembershipFixture()
	f.addTenant("tenant-1", domain.TenantStatusTrial)

	if _, err := f.service.CreateMembership(context.Background(), "user-1", "tenant-1", "viewer"); err != nil {
		t.Fatalf("CreateMembership: %v", err)
	}
}

func TestCreateMembershipSuspendedTenantRejected(t *testing.T) {
	f := newMembershipFixture()
	f.addTenant("tenant-1", domain.TenantStatusSuspended)

	_, err := f.service.CreateMembership(context.Background(), "user-1", "tenant-1", "")
	if !errors.Is(err, ErrTenantNotActive) {
		t.Fatalf("err = %v, want ErrTenantNotActive", err)
	}
}

func TestCreateMembershipDuplicate(t *testing.T) {
	f := newMembershipFixture()
	f.addTenant("tenant-1", domain.TenantStatusActive)

	if _, err := f.service.CreateMembership(context.Background(), "user-1", "tenant-1", ""); err != nil {
		t.Fatalf("CreateMembership: %v", err)
	}
	_, err := f.service.CreateMembership(context.Background(), "user-1", "tenant-1", "")
	if !errors.Is(err, ErrMembershipExists) {
		t.Fatalf("err = %v, want ErrMembershipExists", err)
	}
}

func TestSetPrimaryTenantKeepsSinglePrimary(t *testing.T) {
	f := newMembershipFixture()
	f.addTenant("tenant-1", domain.TenantStatusActive)
	f.addTenant("tenant-2", domain.TenantStatusActive)

	if _, err := f.service.CreateMembership(context.Background(), "user-1", "tenant-1", ""); err != nil {
		t.Fatalf("CreateMembership tenant-1: %v", err)
	}
	if _, err := f.service.CreateMembership(context.Background(), "user-1", "tenant-2", ""); err != nil {
		t.Fatalf("CreateMembership tenant-2: %v", err)
	}

	if err := f.service.SetPrimaryTenant(context.Background(), "user-1", "tenant-1"); err != nil {
		t.Fatalf("SetPrimaryTenant tenant-1: %v", err)
	}
	if err := f.service.SetPrimaryTenant(context.Background(), "user-1", "tenant-2"); err != nil {
		t.Fatalf("SetPrimaryTenant tenant-2: %v", err)
	}

	memberships, _ := f.memberships.ListByUser(context.Background(), "user-1", false)
	primaries := 0
	for _, m := range memberships {
		if m.IsPrimary {
			primaries++
			if m.TenantID != "tenant-2" {
				t.Errorf("primary on %s, want tenant-2", m.TenantID)
			}
		}
	}
	if primaries != 1 {
		t.Fatalf("user has %d primary memberships, want 1", primaries)
	}

	if len(f.publisher.primaryChanged) != 2 {
		t.Errorf("published %d primary changed events, want 2", len(f.publisher.primaryChanged))
	}
}

func TestSetPrimaryTenantRequiresActiveTenant(t *testing.T) {
	f := newMembershipFixture()
	f.addTenant("tenant-1", domain.TenantStatusSuspended)
	_ = f.memberships.Create(context.Background(), domain.Membership{
		ID: "m-1", TenantID: "tenant-1", UserID: "user-1", IsActive: true,
	})

	err := f.service.SetPrimaryTenant(context.Background(), "user-1", "tenant-1")
	if !errors.Is(err, ErrTenantNotActive) {
		t.Fatalf("err = %v, want ErrTenantNotActive", err)
	}
}

func TestSetPrimaryTenantRequiresActiveMembership(t *testing.T) {
	f := newMembershipFixture()
	f.addTenant("tenant-1", domain.TenantStatusActive)
	_ = f.memberships.Create(context.Background(), domain.Membership{
		ID: "m-1", TenantID: "tenant-1", UserID: "user-1", IsActive: false,
	})

	err := f.service.SetPrimaryTenant(context.Background(), "user-1", "tenant-1")
	if !errors.Is(err, ErrMembershipInactive) {
		t.Fatalf("err = %v, want ErrMembershipInactive", err)
	}
}

func TestSetPrimaryTenantUnknownMembership(t *testing.T) {
	f := newMembershipFixture()
	f.addTenant("tenant-1", domain.TenantStatusActive)

	err := f.service.SetPrimaryTenant(context.Background(), "user-1", "tenant-1")
	if !errors.Is(err, ErrMembershipNotFound) {
		t.Fatalf("err = %v, want ErrMembershipNotFound", err)
	}
}

func TestDeactivateMembershipClearsPrimary(t *testing.T) {
	f := newMembershipFixture()
	f.addTenant("tenant-1", domain.TenantStatusActive)
	_ = f.memberships.Create(context.Background(), domain.Membership{
		ID: "m-1", TenantID: "tenant-1", UserID: "user-1", IsActive: true, IsPrimary: true,
	})

	if err := f.service.DeactivateMembership(context.Background(), "user-1", "tenant-1"); err != nil {
		t.Fatalf("DeactivateMembership: %v", err)
	}

	m, _ := f.memberships.GetByUserAndTenant(context.Background(), "user-1", "tenant-1")
	if m.IsActive {
		t.Error("membership still active")
	}
	if m.IsPrimary {
		t.Error("inactive membership kept primary flag")
	}
	if m.DeactivatedByCascade {
		t.Error("admin deactivation must not set the cascade flag")
	}
}

func TestActivateMembership(t *testing.T) {
	f := newMembershipFixture()
	f.addTenant("tenant-1", domain.TenantStatusActive)
	_ = f.memberships.Create(context.Background(), domain.Membership{
		ID: "m-1", TenantID: "tenant-1", UserID: "user-1", IsActive: false, DeactivatedByCascade: true,
	})

	if err := f.service.ActivateMembership(context.Background(), "user-1", "tenant-1"); err != nil {
		t.Fatalf("ActivateMembership: %v", err)
	}

	m, _ := f.memberships.GetByUserAndTenant(context.Background(), "user-1", "tenant-1")
	if !m.IsActive {
		t.Error("membership not active")
	}
	if m.DeactivatedByCascade {
		t.Error("cascade flag not cleared")
	}
}

func TestUpdateMembershipRole(t *testing.T) {
	f := newMembershipFixture()
	f.addTenant("tenant-1", domain.TenantStatusActive)
	_ = f.memberships.Create(context.Background(), domain.Membership{
		ID: "m-1", TenantID: "tenant-1", UserID: "user-1", Role: "member", IsActive: true,
	})

	if err := f.service.UpdateMembershipRole(context.Background(), "user-1", "tenant-1", "admin"); err != nil {
		t.Fatalf("UpdateMembershipRole: %v", err)
	}

	m, _ := f.memberships.GetByUserAndTenant(context.Background(), "user-1", "tenant-1")
	if m.Role != "admin" {
		t.Errorf("role = %q, want admin", m.Role)
	}
}

func TestDeleteMembership(t *testing.T) {
	f := newMembershipFixture()
	f.addTenant("tenant-1", domain.TenantStatusActive)
	_ = f.memberships.Create(context.Background(), domain.Membership{
		ID: "m-1", TenantID: "tenant-1", UserID: "user-1", IsActive: true,
	})

	if err := f.service.DeleteMembership(context.Background(), "user-1", "tenant-1"); err != nil {
		t.Fatalf("DeleteMembership: %v", err)
	}

	if _, err := f.service.GetMembership(context.Background(), "user-1", "tenant-1"); !errors.Is(err, ErrMembershipNotFound) {
		t.Fatalf("err = %v, want ErrMembershipNotFound", err)
	}
}
