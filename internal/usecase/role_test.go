package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/arklim/smb-platform-access/internal/core/domain"
	"github.com/arklim/smb-platform-access/internal/repository"
)

type rbacRoleRepo struct {
	roles     map[string]*domain.Role
	rolePerms map[string]map[string]domain.RolePermission
}

func newRbacRoleRepo() *rbacRoleRepo {
	return &rbacRoleRepo{
		roles:     map[string]*domain.Role{},
		rolePerms: map[string]map[string]domain.RolePermission{},
	}
}

func (r *rbacRoleRepo) Create(_ context.Context, role domain.Role) error {
	for _, existing := range r.roles {
		if existing.TenantID == role.TenantID && existing.Key == role.Key && existing.DeletedAt == nil {
			return repository.ErrConflict
		}
	}
	copy := role
	r.roles[role.ID] = &copy
	return nil
}

func (r *rbacRoleRepo) GetByID(_ context.Context, id string) (*domain.Role, error) {
	role, ok := r.roles[id]
	if !ok || role.DeletedAt != nil {
		return nil, repository.ErrNotFound
	}
	copy := *role
	return &copy, nil
}

func (r *rbacRoleRepo) GetByTenantAndKey(_ context.Context, tenantID, key string) (*domain.Role, error) {
	for _, role := range r.roles {
		if role.TenantID == tenantID && role.Key == key && role.DeletedAt == nil {
			copy := *role
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *rbacRoleRepo) ListByTenant(_ context.Context, tenantID string) ([]domain.Role, error) {
	var out []domain.Role
	for _, role := range r.roles {
		if role.TenantID == tenantID && role.DeletedAt == nil {
			out = append(out, *role)
		}
	}
	return out, nil
}

func (r *rbacRoleRepo) SoftDelete(_ context.Context, id string, deletedAt time.Time) error {
	role, ok := r.roles[id]
	if !ok || role.DeletedAt != nil {
		return repository.ErrNotFound
	}
	role.DeletedAt = &deletedAt
	return nil
}

func (r *rbacRoleRepo) UpsertPermission(_ context.Context, rp domain.RolePermission) error {
	perms, ok := r.rolePerms[rp.RoleID]
	if !ok {
		perms = map[string]domain.RolePermission{}
		r.rolePerms[rp.RoleID] = perms
	}
	perms[rp.PermissionID] = rp
	return nil
}

func (r *rbacRoleRepo) RemovePermission(_ context.Context, roleID, permissionID string) error {
	perms, ok := r.rolePerms[roleID]
	if !ok {
		return repository.ErrNotFound
	}
	if _, ok := perms[permissionID]; !ok {
		return repository.ErrNotFound
	}
	delete(perms, permissionID)
	return nil
}

func (r *rbacRoleRepo) ListPermissions(_ context.Context, roleID string) ([]domain.RolePermission, error) {
	var out []domain.RolePermission
	for _, rp := range r.rolePerms[roleID] {
		out = append(out, rp)
	}
	return out, nil
}

//

type recordingCache struct {
	invalidatedMemberships []string
	invalidatedTenants     []string

	// When set, invalidations fail with this error.
	failWith error
}

func (c *recordingCache) GetRolePermissions(context.Context, string) ([]domain.RolePermission, bool, error) {
	return nil, false, nil
}

func (c *recordingCache) SetRolePermissions(context.Context, string, string, []domain.RolePermission) error {
	return nil
}

func (c *recordingCache) InvalidateMembership(_ context.Context, membershipID string) error {
	if c.failWith != nil {
		return c.failWith
	}
	c.invalidatedMemberships = append(c.invalidatedMemberships, membershipID)
	return nil
}

func (c *recordingCache) InvalidateTenant(_ context.Context, tenantID string) error {
	if c.failWith != nil {
		return c.failWith
	}
	c.invalidatedTenants = append(c.invalidatedTenants, tenantID)
	return nil
}

//

type roleFixture struct {
	roles       *rbacRoleRepo
	permissions *memPermissionRepo
	cache       *recordingCache
	service     *RoleService
}

func newRoleFixture() *roleFixture {
	roles := newRbacRoleRepo()
	permissions := newMemPermissionRepo()
	cache := &recordingCache{}

	return &roleFixture{
		roles:       roles,
		permissions: permissions,
		cache:       cache,
		service:     NewRoleService(roles, permissions, cache),
	}
}

func (f *roleFixture) addPermission(id, key string) {
	f.permissions.permissions[id] = &domain.Permission{ID: id, Key: key, IsActive: true}
}

func TestCreateRoleNormalizesKey(t *testing.T) {
	f := newRoleFixture()

	role, err := f.service.CreateRole(context.Background(), "tenant-1", CreateRoleInput{
		Key:  " Billing-Admin ",
		Name: "Billing Admin",
	})
	if err != nil {
		t.Fatalf("CreateRole: %v", err)
	}
	if role.Key != "billing-admin" {
		t.Errorf("key = %q, want billing-admin", role.Key)
	}
	if role.IsSystem {
		t.Error("custom role marked system")
	}
	if !role.IsActive {
		t.Error("new role should be active")
	}
}

func TestCreateRoleDuplicateKey(t *testing.T) {
	f := newRoleFixture()

	if _, err := f.service.CreateRole(context.Background(), "tenant-1", CreateRoleInput{Key: "auditor", Name: "Auditor"}); err != nil {
		t.Fatalf("CreateRole: %v", err)
	}
	_, err := f.service.CreateRole(context.Background(), "tenant-1", CreateRoleInput{Key: "auditor", Name: "Other"})
	if !errors.Is(err, ErrRoleExists) {
		t.Fatalf("err = %v, want ErrRoleExists", err)
	}
}

func TestCreateRoleSameKeyDifferentTenants(t *testing.T) {
	f := newRoleFixture()

	if _, err := f.service.CreateRole(context.Background(), "tenant-1", CreateRoleInput{Key: "auditor", Name: "Auditor"}); err != nil {
		t.Fatalf("CreateRole tenant-1: %v", err)
	}
	if _, err := f.service.CreateRole(context.Background(), "tenant-2", CreateRoleInput{Key: "auditor", Name: "Auditor"}); err != nil {
		t.Fatalf("CreateRole tenant-2: %v", err)
	}
}

func TestDeleteSystemRoleRejected(t *testing.T) {
	f := newRoleFixture()
	f.roles.roles["role-owner"] = &domain.Role{
		ID: "role-owner", TenantID: "tenant-1", Key: "owner", Name: "Owner", IsSystem: true, IsActive: true,
	}

	err := f.service.DeleteRole(context.Background(), "role-owner")
	if !errors.Is(err, ErrSystemRoleImmutable) {
		t.Fatalf("err = %v, want ErrSystemRoleImmutable", err)
	}
}

func TestDeleteCustomRoleInvalidatesTenant(t *testing.T) {
	f := newRoleFixture()

	role, err := f.service.CreateRole(context.Background(), "tenant-1", CreateRoleInput{Key: "auditor", Name: "Auditor"})
	if err != nil {
		t.Fatalf("CreateRole: %v", err)
	}
	if err := f.service.DeleteRole(context.Background(), role.ID); err != nil {
		t.Fatalf("DeleteRole: %v", err)
	}

	if _, err := f.service.GetRole(context.Background(), role.ID); !errors.Is(err, ErrRoleNotFound) {
		t.Errorf("deleted role still readable: %v", err)
	}
	if len(f.cache.invalidatedTenants) != 1 || f.cache.invalidatedTenants[0] != "tenant-1" {
		t.Errorf("invalidated tenants = %v, want [tenant-1]", f.cache.invalidatedTenants)
	}
}

func TestSetRolePermission(t *testing.T) {
	f := newRoleFixture()
	f.addPermission("perm-1", "invoice.update")

	role, err := f.service.CreateRole(context.Background(), "tenant-1", CreateRoleInput{Key: "auditor", Name: "Auditor"})
	if err != nil {
		t.Fatalf("CreateRole: %v", err)
	}

	conditions := domain.Conditions{"equals": map[string]any{"department": "finance"}}
	if err := f.service.SetRolePermission(context.Background(), role.ID, "perm-1", domain.EffectDeny, conditions); err != nil {
		t.Fatalf("SetRolePermission: %v", err)
	}

	perms, err := f.service.ListRolePermissions(context.Background(), role.ID)
	if err != nil {
		t.Fatalf("ListRolePermissions: %v", err)
	}
	if len(perms) != 1 {
		t.Fatalf("len(perms) = %d, want 1", len(perms))
	}
	if perms[0].Effect != domain.EffectDeny {
		t.Errorf("effect = %s, want deny", perms[0].Effect)
	}
	if len(f.cache.invalidatedTenants) == 0 {
		t.Error("mapping change did not invalidate the tenant")
	}
}

func TestSetRolePermissionSurfacesCacheInvalidationFailure(t *testing.T) {
	f := newRoleFixture()
	f.addPermission("perm-1", "invoice.update")

	role, err := f.service.CreateRole(context.Background(), "tenant-1", CreateRoleInput{Key: "auditor", Name: "Auditor"})
	if err != nil {
		t.Fatalf("CreateRole: %v", err)
	}

	cacheDown := errors.New("cache unavailable")
	f.cache.failWith = cacheDown

	err = f.service.SetRolePermission(context.Background(), role.ID, "perm-1", domain.EffectDeny, nil)
	if !errors.Is(err, cacheDown) {
		t.Fatalf("err = %v, want cache failure surfaced", err)
	}
}

func TestSetRolePermissionInvalidEffect(t *testing.T) {
	f := newRoleFixture()

	err := f.service.SetRolePermission(context.Background(), "role-1", "perm-1", domain.Effect("maybe"), nil)
	if !errors.Is(err, ErrInvalidEffect) {
		t.Fatalf("err = %v, want ErrInvalidEffect", err)
	}
}

func TestSetRolePermissionUnknownPermission(t *testing.T) {
	f := newRoleFixture()

	role, err := f.service.CreateRole(context.Background(), "tenant-1", CreateRoleInput{Key: "auditor", Name: "Auditor"})
	if err != nil {
		t.Fatalf("CreateRole: %v", err)
	}

	err = f.service.SetRolePermission(context.Background(), role.ID, "perm-missing", domain.EffectAllow, nil)
	if !errors.Is(err, ErrPermissionNotFound) {
		t.Fatalf("err = %v, want ErrPermissionNotFound", err)
	}
}

func TestClearRolePermission(t *testing.T) {
	f := newRoleFixture()
	f.addPermission("perm-1", "invoice.update")

	role, err := f.service.CreateRole(context.Background(), "tenant-1", CreateRoleInput{Key: "auditor", Name: "Auditor"})
	if err != nil {
		t.Fatalf("CreateRole: %v", err)
	}
	if err := f.service.SetRolePermission(context.Background(), role.ID, "perm-1", domain.EffectAllow, nil); err != nil {
		t.Fatalf("SetRolePermission: %v", err)
	}

	if err := f.service.ClearRolePermission(context.Background(), role.ID, "perm-1"); err != nil {
		t.Fatalf("ClearRolePermission: %v", err)
	}

	perms, err := f.service.ListRolePermissions(context.Background(), role.ID)
	if err != nil {
		t.Fatalf("ListRolePermissions: %v", err)
	}
	if len(perms) != 0 {
		t.Errorf("len(perms) = %d, want 0", len(perms))
	}
}
