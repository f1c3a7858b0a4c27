package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/arklim/smb-platform-access/internal/core/domain"
	"github.com/arklim/smb-platform-access/internal/repository"
)

type memGrantRepo struct {
	grants map[string]*domain.ResourceGrant
}

func newMemGrantRepo() *memGrantRepo {
	return &memGrantRepo{grants: map[string]*domain.ResourceGrant{}}
}

func (r *memGrantRepo) Upsert(_ context.Context, grant domain.ResourceGrant) error {
	copy := grant
	r.grants[grantKey(grant.SubjectID, grant.ResourceType, grant.ResourceID)] = &copy
	return nil
}

func (r *memGrantRepo) Revoke(_ context.Context, _ string, _ domain.GrantSubjectType, subjectID, resourceType, resourceID string, deletedAt time.Time) error {
	grant, ok := r.grants[grantKey(subjectID, resourceType, resourceID)]
	if !ok || grant.DeletedAt != nil {
		return repository.ErrNotFound
	}
	grant.DeletedAt = &deletedAt
	return nil
}

func (r *memGrantRepo) Get(_ context.Context, _ string, _ domain.GrantSubjectType, subjectID, resourceType, resourceID string) (*domain.ResourceGrant, error) {
	grant, ok := r.grants[grantKey(subjectID, resourceType, resourceID)]
	if !ok || grant.DeletedAt != nil {
		return nil, repository.ErrNotFound
	}
	copy := *grant
	return &copy, nil
}

func (r *memGrantRepo) ListBySubject(_ context.Context, _ string, _ domain.GrantSubjectType, subjectID string) ([]domain.ResourceGrant, error) {
	var out []domain.ResourceGrant
	for _, grant := range r.grants {
		if grant.SubjectID == subjectID && grant.DeletedAt == nil {
			out = append(out, *grant)
		}
	}
	return out, nil
}

//

type grantFixture struct {
	memberships *memMembershipRepo
	grants      *memGrantRepo
	cache       *recordingCache
	service     *GrantService
}

func newGrantFixture() *grantFixture {
	f := &grantFixture{
		memberships: newMemMembershipRepo(),
		grants:      newMemGrantRepo(),
		cache:       &recordingCache{},
	}
	f.service = NewGrantService(f.memberships, f.grants, f.cache)

	_ = f.memberships.Create(context.Background(), domain.Membership{
		ID: "member-1", TenantID: "tenant-1", UserID: "user-1", IsActive: true,
	})
	return f
}

func TestGrantUpsertsAndInvalidates(t *testing.T) {
	f := newGrantFixture()

	grant, err := f.service.Grant(context.Background(), "tenant-1", "member-1", "invoice", "inv-42",
		domain.AccessLevelWrite, nil, "admin-user")
	if err != nil {
		t.Fatalf("Grant: %v", err)
	}
	if grant.SubjectType != domain.GrantSubjectMembership {
		t.Errorf("subject type = %s, want membership", grant.SubjectType)
	}
	if grant.CreatedByUserID == nil || *grant.CreatedByUserID != "admin-user" {
		t.Error("creator not recorded")
	}

	stored, err := f.grants.Get(context.Background(), "tenant-1", domain.GrantSubjectMembership, "member-1", "invoice", "inv-42")
	if err != nil {
		t.Fatalf("stored grant missing: %v", err)
	}
	if stored.AccessLevel != domain.AccessLevelWrite {
		t.Errorf("level = %s, want write", stored.AccessLevel)
	}
	if len(f.cache.invalidatedMemberships) != 1 {
		t.Errorf("invalidated %d memberships, want 1", len(f.cache.invalidatedMemberships))
	}
}

func TestGrantReplacesLevel(t *testing.T) {
	f := newGrantFixture()

	if _, err := f.service.Grant(context.Background(), "tenant-1", "member-1", "invoice", "inv-42",
		domain.AccessLevelRead, nil, ""); err != nil {
		t.Fatalf("Grant read: %v", err)
	}
	if _, err := f.service.Grant(context.Background(), "tenant-1", "member-1", "invoice", "inv-42",
		domain.AccessLevelFull, nil, ""); err != nil {
		t.Fatalf("Grant full: %v", err)
	}

	grants, err := f.service.ListGrants(context.Background(), "tenant-1", "member-1")
	if err != nil {
		t.Fatalf("ListGrants: %v", err)
	}
	if len(grants) != 1 {
		t.Fatalf("grants = %d, want 1", len(grants))
	}
	if grants[0].AccessLevel != domain.AccessLevelFull {
		t.Errorf("level = %s, want full", grants[0].AccessLevel)
	}
}

func TestGrantInvalidLevel(t *testing.T) {
	f := newGrantFixture()

	_, err := f.service.Grant(context.Background(), "tenant-1", "member-1", "invoice", "inv-42",
		domain.AccessLevel("owner"), nil, "")
	if !errors.Is(err, ErrInvalidAccessLevel) {
		t.Fatalf("err = %v, want ErrInvalidAccessLevel", err)
	}
}

func TestGrantTenantMismatch(t *testing.T) {
	f := newGrantFixture()

	_, err := f.service.Grant(context.Background(), "tenant-2", "member-1", "invoice", "inv-42",
		domain.AccessLevelRead, nil, "")
	if !errors.Is(err, ErrTenantMismatch) {
		t.Fatalf("err = %v, want ErrTenantMismatch", err)
	}
}

func TestGrantUnknownMembership(t *testing.T) {
	f := newGrantFixture()

	_, err := f.service.Grant(context.Background(), "tenant-1", "member-missing", "invoice", "inv-42",
		domain.AccessLevelRead, nil, "")
	if !errors.Is(err, ErrMembershipNotFound) {
		t.Fatalf("err = %v, want ErrMembershipNotFound", err)
	}
}

func TestRevokeGrant(t *testing.T) {
	f := newGrantFixture()

	if _, err := f.service.Grant(context.Background(), "tenant-1", "member-1", "invoice", "inv-42",
		domain.AccessLevelRead, nil, ""); err != nil {
		t.Fatalf("Grant: %v", err)
	}
	if err := f.service.Revoke(context.Background(), "tenant-1", "member-1", "invoice", "inv-42"); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	grants, err := f.service.ListGrants(context.Background(), "tenant-1", "member-1")
	if err != nil {
		t.Fatalf("ListGrants: %v", err)
	}
	if len(grants) != 0 {
		t.Errorf("grants = %d, want 0", len(grants))
	}
}

func TestRevokeGrantSurfacesCacheInvalidationFailure(t *testing.T) {
	f := newGrantFixture()

	if _, err := f.service.Grant(context.Background(), "tenant-1", "member-1", "invoice", "inv-42",
		domain.AccessLevelRead, nil, ""); err != nil {
		t.Fatalf("Grant: %v", err)
	}

	cacheDown := errors.New("cache unavailable")
	f.cache.failWith = cacheDown

	err := f.service.Revoke(context.Background(), "tenant-1", "member-1", "invoice", "inv-42")
	if !errors.Is(err, cacheDown) {
		t.Fatalf("err = %v, want cache failure surfaced", err)
	}
}

func TestRevokeGrantMissing(t *testing.T) {
	f := newGrantFixture()

	err := f.service.Revoke(context.Background(), "tenant-1", "member-1", "invoice", "inv-42")
	if !errors.Is(err, ErrGrantNotFound) {
		t.Fatalf("err = %v, want ErrGrantNotFound", err)
	}
}
