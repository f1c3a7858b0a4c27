package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/arklim/smb-platform-access/internal/core/domain"
	"github.com/arklim/smb-platform-access/internal/core/port"
	"github.com/arklim/smb-platform-access/internal/repository"
)

type memPermissionRepo struct {
	permissions map[string]*domain.Permission
	lastFilter  port.PermissionFilter
}

func newMemPermissionRepo() *memPermissionRepo {
	return &memPermissionRepo{permissions: map[string]*domain.Permission{}}
}

func (r *memPermissionRepo) Create(_ context.Context, permission domain.Permission) error {
	for _, existing := range r.permissions {
		if existing.Key == permission.Key {
			return repository.ErrConflict
		}
	}
	copy := permission
	r.permissions[permission.ID] = &copy
	return nil
}

func (r *memPermissionRepo) GetByID(_ context.Context, id string) (*domain.Permission, error) {
	permission, ok := r.permissions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *permission
	return &copy, nil
}

func (r *memPermissionRepo) GetByKey(_ context.Context, key string) (*domain.Permission, error) {
	for _, permission := range r.permissions {
		if permission.Key == key {
			copy := *permission
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memPermissionRepo) List(_ context.Context, filter port.PermissionFilter) ([]domain.Permission, error) {
	r.lastFilter = filter
	var out []domain.Permission
	for _, permission := range r.permissions {
		if filter.Resource != "" && permission.Resource != filter.Resource {
			continue
		}
		if filter.ActiveOnly && !permission.IsActive {
			continue
		}
		out = append(out, *permission)
	}
	return out, nil
}

func (r *memPermissionRepo) Count(ctx context.Context, filter port.PermissionFilter) (int, error) {
	permissions, _ := r.List(ctx, filter)
	return len(permissions), nil
}

func (r *memPermissionRepo) SetActive(_ context.Context, id string, active bool) error {
	permission, ok := r.permissions[id]
	if !ok {
		return repository.ErrNotFound
	}
	permission.IsActive = active
	return nil
}

//

func TestRegisterPermissionBuildsKey(t *testing.T) {
	repo := newMemPermissionRepo()
	service := NewCatalogService(repo)

	permission, err := service.RegisterPermission(context.Background(), " Invoice ", "Update", nil)
	if err != nil {
		t.Fatalf("RegisterPermission: %v", err)
	}
	if permission.Key != "invoice.update" {
		t.Errorf("key = %q, want invoice.update", permission.Key)
	}
	if permission.Resource != "invoice" || permission.Action != "update" {
		t.Errorf("resource/action = %q/%q", permission.Resource, permission.Action)
	}
	if !permission.IsActive {
		t.Error("new permission should be active")
	}
}

func TestRegisterPermissionRejectsDots(t *testing.T) {
	service := NewCatalogService(newMemPermissionRepo())

	for _, tc := range [][2]string{
		{"invoice.line", "update"},
		{"invoice", "bulk.update"},
		{"", "update"},
		{"invoice", ""},
	} {
		_, err := service.RegisterPermission(context.Background(), tc[0], tc[1], nil)
		if !errors.Is(err, ErrInvalidPermissionKey) {
			t.Errorf("RegisterPermission(%q, %q) err = %v, want ErrInvalidPermissionKey", tc[0], tc[1], err)
		}
	}
}

func TestRegisterPermissionDuplicate(t *testing.T) {
	repo := newMemPermissionRepo()
	service := NewCatalogService(repo)

	if _, err := service.RegisterPermission(context.Background(), "invoice", "update", nil); err != nil {
		t.Fatalf("RegisterPermission: %v", err)
	}
	_, err := service.RegisterPermission(context.Background(), "invoice", "update", nil)
	if !errors.Is(err, ErrPermissionExists) {
		t.Fatalf("err = %v, want ErrPermissionExists", err)
	}
}

func TestRetirePermission(t *testing.T) {
	repo := newMemPermissionRepo()
	service := NewCatalogService(repo)

	if _, err := service.RegisterPermission(context.Background(), "invoice", "update", nil); err != nil {
		t.Fatalf("RegisterPermission: %v", err)
	}
	if err := service.RetirePermission(context.Background(), "invoice.update"); err != nil {
		t.Fatalf("RetirePermission: %v", err)
	}

	permission, err := service.GetPermissionByKey(context.Background(), "invoice.update")
	if err != nil {
		t.Fatalf("GetPermissionByKey: %v", err)
	}
	if permission.IsActive {
		t.Error("retired permission still active")
	}
}

func TestRetirePermissionUnknown(t *testing.T) {
	service := NewCatalogService(newMemPermissionRepo())

	err := service.RetirePermission(context.Background(), "invoice.update")
	if !errors.Is(err, ErrPermissionNotFound) {
		t.Fatalf("err = %v, want ErrPermissionNotFound", err)
	}
}

func TestListPermissionsDefaults(t *testing.T) {
	repo := newMemPermissionRepo()
	service := NewCatalogService(repo)

	if _, err := service.RegisterPermission(context.Background(), "invoice", "read", nil); err != nil {
		t.Fatalf("RegisterPermission: %v", err)
	}

	result, err := service.ListPermissions(context.Background(), port.PermissionFilter{Offset: -3})
	if err != nil {
		t.Fatalf("ListPermissions: %v", err)
	}
	if result.Limit != 50 {
		t.Errorf("limit = %d, want 50", result.Limit)
	}
	if result.Offset != 0 {
		t.Errorf("offset = %d, want 0", result.Offset)
	}
	if result.Total != 1 || len(result.Permissions) != 1 {
		t.Errorf("total = %d, len = %d, want 1/1", result.Total, len(result.Permissions))
	}
	if repo.lastFilter.Limit != 50 {
		t.Errorf("repository saw limit %d, want 50", repo.lastFilter.Limit)
	}
}

func TestListPermissionsFiltersByResource(t *testing.T) {
	repo := newMemPermissionRepo()
	service := NewCatalogService(repo)

	for _, pair := range [][2]string{{"invoice", "read"}, {"invoice", "update"}, {"report", "read"}} {
		if _, err := service.RegisterPermission(context.Background(), pair[0], pair[1], nil); err != nil {
			t.Fatalf("RegisterPermission(%q, %q): %v", pair[0], pair[1], err)
		}
	}

	result, err := service.ListPermissions(context.Background(), port.PermissionFilter{Resource: "invoice"})
	if err != nil {
		t.Fatalf("ListPermissions: %v", err)
	}
	if result.Total != 2 {
		t.Errorf("total = %d, want 2", result.Total)
	}
	for _, p := range result.Permissions {
		if p.Resource != "invoice" {
			t.Errorf("unexpected resource %q in filtered listing", p.Resource)
		}
	}
}
