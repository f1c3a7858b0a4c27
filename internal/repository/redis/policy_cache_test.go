package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	red "github.com/redis/go-redis/v9"

	"github.com/arklim/smb-platform-access/internal/core/domain"
)

func newTestRedis(t *testing.T) (*red.Client, *miniredis.Miniredis) {
	t.Helper()

	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := red.NewClient(&red.Options{Addr: server.Addr()})

	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})

	return client, server
}

func samplePermissions() []domain.RolePermission {
	return []domain.RolePermission{
		{
			RoleID:       "role-1",
			PermissionID: "perm-1",
			Effect:       domain.EffectAllow,
			Conditions:   domain.Conditions{"equals": map[string]any{"region": "eu"}},
		},
		{
			RoleID:       "role-2",
			PermissionID: "perm-1",
			Effect:       domain.EffectDeny,
		},
	}
}

func TestPolicyCache_SetAndGet(t *testing.T) {
	client, server := newTestRedis(t)
	cache := NewPolicyCache(client, "access:policy", 5*time.Minute)

	ctx := context.Background()

	if err := cache.SetRolePermissions(ctx, "tenant-1", "member-1", samplePermissions()); err != nil {
		t.Fatalf("SetRolePermissions returned error: %v", err)
	}

	got, hit, err := cache.GetRolePermissions(ctx, "member-1")
	if err != nil {
		t.Fatalf("GetRolePermissions returned error: %v", err)
	}
	if !hit {
		t.Fatal("expected cache hit")
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 cached rows, got %d", len(got))
	}
	if got[0].Effect != domain.EffectAllow || got[1].Effect != domain.EffectDeny {
		t.Fatalf("effects did not round-trip: %+v", got)
	}

	conditions, ok := got[0].Conditions["equals"].(map[string]any)
	if !ok {
		t.Fatalf("conditions did not round-trip: %+v", got[0].Conditions)
	}
	if conditions["region"] != "eu" {
		t.Fatalf("unexpected condition value: %v", conditions["region"])
	}

	remaining := server.TTL("access:policy:m:member-1")
	if remaining <= 0 || remaining > 5*time.Minute {
		t.Fatalf("expected ttl within (0, 5m], got %v", remaining)
	}
}

func TestPolicyCache_GetMiss(t *testing.T) {
	client, _ := newTestRedis(t)
	cache := NewPolicyCache(client, "access:policy", time.Minute)

	got, hit, err := cache.GetRolePermissions(context.Background(), "member-missing")
	if err != nil {
		t.Fatalf("GetRolePermissions returned error: %v", err)
	}
	if hit {
		t.Fatal("expected cache miss")
	}
	if got != nil {
		t.Fatalf("expected nil rows on miss, got %+v", got)
	}
}

func TestPolicyCache_EmptySetIsDistinctFromMiss(t *testing.T) {
	client, _ := newTestRedis(t)
	cache := NewPolicyCache(client, "access:policy", time.Minute)

	ctx := context.Background()

	if err := cache.SetRolePermissions(ctx, "tenant-1", "member-1", nil); err != nil {
		t.Fatalf("SetRolePermissions returned error: %v", err)
	}

	got, hit, err := cache.GetRolePermissions(ctx, "member-1")
	if err != nil {
		t.Fatalf("GetRolePermissions returned error: %v", err)
	}
	if !hit {
		t.Fatal("empty cached set should still count as a hit")
	}
	if len(got) != 0 {
		t.Fatalf("expected 0 rows, got %d", len(got))
	}
}

func TestPolicyCache_InvalidateMembership(t *testing.T) {
	client, _ := newTestRedis(t)
	cache := NewPolicyCache(client, "access:policy", time.Minute)

	ctx := context.Background()

	if err := cache.SetRolePermissions(ctx, "tenant-1", "member-1", samplePermissions()); err != nil {
		t.Fatalf("SetRolePermissions returned error: %v", err)
	}
	if err := cache.InvalidateMembership(ctx, "member-1"); err != nil {
		t.Fatalf("InvalidateMembership returned error: %v", err)
	}

	_, hit, err := cache.GetRolePermissions(ctx, "member-1")
	if err != nil {
		t.Fatalf("GetRolePermissions returned error: %v", err)
	}
	if hit {
		t.Fatal("expected miss after membership invalidation")
	}
}

func TestPolicyCache_InvalidateTenantDropsAllMemberships(t *testing.T) {
	client, _ := newTestRedis(t)
	cache := NewPolicyCache(client, "access:policy", time.Minute)

	ctx := context.Background()

	for _, membershipID := range []string{"member-1", "member-2"} {
		if err := cache.SetRolePermissions(ctx, "tenant-1", membershipID, samplePermissions()); err != nil {
			t.Fatalf("SetRolePermissions(%s) returned error: %v", membershipID, err)
		}
	}
	if err := cache.SetRolePermissions(ctx, "tenant-2", "member-3", samplePermissions()); err != nil {
		t.Fatalf("SetRolePermissions(member-3) returned error: %v", err)
	}

	if err := cache.InvalidateTenant(ctx, "tenant-1"); err != nil {
		t.Fatalf("InvalidateTenant returned error: %v", err)
	}

	for _, membershipID := range []string{"member-1", "member-2"} {
		if _, hit, err := cache.GetRolePermissions(ctx, membershipID); err != nil {
			t.Fatalf("GetRolePermissions(%s) returned error: %v", membershipID, err)
		} else if hit {
			t.Fatalf("expected miss for %s after tenant invalidation", membershipID)
		}
	}

	// The other tenant's entry is untouched.
	if _, hit, err := cache.GetRolePermissions(ctx, "member-3"); err != nil {
		t.Fatalf("GetRolePermissions(member-3) returned error: %v", err)
	} else if !hit {
		t.Fatal("tenant invalidation dropped an entry of another tenant")
	}
}
