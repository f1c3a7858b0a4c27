package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/arklim/smb-platform-access/internal/core/domain"
	"github.com/arklim/smb-platform-access/internal/core/port"
)

const defaultPolicyCachePrefix = "access:policy"

// PolicyCache caches resolved role-permission sets per membership with an
// explicit invalidation path. Entries carry a TTL as a backstop, but every
// mutating role, assignment, override, or grant operation invalidates
// synchronously; the TTL never substitutes for that.
type PolicyCache struct {
	client *red.Client
	prefix string
	ttl    time.Duration
}

// NewPolicyCache constructs the policy cache helper.
func NewPolicyCache(client *red.Client, keyPrefix string, ttl time.Duration) *PolicyCache {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultPolicyCachePrefix
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &PolicyCache{client: client, prefix: prefix, ttl: ttl}
}

type cachedRolePermission struct {
	RoleID       string            `json:"role_id"`
	PermissionID string            `json:"permission_id"`
	Effect       string            `json:"effect"`
	Conditions   domain.Conditions `json:"conditions,omitempty"`
}

type cachedEntry struct {
	TenantID    string                 `json:"tenant_id"`
	Permissions []cachedRolePermission `json:"permissions"`
}

func (c *PolicyCache) membershipKey(membershipID string) string {
	return fmt.Sprintf("%s:m:%s", c.prefix, membershipID)
}

func (c *PolicyCache) tenantIndexKey(tenantID string) string {
	return fmt.Sprintf("%s:t:%s", c.prefix, tenantID)
}

// GetRolePermissions returns the cached role-permission rows and whether the
// cache held an entry.
func (c *PolicyCache) GetRolePermissions(ctx context.Context, membershipID string) ([]domain.RolePermission, bool, error) {
	raw, err := c.client.Get(ctx, c.membershipKey(membershipID)).Result()
	if err != nil {
		if errors.Is(err, red.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get policy entry: %w", err)
	}

	var entry cachedEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return nil, false, fmt.Errorf("decode policy entry: %w", err)
	}

	rolePerms := make([]domain.RolePermission, 0, len(entry.Permissions))
	for _, cached := range entry.Permissions {
		rolePerms = append(rolePerms, domain.RolePermission{
			RoleID:       cached.RoleID,
			PermissionID: cached.PermissionID,
			Effect:       domain.Effect(cached.Effect),
			Conditions:   cached.Conditions,
		})
	}

	return rolePerms, true, nil
}

// SetRolePermissions stores the role-permission rows and registers the
// membership in its tenant's index so tenant-wide invalidation can find it.
func (c *PolicyCache) SetRolePermissions(ctx context.Context, tenantID, membershipID string, rps []domain.RolePermission) error {
	entry := cachedEntry{TenantID: tenantID, Permissions: make([]cachedRolePermission, 0, len(rps))}
	for _, rp := range rps {
		entry.Permissions = append(entry.Permissions, cachedRolePermission{
			RoleID:       rp.RoleID,
			PermissionID: rp.PermissionID,
			Effect:       string(rp.Effect),
			Conditions:   rp.Conditions,
		})
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode policy entry: %w", err)
	}

	key := c.membershipKey(membershipID)
	tenantKey := c.tenantIndexKey(tenantID)

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, key, payload, c.ttl)
	pipe.SAdd(ctx, tenantKey, key)
	pipe.Expire(ctx, tenantKey, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis set policy entry: %w", err)
	}

	return nil
}

// InvalidateMembership drops the cached entry for one membership.
func (c *PolicyCache) InvalidateMembership(ctx context.Context, membershipID string) error {
	if err := c.client.Del(ctx, c.membershipKey(membershipID)).Err(); err != nil {
		return fmt.Errorf("redis invalidate policy entry: %w", err)
	}
	return nil
}

// InvalidateTenant drops cached entries for every indexed membership of the
// tenant along with the index itself.
func (c *PolicyCache) InvalidateTenant(ctx context.Context, tenantID string) error {
	tenantKey := c.tenantIndexKey(tenantID)

	members, err := c.client.SMembers(ctx, tenantKey).Result()
	if err != nil && !errors.Is(err, red.Nil) {
		return fmt.Errorf("redis read tenant policy index: %w", err)
	}

	keys := append(members, tenantKey)
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis invalidate tenant policy entries: %w", err)
	}

	return nil
}

var _ port.PolicyCache = (*PolicyCache)(nil)
