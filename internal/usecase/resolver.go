package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/arklim/smb-platform-access/internal/core/domain"
	"github.com/arklim/smb-platform-access/internal/core/port"
	"github.com/arklim/smb-platform-access/internal/repository"
)

// AccessPolicy maps a permission's action to the minimum resource grant
// level that satisfies it. The mapping is configuration, not code: callers
// may supply their own table. Actions absent from the table require full
// access.
type AccessPolicy struct {
	minLevels map[string]domain.AccessLevel
}

// DefaultAccessPolicy returns the standard action-class table: read-class
// actions require read, mutating actions require write, administrative
// actions require admin.
func DefaultAccessPolicy() *AccessPolicy {
	return NewAccessPolicy(map[string]domain.AccessLevel{
		"read":   domain.AccessLevelRead,
		"list":   domain.AccessLevelRead,
		"view":   domain.AccessLevelRead,
		"export": domain.AccessLevelRead,
		"create": domain.AccessLevelWrite,
		"update": domain.AccessLevelWrite,
		"write":  domain.AccessLevelWrite,
		"delete": domain.AccessLevelWrite,
		"import": domain.AccessLevelWrite,
		"manage": domain.AccessLevelAdmin,
		"admin":  domain.AccessLevelAdmin,
		"invite": domain.AccessLevelAdmin,
	})
}

// NewAccessPolicy builds a policy from an explicit action to minimum-level
// table.
func NewAccessPolicy(minLevels map[string]domain.AccessLevel) *AccessPolicy {
	table := make(map[string]domain.AccessLevel, len(minLevels))
	for action, level := range minLevels {
		table[strings.ToLower(strings.TrimSpace(action))] = level
	}
	return &AccessPolicy{minLevels: table}
}

// MinimumLevel returns the access level required for the action. Unknown
// actions fail closed and require full access.
func (p *AccessPolicy) MinimumLevel(action string) domain.AccessLevel {
	if level, ok := p.minLevels[strings.ToLower(strings.TrimSpace(action))]; ok {
		return level
	}
	return domain.AccessLevelFull
}

// PolicyResolver answers "can membership M do permission P, optionally on
// resource R". Evaluation is read only and safe for concurrent use; a
// decision of deny is a normal outcome, never an error.
type PolicyResolver struct {
	tenants     port.TenantRepository
	permissions port.PermissionRepository
	roles       port.RoleRepository
	assignments port.AssignmentRepository
	overrides   port.OverrideRepository
	grants      port.GrantRepository
	cache       port.PolicyCache
	conditions  *ConditionRegistry
	access      *AccessPolicy
}

// NewPolicyResolver constructs a PolicyResolver. The cache may be nil, in
// which case role permissions are read from the store on every call.
func NewPolicyResolver(
	tenants port.TenantRepository,
	permissions port.PermissionRepository,
	roles port.RoleRepository,
	assignments port.AssignmentRepository,
	overrides port.OverrideRepository,
	grants port.GrantRepository,
	cache port.PolicyCache,
	conditions *ConditionRegistry,
	access *AccessPolicy,
) *PolicyResolver {
	if conditions == nil {
		conditions = NewConditionRegistry()
	}
	if access == nil {
		access = DefaultAccessPolicy()
	}
	return &PolicyResolver{
		tenants:     tenants,
		permissions: permissions,
		roles:       roles,
		assignments: assignments,
		overrides:   overrides,
		grants:      grants,
		cache:       cache,
		conditions:  conditions,
		access:      access,
	}
}

// Evaluate resolves the access decision for the membership and permission
// key, optionally scoped to one resource instance. Precedence, most specific
// first: resource grant, member override, role aggregation (deny wins),
// closed-world deny. Errors are returned only for infrastructure failures;
// callers must treat such an error as deny.
func (r *PolicyResolver) Evaluate(
	ctx context.Context,
	membership domain.Membership,
	permissionKey string,
	resource *domain.ResourceRef,
	evalCtx map[string]any,
) (domain.Decision, error) {
	// Inactive or tombstoned memberships deny before any tier is consulted.
	if !membership.IsActive || !membership.Live() {
		return domain.DecisionDeny, nil
	}

	// Effective activity is re-derived from the tenant row on every call;
	// the membership flag alone is never trusted.
	tenant, err := r.tenants.GetByID(ctx, membership.TenantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.DecisionDeny, nil
		}
		return domain.DecisionDeny, fmt.Errorf("load tenant: %w", err)
	}
	if tenant.Status != domain.TenantStatusActive {
		return domain.DecisionDeny, nil
	}

	permission, err := r.permissions.GetByKey(ctx, strings.TrimSpace(permissionKey))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.DecisionDeny, nil
		}
		return domain.DecisionDeny, fmt.Errorf("load permission: %w", err)
	}
	if !permission.IsActive {
		return domain.DecisionDeny, nil
	}

	// Tier 1: exact-match resource grant. Sufficient access on the concrete
	// instance is the most specific statement and short-circuits to allow.
	if resource != nil && resource.Type != "" && resource.ID != "" {
		grant, err := r.grants.Get(ctx, membership.TenantID, domain.GrantSubjectMembership, membership.ID, resource.Type, resource.ID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return domain.DecisionDeny, fmt.Errorf("load resource grant: %w", err)
		}
		if grant != nil {
			required := r.access.MinimumLevel(permission.Action)
			if grant.AccessLevel.AtLeast(required) && r.conditions.Evaluate(grant.Conditions, evalCtx) {
				return domain.DecisionAllow, nil
			}
		}
	}

	// Tier 2: member override. Whether allow or deny, it is the decision.
	override, err := r.overrides.GetByMembershipAndPermission(ctx, membership.ID, permission.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return domain.DecisionDeny, fmt.Errorf("load member override: %w", err)
	}
	if override != nil && r.conditions.Evaluate(override.Conditions, evalCtx) {
		if override.Effect == domain.EffectAllow {
			return domain.DecisionAllow, nil
		}
		return domain.DecisionDeny, nil
	}

	// Tier 3: role aggregation with deny overriding allow.
	rolePerms, err := r.membershipRolePermissions(ctx, membership.TenantID, membership.ID)
	if err != nil {
		return domain.DecisionDeny, err
	}

	allowed := false
	for _, rp := range rolePerms {
		if rp.PermissionID != permission.ID {
			continue
		}
		if !r.conditions.Evaluate(rp.Conditions, evalCtx) {
			continue
		}
		if rp.Effect == domain.EffectDeny {
			return domain.DecisionDeny, nil
		}
		if rp.Effect == domain.EffectAllow {
			allowed = true
		}
	}
	if allowed {
		return domain.DecisionAllow, nil
	}

	// Tier 4: closed-world default.
	return domain.DecisionDeny, nil
}

// membershipRolePermissions collects the role-permission rows of every role
// actively assigned to the membership, consulting the policy cache when one
// is configured.
func (r *PolicyResolver) membershipRolePermissions(ctx context.Context, tenantID, membershipID string) ([]domain.RolePermission, error) {
	if r.cache != nil {
		if cached, ok, err := r.cache.GetRolePermissions(ctx, membershipID); err == nil && ok {
			return cached, nil
		}
	}

	assignments, err := r.assignments.ListActiveByMembership(ctx, membershipID)
	if err != nil {
		return nil, fmt.Errorf("list role assignments: %w", err)
	}

	var rolePerms []domain.RolePermission
	for _, assignment := range assignments {
		perms, err := r.roles.ListPermissions(ctx, assignment.RoleID)
		if err != nil {
			return nil, fmt.Errorf("list role permissions: %w", err)
		}
		rolePerms = append(rolePerms, perms...)
	}

	if r.cache != nil {
		// Best effort: a failed cache write never fails the evaluation.
		_ = r.cache.SetRolePermissions(ctx, tenantID, membershipID, rolePerms)
	}

	return rolePerms, nil
}
