package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/arklim/smb-platform-access/internal/core/domain"
	"github.com/arklim/smb-platform-access/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for development environments.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, tenantID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", eventType),
		zap.String("tenant_id", tenantID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishTenantCreated logs access.tenant.created events.
func (p *StubPublisher) PublishTenantCreated(_ context.Context, event domain.TenantCreatedEvent) error {
	payload := map[string]any{
		"tenant_id":     event.TenantID,
		"slug":          event.Slug,
		"status":        event.Status,
		"owner_user_id": event.OwnerUserID,
		"created_at":    event.CreatedAt,
		"metadata":      event.Metadata,
	}
	p.logEvent("access.tenant.created", event.TenantID, event.CreatedAt, payload)
	return nil
}

// PublishTenantStatusChanged logs access.tenant.status_changed events.
func (p *StubPublisher) PublishTenantStatusChanged(_ context.Context, event domain.TenantStatusChangedEvent) error {
	payload := map[string]any{
		"tenant_id":            event.TenantID,
		"old_status":           event.OldStatus,
		"new_status":           event.NewStatus,
		"memberships_cascaded": event.MembershipsCascaded,
		"changed_at":           event.ChangedAt,
		"metadata":             event.Metadata,
	}
	p.logEvent("access.tenant.status_changed", event.TenantID, event.ChangedAt, payload)
	return nil
}

// PublishPrimaryTenantChanged logs access.membership.primary_changed events.
func (p *StubPublisher) PublishPrimaryTenantChanged(_ context.Context, event domain.PrimaryTenantChangedEvent) error {
	payload := map[string]any{
		"user_id":    event.UserID,
		"tenant_id":  event.TenantID,
		"changed_at": event.ChangedAt,
		"metadata":   event.Metadata,
	}
	p.logEvent("access.membership.primary_changed", event.TenantID, event.ChangedAt, payload)
	return nil
}

// PublishRolesAssigned logs access.member.roles.assigned events.
func (p *StubPublisher) PublishRolesAssigned(_ context.Context, event domain.RolesAssignedEvent) error {
	payload := map[string]any{
		"tenant_id":     event.TenantID,
		"membership_id": event.MembershipID,
		"roles_added":   event.RolesAdded,
		"assigned_by":   event.AssignedBy,
		"assigned_at":   event.AssignedAt,
		"metadata":      event.Metadata,
	}
	p.logEvent("access.member.roles.assigned", event.TenantID, event.AssignedAt, payload)
	return nil
}

// PublishRolesRevoked logs access.member.roles.revoked events.
func (p *StubPublisher) PublishRolesRevoked(_ context.Context, event domain.RolesRevokedEvent) error {
	payload := map[string]any{
		"tenant_id":     event.TenantID,
		"membership_id": event.MembershipID,
		"roles_removed": event.RolesRemoved,
		"revoked_at":    event.RevokedAt,
		"metadata":      event.Metadata,
	}
	p.logEvent("access.member.roles.revoked", event.TenantID, event.RevokedAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
