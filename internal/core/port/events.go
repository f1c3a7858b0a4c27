package port

import (
	"context"

	"github.com/arklim/smb-platform-access/internal/core/domain"
)

// EventPublisher publishes domain events to the message bus.
type EventPublisher interface {
	PublishTenantCreated(ctx context.Context, event domain.TenantCreatedEvent) error
	PublishTenantStatusChanged(ctx context.Context, event domain.TenantStatusChangedEvent) error
	PublishPrimaryTenantChanged(ctx context.Context, event domain.PrimaryTenantChangedEvent) error
	PublishRolesAssigned(ctx context.Context, event domain.RolesAssignedEvent) error
	PublishRolesRevoked(ctx context.Context, event domain.RolesRevokedEvent) error
}
