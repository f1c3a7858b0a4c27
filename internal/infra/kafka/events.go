package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arklim/smb-platform-access/internal/core/domain"
	"github.com/arklim/smb-platform-access/internal/core/port"
	"github.com/arklim/smb-platform-access/internal/infra/config"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

var _ port.EventPublisher = (*EventPublisher)(nil)

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	TenantID  string           `json:"tenant_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, tenantID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		TenantID:  tenantID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Key:   sarama.StringEncoder(tenantID),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishTenantCreated publishes access.tenant.created events.
func (p *EventPublisher) PublishTenantCreated(ctx context.Context, event domain.TenantCreatedEvent) error {
	payload := struct {
		TenantID    string         `json:"tenant_id"`
		Slug        string         `json:"slug"`
		Status      string         `json:"status"`
		OwnerUserID string         `json:"owner_user_id"`
		CreatedAt   time.Time      `json:"created_at"`
		Metadata    map[string]any `json:"metadata,omitempty"`
	}{
		TenantID:    event.TenantID,
		Slug:        event.Slug,
		Status:      event.Status,
		OwnerUserID: event.OwnerUserID,
		CreatedAt:   event.CreatedAt.UTC(),
		Metadata:    event.Metadata,
	}

	return p.publish(ctx, event.EventID, "access.tenant.created", event.TenantID, event.CreatedAt, payload)
}

// PublishTenantStatusChanged publishes access.tenant.status_changed events.
func (p *EventPublisher) PublishTenantStatusChanged(ctx context.Context, event domain.TenantStatusChangedEvent) error {
	payload := struct {
		TenantID            string         `json:"tenant_id"`
		OldStatus           string         `json:"old_status"`
		NewStatus           string         `json:"new_status"`
		MembershipsCascaded int            `json:"memberships_cascaded"`
		ChangedAt           time.Time      `json:"changed_at"`
		Metadata            map[string]any `json:"metadata,omitempty"`
	}{
		TenantID:            event.TenantID,
		OldStatus:           event.OldStatus,
		NewStatus:           event.NewStatus,
		MembershipsCascaded: event.MembershipsCascaded,
		ChangedAt:           event.ChangedAt.UTC(),
		Metadata:            event.Metadata,
	}

	return p.publish(ctx, event.EventID, "access.tenant.status_changed", event.TenantID, event.ChangedAt, payload)
}

// PublishPrimaryTenantChanged publishes access.membership.primary_changed events.
func (p *EventPublisher) PublishPrimaryTenantChanged(ctx context.Context, event domain.PrimaryTenantChangedEvent) error {
	payload := struct {
		UserID    string         `json:"user_id"`
		TenantID  string         `json:"tenant_id"`
		ChangedAt time.Time      `json:"changed_at"`
		Metadata  map[string]any `json:"metadata,omitempty"`
	}{
		UserID:    event.UserID,
		TenantID:  event.TenantID,
		ChangedAt: event.ChangedAt.UTC(),
		Metadata:  event.Metadata,
	}

	return p.publish(ctx, event.EventID, "access.membership.primary_changed", event.TenantID, event.ChangedAt, payload)
}

type roleChangePayload struct {
	RoleID  string `json:"role_id"`
	RoleKey string `json:"role_key"`
}

func roleChanges(changes []domain.RoleChange) []roleChangePayload {
	if len(changes) == 0 {
		return nil
	}
	out := make([]roleChangePayload, 0, len(changes))
	for _, c := range changes {
		out = append(out, roleChangePayload{RoleID: c.RoleID, RoleKey: c.RoleKey})
	}
	return out
}

// PublishRolesAssigned publishes access.member.roles.assigned events.
func (p *EventPublisher) PublishRolesAssigned(ctx context.Context, event domain.RolesAssignedEvent) error {
	payload := struct {
		TenantID     string              `json:"tenant_id"`
		MembershipID string              `json:"membership_id"`
		RolesAdded   []roleChangePayload `json:"roles_added"`
		AssignedBy   string              `json:"assigned_by,omitempty"`
		AssignedAt   time.Time           `json:"assigned_at"`
		Metadata     map[string]any      `json:"metadata,omitempty"`
	}{
		TenantID:     event.TenantID,
		MembershipID: event.MembershipID,
		RolesAdded:   roleChanges(event.RolesAdded),
		AssignedBy:   event.AssignedBy,
		AssignedAt:   event.AssignedAt.UTC(),
		Metadata:     event.Metadata,
	}

	return p.publish(ctx, event.EventID, "access.member.roles.assigned", event.TenantID, event.AssignedAt, payload)
}

// PublishRolesRevoked publishes access.member.roles.revoked events.
func (p *EventPublisher) PublishRolesRevoked(ctx context.Context, event domain.RolesRevokedEvent) error {
	payload := struct {
		TenantID     string              `json:"tenant_id"`
		MembershipID string              `json:"membership_id"`
		RolesRemoved []roleChangePayload `json:"roles_removed"`
		RevokedAt    time.Time           `json:"revoked_at"`
		Metadata     map[string]any      `json:"metadata,omitempty"`
	}{
		TenantID:     event.TenantID,
		MembershipID: event.MembershipID,
		RolesRemoved: roleChanges(event.RolesRemoved),
		RevokedAt:    event.RevokedAt.UTC(),
		Metadata:     event.Metadata,
	}

	return p.publish(ctx, event.EventID, "access.member.roles.revoked", event.TenantID, event.RevokedAt, payload)
}
