package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap/zaptest"

	"github.com/arklim/smb-platform-access/internal/core/domain"
	"github.com/arklim/smb-platform-access/internal/infra/config"
)

type fakeAsyncProducer struct {
	input  chan *sarama.ProducerMessage
	errors chan *sarama.ProducerError
}

func newFakeAsyncProducer() *fakeAsyncProducer {
	return &fakeAsyncProducer{
		input:  make(chan *sarama.ProducerMessage, 1),
		errors: make(chan *sarama.ProducerError, 1),
	}
}

func (f *fakeAsyncProducer) AsyncClose() {}

func (f *fakeAsyncProducer) Close() error { return nil }

func (f *fakeAsyncProducer) Input() chan<- *sarama.ProducerMessage { return f.input }

func (f *fakeAsyncProducer) Successes() <-chan *sarama.ProducerMessage { return nil }

func (f *fakeAsyncProducer) Errors() <-chan *sarama.ProducerError { return f.errors }

func (f *fakeAsyncProducer) IsTransactional() bool { return false }

func (f *fakeAsyncProducer) BeginTxn() error { return nil }

func (f *fakeAsyncProducer) CommitTxn() error { return nil }

func (f *fakeAsyncProducer) AbortTxn() error { return nil }

func (f *fakeAsyncProducer) AddOffsetsToTxn(offsets map[string][]*sarama.PartitionOffsetMetadata, groupID string) error {
	return nil
}

func (f *fakeAsyncProducer) AddMessageToTxn(msg *sarama.ConsumerMessage, groupID string, metadata *string) error {
	return nil
}

func (f *fakeAsyncProducer) TxnStatus() sarama.ProducerTxnStatusFlag {
	return sarama.ProducerTxnStatusFlag(0)
}

func newTestPublisher(t *testing.T, asyncProducer *fakeAsyncProducer) *EventPublisher {
	t.Helper()

	producer := &Producer{
		producer: asyncProducer,
		logger:   zaptest.NewLogger(t),
		cfg: config.KafkaSettings{
			TopicPrefix: "access",
		},
		errChan: make(chan error, 1),
		done:    make(chan struct{}),
	}

	return NewEventPublisher(producer, config.AppSettings{
		Name: "smb-platform-access",
		Env:  "test",
	}, zaptest.NewLogger(t))
}

func TestPublishTenantStatusChanged(t *testing.T) {
	asyncProducer := newFakeAsyncProducer()
	publisher := newTestPublisher(t, asyncProducer)

	changedAt := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	event := domain.TenantStatusChangedEvent{
		EventID:             "event-123",
		TenantID:            "tenant-456",
		OldStatus:           "active",
		NewStatus:           "suspended",
		MembershipsCascaded: 7,
		ChangedAt:           changedAt,
		Metadata:            map[string]any{"source": "unit-test"},
	}

	if err := publisher.PublishTenantStatusChanged(context.Background(), event); err != nil {
		t.Fatalf("PublishTenantStatusChanged returned error: %v", err)
	}

	select {
	case msg := <-asyncProducer.input:
		if msg.Topic != "access.tenant.status_changed" {
			t.Fatalf("unexpected topic: %s", msg.Topic)
		}

		key, err := msg.Key.Encode()
		if err != nil {
			t.Fatalf("Key.Encode returned error: %v", err)
		}
		if string(key) != event.TenantID {
			t.Fatalf("unexpected message key: %s", key)
		}

		bytes, err := msg.Value.Encode()
		if err != nil {
			t.Fatalf("Value.Encode returned error: %v", err)
		}

		var envelope map[string]any
		if err := json.Unmarshal(bytes, &envelope); err != nil {
			t.Fatalf("failed to unmarshal envelope: %v", err)
		}

		if got := envelope["event_type"]; got != "access.tenant.status_changed" {
			t.Fatalf("unexpected event_type: %v", got)
		}

		if got := envelope["tenant_id"]; got != event.TenantID {
			t.Fatalf("unexpected tenant_id: %v", got)
		}

		if got := envelope["version"]; got != "1.0" {
			t.Fatalf("unexpected version: %v", got)
		}

		timestamp, ok := envelope["timestamp"].(string)
		if !ok {
			t.Fatalf("timestamp not a string: %T", envelope["timestamp"])
		}
		if timestamp != changedAt.Format(time.RFC3339Nano) {
			t.Fatalf("unexpected timestamp: %s", timestamp)
		}

		payload, ok := envelope["payload"].(map[string]any)
		if !ok {
			t.Fatalf("payload not a map: %T", envelope["payload"])
		}

		if got := payload["old_status"]; got != event.OldStatus {
			t.Fatalf("unexpected old_status: %v", got)
		}

		if got := payload["new_status"]; got != event.NewStatus {
			t.Fatalf("unexpected new_status: %v", got)
		}

		cascaded, ok := payload["memberships_cascaded"].(float64)
		if !ok {
			t.Fatalf("memberships_cascaded not numeric: %T", payload["memberships_cascaded"])
		}
		if int(cascaded) != event.MembershipsCascaded {
			t.Fatalf("unexpected memberships_cascaded: %v", cascaded)
		}

		metadata, ok := payload["metadata"].(map[string]any)
		if !ok {
			t.Fatalf("payload metadata not a map: %T", payload["metadata"])
		}
		if metadata["source"] != "unit-test" {
			t.Fatalf("metadata did not round-trip: %v", metadata)
		}

		envelopeMetadata, ok := envelope["metadata"].(map[string]any)
		if !ok {
			t.Fatalf("envelope metadata not a map: %T", envelope["metadata"])
		}
		if envelopeMetadata["service"] != "smb-platform-access" {
			t.Fatalf("unexpected metadata service: %v", envelopeMetadata["service"])
		}
		if envelopeMetadata["environment"] != "test" {
			t.Fatalf("unexpected metadata environment: %v", envelopeMetadata["environment"])
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message on async producer input channel")
	}
}

func TestPublishRolesAssigned(t *testing.T) {
	asyncProducer := newFakeAsyncProducer()
	publisher := newTestPublisher(t, asyncProducer)

	assignedAt := time.Date(2026, 5, 2, 16, 45, 0, 0, time.UTC)
	event := domain.RolesAssignedEvent{
		EventID:      "evt-001",
		TenantID:     "tenant-1",
		MembershipID: "member-1",
		RolesAdded:   []domain.RoleChange{{RoleID: "role-1", RoleKey: "auditor"}},
		AssignedBy:   "admin-user",
		AssignedAt:   assignedAt,
	}

	if err := publisher.PublishRolesAssigned(context.Background(), event); err != nil {
		t.Fatalf("PublishRolesAssigned returned error: %v", err)
	}

	select {
	case msg := <-asyncProducer.input:
		if msg.Topic != "access.member.roles.assigned" {
			t.Fatalf("unexpected topic: %s", msg.Topic)
		}

		bytes, err := msg.Value.Encode()
		if err != nil {
			t.Fatalf("Value.Encode returned error: %v", err)
		}

		var envelope map[string]any
		if err := json.Unmarshal(bytes, &envelope); err != nil {
			t.Fatalf("failed to unmarshal envelope: %v", err)
		}

		payload, ok := envelope["payload"].(map[string]any)
		if !ok {
			t.Fatalf("payload not a map: %T", envelope["payload"])
		}

		if got := payload["membership_id"]; got != event.MembershipID {
			t.Fatalf("unexpected membership_id: %v", got)
		}

		if got := payload["assigned_by"]; got != event.AssignedBy {
			t.Fatalf("unexpected assigned_by: %v", got)
		}

		roles, ok := payload["roles_added"].([]any)
		if !ok {
			t.Fatalf("roles_added not a list: %T", payload["roles_added"])
		}
		if len(roles) != 1 {
			t.Fatalf("expected 1 role change, got %d", len(roles))
		}

		role, ok := roles[0].(map[string]any)
		if !ok {
			t.Fatalf("role change not a map: %T", roles[0])
		}
		if role["role_key"] != "auditor" {
			t.Fatalf("unexpected role_key: %v", role["role_key"])
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message on async producer input channel")
	}
}

func TestPublishBlocksUntilContextCancelled(t *testing.T) {
	asyncProducer := newFakeAsyncProducer()
	publisher := newTestPublisher(t, asyncProducer)

	// Fill the buffered input channel so the next publish cannot enqueue.
	asyncProducer.input <- &sarama.ProducerMessage{}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := publisher.PublishTenantCreated(ctx, domain.TenantCreatedEvent{
		EventID:  "evt-002",
		TenantID: "tenant-1",
	})
	if err == nil {
		t.Fatal("expected context error when producer input is full")
	}
}
