package alert

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/formorer/ProxLB/internal/domain"
)

type fakePublisher struct {
	events []string
	err    error
}

func (f *fakePublisher) Publish(ctx context.Context, eventType, message string) error {
	f.events = append(f.events, eventType)
	return f.err
}

func TestService_Overprovisioned_PublishesWhenPublisherSet(t *testing.T) {
	pub := &fakePublisher{}
	s := NewService(pub, zap.NewNop())

	s.Overprovisioned(context.Background(), "pve1", domain.DimensionMemory, 120)

	if len(pub.events) != 1 || pub.events[0] != "node.overprovisioned" {
		t.Fatalf("expected one node.overprovisioned event, got %v", pub.events)
	}
}

func TestService_Overprovisioned_NoPublisherDoesNotPanic(t *testing.T) {
	s := NewService(nil, zap.NewNop())
	s.Overprovisioned(context.Background(), "pve1", domain.DimensionCPU, 150)
}

func TestService_MigrationRejected_PublishesWhenPublisherSet(t *testing.T) {
	pub := &fakePublisher{}
	s := NewService(pub, zap.NewNop())

	m := domain.Migration{VMName: "web-01", VMID: 100, FromNode: "pve1", ToNode: "pve2"}
	s.MigrationRejected(context.Background(), m, errors.New("no route to host"))

	if len(pub.events) != 1 || pub.events[0] != "migration.rejected" {
		t.Fatalf("expected one migration.rejected event, got %v", pub.events)
	}
}

func TestService_MigrationRejected_PublishFailureDoesNotPanic(t *testing.T) {
	pub := &fakePublisher{err: errors.New("redis unavailable")}
	s := NewService(pub, zap.NewNop())

	m := domain.Migration{VMName: "web-01", VMID: 100, FromNode: "pve1", ToNode: "pve2"}
	s.MigrationRejected(context.Background(), m, errors.New("rejected"))

	if len(pub.events) != 1 {
		t.Fatalf("expected the publish attempt to still be recorded, got %v", pub.events)
	}
}
