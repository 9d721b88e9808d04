// Package alert raises operator-facing notifications for the two
// conditions the engine itself never fails on: an overprovisioned node
// and a rejected migration. Both are logged at the appropriate zap level
// and, if a result cache is configured, broadcast as cycle events.
package alert

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/formorer/ProxLB/internal/domain"
)

// Publisher broadcasts a cycle-lifecycle event. *cache.Cache satisfies
// this; tests can fake it.
type Publisher interface {
	Publish(ctx context.Context, eventType, message string) error
}

// Service raises alerts for conditions the planner surfaces without
// failing the cycle.
type Service struct {
	publisher Publisher
	logger    *zap.Logger
}

// NewService builds a Service. publisher may be nil when the result cache
// is disabled; alerts are then logged only.
func NewService(publisher Publisher, logger *zap.Logger) *Service {
	return &Service{publisher: publisher, logger: logger.With(zap.String("component", "alert"))}
}

// Overprovisioned logs and broadcasts that a node's assigned capacity
// exceeds its physical capacity on a dimension.
func (s *Service) Overprovisioned(ctx context.Context, node string, dim domain.Dimension, pct int) {
	s.logger.Warn("node overprovisioned",
		zap.String("node", node),
		zap.String("dimension", string(dim)),
		zap.Int("assigned_pct", pct),
	)
	s.publish(ctx, "node.overprovisioned", fmt.Sprintf("%s is overprovisioned on %s (%d%% assigned)", node, dim, pct))
}

// MigrationRejected logs and broadcasts that the hypervisor rejected a
// planned migration. The cycle continues; this is informational only.
func (s *Service) MigrationRejected(ctx context.Context, m domain.Migration, cause error) {
	s.logger.Error("migration rejected",
		zap.String("vm", m.VMName),
		zap.Int("vmid", m.VMID),
		zap.String("from", m.FromNode),
		zap.String("to", m.ToNode),
		zap.Error(cause),
	)
	s.publish(ctx, "migration.rejected", fmt.Sprintf("%s (vmid %d): %s -> %s rejected: %v", m.VMName, m.VMID, m.FromNode, m.ToNode, cause))
}

func (s *Service) publish(ctx context.Context, eventType, message string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, eventType, message); err != nil {
		s.logger.Warn("failed to publish alert event", zap.Error(err))
	}
}
