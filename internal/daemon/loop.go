// Package daemon owns the cycle: fetch a cluster snapshot, run the
// placement engine core over it, execute the resulting plan against the
// hypervisor, then persist and broadcast the result. It is the only
// component that ties the planner, hypervisor client, history store,
// result cache and alert service together.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/formorer/ProxLB/internal/alert"
	"github.com/formorer/ProxLB/internal/cache"
	"github.com/formorer/ProxLB/internal/domain"
	"github.com/formorer/ProxLB/internal/history"
	"github.com/formorer/ProxLB/internal/output"
	"github.com/formorer/ProxLB/internal/planner"
)

// HypervisorClient is what the loop needs from the hypervisor client:
// planner.Fetcher to build a snapshot, plus Migrate to execute a plan.
// *proxmox.Client satisfies this.
type HypervisorClient interface {
	planner.Fetcher
	Migrate(ctx context.Context, fromNode string, vmid int, target string) error
}

// Loop runs planning cycles on a ticker, or on demand via Trigger.
type Loop struct {
	hv          HypervisorClient
	policy      domain.Policy
	ignoreNodes []string
	ignoreVMs   []string
	dryRun      bool
	interval    time.Duration

	history *history.Store
	cache   *cache.Cache
	alerts  *alert.Service
	output  *OutputConfig
	logger  *zap.Logger

	trigger chan struct{}

	mu      sync.Mutex
	running bool
	latest  *domain.CycleReport
}

// Option configures optional sinks a Loop reports through. All three are
// safe to omit: without WithHistory cycles are not persisted, without
// WithCache there is no caching or pub/sub, and without WithOutput cycles
// are only logged. The alert service passed to NewLoop may also be nil.
type Option func(*Loop)

// WithHistory wires a cycle audit log into the loop.
func WithHistory(store *history.Store) Option {
	return func(l *Loop) { l.history = store }
}

// WithCache wires the result cache into the loop.
func WithCache(c *cache.Cache) Option {
	return func(l *Loop) { l.cache = c }
}

// OutputConfig makes every completed cycle also print to a writer, for the
// CLI's --dry-run/--json flags. A Loop without this option only logs.
type OutputConfig struct {
	Writer    io.Writer
	ShowTable bool
	ShowJSON  bool
}

// WithOutput makes the loop print each cycle's result per out.
func WithOutput(out OutputConfig) Option {
	return func(l *Loop) { l.output = &out }
}

// NewLoop builds a Loop. ignoreNodes/ignoreVMs and policy come from the
// balancing configuration section; dryRun suppresses execution of the
// planned migrations while still producing a report.
func NewLoop(hv HypervisorClient, policy domain.Policy, ignoreNodes, ignoreVMs []string, dryRun bool, interval time.Duration, alerts *alert.Service, logger *zap.Logger, opts ...Option) *Loop {
	l := &Loop{
		hv:          hv,
		policy:      policy,
		ignoreNodes: ignoreNodes,
		ignoreVMs:   ignoreVMs,
		dryRun:      dryRun,
		interval:    interval,
		alerts:      alerts,
		logger:      logger.With(zap.String("component", "daemon")),
		trigger:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Trigger requests an out-of-band cycle without blocking. It returns false
// if a triggered cycle is already queued; a cycle that is currently running
// does not count as queued.
func (l *Loop) Trigger() bool {
	select {
	case l.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// Start runs an initial cycle immediately, then repeats on the
// configured interval until ctx is cancelled or a fatal PLBError is
// produced. A manually triggered cycle (via Trigger) runs in between
// ticks without resetting the ticker.
func (l *Loop) Start(ctx context.Context) error {
	l.logger.Info("starting daemon loop",
		zap.Duration("interval", l.interval),
		zap.Bool("dry_run", l.dryRun),
	)

	if err := l.runCycle(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("daemon loop stopped")
			return nil
		case <-ticker.C:
			if err := l.runCycle(ctx); err != nil {
				return err
			}
		case <-l.trigger:
			l.logger.Info("manual cycle triggered")
			if err := l.runCycle(ctx); err != nil {
				return err
			}
		}
	}
}

// runCycle guards against overlapping cycles, runs one, and returns a
// non-nil error only when it is fatal per domain.PLBError.Fatal — a
// non-fatal failure is logged and swallowed so the loop keeps ticking.
func (l *Loop) runCycle(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		l.logger.Debug("cycle already in progress, skipping")
		return nil
	}
	l.running = true
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
	}()

	report, state, err := l.RunOnce(ctx)
	if err != nil {
		if isFatal(err) {
			return err
		}
		l.logger.Error("cycle failed", zap.Error(err))
		return nil
	}

	l.printCycle(report, state)

	l.mu.Lock()
	l.latest = report
	l.mu.Unlock()

	if l.cache != nil {
		if err := l.cache.SetLatestReport(ctx, report); err != nil {
			l.logger.Warn("failed to cache cycle report", zap.Error(err))
		}
		if err := l.cache.Publish(ctx, "cycle.completed", fmt.Sprintf("%d migration(s) planned", len(report.Plan))); err != nil {
			l.logger.Warn("failed to publish cycle.completed", zap.Error(err))
		}
	}
	if l.history != nil {
		if err := l.history.RecordCycle(ctx, report); err != nil {
			l.logger.Warn("failed to record cycle report", zap.Error(err))
		}
	}
	return nil
}

// RunOnce builds a snapshot, runs the core, and — unless DryRun — executes
// the resulting plan. It returns the completed report together with the
// finalised ClusterState the plan was computed against, so a caller can
// render it (output.JSON needs the state, not just the plan) without
// touching any of the loop's own state. The CLI's one-shot "plan" command
// calls this directly rather than going through Start.
func (l *Loop) RunOnce(ctx context.Context) (*domain.CycleReport, *domain.ClusterState, error) {
	started := time.Now()

	if l.cache != nil {
		if err := l.cache.Publish(ctx, "cycle.started", ""); err != nil {
			l.logger.Warn("failed to publish cycle.started", zap.Error(err))
		}
	}

	state, err := planner.BuildSnapshot(ctx, l.hv, l.ignoreNodes, l.ignoreVMs, l.logger)
	if err != nil {
		return nil, nil, err
	}

	warnings := l.checkOverprovisioned(ctx, state)

	plan, err := planner.Plan(state, l.policy, started.UnixNano())
	if err != nil {
		return nil, nil, err
	}

	report := &domain.CycleReport{
		StartedAt: started,
		Policy:    l.policy,
		DryRun:    l.dryRun,
		Plan:      plan,
		Warnings:  warnings,
	}

	if !l.dryRun {
		report.Outcomes = l.execute(ctx, plan)
	}
	report.FinishedAt = time.Now()

	l.logger.Info("cycle complete",
		zap.Int("migrations_planned", len(plan)),
		zap.Bool("dry_run", l.dryRun),
		zap.Duration("duration", report.FinishedAt.Sub(started)),
	)
	return report, state, nil
}

// printCycle renders report/state to the loop's configured output, if any.
func (l *Loop) printCycle(report *domain.CycleReport, state *domain.ClusterState) {
	if l.output == nil {
		return
	}
	if l.output.ShowTable {
		if err := output.Table(l.output.Writer, report.Plan); err != nil {
			l.logger.Warn("failed to write table output", zap.Error(err))
		}
	}
	if l.output.ShowJSON {
		data, err := output.JSON(state)
		if err != nil {
			l.logger.Warn("failed to marshal json output", zap.Error(err))
			return
		}
		fmt.Fprintln(l.output.Writer, string(data))
	}
}

// checkOverprovisioned raises an alert for every node/dimension pair
// whose assigned capacity exceeds its physical total and returns the
// same findings as report warning strings.
func (l *Loop) checkOverprovisioned(ctx context.Context, state *domain.ClusterState) []string {
	var warnings []string
	for _, node := range state.Nodes {
		for _, d := range []domain.Dimension{domain.DimensionCPU, domain.DimensionMemory, domain.DimensionDisk} {
			res := node.Dimension(d)
			if !res.Overprovisioned() {
				continue
			}
			pct := res.AssignedPct()
			if l.alerts != nil {
				l.alerts.Overprovisioned(ctx, node.Name, d, pct)
			}
			warnings = append(warnings, fmt.Sprintf("%s is overprovisioned on %s (%d%% assigned)", node.Name, d, pct))
		}
	}
	return warnings
}

// execute runs the plan's migrations sequentially — this engine never
// parallelises migrations against the same cluster — recording an
// outcome for each and alerting on rejection without aborting the rest
// of the plan. Once ctx is cancelled no further migration is started.
func (l *Loop) execute(ctx context.Context, plan domain.MigrationPlan) []domain.MigrationOutcome {
	outcomes := make([]domain.MigrationOutcome, 0, len(plan))
	for _, m := range plan {
		if ctx.Err() != nil {
			l.logger.Info("cancelled, skipping remaining migrations", zap.Int("skipped", len(plan)-len(outcomes)))
			break
		}
		outcome := domain.MigrationOutcome{Migration: m}
		if err := l.hv.Migrate(ctx, m.FromNode, m.VMID, m.ToNode); err != nil {
			outcome.Err = err.Error()
			if l.alerts != nil {
				l.alerts.MigrationRejected(ctx, m, err)
			}
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// LatestReport implements controlapi.ReportSource directly off the
// loop's in-memory state, so the Control API has something to answer
// with even when the result cache is disabled.
func (l *Loop) LatestReport(ctx context.Context) (*domain.CycleReport, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.latest == nil {
		return nil, errors.New("no cycle has completed yet")
	}
	return l.latest, nil
}

func isFatal(err error) bool {
	var plbErr *domain.PLBError
	if errors.As(err, &plbErr) {
		return plbErr.Fatal()
	}
	return true
}
