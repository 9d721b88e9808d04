package daemon

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/formorer/ProxLB/internal/alert"
	"github.com/formorer/ProxLB/internal/domain"
	"github.com/formorer/ProxLB/internal/planner"
)

// fakeHypervisor is a minimal in-memory HypervisorClient: two nodes, one
// overloaded VM, and a Migrate call that just records what it was asked
// to do.
type fakeHypervisor struct {
	nodes        []planner.RawNode
	vmsByNode    map[string][]planner.RawVM
	migrateErr   error
	migrateCalls []domain.Migration
	listCalls    int
}

func (f *fakeHypervisor) ListNodes(ctx context.Context) ([]planner.RawNode, error) {
	f.listCalls++
	return f.nodes, nil
}

func (f *fakeHypervisor) ListVMs(ctx context.Context, node string) ([]planner.RawVM, error) {
	return f.vmsByNode[node], nil
}

func (f *fakeHypervisor) GetVMConfig(ctx context.Context, node string, vmid int) (planner.RawVMConfig, error) {
	return planner.RawVMConfig{}, nil
}

func (f *fakeHypervisor) Migrate(ctx context.Context, fromNode string, vmid int, target string) error {
	f.migrateCalls = append(f.migrateCalls, domain.Migration{VMID: vmid, FromNode: fromNode, ToNode: target})
	return f.migrateErr
}

func imbalancedHypervisor() *fakeHypervisor {
	return &fakeHypervisor{
		nodes: []planner.RawNode{
			{Name: "pve1", Status: "online", MaxMem: 1000, Mem: 900},
			{Name: "pve2", Status: "online", MaxMem: 1000, Mem: 100},
		},
		vmsByNode: map[string][]planner.RawVM{
			"pve1": {{VMID: 100, Name: "vm-a", Status: "running", MaxMem: 800, Mem: 800}},
			"pve2": {},
		},
	}
}

func testPolicy() domain.Policy {
	return domain.Policy{Method: domain.MethodMemory, Mode: domain.ModeUsed, Balanciness: 10}
}

func TestRunOnce_DryRunDoesNotMigrate(t *testing.T) {
	hv := imbalancedHypervisor()
	l := NewLoop(hv, testPolicy(), nil, nil, true, time.Minute, alert.NewService(nil, zap.NewNop()), zap.NewNop())

	report, _, err := l.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(report.Plan) == 0 {
		t.Fatal("expected a non-empty plan for an imbalanced cluster")
	}
	if len(hv.migrateCalls) != 0 {
		t.Fatalf("dry run should not call Migrate, got %d calls", len(hv.migrateCalls))
	}
	if report.Outcomes != nil {
		t.Fatalf("dry run should not populate outcomes, got %v", report.Outcomes)
	}
}

func TestRunOnce_ExecutesPlanAndRecordsOutcomes(t *testing.T) {
	hv := imbalancedHypervisor()
	l := NewLoop(hv, testPolicy(), nil, nil, false, time.Minute, alert.NewService(nil, zap.NewNop()), zap.NewNop())

	report, _, err := l.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(report.Plan) == 0 {
		t.Fatal("expected a non-empty plan for an imbalanced cluster")
	}
	if len(hv.migrateCalls) != len(report.Plan) {
		t.Fatalf("expected %d Migrate calls, got %d", len(report.Plan), len(hv.migrateCalls))
	}
	if len(report.Outcomes) != len(report.Plan) {
		t.Fatalf("expected %d outcomes, got %d", len(report.Plan), len(report.Outcomes))
	}
	for _, o := range report.Outcomes {
		if o.Err != "" {
			t.Fatalf("unexpected migration error: %s", o.Err)
		}
	}
}

func TestRunOnce_MigrationRejectedIsRecordedNotFatal(t *testing.T) {
	hv := imbalancedHypervisor()
	hv.migrateErr = domain.NewError(domain.ErrMigrationRejected, errors.New("no route to host"))
	l := NewLoop(hv, testPolicy(), nil, nil, false, time.Minute, alert.NewService(nil, zap.NewNop()), zap.NewNop())

	report, _, err := l.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce should not fail on a rejected migration: %v", err)
	}
	if len(report.Outcomes) == 0 {
		t.Fatal("expected outcomes to be recorded")
	}
	for _, o := range report.Outcomes {
		if o.Err == "" {
			t.Fatal("expected outcome to carry the migration error")
		}
	}
}

func TestLoop_LatestReportBeforeAnyCycle(t *testing.T) {
	hv := imbalancedHypervisor()
	l := NewLoop(hv, testPolicy(), nil, nil, true, time.Minute, alert.NewService(nil, zap.NewNop()), zap.NewNop())

	if _, err := l.LatestReport(context.Background()); err == nil {
		t.Fatal("expected an error before any cycle has completed")
	}
}

func TestLoop_StartStopsOnContextCancel(t *testing.T) {
	hv := imbalancedHypervisor()
	l := NewLoop(hv, testPolicy(), nil, nil, true, 10*time.Millisecond, alert.NewService(nil, zap.NewNop()), zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- l.Start(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start returned an error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Start did not return after context cancellation")
	}

	if _, err := l.LatestReport(context.Background()); err != nil {
		t.Fatalf("expected at least one cycle to have completed: %v", err)
	}
}

func TestLoop_TriggerRunsAnExtraCycle(t *testing.T) {
	hv := imbalancedHypervisor()
	l := NewLoop(hv, testPolicy(), nil, nil, true, time.Hour, alert.NewService(nil, zap.NewNop()), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Start(ctx) }()

	if !l.Trigger() {
		t.Fatal("expected Trigger to queue a cycle")
	}
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after context cancellation")
	}

	// The hour-long interval never ticks, so a second snapshot fetch can
	// only come from the triggered cycle.
	if hv.listCalls != 2 {
		t.Fatalf("expected the initial cycle plus one triggered cycle, got %d cycles", hv.listCalls)
	}
}
