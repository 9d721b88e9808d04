package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/formorer/ProxLB/internal/domain"
)

func TestTable_SortsByVMName(t *testing.T) {
	plan := domain.MigrationPlan{
		{VMName: "zeta", VMID: 102, FromNode: "pve1", ToNode: "pve2"},
		{VMName: "alpha", VMID: 101, FromNode: "pve2", ToNode: "pve1"},
	}

	var buf bytes.Buffer
	if err := Table(&buf, plan); err != nil {
		t.Fatalf("Table: %v", err)
	}

	out := buf.String()
	alphaIdx := strings.Index(out, "alpha")
	zetaIdx := strings.Index(out, "zeta")
	if alphaIdx == -1 || zetaIdx == -1 {
		t.Fatalf("expected both VM names in output, got %q", out)
	}
	if alphaIdx > zetaIdx {
		t.Errorf("expected alpha before zeta, got %q", out)
	}
}

func TestTable_EmptyPlanStillWritesHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := Table(&buf, nil); err != nil {
		t.Fatalf("Table: %v", err)
	}
	if !strings.Contains(buf.String(), "VM") {
		t.Errorf("expected a header row even for an empty plan, got %q", buf.String())
	}
}

func TestJSON_KeysByVMName(t *testing.T) {
	state := domain.NewClusterState()
	state.VMs["web-01"] = &domain.VM{
		Name:          "web-01",
		VMID:          100,
		NodeParent:    "pve1",
		NodeRebalance: "pve2",
		Memory:        domain.Footprint{Total: 4096, Used: 2048},
	}

	data, err := JSON(state)
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}

	var records map[string]map[string]any
	if err := json.Unmarshal(data, &records); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	rec, ok := records["web-01"]
	if !ok {
		t.Fatalf("expected a record keyed by VM name, got %v", records)
	}
	if rec["node_rebalance"] != "pve2" {
		t.Errorf("expected node_rebalance=pve2, got %v", rec["node_rebalance"])
	}
	mem, ok := rec["memory"].(map[string]any)
	if !ok {
		t.Fatalf("expected memory to be an object, got %v", rec["memory"])
	}
	if mem["total"] != float64(4096) {
		t.Errorf("expected memory.total=4096, got %v", mem["total"])
	}
}
