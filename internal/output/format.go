// Package output renders a planning cycle's result for human and machine
// consumption: a right-aligned dry-run table and a JSON plan dump.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/formorer/ProxLB/internal/domain"
)

// vmRecord is the JSON representation of one VM's finalised state.
type vmRecord struct {
	VMID          int              `json:"vmid"`
	NodeParent    string           `json:"node_parent"`
	NodeRebalance string           `json:"node_rebalance"`
	CPU           domain.Footprint `json:"cpu"`
	Memory        domain.Footprint `json:"memory"`
	Disk          domain.Footprint `json:"disk"`
}

// JSON renders state as an object mapping VM name to its finalised record.
func JSON(state *domain.ClusterState) ([]byte, error) {
	records := make(map[string]vmRecord, len(state.VMs))
	for name, vm := range state.VMs {
		records[name] = vmRecord{
			VMID:          vm.VMID,
			NodeParent:    vm.NodeParent,
			NodeRebalance: vm.NodeRebalance,
			CPU:           vm.CPU,
			Memory:        vm.Memory,
			Disk:          vm.Disk,
		}
	}
	return json.MarshalIndent(records, "", "  ")
}

// Table writes a right-aligned "VM | Current Node | Rebalanced Node" table
// of plan to w.
func Table(w io.Writer, plan domain.MigrationPlan) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "VM\tCurrent Node\tRebalanced Node")

	sorted := make(domain.MigrationPlan, len(plan))
	copy(sorted, plan)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].VMName < sorted[j].VMName })

	for _, m := range sorted {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", m.VMName, m.FromNode, m.ToNode)
	}
	return tw.Flush()
}
