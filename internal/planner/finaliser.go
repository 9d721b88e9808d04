package planner

import (
	"sort"

	"github.com/formorer/ProxLB/internal/domain"
)

// Finalize implements the Plan Finaliser: drop every VM whose planned node
// equals its original node, and project the remainder into a
// MigrationPlan, ordered by VM name for deterministic output.
func Finalize(state *domain.ClusterState) domain.MigrationPlan {
	names := make([]string, 0, len(state.VMs))
	for name, vm := range state.VMs {
		if vm.NodeRebalance == vm.NodeParent {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	plan := make(domain.MigrationPlan, 0, len(names))
	for _, name := range names {
		vm := state.VMs[name]
		plan = append(plan, domain.Migration{
			VMName:   vm.Name,
			VMID:     vm.VMID,
			FromNode: vm.NodeParent,
			ToNode:   vm.NodeRebalance,
		})
	}
	return plan
}
