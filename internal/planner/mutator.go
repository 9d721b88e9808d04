package planner

import "github.com/formorer/ProxLB/internal/domain"

// Move applies a tentative migration of vm onto the node named destination,
// updating both the source and destination nodes' counters so subsequent
// iterations see the effect. destination is a node name, looked up in
// state — not a bare single-element list the way the system this engine is
// modeled on passed it, which is clearer and carries the same meaning.
//
// The source side of the move is vm.NodeRebalance, the VM's current
// position in the working copy, not vm.NodeParent. NodeParent is never
// rewritten and stays the executor's "from" reference; NodeRebalance is the
// only field that tracks where the VM actually sits as the pass proceeds.
// Reading the source from NodeParent instead would double-count whenever a
// VM already relocated by the planner loop is relocated again by the group
// reconciler, since the resources would already have left NodeParent on the
// first move.
func Move(vm *domain.VM, destination string, state *domain.ClusterState, policy domain.Policy) {
	if destination == vm.NodeRebalance {
		return
	}

	source := state.Nodes[vm.NodeRebalance]
	dest := state.Nodes[destination]
	vm.NodeRebalance = destination

	for _, d := range []domain.Dimension{domain.DimensionCPU, domain.DimensionMemory, domain.DimensionDisk} {
		fp := vm.Dimension(d)

		sres := source.Dimension(d)
		sres.Used -= fp.Used
		sres.Assigned -= fp.Total

		dres := dest.Dimension(d)
		dres.Used += fp.Used
		dres.Assigned += fp.Total
	}
}
