package planner

import (
	"sort"

	"github.com/formorer/ProxLB/internal/domain"
)

// vmWeight returns the figure the heaviest-VM rule ranks by: runtime usage
// under "used" mode, provisioned size under "assigned" mode.
func vmWeight(vm *domain.VM, policy domain.Policy) int64 {
	fp := vm.Dimension(policy.Dimension())
	if policy.Mode == domain.ModeAssigned {
		return fp.Total
	}
	return fp.Used
}

// HeaviestVM returns the highest-weight VM not already in processed, and
// marks it processed as a side effect. Ties break lexicographically by
// name for deterministic, reproducible plans.
func HeaviestVM(state *domain.ClusterState, policy domain.Policy, processed map[string]bool) (*domain.VM, bool) {
	names := make([]string, 0, len(state.VMs))
	for name := range state.VMs {
		if !processed[name] {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil, false
	}
	sort.Strings(names)

	best := state.VMs[names[0]]
	bestWeight := vmWeight(best, policy)
	for _, name := range names[1:] {
		vm := state.VMs[name]
		if w := vmWeight(vm, policy); w > bestWeight {
			best, bestWeight = vm, w
		}
	}

	processed[best.Name] = true
	return best, true
}

// LightestNode picks the migration target: under "used" mode the node with
// the most free capacity on the policy dimension; under "assigned" mode
// the node with the least assigned capacity, restricted to nodes whose
// assigned percentage is strictly between 0 and 100 (fully empty or fully
// saturated nodes are not useful targets for equalising commitment). Ties
// break lexicographically by node name.
func LightestNode(state *domain.ClusterState, policy domain.Policy) (*domain.Node, bool) {
	names := make([]string, 0, len(state.Nodes))
	for name, node := range state.Nodes {
		if policy.Mode == domain.ModeAssigned {
			pct := node.Dimension(policy.Dimension()).AssignedPct()
			if pct <= 0 || pct >= 100 {
				continue
			}
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return nil, false
	}
	sort.Strings(names)

	best := state.Nodes[names[0]]
	bestScore := nodeScore(best, policy)
	for _, name := range names[1:] {
		node := state.Nodes[name]
		score := nodeScore(node, policy)
		if policy.Mode == domain.ModeAssigned {
			if score < bestScore {
				best, bestScore = node, score
			}
		} else if score > bestScore {
			best, bestScore = node, score
		}
	}
	return best, true
}

func nodeScore(node *domain.Node, policy domain.Policy) int64 {
	res := node.Dimension(policy.Dimension())
	if policy.Mode == domain.ModeAssigned {
		return res.Assigned
	}
	return res.Free()
}
