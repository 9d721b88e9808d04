package planner

import "github.com/formorer/ProxLB/internal/domain"

// trackedMetric returns the per-node percentage the evaluator watches for
// this policy mode: free capacity under "used" mode (the engine moves load
// toward whichever node has the most free runtime capacity), provisioned
// commitment under "assigned" mode (the engine equalises commitment).
func trackedMetric(node *domain.Node, policy domain.Policy) int {
	res := node.Dimension(policy.Dimension())
	if policy.Mode == domain.ModeAssigned {
		return res.AssignedPct()
	}
	return res.FreePct()
}

// ShouldContinue implements the Balanciness Evaluator. It updates each
// node's fixed-point bookkeeping as a side effect, so it must be called
// exactly once per loop iteration in the order the loop actually runs.
func ShouldContinue(state *domain.ClusterState, policy domain.Policy) bool {
	allStable := true
	min, max := 0, 0
	first := true

	for _, node := range state.Nodes {
		metric := trackedMetric(node, policy)
		node.Stable = metric == node.LastRunPct
		if !node.Stable {
			allStable = false
		}
		node.LastRunPct = metric

		if first {
			min, max = metric, metric
			first = false
			continue
		}
		if metric < min {
			min = metric
		}
		if metric > max {
			max = metric
		}
	}

	if allStable {
		return false
	}
	return min+policy.Balanciness < max
}
