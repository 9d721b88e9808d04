package planner

import "github.com/formorer/ProxLB/internal/domain"

// Run implements the Planner Loop: iterate Selection + Mutation until the
// Evaluator signals convergence or every VM has been considered once in
// this pass. The processed set guarantees the latter — it prevents the
// same heaviest VM from being picked repeatedly and ping-ponging between
// two nodes.
func Run(state *domain.ClusterState, policy domain.Policy) {
	processed := make(map[string]bool, len(state.VMs))

	for ShouldContinue(state, policy) {
		vm, ok := HeaviestVM(state, policy, processed)
		if !ok {
			return
		}
		target, ok := LightestNode(state, policy)
		if !ok {
			return
		}
		Move(vm, target.Name, state, policy)
	}
}
