package planner

import (
	"fmt"
	"math/rand"

	"github.com/formorer/ProxLB/internal/domain"
)

// Plan runs one complete planning pass over state under policy: the
// planner loop, both group reconciler sweeps, then the finaliser. state is
// mutated in place; callers that need the pre-planning snapshot should
// clone it first. seed drives the exclude-group dispersion shuffle so that
// repeated runs against an identical snapshot and seed produce identical
// plans.
func Plan(state *domain.ClusterState, policy domain.Policy, seed int64) (domain.MigrationPlan, error) {
	if !policy.Valid() {
		return nil, domain.NewError(domain.ErrInvalidPolicy, fmt.Errorf("unknown method %q or mode %q", policy.Method, policy.Mode))
	}

	Run(state, policy)

	rng := rand.New(rand.NewSource(seed))
	ReconcileIncludeGroups(state, policy)
	ReconcileExcludeGroups(state, policy, rng)

	return Finalize(state), nil
}
