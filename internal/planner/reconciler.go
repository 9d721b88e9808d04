package planner

import (
	"math/rand"
	"sort"

	"github.com/formorer/ProxLB/internal/domain"
)

// ReconcileIncludeGroups buckets VMs by GroupInclude and, for every bucket
// with two or more members, relocates every member but the first onto the
// first member's current node. Buckets of one are left alone.
func ReconcileIncludeGroups(state *domain.ClusterState, policy domain.Policy) {
	for _, members := range bucketBy(state, func(vm *domain.VM) string { return vm.GroupInclude }) {
		if len(members) < 2 {
			continue
		}
		anchor := members[0].NodeRebalance
		for _, vm := range members[1:] {
			Move(vm, anchor, state, policy)
		}
	}
}

// ReconcileExcludeGroups buckets VMs by GroupExclude — not GroupInclude,
// which is the bucket key the system this engine is modeled on used here
// by what is almost certainly a copy-paste defect — and, for every bucket
// with two or more members, disperses every member but the first onto a
// node distinct from both its own current parent and every node already
// claimed by an earlier member of the same bucket. Candidate nodes are
// shuffled with rng before the first is taken, so callers get a
// reproducible result for a fixed seed but an unbiased choice otherwise.
// A bucket member with no eligible candidate is left in place rather than
// forced onto a node that would violate dispersion.
func ReconcileExcludeGroups(state *domain.ClusterState, policy domain.Policy, rng *rand.Rand) {
	for _, members := range bucketBy(state, func(vm *domain.VM) string { return vm.GroupExclude }) {
		if len(members) < 2 {
			continue
		}

		claimed := make(map[string]bool, len(members))
		claimed[members[0].NodeRebalance] = true

		for _, vm := range members[1:] {
			candidates := make([]string, 0, len(state.Nodes))
			for name := range state.Nodes {
				if name == vm.NodeParent || claimed[name] {
					continue
				}
				candidates = append(candidates, name)
			}
			if len(candidates) == 0 {
				continue
			}
			sort.Strings(candidates)
			rng.Shuffle(len(candidates), func(i, j int) {
				candidates[i], candidates[j] = candidates[j], candidates[i]
			})

			chosen := candidates[0]
			Move(vm, chosen, state, policy)
			claimed[chosen] = true
		}
	}
}

// bucketBy groups VMs by a key function, skipping the empty key, and
// returns buckets with members sorted by name for determinism.
func bucketBy(state *domain.ClusterState, key func(*domain.VM) string) map[string][]*domain.VM {
	buckets := make(map[string][]*domain.VM)
	for _, vm := range state.VMs {
		k := key(vm)
		if k == "" {
			continue
		}
		buckets[k] = append(buckets[k], vm)
	}
	for _, members := range buckets {
		sort.Slice(members, func(i, j int) bool { return members[i].Name < members[j].Name })
	}
	return buckets
}
