package planner

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/formorer/ProxLB/internal/domain"
)

const (
	tagIncludePrefix = "plb_include_"
	tagExcludePrefix = "plb_exclude_"
	tagIgnoreVM      = "plb_ignore_vm"
)

// BuildSnapshot implements the Snapshot Builder: it enumerates nodes and
// VMs through fetcher, applies the ignore lists, derives group membership
// from VM tags, and returns the ClusterState the engine plans over. Overprovisioned nodes are logged as warnings and returned, not
// failed.
func BuildSnapshot(ctx context.Context, fetcher Fetcher, ignoreNodes, ignoreVMs []string, logger *zap.Logger) (*domain.ClusterState, error) {
	logger = logger.With(zap.String("component", "snapshot"))

	rawNodes, err := fetcher.ListNodes(ctx)
	if err != nil {
		return nil, domain.NewError(domain.ErrAPIUnreachable, fmt.Errorf("list nodes: %w", err))
	}

	state := domain.NewClusterState()

	for _, rn := range rawNodes {
		if rn.Status != "online" {
			continue
		}
		if containsLiteral(ignoreNodes, rn.Name) {
			continue
		}
		state.Nodes[rn.Name] = &domain.Node{
			Name: rn.Name,
			CPU: domain.Resources{
				Total: rn.MaxCPU,
				Used:  int64(rn.CPU * float64(rn.MaxCPU)),
			},
			Memory: domain.Resources{Total: rn.MaxMem, Used: rn.Mem},
			Disk:   domain.Resources{Total: rn.MaxDisk, Used: rn.Disk},
		}
	}

	for nodeName := range state.Nodes {
		rawVMs, err := fetcher.ListVMs(ctx, nodeName)
		if err != nil {
			return nil, domain.NewError(domain.ErrAPIUnreachable, fmt.Errorf("list vms on %s: %w", nodeName, err))
		}

		for _, rv := range rawVMs {
			if rv.Status != "running" {
				continue
			}
			if vmIgnoredByName(ignoreVMs, rv.Name) {
				continue
			}

			cfg, err := fetcher.GetVMConfig(ctx, nodeName, rv.VMID)
			if err != nil {
				return nil, domain.NewError(domain.ErrAPIUnreachable, fmt.Errorf("get config for vmid %d: %w", rv.VMID, err))
			}
			tags := splitTags(cfg.Tags)
			if hasTagPrefix(tags, tagIgnoreVM) {
				continue
			}

			vm := &domain.VM{
				Name:          rv.Name,
				VMID:          rv.VMID,
				CPU:           domain.Footprint{Total: rv.CPUs, Used: int64(rv.CPU * float64(rv.CPUs))},
				Memory:        domain.Footprint{Total: rv.MaxMem, Used: rv.Mem},
				Disk:          domain.Footprint{Total: rv.MaxDisk, Used: rv.Disk},
				NodeParent:    nodeName,
				NodeRebalance: nodeName,
				GroupInclude:  firstTagSuffix(tags, tagIncludePrefix),
				GroupExclude:  firstTagSuffix(tags, tagExcludePrefix),
			}
			state.VMs[vm.Name] = vm
		}
	}

	for _, vm := range state.VMs {
		node := state.Nodes[vm.NodeParent]
		node.CPU.Assigned += vm.CPU.Total
		node.Memory.Assigned += vm.Memory.Total
		node.Disk.Assigned += vm.Disk.Total
	}

	for _, node := range state.Nodes {
		for _, d := range []domain.Dimension{domain.DimensionCPU, domain.DimensionMemory, domain.DimensionDisk} {
			res := node.Dimension(d)
			if res.AssignedPct() > 99 {
				logger.Warn("node overprovisioned",
					zap.String("node", node.Name),
					zap.String("dimension", string(d)),
					zap.Int("assigned_pct", res.AssignedPct()),
				)
			}
		}
	}

	return state, nil
}

func containsLiteral(list []string, name string) bool {
	for _, n := range list {
		if n == name {
			return true
		}
	}
	return false
}

// vmIgnoredByName matches the ignore-vms list against a VM name. A pattern
// ending in "*" is a substring (contains) test against the name with the
// trailing "*" stripped — not a prefix test. This mirrors the hypervisor
// script this engine is modeled on; operators expecting true prefix
// matching should be warned in documentation, not here.
func vmIgnoredByName(patterns []string, name string) bool {
	for _, p := range patterns {
		if strings.HasSuffix(p, "*") {
			if strings.Contains(name, strings.TrimSuffix(p, "*")) {
				return true
			}
			continue
		}
		if p == name {
			return true
		}
	}
	return false
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ";")
}

func hasTagPrefix(tags []string, prefix string) bool {
	for _, t := range tags {
		if strings.HasPrefix(t, prefix) {
			return true
		}
	}
	return false
}

func firstTagSuffix(tags []string, prefix string) string {
	for _, t := range tags {
		if strings.HasPrefix(t, prefix) {
			return strings.TrimPrefix(t, prefix)
		}
	}
	return ""
}
