// Package proxmox implements the hypervisor client: the only component
// that speaks to the Proxmox VE HTTP API. It satisfies planner.Fetcher and
// additionally knows how to execute a migration.
package proxmox

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	proxmoxapi "github.com/luthermonson/go-proxmox"
	"go.uber.org/zap"

	"github.com/formorer/ProxLB/internal/config"
	"github.com/formorer/ProxLB/internal/domain"
	"github.com/formorer/ProxLB/internal/planner"
)

var _ planner.Fetcher = (*Client)(nil)

// Client wraps the go-proxmox SDK with a retrying transport and translates
// its errors into domain.PLBError kinds.
type Client struct {
	api    *proxmoxapi.Client
	logger *zap.Logger
}

// New builds a Client from the proxmox section of the configuration.
func New(cfg config.ProxmoxConfig, logger *zap.Logger) *Client {
	retry := retryablehttp.NewClient()
	retry.Logger = nil
	retry.RetryMax = 3
	retry.HTTPClient.Timeout = cfg.Timeout
	retry.HTTPClient.Transport = &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: !cfg.VerifySSL},
	}

	api := proxmoxapi.NewClient(
		fmt.Sprintf("https://%s/api2/json", cfg.Address()),
		proxmoxapi.WithHTTPClient(retry.StandardClient()),
		proxmoxapi.WithAPIToken(cfg.User, cfg.TokenValue),
	)

	return &Client{api: api, logger: logger.With(zap.String("component", "proxmox"))}
}

// ListNodes implements planner.Fetcher.
func (c *Client) ListNodes(ctx context.Context) ([]planner.RawNode, error) {
	statuses, err := c.api.Nodes(ctx)
	if err != nil {
		return nil, translate(err)
	}

	out := make([]planner.RawNode, 0, len(statuses))
	for _, n := range statuses {
		out = append(out, planner.RawNode{
			Name:    n.Node,
			Status:  n.Status,
			MaxCPU:  int64(n.MaxCPU),
			CPU:     n.CPU,
			MaxMem:  int64(n.MaxMem),
			Mem:     int64(n.Mem),
			MaxDisk: int64(n.MaxDisk),
			Disk:    int64(n.Disk),
		})
	}
	return out, nil
}

// ListVMs implements planner.Fetcher for a single node.
func (c *Client) ListVMs(ctx context.Context, node string) ([]planner.RawVM, error) {
	n, err := c.api.Node(ctx, node)
	if err != nil {
		return nil, translate(err)
	}
	vms, err := n.VirtualMachines(ctx)
	if err != nil {
		return nil, translate(err)
	}

	out := make([]planner.RawVM, 0, len(vms))
	for _, vm := range vms {
		out = append(out, planner.RawVM{
			VMID:    int(vm.VMID),
			Name:    vm.Name,
			Status:  string(vm.Status),
			CPUs:    int64(vm.CPUs),
			CPU:     vm.CPU,
			MaxMem:  int64(vm.MaxMem),
			Mem:     int64(vm.Mem),
			MaxDisk: int64(vm.MaxDisk),
			Disk:    int64(vm.Disk),
		})
	}
	return out, nil
}

// GetVMConfig implements planner.Fetcher for a single VM's tags.
func (c *Client) GetVMConfig(ctx context.Context, node string, vmid int) (planner.RawVMConfig, error) {
	n, err := c.api.Node(ctx, node)
	if err != nil {
		return planner.RawVMConfig{}, translate(err)
	}
	vm, err := n.VirtualMachine(ctx, vmid)
	if err != nil {
		return planner.RawVMConfig{}, translate(err)
	}
	return planner.RawVMConfig{Tags: vm.Tags}, nil
}

// Migrate issues an online migration of vmid from its current node to
// target and polls the resulting task to completion. Failure surfaces as
// ErrMigrationRejected so the daemon loop can log it and continue with the
// rest of the plan.
func (c *Client) Migrate(ctx context.Context, fromNode string, vmid int, target string) error {
	n, err := c.api.Node(ctx, fromNode)
	if err != nil {
		return translate(err)
	}
	vm, err := n.VirtualMachine(ctx, vmid)
	if err != nil {
		return translate(err)
	}

	task, err := vm.Migrate(ctx, &proxmoxapi.VirtualMachineMigrateOptions{
		Target: target,
		Online: true,
	})
	if err != nil {
		return domain.NewError(domain.ErrMigrationRejected, err)
	}

	if err := task.Wait(ctx, 2*time.Second, 600*time.Second); err != nil {
		return domain.NewError(domain.ErrMigrationRejected, err)
	}
	if !task.IsSuccessful {
		return domain.NewError(domain.ErrMigrationRejected, fmt.Errorf("task %s exited without success", task.UPID))
	}
	return nil
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	return domain.NewError(domain.ErrAPIUnreachable, err)
}
