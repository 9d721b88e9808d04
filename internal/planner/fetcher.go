// Package planner implements the placement engine: the pure
// snapshot+policy→plan pipeline described for the core of this system.
// Nothing in this package talks to a network; the Fetcher interface is the
// only seam to the hypervisor.
package planner

import "context"

// RawNode is one node record as the hypervisor client reports it.
type RawNode struct {
	Name   string
	Status string
	MaxCPU int64
	CPU    float64 // fraction of MaxCPU currently in use
	MaxMem int64
	Mem    int64
	MaxDisk int64
	Disk    int64
}

// RawVM is one VM record as the hypervisor client reports it.
type RawVM struct {
	VMID    int
	Name    string
	Status  string
	CPUs    int64   // configured vCPU count
	CPU     float64 // fraction of CPUs currently in use
	MaxMem  int64
	Mem     int64
	MaxDisk int64
	Disk    int64
}

// RawVMConfig is the subset of a VM's configuration the snapshot builder
// needs: its tag string, semicolon-separated per the hypervisor's wire
// format.
type RawVMConfig struct {
	Tags string
}

// Fetcher is the contract the core consumes from the hypervisor client:
// ListNodes/ListVMs/GetVMConfig. Migrate lives outside the core entirely —
// it's invoked by the daemon loop against the executed plan, never by the
// planner itself.
type Fetcher interface {
	ListNodes(ctx context.Context) ([]RawNode, error)
	ListVMs(ctx context.Context, node string) ([]RawVM, error)
	GetVMConfig(ctx context.Context, node string, vmid int) (RawVMConfig, error)
}
