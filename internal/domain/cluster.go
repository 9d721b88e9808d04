package domain

// ClusterState is the snapshot a planning pass operates on: a mapping from
// node name to Node and from VM name to VM. The pass mutates it in place
// (node counters and each VM's NodeRebalance).
// Every VM's NodeParent and NodeRebalance name keys of Nodes.
type ClusterState struct {
	Nodes map[string]*Node
	VMs   map[string]*VM
}

// NewClusterState returns an empty, initialized ClusterState.
func NewClusterState() *ClusterState {
	return &ClusterState{
		Nodes: make(map[string]*Node),
		VMs:   make(map[string]*VM),
	}
}

// NodeNames returns the node names in the state, unsorted.
func (s *ClusterState) NodeNames() []string {
	names := make([]string, 0, len(s.Nodes))
	for name := range s.Nodes {
		names = append(names, name)
	}
	return names
}

// VMNames returns the VM names in the state, unsorted.
func (s *ClusterState) VMNames() []string {
	names := make([]string, 0, len(s.VMs))
	for name := range s.VMs {
		names = append(names, name)
	}
	return names
}
