package gatesched

// topo.go holds the run-time representation of the network that the scheduler
// walks: nodes, their ordered egress interfaces, and the links those interfaces drive.
// It is built once per run from a TopoCfg and is not changed afterwards.

import (
	"fmt"
)

// devCode identifies the kind of a node
type devCode int

const (
	hostCode devCode = iota
	switchCode
	unknownCode
)

// devCodeFromStr converts the string used in descriptors to a devCode
func devCodeFromStr(code string) devCode {
	switch code {
	case "Host", "host", "Endpt", "endpt":
		return hostCode
	case "Switch", "switch":
		return switchCode
	default:
		return unknownCode
	}
}

// devCodeToStr is the inverse of devCodeFromStr
func devCodeToStr(code devCode) string {
	switch code {
	case hostCode:
		return "Host"
	case switchCode:
		return "Switch"
	default:
		return "Unknown"
	}
}

// Intrfc is an egress interface of a node.  When gated, its queue has a
// number of priority-indexed gates whose windows the allocator fills in.
type Intrfc struct {
	name     string
	device   *Node   // node holding the interface
	peer     *Node   // node at the far end of the link, nil if the interface is not linked
	carry    *Intrfc // interface on peer the link enters through, if known
	datarate float64 // bits per second
	latency  Time    // propagation delay of the link
	gates    int     // number of gates on the egress queue, zero if not gated
}

// Name returns the interface name, unique on its node
func (intrfc *Intrfc) Name() string {
	return intrfc.name
}

// DevName returns the name of the node holding the interface
func (intrfc *Intrfc) DevName() string {
	return intrfc.device.name
}

// FullName identifies the interface uniquely in the topology
func (intrfc *Intrfc) FullName() string {
	return intrfc.device.name + "." + intrfc.name
}

// PeerName returns the name of the node the interface transmits to, empty if unlinked
func (intrfc *Intrfc) PeerName() string {
	if intrfc.peer == nil {
		return ""
	}
	return intrfc.peer.name
}

// Datarate returns the transmission rate in bits per second
func (intrfc *Intrfc) Datarate() float64 {
	return intrfc.datarate
}

// Latency returns the propagation delay of the outbound link
func (intrfc *Intrfc) Latency() Time {
	return intrfc.latency
}

// Gates returns the number of gates on the egress queue
func (intrfc *Intrfc) Gates() int {
	return intrfc.gates
}

// Gated tells whether transmissions through the interface are governed by gates
func (intrfc *Intrfc) Gated() bool {
	return intrfc.gates > 0
}

// Node is a host or switch of the topology
type Node struct {
	name    string
	id      int64 // dense index, also the node's id in the routing graph
	devType devCode
	intrfcs []*Intrfc
}

// Name returns the unique node name
func (node *Node) Name() string {
	return node.name
}

// DevType returns "Host" or "Switch"
func (node *Node) DevType() string {
	return devCodeToStr(node.devType)
}

// Interfaces returns the egress interfaces of the node, in descriptor order
func (node *Node) Interfaces() []*Intrfc {
	return node.intrfcs
}

// linkOut returns the first interface of node whose link leads to the named neighbor, nil if none does
func (node *Node) linkOut(neighbor string) *Intrfc {
	for _, intrfc := range node.intrfcs {
		if intrfc.peer != nil && intrfc.peer.name == neighbor {
			return intrfc
		}
	}
	return nil
}

// Topology is the immutable network snapshot a scheduling run works on
type Topology struct {
	Name       string
	nodes      []*Node
	nodeByName map[string]*Node
	intrfcs    []*Intrfc
	routes     *routeTable
}

// Nodes returns the nodes in descriptor order
func (topo *Topology) Nodes() []*Node {
	return topo.nodes
}

// Interfaces returns every interface of the topology, node by node in descriptor order
func (topo *Topology) Interfaces() []*Intrfc {
	return topo.intrfcs
}

// NodeByName looks up a node, returning nil if there is none with the name
func (topo *Topology) NodeByName(name string) *Node {
	return topo.nodeByName[name]
}

// CreateTopology builds the run-time topology from its serializable description.
// Names must be unique and every link must lead to a node (and interface) that exists.
func CreateTopology(tc *TopoCfg) (*Topology, error) {
	if tc == nil || len(tc.Nodes) == 0 {
		return nil, ErrEmptyTopology
	}

	topo := &Topology{Name: tc.Name, nodeByName: make(map[string]*Node)}
	errs := []error{}

	// first pass creates the nodes and interfaces, so that the second can link them
	for idx, nd := range tc.Nodes {
		if len(nd.Name) == 0 {
			errs = append(errs, fmt.Errorf("%w: node %d: %w", ErrInconsistent, idx, errMissingName))
			continue
		}
		if _, present := topo.nodeByName[nd.Name]; present {
			errs = append(errs, fmt.Errorf("%w: node name %s used more than once", ErrInconsistent, nd.Name))
			continue
		}
		node := &Node{name: nd.Name, id: int64(len(topo.nodes)), devType: devCodeFromStr(nd.DevType)}
		topo.nodes = append(topo.nodes, node)
		topo.nodeByName[nd.Name] = node

		seen := make(map[string]bool)
		for _, id := range nd.Interfaces {
			if len(id.Name) == 0 || seen[id.Name] {
				errs = append(errs, fmt.Errorf("%w: interface %q on %s is unnamed or duplicated",
					ErrInconsistent, id.Name, nd.Name))
				continue
			}
			seen[id.Name] = true
			if id.Gates < 0 || id.Latency < 0 || id.Datarate < 0 {
				errs = append(errs, fmt.Errorf("%w: interface %s.%s has a negative parameter",
					ErrInconsistent, nd.Name, id.Name))
				continue
			}
			intrfc := &Intrfc{name: id.Name, device: node,
				datarate: id.Datarate, latency: SecondsToTime(id.Latency), gates: id.Gates}
			node.intrfcs = append(node.intrfcs, intrfc)
			topo.intrfcs = append(topo.intrfcs, intrfc)
		}
	}
	if err := ReportErrs(errs); err != nil {
		return nil, err
	}

	// second pass resolves the peers named by the descriptors
	for _, nd := range tc.Nodes {
		node := topo.nodeByName[nd.Name]
		for _, id := range nd.Interfaces {
			if len(id.Peer) == 0 {
				continue
			}
			intrfc := findIntrfc(node, id.Name)
			peer, present := topo.nodeByName[id.Peer]
			if !present {
				errs = append(errs, fmt.Errorf("%w: interface %s faces unknown node %s",
					ErrUnresolvable, intrfc.FullName(), id.Peer))
				continue
			}
			intrfc.peer = peer
			if len(id.Connects) == 0 {
				continue
			}
			carry := findIntrfc(peer, id.Connects)
			if carry == nil {
				errs = append(errs, fmt.Errorf("%w: interface %s connects to unknown interface %s.%s",
					ErrUnresolvable, intrfc.FullName(), id.Peer, id.Connects))
				continue
			}
			intrfc.carry = carry
		}
	}

	// a link described from both ends has to be described consistently
	for _, intrfc := range topo.intrfcs {
		if intrfc.carry != nil && intrfc.carry.peer != nil && intrfc.carry.peer != intrfc.device {
			errs = append(errs, fmt.Errorf("%w: %s connects to %s, which faces %s",
				ErrInconsistent, intrfc.FullName(), intrfc.carry.FullName(), intrfc.carry.peer.name))
		}
	}
	if err := ReportErrs(errs); err != nil {
		return nil, err
	}

	topo.routes = createRouteTable(topo)
	return topo, nil
}

// findIntrfc returns the named interface of node, nil if it has none of that name
func findIntrfc(node *Node, name string) *Intrfc {
	for _, intrfc := range node.intrfcs {
		if intrfc.name == name {
			return intrfc
		}
	}
	return nil
}
