package gatesched

// routes.go computes the implicit path of a stream that has no explicit path fragments

import (
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
	"math"
)

// The general approach we use is to convert the topology into the data structures
// used by a graph package that has built-in path discovery algorithms.
// Weighting each link by 1, a shortest path minimizes the number of hops.
// Links are directed: a node reaches a neighbor only through one of its own egress interfaces.
//
// When several paths tie for fewest hops we choose the one whose sequence of node
// names is lexicographically smallest.  That keeps repeated runs on the same input identical.

// rtEndpts is the key of the route cache
type rtEndpts struct {
	srcID, dstID int64
}

// routeTable holds the graph representation of one topology and the routes computed over it
type routeTable struct {
	topo      *Topology
	connGraph *simple.WeightedDirectedGraph
	allSP     *path.AllShortest // computed on first use
	cache     map[rtEndpts][]string
}

// createRouteTable returns a routeTable whose graph has one node per topology node
// and one edge per linked interface
func createRouteTable(topo *Topology) *routeTable {
	connGraph := simple.NewWeightedDirectedGraph(0, math.Inf(1))
	for _, node := range topo.nodes {
		connGraph.AddNode(simple.Node(node.id))
	}

	for _, intrfc := range topo.intrfcs {
		// the graph package does not accept self loops, and they never shorten a path
		if intrfc.peer == nil || intrfc.peer == intrfc.device {
			continue
		}
		weightedEdge := simple.WeightedEdge{F: simple.Node(intrfc.device.id), T: simple.Node(intrfc.peer.id), W: 1.0}
		connGraph.SetWeightedEdge(weightedEdge)
	}

	return &routeTable{topo: topo, connGraph: connGraph, cache: make(map[rtEndpts][]string)}
}

// routeFrom returns the shortest path, as a sequence of node names including both ends,
// from src to dst.  The result is empty if dst cannot be reached from src.
func (rt *routeTable) routeFrom(src, dst *Node) []string {
	endpoints := rtEndpts{srcID: src.id, dstID: dst.id}
	if route, found := rt.cache[endpoints]; found {
		return route
	}

	if rt.allSP == nil {
		allSP := path.DijkstraAllPaths(rt.connGraph)
		rt.allSP = &allSP
	}

	// walk from src, stepping each time to the smallest-named neighbor that is one hop
	// closer to dst.  All shortest paths have the same length, so the first difference
	// between two of them decides their order, and the greedy choice yields the smallest.
	route := []string{}
	remaining := rt.allSP.Weight(src.id, dst.id)
	if math.IsInf(remaining, 1) {
		rt.cache[endpoints] = route
		return route
	}
	cur := src
	route = append(route, cur.name)
	for cur != dst {
		var next *Node
		for succ := rt.connGraph.From(cur.id); succ.Next(); {
			candidate := rt.topo.nodes[succ.Node().ID()]
			if rt.allSP.Weight(candidate.id, dst.id) != remaining-1 {
				continue
			}
			if next == nil || candidate.name < next.name {
				next = candidate
			}
		}
		cur = next
		remaining -= 1
		route = append(route, cur.name)
	}

	rt.cache[endpoints] = route
	return route
}

// Route returns the shortest path between the named nodes, as a list of node names.
// ok is false when either node is unknown or dst is not reachable from src
func (topo *Topology) Route(src, dst string) (route []string, ok bool) {
	srcNode, dstNode := topo.nodeByName[src], topo.nodeByName[dst]
	if srcNode == nil || dstNode == nil {
		return nil, false
	}
	route = topo.routes.routeFrom(srcNode, dstNode)
	return route, len(route) > 0
}
