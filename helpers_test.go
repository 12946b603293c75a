package gatesched

import (
	"fmt"
	"github.com/iti/evt/vrtime"
	"github.com/stretchr/testify/require"
	"testing"
)

// every test link runs at 1 Gbps, so a bit takes a nanosecond
const testRate = 1e9

// testGap is the default guard gap at testRate
const testGap = 96 * Nanosecond

// bitsFor returns the packet length whose transmission at testRate takes d
func bitsFor(d Time) int64 {
	return int64(d / Nanosecond)
}

// setTicksPerSecond changes the vrtime tick rate for the rest of the test
func setTicksPerSecond(t *testing.T, tps int64) {
	t.Helper()
	saved := vrtime.TicksPerSecond
	vrtime.SetTicksPerSecond(tps)
	t.Cleanup(func() { vrtime.SetTicksPerSecond(saved) })
}

func buildTopo(t *testing.T, tf *TopoCfgFrame) *Topology {
	t.Helper()
	tc := tf.Transform()
	topo, err := CreateTopology(&tc)
	require.NoError(t, err)
	return topo
}

// starTopo connects hosts h1, h2, ... to the switch sw, host i over a link with latencies[i-1].
// Every interface is gated with 8 gates.  Host hN reaches the switch through hN.eth0 and is
// reached from it through sw.eth<N-1>.
func starTopo(t *testing.T, latencies ...float64) *Topology {
	t.Helper()
	tf := CreateTopoCfgFrame("star")
	sw := CreateNodeFrame("sw", "Switch", 8)
	tf.AddNode(sw)
	for idx, latency := range latencies {
		host := CreateNodeFrame(fmt.Sprintf("h%d", idx+1), "Host", 8)
		require.NoError(t, ConnectNodes(host, sw, testRate, latency))
		tf.AddNode(host)
	}
	return buildTopo(t, tf)
}

// pairTopo is a single gated link between h1 and h2
func pairTopo(t *testing.T) *Topology {
	t.Helper()
	tf := CreateTopoCfgFrame("pair")
	h1 := CreateNodeFrame("h1", "Host", 8)
	h2 := CreateNodeFrame("h2", "Host", 8)
	require.NoError(t, ConnectNodes(h1, h2, testRate, 0))
	tf.AddNode(h1)
	tf.AddNode(h2)
	return buildTopo(t, tf)
}

func stream(name, src, dst string, priority int, length Time, interval Time) StreamDesc {
	return StreamDesc{Name: name, Source: src, Destination: dst, Priority: priority,
		PacketLength: bitsFor(length), PacketInterval: interval.Seconds(), MaxLatency: interval.Seconds()}
}

func mustIntrfc(t *testing.T, topo *Topology, node, name string) *Intrfc {
	t.Helper()
	n := topo.NodeByName(node)
	require.NotNil(t, n, "node %s", node)
	intrfc := findIntrfc(n, name)
	require.NotNil(t, intrfc, "interface %s.%s", node, name)
	return intrfc
}
