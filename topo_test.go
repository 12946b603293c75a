package gatesched

import (
	"fmt"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"path/filepath"
	"testing"
)

// diamondFrame is a -> {b, c} -> d, with the b and c branches equally long
func diamondFrame(t *testing.T) *TopoCfgFrame {
	t.Helper()
	tf := CreateTopoCfgFrame("diamond")
	a := CreateNodeFrame("a", "Host", 8)
	c := CreateNodeFrame("c", "Switch", 8)
	b := CreateNodeFrame("b", "Switch", 8)
	d := CreateNodeFrame("d", "Host", 8)
	for _, pair := range [][2]*NodeFrame{{a, c}, {a, b}, {c, d}, {b, d}} {
		require.NoError(t, ConnectNodes(pair[0], pair[1], testRate, 1e-6))
	}
	for _, nf := range []*NodeFrame{a, c, b, d} {
		tf.AddNode(nf)
	}
	return tf
}

func TestCreateTopology(t *testing.T) {
	topo := buildTopo(t, diamondFrame(t))

	require.Len(t, topo.Nodes(), 4)
	require.Len(t, topo.Interfaces(), 8)

	a := topo.NodeByName("a")
	require.NotNil(t, a)
	assert.Equal(t, "Host", a.DevType())
	require.Len(t, a.Interfaces(), 2)

	eth0 := a.Interfaces()[0]
	assert.Equal(t, "a.eth0", eth0.FullName())
	assert.Equal(t, "c", eth0.PeerName())
	assert.Equal(t, Microsecond, eth0.Latency())
	assert.Equal(t, testRate, eth0.Datarate())
	assert.True(t, eth0.Gated())
	assert.Equal(t, 8, eth0.Gates())

	assert.Same(t, eth0, a.linkOut("c"))
	assert.Nil(t, a.linkOut("d"))
	assert.Nil(t, topo.NodeByName("z"))
}

func TestCreateTopologyErrors(t *testing.T) {
	link := func(name, peer, connects string) IntrfcDesc {
		return IntrfcDesc{Name: name, Peer: peer, Connects: connects, Datarate: testRate}
	}

	tests := []struct {
		name    string
		tc      *TopoCfg
		wantErr error
	}{
		{"nil", nil, ErrEmptyTopology},
		{"no nodes", &TopoCfg{Name: "empty"}, ErrEmptyTopology},
		{
			"duplicate node",
			&TopoCfg{Nodes: []NodeDesc{{Name: "a"}, {Name: "a"}}},
			ErrInconsistent,
		},
		{
			"unnamed node",
			&TopoCfg{Nodes: []NodeDesc{{Name: ""}}},
			ErrInconsistent,
		},
		{
			"duplicate interface",
			&TopoCfg{Nodes: []NodeDesc{{Name: "a", Interfaces: []IntrfcDesc{link("eth0", "", ""), link("eth0", "", "")}}}},
			ErrInconsistent,
		},
		{
			"negative latency",
			&TopoCfg{Nodes: []NodeDesc{{Name: "a", Interfaces: []IntrfcDesc{{Name: "eth0", Latency: -1}}}}},
			ErrInconsistent,
		},
		{
			"unknown peer",
			&TopoCfg{Nodes: []NodeDesc{{Name: "a", Interfaces: []IntrfcDesc{link("eth0", "b", "eth0")}}}},
			ErrUnresolvable,
		},
		{
			"unknown peer interface",
			&TopoCfg{Nodes: []NodeDesc{
				{Name: "a", Interfaces: []IntrfcDesc{link("eth0", "b", "eth9")}},
				{Name: "b", Interfaces: []IntrfcDesc{link("eth0", "a", "eth0")}},
			}},
			ErrUnresolvable,
		},
		{
			"link described differently at both ends",
			&TopoCfg{Nodes: []NodeDesc{
				{Name: "a", Interfaces: []IntrfcDesc{link("eth0", "b", "eth0")}},
				{Name: "b", Interfaces: []IntrfcDesc{link("eth0", "c", "eth0")}},
				{Name: "c", Interfaces: []IntrfcDesc{link("eth0", "b", "eth0")}},
			}},
			ErrInconsistent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			topo, err := CreateTopology(tt.tc)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, topo)
		})
	}
}

func TestRoute(t *testing.T) {
	for i := 0; i < 10; i++ {
		topo := buildTopo(t, diamondFrame(t))

		route, ok := topo.Route("a", "d")
		require.True(t, ok)
		assert.Equal(t, []string{"a", "b", "d"}, route, "ties go to the lexicographically smallest path")

		route, ok = topo.Route("d", "a")
		require.True(t, ok)
		assert.Equal(t, []string{"d", "b", "a"}, route)
	}

	topo := buildTopo(t, diamondFrame(t))
	route, ok := topo.Route("a", "c")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "c"}, route)

	_, ok = topo.Route("a", "nowhere")
	assert.False(t, ok)
}

// gridFrame is a size x size mesh of switches named nRR_CC, each linked to its row and column neighbors
func gridFrame(t *testing.T, size int) *TopoCfgFrame {
	t.Helper()
	tf := CreateTopoCfgFrame("grid")
	nodes := make([][]*NodeFrame, size)
	for r := 0; r < size; r++ {
		nodes[r] = make([]*NodeFrame, size)
		for c := 0; c < size; c++ {
			nodes[r][c] = CreateNodeFrame(fmt.Sprintf("n%02d_%02d", r, c), "Switch", 8)
			tf.AddNode(nodes[r][c])
			if r > 0 {
				require.NoError(t, ConnectNodes(nodes[r-1][c], nodes[r][c], testRate, 1e-6))
			}
			if c > 0 {
				require.NoError(t, ConnectNodes(nodes[r][c-1], nodes[r][c], testRate, 1e-6))
			}
		}
	}
	return tf
}

func TestRouteGrid(t *testing.T) {
	// corner to corner, a 16x16 mesh has C(30,15) shortest paths
	const size = 16
	topo := buildTopo(t, gridFrame(t, size))

	var right, left []string
	for c := 0; c < size; c++ {
		right = append(right, fmt.Sprintf("n00_%02d", c))
	}
	for r := 1; r < size; r++ {
		right = append(right, fmt.Sprintf("n%02d_%02d", r, size-1))
	}
	route, ok := topo.Route("n00_00", fmt.Sprintf("n%02d_%02d", size-1, size-1))
	require.True(t, ok)
	assert.Equal(t, right, route, "along row 0, then down the last column")

	for r := size - 1; r >= 0; r-- {
		left = append(left, fmt.Sprintf("n%02d_%02d", r, size-1))
	}
	for c := size - 2; c >= 0; c-- {
		left = append(left, fmt.Sprintf("n00_%02d", c))
	}
	route, ok = topo.Route(fmt.Sprintf("n%02d_%02d", size-1, size-1), "n00_00")
	require.True(t, ok)
	assert.Equal(t, left, route, "up the last column, then along row 0")

	route, ok = topo.Route("n03_04", "n03_04")
	require.True(t, ok)
	assert.Equal(t, []string{"n03_04"}, route)
}

func TestTopoCfgFiles(t *testing.T) {
	tc := diamondFrame(t).Transform()
	dir := t.TempDir()

	for _, name := range []string{"topo.yaml", "topo.json"} {
		t.Run(name, func(t *testing.T) {
			filename := filepath.Join(dir, name)
			require.NoError(t, tc.WriteToFile(filename))

			read, err := ReadTopoCfg(filename, UseYAMLFor(filename), nil)
			require.NoError(t, err)
			if diff := cmp.Diff(&tc, read, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("read back mismatch (-want +got):\n%s", diff)
			}
		})
	}

	assert.Error(t, tc.WriteToFile(filepath.Join(dir, "topo.txt")))
	_, err := ReadTopoCfg(filepath.Join(dir, "absent.yaml"), true, nil)
	assert.Error(t, err)
}

func TestReadTopoCfgBytes(t *testing.T) {
	dict := []byte(`
name: inline
nodes:
  - name: h1
    devtype: Host
    interfaces:
      - name: eth0
        peer: h2
        connects: eth0
        datarate: 1.0e+9
        latency: 2.0e-6
        gates: 4
  - name: h2
    devtype: Host
    interfaces:
      - name: eth0
        peer: h1
        connects: eth0
        datarate: 1.0e+9
`)
	tc, err := ReadTopoCfg("", true, dict)
	require.NoError(t, err)

	topo, err := CreateTopology(tc)
	require.NoError(t, err)
	h1 := mustIntrfc(t, topo, "h1", "eth0")
	assert.Equal(t, 2*Microsecond, h1.Latency())
	assert.Equal(t, 4, h1.Gates())
	assert.False(t, mustIntrfc(t, topo, "h2", "eth0").Gated())
}

func TestNodeFrame(t *testing.T) {
	nf := CreateNodeFrame("sw", "Switch", 2)
	iff := CreateIntrfcFrame(nf, "", testRate, 0, 2)
	assert.Equal(t, "eth0", iff.Name)
	require.NoError(t, nf.AddIntrfc(iff))
	assert.Error(t, nf.AddIntrfc(iff))

	other := CreateIntrfcFrame(nf, "eth0", testRate, 0, 2)
	assert.Error(t, nf.AddIntrfc(other), "names are unique on a node")

	nd := nf.Transform()
	assert.Equal(t, "sw", nd.Interfaces[0].Device)
	assert.Empty(t, nd.Interfaces[0].Peer)

	tf := CreateTopoCfgFrame("dups")
	tf.AddNode(nf)
	tf.AddNode(CreateNodeFrame("sw", "Switch", 2))
	assert.Len(t, tf.Nodes, 1)
}

func TestCheckFiles(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "present.yaml")
	require.NoError(t, CreateStreamCfg("x", 1e-3).WriteToFile(present))

	ok, err := CheckReadableFiles([]string{present, ""})
	assert.True(t, ok)
	assert.NoError(t, err)

	ok, err = CheckReadableFiles([]string{filepath.Join(dir, "absent.yaml")})
	assert.False(t, ok)
	assert.Error(t, err)

	ok, err = CheckOutputFiles([]string{filepath.Join(dir, "new.yaml")})
	assert.True(t, ok)
	assert.NoError(t, err)

	ok, err = CheckOutputFiles([]string{filepath.Join(dir, "nodir", "new.yaml")})
	assert.False(t, ok)
	assert.Error(t, err)
}
