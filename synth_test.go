package gatesched

import (
	"github.com/iti/rngstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestGenerateStreamCfg(t *testing.T) {
	topo := starTopo(t, 0, 1e-6, 2e-6)
	params := SynthParams{Name: "synthetic", Streams: 6, CycleDuration: 1e-3, MaxDivisor: 2}

	sc, err := GenerateStreamCfg(topo, params, rngstream.New("synth-test"))
	require.NoError(t, err)
	require.NoError(t, sc.Validate())
	assert.Equal(t, "synthetic", sc.Name)
	require.Len(t, sc.Streams, 6)

	for _, sd := range sc.Streams {
		assert.NotEqual(t, sd.Source, sd.Destination)
		assert.NotEqual(t, "sw", sd.Source, "switches are not endpoints when hosts exist")
		assert.NotEqual(t, "sw", sd.Destination)
		assert.GreaterOrEqual(t, sd.Priority, 0)
		assert.Less(t, sd.Priority, 8)
		assert.GreaterOrEqual(t, sd.PacketLength, int64(8*minFrameBytes))
		assert.LessOrEqual(t, sd.PacketLength, int64(8*maxFrameBytes))
	}

	// the generated load is small enough for the star to carry
	sched, err := Run(topo, sc, Options{})
	require.NoError(t, err)
	assert.Len(t, sched.Streams, 6)
}

func TestGenerateStreamCfgErrors(t *testing.T) {
	rng := rngstream.New("synth-errors")
	params := SynthParams{Streams: 1, CycleDuration: 1e-3}

	_, err := GenerateStreamCfg(&Topology{}, params, rng)
	assert.ErrorIs(t, err, ErrEmptyTopology)

	tf := CreateTopoCfgFrame("lonely")
	tf.AddNode(CreateNodeFrame("h1", "Host", 8))
	_, err = GenerateStreamCfg(buildTopo(t, tf), params, rng)
	assert.ErrorIs(t, err, ErrInconsistent)

	tf.AddNode(CreateNodeFrame("h2", "Host", 8))
	_, err = GenerateStreamCfg(buildTopo(t, tf), params, rng)
	assert.ErrorIs(t, err, ErrInconsistent, "hosts without a link between them")

	_, err = GenerateStreamCfg(pairTopo(t), SynthParams{Streams: 1}, rng)
	assert.ErrorIs(t, err, ErrInconsistent, "cycle duration is required")
}
