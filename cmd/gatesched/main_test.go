package main

import (
	"bytes"
	"github.com/iti/gatesched"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"os"
	"path/filepath"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd, err := newRoot("gatesched", viper.New())
	require.NoError(t, err)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), err
}

func writeTopo(t *testing.T, dir string) string {
	t.Helper()
	tf := gatesched.CreateTopoCfgFrame("cli")
	sw := gatesched.CreateNodeFrame("sw", "Switch", 8)
	tf.AddNode(sw)
	for _, name := range []string{"h1", "h2", "h3"} {
		host := gatesched.CreateNodeFrame(name, "Host", 8)
		require.NoError(t, gatesched.ConnectNodes(host, sw, 1e9, 1e-6))
		tf.AddNode(host)
	}
	tc := tf.Transform()
	filename := filepath.Join(dir, "topo.yaml")
	require.NoError(t, tc.WriteToFile(filename))
	return filename
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "gatesched version: v")
}

func TestSynthThenSchedule(t *testing.T) {
	dir := t.TempDir()
	topo := writeTopo(t, dir)
	streams := filepath.Join(dir, "streams.json")

	_, err := execute(t, "synth", "--topo", topo, "--out", streams, "--streams", "3", "--cycle", "0.001")
	require.NoError(t, err)

	sc, err := gatesched.ReadStreamCfg(streams, false, nil)
	require.NoError(t, err)
	assert.Len(t, sc.Streams, 3)

	out := filepath.Join(dir, "sched.yaml")
	gcsv := filepath.Join(dir, "gates.csv")
	trace := filepath.Join(dir, "trace.yaml")
	summary, err := execute(t, "schedule", "--topo", topo, "--streams", streams,
		"--out", out, "--csv", gcsv, "--trace", trace, "--metrics")
	require.NoError(t, err)
	assert.Contains(t, summary, "gatesched_runs_total{status=ok} 1")

	for _, filename := range []string{out, gcsv, trace} {
		_, err := os.Stat(filename)
		assert.NoError(t, err, filename)
	}
}

func TestScheduleSummary(t *testing.T) {
	dir := t.TempDir()
	topo := writeTopo(t, dir)

	sc := gatesched.CreateStreamCfg("summary", 1e-3)
	sc.AddStream(gatesched.StreamDesc{Name: "A", Source: "h1", Destination: "h2",
		PacketLength: 50000, PacketInterval: 1e-3})
	streams := filepath.Join(dir, "streams.yaml")
	require.NoError(t, sc.WriteToFile(streams))

	// the guard gap comes from the config file
	config := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(config, []byte("ifg-bits: 1000\n"), 0o644))

	out, err := execute(t, "schedule", "--topo", topo, "--streams", streams, "--config", config)
	require.NoError(t, err)
	assert.Contains(t, out, "stream A h1->h2 priority 0 offset 0s (1 per cycle)")
	assert.Contains(t, out, "gate h1.eth0[0] open=true [50us 950us]")
}

func TestScheduleErrors(t *testing.T) {
	dir := t.TempDir()
	topo := writeTopo(t, dir)

	_, err := execute(t, "schedule", "--topo", topo, "--streams", filepath.Join(dir, "absent.yaml"))
	assert.Error(t, err)

	_, err = execute(t, "schedule", "--topo", topo)
	assert.Error(t, err, "streams flag is required")

	sc := gatesched.CreateStreamCfg("overflow", 1e-3)
	sc.AddStream(gatesched.StreamDesc{Source: "h1", Destination: "h2", PacketLength: 2000000, PacketInterval: 1e-3})
	streams := filepath.Join(dir, "overflow.yaml")
	require.NoError(t, sc.WriteToFile(streams))
	_, err = execute(t, "schedule", "--topo", topo, "--streams", streams)
	assert.ErrorIs(t, err, gatesched.ErrCapacity)
}
