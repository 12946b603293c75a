package main

import (
	"fmt"
	"github.com/iti/gatesched"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"io"
	"strings"
)

func newSchedule(config *viper.Viper) *cobra.Command {
	var flags struct {
		topo    string
		streams string
		out     string
		csv     string
		trace   string
		metrics bool
	}

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Compute the gate control lists of a stream configuration",
		Example: `  gatesched schedule --topo topo.yaml --streams streams.yaml --out gates.yaml
  gatesched schedule --topo topo.json --streams streams.json --csv gates.csv --trace trace.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := gatesched.CheckReadableFiles([]string{flags.topo, flags.streams}); err != nil {
				return err
			}
			if _, err := gatesched.CheckOutputFiles([]string{flags.out, flags.csv, flags.trace}); err != nil {
				return err
			}
			cmd.SilenceUsage = true

			logger, err := newLogger(config)
			if err != nil {
				return err
			}
			defer logger.Sync()

			reg := prometheus.NewRegistry()
			opts := gatesched.Options{
				InterFrameGapBits:   config.GetInt64(cfgIfgBits),
				MaxOffsetIterations: config.GetInt(cfgMaxIterations),
				Logger:              logger,
				Trace:               gatesched.CreateTraceManager(flags.streams, len(flags.trace) > 0),
				Metrics:             gatesched.CreateMetrics(reg),
			}

			syn := map[string]string{"topo": flags.topo, "streams": flags.streams}
			sched, err := gatesched.BuildSchedule(syn, opts)
			if err != nil {
				return err
			}

			if len(flags.out) > 0 {
				if err := sched.WriteToFile(flags.out); err != nil {
					return err
				}
			} else if err := printSchedule(cmd.OutOrStdout(), sched); err != nil {
				return err
			}
			if len(flags.csv) > 0 {
				if err := sched.WriteGateCSV(flags.csv); err != nil {
					return err
				}
			}
			if len(flags.trace) > 0 {
				if _, err := opts.Trace.WriteToFile(flags.trace); err != nil {
					return err
				}
			}
			if flags.metrics {
				return printMetrics(cmd.OutOrStdout(), reg, logger)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.topo, "topo", "", "topology file (yaml or json)")
	cmd.Flags().StringVar(&flags.streams, "streams", "", "stream configuration file (yaml or json)")
	cmd.Flags().StringVar(&flags.out, "out", "", "schedule output file, yaml or json by extension (default: summary to stdout)")
	cmd.Flags().StringVar(&flags.csv, "csv", "", "gate control list csv output file")
	cmd.Flags().StringVar(&flags.trace, "trace", "", "placement trace output file")
	cmd.Flags().BoolVar(&flags.metrics, "metrics", false, "print scheduler metrics after the run")
	cmd.Flags().Int64(cfgIfgBits, gatesched.DefaultInterFrameGapBits, "guard gap between windows, in bit times")
	cmd.Flags().Int(cfgMaxIterations, gatesched.DefaultMaxOffsetIterations, "bound on start offset search iterations per stream")
	_ = cmd.MarkFlagRequired("topo")
	_ = cmd.MarkFlagRequired("streams")
	for _, key := range []string{cfgIfgBits, cfgMaxIterations} {
		_ = config.BindPFlag(key, cmd.Flags().Lookup(key))
	}

	return cmd
}

// printSchedule writes a human readable summary of the schedule
func printSchedule(w io.Writer, sched *gatesched.Schedule) error {
	if _, err := fmt.Fprintf(w, "%s: cycle %v\n", sched.Name, sched.CycleDuration); err != nil {
		return err
	}
	for _, so := range sched.Streams {
		fmt.Fprintf(w, "  stream %s %s->%s priority %d offset %v (%d per cycle)\n",
			so.Stream, so.Source, so.Destination, so.Priority, so.StartOffset, so.Instances)
	}
	for idx := range sched.Gates {
		gcl := &sched.Gates[idx]
		fmt.Fprintf(w, "  gate %s.%s[%d] open=%t %s\n",
			gcl.Node, gcl.Interface, gcl.Gate, gcl.InitiallyOpen, gcl.DurationString())
	}
	return nil
}

// printMetrics writes the counters and gauges the run recorded
func printMetrics(w io.Writer, reg *prometheus.Registry, logger *zap.Logger) error {
	families, err := reg.Gather()
	if err != nil {
		logger.Warn("gathering metrics", zap.Error(err))
		return nil
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			name := mf.GetName()
			if labels := m.GetLabel(); len(labels) > 0 {
				pairs := make([]string, 0, len(labels))
				for _, lp := range labels {
					pairs = append(pairs, lp.GetName()+"="+lp.GetValue())
				}
				name += "{" + strings.Join(pairs, ",") + "}"
			}
			switch {
			case m.GetCounter() != nil:
				fmt.Fprintf(w, "%s %v\n", name, m.GetCounter().GetValue())
			case m.GetGauge() != nil:
				fmt.Fprintf(w, "%s %v\n", name, m.GetGauge().GetValue())
			case m.GetHistogram() != nil:
				fmt.Fprintf(w, "%s count=%d sum=%v\n", name,
					m.GetHistogram().GetSampleCount(), m.GetHistogram().GetSampleSum())
			}
		}
	}
	return nil
}
