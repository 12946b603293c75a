package main

import (
	"github.com/iti/gatesched"
	"github.com/iti/rngstream"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func newSynth(config *viper.Viper) *cobra.Command {
	var flags struct {
		topo    string
		out     string
		name    string
		seed    string
		streams int
		cycle   float64
		divisor int
	}

	cmd := &cobra.Command{
		Use:     "synth",
		Short:   "Generate a random stream configuration for a topology",
		Example: `  gatesched synth --topo topo.yaml --streams 20 --cycle 0.001 --out streams.yaml`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := gatesched.CheckReadableFiles([]string{flags.topo}); err != nil {
				return err
			}
			if _, err := gatesched.CheckOutputFiles([]string{flags.out}); err != nil {
				return err
			}
			cmd.SilenceUsage = true

			logger, err := newLogger(config)
			if err != nil {
				return err
			}
			defer logger.Sync()

			tc, err := gatesched.ReadTopoCfg(flags.topo, gatesched.UseYAMLFor(flags.topo), nil)
			if err != nil {
				return err
			}
			topo, err := gatesched.CreateTopology(tc)
			if err != nil {
				return err
			}

			params := gatesched.SynthParams{Name: flags.name, Streams: flags.streams,
				CycleDuration: flags.cycle, MaxDivisor: flags.divisor}
			sc, err := gatesched.GenerateStreamCfg(topo, params, rngstream.New(flags.seed))
			if err != nil {
				return err
			}
			if err := sc.WriteToFile(flags.out); err != nil {
				return err
			}
			logger.Info("stream configuration generated",
				zap.String("file", flags.out),
				zap.Int("streams", len(sc.Streams)))
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.topo, "topo", "", "topology file (yaml or json)")
	cmd.Flags().StringVar(&flags.out, "out", "", "stream configuration output file, yaml or json by extension")
	cmd.Flags().StringVar(&flags.name, "name", "synthetic", "name of the stream configuration")
	cmd.Flags().StringVar(&flags.seed, "rng", "gatesched", "name of the random number stream")
	cmd.Flags().IntVar(&flags.streams, "streams", 10, "number of streams")
	cmd.Flags().Float64Var(&flags.cycle, "cycle", 0.001, "cycle duration in seconds")
	cmd.Flags().IntVar(&flags.divisor, "max-divisor", 4, "packet intervals are cycle/d for d up to this value")
	_ = cmd.MarkFlagRequired("topo")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}
