// gatesched computes IEEE 802.1Qbv gate control lists for periodic streams
// over a topology described in yaml or json.
package main

import (
	"fmt"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"os"
	"path/filepath"
)

// configuration keys, shared by flags and the optional config file
const (
	cfgConfigFile    = "config"
	cfgVerbose       = "verbose"
	cfgIfgBits       = "ifg-bits"
	cfgMaxIterations = "max-iterations"
)

func main() {
	cmd, err := newRoot(filepath.Base(os.Args[0]), viper.New())
	if err == nil {
		err = cmd.Execute()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// newRoot builds the command tree.  All commands share one configuration store.
func newRoot(executable string, config *viper.Viper) (*cobra.Command, error) {
	cmd := &cobra.Command{
		Use:   executable,
		Short: "Time-aware shaper gate scheduler",
		Args:  cobra.NoArgs,
		// errors are printed once, by main
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(config)
		},
	}
	cmd.PersistentFlags().String(cfgConfigFile, "", "configuration file (yaml, json or toml)")
	cmd.PersistentFlags().BoolP(cfgVerbose, "v", false, "development logging at debug level")
	for _, key := range []string{cfgConfigFile, cfgVerbose} {
		if err := config.BindPFlag(key, cmd.PersistentFlags().Lookup(key)); err != nil {
			return nil, err
		}
	}

	cmd.AddCommand(
		newSchedule(config),
		newSynth(config),
		newVersion(),
	)
	return cmd, nil
}

// loadConfig reads the config file named by --config, if any.  Flags set on the
// command line take precedence over its values.
func loadConfig(config *viper.Viper) error {
	filename := config.GetString(cfgConfigFile)
	if len(filename) == 0 {
		return nil
	}
	config.SetConfigFile(filename)
	if err := config.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config %s: %w", filename, err)
	}
	return nil
}

// newLogger builds a development logger when verbose output is asked for, a production one otherwise
func newLogger(config *viper.Viper) (*zap.Logger, error) {
	if config.GetBool(cfgVerbose) {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
