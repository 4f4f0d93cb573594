// Package cmd wires the Cobra command tree for the scheduled CLI to the
// engine facade, binding flags through Viper the same way the teacher's
// command tree bound its API key and mount flags.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jra3/scheduled/internal/config"
	"github.com/jra3/scheduled/internal/engine"
	"github.com/jra3/scheduled/internal/optimize"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "scheduled",
	Short: "Import, edit, and analyze Microsoft Project schedules",
	Long: `scheduled ingests Microsoft Project XML schedules into an embedded store,
validates them, computes critical path analytics, proposes schedule
compression strategies, and exports back to the original XML shape.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/scheduled/config.yaml)")
	rootCmd.PersistentFlags().String("store", "", "path to the schedule store database")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "enable debug logging")

	viper.BindPFlag("store", rootCmd.PersistentFlags().Lookup("store"))
	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return
		}
		viper.AddConfigPath(home + "/.config/scheduled")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("SCHEDULED")
	viper.AutomaticEnv()
	viper.ReadInConfig()
}

// openEngine loads configuration and opens the engine against the
// configured (or default) store path. Callers are responsible for
// closing the returned engine.
func openEngine() (*engine.Engine, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	storePath := viper.GetString("store")
	if storePath == "" {
		storePath = cfg.Store.Path
	}

	params := optimize.Params{
		LagReductionPercent:   cfg.Optimize.LagReductionPercent,
		CompressionPercent:    cfg.Optimize.CompressionPercent,
		CompressionMinHours:   cfg.Optimize.CompressionMinHours,
		CompressionCostPerDay: cfg.Optimize.CompressionCostPerDay,
	}

	return engine.Open(storePath, params)
}
