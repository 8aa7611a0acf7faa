// Package cli wires the routeopt commands.
package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"parcelroute/internal/config"
)

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	rootCmd := &cobra.Command{
		Use:           "routeopt",
		Short:         "Assign packages to capacity-limited vehicles",
		Long:          "routeopt plans which vehicle carries which package, and in what order, using simulated annealing, a genetic search, or both side by side.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().String("config", "", "YAML config file")

	rootCmd.AddCommand(
		newVersionCmd(),
		newSolveCmd(v),
		newSamplesCmd(),
		newServeCmd(v),
		newWatchCmd(),
	)
	return rootCmd
}

// loadConfig reads --config and whatever flags the command bound on v.
func loadConfig(cmd *cobra.Command, v *viper.Viper, flagKeys map[string]string) (config.Config, error) {
	for flag, key := range flagKeys {
		if f := cmd.Flags().Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return config.Config{}, err
			}
		}
	}
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, err
	}
	return config.Load(v, path)
}
