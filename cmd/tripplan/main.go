package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alex-user-go/tripplan/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// rootOptions holds the flags shared by every subcommand.
type rootOptions struct {
	configPath string
	verbose    bool
}

func (o *rootOptions) load() (*config.Config, error) {
	return config.Load(o.configPath)
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "tripplan",
		Short: "Plan a trip from flight, lodging and weather providers",
		Long: `tripplan queries the configured flight, lodging and weather providers,
merges and normalizes their results, and ranks flight and lodging pairings
by value. Run "tripplan serve" to expose the planner over HTTP.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default is ./tripplan.yaml or ./config/tripplan.yaml)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log planner activity to stderr")

	root.AddCommand(
		newPlanCmd(opts),
		newServeCmd(opts),
		newConfigCmd(opts),
	)
	return root
}
