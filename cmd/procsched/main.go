package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/viant/procsched"
)

func newRootCmd() *cobra.Command {
	v := viper.New()
	var cfgFile string
	rootCmd := &cobra.Command{
		Use:           "procsched",
		Short:         "Multi-level process scheduler simulator",
		Long:          `procsched runs YAML workloads on a simulated multi-CPU kernel with round-robin, SJF and FCFS queues`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./procsched.yaml)")
	flags.Int("cpus", 0, "number of simulated CPUs (default is the physical core count)")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("dump-url", "", "location process listings are saved to")
	_ = v.BindPFlag("machine.cpus", flags.Lookup("cpus"))
	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = v.BindPFlag("dump.url", flags.Lookup("dump-url"))

	rootCmd.AddCommand(newRunCmd(v, &cfgFile))
	rootCmd.AddCommand(newPsCmd())
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "procsched v%s\n", procsched.Version)
		},
	})
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
