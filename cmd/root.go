package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "relayctl",
		Short:         "Juice bot relay: gate and encode bot automation calls",
		Long:          "relayctl runs the juice bot relay. It keeps the relay configuration and retry records in a store backend, encodes admitted bot actions into ABI call data and hands them to the outbound relay.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (env and .env are always read)")

	rootCmd.AddCommand(
		newInstantiateCmd(opts),
		newExecuteCmd(opts),
		newQueryCmd(opts),
		newRetriesCmd(opts),
		newDecodeCmd(),
		newSelectorsCmd(),
		newServeCmd(opts),
	)

	return rootCmd
}
