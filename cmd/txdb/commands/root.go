// Package commands implements the txdb CLI's subcommands.
package commands

import "github.com/spf13/cobra"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "txdb",
	Short: "Inspect and initialize a transaction database heap",
	Long: `txdb operates the on-disk heap and hash directory this module
uses to store blockchain transaction records.

Use "txdb [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/txdb/config.yaml)")
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
}
