package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "farmctl",
	Short: "Farm Monitor operator tooling",
	Long: `farmctl mints API tokens for farm operators and validates
threshold and alert rule definition files before deployment.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(newTokenCommand())
	rootCmd.AddCommand(newValidateCommand())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
