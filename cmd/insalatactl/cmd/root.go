package cmd

import (
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverAddr   string
	outputFormat string
	httpClient   = &http.Client{Timeout: 30 * time.Second}
)

var rootCmd = &cobra.Command{
	Use:   "insalatactl",
	Short: "Control client for the insalatad reconciliation daemon",
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverAddr, "server", "http://localhost:8420", "insalatad command server base URL")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "output format: text, yaml, or json")

	rootCmd.AddCommand(getEnvironmentsCmd)
	rootCmd.AddCommand(getCommandsCmd)
	rootCmd.AddCommand(uploadConfigurationCmd)
	rootCmd.AddCommand(listFilesCmd)
	rootCmd.AddCommand(getFileCmd)
	rootCmd.AddCommand(applyConfigurationCmd)
	rootCmd.AddCommand(exportEnvironmentCmd)
	rootCmd.AddCommand(getSetupProgressCmd)
}
