package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <txid>",
	Short: "Query a broadcast transaction",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	svc, err := openService()
	if err != nil {
		return err
	}

	result := svc.QueryTransaction(cmd.Context(), args[0])
	if !result.Success {
		return fmt.Errorf("query failed: %v", result.Err)
	}

	fmt.Print(result.RawOutput)
	return nil
}
