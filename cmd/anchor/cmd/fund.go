package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var fundCmd = &cobra.Command{
	Use:   "fund <amount-kas> <recipient>",
	Short: "Submit a funding transfer",
	Args:  cobra.ExactArgs(2),
	RunE:  runFund,
}

func init() {
	rootCmd.AddCommand(fundCmd)
}

func runFund(cmd *cobra.Command, args []string) error {
	amount, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", args[0], err)
	}

	svc, err := openService()
	if err != nil {
		return err
	}

	result := svc.SubmitFunding(cmd.Context(), amount, args[1])
	if !result.Success {
		return fmt.Errorf("funding failed: %v", result.Err)
	}

	if result.TransactionID != "" {
		fmt.Println(result.TransactionID)
	}
	return nil
}
