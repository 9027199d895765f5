package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var submitCmd = &cobra.Command{
	Use:   "submit <event-type> [payload-file]",
	Short: "Anchor an event payload to the ledger",
	Long: "Route an event payload (from a file, or stdin when omitted) through the " +
		"inline/off-chain policy and submit its anchor via the external broadcaster.",
	Args: cobra.RangeArgs(1, 2),
	RunE: runSubmit,
}

func init() {
	submitCmd.Flags().String("mnemonic", "", "wallet mnemonic (or ANCHOR_MNEMONIC)")
	viper.BindPFlag("mnemonic", submitCmd.Flags().Lookup("mnemonic"))
	rootCmd.AddCommand(submitCmd)
}

func runSubmit(cmd *cobra.Command, args []string) error {
	eventType := args[0]

	var payload []byte
	var err error
	if len(args) > 1 {
		payload, err = os.ReadFile(args[1])
	} else {
		payload, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return fmt.Errorf("read payload: %w", err)
	}

	secret := viper.GetString("mnemonic")
	if secret == "" {
		return fmt.Errorf("wallet mnemonic required (--mnemonic or ANCHOR_MNEMONIC)")
	}

	svc, err := openService()
	if err != nil {
		return err
	}

	result, err := svc.SubmitEvent(cmd.Context(), secret, payload, eventType)
	if err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("submission failed: %v", result.Err)
	}

	if result.TransactionID != "" {
		fmt.Println(result.TransactionID)
	} else {
		fmt.Fprintln(os.Stderr, "submitted, but no transaction id was reported")
	}
	return nil
}
