package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that the external submitter is reachable",
	Args:  cobra.NoArgs,
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	svc, err := openService()
	if err != nil {
		return err
	}

	if !svc.TestConnection(cmd.Context()) {
		return fmt.Errorf("submitter %s is not reachable", viper.GetString("submitter_bin"))
	}

	fmt.Println("submitter ok")
	return nil
}
