package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Replicate the payload store to the configured OCI registry",
	Args:  cobra.NoArgs,
	RunE:  runPush,
}

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Restore payload objects from the configured OCI registry",
	Args:  cobra.NoArgs,
	RunE:  runPull,
}

func init() {
	rootCmd.AddCommand(pushCmd)
	rootCmd.AddCommand(pullCmd)
}

func runPush(cmd *cobra.Command, args []string) error {
	svc, err := openService()
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Pushing to %s...\n", viper.GetString("replica_ref"))
	if err := svc.PushReplica(cmd.Context()); err != nil {
		return fmt.Errorf("push failed: %w", err)
	}
	fmt.Fprintln(os.Stderr, "Done.")
	return nil
}

func runPull(cmd *cobra.Command, args []string) error {
	svc, err := openService()
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Pulling from %s...\n", viper.GetString("replica_ref"))
	if err := svc.PullReplica(cmd.Context()); err != nil {
		return fmt.Errorf("pull failed: %w", err)
	}
	fmt.Fprintln(os.Stderr, "Done.")
	return nil
}
