package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show payload store statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	svc, err := openService()
	if err != nil {
		return err
	}

	st, err := svc.Store().Stats(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("objects:     %d\n", st.Count)
	fmt.Printf("total bytes: %d\n", st.TotalBytes)
	fmt.Printf("avg bytes:   %d\n", st.AvgBytes)
	return nil
}
