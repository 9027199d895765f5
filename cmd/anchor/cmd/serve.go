package cmd

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/chainproof/anchor/internal/payloadhttp"
	"github.com/chainproof/anchor/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the payload retrieval endpoint",
	Long:  "Expose GET /payload/{digest} (and /verify, /stats) over HTTP for retrieval layers.",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "listen address")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	st, err := store.NewLocalStore(viper.GetString("data_dir"), 0,
		viper.GetInt("compression_level"), viper.GetBool("compression"), logger)
	if err != nil {
		return err
	}

	addr, _ := cmd.Flags().GetString("addr")
	fmt.Fprintf(os.Stderr, "Serving payloads on %s\n", addr)

	server := &http.Server{
		Addr:    addr,
		Handler: payloadhttp.Handler(st, logger),
	}
	return server.ListenAndServe()
}
