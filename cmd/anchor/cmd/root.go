package cmd

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/chainproof/anchor"
)

var rootCmd = &cobra.Command{
	Use:   "anchor",
	Short: "Supply-chain event anchoring CLI",
	Long:  "CLI for anchoring supply-chain event payloads to the Kaspa ledger and managing the off-chain payload store.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ~/.config/anchor/config.yaml)")
	rootCmd.PersistentFlags().String("data-dir", "", "payload store directory (default: ~/.local/share/anchor)")
	rootCmd.PersistentFlags().String("submitter", "", "path to the kaspa-broadcaster binary")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")

	viper.BindPFlag("data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	viper.BindPFlag("submitter_bin", rootCmd.PersistentFlags().Lookup("submitter"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func initConfig() {
	if cfg := rootCmd.PersistentFlags().Lookup("config").Value.String(); cfg != "" {
		viper.SetConfigFile(cfg)
	} else {
		viper.AddConfigPath(configDir())
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("ANCHOR")
	viper.AutomaticEnv()
	viper.SetDefault("data_dir", defaultDataDir())
	viper.SetDefault("submitter_bin", anchor.DefaultSubmitterBin)
	viper.SetDefault("inline_threshold", anchor.DefaultInlineThreshold)
	viper.SetDefault("hard_ceiling", anchor.DefaultHardCeiling)
	viper.SetDefault("soft_timeout", anchor.DefaultSoftTimeout.String())
	viper.SetDefault("hard_timeout", anchor.DefaultHardTimeout.String())
	viper.SetDefault("compression", false)
	viper.SetDefault("compression_level", 2)
	viper.SetDefault("replica_ref", "")

	viper.ReadInConfig()
}

func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "anchor")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "anchor")
	}
	return ".anchor"
}

func defaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "anchor")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "anchor")
	}
	return ".anchor"
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if viper.GetBool("verbose") {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// openService builds a Service from the effective configuration.
func openService() (*anchor.Service, error) {
	opts := []anchor.Option{
		anchor.WithSubmitter(viper.GetString("submitter_bin")),
		anchor.WithPolicy(anchor.Policy{
			InlineThresholdBytes: viper.GetInt("inline_threshold"),
			HardCeilingBytes:     viper.GetInt("hard_ceiling"),
		}),
		anchor.WithLogger(newLogger()),
	}

	soft, err := time.ParseDuration(viper.GetString("soft_timeout"))
	if err == nil {
		if hard, herr := time.ParseDuration(viper.GetString("hard_timeout")); herr == nil {
			opts = append(opts, anchor.WithTimeouts(soft, hard))
		}
	}

	if viper.GetBool("compression") {
		opts = append(opts, anchor.WithCompression(viper.GetInt("compression_level")))
	}
	if ref := viper.GetString("replica_ref"); ref != "" {
		opts = append(opts, anchor.WithReplica(ref))
	}

	return anchor.Open(viper.GetString("data_dir"), opts...)
}
