// Package main contains the txmatch CLI commands.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/txmatch/internal/cli"
	"github.com/Veraticus/txmatch/internal/common"
	"github.com/Veraticus/txmatch/internal/config"
)

var (
	cfgFile string
	version = "dev"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "txmatch",
		Short: "📒 Match bank transactions to a chart of accounts",
		Long: `txmatch matches bank transactions to the accounts of a chart of accounts.

Confirmed descriptions and rules are tried first; transactions left below the
confidence threshold are offered to an LLM. Results are written to CSV or Excel
with the best match and every alternative considered.`,
		PersistentPreRunE: initConfig,
		SilenceUsage:      true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.config/txmatch/config.yaml)")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "console", "log format (console, json)")
	root.PersistentFlags().String("chart", "", "chart of accounts file (JSON or YAML)")
	root.PersistentFlags().String("storage", "", "rules and mappings backend (file, sqlite)")

	_ = viper.BindPFlag("logging.level", root.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", root.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("chart.path", root.PersistentFlags().Lookup("chart"))
	_ = viper.BindPFlag("storage.backend", root.PersistentFlags().Lookup("storage"))

	root.AddCommand(matchCmd())
	root.AddCommand(rulesCmd())
	root.AddCommand(mappingsCmd())
	root.AddCommand(accountsCmd())
	root.AddCommand(runsCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(versionCmd())

	return root
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Debug("Received interrupt signal, shutting down gracefully...")
		cancel()
	}()

	err := newRootCmd().ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, cli.FormatError(err.Error()))
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		viper.AddConfigPath(fmt.Sprintf("%s/.config/txmatch", home))
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("TXMATCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	config.SetDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := setupLogging(); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	return nil
}

func setupLogging() error {
	level, err := common.ParseLevel(viper.GetString("logging.level"))
	if err != nil {
		return err
	}
	format := viper.GetString("logging.format")
	switch format {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log format: %s", format)
	}
	common.SetupLogger(level, format)
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "txmatch %s\n", version)
		},
	}
}
