package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/txmatch/internal/api"
	"github.com/Veraticus/txmatch/internal/certs"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve matching over HTTP",
		Long: `Start an HTTP server exposing:

  GET  /api/health     liveness and chart size
  GET  /api/accounts   the chart of accounts (?leaf=true for leaves)
  POST /api/match      match a batch of transactions

With --tls a self-signed certificate for localhost is created under
server.cert_dir on first use and reused until it expires.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := loadApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			eng, _, err := a.newEngine(ctx, engineOptions{})
			if err != nil {
				return err
			}

			cfg := api.DefaultConfig()
			cfg.Port = a.cfg.Server.Port
			if a.cfg.Server.TLS {
				store := certs.NewStore(a.cfg.Server.CertDir)
				if cfg.TLS, err = certs.TLSConfig(store); err != nil {
					return fmt.Errorf("failed to prepare TLS certificate: %w", err)
				}
				certPath, _ := store.Paths()
				a.logger.Info("serving HTTPS with self-signed certificate", "cert", certPath)
			}
			return api.NewServer(cfg, a.chart, eng, a.logger).Run(ctx)
		},
	}

	cmd.Flags().IntP("port", "p", 8080, "port to listen on")
	_ = viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	cmd.Flags().Bool("tls", false, "serve HTTPS with a self-signed localhost certificate")
	_ = viper.BindPFlag("server.tls", cmd.Flags().Lookup("tls"))

	return cmd
}
