package main

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Veraticus/chainwatch/internal/apitest"
	"github.com/Veraticus/chainwatch/internal/certs"
	"github.com/Veraticus/chainwatch/internal/config"
)

func mockServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "mock-server",
		Short:  "Serve a fake analysis service for offline demos",
		Hidden: true,
		Long: `Serve a fake analysis service. With --tls a self-signed localhost
certificate is created under --cert-dir; point api.ca_file at the printed
certificate path so the client trusts it.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			seed, _ := cmd.Flags().GetUint64("seed")
			session, _ := cmd.Flags().GetString("session")
			accessLog, _ := cmd.Flags().GetBool("access-log")
			useTLS, _ := cmd.Flags().GetBool("tls")
			certDir, _ := cmd.Flags().GetString("cert-dir")

			var tlsCfg *tls.Config
			if useTLS {
				if certDir == "" {
					dir, err := config.Dir()
					if err != nil {
						return fmt.Errorf("failed to locate config directory: %w", err)
					}
					certDir = filepath.Join(dir, "certs")
				}
				manager := certs.NewFileManager(config.ExpandPath(certDir))
				cfg, err := manager.ServerConfig()
				if err != nil {
					return fmt.Errorf("failed to prepare TLS certificate: %w", err)
				}
				tlsCfg = cfg
				fmt.Fprintf(cmd.OutOrStdout(), "Trust %s via %s\n", manager.CertFile(), config.KeyAPICAFile)
			}

			srv := apitest.NewServer(apitest.Options{
				Logger:    slog.Default(),
				Session:   session,
				Seed:      seed,
				AccessLog: accessLog,
			})
			return srv.ListenAndServe(cmd.Context(), addr, tlsCfg)
		},
	}

	cmd.Flags().String("addr", "localhost:5000", "Listen address")
	cmd.Flags().Uint64("seed", 1, "Seed for generated trades and demo transactions")
	cmd.Flags().String("session", "", "Only accept this session cookie value")
	cmd.Flags().Bool("access-log", false, "Log every request")
	cmd.Flags().Bool("tls", false, "Serve HTTPS with a self-signed localhost certificate")
	cmd.Flags().String("cert-dir", "", "Certificate directory (default: <config dir>/certs)")

	return cmd
}
