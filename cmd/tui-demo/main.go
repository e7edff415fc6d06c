// Package main runs a chainwatch screen against an in-process fixture
// service, so the TUI can be tried without a backend.
//
// Usage: tui-demo [live|testnet|dashboard] [--tls]
package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/chainwatch/internal/alerts"
	"github.com/Veraticus/chainwatch/internal/api"
	"github.com/Veraticus/chainwatch/internal/apitest"
	"github.com/Veraticus/chainwatch/internal/certs"
	"github.com/Veraticus/chainwatch/internal/common"
	"github.com/Veraticus/chainwatch/internal/tui"
)

func main() {
	cmd := &cobra.Command{
		Use:           "tui-demo [live|testnet|dashboard]",
		Short:         "Run a chainwatch screen against an in-process fixture service",
		Args:          cobra.MaximumNArgs(1),
		ValidArgs:     []string{"live", "testnet", "dashboard"},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			screen := "live"
			if len(args) > 0 {
				screen = args[0]
			}
			useTLS, _ := cmd.Flags().GetBool("tls")
			seed, _ := cmd.Flags().GetUint64("seed")
			return run(cmd.Context(), screen, seed, useTLS)
		},
	}
	cmd.Flags().Bool("tls", false, "Serve the fixture over HTTPS with a throwaway certificate")
	cmd.Flags().Uint64("seed", 1, "Fixture seed")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", common.UserMessage(err))
		stop()
		os.Exit(1) //nolint:gocritic // stop already called
	}
}

func run(ctx context.Context, screen string, seed uint64, useTLS bool) error {
	logFile, err := os.CreateTemp("", "chainwatch-demo-*.log")
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}
	defer func() { _ = logFile.Close() }()
	handler, err := common.NewLogHandler(logFile, slog.LevelDebug, "json")
	if err != nil {
		return err
	}
	logger := slog.New(handler)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	scheme := "http"
	var clientOpts []api.Option
	if useTLS {
		certDir, err := os.MkdirTemp("", "chainwatch-demo-certs-")
		if err != nil {
			return fmt.Errorf("failed to create certificate directory: %w", err)
		}
		defer func() { _ = os.RemoveAll(certDir) }()

		manager := certs.NewFileManager(certDir)
		tlsCfg, err := manager.ServerConfig()
		if err != nil {
			return err
		}
		pool, err := certs.LoadPool(manager.CertFile())
		if err != nil {
			return err
		}
		ln = tls.NewListener(ln, tlsCfg)
		clientOpts = append(clientOpts, api.WithRootCAs(pool))
		scheme = "https"
	}

	serveCtx, cancelServe := context.WithCancel(ctx)
	fixture := apitest.NewServer(apitest.Options{Logger: logger, Seed: seed})
	served := make(chan error, 1)
	go func() { served <- fixture.Serve(serveCtx, ln) }()
	defer func() {
		cancelServe()
		if err := <-served; err != nil {
			logger.Warn("Fixture server stopped with error", "error", err)
		}
	}()

	client, err := api.New(api.Config{
		BaseURL: scheme + "://" + ln.Addr().String(),
		Timeout: 5 * time.Second,
	}, append(clientOpts, api.WithLogger(logger))...)
	if err != nil {
		return err
	}

	opts := []tui.Option{
		tui.WithAPI(client),
		tui.WithLogger(logger),
		tui.WithNotifier(alerts.NewEmailNotifier(client)),
		tui.WithAutoStart(true),
	}

	switch screen {
	case "live":
		return tui.RunLive(ctx, opts...)
	case "testnet":
		return tui.RunTestnet(ctx, opts...)
	case "dashboard":
		return tui.RunDashboard(ctx, opts...)
	default:
		return common.NewUserError(fmt.Sprintf("Unknown screen %q (want live, testnet or dashboard)", screen), common.ErrInvalidConfig)
	}
}
