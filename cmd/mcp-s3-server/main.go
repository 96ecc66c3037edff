// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

// Command mcp-s3-server exposes S3-compatible object storage operations as
// MCP (Model Context Protocol) tools.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	mcpserver "storj.io/mcp-s3/pkg/mcp-server"
	"storj.io/mcp-s3/pkg/s3client"
)

var (
	rootCmd = &cobra.Command{
		Use:   "mcp-s3-server",
		Short: "MCP (Model Context Protocol) server for S3-compatible object storage",
		Args:  cobra.OnlyValidArgs,
	}
	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the service",
		Args:  cobra.ExactArgs(0),
		RunE:  cmdRun,
	}

	runCfg mcpserver.Config
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runCfg.Address, "address", ":20110", "address to serve HTTP requests")
	runCmd.Flags().StringVar(&runCfg.CertFile, "cert-file", "", "path to a TLS certificate file")
	runCmd.Flags().StringVar(&runCfg.KeyFile, "key-file", "", "path to a TLS key file")
	runCmd.Flags().StringVar(&runCfg.CertDir, "cert-dir", "", "directory of .crt and .key pairs to serve TLS with")
	runCmd.Flags().BoolVar(&runCfg.LetsEncrypt, "lets-encrypt", false, "use Let's Encrypt to obtain a TLS certificate")
	runCmd.Flags().StringVar(&runCfg.PublicURL, "public-url", "", "public URL to obtain a Let's Encrypt certificate for")
	runCmd.Flags().StringVar(&runCfg.ConfigDir, "config-dir", "", "directory to cache Let's Encrypt certificates in")
	runCmd.Flags().BoolVar(&runCfg.Stdio, "stdio", false, "serve MCP over stdin/stdout instead of HTTP")
	runCmd.Flags().DurationVar(&runCfg.IdleTimeout, "idle-timeout", time.Minute, "maximum time to wait for the next request")
	runCmd.Flags().DurationVar(&runCfg.ShutdownDelay, "shutdown-delay", 0, "time to delay server shutdown while returning 503s on the health endpoint")
}

func cmdRun(cmd *cobra.Command, _ []string) (err error) {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	runCfg.S3, err = s3client.LoadConfig()
	if err != nil {
		return err
	}

	log.Info("Starting MCP server for S3-compatible object storage")

	peer, err := mcpserver.New(ctx, log, runCfg)
	if err != nil {
		return err
	}

	// if peer.Run() fails, we want to ensure the context is canceled so we
	// don't hang on ctx.Done before closing the peer.
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-ctx.Done()
		return ignoreCanceled(peer.Close())
	})

	g.Go(func() error {
		return ignoreCanceled(peer.Run(ctx))
	})

	return g.Wait()
}

// newLogger builds a production logger writing to stderr, keeping stdout
// free for the stdio transport.
func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
