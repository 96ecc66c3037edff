// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

// Package mcpserver wires the tool catalog to MCP transports. It speaks the
// streamable HTTP transport by default and stdio when configured.
package mcpserver

import (
	"context"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"storj.io/mcp-s3/pkg/httpserver"
	"storj.io/mcp-s3/pkg/mcp-server/tools"
	"storj.io/mcp-s3/pkg/s3client"
)

// Error is a class of mcp-server errors.
var Error = errs.Class("mcp-server")

const (
	serverName    = "mcp-s3-server"
	serverVersion = "0.1.0"
)

// Peer represents an MCP server bridging tool calls to S3-compatible object
// storage.
type Peer struct {
	log    *zap.Logger
	mcp    *server.MCPServer
	tools  *tools.Tools
	server *httpserver.Server
	config Config

	inShutdown int32
}

// New returns a new instance of an MCP server connected to the storage
// endpoint in config.S3.
func New(ctx context.Context, log *zap.Logger, config Config) (*Peer, error) {
	client, err := s3client.New(ctx, config.S3)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return NewWithClient(ctx, log, config, client)
}

// NewWithClient returns a new instance of an MCP server over an existing
// storage client.
func NewWithClient(ctx context.Context, log *zap.Logger, config Config, client *s3client.Client) (*Peer, error) {
	t := tools.New(client)

	peer := &Peer{
		log:    log,
		tools:  t,
		config: config,
	}

	// Resource discovery re-lists buckets, so buckets created or deleted
	// after startup show up in the catalog.
	hooks := &server.Hooks{}
	hooks.AddBeforeListResources(func(ctx context.Context, id any, message *mcp.ListResourcesRequest) {
		peer.syncBucketResources(ctx)
	})

	mcpServer := server.NewMCPServer(serverName, serverVersion,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithRecovery(),
		server.WithHooks(hooks),
	)

	t.Registry().AttachTo(mcpServer)
	peer.mcp = mcpServer
	peer.syncBucketResources(ctx)

	if !config.Stdio {
		r := mux.NewRouter()
		r.Handle("/mcp", server.NewStreamableHTTPServer(mcpServer,
			server.WithEndpointPath("/mcp"),
		))
		r.HandleFunc("/health", peer.healthCheck)

		var tlsConfig *httpserver.TLSConfig
		if config.LetsEncrypt || config.CertDir != "" || config.CertFile != "" || config.KeyFile != "" {
			tlsConfig = &httpserver.TLSConfig{
				LetsEncrypt: config.LetsEncrypt,
				PublicURL:   config.PublicURL,
				ConfigDir:   config.ConfigDir,
				CertDir:     config.CertDir,
				CertFile:    config.CertFile,
				KeyFile:     config.KeyFile,
			}
		}

		srv, err := httpserver.New(log, r, httpserver.Config{
			Name:           "mcp",
			Address:        config.Address,
			TrafficLogging: true,
			TLSConfig:      tlsConfig,
			IdleTimeout:    config.IdleTimeout,
		})
		if err != nil {
			return nil, err
		}
		peer.server = srv
	}

	return peer, nil
}

// syncBucketResources replaces the resource catalog with the buckets
// currently visible to the credentials. A failed listing leaves the previous
// catalog in place.
func (s *Peer) syncBucketResources(ctx context.Context) {
	resources, err := s.tools.BucketResources(ctx)
	if err != nil {
		s.log.Warn("Failed to refresh bucket resources", zap.Error(err))
		return
	}

	serverResources := make([]server.ServerResource, 0, len(resources))
	for _, resource := range resources {
		serverResources = append(serverResources, server.ServerResource{
			Resource: resource,
			Handler:  s.tools.ReadBucketResource,
		})
	}
	s.mcp.SetResources(serverResources...)
}

// Run starts the MCP server on the configured transport.
func (s *Peer) Run(ctx context.Context) error {
	if s.config.Stdio {
		s.log.Info("MCP server listening on stdio")
		stdio := server.NewStdioServer(s.mcp)
		stdio.SetErrorLogger(zap.NewStdLog(s.log))
		return Error.Wrap(stdio.Listen(ctx, os.Stdin, os.Stdout))
	}
	return s.server.Run(ctx)
}

// Close shuts down the server and all underlying resources.
func (s *Peer) Close() error {
	atomic.StoreInt32(&s.inShutdown, 1)
	if s.config.ShutdownDelay > 0 {
		s.log.Info("Waiting before server shutdown", zap.Duration("Delay", s.config.ShutdownDelay))
		time.Sleep(s.config.ShutdownDelay)
	}

	if s.server == nil {
		return nil
	}
	return s.server.Shutdown()
}

// Address returns the web address the peer is listening on. It is empty in
// stdio mode.
func (s *Peer) Address() string {
	if s.server == nil {
		return ""
	}
	return s.server.Addr()
}

func (s *Peer) healthCheck(w http.ResponseWriter, r *http.Request) {
	if atomic.LoadInt32(&s.inShutdown) != 0 {
		http.Error(w, "down", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}
