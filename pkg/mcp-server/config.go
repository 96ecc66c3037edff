// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package mcpserver

import (
	"time"

	"storj.io/mcp-s3/pkg/s3client"
)

// Config configures the MCP server.
type Config struct {
	// Address to serve HTTP requests. Ignored in stdio mode.
	Address string

	// CertFile and KeyFile enable TLS on Address when both are set.
	CertFile string
	KeyFile  string

	// CertDir is a directory of cert/key pairs to serve TLS with. It is
	// mutually exclusive with CertFile and KeyFile.
	CertDir string

	// LetsEncrypt obtains a certificate for PublicURL from Let's Encrypt,
	// caching it under ConfigDir. When set, the other TLS settings are
	// ignored.
	LetsEncrypt bool
	PublicURL   string
	ConfigDir   string

	// Stdio serves the MCP protocol on stdin/stdout instead of HTTP.
	Stdio bool

	// IdleTimeout is the maximum time to wait for the next request.
	IdleTimeout time.Duration

	// ShutdownDelay is the time to delay server shutdown while returning
	// 503s on the health endpoint.
	ShutdownDelay time.Duration

	// S3 is the connection configuration for the backing object storage.
	S3 s3client.Config
}
