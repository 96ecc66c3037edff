// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

// Package httpserver wraps net/http serving with TLS loading, traffic
// logging and graceful shutdown.
package httpserver

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"
	"go.uber.org/zap"
	"golang.org/x/crypto/acme"
	"golang.org/x/crypto/acme/autocert"
)

var mon = monkit.Package()

// DefaultShutdownTimeout is the default ShutdownTimeout (see Config).
const DefaultShutdownTimeout = time.Second * 10

// Config holds the HTTP server configuration.
type Config struct {
	// Name is the name of the server. It is only used for logging. It can
	// be empty.
	Name string

	// Address is the address to bind the server to. It must be set.
	Address string

	// Whether requests and responses are logged or not.
	TrafficLogging bool

	// TLSConfig is the TLS configuration for the server. It is optional.
	TLSConfig *TLSConfig

	// IdleTimeout is the maximum amount of time to wait for the next request.
	IdleTimeout time.Duration

	// ShutdownTimeout controls how long to wait for requests to finish
	// during Shutdown. It defaults to 10 seconds if unset. If set to a
	// negative value, the server is closed immediately.
	ShutdownTimeout time.Duration
}

// TLSConfig is a struct to handle the preferred/configured TLS options.
type TLSConfig struct {
	// LetsEncrypt controls whether certs from Let's Encrypt are obtained or
	// not. Setting this to true means the server only obtains a Let's
	// Encrypt certificate, and no other setting such as CertDir or CertFile
	// is considered.
	LetsEncrypt bool

	// PublicURL is the URL to issue a Let's Encrypt cert for, if enabled.
	PublicURL string

	// ConfigDir is a path for storing certificate cache data for Let's Encrypt.
	ConfigDir string

	// CertDir provides a path containing one or more certificates that
	// should be loaded. Certs and key files must have the same filename so
	// they can be paired, e.g. mycert.key, and mycert.crt. This setting is
	// mutually exclusive from CertFile and KeyFile.
	CertDir string

	// CertFile is a path to a file containing a corresponding cert for KeyFile.
	CertFile string

	// KeyFile is a path to a file containing a corresponding key for CertFile.
	KeyFile string
}

// Server is the HTTP server.
//
// architecture: Endpoint
type Server struct {
	log  *zap.Logger
	name string

	listener        net.Listener
	server          *http.Server
	shutdownTimeout time.Duration
}

// New creates a new Server bound to config.Address.
func New(log *zap.Logger, handler http.Handler, config Config) (*Server, error) {
	switch {
	case config.Address == "":
		return nil, errs.New("server address is required")
	case handler == nil:
		return nil, errs.New("server handler is required")
	}

	tlsConfig, err := configureTLS(config.TLSConfig)
	if err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", config.Address)
	if err != nil {
		return nil, errs.New("unable to listen on %s: %v", config.Address, err)
	}

	if config.TrafficLogging {
		handler = AddRequestID(logResponses(log, logRequests(log, handler)))
	}

	server := &http.Server{
		Handler:     handler,
		TLSConfig:   tlsConfig,
		IdleTimeout: config.IdleTimeout,
		ErrorLog:    zap.NewStdLog(log),
	}

	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = DefaultShutdownTimeout
	}

	if config.Name != "" {
		log = log.With(zap.String("server", config.Name))
	}

	return &Server{
		log:             log,
		name:            config.Name,
		listener:        listener,
		server:          server,
		shutdownTimeout: config.ShutdownTimeout,
	}, nil
}

// Run runs the server until Shutdown is called.
func (server *Server) Run(ctx context.Context) (err error) {
	defer mon.Task()(&ctx)(&err)

	if server.server.TLSConfig != nil {
		server.log.With(zap.String("addr", server.Addr())).Sugar().Info("HTTPS server started")
		err = server.server.ServeTLS(server.listener, "", "")
	} else {
		server.log.With(zap.String("addr", server.Addr())).Sugar().Info("HTTP server started")
		err = server.server.Serve(server.listener)
	}

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	server.log.With(zap.Error(err)).Error("Server closed unexpectedly")
	return err
}

// Shutdown gracefully shuts the server down, with the configured timeout.
// If the timeout is less than 0, all connections are closed immediately
// instead of waiting.
func (server *Server) Shutdown() (err error) {
	server.log.Info("HTTP server shutting down")
	return shutdownWithTimeout(server.server, server.shutdownTimeout)
}

// Addr returns the public address.
func (server *Server) Addr() string {
	return server.listener.Addr().String()
}

// BaseTLSConfig returns a tls.Config with some good default settings for security.
func BaseTLSConfig() *tls.Config {
	// these settings give us a score of A on https://www.ssllabs.com/ssltest/index.html
	return &tls.Config{
		NextProtos:             []string{"h2", "http/1.1"},
		MinVersion:             tls.VersionTLS12,
		SessionTicketsDisabled: true, // thanks, jeff hodges! https://groups.google.com/g/golang-nuts/c/m3l0AesTdog/m/8CeLeVVyWw4J
	}
}

func configureTLS(config *TLSConfig) (*tls.Config, error) {
	if config == nil {
		return nil, nil
	}

	if config.LetsEncrypt {
		return configureLetsEncrypt(config)
	}

	tlsConfig := BaseTLSConfig()

	if config.CertDir != "" {
		certs, err := loadCertsFromDir(config.CertDir)
		if err != nil {
			return nil, err
		}
		tlsConfig.Certificates = certs
		return tlsConfig, nil
	}

	switch {
	case config.CertFile != "" && config.KeyFile != "":
	case config.CertFile == "" && config.KeyFile == "":
		return nil, nil
	case config.CertFile != "" && config.KeyFile == "":
		return nil, errs.New("key file must be provided with cert file")
	case config.CertFile == "" && config.KeyFile != "":
		return nil, errs.New("cert file must be provided with key file")
	}

	cert, err := tls.LoadX509KeyPair(config.CertFile, config.KeyFile)
	if err != nil {
		return nil, errs.New("unable to load server keypair: %v", err)
	}

	tlsConfig.Certificates = []tls.Certificate{cert}
	return tlsConfig, nil
}

func loadCertsFromDir(configDir string) ([]tls.Certificate, error) {
	certFiles, err := filepath.Glob(filepath.Join(configDir, "*.crt"))
	if err != nil {
		return nil, errs.New("Error reading certificate directory '%s'", certFiles)
	}
	var certificates []tls.Certificate
	for _, crt := range certFiles {
		key := crt[0:len(crt)-4] + ".key"
		_, err := os.Stat(key)
		if err != nil {
			return nil, errs.New("unable to locate key for cert %s (expecting %s): %v", crt, key, err)
		}

		cert, err := tls.LoadX509KeyPair(crt, key)
		if err != nil {
			return nil, errs.New("unable to load server keypair: %v", err)
		}
		certificates = append(certificates, cert)
	}

	return certificates, nil
}

func configureLetsEncrypt(config *TLSConfig) (*tls.Config, error) {
	parsedURL, err := url.Parse(config.PublicURL)
	if err != nil {
		return nil, err
	}
	certManager := autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(parsedURL.Host),
		Cache:      autocert.DirCache(filepath.Join(config.ConfigDir, ".certs")),
	}

	// certificate issuance relies on the tls-alpn-01 challenge since the
	// server listens on a single address.
	tlsConfig := BaseTLSConfig()
	tlsConfig.NextProtos = append(tlsConfig.NextProtos, acme.ALPNProto)
	tlsConfig.GetCertificate = certManager.GetCertificate
	return tlsConfig, nil
}

func shutdownWithTimeout(server *http.Server, timeout time.Duration) error {
	if timeout < 0 {
		return server.Close()
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return server.Shutdown(ctx)
}
