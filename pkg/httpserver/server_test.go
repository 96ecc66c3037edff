// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package httpserver_test

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/sync/errgroup"

	"storj.io/mcp-s3/pkg/httpserver"
)

func TestNewErrors(t *testing.T) {
	log := zaptest.NewLogger(t)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	_, err := httpserver.New(log, handler, httpserver.Config{})
	require.EqualError(t, err, "server address is required")

	_, err = httpserver.New(log, nil, httpserver.Config{Address: "127.0.0.1:0"})
	require.EqualError(t, err, "server handler is required")

	_, err = httpserver.New(log, handler, httpserver.Config{Address: "this is no good"})
	require.Error(t, err)

	_, err = httpserver.New(log, handler, httpserver.Config{
		Address:   "127.0.0.1:0",
		TLSConfig: &httpserver.TLSConfig{CertFile: "cert.pem"},
	})
	require.EqualError(t, err, "key file must be provided with cert file")

	_, err = httpserver.New(log, handler, httpserver.Config{
		Address:   "127.0.0.1:0",
		TLSConfig: &httpserver.TLSConfig{KeyFile: "key.pem"},
	})
	require.EqualError(t, err, "cert file must be provided with key file")
}

func TestServeHTTP(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	server, err := httpserver.New(zaptest.NewLogger(t), handler, httpserver.Config{
		Name:           "test",
		Address:        "127.0.0.1:0",
		TrafficLogging: true,
	})
	require.NoError(t, err)

	var group errgroup.Group
	group.Go(func() error {
		return server.Run(context.Background())
	})

	resp, err := http.Get(fmt.Sprintf("http://%s/", server.Addr()))
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	require.NoError(t, server.Shutdown())
	require.NoError(t, group.Wait())
}

func TestServeHTTPS(t *testing.T) {
	certPath, keyPath, cert := writeLocalhostCert(t, "public.pem", "privkey.pem")

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	server, err := httpserver.New(zaptest.NewLogger(t), handler, httpserver.Config{
		Name:    "test",
		Address: "127.0.0.1:0",
		TLSConfig: &httpserver.TLSConfig{
			CertFile: certPath,
			KeyFile:  keyPath,
		},
	})
	require.NoError(t, err)

	var group errgroup.Group
	group.Go(func() error {
		return server.Run(context.Background())
	})

	pool := x509.NewCertPool()
	pool.AddCert(cert)
	client := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{RootCAs: pool},
		},
	}

	resp, err := client.Get(fmt.Sprintf("https://%s/", server.Addr()))
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	require.NoError(t, server.Shutdown())
	require.NoError(t, group.Wait())
}

func TestServeHTTPSCertDir(t *testing.T) {
	certPath, _, cert := writeLocalhostCert(t, "localhost.crt", "localhost.key")

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	server, err := httpserver.New(zaptest.NewLogger(t), handler, httpserver.Config{
		Name:    "test",
		Address: "127.0.0.1:0",
		TLSConfig: &httpserver.TLSConfig{
			CertDir: filepath.Dir(certPath),
		},
	})
	require.NoError(t, err)

	var group errgroup.Group
	group.Go(func() error {
		return server.Run(context.Background())
	})

	pool := x509.NewCertPool()
	pool.AddCert(cert)
	client := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{RootCAs: pool},
		},
	}

	resp, err := client.Get(fmt.Sprintf("https://%s/", server.Addr()))
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	require.NoError(t, server.Shutdown())
	require.NoError(t, group.Wait())
}

func TestCertDirMissingKey(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "orphan.crt"), []byte("not a cert"), 0644))

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	_, err := httpserver.New(zaptest.NewLogger(t), handler, httpserver.Config{
		Address:   "127.0.0.1:0",
		TLSConfig: &httpserver.TLSConfig{CertDir: dir},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unable to locate key")
}

func TestLetsEncryptTLSConfig(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	server, err := httpserver.New(zaptest.NewLogger(t), handler, httpserver.Config{
		Name:    "test",
		Address: "127.0.0.1:0",
		TLSConfig: &httpserver.TLSConfig{
			LetsEncrypt: true,
			PublicURL:   "https://example.com",
			ConfigDir:   t.TempDir(),
		},
	})
	require.NoError(t, err)

	var group errgroup.Group
	group.Go(func() error {
		return server.Run(context.Background())
	})

	require.NoError(t, server.Shutdown())
	require.NoError(t, group.Wait())
}

func TestBaseTLSConfig(t *testing.T) {
	config := httpserver.BaseTLSConfig()
	require.Contains(t, config.NextProtos, "h2")
	require.EqualValues(t, tls.VersionTLS12, config.MinVersion)
}

func writeLocalhostCert(t *testing.T, certName, keyName string) (certPath, keyPath string, cert *x509.Certificate) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		DNSNames:     []string{"localhost"},
		IPAddresses:  []net.IP{net.IPv4(127, 0, 0, 1)},
	}
	certDER, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, key.Public(), key)
	require.NoError(t, err)

	cert, err = x509.ParseCertificate(certDER)
	require.NoError(t, err)

	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)

	dir := t.TempDir()
	certPath = filepath.Join(dir, certName)
	keyPath = filepath.Join(dir, keyName)

	require.NoError(t, os.WriteFile(certPath, pem.EncodeToMemory(
		&pem.Block{Type: "CERTIFICATE", Bytes: certDER}), 0644))
	require.NoError(t, os.WriteFile(keyPath, pem.EncodeToMemory(
		&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER}), 0644))

	return certPath, keyPath, cert
}
