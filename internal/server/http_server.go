// Package server constructs and starts the relay's HTTP service with helpers
// that apply sensible production defaults.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"
)

// CreateServer creates and configures an HTTP server with the specified address and handler.
// It sets reasonable timeout values for production use; WebSocket connections
// clear these deadlines on upgrade.
func CreateServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// ConfigureTLS loads the certificate (with optional chain) described by cfg
// into server. It is a no-op when TLS is disabled.
func ConfigureTLS(server *http.Server, cfg TLSConfig) error {
	if !cfg.Enabled {
		return nil
	}

	cert, err := loadCertificate(cfg)
	if err != nil {
		return err
	}
	server.TLSConfig = &tls.Config{
		MinVersion:   tls.VersionTLS12,
		Certificates: []tls.Certificate{cert},
	}
	return nil
}

func loadCertificate(cfg TLSConfig) (tls.Certificate, error) {
	certPEM, err := os.ReadFile(cfg.CertFile)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("reading certificate: %w", err)
	}
	keyPEM, err := os.ReadFile(cfg.KeyFile)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("reading private key: %w", err)
	}

	if cfg.ChainFile != "" {
		chainPEM, err := os.ReadFile(cfg.ChainFile)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return tls.Certificate{}, fmt.Errorf("reading certificate chain: %w", err)
		}
		if len(chainPEM) > 0 {
			certPEM = append(append(certPEM, '\n'), chainPEM...)
		}
	}

	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("loading key pair: %w", err)
	}
	return cert, nil
}

// StartServer starts the HTTP server and blocks until it exits. Servers with
// a TLS configuration listen with TLS. http.ErrServerClosed is not an error.
func StartServer(server *http.Server, logger *slog.Logger) error {
	var err error
	if server.TLSConfig != nil {
		logger.Info("server listening", "addr", server.Addr, "tls", true)
		err = server.ListenAndServeTLS("", "")
	} else {
		logger.Info("server listening", "addr", server.Addr, "tls", false)
		err = server.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// ShutdownServer gracefully shuts down the HTTP server without interrupting active connections.
// It waits for active connections to close or until the timeout is reached.
func ShutdownServer(server *http.Server, timeout time.Duration, logger *slog.Logger) error {
	logger.Info("shutting down HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	logger.Info("HTTP server shutdown completed")
	return nil
}
