// Package tls builds server TLS settings for the HTTP and nng listeners of the
// headless host. Without certificate files it can generate a self-signed one.
package tls

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"time"
)

// ErrNoCertificate is returned when TLS is wanted but there is nothing to serve
var ErrNoCertificate = errors.New("TLS enabled but no certificate provided and auto-generation disabled")

// Config holds TLS configuration options
type Config struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`

	// Certificate generation, used when CertFile/KeyFile are empty
	AutoGenerate bool          `yaml:"auto_generate"`
	Hosts        []string      `yaml:"hosts"` // DNS names or IPs
	Organization string        `yaml:"organization"`
	ValidFor     time.Duration `yaml:"valid_for"`

	MinVersion uint16 `yaml:"-"`
}

// DefaultConfig serves nothing until a certificate or AutoGenerate is set
func DefaultConfig() *Config {
	return &Config{
		Hosts:        []string{"localhost", "127.0.0.1"},
		Organization: "forcegraph",
		ValidFor:     365 * 24 * time.Hour,
		MinVersion:   tls.VersionTLS12,
	}
}

// Enabled reports whether LoadTLSConfig will produce a configuration
func (c *Config) Enabled() bool {
	return (c.CertFile != "" && c.KeyFile != "") || c.AutoGenerate
}

// LoadTLSConfig loads or generates the server certificate. It returns nil
// when TLS is not enabled.
func LoadTLSConfig(cfg *Config) (*tls.Config, error) {
	if !cfg.Enabled() {
		if cfg.CertFile != "" || cfg.KeyFile != "" {
			return nil, fmt.Errorf("%w: both cert and key files are required", ErrNoCertificate)
		}
		return nil, nil
	}

	var (
		cert tls.Certificate
		err  error
	)
	if cfg.CertFile != "" && cfg.KeyFile != "" {
		cert, err = tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load TLS certificate: %w", err)
		}
	} else {
		cert, err = GenerateSelfSignedCert(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to generate self-signed certificate: %w", err)
		}
	}

	minVersion := cfg.MinVersion
	if minVersion == 0 {
		minVersion = tls.VersionTLS12
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   minVersion,
	}, nil
}

// ClientConfig returns a client configuration trusting the leaf certificate
// of server, for dialing a host that serves a self-signed certificate.
func ClientConfig(server *tls.Config, serverName string) (*tls.Config, error) {
	if server == nil || len(server.Certificates) == 0 || len(server.Certificates[0].Certificate) == 0 {
		return nil, ErrNoCertificate
	}
	leaf, err := x509.ParseCertificate(server.Certificates[0].Certificate[0])
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AddCert(leaf)
	return &tls.Config{
		RootCAs:    pool,
		ServerName: serverName,
		MinVersion: tls.VersionTLS12,
	}, nil
}

// VerifyCertificate checks that a PEM certificate file is currently valid
func VerifyCertificate(certFile string) error {
	certPEM, err := os.ReadFile(certFile)
	if err != nil {
		return fmt.Errorf("failed to read certificate: %w", err)
	}

	block, _ := pem.Decode(certPEM)
	if block == nil {
		return fmt.Errorf("failed to parse certificate PEM")
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return fmt.Errorf("failed to parse certificate: %w", err)
	}

	now := time.Now()
	if now.Before(cert.NotBefore) {
		return fmt.Errorf("certificate is not yet valid")
	}
	if now.After(cert.NotAfter) {
		return fmt.Errorf("certificate has expired")
	}
	return nil
}
