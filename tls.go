package mqttsub

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"strings"
)

// TLSMaterial holds PEM encoded certificate material.
type TLSMaterial struct {
	// CAPEM is the trusted CA bundle, nil means the system roots are used.
	CAPEM []byte
	// ClientPEM holds a client certificate chain and its private key, nil disables
	// client authentication.
	ClientPEM []byte
}

// NewTLSConfig builds a tls.Config from in-memory PEM material.
func NewTLSConfig(m TLSMaterial) (*tls.Config, error) {
	tc := &tls.Config{MinVersion: tls.VersionTLS12}

	if m.CAPEM != nil {
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(m.CAPEM) {
			return nil, fmt.Errorf("%w: no CA certificate found", ErrInvalidCertificate)
		}

		tc.RootCAs = pool
	}

	if m.ClientPEM != nil {
		cert, err := clientCertificate(m.ClientPEM)
		if err != nil {
			return nil, err
		}

		tc.Certificates = []tls.Certificate{cert}
	}

	return tc, nil
}

// clientCertificate splits a combined PEM file into its certificate chain and
// the first private key found.
func clientCertificate(combined []byte) (tls.Certificate, error) {
	var certs, key bytes.Buffer

	for rest := combined; ; {
		var block *pem.Block

		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}

		switch {
		case block.Type == "CERTIFICATE":
			_ = pem.Encode(&certs, block)
		case strings.HasSuffix(block.Type, "PRIVATE KEY") && key.Len() == 0:
			_ = pem.Encode(&key, block)
		}
	}

	if certs.Len() == 0 {
		return tls.Certificate{}, fmt.Errorf("%w: client certificate not found", ErrInvalidCertificate)
	}

	if key.Len() == 0 {
		return tls.Certificate{}, fmt.Errorf("%w: client private key not found", ErrInvalidCertificate)
	}

	cert, err := tls.X509KeyPair(certs.Bytes(), key.Bytes())
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("%w: %w", ErrInvalidCertificate, err)
	}

	return cert, nil
}

// LoadTLSMaterial reads the certificate files named by cfg.
func LoadTLSMaterial(cfg *Config) (TLSMaterial, error) {
	var m TLSMaterial

	if cfg.CACertPath != "" {
		b, err := os.ReadFile(cfg.CACertPath)
		if err != nil {
			return m, fmt.Errorf("%w: reading CA certificate '%s': %w", ErrInvalidCertificate, cfg.CACertPath, err)
		}

		m.CAPEM = b
	}

	if cfg.ClientCombinedPath != "" {
		b, err := os.ReadFile(cfg.ClientCombinedPath)
		if err != nil {
			return m, fmt.Errorf("%w: reading client certificate/key '%s': %w",
				ErrInvalidCertificate, cfg.ClientCombinedPath, err)
		}

		m.ClientPEM = b
	}

	return m, nil
}

// BuildTLSConfig returns nil for plain schemes. Under an encrypted scheme a missing
// CA path is logged as a warning and the system roots are used.
func BuildTLSConfig(cfg *Config, logger Logger) (*tls.Config, error) {
	if !cfg.Encrypted() {
		return nil, nil
	}

	if logger == nil {
		logger = defaultLogger
	}

	if cfg.CACertPath == "" {
		logger.Warn(context.Background(), "no CA certificate path configured for TLS connection", map[string]any{
			"scheme": cfg.Scheme,
		})
	}

	m, err := LoadTLSMaterial(cfg)
	if err != nil {
		return nil, err
	}

	return NewTLSConfig(m)
}
