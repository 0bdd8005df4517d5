package tlsroots

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNoCertsFound is returned when a CA file or directory holds no
// certificates.
var ErrNoCertsFound = errors.New("tlsroots: no certificates found")

// caExtensions are the file names LoadPool reads from a directory.
var caExtensions = map[string]bool{".pem": true, ".crt": true, ".cer": true}

// LoadPool returns the roots for verifying the relay. An empty path
// means the system roots. A file or a directory of PEM files replaces
// them.
func LoadPool(path string) (*x509.CertPool, error) {
	if path == "" {
		pool, err := x509.SystemCertPool()
		if err != nil {
			return x509.NewCertPool(), nil
		}
		return pool, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("tlsroots: %w", err)
	}

	files := []string{path}
	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("tlsroots: %w", err)
		}
		files = files[:0]
		for _, e := range entries {
			if !e.IsDir() && caExtensions[filepath.Ext(e.Name())] {
				files = append(files, filepath.Join(path, e.Name()))
			}
		}
	}

	pool := x509.NewCertPool()
	total := 0
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("tlsroots: %w", err)
		}
		n, err := appendPEM(pool, data)
		if err != nil {
			return nil, fmt.Errorf("tlsroots: %s: %w", f, err)
		}
		total += n
	}
	if total == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoCertsFound, path)
	}
	return pool, nil
}

// appendPEM adds every CERTIFICATE block in data to pool and returns how
// many were added. Other block types are skipped.
func appendPEM(pool *x509.CertPool, data []byte) (int, error) {
	n := 0
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			return n, nil
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return n, fmt.Errorf("parse certificate: %w", err)
		}
		pool.AddCert(cert)
		n++
	}
}

// ClientTLSConfig returns the config imrelay-cli dials the relay with.
// serverName overrides the name taken from the dial address; insecure
// disables verification.
func ClientTLSConfig(serverName, caPath string, insecure bool) (*tls.Config, error) {
	cfg := &tls.Config{
		ServerName: serverName,
		MinVersion: tls.VersionTLS12,
	}
	if insecure {
		cfg.InsecureSkipVerify = true //nolint:gosec
		return cfg, nil
	}

	pool, err := LoadPool(caPath)
	if err != nil {
		return nil, err
	}
	cfg.RootCAs = pool
	return cfg, nil
}
