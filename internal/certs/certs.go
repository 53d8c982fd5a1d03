// Package certs keeps a self-signed certificate on disk for serving the
// matching API over HTTPS on localhost.
package certs

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"
)

// Validity is how long a generated certificate lasts.
const Validity = 365 * 24 * time.Hour

// Source supplies the certificate the API server presents.
type Source interface {
	Certificate() (tls.Certificate, error)
}

// Store keeps a certificate and key pair under one directory and regenerates
// it when it is missing, unreadable, expired, or does not cover a host.
type Store struct {
	now      func() time.Time
	dir      string
	certPath string
	keyPath  string
	hosts    []string
}

// NewStore returns a store rooted at dir. With no hosts the certificate
// covers localhost and the loopback addresses.
func NewStore(dir string, hosts ...string) *Store {
	if len(hosts) == 0 {
		hosts = []string{"localhost", "127.0.0.1", "::1"}
	}
	return &Store{
		now:      time.Now,
		dir:      dir,
		certPath: filepath.Join(dir, "txmatch.crt"),
		keyPath:  filepath.Join(dir, "txmatch.key"),
		hosts:    hosts,
	}
}

// Paths returns the certificate and key file locations.
func (s *Store) Paths() (certPath, keyPath string) {
	return s.certPath, s.keyPath
}

// Certificate loads the stored pair, generating a fresh one when needed.
func (s *Store) Certificate() (tls.Certificate, error) {
	if cert, err := tls.LoadX509KeyPair(s.certPath, s.keyPath); err == nil && s.check(cert) == nil {
		return cert, nil
	}

	if err := s.remove(); err != nil {
		return tls.Certificate{}, err
	}
	return s.generate()
}

// TLSConfig builds a server TLS configuration from src.
func TLSConfig(src Source) (*tls.Config, error) {
	cert, err := src.Certificate()
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

func (s *Store) generate() (tls.Certificate, error) {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to create certificate directory: %w", err)
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to generate key: %w", err)
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to generate serial number: %w", err)
	}

	now := s.now()
	template := x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{Organization: []string{"txmatch"}, CommonName: s.hosts[0]},
		NotBefore:             now.Add(-time.Minute),
		NotAfter:              now.Add(Validity),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}
	for _, h := range s.hosts {
		if ip := net.ParseIP(h); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else {
			template.DNSNames = append(template.DNSNames, h)
		}
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to create certificate: %w", err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to encode key: %w", err)
	}

	if err := writePEM(s.certPath, "CERTIFICATE", der); err != nil {
		return tls.Certificate{}, err
	}
	if err := writePEM(s.keyPath, "EC PRIVATE KEY", keyDER); err != nil {
		return tls.Certificate{}, err
	}
	return tls.LoadX509KeyPair(s.certPath, s.keyPath)
}

func (s *Store) check(cert tls.Certificate) error {
	if len(cert.Certificate) == 0 {
		return errors.New("no certificate in pair")
	}
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return fmt.Errorf("failed to parse certificate: %w", err)
	}

	now := s.now()
	if now.Before(leaf.NotBefore) || now.After(leaf.NotAfter) {
		return fmt.Errorf("certificate valid only from %s to %s", leaf.NotBefore, leaf.NotAfter)
	}
	for _, h := range s.hosts {
		if err := leaf.VerifyHostname(h); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) remove() error {
	for _, p := range []string{s.certPath, s.keyPath} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove %s: %w", p, err)
		}
	}
	return nil
}

func writePEM(path, blockType string, der []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600) //nolint:gosec // path under the configured cert dir
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	if err := pem.Encode(f, &pem.Block{Type: blockType, Bytes: der}); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
