package certs

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"time"
)

// ErrExpired is returned when the serving certificate is past its NotAfter.
var ErrExpired = errors.New("certificate expired")

// CertManager checks the TLS key pair the dashboard serves with.
type CertManager struct {
	certFile string
	keyFile  string
	now      func() time.Time
}

// NewCertManager creates a new CertManager for the given key pair.
func NewCertManager(certFile, keyFile string) *CertManager {
	return &CertManager{certFile: certFile, keyFile: keyFile, now: time.Now}
}

// LoadCertificate loads the leaf certificate from the cert file.
func (cm *CertManager) LoadCertificate() (*x509.Certificate, error) {
	data, err := os.ReadFile(cm.certFile)
	if err != nil {
		return nil, err
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("failed to parse certificate PEM")
	}

	return x509.ParseCertificate(block.Bytes)
}

// IsExpired checks if a certificate is expired.
func (cm *CertManager) IsExpired(cert *x509.Certificate) bool {
	return cert.NotAfter.Before(cm.now())
}

// Check verifies the key pair matches and the certificate is still valid.
// It returns the time left before expiry.
func (cm *CertManager) Check() (time.Duration, error) {
	if _, err := tls.LoadX509KeyPair(cm.certFile, cm.keyFile); err != nil {
		return 0, fmt.Errorf("failed to load key pair: %w", err)
	}
	cert, err := cm.LoadCertificate()
	if err != nil {
		return 0, err
	}
	if cm.IsExpired(cert) {
		return 0, fmt.Errorf("%w on %s", ErrExpired, cert.NotAfter.Format(time.DateOnly))
	}
	return cert.NotAfter.Sub(cm.now()), nil
}
