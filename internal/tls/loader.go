package tls

import (
	"crypto/x509"
	"fmt"
	"os"
)

// LoadCACertPool reads trusted CA certificates from the PEM bundle at caPath.
// Every CERTIFICATE block in the file joins the pool, so bundles holding a
// whole chain of authorities work without splitting them into separate files.
func LoadCACertPool(caPath string) (*x509.CertPool, error) {
	caPEM, err := os.ReadFile(caPath)
	if err != nil {
		return nil, fmt.Errorf("reading CA bundle %s: %w", caPath, err)
	}

	certs, err := parseCertificateChain(caPEM)
	if err != nil {
		return nil, fmt.Errorf("parsing CA bundle %s: %w", caPath, err)
	}

	pool := x509.NewCertPool()
	for _, cert := range certs {
		pool.AddCert(cert)
	}

	return pool, nil
}
