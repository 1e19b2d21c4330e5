// Package tls provides TLS material loading and acceptor configuration for
// the HTTPS server.
package tls

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
)

// Supported private key algorithms.
const (
	KeyAlgorithmRSA   = "rsa"
	KeyAlgorithmECDSA = "ecdsa"
)

const pemTypeCertificate = "CERTIFICATE"

// Material holds parsed TLS serving material: the certificate chain in file
// order (leaf first) and the matching private key.
//
// Material is built once during startup and never mutated afterwards, so a
// single value can be shared by every goroutine accepting connections.
type Material struct {
	// CertificateChain contains every certificate from the chain file in
	// the order it appeared. The first entry is the leaf presented to
	// clients; the rest are intermediates.
	CertificateChain []*x509.Certificate

	// PrivateKey is the leaf's private key.
	PrivateKey crypto.Signer

	// KeyAlgorithm records which algorithm the key uses, one of the
	// KeyAlgorithm constants.
	KeyAlgorithm string
}

// LoadMaterial reads the certificate chain and private key from PEM files
// and parses them into a Material.
//
// The key file may use PKCS#8, PKCS#1 (RSA) or SEC1 (EC) encoding; each PEM
// block is tried against the three encodings in that order and the first
// block that decodes wins. Certificate and key are not checked against each
// other here: a mismatched pair surfaces as a handshake failure on the
// first connection.
func LoadMaterial(certPath, keyPath string) (*Material, error) {
	certPEM, err := os.ReadFile(certPath)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrCertNotFound, certPath, err)
	}

	chain, err := parseCertificateChain(certPEM)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %w", ErrCertParse, certPath, err)
	}

	keyPEM, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrKeyNotFound, keyPath, err)
	}

	key, algorithm, err := parsePrivateKey(keyPEM)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %w", ErrKeyParse, keyPath, err)
	}

	return &Material{
		CertificateChain: chain,
		PrivateKey:       key,
		KeyAlgorithm:     algorithm,
	}, nil
}

// Certificate assembles the material into a tls.Certificate ready for a
// server config. The DER chain keeps file order and the leaf is pre-parsed
// so the TLS stack does not re-decode it per handshake.
func (m *Material) Certificate() tls.Certificate {
	cert := tls.Certificate{
		PrivateKey: m.PrivateKey,
		Leaf:       m.CertificateChain[0],
	}
	for _, c := range m.CertificateChain {
		cert.Certificate = append(cert.Certificate, c.Raw)
	}
	return cert
}

// parseCertificateChain decodes every CERTIFICATE block in pemData,
// preserving order. PEM blocks of other types are skipped, which tolerates
// the comments and bundled material some issuers emit around chains.
func parseCertificateChain(pemData []byte) ([]*x509.Certificate, error) {
	var chain []*x509.Certificate
	rest := pemData
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != pemTypeCertificate {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("certificate block %d: %w", len(chain)+1, err)
		}
		chain = append(chain, cert)
	}
	if len(chain) == 0 {
		return nil, errors.New("no CERTIFICATE PEM blocks found")
	}
	return chain, nil
}

// parsePrivateKey walks the PEM blocks in pemData and returns the first one
// that decodes as a supported private key, together with its algorithm.
func parsePrivateKey(pemData []byte) (crypto.Signer, string, error) {
	var lastErr error
	rest := pemData
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		key, algorithm, err := parseKeyBlock(block.Bytes)
		if err == nil {
			return key, algorithm, nil
		}
		lastErr = err
	}
	if lastErr != nil {
		return nil, "", lastErr
	}
	return nil, "", errors.New("no PEM blocks found")
}

// parseKeyBlock tries the supported key encodings against a single DER
// block: PKCS#8 first, then PKCS#1, then SEC1. The order matters only for
// error reporting; a block can only be valid under one encoding.
func parseKeyBlock(der []byte) (crypto.Signer, string, error) {
	if key, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		switch k := key.(type) {
		case *rsa.PrivateKey:
			return k, KeyAlgorithmRSA, nil
		case *ecdsa.PrivateKey:
			return k, KeyAlgorithmECDSA, nil
		default:
			return nil, "", fmt.Errorf("unsupported PKCS#8 key type %T", key)
		}
	}
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, KeyAlgorithmRSA, nil
	}
	if key, err := x509.ParseECPrivateKey(der); err == nil {
		return key, KeyAlgorithmECDSA, nil
	}
	return nil, "", errors.New("block is not a PKCS#8, PKCS#1 or SEC1 private key")
}
