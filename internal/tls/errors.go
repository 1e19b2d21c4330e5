package tls

import "errors"

// Load errors form a closed set: every failure out of LoadMaterial wraps
// exactly one of these sentinels and names the offending file path, so
// callers can branch with errors.Is while logs stay actionable.
var (
	// ErrCertNotFound indicates the certificate file is missing or unreadable.
	ErrCertNotFound = errors.New("certificate file not found")

	// ErrCertParse indicates the certificate file contains no parseable
	// PEM certificate blocks.
	ErrCertParse = errors.New("certificate file not parseable")

	// ErrKeyNotFound indicates the private key file is missing or unreadable.
	ErrKeyNotFound = errors.New("private key file not found")

	// ErrKeyParse indicates the private key file is not parseable by any
	// supported encoding (PKCS#8, PKCS#1 or SEC1).
	ErrKeyParse = errors.New("private key file not parseable")
)
