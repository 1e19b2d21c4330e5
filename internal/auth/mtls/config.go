// Package mtls authenticates clients by their verified TLS certificate.
package mtls

import (
	"crypto/x509"
	"fmt"
	"slices"
)

// Config narrows which verified client certificates are accepted. Every
// non-empty list must match the presented certificate: AllowedSubjects
// against the subject CN, AllowedSANs against the DNS names, AllowedOUs
// against the subject's organizational units. An empty Config admits any
// client the TLS layer verified.
type Config struct {
	AllowedSubjects []string
	AllowedSANs     []string
	AllowedOUs      []string
}

// IsRestricted reports whether any allow list is configured.
func (c *Config) IsRestricted() bool {
	return len(c.AllowedSubjects) > 0 || len(c.AllowedSANs) > 0 || len(c.AllowedOUs) > 0
}

// permits checks cert against each configured allow list.
func (c *Config) permits(cert *x509.Certificate) error {
	if len(c.AllowedSubjects) > 0 && !slices.Contains(c.AllowedSubjects, cert.Subject.CommonName) {
		return fmt.Errorf("client subject %q not in allowed subjects", cert.Subject.CommonName)
	}

	if len(c.AllowedSANs) > 0 {
		ok := slices.ContainsFunc(cert.DNSNames, func(san string) bool {
			return slices.Contains(c.AllowedSANs, san)
		})
		if !ok {
			return fmt.Errorf("client SANs %v do not match allowed SANs", cert.DNSNames)
		}
	}

	if len(c.AllowedOUs) > 0 {
		ok := slices.ContainsFunc(cert.Subject.OrganizationalUnit, func(ou string) bool {
			return slices.Contains(c.AllowedOUs, ou)
		})
		if !ok {
			return fmt.Errorf("client OUs %v not in allowed OUs", cert.Subject.OrganizationalUnit)
		}
	}

	return nil
}
