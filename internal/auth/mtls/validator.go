package mtls

import (
	"crypto/x509"
	"fmt"
	"net/http"

	"github.com/vyrodovalexey/https-example/internal/auth"
	"github.com/vyrodovalexey/https-example/internal/config"
)

// ValidateClientCertificate authenticates the request by the leaf client
// certificate the TLS layer already verified, then applies the allow lists
// from cfg. The returned Identity carries the certificate's subject CN and
// issuer CN.
func ValidateClientCertificate(r *http.Request, cfg Config) (*auth.Identity, error) {
	if r.TLS == nil {
		return nil, fmt.Errorf("connection did not use TLS")
	}
	if len(r.TLS.VerifiedChains) == 0 || len(r.TLS.VerifiedChains[0]) == 0 {
		return nil, fmt.Errorf("no verified client certificate")
	}

	cert := r.TLS.VerifiedChains[0][0]
	if err := cfg.permits(cert); err != nil {
		return nil, err
	}

	return identityFrom(cert), nil
}

// identityFrom maps certificate fields onto identity claims: org and ou
// from the subject, plus the serial number.
func identityFrom(cert *x509.Certificate) *auth.Identity {
	claims := map[string]string{
		"serial": cert.SerialNumber.String(),
	}
	if len(cert.Subject.Organization) > 0 {
		claims["org"] = cert.Subject.Organization[0]
	}
	if len(cert.Subject.OrganizationalUnit) > 0 {
		claims["ou"] = cert.Subject.OrganizationalUnit[0]
	}

	return &auth.Identity{
		Subject:    cert.Subject.CommonName,
		Issuer:     cert.Issuer.CommonName,
		AuthMethod: config.AuthModeMTLS,
		Claims:     claims,
	}
}
