package signature

import (
	"fmt"

	"github.com/julik/signed-params/internal/params"
)

// Signer computes signatures and stores them under SignatureKey.
type Signer struct {
	provider Provider
}

// NewSigner creates a signer reading its configuration from provider.
func NewSigner(provider Provider) *Signer {
	return &Signer{provider: provider}
}

// Sign computes the signature of m, writes it to m["sig"] (replacing any
// previous one) and returns it. A pre-existing signature never takes part
// in the computation, so signing is idempotent.
func (s *Signer) Sign(m params.Map) (string, error) {
	if m == nil {
		return "", fmt.Errorf("signature: cannot sign a nil parameter map")
	}

	sig, err := checksum(s.provider.Snapshot(), m)
	if err != nil {
		return "", err
	}

	m[SignatureKey] = params.String(sig)
	return sig, nil
}

// Checksum returns the signature m would get without modifying it.
func (s *Signer) Checksum(m params.Map) (string, error) {
	return checksum(s.provider.Snapshot(), m)
}
