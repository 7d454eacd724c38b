package signature

import (
	"crypto/hmac"

	"github.com/julik/signed-params/internal/common/logging"
	"github.com/julik/signed-params/internal/params"
)

// Verifier checks signed parameter maps.
type Verifier struct {
	provider Provider
	logger   logging.Logger
}

// NewVerifier creates a new signature verifier
func NewVerifier(provider Provider, logger logging.Logger) *Verifier {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	return &Verifier{
		provider: provider,
		logger:   logger,
	}
}

// Verify recomputes the signature of m and compares it with m["sig"] in
// constant time. It returns a TamperError when the signature is missing or
// differs, and a ConfigurationError when no usable configuration exists.
// The sig entry is left in m either way.
func (v *Verifier) Verify(m params.Map) error {
	claimed, ok := m[SignatureKey]
	if !ok || claimed == nil {
		return NewTamperError(NoSignature, "no signature given")
	}

	expected, err := checksum(v.provider.Snapshot(), m)
	if err != nil {
		return err
	}

	// A list or other non-scalar claim can never match.
	text, scalar := params.Text(claimed)
	if !scalar || !hmac.Equal([]byte(text), []byte(expected)) {
		v.logger.Debug("Signature verification failed",
			logging.String("reason", string(ChecksumMismatch)),
			logging.Int("params", len(m)),
		)
		return NewTamperError(ChecksumMismatch, "checksum differs")
	}

	v.logger.Debug("Signature verified successfully", logging.Int("params", len(m)))
	return nil
}
