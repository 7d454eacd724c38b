package signature

import (
	"encoding/hex"
)

// Compute returns the hex-encoded keyed digest of payload. An empty salt
// fails with a NoKey ConfigurationError before the digest is touched.
func Compute(payload []byte, salt string, alg Algorithm) (string, error) {
	if salt == "" {
		return "", NewConfigurationError(NoKey, "please configure a salt before signing or verifying parameters")
	}
	if alg == nil {
		return "", NewConfigurationError(UnknownAlgorithm, "no digest algorithm configured")
	}

	return hex.EncodeToString(alg.Sum([]byte(salt), payload)), nil
}
