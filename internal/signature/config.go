package signature

import (
	"encoding/json"

	"github.com/julik/signed-params/internal/params"
)

// Config is the signing configuration: the salt, the digest and the payload
// format. Build it once at startup and share it; it must not be mutated
// while signers or verifiers use it. Use a Keeper when the salt has to be
// swapped at runtime.
type Config struct {
	// Salt keys the digest. Required.
	Salt string `json:"salt"`

	// Algorithm names a registered digest.
	// Options: "hmac-sha256" (default), "hmac-sha512", "hmac-sha1" (legacy default)
	Algorithm string `json:"algorithm"`

	// Legacy switches to the payload format of the Rails plugin so that
	// previously issued links keep verifying.
	Legacy bool `json:"legacy"`

	// Digest, when set, is used instead of looking Algorithm up.
	Digest Algorithm `json:"-"`
}

// Provider supplies the configuration snapshot for one sign or verify call.
type Provider interface {
	Snapshot() *Config
}

// Snapshot lets a fixed Config serve as its own Provider.
func (c *Config) Snapshot() *Config {
	return c
}

// LoadConfig parses a JSON configuration, applies defaults and validates it.
func LoadConfig(data []byte) (*Config, error) {
	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, NewConfigurationError(Malformed, "invalid signature configuration: %v", err)
	}

	config.SetDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// SetDefaults applies default values to the configuration
func (c *Config) SetDefaults() {
	if c.Algorithm == "" {
		c.Algorithm = c.defaultAlgorithm()
	}
}

// Validate checks that a salt is present and the algorithm is known.
func (c *Config) Validate() error {
	if c.Salt == "" {
		return NewConfigurationError(NoKey, "salt is required")
	}
	_, err := c.digest()
	return err
}

func (c *Config) defaultAlgorithm() string {
	if c.Legacy {
		return AlgorithmHMACSHA1
	}
	return AlgorithmHMACSHA256
}

func (c *Config) digest() (Algorithm, error) {
	if c.Digest != nil {
		return c.Digest, nil
	}
	id := c.Algorithm
	if id == "" {
		id = c.defaultAlgorithm()
	}
	return GetAlgorithm(id)
}

func (c *Config) encoder() Encoder {
	if c.Legacy {
		return LegacyEncoder{}
	}
	return CanonicalEncoder{}
}

// checksum runs encode and digest against a single snapshot.
func checksum(c *Config, m params.Map) (string, error) {
	if c == nil || c.Salt == "" {
		return "", NewConfigurationError(NoKey, "please configure a salt before signing or verifying parameters")
	}

	alg, err := c.digest()
	if err != nil {
		return "", err
	}
	return Compute(c.encoder().Encode(m), c.Salt, alg)
}
