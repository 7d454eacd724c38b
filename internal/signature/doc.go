// Package signature signs request parameters and verifies them later.
//
// A signature is a keyed digest over a canonical rendering of the
// parameters. Two parameter maps that hold the same non-reserved key/value
// pairs always render the same way, whatever their insertion order or the
// Go types their keys and values started as; changing any value changes
// the rendering and therefore the signature.
//
// # Components
//
//   - CanonicalEncoder renders a params.Map into sorted key=value tokens
//   - Compute applies the configured keyed digest (HMAC-SHA256 by default)
//   - Signer stores the signature under the "sig" key
//   - Verifier recomputes it and compares in constant time
//
// The keys "sig", "controller" and "action" never take part in the payload.
//
// # Configuration
//
// Configuration is an explicit *Config passed to NewSigner and NewVerifier:
//
//	config := &signature.Config{Salt: os.Getenv("SIGNED_PARAMS_SALT")}
//	signer := signature.NewSigner(config)
//	verifier := signature.NewVerifier(config, logger)
//
// When the salt must change without a restart, hand a *Keeper to both
// instead. Keeper swaps complete configurations atomically, so a sign or
// verify call never sees half of an update.
//
// # Legacy links
//
// Links signed by the Rails plugin this package replaces used a different payload
// (reversed, base64 wrapped, "=" joined) and HMAC-SHA1. Setting
// Config.Legacy reproduces that format. New deployments should leave it off;
// the two formats produce different signatures for the same parameters.
//
// # Usage
//
//	m := params.Map{"user": params.Integer(12), "send_mail": params.String("yes")}
//	sig, err := signer.Sign(m) // m["sig"] now holds sig
//
//	if err := verifier.Verify(m); signature.IsTampered(err) {
//	    // reject the request without telling the client why
//	}
//
// # Errors
//
//   - *ConfigurationError (NoKey, UnknownAlgorithm, Malformed): deployment
//     defect, surface it to the operator
//   - *TamperError (NoSignature, ChecksumMismatch): per request outcome,
//     collapse to one generic answer at the HTTP boundary
package signature
