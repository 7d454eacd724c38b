package signature

import (
	"encoding/base64"
	"net/url"
	"sort"
	"strings"

	"github.com/julik/signed-params/internal/params"
)

// SignatureKey is the parameter that carries the signature.
const SignatureKey = "sig"

// ReservedKeys never take part in the canonical payload: the signature
// itself and the routing fields.
var ReservedKeys = []string{SignatureKey, "controller", "action"}

// IsReserved reports whether key is excluded from canonicalization.
func IsReserved(key string) bool {
	switch key {
	case SignatureKey, "controller", "action":
		return true
	}
	return false
}

// Encoder turns a parameter map into the bytes that get digested.
// Implementations must ignore reserved keys and map iteration order.
type Encoder interface {
	Encode(m params.Map) []byte
}

// CanonicalEncoder produces key=value tokens, query-escaped, sorted
// byte-wise and joined with "&". Lists contribute one token per element.
type CanonicalEncoder struct{}

// Encode implements Encoder.
func (CanonicalEncoder) Encode(m params.Map) []byte {
	tokens := make([]string, 0, len(m))
	for key, value := range m {
		if IsReserved(key) {
			continue
		}
		escapedKey := url.QueryEscape(key)
		for _, text := range params.Strings(value) {
			tokens = append(tokens, escapedKey+"="+url.QueryEscape(text))
		}
	}

	sort.Strings(tokens)
	return []byte(strings.Join(tokens, "&"))
}

// LegacyEncoder reproduces the payload of the Rails plugin this package replaces so that
// links signed by it keep verifying:
//
//   - list keys are written as key[]
//   - a top-level false value is left out
//   - a scalar id is written unescaped
//   - sorted tokens are joined with "="
//   - the result is reversed and MIME base64 encoded
//
// The reversal and base64 step add nothing cryptographically.
type LegacyEncoder struct{}

// Encode implements Encoder.
func (LegacyEncoder) Encode(m params.Map) []byte {
	tokens := make([]string, 0, len(m))
	for key, value := range m {
		if IsReserved(key) {
			continue
		}
		escapedKey := cgiEscape(key)

		switch v := value.(type) {
		case params.List:
			for _, text := range params.Strings(v) {
				tokens = append(tokens, escapedKey+"[]="+cgiEscape(text))
			}
		case params.Bool:
			if v {
				tokens = append(tokens, escapedKey+"=true")
			}
		default:
			text, ok := params.Text(v)
			if !ok {
				continue
			}
			if key == legacyIDKey {
				tokens = append(tokens, key+"="+text)
				continue
			}
			tokens = append(tokens, escapedKey+"="+cgiEscape(text))
		}
	}

	sort.Strings(tokens)
	return encodeMIME(reverseBytes([]byte(strings.Join(tokens, "="))))
}

// legacyIDKey is appended to the legacy payload without escaping.
const legacyIDKey = "id"

// cgiEscape matches Ruby's CGI.escape: only letters, digits, "_", "." and
// "-" stay literal, space becomes "+".
func cgiEscape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "~", "%7E")
}

func reverseBytes(b []byte) []byte {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return b
}

// mimeLineBytes is the input size of one 60 character base64 line.
const mimeLineBytes = 45

// encodeMIME matches Ruby's Base64.encode64: 60 characters per line, every
// line terminated by a newline, empty input gives empty output.
func encodeMIME(b []byte) []byte {
	var sb strings.Builder
	for len(b) > 0 {
		n := min(mimeLineBytes, len(b))
		sb.WriteString(base64.StdEncoding.EncodeToString(b[:n]))
		sb.WriteByte('\n')
		b = b[n:]
	}
	return []byte(sb.String())
}
