package signature

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
	"sort"
	"sync"
)

// Algorithm identifiers registered by default.
const (
	// AlgorithmHMACSHA1 is kept only for links issued by the legacy format.
	AlgorithmHMACSHA1   = "hmac-sha1"
	AlgorithmHMACSHA256 = "hmac-sha256"
	AlgorithmHMACSHA512 = "hmac-sha512"
)

// Algorithm is a keyed digest. Implementations must be stateless and safe
// for concurrent use.
type Algorithm interface {
	// ID returns the identifier used in configuration, e.g. "hmac-sha256".
	ID() string
	// Sum returns the digest of payload keyed with key.
	Sum(key, payload []byte) []byte
}

type hmacAlgorithm struct {
	id   string
	hash func() hash.Hash
}

// HMAC builds an Algorithm computing an HMAC with the given hash.
func HMAC(id string, h func() hash.Hash) Algorithm {
	return &hmacAlgorithm{id: id, hash: h}
}

func (a *hmacAlgorithm) ID() string {
	return a.id
}

func (a *hmacAlgorithm) Sum(key, payload []byte) []byte {
	mac := hmac.New(a.hash, key)
	mac.Write(payload)
	return mac.Sum(nil)
}

var (
	algorithmMu       sync.RWMutex
	algorithmRegistry = make(map[string]Algorithm)
)

func init() {
	RegisterAlgorithm(HMAC(AlgorithmHMACSHA1, sha1.New))
	RegisterAlgorithm(HMAC(AlgorithmHMACSHA256, sha256.New))
	RegisterAlgorithm(HMAC(AlgorithmHMACSHA512, sha512.New))
}

// RegisterAlgorithm makes alg available by its ID. Panics if the ID is
// already registered.
func RegisterAlgorithm(alg Algorithm) {
	algorithmMu.Lock()
	defer algorithmMu.Unlock()

	id := alg.ID()
	if _, exists := algorithmRegistry[id]; exists {
		panic(fmt.Sprintf("algorithm %q already registered", id))
	}
	algorithmRegistry[id] = alg
}

// GetAlgorithm looks up a registered algorithm.
func GetAlgorithm(id string) (Algorithm, error) {
	algorithmMu.RLock()
	defer algorithmMu.RUnlock()

	alg, ok := algorithmRegistry[id]
	if !ok {
		return nil, NewConfigurationError(UnknownAlgorithm, "unsupported algorithm: %q", id)
	}
	return alg, nil
}

// SupportedAlgorithms lists registered algorithm IDs in sorted order.
func SupportedAlgorithms() []string {
	algorithmMu.RLock()
	defer algorithmMu.RUnlock()

	ids := make([]string, 0, len(algorithmRegistry))
	for id := range algorithmRegistry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
