// Package fingerprint derives hex identifiers for request and content dedup.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"hash/fnv"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"github.com/ratneshs230/Digital-Courtroom-sub001/types"
)

const (
	AlgorithmSHA256  = "sha256"
	AlgorithmBlake2b = "blake2b"

	Separator = "|"
)

// Hasher produces lowercase hex digests. Once the configured digest fails it
// stays on 32-bit FNV-1a for the rest of the process.
type Hasher struct {
	logger    types.Logger
	algorithm string
	key       []byte
	degraded  atomic.Bool
	once      sync.Once
}

func New(config *types.HashConfig, logger types.Logger) (*Hasher, error) {
	algorithm := config.Algorithm
	if algorithm == "" {
		algorithm = AlgorithmSHA256
	}

	switch algorithm {
	case AlgorithmSHA256, AlgorithmBlake2b:
	default:
		return nil, types.Errorf(types.ErrHashAlgorithmUnknown, "algorithm: %s", algorithm)
	}

	return &Hasher{
		logger:    logger,
		algorithm: algorithm,
		key:       []byte(config.Key),
	}, nil
}

func (h *Hasher) Algorithm() string {
	if h.Degraded() {
		return "fnv1a32"
	}
	return h.algorithm
}

func (h *Hasher) Degraded() bool {
	return h.degraded.Load()
}

func (h *Hasher) Fingerprint(parts ...string) string {
	return h.Digest([]byte(strings.Join(parts, Separator)))
}

func (h *Hasher) Digest(data []byte) string {
	if !h.Degraded() {
		digest, err := h.newHash()
		if err == nil {
			digest.Write(data)
			return hex.EncodeToString(digest.Sum(nil))
		}
		h.degrade(err)
	}

	weak := fnv.New32a()
	weak.Write(data)
	return hex.EncodeToString(weak.Sum(nil))
}

func (h *Hasher) newHash() (hash.Hash, error) {
	switch h.algorithm {
	case AlgorithmBlake2b:
		return blake2b.New256(h.key)
	default:
		return sha256.New(), nil
	}
}

func (h *Hasher) degrade(cause error) {
	h.once.Do(func() {
		h.degraded.Store(true)
		h.logger.Error("Content hash unavailable, using 32-bit FNV-1a",
			zap.String("algorithm", h.algorithm),
			zap.Error(types.WrapError(cause, types.ErrHashComputationFailure.Error())))
	})
}
