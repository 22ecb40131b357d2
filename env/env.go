//
// Copyright (c) 2025-2026 Markku Rossi
//
// All rights reserved.
//

// Package env implements global environment for the MPC system.
package env

import (
	"crypto/rand"
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/chacha20"
)

// Config defines the global system configuration for the MPC system.
// It configures system operation for all MPC modules. Config must not
// be modified after being passed to any MPC module.
type Config struct {
	// Rand is the entropy source for share polynomials and key
	// generation. If unset, crypto/rand is used.
	Rand io.Reader
}

// GetRandom returns the source of entropy for secret sharing and key
// generation.
func (config *Config) GetRandom() io.Reader {
	if config != nil && config.Rand != nil {
		return config.Rand
	}
	return rand.Reader
}

// PRG implements a deterministic random stream. PRG is not safe for
// concurrent use.
type PRG struct {
	cipher *chacha20.Cipher
}

// NewPRG creates a deterministic random stream from the seed. The
// same seed always produces the same stream.
func NewPRG(seed []byte) *PRG {
	key := sha256.Sum256(seed)
	var nonce [chacha20.NonceSize]byte

	c, err := chacha20.NewUnauthenticatedCipher(key[:], nonce[:])
	if err != nil {
		panic(err)
	}
	return &PRG{
		cipher: c,
	}
}

// Read implements io.Reader.
func (prg *PRG) Read(p []byte) (int, error) {
	clear(p)
	prg.cipher.XORKeyStream(p, p)
	return len(p), nil
}
