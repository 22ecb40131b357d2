//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package prf implements a keyed pseudo-random function mapping
// arbitrary inputs to integers in the range [0, max). The function is
// built from SHA-1 instances seeded with the key and the maximum.
//
// Two PRFs constructed with the same key and maximum are identical
// functions. Changing the maximum changes the function:
//
//	f, _ := prf.New([]byte("key"), big.NewInt(1000))
//	f.Eval("input") // 327
package prf

import (
	"crypto/sha1"
	"encoding"
	"fmt"
	"hash"
	"math/big"
)

// PRF implements a pseudo-random function. PRF values are immutable
// and safe for concurrent use.
type PRF struct {
	max   *big.Int
	bytes int
	bits  int
	// Marshalled states of the seeded SHA-1 instances, one per
	// digest block.
	states [][]byte
}

// New creates a PRF keyed with key. The PRF outputs values in the
// range [0, max).
func New(key []byte, max *big.Int) (*PRF, error) {
	if max.Sign() <= 0 {
		return nil, fmt.Errorf("invalid PRF maximum %v", max)
	}

	// Number of bits needed for values in [0, max-1].
	bitLength := new(big.Int).Sub(max, big.NewInt(1)).BitLen()
	if bitLength == 0 {
		bitLength = 1
	}
	bytes := (bitLength + 7) / 8
	blocks := (bytes + sha1.Size - 1) / sha1.Size

	f := &PRF{
		max:   new(big.Int).Set(max),
		bytes: bytes,
		bits:  bitLength % 8,
	}

	// The i:th generator is seeded with H^i(key || max).
	seed := append(append([]byte(nil), key...), max.String()...)
	for i := 0; i < blocks; i++ {
		if i > 0 {
			digest := sha1.Sum(seed)
			seed = digest[:]
		}
		h := sha1.New()
		h.Write(seed)
		state, err := h.(encoding.BinaryMarshaler).MarshalBinary()
		if err != nil {
			return nil, err
		}
		f.states = append(f.states, state)
	}

	return f, nil
}

// Max returns the PRF's exclusive upper bound.
func (f *PRF) Max() *big.Int {
	return new(big.Int).Set(f.max)
}

func (f *PRF) clone(i int) hash.Hash {
	h := sha1.New()
	err := h.(encoding.BinaryUnmarshaler).UnmarshalBinary(f.states[i])
	if err != nil {
		panic(err)
	}
	return h
}

// Eval evaluates the PRF for input. Strings and byte slices are used
// as-is; other values are converted with fmt.Sprint. The evaluation
// resamples until the value is below the maximum. Each attempt
// succeeds with probability at least 1/2.
func (f *PRF) Eval(input any) *big.Int {
	var data []byte
	switch in := input.(type) {
	case string:
		data = []byte(in)
	case []byte:
		data = append(data, in...)
	default:
		data = []byte(fmt.Sprint(input))
	}

	digest := make([]byte, 0, len(f.states)*sha1.Size)
	result := new(big.Int)
	for {
		digest = digest[:0]
		for i := range f.states {
			h := f.clone(i)
			h.Write(data)
			digest = h.Sum(digest)
		}
		result.SetBytes(digest[:f.bytes])
		if f.bits != 0 {
			result.Rsh(result, uint(8-f.bits))
		}
		if result.Cmp(f.max) < 0 {
			return result
		}
		// The last digest byte depends on the key so it is
		// unpredictable for anyone without the key.
		data = append(data, digest[len(digest)-1])
	}
}

// Uint64 evaluates the PRF for input and returns the result as
// uint64. It must be used only with maximums that fit into 64 bits.
func (f *PRF) Uint64(input any) uint64 {
	return f.Eval(input).Uint64()
}
