//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package field implements the finite fields used by the secret
// sharing runtime: the binary extension field GF(2^8) and prime
// fields GF(p).
package field

import (
	"fmt"
	"io"
	"math/big"
)

// Element is an immutable finite field element. Operations between
// elements of different fields panic.
type Element interface {
	// Field returns the element's field.
	Field() Field
	Add(b Element) Element
	Sub(b Element) Element
	Neg() Element
	Mul(b Element) Element
	// Inv returns the multiplicative inverse of the element. The
	// inverse of zero is zero.
	Inv() Element
	// Exp raises the element to the power e.
	Exp(e uint64) Element
	IsZero() bool
	Equal(b Element) bool
	// Bytes returns the big-endian encoding of the element value.
	Bytes() []byte
	// Uint64 returns the element value as an integer. Values larger
	// than 64 bits are truncated.
	Uint64() uint64
	String() string
}

// Field defines a finite field.
type Field interface {
	Name() string
	// Order returns the number of elements in the field.
	Order() *big.Int
	// Binary tests if the field has characteristic 2.
	Binary() bool
	Zero() Element
	One() Element
	FromUint64(v uint64) Element
	FromBig(v *big.Int) Element
	// FromBytes decodes the big-endian encoding of an element. It
	// returns an error if data is not a valid encoding.
	FromBytes(data []byte) (Element, error)
	// Random returns an uniformly random element, read from rand.
	Random(rand io.Reader) (Element, error)
}

func mismatch(a, b Element) string {
	return fmt.Sprintf("field mismatch: %s and %s",
		a.Field().Name(), b.Field().Name())
}

// Powers returns the powers e^(2^i) for i in [0...count].
func Powers(e Element, count int) []Element {
	result := make([]Element, count+1)
	result[0] = e
	for i := 1; i <= count; i++ {
		result[i] = result[i-1].Mul(result[i-1])
	}
	return result
}
