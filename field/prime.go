//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package field

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

// PrimeField implements the prime field GF(p).
type PrimeField struct {
	p    *big.Int
	name string
}

// NewPrimeField creates a new prime field with the modulus p. The
// function returns an error if p is not a prime.
func NewPrimeField(p *big.Int) (*PrimeField, error) {
	if p.Sign() <= 0 || !p.ProbablyPrime(20) {
		return nil, fmt.Errorf("modulus %v is not a prime", p)
	}
	return &PrimeField{
		p:    new(big.Int).Set(p),
		name: fmt.Sprintf("GF(%v)", p),
	}, nil
}

// Name implements Field.Name.
func (f *PrimeField) Name() string {
	return f.name
}

// Order implements Field.Order.
func (f *PrimeField) Order() *big.Int {
	return new(big.Int).Set(f.p)
}

// Binary implements Field.Binary.
func (f *PrimeField) Binary() bool {
	return f.p.Cmp(big.NewInt(2)) == 0
}

// Zero implements Field.Zero.
func (f *PrimeField) Zero() Element {
	return f.elem(new(big.Int))
}

// One implements Field.One.
func (f *PrimeField) One() Element {
	return f.elem(big.NewInt(1))
}

// FromUint64 implements Field.FromUint64.
func (f *PrimeField) FromUint64(v uint64) Element {
	return f.FromBig(new(big.Int).SetUint64(v))
}

// FromBig implements Field.FromBig.
func (f *PrimeField) FromBig(v *big.Int) Element {
	return f.elem(new(big.Int).Mod(v, f.p))
}

// FromBytes implements Field.FromBytes. The encoding of zero is
// empty. Values not reduced modulo p are rejected.
func (f *PrimeField) FromBytes(data []byte) (Element, error) {
	if len(data) > (f.p.BitLen()+7)/8 {
		return nil, fmt.Errorf("invalid %s encoding: %d bytes",
			f.name, len(data))
	}
	v := new(big.Int).SetBytes(data)
	if v.Cmp(f.p) >= 0 {
		return nil, fmt.Errorf("invalid %s encoding: %v not reduced",
			f.name, v)
	}
	return f.elem(v), nil
}

// Random implements Field.Random.
func (f *PrimeField) Random(r io.Reader) (Element, error) {
	v, err := rand.Int(r, f.p)
	if err != nil {
		return nil, err
	}
	return f.elem(v), nil
}

func (f *PrimeField) elem(v *big.Int) *Zp {
	return &Zp{
		f: f,
		v: v,
	}
}

// Zp implements elements of prime fields.
type Zp struct {
	f *PrimeField
	v *big.Int
}

func (e *Zp) other(b Element) *Zp {
	o, ok := b.(*Zp)
	if !ok || o.f.p.Cmp(e.f.p) != 0 {
		panic(mismatch(e, b))
	}
	return o
}

// Field implements Element.Field.
func (e *Zp) Field() Field {
	return e.f
}

// Add implements Element.Add.
func (e *Zp) Add(b Element) Element {
	v := new(big.Int).Add(e.v, e.other(b).v)
	if v.Cmp(e.f.p) >= 0 {
		v.Sub(v, e.f.p)
	}
	return e.f.elem(v)
}

// Sub implements Element.Sub.
func (e *Zp) Sub(b Element) Element {
	v := new(big.Int).Sub(e.v, e.other(b).v)
	if v.Sign() < 0 {
		v.Add(v, e.f.p)
	}
	return e.f.elem(v)
}

// Neg implements Element.Neg.
func (e *Zp) Neg() Element {
	if e.v.Sign() == 0 {
		return e
	}
	return e.f.elem(new(big.Int).Sub(e.f.p, e.v))
}

// Mul implements Element.Mul.
func (e *Zp) Mul(b Element) Element {
	v := new(big.Int).Mul(e.v, e.other(b).v)
	return e.f.elem(v.Mod(v, e.f.p))
}

// Inv implements Element.Inv.
func (e *Zp) Inv() Element {
	if e.v.Sign() == 0 {
		return e
	}
	return e.f.elem(new(big.Int).ModInverse(e.v, e.f.p))
}

// Exp implements Element.Exp.
func (e *Zp) Exp(n uint64) Element {
	return e.f.elem(new(big.Int).Exp(e.v, new(big.Int).SetUint64(n), e.f.p))
}

// IsZero implements Element.IsZero.
func (e *Zp) IsZero() bool {
	return e.v.Sign() == 0
}

// Equal implements Element.Equal.
func (e *Zp) Equal(b Element) bool {
	o, ok := b.(*Zp)
	return ok && o.f.p.Cmp(e.f.p) == 0 && o.v.Cmp(e.v) == 0
}

// Bytes implements Element.Bytes.
func (e *Zp) Bytes() []byte {
	return e.v.Bytes()
}

// Uint64 implements Element.Uint64.
func (e *Zp) Uint64() uint64 {
	return e.v.Uint64()
}

// Big returns the element value.
func (e *Zp) Big() *big.Int {
	return new(big.Int).Set(e.v)
}

func (e *Zp) String() string {
	return e.v.String()
}
