//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package field

import (
	"fmt"
	"io"
	"math/big"
)

// Rijndael reduction polynomial x^8 + x^4 + x^3 + x + 1.
const poly = 0x11b

var (
	expTable [510]byte
	logTable [256]int
)

func init() {
	var x uint = 1
	for i := 0; i < 255; i++ {
		expTable[i] = byte(x)
		expTable[i+255] = byte(x)
		logTable[x] = i

		// Multiply by the generator x+1.
		x ^= x << 1
		if x&0x100 != 0 {
			x ^= poly
		}
	}
}

// GF256 implements elements of the field GF(2^8).
type GF256 byte

var _ Element = GF256(0)

// GF256Field is the field GF(2^8).
var GF256Field Field = binaryField{}

type binaryField struct{}

func (binaryField) Name() string {
	return "GF(2^8)"
}

func (binaryField) Order() *big.Int {
	return big.NewInt(256)
}

func (binaryField) Binary() bool {
	return true
}

func (binaryField) Zero() Element {
	return GF256(0)
}

func (binaryField) One() Element {
	return GF256(1)
}

func (binaryField) FromUint64(v uint64) Element {
	return GF256(v)
}

func (binaryField) FromBig(v *big.Int) Element {
	return GF256(v.Uint64())
}

func (binaryField) FromBytes(data []byte) (Element, error) {
	if len(data) != 1 {
		return nil, fmt.Errorf("invalid GF(2^8) encoding: %d bytes",
			len(data))
	}
	return GF256(data[0]), nil
}

func (binaryField) Random(rand io.Reader) (Element, error) {
	var buf [1]byte
	if _, err := io.ReadFull(rand, buf[:]); err != nil {
		return nil, err
	}
	return GF256(buf[0]), nil
}

func (e GF256) other(b Element) GF256 {
	o, ok := b.(GF256)
	if !ok {
		panic(mismatch(e, b))
	}
	return o
}

// Field implements Element.Field.
func (e GF256) Field() Field {
	return GF256Field
}

// Add implements Element.Add. Addition is XOR.
func (e GF256) Add(b Element) Element {
	return e ^ e.other(b)
}

// Sub implements Element.Sub. Subtraction equals addition.
func (e GF256) Sub(b Element) Element {
	return e ^ e.other(b)
}

// Neg implements Element.Neg.
func (e GF256) Neg() Element {
	return e
}

// Mul implements Element.Mul.
func (e GF256) Mul(b Element) Element {
	return e.mul(e.other(b))
}

func (e GF256) mul(o GF256) GF256 {
	if e == 0 || o == 0 {
		return 0
	}
	return GF256(expTable[logTable[e]+logTable[o]])
}

// Inv implements Element.Inv.
func (e GF256) Inv() Element {
	if e == 0 {
		return GF256(0)
	}
	return GF256(expTable[255-logTable[e]])
}

// Exp implements Element.Exp.
func (e GF256) Exp(n uint64) Element {
	if n == 0 {
		return GF256(1)
	}
	if e == 0 {
		return GF256(0)
	}
	return GF256(expTable[(uint64(logTable[e])*(n%255))%255])
}

// IsZero implements Element.IsZero.
func (e GF256) IsZero() bool {
	return e == 0
}

// Equal implements Element.Equal.
func (e GF256) Equal(b Element) bool {
	o, ok := b.(GF256)
	return ok && o == e
}

// Bytes implements Element.Bytes.
func (e GF256) Bytes() []byte {
	return []byte{byte(e)}
}

// Uint64 implements Element.Uint64.
func (e GF256) Uint64() uint64 {
	return uint64(e)
}

func (e GF256) String() string {
	return fmt.Sprintf("{%02x}", byte(e))
}
