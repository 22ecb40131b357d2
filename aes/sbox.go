//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package aes

import (
	"fmt"
	"math/bits"
	"strconv"

	"github.com/markkurossi/mpcaes/field"
	"github.com/markkurossi/mpcaes/runtime"
)

// Inversion selects the protocol computing the multiplicative
// inverse of the S-box. The inverse of zero is zero.
type Inversion int

// Inversion protocols.
const (
	// Masking multiplies the value with a random mask, opens the
	// product, and unmasks its public inverse.
	Masking Inversion = iota
	// Exponentiation computes x^254 with the shortest sequential
	// addition chain.
	Exponentiation
	// SquareAndMultiply computes x^254 with the binary method.
	SquareAndMultiply
	// ChainLessRounds computes x^254 with the shortest addition
	// chain having less rounds.
	ChainLessRounds
	// ChainLeastRounds computes x^254 with an addition chain having
	// the least number of rounds.
	ChainLeastRounds
	// MaskedExponentiation opens the value masked with a random
	// power chain and computes the powers x^(2^i) locally.
	MaskedExponentiation
	// MaskedExponentiationOnline computes the powers x^(2^i) from
	// the bit decomposition of the value.
	MaskedExponentiationOnline
)

var inversionNames = map[Inversion]string{
	Masking:                    "masking",
	Exponentiation:             "shortest-sequential-chain",
	SquareAndMultiply:          "square-and-multiply",
	ChainLessRounds:            "shortest-chain-with-least-rounds",
	ChainLeastRounds:           "chain-with-least-rounds",
	MaskedExponentiation:       "masked",
	MaskedExponentiationOnline: "masked-online",
}

func (inv Inversion) String() string {
	name, ok := inversionNames[inv]
	if ok {
		return name
	}
	return fmt.Sprintf("{Inversion %d}", inv)
}

// Inversions returns all inversion protocols.
func Inversions() []Inversion {
	var result []Inversion
	for inv := Masking; inv <= MaskedExponentiationOnline; inv++ {
		result = append(result, inv)
	}
	return result
}

// ParseInversion parses the inversion protocol from its name or
// numeric index.
func ParseInversion(s string) (Inversion, error) {
	for inv, name := range inversionNames {
		if name == s {
			return inv, nil
		}
	}
	idx, err := strconv.Atoi(s)
	if err == nil {
		if _, ok := inversionNames[Inversion(idx)]; ok {
			return Inversion(idx), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInversion, s)
}

type inverter func(rt Runtime, x *runtime.Share) *runtime.Share

func (inv Inversion) inverter() (inverter, error) {
	switch inv {
	case Masking:
		return invertMasking, nil
	case Exponentiation:
		return shortestSequential.eval, nil
	case SquareAndMultiply:
		return squareAndMultiply(254).eval, nil
	case ChainLessRounds:
		return lessRounds.eval, nil
	case ChainLeastRounds:
		return leastRounds.eval, nil
	case MaskedExponentiation:
		return invertMaskedExponentiation, nil
	case MaskedExponentiationOnline:
		return invertMaskedExponentiationOnline, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrInversion, inv)
	}
}

// treeProduct multiplies the shares level by level. Each level
// multiplies adjacent pairs and carries an odd last factor to the
// next level, so the product has depth ceil(log2(len(shares))).
func treeProduct(rt Runtime, shares []*runtime.Share) *runtime.Share {
	level := shares
	for len(level) > 1 {
		next := make([]*runtime.Share, 0, (len(level)+1)/2)
		for i := 0; i+1 < len(level); i += 2 {
			next = append(next, rt.Mul(level[i], level[i+1]))
		}
		if len(level)%2 == 1 {
			next = append(next, level[len(level)-1])
		}
		level = next
	}
	return level[0]
}

func invertMasking(rt Runtime, x *runtime.Share) *runtime.Share {
	// b = 1 iff x = 0.
	xbits := BitDecompose(rt, x)
	for i := range xbits {
		xbits[i] = rt.AddConstant(xbits[i], field.GF256(1))
	}
	b := treeProduct(rt, xbits)

	return invertMasked(rt, rt.Add(x, b), b)
}

// invertMasked computes y^-1 - b for the nonzero y. The mask r is
// redrawn until it is nonzero.
func invertMasked(rt Runtime, y, b *runtime.Share) *runtime.Share {
	r := rt.Random(field.GF256Field)
	c := rt.Open(rt.Mul(y, r))
	return rt.Schedule(c, func(v field.Element) *runtime.Share {
		if v.IsZero() {
			return invertMasked(rt, y, b)
		}
		return rt.Sub(rt.Scale(r, v.Inv()), b)
	})
}

func invertMaskedExponentiation(rt Runtime, x *runtime.Share) *runtime.Share {
	rho := rt.Powerchain(field.GF256Field, 7)
	c := rt.Open(rt.Add(x, rho[0]))

	// x = c + rho and squaring is linear so x^(2^i) = c^(2^i) + rho^(2^i).
	return rt.Schedule(c, func(v field.Element) *runtime.Share {
		powers := field.Powers(v, 7)
		var factors []*runtime.Share
		for i := 1; i <= 7; i++ {
			factors = append(factors, rt.AddConstant(rho[i], powers[i]))
		}
		return treeProduct(rt, factors)
	})
}

// bitPowers[i][j] is (2^j)^(2^i).
var bitPowers = func() [][]field.Element {
	result := make([][]field.Element, 8)
	for i := range result {
		for j := 0; j < 8; j++ {
			result[i] = append(result[i],
				field.GF256(1<<j).Exp(uint64(1)<<i))
		}
	}
	return result
}()

func invertMaskedExponentiationOnline(rt Runtime,
	x *runtime.Share) *runtime.Share {

	xbits := BitDecompose(rt, x)
	var factors []*runtime.Share
	for i := 1; i <= 7; i++ {
		factors = append(factors, rt.LinComb(bitPowers[i], xbits))
	}
	return treeProduct(rt, factors)
}

// additionChain computes a power of its input. Each step multiplies
// two earlier powers x^a and x^b into x^(a+b), and the last step
// gives the result.
type additionChain [][2]int

var (
	shortestSequential = additionChain{
		{1, 1}, {2, 1}, {3, 3}, {6, 6}, {12, 3}, {15, 15}, {30, 30},
		{60, 3}, {63, 63}, {126, 126}, {252, 2},
	}
	lessRounds = additionChain{
		{1, 1}, {2, 2}, {4, 4}, {8, 1}, {9, 9}, {18, 1}, {18, 18},
		{36, 19}, {36, 36}, {72, 55}, {127, 127},
	}
	leastRounds = additionChain{
		{1, 1}, {2, 1}, {2, 2}, {4, 3}, {4, 4}, {8, 7}, {8, 8},
		{16, 15}, {16, 16}, {32, 31}, {32, 32}, {64, 63}, {127, 127},
	}
)

// squareAndMultiply creates the addition chain of the left-to-right
// binary exponentiation method.
func squareAndMultiply(e int) additionChain {
	var chain additionChain
	acc := 1
	for bit := bits.Len(uint(e)) - 2; bit >= 0; bit-- {
		chain = append(chain, [2]int{acc, acc})
		acc *= 2
		if e&(1<<bit) != 0 {
			chain = append(chain, [2]int{acc, 1})
			acc++
		}
	}
	return chain
}

// exponent returns the exponent the chain computes.
func (chain additionChain) exponent() int {
	if len(chain) == 0 {
		return 1
	}
	last := chain[len(chain)-1]
	return last[0] + last[1]
}

func (chain additionChain) eval(rt Runtime, x *runtime.Share) *runtime.Share {
	powers := map[int]*runtime.Share{
		1: x,
	}
	result := x
	for _, step := range chain {
		a, ok := powers[step[0]]
		if !ok {
			panic(fmt.Sprintf("addition chain: x^%d not computed", step[0]))
		}
		b, ok := powers[step[1]]
		if !ok {
			panic(fmt.Sprintf("addition chain: x^%d not computed", step[1]))
		}
		result = rt.Mul(a, b)
		powers[step[0]+step[1]] = result
	}
	return result
}
