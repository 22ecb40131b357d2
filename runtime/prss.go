//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package runtime

import (
	"fmt"
	"math/big"

	"github.com/markkurossi/mpcaes/field"
	"github.com/markkurossi/mpcaes/p2p"
	"github.com/markkurossi/mpcaes/prf"
)

// prssKey holds the key of a maximal unqualified player subset A.
// Every player in A derives the same pseudo-random value r_A from
// the key, and contributes r_A * f_A(id) to the sharing, where f_A
// is the degree t polynomial with f_A(0) = 1 and f_A(j) = 0 for all
// j outside A. The sum over all subsets is a Shamir sharing of the
// sum of the r_A values.
type prssKey struct {
	subset []int
	key    []byte
	prfs   map[string]*prf.PRF
	coeffs map[field.Field]field.Element
}

func newPRSSKey(subset []int, key []byte) *prssKey {
	return &prssKey{
		subset: subset,
		key:    key,
		prfs:   make(map[string]*prf.PRF),
		coeffs: make(map[field.Field]field.Element),
	}
}

func (k *prssKey) prf(max *big.Int) *prf.PRF {
	name := max.String()
	p, ok := k.prfs[name]
	if !ok {
		var err error
		p, err = prf.New(k.key, max)
		if err != nil {
			panic(err)
		}
		k.prfs[name] = p
	}
	return p
}

// coeff returns f_A(id) in the field f.
func (k *prssKey) coeff(f field.Field, id, n int) field.Element {
	c, ok := k.coeffs[f]
	if ok {
		return c
	}
	in := make(map[int]bool)
	for _, j := range k.subset {
		in[j] = true
	}
	x := point(f, id)
	c = f.One()
	for j := 1; j <= n; j++ {
		if in[j] {
			continue
		}
		xj := point(f, j)
		c = c.Mul(xj.Sub(x)).Mul(xj.Inv())
	}
	k.coeffs[f] = c
	return c
}

// draw evaluates the PRF of every subset at the current program
// counter with the range max.
func (rt *Runtime) draw(max *big.Int) []*big.Int {
	rt.IncrementPC()
	rt.stats.Randoms++
	input := p2p.PCString(rt.pc)

	result := make([]*big.Int, len(rt.prss))
	for i, key := range rt.prss {
		result[i] = key.prf(max).Eval(input)
	}
	return result
}

// Random returns a share of a uniformly random field element.
func (rt *Runtime) Random(f field.Field) *Share {
	return rt.RandomMulti(f, 1, false)[0]
}

// RandomBit returns a share of a random bit. Bits are available in
// binary fields only.
func (rt *Runtime) RandomBit(f field.Field) *Share {
	return rt.RandomMulti(f, 1, true)[0]
}

// RandomMulti returns q shares of random field elements with one
// PRF evaluation per subset. If binary is true, the values are
// random bits. Since the sum of bits is a bit only in binary
// fields, bits are available in binary fields only.
func (rt *Runtime) RandomMulti(f field.Field, q int, binary bool) []*Share {
	if q <= 0 {
		panic(fmt.Sprintf("RandomMulti: invalid count %d", q))
	}
	m := f.Order()
	if binary {
		if !f.Binary() {
			panic(fmt.Sprintf("random bits in non-binary field %s", f.Name()))
		}
		m = big.NewInt(2)
	}
	max := new(big.Int).Exp(m, big.NewInt(int64(q)), nil)

	sums := make([]field.Element, q)
	for i := range sums {
		sums[i] = f.Zero()
	}
	var digit big.Int
	for i, v := range rt.draw(max) {
		c := rt.prss[i].coeff(f, rt.id, rt.n)
		v = new(big.Int).Set(v)
		for j := 0; j < q; j++ {
			v.DivMod(v, m, &digit)
			sums[j] = sums[j].Add(f.FromBig(&digit).Mul(c))
		}
	}

	result := make([]*Share, q)
	for i, s := range sums {
		result[i] = resolvedShare(s, rt.depth)
	}
	return result
}

// Powerchain returns shares of r^(2^i) for i in [0...max] for a
// random field element r. The sharing is linear in the subset
// values r_A only in binary fields, where squaring is linear.
func (rt *Runtime) Powerchain(f field.Field, max int) []*Share {
	if !f.Binary() {
		panic(fmt.Sprintf("power chain in non-binary field %s", f.Name()))
	}
	sums := make([]field.Element, max+1)
	for i := range sums {
		sums[i] = f.Zero()
	}
	for i, v := range rt.draw(f.Order()) {
		c := rt.prss[i].coeff(f, rt.id, rt.n)
		for j, p := range field.Powers(f.FromBig(v), max) {
			sums[j] = sums[j].Add(p.Mul(c))
		}
	}

	result := make([]*Share, max+1)
	for i, s := range sums {
		result[i] = resolvedShare(s, rt.depth)
	}
	return result
}
