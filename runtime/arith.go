//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package runtime

import (
	"fmt"

	"github.com/markkurossi/mpcaes/field"
	"github.com/markkurossi/mpcaes/p2p"
)

func checkFields(shares ...*Share) field.Field {
	f := shares[0].field
	for _, s := range shares[1:] {
		if s.field != f {
			panic(fmt.Sprintf("field mismatch: %s and %s",
				f.Name(), s.field.Name()))
		}
	}
	return f
}

func checkElement(f field.Field, e field.Element) {
	if e.Field() != f {
		panic(fmt.Sprintf("field mismatch: %s and %s",
			f.Name(), e.Field().Name()))
	}
}

// lift applies the local function fn to the values of the input
// shares. The result is computed synchronously if all inputs are
// already resolved. Local operations don't add to the depth.
func (rt *Runtime) lift(f field.Field, inputs []*Share,
	fn func(v []field.Element) field.Element) *Share {

	base := rt.depth
	if v, ok := values(inputs); ok {
		return resolvedShare(fn(v), maxDepth(base, inputs...))
	}
	result := newShare(f)
	Gather(inputs).OnComplete(func(v []field.Element, err error) {
		if err != nil {
			result.Fail(err)
			return
		}
		result.depth = maxDepth(base, inputs...)
		result.Resolve(fn(v))
	})
	return result
}

// decode decodes the elements the players sent for the operation
// pc. Invalid encodings fail the runtime.
func (rt *Runtime) decode(f field.Field, pc []int, data [][]byte) (
	[]field.Element, error) {

	result := make([]field.Element, len(data))
	for i, d := range data {
		e, err := f.FromBytes(d)
		if err != nil {
			err = fmt.Errorf("operation %s: player %d: %w",
				p2p.PCString(pc), i+1, err)
			rt.fail(err)
			return nil, err
		}
		result[i] = e
	}
	return result, nil
}

// Constant returns the constant v as a share. Constants are valid
// degree zero sharings.
func (rt *Runtime) Constant(v field.Element) *Share {
	return resolvedShare(v, rt.depth)
}

// Add returns a + b.
func (rt *Runtime) Add(a, b *Share) *Share {
	f := checkFields(a, b)
	return rt.lift(f, []*Share{a, b}, func(v []field.Element) field.Element {
		return v[0].Add(v[1])
	})
}

// Sub returns a - b.
func (rt *Runtime) Sub(a, b *Share) *Share {
	f := checkFields(a, b)
	return rt.lift(f, []*Share{a, b}, func(v []field.Element) field.Element {
		return v[0].Sub(v[1])
	})
}

// Neg returns -a.
func (rt *Runtime) Neg(a *Share) *Share {
	return rt.lift(a.field, []*Share{a}, func(v []field.Element) field.Element {
		return v[0].Neg()
	})
}

// AddConstant returns a + c for the public constant c.
func (rt *Runtime) AddConstant(a *Share, c field.Element) *Share {
	checkElement(a.field, c)
	return rt.lift(a.field, []*Share{a}, func(v []field.Element) field.Element {
		return v[0].Add(c)
	})
}

// Scale returns c * a for the public constant c.
func (rt *Runtime) Scale(a *Share, c field.Element) *Share {
	checkElement(a.field, c)
	return rt.lift(a.field, []*Share{a}, func(v []field.Element) field.Element {
		return v[0].Mul(c)
	})
}

// LinComb returns the linear combination sum(coeffs[i] * shares[i]).
func (rt *Runtime) LinComb(coeffs []field.Element, shares []*Share) *Share {
	if len(coeffs) != len(shares) || len(shares) == 0 {
		panic(fmt.Sprintf("LinComb: %d coefficients, %d shares",
			len(coeffs), len(shares)))
	}
	f := checkFields(shares...)
	for _, c := range coeffs {
		checkElement(f, c)
	}
	return rt.lift(f, shares, func(v []field.Element) field.Element {
		result := f.Zero()
		for i, c := range coeffs {
			result = result.Add(c.Mul(v[i]))
		}
		return result
	})
}

// Map applies the public function fn to the value of the share. The
// function must be linear or s must be a public value.
func (rt *Runtime) Map(s *Share, fn func(field.Element) field.Element) *Share {
	return rt.lift(s.field, []*Share{s}, func(v []field.Element) field.Element {
		return fn(v[0])
	})
}

// Mul returns a * b. The local product of two degree t sharings has
// degree 2t. It is reshared with fresh degree t polynomials, and the
// new share is the Lagrange recombination of the subshares.
func (rt *Runtime) Mul(a, b *Share) *Share {
	f := checkFields(a, b)

	rt.IncrementPC()
	pc := rt.PC()
	rt.stats.Multiplications++

	base := rt.depth
	result := newShare(f)
	rt.expect(pc, func(data [][]byte) {
		if result.Done() {
			return
		}
		subshares, err := rt.decode(f, pc, data)
		if err != nil {
			result.Fail(err)
			return
		}
		result.Resolve(rt.recombine(f, subshares))
	})

	Gather([]*Share{a, b}).OnComplete(func(v []field.Element, err error) {
		if err != nil {
			result.Fail(err)
			return
		}
		result.depth = maxDepth(base, a, b) + 1
		shares, err := shamirShare(rt.rand, v[0].Mul(v[1]), rt.t, rt.n)
		if err != nil {
			result.Fail(err)
			return
		}
		for i, s := range shares {
			rt.send(i+1, pc, s.Bytes())
		}
	})
	return result
}

// Open reveals the secret of the share to all players. The result
// is a public share holding the secret.
func (rt *Runtime) Open(s *Share) *Share {
	f := s.field

	rt.IncrementPC()
	pc := rt.PC()
	rt.stats.Opens++

	base := rt.depth
	result := newShare(f)
	rt.expect(pc, func(data [][]byte) {
		if result.Done() {
			return
		}
		shares, err := rt.decode(f, pc, data)
		if err != nil {
			result.Fail(err)
			return
		}
		v := rt.recombine(f, shares)
		log.Debugf("%s: open %s: %s", rt, p2p.PCString(pc), v)
		result.Resolve(v)
	})

	s.OnComplete(func(v field.Element, err error) {
		if err != nil {
			result.Fail(err)
			return
		}
		result.depth = maxDepth(base, s) + 1
		for id := 1; id <= rt.n; id++ {
			rt.send(id, pc, v.Bytes())
		}
	})
	return result
}
