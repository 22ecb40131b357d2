//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package runtime

import (
	"io"

	"github.com/markkurossi/mpcaes/field"
)

// point returns the evaluation point of the player id.
func point(f field.Field, id int) field.Element {
	return f.FromUint64(uint64(id))
}

// shamirShare splits the secret into n shares with a random
// polynomial of degree t. The share of player i is the polynomial's
// value at i.
func shamirShare(rand io.Reader, secret field.Element, t, n int) (
	[]field.Element, error) {

	f := secret.Field()
	coeffs := []field.Element{secret}
	for i := 0; i < t; i++ {
		c, err := f.Random(rand)
		if err != nil {
			return nil, err
		}
		coeffs = append(coeffs, c)
	}

	result := make([]field.Element, n)
	for i := range result {
		x := point(f, i+1)
		y := f.Zero()
		for j := len(coeffs) - 1; j >= 0; j-- {
			y = y.Mul(x).Add(coeffs[j])
		}
		result[i] = y
	}
	return result, nil
}

// lagrange computes the Lagrange coefficients for recombining the
// value at zero from the points 1...n.
func lagrange(f field.Field, n int) []field.Element {
	result := make([]field.Element, n)
	for i := 1; i <= n; i++ {
		xi := point(f, i)
		l := f.One()
		for j := 1; j <= n; j++ {
			if j == i {
				continue
			}
			xj := point(f, j)
			l = l.Mul(xj).Mul(xj.Sub(xi).Inv())
		}
		result[i-1] = l
	}
	return result
}

// recombine computes the secret from the shares of all players.
func (rt *Runtime) recombine(f field.Field, shares []field.Element) (
	field.Element) {

	l, ok := rt.lambda[f]
	if !ok {
		l = lagrange(f, rt.n)
		rt.lambda[f] = l
	}
	result := f.Zero()
	for i, s := range shares {
		result = result.Add(l[i].Mul(s))
	}
	return result
}
