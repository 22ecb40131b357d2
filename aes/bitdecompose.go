//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package aes

import (
	"github.com/markkurossi/mpcaes/field"
	"github.com/markkurossi/mpcaes/runtime"
)

var powersOfTwo = func() []field.Element {
	result := make([]field.Element, 8)
	for i := range result {
		result[i] = field.GF256(1 << i)
	}
	return result
}()

// BitDecompose returns shares of the bits of the GF(2^8) share s,
// the least significant bit first. The value is masked with eight
// random shared bits and opened. The output bits are the bits of
// the opened value added to the random bits.
func BitDecompose(rt Runtime, s *runtime.Share) []*runtime.Share {
	r := rt.RandomMulti(field.GF256Field, 8, true)
	c := rt.Open(rt.Add(s, rt.LinComb(powersOfTwo, r)))

	result := make([]*runtime.Share, 8)
	for i := range result {
		i := i
		bit := rt.Map(c, func(v field.Element) field.Element {
			return field.GF256((v.Uint64() >> i) & 1)
		})
		result[i] = rt.Add(bit, r[i])
	}
	return result
}
