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

// State is the cipher state of 4 rows and Nb columns.
type State [][]*runtime.Share

// NewState creates the state from the input bytes. The bytes fill
// the state column by column.
func NewState(input []*runtime.Share) State {
	nb := len(input) / 4
	state := make(State, 4)
	for r := range state {
		state[r] = make([]*runtime.Share, nb)
		for c := 0; c < nb; c++ {
			state[r][c] = input[r+4*c]
		}
	}
	return state
}

// Bytes returns the state bytes in column order.
func (state State) Bytes() []*runtime.Share {
	var result []*runtime.Share
	for c := range state[0] {
		for r := range state {
			result = append(result, state[r][c])
		}
	}
	return result
}

// affine holds the coefficients of the S-box affine transformation
// applied to the bits of its input. The matrix row i gives output
// bit i, so the coefficient of input bit j is sum(A[i][j] * 2^i).
var affine = func() []field.Element {
	matrix := [8][8]byte{
		{1, 0, 0, 0, 1, 1, 1, 1},
		{1, 1, 0, 0, 0, 1, 1, 1},
		{1, 1, 1, 0, 0, 0, 1, 1},
		{1, 1, 1, 1, 0, 0, 0, 1},
		{1, 1, 1, 1, 1, 0, 0, 0},
		{0, 1, 1, 1, 1, 1, 0, 0},
		{0, 0, 1, 1, 1, 1, 1, 0},
		{0, 0, 0, 1, 1, 1, 1, 1},
	}
	result := make([]field.Element, 8)
	for j := range result {
		var c byte
		for i := range matrix {
			c |= matrix[i][j] << i
		}
		result[j] = field.GF256(c)
	}
	return result
}()

const affineConstant = field.GF256(0x63)

// mixColumn is the MixColumn matrix.
var mixColumn = [4][]field.Element{
	{field.GF256(2), field.GF256(3), field.GF256(1), field.GF256(1)},
	{field.GF256(1), field.GF256(2), field.GF256(3), field.GF256(1)},
	{field.GF256(1), field.GF256(1), field.GF256(2), field.GF256(3)},
	{field.GF256(3), field.GF256(1), field.GF256(1), field.GF256(2)},
}

// SubByte applies the S-box to the byte x.
func (a *AES) SubByte(x *runtime.Share) *runtime.Share {
	inv := BitDecompose(a.rt, a.invert(a.rt, x))
	return a.rt.AddConstant(a.rt.LinComb(affine, inv), affineConstant)
}

// ByteSub applies the S-box to all bytes of the state.
func (a *AES) ByteSub(state State) {
	for _, row := range state {
		for i := range row {
			row[i] = a.SubByte(row[i])
		}
	}
}

// ShiftRow rotates the state rows left by their row offsets.
func (a *AES) ShiftRow(state State) {
	offsets := [4]int{0, 1, 2, 3}
	if a.nb == 8 {
		offsets = [4]int{0, 1, 3, 4}
	}
	for i, row := range state {
		rotated := make([]*runtime.Share, len(row))
		for c := range row {
			rotated[c] = row[(c+offsets[i])%len(row)]
		}
		state[i] = rotated
	}
}

// MixColumn multiplies the state columns with the MixColumn matrix.
func (a *AES) MixColumn(state State) {
	nb := len(state[0])
	columns := make([][]*runtime.Share, nb)
	for c := range columns {
		for r := range state {
			columns[c] = append(columns[c], state[r][c])
		}
	}
	for r := range state {
		for c := range columns {
			state[r][c] = a.rt.LinComb(mixColumn[r], columns[c])
		}
	}
}

// AddRoundKey adds the round key words to the state columns.
func (a *AES) AddRoundKey(state State, words [][]*runtime.Share) {
	for r := range state {
		for c := range state[r] {
			state[r][c] = a.rt.Add(state[r][c], words[c][r])
		}
	}
}
