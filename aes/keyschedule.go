//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package aes

import (
	"fmt"

	"github.com/markkurossi/mpcaes/field"
	"github.com/markkurossi/mpcaes/runtime"
)

// KeySchedule holds the expanded key as 4-byte words. The schedule
// grows on demand, one round at a time.
type KeySchedule struct {
	aes   *AES
	words [][]*runtime.Share
}

// NewKeySchedule creates a key schedule for the key bytes. The key
// must have at least Nk words.
func (a *AES) NewKeySchedule(key []*runtime.Share) (*KeySchedule, error) {
	if len(key)%4 != 0 || len(key)/4 < a.nk {
		return nil, fmt.Errorf("%w: got %d key bytes, expected %d",
			ErrInputLength, len(key), 4*a.nk)
	}
	ks := &KeySchedule{
		aes: a,
	}
	for i := 0; i < len(key); i += 4 {
		ks.words = append(ks.words, key[i:i+4:i+4])
	}
	return ks, nil
}

// Len returns the number of words in the schedule.
func (ks *KeySchedule) Len() int {
	return len(ks.words)
}

// Expand grows the schedule to cover the round key of the round.
// Expanding to a round that is already covered does nothing.
func (ks *KeySchedule) Expand(round int) {
	a := ks.aes
	rt := a.rt

	for i := len(ks.words); i < a.nb*(round+1); i++ {
		temp := append([]*runtime.Share(nil), ks.words[i-1]...)

		if i%a.nk == 0 {
			temp = append(temp[1:], temp[0])
			for j := range temp {
				temp[j] = a.SubByte(temp[j])
			}
			rcon := field.GF256(2).Exp(uint64(i/a.nk - 1))
			temp[0] = rt.AddConstant(temp[0], rcon)
		} else if a.nk > 6 && i%a.nk == 4 {
			for j := range temp {
				temp[j] = a.SubByte(temp[j])
			}
		}

		prev := ks.words[i-a.nk]
		word := make([]*runtime.Share, 4)
		for j := range word {
			word[j] = rt.Add(prev[j], temp[j])
		}
		ks.words = append(ks.words, word)
	}
}

// RoundKey returns the Nb words of the round key of the round,
// expanding the schedule as needed.
func (ks *KeySchedule) RoundKey(round int) [][]*runtime.Share {
	ks.Expand(round)
	nb := ks.aes.nb
	return ks.words[round*nb : (round+1)*nb]
}
