//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package aes implements the Rijndael block cipher over secret
// shared GF(2^8) elements. The cleartext and the key may be public
// or secret shared. Linear operations are local and the S-box
// inversion is computed with one of the Inversion protocols.
package aes

import (
	"errors"
	"fmt"
	"time"

	logging "github.com/ipfs/go-log/v2"

	"github.com/markkurossi/mpcaes/field"
	"github.com/markkurossi/mpcaes/runtime"
)

var log = logging.Logger("aes")

// Precondition errors.
var (
	ErrKeySize     = errors.New("invalid key size")
	ErrBlockSize   = errors.New("invalid block size")
	ErrInputLength = errors.New("invalid input length")
	ErrInputField  = errors.New("input not in GF(2^8)")
	ErrInversion   = errors.New("unknown inversion protocol")
)

// Runtime defines the secret sharing operations the cipher uses.
type Runtime interface {
	NewShare(f field.Field) *runtime.Share
	Constant(v field.Element) *runtime.Share
	Add(a, b *runtime.Share) *runtime.Share
	Sub(a, b *runtime.Share) *runtime.Share
	AddConstant(a *runtime.Share, c field.Element) *runtime.Share
	Scale(a *runtime.Share, c field.Element) *runtime.Share
	LinComb(coeffs []field.Element, shares []*runtime.Share) *runtime.Share
	Map(s *runtime.Share, fn func(field.Element) field.Element) *runtime.Share
	Mul(a, b *runtime.Share) *runtime.Share
	Open(s *runtime.Share) *runtime.Share
	Random(f field.Field) *runtime.Share
	RandomMulti(f field.Field, q int, binary bool) []*runtime.Share
	Powerchain(f field.Field, max int) []*runtime.Share
	IncrementPC()
	Fork() (release func())
	Schedule(s *runtime.Share,
		fn func(v field.Element) *runtime.Share) *runtime.Share
	ScheduleAll(shares []*runtime.Share, count int,
		fn func(v []field.Element) []*runtime.Share) []*runtime.Share
}

// Scheduling defines how the cipher rounds are issued.
type Scheduling int

// Scheduling policies.
const (
	// Eager issues the operations of all rounds at once.
	Eager Scheduling = iota
	// Incremental issues a round once the state of the previous
	// round is resolved.
	Incremental
)

func (s Scheduling) String() string {
	switch s {
	case Eager:
		return "eager"
	case Incremental:
		return "incremental"
	default:
		return fmt.Sprintf("{Scheduling %d}", int(s))
	}
}

// Params define the cipher parameters.
type Params struct {
	// KeySize is the key size in bits: 128, 192, or 256.
	KeySize int
	// BlockSize is the block size in bits: 128, 192, or 256. The
	// zero value selects 128.
	BlockSize  int
	Inversion  Inversion
	Scheduling Scheduling
	// Timing, if set, collects per-round timing samples.
	Timing *Timing
}

// AES implements the Rijndael cipher over a runtime.
type AES struct {
	rt     Runtime
	params Params
	nk     int
	nb     int
	rounds int
	invert inverter
}

func words(bits int) (int, bool) {
	switch bits {
	case 128, 192, 256:
		return bits / 32, true
	default:
		return 0, false
	}
}

// New creates a new cipher instance.
func New(rt Runtime, params Params) (*AES, error) {
	if params.BlockSize == 0 {
		params.BlockSize = 128
	}
	nk, ok := words(params.KeySize)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrKeySize, params.KeySize)
	}
	nb, ok := words(params.BlockSize)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrBlockSize, params.BlockSize)
	}
	invert, err := params.Inversion.inverter()
	if err != nil {
		return nil, err
	}
	return &AES{
		rt:     rt,
		params: params,
		nk:     nk,
		nb:     nb,
		rounds: max(nk, nb) + 6,
		invert: invert,
	}, nil
}

// Rounds returns the number of cipher rounds.
func (a *AES) Rounds() int {
	return a.rounds
}

// Input converts the public bytes into shares.
func (a *AES) Input(data []byte) []*runtime.Share {
	result := make([]*runtime.Share, len(data))
	for i, b := range data {
		result[i] = a.rt.Constant(field.GF256(b))
	}
	return result
}

func checkInput(name string, input []*runtime.Share, expected int) error {
	if len(input) != expected {
		return fmt.Errorf("%w: %s has %d bytes, expected %d",
			ErrInputLength, name, len(input), expected)
	}
	for i, s := range input {
		if s.Field() != field.GF256Field {
			return fmt.Errorf("%w: %s[%d] in %s",
				ErrInputField, name, i, s.Field().Name())
		}
	}
	return nil
}

// Encrypt encrypts the cleartext with the key. It returns the
// ciphertext shares immediately. They resolve once the cipher
// rounds complete, which the caller drives with the runtime's event
// loop.
func (a *AES) Encrypt(cleartext, key []*runtime.Share) (
	[]*runtime.Share, error) {

	if err := checkInput("cleartext", cleartext, 4*a.nb); err != nil {
		return nil, err
	}
	if err := checkInput("key", key, 4*a.nk); err != nil {
		return nil, err
	}

	a.rt.IncrementPC()
	release := a.rt.Fork()
	defer release()

	ks, err := a.NewKeySchedule(key)
	if err != nil {
		return nil, err
	}
	start := time.Now()

	state := NewState(cleartext)
	a.AddRoundKey(state, ks.RoundKey(0))
	a.sample(0, start, state)

	log.Debugf("encrypt: key=%d, block=%d, rounds=%d, %s, %s",
		a.params.KeySize, a.params.BlockSize, a.rounds,
		a.params.Inversion, a.params.Scheduling)

	var out []*runtime.Share
	switch a.params.Scheduling {
	case Incremental:
		out = a.incremental(state, ks, 1)

	default:
		for i := 1; i <= a.rounds; i++ {
			a.round(state, ks, i)
		}
		out = state.Bytes()
	}

	result := make([]*runtime.Share, len(out))
	for i, s := range out {
		result[i] = a.rt.NewShare(field.GF256Field)
		result[i].Bind(s)
	}
	return result, nil
}

// round issues the operations of the round i. The final round omits
// MixColumn.
func (a *AES) round(state State, ks *KeySchedule, i int) {
	start := time.Now()

	ks.Expand(i)
	a.ByteSub(state)
	a.ShiftRow(state)
	if i < a.rounds {
		a.MixColumn(state)
	}
	a.AddRoundKey(state, ks.RoundKey(i))

	a.sample(i, start, state)
}

// incremental issues the round i and schedules the next round on
// the resolution of its state. It returns the ciphertext bytes.
func (a *AES) incremental(state State, ks *KeySchedule,
	i int) []*runtime.Share {

	a.round(state, ks, i)
	if i == a.rounds {
		return state.Bytes()
	}
	trigger := state.Bytes()
	return a.rt.ScheduleAll(trigger, len(trigger),
		func(v []field.Element) []*runtime.Share {
			return a.incremental(state, ks, i+1)
		})
}

func (a *AES) sample(round int, start time.Time, state State) {
	if a.params.Timing == nil {
		return
	}
	a.params.Timing.Round(round, start, time.Now(), state.Bytes())
}
