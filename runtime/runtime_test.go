//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package runtime

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/markkurossi/mpcaes/config"
	"github.com/markkurossi/mpcaes/env"
	"github.com/markkurossi/mpcaes/field"
	"github.com/markkurossi/mpcaes/p2p"
)

func newPlayers(t *testing.T, n, threshold int) []*Runtime {
	t.Helper()
	rts, err := NewMesh(n, threshold, &env.Config{
		Rand: env.NewPRG([]byte(t.Name())),
	})
	if err != nil {
		t.Fatalf("NewMesh: %v", err)
	}
	return rts
}

// run runs the program on all players and returns the values of the
// program's result shares, indexed by player.
func run(t *testing.T, rts []*Runtime,
	program func(rt *Runtime) []*Share) [][]field.Element {

	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result := make([][]field.Element, len(rts))
	errs := make([]error, len(rts))

	var wg sync.WaitGroup
	for i, rt := range rts {
		i, rt := i, rt
		wg.Add(1)
		go func() {
			defer wg.Done()
			shares := program(rt)
			errs[i] = rt.Wait(ctx, shares...)
			for _, s := range shares {
				v, _ := s.Result()
				result[i] = append(result[i], v)
			}
			rt.Close()
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("player %d: %v", i+1, err)
		}
	}
	return result
}

func checkAgree(t *testing.T, values [][]field.Element) []field.Element {
	t.Helper()
	for i := 1; i < len(values); i++ {
		for j, v := range values[i] {
			if !v.Equal(values[0][j]) {
				t.Fatalf("player %d: value %d: %v != %v",
					i+1, j, v, values[0][j])
			}
		}
	}
	return values[0]
}

func prime(t *testing.T) field.Field {
	f, err := field.NewPrimeField(big.NewInt(1031))
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestOpenMul(t *testing.T) {
	fields := map[string]field.Field{
		"GF256": field.GF256Field,
		"GF(p)": prime(t),
	}
	for name, f := range fields {
		for _, n := range []int{1, 3, 5} {
			threshold := (n - 1) / 2
			t.Run(name, func(t *testing.T) {
				rts := newPlayers(t, n, threshold)
				values := run(t, rts, func(rt *Runtime) []*Share {
					a := rt.Random(f)
					b := rt.Random(f)
					c := rt.Constant(f.FromUint64(7))
					ab := rt.Mul(a, b)
					ac := rt.Mul(rt.Add(a, c), rt.Scale(b, f.FromUint64(3)))
					return []*Share{
						rt.Open(a), rt.Open(b), rt.Open(ab), rt.Open(ac),
					}
				})
				v := checkAgree(t, values)
				if !v[2].Equal(v[0].Mul(v[1])) {
					t.Errorf("%v*%v: got %v", v[0], v[1], v[2])
				}
				expected := v[0].Add(f.FromUint64(7)).Mul(
					v[1].Mul(f.FromUint64(3)))
				if !v[3].Equal(expected) {
					t.Errorf("(a+7)*3b: got %v, expected %v", v[3], expected)
				}
			})
		}
	}
}

func TestLinear(t *testing.T) {
	f := field.GF256Field
	rts := newPlayers(t, 3, 1)
	values := run(t, rts, func(rt *Runtime) []*Share {
		a := rt.Random(f)
		b := rt.Random(f)
		lc := rt.LinComb([]field.Element{f.FromUint64(2), f.FromUint64(3)},
			[]*Share{a, b})
		return []*Share{
			rt.Open(a),
			rt.Open(b),
			rt.Open(lc),
			rt.Open(rt.Sub(rt.Neg(a), b)),
			rt.Open(rt.AddConstant(a, f.FromUint64(0x63))),
		}
	})
	v := checkAgree(t, values)
	lc := v[0].Mul(f.FromUint64(2)).Add(v[1].Mul(f.FromUint64(3)))
	if !v[2].Equal(lc) {
		t.Errorf("LinComb: got %v, expected %v", v[2], lc)
	}
	if !v[3].Equal(v[0].Neg().Sub(v[1])) {
		t.Errorf("-a-b: got %v", v[3])
	}
	if !v[4].Equal(v[0].Add(f.FromUint64(0x63))) {
		t.Errorf("a+0x63: got %v", v[4])
	}
}

func TestRandomBits(t *testing.T) {
	f := field.GF256Field
	rts := newPlayers(t, 3, 1)
	values := run(t, rts, func(rt *Runtime) []*Share {
		var result []*Share
		for i := 0; i < 4; i++ {
			for _, bit := range rt.RandomMulti(f, 8, true) {
				result = append(result, rt.Open(bit))
			}
		}
		return result
	})
	var ones int
	for _, v := range checkAgree(t, values) {
		if v.Uint64() > 1 {
			t.Fatalf("random bit has value %v", v)
		}
		ones += int(v.Uint64())
	}
	if ones == 0 || ones == 32 {
		t.Errorf("%d ones in 32 random bits", ones)
	}
}

func TestPowerchain(t *testing.T) {
	f := field.GF256Field
	rts := newPlayers(t, 3, 1)
	values := run(t, rts, func(rt *Runtime) []*Share {
		var result []*Share
		for _, s := range rt.Powerchain(f, 7) {
			result = append(result, rt.Open(s))
		}
		return result
	})
	v := checkAgree(t, values)
	expected := field.Powers(v[0], 7)
	for i := range expected {
		if !v[i].Equal(expected[i]) {
			t.Errorf("r^(2^%d): got %v, expected %v", i, v[i], expected[i])
		}
	}
}

func TestSchedule(t *testing.T) {
	f := field.GF256Field
	rts := newPlayers(t, 3, 1)
	values := run(t, rts, func(rt *Runtime) []*Share {
		x := rt.Random(f)
		opened := rt.Open(x)

		// The continuation communicates in its own scope.
		inv := rt.Schedule(opened, func(v field.Element) *Share {
			y := rt.Mul(x, rt.Constant(v.Inv()))
			return rt.Open(y)
		})
		all := rt.ScheduleAll([]*Share{opened, inv}, 2,
			func(v []field.Element) []*Share {
				return []*Share{
					rt.Open(rt.Mul(x, x)),
					rt.Constant(v[0].Mul(v[0])),
				}
			})
		return []*Share{opened, inv, all[0], all[1]}
	})
	v := checkAgree(t, values)
	if !v[0].IsZero() && !v[1].Equal(f.One()) {
		t.Errorf("x * x^-1: got %v", v[1])
	}
	if !v[2].Equal(v[3]) {
		t.Errorf("x*x: got %v, expected %v", v[2], v[3])
	}
}

func TestSinglePlayer(t *testing.T) {
	f := field.GF256Field
	rts := newPlayers(t, 1, 0)
	rt := rts[0]
	defer rt.Close()

	a := rt.Constant(f.FromUint64(0x57))
	b := rt.Constant(f.FromUint64(0x83))
	c := rt.Open(rt.Mul(a, b))
	if err := rt.Wait(context.Background(), c); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	v, _ := c.Result()
	if v.Uint64() != 0xc1 {
		t.Errorf("{57}*{83}: got %v", v)
	}
	stats := rt.Stats()
	if stats.Multiplications != 1 || stats.Opens != 1 {
		t.Errorf("unexpected stats: %v", stats)
	}
}

func TestStalled(t *testing.T) {
	rts := newPlayers(t, 1, 0)
	rt := rts[0]
	defer rt.Close()

	s := rt.NewShare(field.GF256Field)
	err := rt.Wait(context.Background(), rt.Open(s))
	if !errors.Is(err, ErrStalled) {
		t.Errorf("Wait: got %v, expected %v", err, ErrStalled)
	}
}

func TestFailure(t *testing.T) {
	rts := newPlayers(t, 1, 0)
	rt := rts[0]
	defer rt.Close()

	failure := errors.New("input failed")
	s := rt.NewShare(field.GF256Field)
	result := rt.Open(rt.Mul(s, rt.Constant(field.GF256(2))))
	s.Fail(failure)

	if err := rt.Wait(context.Background(), result); !errors.Is(err, failure) {
		t.Errorf("Wait: got %v, expected %v", err, failure)
	}
}

// newPeered creates the runtime of player 1 of two players with the
// threshold 0. The test drives player 2 directly through the returned
// connection.
func newPeered(t *testing.T) (*Runtime, *p2p.Conn) {
	t.Helper()
	players, err := config.Generate(env.NewPRG([]byte(t.Name())), 0,
		[]string{"local:1", "local:2"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	mesh := p2p.Mesh(2)
	rt, err := New(players[0], mesh[1], &env.Config{
		Rand: env.NewPRG([]byte(t.Name() + "/1")),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return rt, mesh[2][1]
}

// closePeered closes the peer connection before the runtime so
// that the runtime's pending writes fail instead of blocking.
func closePeered(rt *Runtime, peer *p2p.Conn) {
	peer.Close()
	rt.Close()
}

func sendMessage(t *testing.T, conn *p2p.Conn, msgs ...*p2p.Message) {
	t.Helper()
	for _, msg := range msgs {
		if err := conn.SendMessage(msg); err != nil {
			t.Fatalf("SendMessage: %v", err)
		}
	}
	if err := conn.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
}

func TestMalformedShare(t *testing.T) {
	tests := []struct {
		name string
		f    field.Field
		mul  bool
		data []byte
	}{
		{"GF256/open/long", field.GF256Field, false,
			[]byte{0xde, 0xad, 0xbe, 0xef}},
		{"GF256/open/empty", field.GF256Field, false, []byte{}},
		{"GF256/mul/long", field.GF256Field, true, []byte{0x00, 0x05}},
		{"GF(p)/open/unreduced", prime(t), false, []byte{0x04, 0x07}},
		{"GF(p)/mul/long", prime(t), true, []byte{0x00, 0x00, 0x05}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			rt, peer := newPeered(t)
			defer closePeered(rt, peer)

			ctx, cancel := context.WithTimeout(context.Background(),
				10*time.Second)
			defer cancel()

			x := rt.Constant(test.f.FromUint64(5))
			var result *Share
			if test.mul {
				result = rt.Mul(x, x)
			} else {
				result = rt.Open(x)
			}
			sendMessage(t, peer, &p2p.Message{
				PC:   []int{1},
				Data: test.data,
			})
			err := rt.Wait(ctx, result)
			if err == nil {
				v, _ := result.Result()
				t.Fatalf("Wait succeeded with %v", v)
			}
			if errors.Is(err, context.DeadlineExceeded) {
				t.Fatalf("Wait: %v", err)
			}
			if !result.Done() {
				t.Errorf("result not completed")
			} else if _, rerr := result.Result(); rerr == nil {
				t.Errorf("result resolved from malformed share")
			}
		})
	}
}

func TestCompletedOperation(t *testing.T) {
	rt, peer := newPeered(t)
	defer closePeered(rt, peer)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	f := field.GF256Field
	first := rt.Open(rt.Constant(f.FromUint64(5)))
	sendMessage(t, peer, &p2p.Message{
		PC:   []int{1},
		Data: []byte{5},
	})
	if err := rt.Wait(ctx, first); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if v, _ := first.Result(); v.Uint64() != 5 {
		t.Errorf("Open: got %v, expected 5", v)
	}

	// A repeated message for the completed operation fails the
	// runtime.
	second := rt.Open(rt.Constant(f.FromUint64(6)))
	sendMessage(t, peer,
		&p2p.Message{
			PC:   []int{1},
			Data: []byte{5},
		},
		&p2p.Message{
			PC:   []int{2},
			Data: []byte{6},
		})
	err := rt.Wait(ctx, second)
	if err == nil || errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wait: got %v, expected completed operation error", err)
	}
	if _, ok := rt.slots[p2p.PCString([]int{1})]; ok {
		t.Errorf("slot created for completed operation")
	}
}

func TestDepth(t *testing.T) {
	f := field.GF256Field
	rts := newPlayers(t, 3, 1)

	all := make([][]*Share, len(rts))
	run(t, rts, func(rt *Runtime) []*Share {
		x := rt.Random(f)
		x2 := rt.Mul(x, x)
		x3 := rt.Mul(x2, x)
		sum := rt.Add(x3, rt.Constant(f.One()))
		opened := rt.Open(sum)

		// Shares created in the continuation depend on the opened
		// value even when they are computed locally.
		cont := rt.Schedule(opened, func(v field.Element) *Share {
			return rt.Add(x, rt.Constant(v))
		})
		after := rt.Mul(cont, x)

		shares := []*Share{x, x2, x3, sum, opened, cont, after}
		all[rt.ID()-1] = shares
		return shares
	})
	expected := []int{0, 1, 2, 2, 3, 3, 4}
	for i, shares := range all {
		for j, s := range shares {
			if s.Depth() != expected[j] {
				t.Errorf("player %d: share %d: depth %d, expected %d",
					i+1, j, s.Depth(), expected[j])
			}
		}
	}
}

func expectPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s did not panic", name)
		}
	}()
	fn()
}

func TestFork(t *testing.T) {
	rts := newPlayers(t, 1, 0)
	rt := rts[0]
	defer rt.Close()

	rt.IncrementPC()
	outer := rt.Fork()
	rt.IncrementPC()
	inner := rt.Fork()
	if pc := rt.PC(); len(pc) != 3 || pc[0] != 1 || pc[1] != 1 {
		t.Errorf("unexpected PC %v", pc)
	}
	expectPanic(t, "out of order release", outer)
	inner()
	expectPanic(t, "double release", inner)
	outer()
	if pc := rt.PC(); len(pc) != 1 || pc[0] != 1 {
		t.Errorf("unexpected PC %v after release", pc)
	}
}

func TestFieldMismatch(t *testing.T) {
	rts := newPlayers(t, 1, 0)
	rt := rts[0]
	defer rt.Close()

	a := rt.Constant(field.GF256(1))
	b := rt.Constant(prime(t).One())
	expectPanic(t, "Add", func() { rt.Add(a, b) })
	expectPanic(t, "Scale", func() { rt.Scale(a, prime(t).One()) })
	expectPanic(t, "bits in prime field", func() {
		rt.RandomMulti(prime(t), 2, true)
	})
}

func TestDeferred(t *testing.T) {
	d := new(Deferred[int])
	var got []int
	d.Then(func(v int) { got = append(got, v) })
	d.Catch(func(err error) { t.Errorf("unexpected error %v", err) })
	d.Resolve(42)
	d.Then(func(v int) { got = append(got, v+1) })

	if len(got) != 2 || got[0] != 42 || got[1] != 43 {
		t.Errorf("callbacks: got %v", got)
	}
	expectPanic(t, "second Resolve", func() { d.Resolve(1) })
	expectPanic(t, "Fail after Resolve", func() { d.Fail(errors.New("x")) })
}

func TestGather(t *testing.T) {
	a := newShare(field.GF256Field)
	b := newShare(field.GF256Field)
	g := Gather([]*Share{a, b})
	b.Resolve(field.GF256(2))
	if g.Done() {
		t.Fatalf("gather completed early")
	}
	a.Resolve(field.GF256(1))
	v, err := g.Result()
	if !g.Done() || err != nil {
		t.Fatalf("gather: done=%v, err=%v", g.Done(), err)
	}
	if v[0].Uint64() != 1 || v[1].Uint64() != 2 {
		t.Errorf("gather: got %v", v)
	}

	failure := errors.New("failed")
	c := newShare(field.GF256Field)
	d := newShare(field.GF256Field)
	g = Gather([]*Share{c, d})
	c.Fail(failure)
	d.Resolve(field.GF256(1))
	if _, err := g.Result(); !errors.Is(err, failure) {
		t.Errorf("gather: got %v, expected %v", err, failure)
	}
}

func TestLagrange(t *testing.T) {
	f := prime(t)
	shares, err := shamirShare(env.NewPRG(nil), f.FromUint64(99), 2, 5)
	if err != nil {
		t.Fatal(err)
	}
	l := lagrange(f, 5)
	sum := f.Zero()
	for i, s := range shares {
		sum = sum.Add(l[i].Mul(s))
	}
	if sum.Uint64() != 99 {
		t.Errorf("recombined %v, expected 99", sum)
	}
}
