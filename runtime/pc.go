//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package runtime

import (
	"slices"

	"github.com/markkurossi/mpcaes/field"
)

// The program counter identifies protocol operations. All players
// issue the same operations in the same order so they agree on the
// counter of each operation even when the operations complete in
// different orders. Continuations run in a forked scope below the
// counter value that was current when they were registered.

// PC returns a copy of the current program counter.
func (rt *Runtime) PC() []int {
	return slices.Clone(rt.pc)
}

// IncrementPC increments the innermost program counter.
func (rt *Runtime) IncrementPC() {
	rt.pc[len(rt.pc)-1]++
}

// Fork starts a new program counter scope. The returned release
// function closes the scope. Scopes must be released in LIFO order
// and exactly once; violations panic.
func (rt *Runtime) Fork() (release func()) {
	rt.forkID++
	id := rt.forkID
	depth := len(rt.pc)

	rt.pc = append(rt.pc, 0)
	rt.forks = append(rt.forks, id)

	var released bool
	return func() {
		if released {
			panic("fork released twice")
		}
		if len(rt.forks) == 0 || rt.forks[len(rt.forks)-1] != id ||
			len(rt.pc) != depth+1 {
			panic("unbalanced fork release")
		}
		released = true
		rt.forks = rt.forks[:len(rt.forks)-1]
		rt.pc = rt.pc[:depth]
	}
}

// enter switches the program counter to the saved value and forks a
// new scope. Shares created in the scope depend on a value of the
// given depth. The returned function restores the previous counter
// and depth.
func (rt *Runtime) enter(saved []int, depth int) func() {
	prev := rt.pc
	prevDepth := rt.depth
	rt.pc = slices.Clone(saved)
	rt.depth = depth
	release := rt.Fork()
	return func() {
		release()
		rt.pc = prev
		rt.depth = prevDepth
	}
}

// Schedule calls fn with the value of s once s is resolved and
// returns a share that resolves to the result of fn. If s fails,
// the result fails with the same error.
func (rt *Runtime) Schedule(s *Share,
	fn func(v field.Element) *Share) *Share {

	rt.IncrementPC()
	saved := rt.PC()
	base := rt.depth

	result := newShare(s.field)
	s.OnComplete(func(v field.Element, err error) {
		if err != nil {
			result.Fail(err)
			return
		}
		exit := rt.enter(saved, maxDepth(base, s))
		defer exit()
		result.Bind(fn(v))
	})
	return result
}

// ScheduleAll calls fn with the values of shares once all of them
// are resolved. The function fn must return count shares, and
// ScheduleAll returns count shares that resolve to them. The result
// shares belong to the field of the first input share.
func (rt *Runtime) ScheduleAll(shares []*Share, count int,
	fn func(v []field.Element) []*Share) []*Share {

	if len(shares) == 0 {
		panic("ScheduleAll: no shares")
	}
	rt.IncrementPC()
	saved := rt.PC()
	base := rt.depth

	result := make([]*Share, count)
	for i := range result {
		result[i] = newShare(shares[0].field)
	}
	Gather(shares).OnComplete(func(v []field.Element, err error) {
		if err != nil {
			for _, r := range result {
				r.Fail(err)
			}
			return
		}
		exit := rt.enter(saved, maxDepth(base, shares...))
		defer exit()

		out := fn(v)
		if len(out) != count {
			panic("ScheduleAll: result count mismatch")
		}
		for i, r := range result {
			r.Bind(out[i])
		}
	})
	return result
}
