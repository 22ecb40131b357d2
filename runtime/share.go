//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package runtime

import (
	"fmt"

	"github.com/markkurossi/mpcaes/field"
)

// Share is a player's share of a secret shared field element. The
// share value becomes available once all the operations it depends
// on complete. Opened values are represented as shares whose value
// is the plaintext, which is a valid sharing of itself.
type Share struct {
	Deferred[field.Element]
	field field.Field
	depth int
}

func newShare(f field.Field) *Share {
	return &Share{
		field: f,
	}
}

func resolvedShare(v field.Element, depth int) *Share {
	s := newShare(v.Field())
	s.depth = depth
	s.Resolve(v)
	return s
}

// Field returns the share's field.
func (s *Share) Field() field.Field {
	return s.field
}

// Depth returns the number of communication rounds on the longest
// chain of operations the share depends on. The depth is valid once
// the share is completed.
func (s *Share) Depth() int {
	return s.depth
}

// Bind completes the share with the result of src once src
// completes.
func (s *Share) Bind(src *Share) {
	src.OnComplete(func(v field.Element, err error) {
		s.depth = src.depth
		s.complete(v, err)
	})
}

func (s *Share) String() string {
	if !s.done {
		return fmt.Sprintf("%s{pending}", s.field.Name())
	}
	if s.err != nil {
		return fmt.Sprintf("%s{%s}", s.field.Name(), s.err)
	}
	return fmt.Sprintf("%s%v", s.field.Name(), s.value)
}

// Gather returns a deferred that completes with the values of all
// shares once they are resolved, or with the first error.
func Gather(shares []*Share) *Deferred[[]field.Element] {
	d := new(Deferred[[]field.Element])
	values := make([]field.Element, len(shares))

	pending := len(shares)
	if pending == 0 {
		d.Resolve(values)
		return d
	}
	for i, s := range shares {
		i := i
		s.OnComplete(func(v field.Element, err error) {
			if d.done {
				return
			}
			if err != nil {
				d.Fail(err)
				return
			}
			values[i] = v
			pending--
			if pending == 0 {
				d.Resolve(values)
			}
		})
	}
	return d
}

// maxDepth returns the maximum of base and the depths of the
// completed shares.
func maxDepth(base int, shares ...*Share) int {
	for _, s := range shares {
		base = max(base, s.depth)
	}
	return base
}

// values returns the values of the shares if they are all resolved.
func values(shares []*Share) ([]field.Element, bool) {
	result := make([]field.Element, len(shares))
	for i, s := range shares {
		if !s.done || s.err != nil {
			return nil, false
		}
		result[i] = s.value
	}
	return result, true
}
