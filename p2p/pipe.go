//
// Copyright (c) 2025-2026 Markku Rossi
//
// All rights reserved.
//

package p2p

import (
	"io"
)

// Pipe creates a bidirectional in-memory connection. Anything sent
// to the first endpoint can be received from the second and vice
// versa.
func Pipe() (*Conn, *Conn) {
	var p0, p1 pipe

	p0.r, p1.w = io.Pipe()
	p1.r, p0.w = io.Pipe()

	return NewConn(&p0), NewConn(&p1)
}

// Mesh creates a fully connected in-memory network of n players
// with ids 1...n. The result maps player id to its connections,
// keyed by peer id.
func Mesh(n int) map[int]map[int]*Conn {
	result := make(map[int]map[int]*Conn)
	for i := 1; i <= n; i++ {
		result[i] = make(map[int]*Conn)
	}
	for i := 1; i <= n; i++ {
		for j := i + 1; j <= n; j++ {
			result[i][j], result[j][i] = Pipe()
		}
	}
	return result
}

type pipe struct {
	r *io.PipeReader
	w *io.PipeWriter
}

func (p *pipe) Close() error {
	if err := p.r.Close(); err != nil {
		return err
	}
	return p.w.Close()
}

func (p *pipe) Read(data []byte) (n int, err error) {
	return p.r.Read(data)
}

func (p *pipe) Write(data []byte) (n int, err error) {
	return p.w.Write(data)
}
