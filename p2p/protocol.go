//
// Copyright (c) 2019-2026 Markku Rossi
//
// All rights reserved.
//

// Package p2p implements the framed point-to-point connections the
// players use to exchange protocol messages.
package p2p

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync/atomic"
)

const (
	numBuffers   = 3
	writeBufSize = 64 * 1024
	readBufSize  = 256 * 1024
)

// MaxDataSize is the largest payload ReceiveData accepts.
const MaxDataSize = 16 * 1024 * 1024

// Conn implements a protocol connection. The send and receive
// directions may be used from different goroutines but each
// direction must be used from one goroutine at a time.
type Conn struct {
	conn      io.ReadWriter
	writeBuf  []byte
	writePos  int
	readBuf   []byte
	readStart int
	readEnd   int
	Stats     IOStats

	fromWriter chan []byte
	toWriter   chan []byte
	writerErr  atomic.Pointer[error]
}

// IOStats implements I/O statistics.
type IOStats struct {
	Sent    *atomic.Uint64
	Recvd   *atomic.Uint64
	Flushed *atomic.Uint64
}

// NewIOStats creates a new I/O statistics object.
func NewIOStats() IOStats {
	return IOStats{
		Sent:    new(atomic.Uint64),
		Recvd:   new(atomic.Uint64),
		Flushed: new(atomic.Uint64),
	}
}

// Add adds the argument stats to this IOStats and returns the sum.
func (stats IOStats) Add(o IOStats) IOStats {
	result := NewIOStats()
	for _, s := range []IOStats{stats, o} {
		if s.Sent == nil {
			continue
		}
		result.Sent.Add(s.Sent.Load())
		result.Recvd.Add(s.Recvd.Load())
		result.Flushed.Add(s.Flushed.Load())
	}
	return result
}

// Sum returns sum of sent and received bytes.
func (stats IOStats) Sum() uint64 {
	return stats.Sent.Load() + stats.Recvd.Load()
}

// NewConn creates a new connection around the argument connection.
func NewConn(conn io.ReadWriter) *Conn {
	c := &Conn{
		conn:       conn,
		readBuf:    make([]byte, readBufSize),
		fromWriter: make(chan []byte, numBuffers),
		toWriter:   make(chan []byte, numBuffers),
		Stats:      NewIOStats(),
	}
	go c.writer()
	c.writeBuf = <-c.fromWriter

	return c
}

func (c *Conn) writer() {
	for i := 0; i < numBuffers; i++ {
		c.fromWriter <- make([]byte, writeBufSize)
	}
	for buf := range c.toWriter {
		if _, err := c.conn.Write(buf); err != nil {
			c.writerErr.CompareAndSwap(nil, &err)
		}
		c.fromWriter <- buf[0:cap(buf)]
	}
	close(c.fromWriter)
}

func (c *Conn) err() error {
	if err := c.writerErr.Load(); err != nil {
		return *err
	}
	return nil
}

// Flush hands any pending data to the connection's writer.
func (c *Conn) Flush() error {
	if c.writePos == 0 {
		return nil
	}
	c.Stats.Sent.Add(uint64(c.writePos))
	c.toWriter <- c.writeBuf[0:c.writePos]

	c.writeBuf = <-c.fromWriter
	c.writePos = 0
	c.Stats.Flushed.Add(1)

	return c.err()
}

// Pending returns the number of unflushed bytes.
func (c *Conn) Pending() int {
	return c.writePos
}

// Close flushes any pending data and closes the connection.
func (c *Conn) Close() error {
	if err := c.Flush(); err != nil {
		return err
	}
	close(c.toWriter)
	for range c.fromWriter {
	}
	if err := c.err(); err != nil {
		return err
	}
	if closer, ok := c.conn.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// reserve returns a write buffer slice of n bytes, flushing the
// buffer first if needed. Payloads larger than the buffer are
// written in pieces by SendData.
func (c *Conn) reserve(n int) ([]byte, error) {
	if c.writePos+n > len(c.writeBuf) {
		if err := c.Flush(); err != nil {
			return nil, err
		}
	}
	buf := c.writeBuf[c.writePos : c.writePos+n]
	c.writePos += n
	return buf, nil
}

// SendByte sends a byte value.
func (c *Conn) SendByte(val byte) error {
	buf, err := c.reserve(1)
	if err != nil {
		return err
	}
	buf[0] = val
	return nil
}

// SendUint16 sends an uint16 value.
func (c *Conn) SendUint16(val int) error {
	buf, err := c.reserve(2)
	if err != nil {
		return err
	}
	binary.BigEndian.PutUint16(buf, uint16(val))
	return nil
}

// SendUint32 sends an uint32 value.
func (c *Conn) SendUint32(val int) error {
	buf, err := c.reserve(4)
	if err != nil {
		return err
	}
	binary.BigEndian.PutUint32(buf, uint32(val))
	return nil
}

// SendData sends length-prefixed binary data.
func (c *Conn) SendData(val []byte) error {
	if err := c.SendUint32(len(val)); err != nil {
		return err
	}
	for len(val) > 0 {
		n := len(c.writeBuf) - c.writePos
		if n == 0 {
			if err := c.Flush(); err != nil {
				return err
			}
			continue
		}
		n = copy(c.writeBuf[c.writePos:], val)
		c.writePos += n
		val = val[n:]
	}
	return nil
}

// SendString sends a string value.
func (c *Conn) SendString(val string) error {
	return c.SendData([]byte(val))
}

// fill ensures the read buffer holds at least n unread bytes. Any
// unread data is moved to the beginning of the buffer.
func (c *Conn) fill(n int) error {
	if c.readStart+n <= c.readEnd {
		return nil
	}
	if n > len(c.readBuf) {
		buf := make([]byte, n)
		copy(buf, c.readBuf[c.readStart:c.readEnd])
		c.readBuf = buf
	} else {
		copy(c.readBuf, c.readBuf[c.readStart:c.readEnd])
	}
	c.readEnd -= c.readStart
	c.readStart = 0

	for c.readEnd < n {
		got, err := c.conn.Read(c.readBuf[c.readEnd:])
		if err != nil {
			return err
		}
		c.Stats.Recvd.Add(uint64(got))
		c.readEnd += got
	}
	return nil
}

func (c *Conn) next(n int) ([]byte, error) {
	if err := c.fill(n); err != nil {
		return nil, err
	}
	buf := c.readBuf[c.readStart : c.readStart+n]
	c.readStart += n
	return buf, nil
}

// ReceiveByte receives a byte value.
func (c *Conn) ReceiveByte() (byte, error) {
	buf, err := c.next(1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

// ReceiveUint16 receives an uint16 value.
func (c *Conn) ReceiveUint16() (int, error) {
	buf, err := c.next(2)
	if err != nil {
		return 0, err
	}
	return int(binary.BigEndian.Uint16(buf)), nil
}

// ReceiveUint32 receives an uint32 value.
func (c *Conn) ReceiveUint32() (int, error) {
	buf, err := c.next(4)
	if err != nil {
		return 0, err
	}
	return int(binary.BigEndian.Uint32(buf)), nil
}

// ReceiveData receives length-prefixed binary data. Payloads longer
// than MaxDataSize are rejected.
func (c *Conn) ReceiveData() ([]byte, error) {
	return c.receiveData(MaxDataSize)
}

func (c *Conn) receiveData(limit int) ([]byte, error) {
	n, err := c.ReceiveUint32()
	if err != nil {
		return nil, err
	}
	if n > limit {
		return nil, fmt.Errorf("data length %d exceeds limit %d", n, limit)
	}
	buf, err := c.next(n)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), buf...), nil
}

// ReceiveString receives a string value.
func (c *Conn) ReceiveString() (string, error) {
	data, err := c.ReceiveData()
	if err != nil {
		return "", err
	}
	return string(data), nil
}
