//
// protocol_test.go
//
// Copyright (c) 2023-2026 Markku Rossi
//
// All rights reserved.
//

package p2p

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func pattern(n int) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte(i * 7)
	}
	return buf
}

var tests = []interface{}{
	byte(42),
	uint16(43),
	uint32(44),
	"Hello, world!",
	pattern(1024),
	pattern(2 * 1024 * 1024),
	&Message{PC: []int{1, 2, 3}, Data: []byte{0x63}},
	&Message{Data: []byte{}},
}

func writer(t *testing.T, c *Conn) {
	for _, test := range tests {
		var err error
		switch d := test.(type) {
		case byte:
			err = c.SendByte(d)
		case uint16:
			err = c.SendUint16(int(d))
		case uint32:
			err = c.SendUint32(int(d))
		case string:
			err = c.SendString(d)
		case []byte:
			err = c.SendData(d)
		case *Message:
			err = c.SendMessage(d)
		}
		if err != nil {
			t.Errorf("send %T: %v", test, err)
		}
	}
	if err := c.Flush(); err != nil {
		t.Errorf("Flush: %v", err)
	}
}

func TestProtocol(t *testing.T) {
	cw, c := Pipe()

	go writer(t, cw)

	for _, test := range tests {
		switch d := test.(type) {
		case byte:
			v, err := c.ReceiveByte()
			if err != nil {
				t.Fatalf("ReceiveByte: %v", err)
			}
			if v != d {
				t.Errorf("ReceiveByte: got %v, expected %v", v, d)
			}

		case uint16:
			v, err := c.ReceiveUint16()
			if err != nil {
				t.Fatalf("ReceiveUint16: %v", err)
			}
			if v != int(d) {
				t.Errorf("ReceiveUint16: got %v, expected %v", v, d)
			}

		case uint32:
			v, err := c.ReceiveUint32()
			if err != nil {
				t.Fatalf("ReceiveUint32: %v", err)
			}
			if v != int(d) {
				t.Errorf("ReceiveUint32: got %v, expected %v", v, d)
			}

		case string:
			v, err := c.ReceiveString()
			if err != nil {
				t.Fatalf("ReceiveString: %v", err)
			}
			if v != d {
				t.Errorf("ReceiveString: got %v, expected %v", v, d)
			}

		case []byte:
			v, err := c.ReceiveData()
			if err != nil {
				t.Fatalf("ReceiveData: %v", err)
			}
			if !bytes.Equal(v, d) {
				t.Errorf("ReceiveData: [%v]byte differs", len(d))
			}

		case *Message:
			v, err := c.ReceiveMessage()
			if err != nil {
				t.Fatalf("ReceiveMessage: %v", err)
			}
			if diff := cmp.Diff(d.PC, v.PC); len(d.PC) > 0 && diff != "" {
				t.Errorf("ReceiveMessage: PC mismatch (-want +got):\n%s", diff)
			}
			if !bytes.Equal(v.Data, d.Data) {
				t.Errorf("ReceiveMessage: got %x, expected %x", v.Data, d.Data)
			}
		}
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestDataLimit(t *testing.T) {
	cw, c := Pipe()
	go func() {
		cw.SendUint32(0xffffffff)
		cw.Flush()
	}()
	if _, err := c.ReceiveData(); err == nil {
		t.Errorf("ReceiveData accepted length 0xffffffff")
	}

	cw, c = Pipe()
	go func() {
		cw.SendMessage(&Message{
			PC:   []int{1},
			Data: pattern(MaxMessageData + 1),
		})
		cw.Flush()
	}()
	if _, err := c.ReceiveMessage(); err == nil {
		t.Errorf("ReceiveMessage accepted %d bytes of data",
			MaxMessageData+1)
	}

	cw, c = Pipe()
	go func() {
		cw.SendMessage(&Message{
			PC:   []int{1},
			Data: pattern(MaxMessageData),
		})
		cw.Flush()
	}()
	m, err := c.ReceiveMessage()
	if err != nil {
		t.Fatalf("ReceiveMessage: %v", err)
	}
	if !bytes.Equal(m.Data, pattern(MaxMessageData)) {
		t.Errorf("ReceiveMessage: data differs")
	}
}

func TestPCString(t *testing.T) {
	if s := PCString([]int{1, 0, 12}); s != "(1, 0, 12)" {
		t.Errorf("PCString: got %q", s)
	}
	if s := PCString(nil); s != "()" {
		t.Errorf("PCString(nil): got %q", s)
	}
}

func TestMesh(t *testing.T) {
	const n = 3
	mesh := Mesh(n)

	for i := 1; i <= n; i++ {
		if len(mesh[i]) != n-1 {
			t.Fatalf("player %d has %d connections", i, len(mesh[i]))
		}
	}
	go func() {
		mesh[3][1].SendMessage(&Message{PC: []int{7}, Data: []byte{3}})
		mesh[3][1].Flush()
	}()
	m, err := mesh[1][3].ReceiveMessage()
	if err != nil {
		t.Fatalf("ReceiveMessage: %v", err)
	}
	if len(m.PC) != 1 || m.PC[0] != 7 || m.Data[0] != 3 {
		t.Errorf("unexpected message %v", m)
	}
}

func TestNetwork(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	const n = 3
	var networks []*Network
	addrs := make(map[int]string)
	for id := 1; id <= n; id++ {
		nw, err := Listen("127.0.0.1:0", id)
		if err != nil {
			t.Fatalf("Listen: %v", err)
		}
		defer nw.Close()
		networks = append(networks, nw)
		addrs[id] = nw.Addr().(*net.TCPAddr).String()
	}

	type result struct {
		id    int
		conns map[int]*Conn
		err   error
	}
	ch := make(chan result)
	for _, nw := range networks {
		go func(nw *Network) {
			conns, err := nw.Connect(ctx, addrs)
			ch <- result{nw.ID, conns, err}
		}(nw)
	}
	conns := make(map[int]map[int]*Conn)
	for range networks {
		r := <-ch
		if r.err != nil {
			t.Fatalf("Connect %d: %v", r.id, r.err)
		}
		conns[r.id] = r.conns
	}
	for id := 1; id <= n; id++ {
		if len(conns[id]) != n-1 {
			t.Errorf("player %d: %d peers", id, len(conns[id]))
		}
	}

	go func() {
		conns[1][2].SendString("hello")
		conns[1][2].Flush()
	}()
	s, err := conns[2][1].ReceiveString()
	if err != nil {
		t.Fatalf("ReceiveString: %v", err)
	}
	if s != "hello" {
		t.Errorf("got %q", s)
	}
}
