//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package p2p

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// maxPCDepth limits the program counter depth of received
	// messages.
	maxPCDepth = 1024

	// MaxMessageData limits the payload of received messages. The
	// payload is one encoded field element.
	MaxMessageData = 4096
)

// Message is a protocol message. PC identifies the protocol
// operation that the message belongs to and Data holds the encoded
// field element.
type Message struct {
	PC   []int
	Data []byte
}

func (m *Message) String() string {
	return fmt.Sprintf("%s: %x", PCString(m.PC), m.Data)
}

// PCString formats the program counter pc.
func PCString(pc []int) string {
	var sb strings.Builder
	sb.WriteRune('(')
	for i, v := range pc {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(strconv.Itoa(v))
	}
	sb.WriteRune(')')
	return sb.String()
}

// SendMessage sends the message. The message is buffered until the
// next Flush.
func (c *Conn) SendMessage(m *Message) error {
	if err := c.SendUint16(len(m.PC)); err != nil {
		return err
	}
	for _, v := range m.PC {
		if err := c.SendUint32(v); err != nil {
			return err
		}
	}
	return c.SendData(m.Data)
}

// ReceiveMessage receives a message.
func (c *Conn) ReceiveMessage() (*Message, error) {
	n, err := c.ReceiveUint16()
	if err != nil {
		return nil, err
	}
	if n > maxPCDepth {
		return nil, fmt.Errorf("program counter too deep: %d", n)
	}
	m := &Message{
		PC: make([]int, n),
	}
	for i := 0; i < n; i++ {
		m.PC[i], err = c.ReceiveUint32()
		if err != nil {
			return nil, err
		}
	}
	m.Data, err = c.receiveData(MaxMessageData)
	if err != nil {
		return nil, err
	}
	return m, nil
}
