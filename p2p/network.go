//
// Copyright (c) 2020-2026 Markku Rossi
//
// All rights reserved.
//

package p2p

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"github.com/markkurossi/text/superscript"
)

var log = logging.Logger("p2p")

// RetryDelay is the delay between connection attempts to peers that
// are not yet listening.
var RetryDelay = time.Second

// Network implements the peer-to-peer network between players. The
// player with the higher id dials and the player with the lower id
// accepts, so each pair of players shares exactly one connection.
type Network struct {
	ID       int
	m        sync.Mutex
	c        *sync.Cond
	peers    map[int]*Conn
	listener net.Listener
	err      error
}

// Listen creates a network for the player id, listening for peer
// connections at addr.
func Listen(addr string, id int) (*Network, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	nw := &Network{
		ID:       id,
		peers:    make(map[int]*Conn),
		listener: listener,
	}
	nw.c = sync.NewCond(&nw.m)

	go nw.acceptLoop()

	return nw, nil
}

// Addr returns the network's listening address.
func (nw *Network) Addr() net.Addr {
	return nw.listener.Addr()
}

func (nw *Network) name() string {
	return "P" + superscript.Itoa(nw.ID)
}

// Connect connects the network to the peers, mapping player ids to
// their addresses. The peer map may contain the player itself. The
// function returns the peer connections once all peers are
// connected.
func (nw *Network) Connect(ctx context.Context, peers map[int]string) (
	map[int]*Conn, error) {

	for id, addr := range peers {
		if id >= nw.ID {
			continue
		}
		go nw.dial(ctx, id, addr)
	}

	stop := context.AfterFunc(ctx, func() {
		nw.m.Lock()
		nw.c.Broadcast()
		nw.m.Unlock()
	})
	defer stop()

	nw.m.Lock()
	defer nw.m.Unlock()

	for {
		if nw.err != nil {
			return nil, nw.err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		missing := 0
		for id := range peers {
			if id != nw.ID && nw.peers[id] == nil {
				missing++
			}
		}
		if missing == 0 {
			break
		}
		nw.c.Wait()
	}

	result := make(map[int]*Conn)
	for id, conn := range nw.peers {
		result[id] = conn
	}
	log.Infof("%s: connected to %d peers", nw.name(), len(result))

	return result, nil
}

func (nw *Network) dial(ctx context.Context, id int, addr string) {
	for {
		log.Debugf("%s: connecting to P%s at %s",
			nw.name(), superscript.Itoa(id), addr)

		var d net.Dialer
		nc, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Debugf("%s: connect to %s failed, retrying in %s",
				nw.name(), addr, RetryDelay)
			select {
			case <-time.After(RetryDelay):
				continue
			case <-ctx.Done():
				return
			}
		}
		conn := NewConn(nc)
		if err := conn.SendUint32(nw.ID); err != nil {
			nw.fail(err)
			conn.Close()
			return
		}
		if err := conn.Flush(); err != nil {
			nw.fail(err)
			conn.Close()
			return
		}
		nw.addPeer(id, conn)
		return
	}
}

func (nw *Network) acceptLoop() {
	for {
		nc, err := nw.listener.Accept()
		if err != nil {
			log.Debugf("%s: accept: %s", nw.name(), err)
			return
		}
		conn := NewConn(nc)

		id, err := conn.ReceiveUint32()
		if err != nil {
			log.Warnf("%s: I/O error: %s", nw.name(), err)
			conn.Close()
			continue
		}
		if id <= nw.ID {
			log.Warnf("%s: unexpected connection from P%s",
				nw.name(), superscript.Itoa(id))
			conn.Close()
			continue
		}
		nw.addPeer(id, conn)
	}
}

func (nw *Network) addPeer(id int, conn *Conn) {
	nw.m.Lock()
	defer nw.m.Unlock()

	if _, ok := nw.peers[id]; ok {
		log.Warnf("%s: peer %d already connected", nw.name(), id)
		conn.Close()
		return
	}
	log.Debugf("%s: peer P%s connected", nw.name(), superscript.Itoa(id))
	nw.peers[id] = conn
	nw.c.Broadcast()
}

func (nw *Network) fail(err error) {
	nw.m.Lock()
	defer nw.m.Unlock()

	if nw.err == nil {
		nw.err = fmt.Errorf("%s: %w", nw.name(), err)
	}
	nw.c.Broadcast()
}

// Stats returns the I/O stats from the network.
func (nw *Network) Stats() IOStats {
	nw.m.Lock()
	defer nw.m.Unlock()

	result := NewIOStats()
	for _, conn := range nw.peers {
		result = result.Add(conn.Stats)
	}
	return result
}

// Close closes the network listener. The peer connections are owned
// by the caller of Connect.
func (nw *Network) Close() error {
	return nw.listener.Close()
}
