//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package runtime implements a Shamir secret sharing runtime for
// n >= 2t+1 players. Linear operations are local and synchronous.
// Multiplication and opening require one communication round, and
// random shares are generated without communication with
// pseudo-random secret sharing (PRSS).
//
// The runtime is single-threaded. All shares, operations, and
// continuations of a runtime must be used from one goroutine, which
// drives the computation with Wait.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	logging "github.com/ipfs/go-log/v2"
	"github.com/markkurossi/text/superscript"

	"github.com/markkurossi/mpcaes/config"
	"github.com/markkurossi/mpcaes/env"
	"github.com/markkurossi/mpcaes/field"
	"github.com/markkurossi/mpcaes/p2p"
)

var log = logging.Logger("runtime")

// ErrStalled is returned by Wait when the awaited shares can't
// resolve because no peer can deliver further messages.
var ErrStalled = errors.New("computation stalled")

// Stats holds runtime operation counters.
type Stats struct {
	Multiplications int
	Opens           int
	Randoms         int
	Messages        int
	Flushes         int
}

func (s Stats) String() string {
	return fmt.Sprintf("mul=%d open=%d random=%d msg=%d flush=%d",
		s.Multiplications, s.Opens, s.Randoms, s.Messages, s.Flushes)
}

// Runtime implements a player's view of the secret sharing
// computation.
type Runtime struct {
	id    int
	n     int
	t     int
	peers map[int]*p2p.Conn
	rand  io.Reader

	pc     []int
	forks  []int
	forkID int
	depth  int

	prss   []*prssKey
	lambda map[field.Field][]field.Element

	slots     map[string]*slot
	completed map[string]bool
	local     []*p2p.Message
	unflushed bool
	live      int
	err       error
	stats     Stats

	m      sync.Mutex
	inbox  []inbound
	notify chan struct{}
}

type inbound struct {
	from int
	msg  *p2p.Message
	err  error
}

// slot collects the messages of one protocol operation from all
// players.
type slot struct {
	data  [][]byte
	got   []bool
	count int
	cb    func(data [][]byte)
}

// New creates a runtime for the player cfg. The peers map holds the
// connections to all other players, keyed by player id.
func New(cfg *config.Player, peers map[int]*p2p.Conn, e *env.Config) (
	*Runtime, error) {

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	for id := 1; id <= cfg.N(); id++ {
		if id == cfg.ID {
			continue
		}
		if peers[id] == nil {
			return nil, fmt.Errorf("no connection to player %d", id)
		}
	}
	if len(peers) != cfg.N()-1 {
		return nil, fmt.Errorf("got %d peer connections, expected %d",
			len(peers), cfg.N()-1)
	}
	keys, err := cfg.SubsetKeys()
	if err != nil {
		return nil, err
	}

	rt := &Runtime{
		id:        cfg.ID,
		n:         cfg.N(),
		t:         cfg.Threshold,
		peers:     peers,
		rand:      e.GetRandom(),
		pc:        []int{0},
		lambda:    make(map[field.Field][]field.Element),
		slots:     make(map[string]*slot),
		completed: make(map[string]bool),
		live:      len(peers),
		notify:    make(chan struct{}, 1),
	}
	for i, key := range keys {
		rt.prss = append(rt.prss, newPRSSKey(cfg.Keys[i].Subset, key))
	}
	for id, conn := range peers {
		go rt.reader(id, conn)
	}
	log.Debugf("%s: t=%d, %d PRSS keys", rt, rt.t, len(rt.prss))

	return rt, nil
}

// ID returns the player's id.
func (rt *Runtime) ID() int {
	return rt.id
}

// N returns the number of players.
func (rt *Runtime) N() int {
	return rt.n
}

// Threshold returns the corruption threshold.
func (rt *Runtime) Threshold() int {
	return rt.t
}

// Stats returns the runtime counters.
func (rt *Runtime) Stats() Stats {
	return rt.stats
}

// IOStats returns the sum of the peer connections' I/O statistics.
func (rt *Runtime) IOStats() p2p.IOStats {
	result := p2p.NewIOStats()
	for _, conn := range rt.peers {
		result = result.Add(conn.Stats)
	}
	return result
}

func (rt *Runtime) String() string {
	return "P" + superscript.Itoa(rt.id)
}

// NewShare creates an unresolved share in the field f. The caller
// completes it with Resolve, Fail, or Bind.
func (rt *Runtime) NewShare(f field.Field) *Share {
	return newShare(f)
}

func (rt *Runtime) reader(from int, conn *p2p.Conn) {
	for {
		msg, err := conn.ReceiveMessage()
		rt.m.Lock()
		rt.inbox = append(rt.inbox, inbound{
			from: from,
			msg:  msg,
			err:  err,
		})
		rt.m.Unlock()

		select {
		case rt.notify <- struct{}{}:
		default:
		}
		if err != nil {
			return
		}
	}
}

func (rt *Runtime) fail(err error) {
	if rt.err == nil {
		log.Errorf("%s: %v", rt, err)
		rt.err = err
	}
}

// send sends the data of the operation pc to the player to.
func (rt *Runtime) send(to int, pc []int, data []byte) {
	rt.stats.Messages++
	msg := &p2p.Message{
		PC:   pc,
		Data: data,
	}
	if to == rt.id {
		rt.local = append(rt.local, msg)
		return
	}
	if err := rt.peers[to].SendMessage(msg); err != nil {
		rt.fail(fmt.Errorf("send to %d: %w", to, err))
		return
	}
	rt.unflushed = true
}

// expect registers the callback cb for the messages of the
// operation pc. The callback is called once the messages of all
// players have been received, with data indexed by player id - 1.
func (rt *Runtime) expect(pc []int, cb func(data [][]byte)) {
	key := p2p.PCString(pc)
	if rt.completed[key] {
		panic(fmt.Sprintf("operation %s registered twice", key))
	}
	s := rt.slot(key)
	if s.cb != nil {
		panic(fmt.Sprintf("operation %s registered twice", key))
	}
	s.cb = cb
	rt.fire(key, s)
}

func (rt *Runtime) slot(key string) *slot {
	s, ok := rt.slots[key]
	if !ok {
		s = &slot{
			data: make([][]byte, rt.n),
			got:  make([]bool, rt.n),
		}
		rt.slots[key] = s
	}
	return s
}

func (rt *Runtime) fire(key string, s *slot) {
	if s.count < rt.n || s.cb == nil {
		return
	}
	delete(rt.slots, key)
	rt.completed[key] = true
	s.cb(s.data)
}

func (rt *Runtime) deliver(from int, msg *p2p.Message) {
	key := p2p.PCString(msg.PC)
	if rt.completed[key] {
		rt.fail(fmt.Errorf("message %s from player %d for completed operation",
			key, from))
		return
	}
	s := rt.slot(key)
	if s.got[from-1] {
		rt.fail(fmt.Errorf("duplicate message %s from player %d", key, from))
		return
	}
	s.data[from-1] = msg.Data
	s.got[from-1] = true
	s.count++
	rt.fire(key, s)
}

// step performs one step of the event loop and reports whether it
// made progress.
func (rt *Runtime) step() bool {
	if len(rt.local) > 0 {
		batch := rt.local
		rt.local = nil
		for _, msg := range batch {
			rt.deliver(rt.id, msg)
		}
		return true
	}

	rt.m.Lock()
	batch := rt.inbox
	rt.inbox = nil
	rt.m.Unlock()

	if len(batch) > 0 {
		for _, in := range batch {
			if in.err == nil {
				rt.deliver(in.from, in.msg)
			} else if errors.Is(in.err, io.EOF) ||
				errors.Is(in.err, io.ErrClosedPipe) {
				log.Debugf("%s: peer P%s closed", rt, superscript.Itoa(in.from))
				rt.live--
			} else {
				rt.live--
				rt.fail(fmt.Errorf("player %d: %w", in.from, in.err))
			}
		}
		return true
	}

	if rt.unflushed {
		rt.flush()
		return true
	}
	return false
}

func (rt *Runtime) flush() {
	rt.unflushed = false
	rt.stats.Flushes++
	for id, conn := range rt.peers {
		if err := conn.Flush(); err != nil {
			rt.fail(fmt.Errorf("flush to %d: %w", id, err))
		}
	}
}

// Wait runs the event loop until all shares are completed. It
// returns the first error of the shares or of the runtime.
func (rt *Runtime) Wait(ctx context.Context, shares ...*Share) error {
	for {
		if rt.err != nil {
			return rt.err
		}
		done := true
		for _, s := range shares {
			if !s.Done() {
				done = false
				break
			}
		}
		if done {
			if rt.unflushed {
				rt.flush()
			}
			for _, s := range shares {
				if _, err := s.Result(); err != nil {
					return err
				}
			}
			return rt.err
		}
		if rt.step() {
			continue
		}
		if rt.live == 0 {
			return ErrStalled
		}
		select {
		case <-rt.notify:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close closes the peer connections.
func (rt *Runtime) Close() error {
	var result error
	for _, conn := range rt.peers {
		if err := conn.Close(); err != nil && result == nil {
			result = err
		}
	}
	log.Debugf("%s: closed: %s", rt, rt.stats)
	return result
}
