//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package config implements player configuration files. A player
// configuration lists all players of the computation and holds the
// pseudo-random secret sharing (PRSS) keys of the player: one key
// for every maximal unqualified set of players, i.e. every set of
// n-t players, that the player belongs to.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/crypto/hkdf"
	"sigs.k8s.io/yaml"
)

// Peer defines a player's identity and network address.
type Peer struct {
	ID   int    `json:"id"`
	Addr string `json:"addr,omitempty"`
}

// SubsetKey is the PRSS key shared by a subset of players.
type SubsetKey struct {
	Subset []int  `json:"subset"`
	Key    string `json:"key"`
}

// Player defines the configuration of one player.
type Player struct {
	ID        int         `json:"id"`
	Threshold int         `json:"threshold"`
	Players   []Peer      `json:"players"`
	Keys      []SubsetKey `json:"prss_keys"`
}

// N returns the number of players.
func (p *Player) N() int {
	return len(p.Players)
}

// Addr returns the network address of the player id.
func (p *Player) Addr(id int) (string, error) {
	for _, peer := range p.Players {
		if peer.ID == id {
			return peer.Addr, nil
		}
	}
	return "", fmt.Errorf("unknown player %d", id)
}

// Validate checks the configuration's consistency. Multiplication
// requires n >= 2t+1 players.
func (p *Player) Validate() error {
	n := p.N()
	if n == 0 {
		return fmt.Errorf("no players")
	}
	if p.Threshold < 0 || n < 2*p.Threshold+1 {
		return fmt.Errorf("threshold %d too large for %d players",
			p.Threshold, n)
	}
	seen := make(map[int]bool)
	for _, peer := range p.Players {
		if peer.ID < 1 || peer.ID > n || seen[peer.ID] {
			return fmt.Errorf("invalid player id %d", peer.ID)
		}
		seen[peer.ID] = true
	}
	if !seen[p.ID] {
		return fmt.Errorf("player %d not in player list", p.ID)
	}

	expected := Subsets(n, n-p.Threshold, p.ID)
	if len(p.Keys) != len(expected) {
		return fmt.Errorf("player %d: got %d PRSS keys, expected %d",
			p.ID, len(p.Keys), len(expected))
	}
	for i, key := range p.Keys {
		if !slices.Equal(key.Subset, expected[i]) {
			return fmt.Errorf("player %d: unexpected PRSS subset %v",
				p.ID, key.Subset)
		}
		if _, err := hex.DecodeString(key.Key); err != nil {
			return fmt.Errorf("player %d: PRSS key %v: %w",
				p.ID, key.Subset, err)
		}
	}
	return nil
}

// SubsetKeys returns the decoded PRSS keys in the order of Keys.
func (p *Player) SubsetKeys() ([][]byte, error) {
	var result [][]byte
	for _, key := range p.Keys {
		data, err := hex.DecodeString(key.Key)
		if err != nil {
			return nil, err
		}
		result = append(result, data)
	}
	return result, nil
}

// Subsets returns, in lexicographic order, all subsets of size k
// of the players 1...n that contain the player id.
func Subsets(n, k, id int) [][]int {
	var result [][]int
	var walk func(start int, subset []int)

	walk = func(start int, subset []int) {
		if len(subset) == k {
			if slices.Contains(subset, id) {
				result = append(result, slices.Clone(subset))
			}
			return
		}
		for i := start; i <= n; i++ {
			walk(i+1, append(subset, i))
		}
	}
	walk(1, nil)

	return result
}

func subsetName(subset []int) string {
	var parts []string
	for _, id := range subset {
		parts = append(parts, strconv.Itoa(id))
	}
	return strings.Join(parts, ",")
}

// Generate creates the configurations for len(addrs) players with
// the threshold t. The subset keys are derived from a master secret
// read from rand.
func Generate(rand io.Reader, t int, addrs []string) ([]*Player, error) {
	n := len(addrs)
	if n == 0 || t < 0 || n < 2*t+1 {
		return nil, fmt.Errorf("threshold %d too large for %d players", t, n)
	}
	var master [32]byte
	if _, err := io.ReadFull(rand, master[:]); err != nil {
		return nil, err
	}

	var peers []Peer
	for i, addr := range addrs {
		peers = append(peers, Peer{
			ID:   i + 1,
			Addr: addr,
		})
	}

	var result []*Player
	for id := 1; id <= n; id++ {
		player := &Player{
			ID:        id,
			Threshold: t,
			Players:   peers,
		}
		for _, subset := range Subsets(n, n-t, id) {
			kdf := hkdf.New(sha256.New, master[:], nil,
				[]byte("prss "+subsetName(subset)))
			var key [16]byte
			if _, err := io.ReadFull(kdf, key[:]); err != nil {
				return nil, err
			}
			player.Keys = append(player.Keys, SubsetKey{
				Subset: subset,
				Key:    hex.EncodeToString(key[:]),
			})
		}
		result = append(result, player)
	}
	return result, nil
}

// Marshal encodes the configuration as YAML.
func (p *Player) Marshal() ([]byte, error) {
	return yaml.Marshal(p)
}

// Unmarshal decodes and validates a YAML configuration.
func Unmarshal(data []byte) (*Player, error) {
	p := new(Player)
	if err := yaml.UnmarshalStrict(data, p); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Load reads the player configuration from the file.
func Load(file string) (*Player, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	p, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return p, nil
}

// Save writes the player configuration to the file.
func (p *Player) Save(file string) error {
	data, err := p.Marshal()
	if err != nil {
		return err
	}
	return os.WriteFile(file, data, 0600)
}
