//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package config

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/markkurossi/mpcaes/env"
)

func TestSubsets(t *testing.T) {
	got := Subsets(4, 3, 2)
	expected := [][]int{
		{1, 2, 3},
		{1, 2, 4},
		{2, 3, 4},
	}
	if diff := cmp.Diff(expected, got); diff != "" {
		t.Errorf("Subsets(4,3,2) mismatch (-want +got):\n%s", diff)
	}
	if got := Subsets(1, 1, 1); len(got) != 1 || len(got[0]) != 1 {
		t.Errorf("Subsets(1,1,1)=%v", got)
	}
}

func TestGenerate(t *testing.T) {
	addrs := []string{"a:1", "b:2", "c:3"}
	players, err := Generate(env.NewPRG([]byte("test")), 1, addrs)
	if err != nil {
		t.Fatal(err)
	}
	if len(players) != 3 {
		t.Fatalf("got %d players", len(players))
	}

	// Players sharing a subset must hold the same key.
	keys := make(map[string]string)
	for _, p := range players {
		if err := p.Validate(); err != nil {
			t.Errorf("player %d: %v", p.ID, err)
		}
		if len(p.Keys) != 2 {
			t.Errorf("player %d: %d keys", p.ID, len(p.Keys))
		}
		for _, k := range p.Keys {
			name := subsetName(k.Subset)
			if old, ok := keys[name]; ok && old != k.Key {
				t.Errorf("subset %s: keys differ", name)
			}
			keys[name] = k.Key
		}
	}
	if len(keys) != 3 {
		t.Errorf("got %d distinct subsets, expected 3", len(keys))
	}
	if addr, err := players[0].Addr(3); err != nil || addr != "c:3" {
		t.Errorf("Addr(3)=%q, %v", addr, err)
	}
}

func TestGenerateInvalid(t *testing.T) {
	_, err := Generate(env.NewPRG(nil), 1, []string{"a", "b"})
	if err == nil {
		t.Errorf("threshold 1 with 2 players accepted")
	}
}

func TestRoundTrip(t *testing.T) {
	players, err := Generate(env.NewPRG([]byte("rt")), 1,
		[]string{"a:1", "b:2", "c:3"})
	if err != nil {
		t.Fatal(err)
	}
	file := filepath.Join(t.TempDir(), "player-2.yaml")
	if err := players[1].Save(file); err != nil {
		t.Fatal(err)
	}
	p, err := Load(file)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(players[1], p); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate(t *testing.T) {
	players, err := Generate(env.NewPRG([]byte("v")), 1,
		[]string{"a", "b", "c"})
	if err != nil {
		t.Fatal(err)
	}
	p := *players[0]
	p.Keys = p.Keys[1:]
	if err := p.Validate(); err == nil {
		t.Errorf("missing key accepted")
	}

	p = *players[0]
	p.ID = 4
	if err := p.Validate(); err == nil {
		t.Errorf("unknown id accepted")
	}

	if _, err := Unmarshal([]byte("id: 1\nbogus: 2\n")); err == nil {
		t.Errorf("unknown field accepted")
	}
}
