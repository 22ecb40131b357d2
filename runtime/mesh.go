//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package runtime

import (
	"fmt"
	"io"

	"github.com/markkurossi/mpcaes/config"
	"github.com/markkurossi/mpcaes/env"
	"github.com/markkurossi/mpcaes/p2p"
)

// NewMesh creates runtimes for n in-process players with the
// threshold t, connected with a full mesh of pipe connections. The
// PRSS keys and the seeds of the players' random streams are drawn
// from the environment's entropy source. The runtimes are returned
// in player id order and each of them must be driven from its own
// goroutine.
func NewMesh(n, t int, e *env.Config) ([]*Runtime, error) {
	addrs := make([]string, n)
	for i := range addrs {
		addrs[i] = fmt.Sprintf("local:%d", i+1)
	}
	players, err := config.Generate(e.GetRandom(), t, addrs)
	if err != nil {
		return nil, err
	}
	mesh := p2p.Mesh(n)

	var result []*Runtime
	for _, player := range players {
		var seed [32]byte
		if _, err := io.ReadFull(e.GetRandom(), seed[:]); err != nil {
			return nil, err
		}
		rt, err := New(player, mesh[player.ID], &env.Config{
			Rand: env.NewPRG(seed[:]),
		})
		if err != nil {
			return nil, err
		}
		result = append(result, rt)
	}
	return result, nil
}
