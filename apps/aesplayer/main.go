//
// main.go
//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// The aesplayer program runs a player of the secret shared AES
// computation.
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/subcommands"
	logging "github.com/ipfs/go-log/v2"

	"github.com/markkurossi/mpcaes/aes"
	"github.com/markkurossi/mpcaes/config"
	"github.com/markkurossi/mpcaes/env"
	"github.com/markkurossi/mpcaes/field"
	"github.com/markkurossi/mpcaes/p2p"
	"github.com/markkurossi/mpcaes/runtime"
)

var log = logging.Logger("aesplayer")

// cipherFlags hold the cipher parameters common to the encrypt and
// simulate commands.
type cipherFlags struct {
	key         string
	cleartext   string
	keySize     int
	blockSize   int
	inversion   string
	incremental bool
	timing      bool
	sharedKey   bool
	logLevel    string
}

func (c *cipherFlags) setFlags(f *flag.FlagSet) {
	f.StringVar(&c.key, "key", "000102030405060708090a0b0c0d0e0f",
		"cipher key in hex")
	f.StringVar(&c.cleartext, "cleartext", "00112233445566778899aabbccddeeff",
		"cleartext block in hex")
	f.IntVar(&c.keySize, "key-size", 0,
		"key size in bits (default: key length)")
	f.IntVar(&c.blockSize, "block-size", 0,
		"block size in bits (default: cleartext length)")
	f.StringVar(&c.inversion, "inversion", aes.Masking.String(),
		"S-box inversion protocol name or index")
	f.BoolVar(&c.incremental, "incremental", false,
		"issue rounds incrementally")
	f.BoolVar(&c.timing, "timing", false, "print round timing report")
	f.BoolVar(&c.sharedKey, "shared-key", false,
		"encrypt with a random secret shared key and reveal it afterwards")
	f.StringVar(&c.logLevel, "log-level", "info",
		"log level (debug, info, warn, error)")
}

func (c *cipherFlags) params() (aes.Params, []byte, []byte, error) {
	var params aes.Params

	key, err := hex.DecodeString(c.key)
	if err != nil {
		return params, nil, nil, fmt.Errorf("invalid key: %w", err)
	}
	cleartext, err := hex.DecodeString(c.cleartext)
	if err != nil {
		return params, nil, nil, fmt.Errorf("invalid cleartext: %w", err)
	}
	inv, err := aes.ParseInversion(c.inversion)
	if err != nil {
		return params, nil, nil, err
	}
	params = aes.Params{
		KeySize:   c.keySize,
		BlockSize: c.blockSize,
		Inversion: inv,
	}
	if params.KeySize == 0 {
		params.KeySize = len(key) * 8
	}
	if params.BlockSize == 0 {
		params.BlockSize = len(cleartext) * 8
	}
	if c.incremental {
		params.Scheduling = aes.Incremental
	}
	if c.timing {
		params.Timing = aes.NewTiming()
	}
	level, err := logging.LevelFromString(c.logLevel)
	if err != nil {
		return params, nil, nil, err
	}
	logging.SetAllLoggers(level)

	return params, cleartext, key, nil
}

// encrypt runs the encryption on the runtime. It returns the
// ciphertext and the key, which differs from the argument key if
// the key is secret shared.
func (c *cipherFlags) encrypt(ctx context.Context, rt *runtime.Runtime,
	params aes.Params, cleartext, key []byte) ([]byte, []byte, error) {

	cipher, err := aes.New(rt, params)
	if err != nil {
		return nil, nil, err
	}
	keyShares := cipher.Input(key)
	if c.sharedKey {
		keyShares = keyShares[:0]
		for i := 0; i < params.KeySize/8; i++ {
			keyShares = append(keyShares, rt.Random(field.GF256Field))
		}
	}
	ciphertext, err := cipher.Encrypt(cipher.Input(cleartext), keyShares)
	if err != nil {
		return nil, nil, err
	}

	var opened []*runtime.Share
	for _, s := range append(ciphertext, keyShares...) {
		opened = append(opened, rt.Open(s))
	}
	if err := rt.Wait(ctx, opened...); err != nil {
		return nil, nil, err
	}

	var result []byte
	for _, s := range opened {
		v, _ := s.Result()
		result = append(result, byte(v.Uint64()))
	}
	return result[:len(ciphertext)], result[len(ciphertext):], nil
}

type genconfigCmd struct {
	n        int
	t        int
	host     string
	basePort int
	out      string
}

func (*genconfigCmd) Name() string { return "genconfig" }
func (*genconfigCmd) Synopsis() string {
	return "generates player configuration files"
}
func (*genconfigCmd) Usage() string {
	return `Usage: aesplayer genconfig [-n=<players>] [-t=<threshold>] [-out=<dir>]

Writes the files player-<id>.yaml to the output directory.

Flags:
`
}

func (g *genconfigCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&g.n, "n", 3, "number of players")
	f.IntVar(&g.t, "t", 1, "threshold")
	f.StringVar(&g.host, "host", "127.0.0.1", "player host address")
	f.IntVar(&g.basePort, "base-port", 9000,
		"port of player 1, player i listens at base-port+i-1")
	f.StringVar(&g.out, "out", ".", "output directory")
}

func (g *genconfigCmd) Execute(ctx context.Context, f *flag.FlagSet,
	_ ...interface{}) subcommands.ExitStatus {

	var addrs []string
	for i := 0; i < g.n; i++ {
		addrs = append(addrs, fmt.Sprintf("%s:%d", g.host, g.basePort+i))
	}
	players, err := config.Generate(new(env.Config).GetRandom(), g.t, addrs)
	if err != nil {
		log.Errorf("genconfig: %v", err)
		return subcommands.ExitFailure
	}
	for _, p := range players {
		file := filepath.Join(g.out, fmt.Sprintf("player-%d.yaml", p.ID))
		if err := p.Save(file); err != nil {
			log.Errorf("genconfig: %v", err)
			return subcommands.ExitFailure
		}
		fmt.Printf("Wrote %s\n", file)
	}
	return subcommands.ExitSuccess
}

type encryptCmd struct {
	cipherFlags
	configFile string
	timeout    time.Duration
}

func (*encryptCmd) Name() string { return "encrypt" }
func (*encryptCmd) Synopsis() string {
	return "runs a player of the encryption"
}
func (*encryptCmd) Usage() string {
	return `Usage: aesplayer encrypt -config=<player.yaml> [flags]

All players must be started with the same cipher flags.

Flags:
`
}

func (e *encryptCmd) SetFlags(f *flag.FlagSet) {
	e.cipherFlags.setFlags(f)
	f.StringVar(&e.configFile, "config", "", "player configuration file")
	f.DurationVar(&e.timeout, "timeout", 5*time.Minute, "computation timeout")
}

func (e *encryptCmd) Execute(ctx context.Context, f *flag.FlagSet,
	_ ...interface{}) subcommands.ExitStatus {

	params, cleartext, key, err := e.params()
	if err != nil {
		log.Errorf("encrypt: %v", err)
		return subcommands.ExitUsageError
	}
	cfg, err := config.Load(e.configFile)
	if err != nil {
		log.Errorf("encrypt: %v", err)
		return subcommands.ExitFailure
	}
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	addr, err := cfg.Addr(cfg.ID)
	if err != nil {
		log.Errorf("encrypt: %v", err)
		return subcommands.ExitFailure
	}
	nw, err := p2p.Listen(addr, cfg.ID)
	if err != nil {
		log.Errorf("encrypt: %v", err)
		return subcommands.ExitFailure
	}
	defer nw.Close()

	peers := make(map[int]string)
	for _, peer := range cfg.Players {
		peers[peer.ID] = peer.Addr
	}
	conns, err := nw.Connect(ctx, peers)
	if err != nil {
		log.Errorf("encrypt: connect: %v", err)
		return subcommands.ExitFailure
	}
	rt, err := runtime.New(cfg, conns, nil)
	if err != nil {
		log.Errorf("encrypt: %v", err)
		return subcommands.ExitFailure
	}
	defer rt.Close()

	ciphertext, key, err := e.encrypt(ctx, rt, params, cleartext, key)
	if err != nil {
		log.Errorf("encrypt: %v", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("%s: ciphertext: %x\n", rt, ciphertext)
	if e.sharedKey {
		fmt.Printf("%s: key: %x\n", rt, key)
	}
	if params.Timing != nil {
		params.Timing.Print(os.Stdout, rt.Stats(), rt.IOStats())
	}
	return subcommands.ExitSuccess
}

type simulateCmd struct {
	cipherFlags
	n int
	t int
}

func (*simulateCmd) Name() string { return "simulate" }
func (*simulateCmd) Synopsis() string {
	return "runs all players of the encryption in one process"
}
func (*simulateCmd) Usage() string {
	return `Usage: aesplayer simulate [-n=<players>] [-t=<threshold>] [flags]

Flags:
`
}

func (s *simulateCmd) SetFlags(f *flag.FlagSet) {
	s.cipherFlags.setFlags(f)
	f.IntVar(&s.n, "n", 3, "number of players")
	f.IntVar(&s.t, "t", 1, "threshold")
}

func (s *simulateCmd) Execute(ctx context.Context, f *flag.FlagSet,
	_ ...interface{}) subcommands.ExitStatus {

	params, cleartext, key, err := s.params()
	if err != nil {
		log.Errorf("simulate: %v", err)
		return subcommands.ExitUsageError
	}
	rts, err := runtime.NewMesh(s.n, s.t, nil)
	if err != nil {
		log.Errorf("simulate: %v", err)
		return subcommands.ExitFailure
	}

	type result struct {
		ciphertext []byte
		key        []byte
		err        error
	}
	results := make([]chan result, len(rts))
	for i, rt := range rts {
		i, rt := i, rt
		results[i] = make(chan result, 1)

		// Only the first player collects timing samples.
		p := params
		if i > 0 {
			p.Timing = nil
		}
		go func() {
			defer rt.Close()
			ciphertext, key, err := s.encrypt(ctx, rt, p, cleartext, key)
			results[i] <- result{ciphertext, key, err}
		}()
	}

	status := subcommands.ExitSuccess
	for i, ch := range results {
		r := <-ch
		if r.err != nil {
			log.Errorf("simulate: %s: %v", rts[i], r.err)
			status = subcommands.ExitFailure
			continue
		}
		fmt.Printf("%s: ciphertext: %x\n", rts[i], r.ciphertext)
		if s.sharedKey {
			fmt.Printf("%s: key: %x\n", rts[i], r.key)
		}
	}
	if status == subcommands.ExitSuccess && params.Timing != nil {
		params.Timing.Print(os.Stdout, rts[0].Stats(), rts[0].IOStats())
	}
	return status
}

func main() {
	flag.Parse()

	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(&genconfigCmd{}, "")
	subcommands.Register(&encryptCmd{}, "")
	subcommands.Register(&simulateCmd{}, "")

	ctx := context.Background()
	os.Exit(int(subcommands.Execute(ctx)))
}
