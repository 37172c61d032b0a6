// dataset_gen.go generates deterministic key/value-style datasets for
// standalone benchmarking of kvshard (outside `go test`). It emits one
// hex-encoded random byte key per line, each keySize bytes, optionally Zipf
// distributed over a fixed-size key universe to model hot-key skew.
//
// Usage:
//
//	go run ./tools/dataset_gen -n 1000000 -dist=zipf -keysize=32 -seed=42 -out keys.txt
//
// Flags:
//
//	-n        number of keys to generate (default 1e6)
//	-keysize  key size in bytes (default 32, matching the seed benchmark's
//	          32-byte random keys)
//	-dist     distribution: "uniform" or "zipf" (default uniform)
//	-zipfs    Zipf s parameter (>1)  (default 1.2)
//	-zipfv    Zipf v parameter (>=1) (default 1.0)
//	-seed     RNG seed (default current time)
//	-out      output file (default stdout)
package main

import (
	"bufio"
	"encoding/hex"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"
)

func main() {
	var (
		n       = flag.Int("n", 1_000_000, "number of keys to generate")
		keySize = flag.Int("keysize", 32, "key size in bytes")
		dist    = flag.String("dist", "uniform", "distribution: uniform or zipf")
		zipfS   = flag.Float64("zipfs", 1.2, "zipf s parameter (>1)")
		zipfV   = flag.Float64("zipfv", 1.0, "zipf v parameter (>=1)")
		seedVal = flag.Int64("seed", time.Now().UnixNano(), "PRNG seed")
		outPath = flag.String("out", "", "output file (default stdout)")
	)
	flag.Parse()

	rnd := rand.New(rand.NewSource(*seedVal))

	const universe = 1 << 24 // fixed-size key universe for Zipf skew

	var indexOf func() uint64
	switch *dist {
	case "uniform":
		indexOf = func() uint64 { return rnd.Uint64() % universe }
	case "zipf":
		if *zipfS <= 1.0 || *zipfV < 1 {
			fmt.Fprintln(os.Stderr, "zipfs must be >1 and zipfv >=1")
			os.Exit(1)
		}
		z := rand.NewZipf(rnd, *zipfS, *zipfV, universe-1)
		indexOf = z.Uint64
	default:
		fmt.Fprintln(os.Stderr, "unknown dist:", *dist)
		os.Exit(1)
	}

	var out *os.File
	var err error
	if *outPath == "" {
		out = os.Stdout
	} else {
		out, err = os.Create(*outPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "cannot create file:", err)
			os.Exit(1)
		}
		defer out.Close()
	}

	w := bufio.NewWriterSize(out, 1<<20)
	defer w.Flush()

	key := make([]byte, *keySize)
	for i := 0; i < *n; i++ {
		idx := indexOf()
		keyedRand := rand.New(rand.NewSource(int64(idx)))
		keyedRand.Read(key)
		fmt.Fprintln(w, hex.EncodeToString(key))
	}
}
