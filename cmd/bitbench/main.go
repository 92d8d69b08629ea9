// Command bitbench compares the bit-packed multiply against a dense float64
// multiply on random operands and reports timing and the largest absolute
// error of the quantized product.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"github.com/hupe1980/bitmat/gemm"
	"github.com/hupe1980/bitmat/packed"
	"github.com/hupe1980/bitmat/persistence"
	"github.com/hupe1980/bitmat/testutil"
	"gonum.org/v1/gonum/mat"
)

func main() {
	var (
		m       = flag.Int("m", 256, "rows of A")
		k       = flag.Int("k", 1024, "shared dimension (multiple of 8)")
		n       = flag.Int("n", 256, "rows of B")
		iters   = flag.Int("iters", 10, "timed iterations per variant")
		workers = flag.Int("workers", 0, "gemm workers (0 = GOMAXPROCS)")
		seed    = flag.Int64("seed", 1, "random seed")
		save    = flag.String("save", "", "write the packed operands to this path prefix")
	)
	flag.Parse()

	if *k <= 0 || *k%8 != 0 {
		log.Fatalf("-k must be a positive multiple of 8, got %d", *k)
	}
	if *iters <= 0 {
		log.Fatalf("-iters must be positive, got %d", *iters)
	}

	if err := run(*m, *k, *n, *iters, *workers, *seed, *save); err != nil {
		log.Fatal(err)
	}
}

func run(m, k, n, iters, workers int, seed int64, save string) error {
	ctx := context.Background()
	rng := testutil.NewRNG(seed)

	x := rng.UniformDense(m, k)
	w := rng.SignDense(n, k)

	start := time.Now()
	qa, err := packed.Quantize(x, 8, 8)
	if err != nil {
		return err
	}
	qb, err := packed.QuantizeSign(w, 8)
	if err != nil {
		return err
	}
	quantize := time.Since(start)

	var dense mat.Dense
	denseTime, _ := timeIt(iters, func() error {
		dense.Reset()
		dense.Mul(x, w.T())
		return nil
	})

	var bit mat.Dense
	bitTime, err := timeIt(iters, func() error {
		bit.Reset()
		return gemm.MultiplyInto(ctx, &bit, qa, qb, gemm.WithWorkers(workers))
	})
	if err != nil {
		return err
	}

	var maxErr float64
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			maxErr = math.Max(maxErr, math.Abs(dense.At(i, j)-bit.At(i, j)))
		}
	}

	fmt.Printf("shape      %d×%d · (%d×%d)ᵀ\n", m, k, n, k)
	fmt.Printf("quantize   %v\n", quantize)
	fmt.Printf("dense      %v/op\n", denseTime)
	fmt.Printf("bit        %v/op (%.2fx)\n", bitTime, float64(denseTime)/float64(max(bitTime, 1)))
	fmt.Printf("packed     %d bytes (dense %d)\n", qa.SizeBytes()+qb.SizeBytes(), 8*(m+n)*k)
	fmt.Printf("max error  %.6g (bound %.6g)\n", maxErr, testutil.ProductTolerance(k, 8, 1))

	if save == "" {
		return nil
	}
	for name, p := range map[string]*packed.Matrix{"a": qa, "b": qb} {
		path := save + "." + name + ".bm"
		if err := persistence.WriteFile(path, p, true); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "wrote %s\n", path)
	}
	return nil
}

// timeIt returns the mean duration of fn over iters runs after one warmup run.
func timeIt(iters int, fn func() error) (time.Duration, error) {
	if err := fn(); err != nil {
		return 0, err
	}
	start := time.Now()
	for i := 0; i < iters; i++ {
		if err := fn(); err != nil {
			return 0, err
		}
	}
	return time.Since(start) / time.Duration(iters), nil
}
