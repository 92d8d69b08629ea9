package gemm

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/bitmat/kernel"
	"github.com/hupe1980/bitmat/packed"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// Multiply returns the a.Rows()×b.Rows() product of the magnitude matrix a
// and the sign matrix b. Both operands must have the same words per row.
//
// Two empty operands yield an empty matrix without resolving or invoking a
// kernel; one empty operand is a dimension mismatch. Layouts without a
// kernel fail with kernel.ErrUnsupported.
func Multiply(ctx context.Context, a, b *packed.Matrix, opts ...Option) (*mat.Dense, error) {
	out := &mat.Dense{}
	if err := MultiplyInto(ctx, out, a, b, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// MultiplyInto writes the product of a and b into dst. dst must either be
// empty, in which case it is resized, or have shape a.Rows()×b.Rows().
func MultiplyInto(ctx context.Context, dst *mat.Dense, a, b *packed.Matrix, opts ...Option) error {
	o := applyOptions(opts)

	start := time.Now()
	err := multiplyInto(ctx, dst, a, b, &o)
	o.observer.OnMultiply(time.Since(start), a.Rows(), b.Rows(), a.Cols(), err)

	if o.logger != nil {
		if err != nil {
			o.logger.Warn("multiply failed", "rows", a.Rows(), "cols", b.Rows(), "error", err)
		} else {
			o.logger.Debug("multiply completed",
				"rows", a.Rows(),
				"cols", b.Rows(),
				"words", a.Cols(),
				"workers", o.workers,
				"kernel", kernel.ActiveImpl().String(),
				"duration", time.Since(start),
			)
		}
	}
	return err
}

func multiplyInto(ctx context.Context, dst *mat.Dense, a, b *packed.Matrix, o *options) error {
	if a.Cols() != b.Cols() {
		return &DimensionMismatchError{ACols: a.Cols(), BCols: b.Cols()}
	}

	// Equal widths make a.IsEmpty() == b.IsEmpty().
	if a.IsEmpty() {
		if !dst.IsEmpty() {
			r, c := dst.Dims()
			return fmt.Errorf("%w: output is %d×%d, want empty", packed.ErrContractViolation, r, c)
		}
		return nil
	}

	k, err := packed.KernelFor(a, b)
	if err != nil {
		return err
	}

	if dst.IsEmpty() {
		dst.ReuseAs(a.Rows(), b.Rows())
	} else if r, c := dst.Dims(); r != a.Rows() || c != b.Rows() {
		return fmt.Errorf("%w: output is %d×%d, want %d×%d", packed.ErrContractViolation, r, c, a.Rows(), b.Rows())
	}

	rows := selectRows(a.Rows(), o)
	if o.rowFilter != nil {
		dst.Zero()
	}

	m := &multiplier{
		dst:    dst,
		a:      a,
		b:      b,
		kernel: k,
		scale:  float64(a.Scale() * b.Scale()),
	}

	workers := min(o.workers, len(rows))
	if workers <= 1 {
		return m.rows(ctx, rows)
	}

	chunk := (len(rows) + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	for lo := 0; lo < len(rows); lo += chunk {
		part := rows[lo:min(lo+chunk, len(rows))]
		g.Go(func() error {
			if err := o.controller.AcquireBackground(gctx); err != nil {
				return err
			}
			defer o.controller.ReleaseBackground()

			start := time.Now()
			if err := m.rows(gctx, part); err != nil {
				return err
			}
			o.observer.OnChunk(time.Since(start), len(part))
			return nil
		})
	}
	return g.Wait()
}

// selectRows lists the rows of a to compute.
func selectRows(n int, o *options) []int {
	if o.rowFilter == nil {
		rows := make([]int, n)
		for i := range rows {
			rows[i] = i
		}
		return rows
	}

	rows := make([]int, 0, min(int(o.rowFilter.GetCardinality()), n))
	it := o.rowFilter.Iterator()
	for it.HasNext() {
		r := int(it.Next())
		if r >= n {
			break
		}
		rows = append(rows, r)
	}
	return rows
}

type multiplier struct {
	dst    *mat.Dense
	a, b   *packed.Matrix
	kernel kernel.Kernel
	scale  float64
}

// rows computes the listed output rows. Cancellation is checked between rows.
func (m *multiplier) rows(ctx context.Context, rows []int) error {
	n := m.b.Rows()
	for _, r := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}

		x := m.a.RowWords(r)
		out := m.dst.RawRowView(r)
		for c := 0; c < n; c++ {
			out[c] = m.scale * float64(m.kernel.DotWords(x, m.b.RowWords(c)))
		}
	}
	return nil
}
