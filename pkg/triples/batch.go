package triples

import (
	"context"

	"github.com/sigmabit/threshold-ecdsa/pkg/pool"
)

// Batch drives many independent Triple Generation instances
// concurrently, since triples "can be precomputed in bulk" ahead of
// any signing session (spec §1). It adds no cryptography of its own —
// each instance is an ordinary Body run to completion; Batch only
// bounds how many run at once.
type Batch struct {
	pool *pool.Pool
}

// NewBatch returns a Batch that runs at most p's worker limit
// instances concurrently.
func NewBatch(p *pool.Pool) *Batch {
	return &Batch{pool: p}
}

// Run drives n independent instances concurrently. run(ctx, i) must
// build and fully drive one Triple Generation instance to completion
// (typically: construct a fresh engine.Machine from Body, then step
// and deliver it against the network until it returns a *Result) and
// is responsible for its own networking with the other co-signers —
// Batch only bounds concurrency and collects results. If any instance
// fails, the remaining ones are canceled via ctx and the first error
// is returned, matching errgroup's fail-fast semantics.
func (b *Batch) Run(ctx context.Context, n int, run func(ctx context.Context, i int) (*Result, error)) ([]*Result, error) {
	g, gctx := b.pool.Group(ctx)
	results := make([]*Result, n)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			r, err := run(gctx, i)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
