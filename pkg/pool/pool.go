// Package pool provides a bounded worker pool used to fan out
// independent, locally-driven protocol instances — most notably
// pkg/triples.Batch's concurrent Triple Generation runs — mirroring
// the pl := pool.NewPool(0); defer pl.TearDown() usage pattern the
// teacher's protocol suites rely on.
package pool

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Pool bounds the number of concurrently running tasks submitted via
// Group. A Pool with zero workers uses GOMAXPROCS, matching
// pool.NewPool(0) in the teacher's example tests.
type Pool struct {
	limit int
}

// NewPool returns a Pool allowing at most workers concurrent tasks.
// workers <= 0 defaults to runtime.GOMAXPROCS(0).
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Pool{limit: workers}
}

// TearDown releases any resources held by the pool. Present for
// parity with the teacher's pl.TearDown() pattern; a Pool holds no
// background goroutines of its own, so this is a no-op.
func (p *Pool) TearDown() {}

// Group returns a new bounded error-group scoped to ctx, ready to
// receive Go(...) submissions. Callers call Wait() to join and
// collect the first error, matching how pkg/triples.Batch joins its
// concurrently-driven Triple Generation instances.
func (p *Pool) Group(ctx context.Context) (*errgroup.Group, context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.limit)
	return g, gctx
}
