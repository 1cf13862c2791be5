package transaction

import (
	"context"

	"golang.org/x/sync/errgroup"

	coretx "3tcapital/taxcore/internal/core/transaction"
)

// BatchResult is the outcome of one request in a batch.
type BatchResult struct {
	Index  int
	Code   string
	Result *coretx.Result
	Err    error
}

// runBatch processes reqs with at most workers calls in flight and returns
// the results in input order. Every request runs regardless of the others'
// errors; requests not started before ctx ends carry ctx's error.
func runBatch(ctx context.Context, workers int, reqs []Request, process func(ctx context.Context, req Request) (*coretx.Result, error)) []BatchResult {
	if workers <= 0 {
		workers = 1
	}

	out := make([]BatchResult, len(reqs))
	var g errgroup.Group
	g.SetLimit(workers)

	for i, req := range reqs {
		out[i] = BatchResult{Index: i, Code: req.Code}
		if err := ctx.Err(); err != nil {
			out[i].Err = err
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				out[i].Err = err
				return nil
			}
			out[i].Result, out[i].Err = process(ctx, req)
			return nil
		})
	}
	_ = g.Wait()
	return out
}
