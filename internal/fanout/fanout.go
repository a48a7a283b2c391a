// Package fanout runs one call per input concurrently and gathers the results
// in input order. The caller picks how a single failure affects the rest.
package fanout

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Policy decides how a failed call affects the others
type Policy int

const (
	// Isolate lets every call finish; failures are reported per result.
	Isolate Policy = iota
	// FailFast cancels the shared context on the first failure and returns it.
	FailFast
)

// Result is the outcome of one call
type Result[R any] struct {
	Index int
	Value R
	Err   error
}

// Gather calls fn for every input concurrently. Results are index-aligned with inputs.
// Under FailFast the first error is returned and no results are.
func Gather[T, R any](ctx context.Context, inputs []T, fn func(context.Context, T) (R, error), policy Policy) ([]Result[R], error) {
	results := make([]Result[R], len(inputs))

	if policy == FailFast {
		g, gctx := errgroup.WithContext(ctx)
		for i, in := range inputs {
			i, in := i, in
			g.Go(func() error {
				v, err := fn(gctx, in)
				if err != nil {
					return err
				}
				results[i] = Result[R]{Index: i, Value: v}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return results, nil
	}

	var g errgroup.Group
	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			v, err := fn(ctx, in)
			results[i] = Result[R]{Index: i, Value: v, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}

// Partition splits results into successes and failures, keeping order
func Partition[R any](results []Result[R]) (ok, failed []Result[R]) {
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r)
			continue
		}
		ok = append(ok, r)
	}
	return ok, failed
}

// Values returns the values of results in order
func Values[R any](results []Result[R]) []R {
	out := make([]R, len(results))
	for i, r := range results {
		out[i] = r.Value
	}
	return out
}
