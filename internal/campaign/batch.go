package campaign

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// RunAll runs several independent campaigns, one per kernel. Sequentially,
// it stops before the next campaign once one fails. In parallel, each
// campaign keeps its own sequential trial order and the first failure
// cancels the others. Summaries are returned in the order of drivers; a
// campaign that never started has a nil summary.
func RunAll(ctx context.Context, drivers []*Driver, parallel bool) ([]*Summary, error) {
	summaries := make([]*Summary, len(drivers))

	if !parallel {
		for i, d := range drivers {
			s, err := d.Run(ctx)
			summaries[i] = s
			if err != nil {
				return summaries, err
			}
		}
		return summaries, nil
	}

	eg, egCtx := errgroup.WithContext(ctx)
	for i, d := range drivers {
		eg.Go(func() error {
			s, err := d.Run(egCtx)
			summaries[i] = s
			return err
		})
	}
	return summaries, eg.Wait()
}
