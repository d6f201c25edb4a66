package batch

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/dnv-opensource/WindFarmer-automation/internal/model"
	"github.com/dnv-opensource/WindFarmer-automation/internal/request"
)

// VariantResult is the outcome of one derived request.
type VariantResult struct {
	Name    string
	Results *model.AepResultSet
	Err     error
}

// RunVariants calculates each variant of one scenario as-is (no model presets are applied) and
// returns the outcomes in input order.
func (r *Runner) RunVariants(ctx context.Context, scenario string, variants []request.Variant) []VariantResult {
	out := make([]VariantResult, len(variants))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)
	for i, v := range variants {
		i, v := i, v
		g.Go(func() error {
			res, err := r.calculate(gctx, scenario, v.Name, v.Request)
			out[i] = VariantResult{Name: v.Name, Results: res, Err: err}
			if err != nil {
				r.logger.Warn("variant failed", slog.String("scenario", scenario),
					slog.String("variant", v.Name), slog.Any("error", err))
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}
