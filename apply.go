package redirect

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Host is the instrumentation layer that owns method bodies.
type Host interface {
	// Body returns the current instructions of method.
	Body(method MethodRef) ([]Instruction, error)

	// Install replaces the body of method.
	Install(method MethodRef, body []Instruction) error
}

// Apply rewrites and installs every targeted method through host. Nothing is
// done when no redirects are registered.
//
// Unmatched scoped rules don't cause an error; check the returned reports.
// Reports are in TargetMethods order. On a host error, installs already made
// stay in place: the reports are still returned, with a nil entry for every
// method that wasn't installed.
func (rw *Rewriter) Apply(ctx context.Context, host Host) ([]*Report, error) {
	if rw.reg.RedirectCount() == 0 {
		return nil, nil
	}

	targets := slices.Collect(rw.TargetMethods())
	reports := make([]*Report, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(rw.workers, len(targets)))

	for i, method := range targets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			body, err := host.Body(method)
			if err != nil {
				return fmt.Errorf("reading %v: %w", method, err)
			}

			out, report := rw.Rewrite(method, body)
			if err := host.Install(method, out); err != nil {
				return fmt.Errorf("installing %v: %w", method, err)
			}
			reports[i] = report

			rw.log.Debug("installed rewritten method",
				zap.Stringer("method", method),
				zap.Stringer("kind", report.Kind),
				zap.Int("matched", len(report.Matched)),
				zap.Int("unmatched", len(report.Unmatched)),
			)
			return nil
		})
	}

	return reports, g.Wait()
}
