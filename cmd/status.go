package main

import (
	"context"

	"github.com/urfave/cli/v3"
)

// Status checks that the detection service answers.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("checking backend", "url", r.config.Backend.URL)

	if err := r.backend.Health(ctx); err != nil {
		r.writePlain("✗ Backend unreachable at %s\n", r.config.Backend.URL)
		return err
	}

	return r.writePlain("✓ Backend reachable at %s\n", r.config.Backend.URL)
}
