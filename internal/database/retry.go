package database

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// connectAttempts bounds how often a dependency is pinged at startup.
// Containers started together often accept connections a few seconds late.
const connectAttempts = 5

// pingWithRetry calls ping until it succeeds, ctx ends or the attempts run out.
// The wait doubles after every failure, starting at base.
func pingWithRetry(ctx context.Context, name string, base time.Duration, log zerolog.Logger, ping func(context.Context) error) error {
	wait := base
	var err error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = ping(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		if attempt == connectAttempts {
			break
		}
		log.Warn().Err(err).
			Str("dependency", name).
			Int("attempt", attempt).
			Dur("retry_in", wait).
			Msg("Dependency not ready")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
	return err
}
