package services

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog/log"
)

type duePublisher interface {
	PublishDue(ctx context.Context, now time.Time) (int64, error)
}

// StartPublisher flips scheduled posts to published every interval until
// the returned stop function is called. stop waits for a running pass to
// finish.
func StartPublisher(ctx context.Context, posts duePublisher, clk clock.Clock, interval time.Duration) (stop func()) {
	logger := log.With().Str("service", "publisher").Logger()
	ctx, cancel := context.WithCancel(ctx)
	ticker := clk.Ticker(interval)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := posts.PublishDue(ctx, clk.Now().UTC())
				if err != nil {
					logger.Error().Err(err).Msg("publishing scheduled posts failed")
					continue
				}
				if n > 0 {
					logger.Info().Int64("published", n).Msg("published scheduled posts")
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			wg.Wait()
		})
	}
}
