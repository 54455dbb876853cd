package storage

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// Sweep calls s.Sweep every interval until ctx is done. Each successful
// sweep's count is passed to observe, if not nil. Errors are logged and the
// next sweep is attempted as usual.
func Sweep(ctx context.Context, s Sweeper, interval time.Duration, observe func(removed int)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		start := time.Now()
		removed, err := s.Sweep()
		logger := log.WithFields(log.Fields{
			"removed": removed,
			"elapsed": time.Since(start),
		})
		if err != nil {
			logger.WithField("err", err).Warn("Could not sweep expired pairs")
			continue
		}
		logger.Debug("Swept expired pairs")
		if observe != nil {
			observe(removed)
		}
	}
}
