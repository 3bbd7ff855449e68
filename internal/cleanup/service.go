// Package cleanup removes expired entries from cache backends that do not
// expire them on their own.
package cleanup

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultInterval is used when Config.Interval is not set
const DefaultInterval = 5 * time.Minute

// Purger deletes expired entries and reports how many it removed
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Config contains configuration for the cleanup service
type Config struct {
	Interval time.Duration
}

// Service periodically purges expired cache entries
type Service struct {
	purger Purger
	logger logrus.FieldLogger
	config Config
}

// NewService creates a new cleanup service
func NewService(purger Purger, logger logrus.FieldLogger, config Config) *Service {
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Service{
		purger: purger,
		logger: logger.WithField("component", "cleanup"),
		config: config,
	}
}

// RunOnce performs a single cleanup cycle
func (s *Service) RunOnce(ctx context.Context) (int64, error) {
	start := time.Now()
	purged, err := s.purger.PurgeExpired(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("Cleanup cycle failed")
		return 0, err
	}

	s.logger.WithFields(logrus.Fields{
		"purged":   purged,
		"duration": time.Since(start),
	}).Info("Cleanup cycle completed")
	return purged, nil
}

// Start runs a cycle immediately and then on every tick until ctx is done.
// report, when non-nil, receives the result of each successful cycle. A
// failed cycle is logged and the loop keeps going.
func (s *Service) Start(ctx context.Context, report func(purged int64)) {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.logger.WithField("interval", s.config.Interval).Info("Cleanup service started")

	s.cycle(ctx, report)
	for {
		select {
		case <-ticker.C:
			s.cycle(ctx, report)
		case <-ctx.Done():
			s.logger.Info("Cleanup service stopped")
			return
		}
	}
}

func (s *Service) cycle(ctx context.Context, report func(int64)) {
	purged, err := s.RunOnce(ctx)
	if err == nil && report != nil {
		report(purged)
	}
}
