// Service layer of the internal package metrics.

package metrics

import (
	"Tracker/pkg/log"
	"context"
	"time"

	"github.com/coder/quartz"
)

// ClusterSessions is the session count of every live instance.
type ClusterSessions struct {
	Total     int64            `json:"total"`
	Peak      int64            `json:"peak"`
	Instances map[string]int64 `json:"instances"`
}

// Service layer of internal package metrics which shares this instance's load with the others.
type Service interface {
	// Report writes the current session count of this instance.
	Report(ctx context.Context) error
	// RunReporter calls Report every interval until ctx is done, then removes this instance.
	RunReporter(ctx context.Context, interval time.Duration)
	// GetClusterSessions sums the session counts of every instance.
	GetClusterSessions(ctx context.Context) (ClusterSessions, error)
}

// Object of this will be passed around from main to routers to API.
// Helps to access the service layer interface and call methods.
// Also helps to pass objects to be used from outer layer.
type service struct {
	instance    string
	sessions    func() int
	metricsRepo Repository
	clock       quartz.Clock
	logger      log.Logger
}

// NewService reports sessions() under the instance name.
func NewService(instance string, sessions func() int, metricsRepo Repository, clock quartz.Clock, logger log.Logger) Service {
	return service{instance: instance, sessions: sessions, metricsRepo: metricsRepo, clock: clock, logger: logger}
}

func (s service) Report(ctx context.Context) error {
	return s.metricsRepo.SetInstanceSessions(ctx, s.logger, s.instance, int64(s.sessions()))
}

func (s service) RunReporter(ctx context.Context, interval time.Duration) {
	ticker := s.clock.NewTicker(interval, "metrics", "reporter")
	defer ticker.Stop()
	s.logger.Info().Str("instance", s.instance).Msg("Launching session reporter")
	// Errors are logged by the repository
	_ = s.Report(ctx)
	for {
		select {
		case <-ticker.C:
			_ = s.Report(ctx)
		case <-ctx.Done():
			cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
			_ = s.metricsRepo.DelInstance(cleanupCtx, s.logger, s.instance)
			cancel()
			s.logger.Info().Str("instance", s.instance).Msg("Successfully stopped session reporter")
			return
		}
	}
}

func (s service) GetClusterSessions(ctx context.Context) (ClusterSessions, error) {
	instances, dberr := s.metricsRepo.GetSessions(ctx, s.logger)
	if dberr != nil {
		return ClusterSessions{}, dberr
	}
	peak, dberr := s.metricsRepo.GetPeak(ctx, s.logger)
	if dberr != nil {
		return ClusterSessions{}, dberr
	}
	cluster := ClusterSessions{Instances: instances, Peak: peak}
	for _, n := range instances {
		cluster.Total += n
	}
	return cluster, nil
}
