package health

import (
	"context"
	"sync"
	"time"

	corehealth "3tcapital/taxcore/internal/core/health"
)

// Metadata contains immutable metadata about the running service.
type Metadata struct {
	Service     string
	Version     string
	Environment string
}

// Check tests one dependency. Run returns a human readable detail on
// success. A failing critical check marks the service DOWN, any other
// failure only DEGRADED.
type Check struct {
	Name     string
	Critical bool
	Run      func(ctx context.Context) (string, error)
}

// Service exposes health-check use cases to adapters.
type Service struct {
	meta         Metadata
	checks       []Check
	checkTimeout time.Duration
	startedAt    time.Time
}

func NewService(meta Metadata, checks ...Check) *Service {
	return &Service{
		meta:         meta,
		checks:       checks,
		checkTimeout: 5 * time.Second,
		startedAt:    time.Now().UTC(),
	}
}

// Status returns the current availability snapshot. Checks run concurrently,
// each bounded by its own timeout.
func (s *Service) Status(ctx context.Context) corehealth.Status {
	uptime := time.Since(s.startedAt)
	status := corehealth.Status{
		Service:     s.meta.Service,
		Version:     s.meta.Version,
		Environment: s.meta.Environment,
		Status:      corehealth.StatusUp,
		StartedAt:   s.startedAt,
		Uptime:      uptime.String(),
		UptimeSecs:  int64(uptime.Seconds()),
	}
	if len(s.checks) == 0 {
		return status
	}

	deps := make([]corehealth.Dependency, len(s.checks))
	var wg sync.WaitGroup
	for i, check := range s.checks {
		wg.Add(1)
		go func(i int, check Check) {
			defer wg.Done()
			deps[i] = s.run(ctx, check)
		}(i, check)
	}
	wg.Wait()

	for _, dep := range deps {
		if dep.Status == corehealth.StatusUp {
			continue
		}
		if dep.Critical {
			status.Status = corehealth.StatusDown
		} else if status.Status == corehealth.StatusUp {
			status.Status = corehealth.StatusDegraded
		}
	}
	status.Dependencies = deps
	return status
}

func (s *Service) run(ctx context.Context, check Check) (dep corehealth.Dependency) {
	dep = corehealth.Dependency{Name: check.Name, Critical: check.Critical}
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			dep.Status = corehealth.StatusDown
			dep.Error = "check panicked"
		}
		dep.LatencyMs = time.Since(start).Milliseconds()
	}()

	ctx, cancel := context.WithTimeout(ctx, s.checkTimeout)
	defer cancel()

	detail, err := check.Run(ctx)
	if err != nil {
		dep.Status = corehealth.StatusDown
		dep.Error = err.Error()
		return dep
	}
	dep.Status = corehealth.StatusUp
	dep.Detail = detail
	return dep
}
