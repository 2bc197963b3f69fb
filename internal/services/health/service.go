package health

import (
	"context"
	"sort"
	"sync"
	"time"
)

const defaultCheckTimeout = 2 * time.Second

// Check reports the health of a single dependency.
type Check func(ctx context.Context) error

// Report is the health payload served by GET /health.
type Report struct {
	OK     bool              `json:"ok"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Service encapsulates health-related checks.
type Service struct {
	Timeout time.Duration

	mu     sync.RWMutex
	checks map[string]Check
}

// NewService constructs a new health service.
func NewService() *Service {
	return &Service{Timeout: defaultCheckTimeout, checks: make(map[string]Check)}
}

// Register adds a named dependency check. A nil check is ignored.
func (s *Service) Register(name string, check Check) {
	if check == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[name] = check
}

// Names lists registered checks in sorted order.
func (s *Service) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Status runs every registered check concurrently, each under the service timeout.
func (s *Service) Status(ctx context.Context) Report {
	s.mu.RLock()
	checks := make(map[string]Check, len(s.checks))
	for name, check := range s.checks {
		checks[name] = check
	}
	s.mu.RUnlock()

	report := Report{OK: true}
	if len(checks) == 0 {
		return report
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = defaultCheckTimeout
	}

	type result struct {
		name string
		err  error
	}
	results := make(chan result, len(checks))
	for name, check := range checks {
		go func(name string, check Check) {
			cctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			results <- result{name: name, err: check(cctx)}
		}(name, check)
	}

	report.Checks = make(map[string]string, len(checks))
	for range checks {
		r := <-results
		if r.err != nil {
			report.OK = false
			report.Checks[r.name] = r.err.Error()
			continue
		}
		report.Checks[r.name] = "ok"
	}
	return report
}
