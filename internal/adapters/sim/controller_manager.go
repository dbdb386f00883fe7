// Package sim provides an in-memory controller manager used for dry runs and tests.
package sim

import (
	"context"
	"sort"
	"sync"

	"github.com/bft-labs/modeswitch/internal/domain"
	"github.com/bft-labs/modeswitch/internal/ports"
)

// ControllerManager simulates a controller manager. It keeps the set of
// running controllers, processes deactivations before activations, and can
// be told to fail or ignore named controllers.
type ControllerManager struct {
	mu      sync.Mutex
	running map[string]struct{}
	failing map[string]string
	silent  map[string]struct{}
	calls   []domain.SwitchRequest
	callErr error
	logger  ports.Logger
}

// NewControllerManager creates a simulated manager with the given
// controllers already running.
func NewControllerManager(logger ports.Logger, running ...string) *ControllerManager {
	m := &ControllerManager{
		running: make(map[string]struct{}),
		failing: make(map[string]string),
		silent:  make(map[string]struct{}),
		logger:  logger,
	}
	for _, name := range running {
		m.running[name] = struct{}{}
	}
	return m
}

// Fail makes every future request touching name report it as failed.
func (m *ControllerManager) Fail(name, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failing[name] = reason
}

// Ignore makes the manager leave name out of its reports entirely.
func (m *ControllerManager) Ignore(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.silent[name] = struct{}{}
}

// Heal clears every failure and ignore rule.
func (m *ControllerManager) Heal() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failing = make(map[string]string)
	m.silent = make(map[string]struct{})
	m.callErr = nil
}

// FailCalls makes every future call return err.
func (m *ControllerManager) FailCalls(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callErr = err
}

// SwitchControllers implements ports.ControllerManager.
func (m *ControllerManager) SwitchControllers(ctx context.Context, req domain.SwitchRequest) (domain.SwitchReport, error) {
	if err := ctx.Err(); err != nil {
		return domain.SwitchReport{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, req)
	if m.callErr != nil {
		return domain.SwitchReport{}, m.callErr
	}

	report := domain.SwitchReport{
		Activated:   []string{},
		Deactivated: []string{},
		Failed:      make(map[string]string),
	}

	for _, name := range req.Deactivate {
		if m.skip(name, report.Failed) {
			continue
		}
		delete(m.running, name)
		report.Deactivated = append(report.Deactivated, name)
	}
	for _, name := range req.Activate {
		if m.skip(name, report.Failed) {
			continue
		}
		m.running[name] = struct{}{}
		report.Activated = append(report.Activated, name)
	}

	m.logger.Debug("simulated switch",
		ports.String("request_id", req.ID),
		ports.Strings("activated", report.Activated),
		ports.Strings("deactivated", report.Deactivated),
	)
	return report, nil
}

func (m *ControllerManager) skip(name string, failed map[string]string) bool {
	if _, ok := m.silent[name]; ok {
		return true
	}
	if reason, ok := m.failing[name]; ok {
		failed[name] = reason
		return true
	}
	return false
}

// Running returns the controllers the simulation considers running, sorted.
func (m *ControllerManager) Running() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.running))
	for name := range m.running {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Calls returns a copy of every request received.
func (m *ControllerManager) Calls() []domain.SwitchRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.SwitchRequest(nil), m.calls...)
}
