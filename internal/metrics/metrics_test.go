package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/bft-labs/modeswitch/internal/app"
	"github.com/bft-labs/modeswitch/internal/domain"
	"github.com/bft-labs/modeswitch/pkg/modeswitch"
)

func TestMetrics_OnSwitch(t *testing.T) {
	m := New()

	m.OnSwitch(domain.SwitchResult{Outcome: domain.OutcomeApplied, Attempts: 1, Duration: 5 * time.Millisecond})
	m.OnSwitch(domain.SwitchResult{Outcome: domain.OutcomeApplied, Attempts: 2, Duration: 7 * time.Millisecond})
	m.OnSwitch(domain.SwitchResult{Outcome: domain.OutcomeNeedsReconcile, Attempts: 4})

	if got := testutil.ToFloat64(m.switchesTotal.WithLabelValues("applied")); got != 2 {
		t.Errorf("switches_total{applied} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.switchesTotal.WithLabelValues("needs_reconcile")); got != 1 {
		t.Errorf("switches_total{needs_reconcile} = %v, want 1", got)
	}
}

func TestMetrics_OnSnapshotAndState(t *testing.T) {
	m := New()

	m.OnSnapshot(domain.Snapshot{
		Active:  []string{"a", "b"},
		Pending: modeswitch.Plan{Activate: []string{"c"}},
		Ticks:   42,
	})
	m.OnStateChange(app.StateInactive, app.StateActive, "test")

	if got := testutil.ToFloat64(m.activeControllers); got != 2 {
		t.Errorf("active_controllers = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.pendingChanges); got != 1 {
		t.Errorf("pending_changes = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.lifecycleState); got != float64(app.StateActive) {
		t.Errorf("lifecycle_state = %v, want %d", got, app.StateActive)
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.OnSwitch(domain.SwitchResult{Outcome: domain.OutcomeRejected})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`modeswitch_switches_total{outcome="rejected"} 1`,
		"modeswitch_switch_duration_seconds_bucket",
		"modeswitch_lifecycle_state",
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
