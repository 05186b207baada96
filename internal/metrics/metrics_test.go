package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheus_Counters(t *testing.T) {
	p := NewPrometheus()

	p.ObserveFetch(true, 1, 10*time.Millisecond)
	p.ObserveFetch(false, 3, time.Second)
	p.ObserveFetch(true, 2, 20*time.Millisecond)
	p.AddDelivered(2)
	p.AddDelivered(3)
	p.IncDeliveryFailure()
	p.SetSections(4)
	p.IncCycle(CycleChanged)
	p.IncCycle(CycleUnchanged)
	p.IncCycle(CycleUnchanged)

	if got := testutil.ToFloat64(p.fetchTotal.WithLabelValues("ok")); got != 2 {
		t.Errorf("fetch ok = %v, want 2", got)
	}
	if got := testutil.ToFloat64(p.fetchTotal.WithLabelValues("error")); got != 1 {
		t.Errorf("fetch error = %v, want 1", got)
	}
	if got := testutil.ToFloat64(p.delivered); got != 5 {
		t.Errorf("delivered = %v, want 5", got)
	}
	if got := testutil.ToFloat64(p.deliveryFailed); got != 1 {
		t.Errorf("delivery failures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(p.sections); got != 4 {
		t.Errorf("sections = %v, want 4", got)
	}
	if got := testutil.ToFloat64(p.cycles.WithLabelValues(CycleUnchanged)); got != 2 {
		t.Errorf("unchanged cycles = %v, want 2", got)
	}
}

func TestPrometheus_Handler(t *testing.T) {
	p := NewPrometheus()
	p.IncVersionChange()

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if !strings.Contains(rec.Body.String(), "outage_bot_version_changes_total 1") {
		t.Errorf("metrics output missing version counter:\n%s", rec.Body.String())
	}
}

func TestNoop(t *testing.T) {
	r := Noop()
	r.IncCycle(CycleEmpty)
	r.ObserveFetch(true, 1, time.Second)
	r.IncCacheHit()
	r.SetSections(1)
	r.IncVersionChange()
	r.AddDelivered(1)
	r.IncDeliveryFailure()
	r.IncLedgerFailure()
}
