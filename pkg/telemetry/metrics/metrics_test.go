package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"tally-hq/tally/pkg/config"
	"tally-hq/tally/pkg/limits/admission"
	"tally-hq/tally/pkg/limits/ratelimit"
	"tally-hq/tally/pkg/queue"
)

func newTestCollector() *Collector {
	return NewCollector(config.MetricsConfig{Namespace: "tally"}, prometheus.NewRegistry())
}

func TestCollector_Counters(t *testing.T) {
	c := newTestCollector()

	c.MessageSeen()
	c.MessageSeen()
	c.RateLimited("chat")
	c.ParseObserved(time.Millisecond, true)
	c.ParseObserved(time.Millisecond, false)
	c.OutcomeSeen("order_recorded")

	if got := testutil.ToFloat64(c.messagesTotal); got != 2 {
		t.Errorf("messages_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.rateLimitedTotal.WithLabelValues("chat")); got != 1 {
		t.Errorf("rate_limited_total{chat} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.parsesTotal.WithLabelValues("ok")); got != 1 {
		t.Errorf("parses_total{ok} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.parsesTotal.WithLabelValues("failed")); got != 1 {
		t.Errorf("parses_total{failed} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.outcomesTotal.WithLabelValues("order_recorded")); got != 1 {
		t.Errorf("outcomes_total{order_recorded} = %v, want 1", got)
	}
}

func TestCollector_HandlerExposesGauges(t *testing.T) {
	c := newTestCollector()

	gate := admission.New(2)
	q := queue.New[int](4, 1, nil)
	limiter := ratelimit.New(3, time.Minute)

	c.ObserveAdmission(gate.Stats)
	c.ObserveQueue(q.Stats)
	c.ObserveRateLimiter("chat", limiter.Stats)

	limiter.Allow(1)
	limiter.Allow(2)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	for _, metric := range []string{
		"tally_admission_available 2",
		"tally_queue_size 0",
		`tally_ratelimit_active_keys{scope="chat"} 2`,
	} {
		if !strings.Contains(body, metric) {
			t.Errorf("exposition missing %q", metric)
		}
	}
}

func TestCollector_CustomNamespaceAppliesToGauges(t *testing.T) {
	c := NewCollector(config.MetricsConfig{Namespace: "acct"}, prometheus.NewRegistry())

	gate := admission.New(2)
	q := queue.New[int](4, 1, nil)
	limiter := ratelimit.New(3, time.Minute)

	c.ObserveAdmission(gate.Stats)
	c.ObserveQueue(q.Stats)
	c.ObserveRateLimiter("user", limiter.Stats)
	c.MessageSeen()

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	for _, metric := range []string{
		"acct_messages_total 1",
		"acct_admission_available 2",
		"acct_queue_size 0",
		`acct_ratelimit_active_keys{scope="user"} 0`,
	} {
		if !strings.Contains(body, metric) {
			t.Errorf("exposition missing %q", metric)
		}
	}
	if strings.Contains(body, "tally_") {
		t.Error("exposition still contains default-namespace metrics")
	}
}
