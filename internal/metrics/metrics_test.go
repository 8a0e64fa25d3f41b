package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/wudi/wampd/internal/session"
)

func TestCollectorSessionLifecycle(t *testing.T) {
	c := NewCollector()

	c.RecordSessionJoin("realm1")
	c.RecordSessionJoin("realm1")
	c.RecordSessionLeave("realm1")

	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	body := w.Body.String()

	if !strings.Contains(body, `wampd_sessions_joined_total{realm="realm1"} 2`) {
		t.Errorf("missing joined counter, got:\n%s", body)
	}
	if !strings.Contains(body, `wampd_sessions_left_total{realm="realm1"} 1`) {
		t.Errorf("missing left counter, got:\n%s", body)
	}
	if !strings.Contains(body, `wampd_sessions_active{realm="realm1"} 1`) {
		t.Errorf("missing active gauge, got:\n%s", body)
	}
}

func TestCollectorCallMetrics(t *testing.T) {
	c := NewCollector()

	c.RecordCall("realm1", "com.example.add", 50*time.Millisecond, false)
	c.RecordCall("realm1", "com.example.add", 10*time.Millisecond, true)

	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	body := w.Body.String()

	if !strings.Contains(body, `wampd_calls_total{procedure="com.example.add",realm="realm1"} 2`) {
		t.Errorf("missing calls_total, got:\n%s", body)
	}
	if !strings.Contains(body, `wampd_call_errors_total{procedure="com.example.add",realm="realm1"} 1`) {
		t.Errorf("missing call_errors_total, got:\n%s", body)
	}
	if !strings.Contains(body, "wampd_call_duration_seconds_bucket") {
		t.Errorf("missing call_duration_seconds histogram, got:\n%s", body)
	}
}

func TestCollectorPublishMetrics(t *testing.T) {
	c := NewCollector()

	c.RecordPublish("realm1", "com.example.topic", 3)

	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	body := w.Body.String()

	if !strings.Contains(body, `wampd_publishes_total{realm="realm1",topic="com.example.topic"} 1`) {
		t.Errorf("missing publishes_total, got:\n%s", body)
	}
	if !strings.Contains(body, `wampd_events_delivered_total{realm="realm1"} 3`) {
		t.Errorf("missing events_delivered_total, got:\n%s", body)
	}
}

func TestCollectorOccupancyGauges(t *testing.T) {
	c := NewCollector()

	c.SetRealmsOpen(2)
	c.SetRegistrationsActive("realm1", 5)
	c.SetSubscriptionsActive("realm1", 7)

	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	body := w.Body.String()

	if !strings.Contains(body, "wampd_realms_open 2") {
		t.Errorf("missing realms_open, got:\n%s", body)
	}
	if !strings.Contains(body, `wampd_registrations_active{realm="realm1"} 5`) {
		t.Errorf("missing registrations_active, got:\n%s", body)
	}
	if !strings.Contains(body, `wampd_subscriptions_active{realm="realm1"} 7`) {
		t.Errorf("missing subscriptions_active, got:\n%s", body)
	}
}

func TestCollectorConnectionAdmission(t *testing.T) {
	c := NewCollector()

	c.RecordConnectionAdmission("wamp")
	c.RecordConnectionAdmission("shedded")
	c.RecordConnectionAdmission("wamp")

	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	body := w.Body.String()

	if !strings.Contains(body, `wampd_connections_admitted_total{outcome="wamp"} 2`) {
		t.Errorf("missing admitted wamp count, got:\n%s", body)
	}
	if !strings.Contains(body, `wampd_connections_admitted_total{outcome="shedded"} 1`) {
		t.Errorf("missing admitted shedded count, got:\n%s", body)
	}
}

func TestRealmObserverRecordsJoinAndLeave(t *testing.T) {
	c := NewCollector()
	obs := NewRealmObserver("realm1", c)

	sess := session.New(1, nil)
	obs.OnSessionJoin(sess)
	obs.OnSessionLeave(1)

	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	body := w.Body.String()

	if !strings.Contains(body, `wampd_sessions_joined_total{realm="realm1"} 1`) {
		t.Errorf("missing joined counter from observer, got:\n%s", body)
	}
	if !strings.Contains(body, `wampd_sessions_left_total{realm="realm1"} 1`) {
		t.Errorf("missing left counter from observer, got:\n%s", body)
	}
}
