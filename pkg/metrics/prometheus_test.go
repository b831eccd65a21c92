package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/smartystreets/goconvey/convey"

	"github.com/openlearnnitj/openlearn-dashboard/pkg/metrics"
)

func TestManager(t *testing.T) {
	convey.Convey("Given a metrics manager on a private registry", t, func() {
		reg := prometheus.NewRegistry()
		m := metrics.NewManager(metrics.WithRegistry(reg), metrics.WithNamespace("test"))

		convey.Convey("When polls are observed", func() {
			m.ObservePoll("metrics", metrics.ResultSuccess, 120*time.Millisecond)
			m.ObservePoll("metrics", metrics.ResultSuccess, 80*time.Millisecond)
			m.ObservePoll("metrics", metrics.ResultHTTPStatus, 10*time.Millisecond)
			m.IncPollSkipped("metrics")

			convey.Convey("Then the counters reflect them", func() {
				convey.So(count(t, reg, "test_dashboard_polls_total"), convey.ShouldEqual, 2)
				convey.So(count(t, reg, "test_dashboard_polls_skipped_total"), convey.ShouldEqual, 1)
				convey.So(count(t, reg, "test_dashboard_poll_duration_seconds"), convey.ShouldEqual, 1)
				convey.So(m.Registry(), convey.ShouldPointTo, reg)
			})
		})

		convey.Convey("When the latest readings are set", func() {
			m.SetAvailability(true)
			m.SetHistoryPoints(42)
			m.SetSnapshotValue("db_query_execution_time_ms", 120)
			m.SetSnapshotValue("status_code", 200)
			m.ClearSnapshotValue("status_code")
			m.SetSentiment("positive", 7)
			m.ObserveHTTP("GET", "/api/metrics", 200, time.Millisecond)

			convey.Convey("Then the gauges hold the values", func() {
				convey.So(count(t, reg, "test_dashboard_snapshot_value"), convey.ShouldEqual, 1)
				convey.So(count(t, reg, "test_dashboard_sentiment_count"), convey.ShouldEqual, 1)
				convey.So(count(t, reg, "test_dashboard_http_requests_total"), convey.ShouldEqual, 1)
				convey.So(count(t, reg, "test_dashboard_availability_up"), convey.ShouldEqual, 1)
				convey.So(count(t, reg, "test_dashboard_history_points"), convey.ShouldEqual, 1)
			})
		})
	})
}

func TestManager_disabled(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewManager(metrics.WithRegistry(reg), metrics.WithMetricsEnabled(false))

	m.ObservePoll("metrics", metrics.ResultSuccess, time.Second)
	m.SetSentiment("negative", 1)

	if n := count(t, reg, "openlearn_dashboard_polls_total"); n != 0 {
		t.Errorf("expected no series but got %d", n)
	}
}

func TestManager_nil(t *testing.T) {
	var m *metrics.Manager

	m.ObservePoll("metrics", metrics.ResultSuccess, time.Second)
	m.IncPollSkipped("metrics")
	m.SetAvailability(false)
	m.SetHistoryPoints(1)
	m.SetSnapshotValue("x", 1)
	m.ClearSnapshotValue("x")
	m.SetSentiment("neutral", 1)
	m.ObserveHTTP("GET", "/", 200, time.Second)

	if m.Registry() == nil {
		t.Error("expected an empty registry")
	}
}

func count(t *testing.T, reg *prometheus.Registry, name string) int {
	t.Helper()

	n, err := testutil.GatherAndCount(reg, name)
	if err != nil {
		t.Fatalf("failed to gather %s: %v", name, err)
	}
	return n
}
