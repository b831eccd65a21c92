package app_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smartystreets/goconvey/convey"

	"github.com/openlearnnitj/openlearn-dashboard/internal/app"
	"github.com/openlearnnitj/openlearn-dashboard/internal/config"
	"github.com/openlearnnitj/openlearn-dashboard/internal/poller"
	"github.com/openlearnnitj/openlearn-dashboard/pkg/metrics"
)

func TestNew(t *testing.T) {
	convey.Convey("Given a config without archive", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"Availability":"UP","StatusCode":200}`))
		}))
		defer srv.Close()

		cfg := config.New()
		cfg.MetricsAPIURL = srv.URL
		cfg.HistorySize = 5
		convey.So(cfg.Validate(), convey.ShouldBeNil)

		reg := prometheus.NewRegistry()
		a, err := app.New(context.Background(), cfg, app.WithMetrics(metrics.NewManager(metrics.WithRegistry(reg))))

		convey.Convey("Then only the metrics poller is wired", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(a.Uptime, convey.ShouldBeNil)
			convey.So(a.Handler.Sentiment(), convey.ShouldBeNil)
			convey.So(a.Handler.Metrics().Name(), convey.ShouldEqual, app.EndpointMetrics)
			convey.So(a.History.Capacity(), convey.ShouldEqual, 5)
			convey.So(a.Metrics.Registry(), convey.ShouldPointTo, reg)
		})

		convey.Convey("Then a poll cycle fills the history", func() {
			convey.So(a.Handler.Handle(context.Background()), convey.ShouldBeNil)
			convey.So(a.Handler.Metrics().State().Phase(), convey.ShouldEqual, poller.PhaseReady)
			convey.So(a.History.Len(), convey.ShouldEqual, 1)
		})
	})

	convey.Convey("Given a config with a feedback endpoint", t, func() {
		cfg := config.New()
		cfg.MetricsAPIURL = "http://metrics.invalid"
		cfg.FeedbackAPIURL = "http://feedback.invalid"

		a, err := app.New(context.Background(), cfg)

		convey.Convey("Then the sentiment poller is wired", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(a.Handler.Sentiment(), convey.ShouldNotBeNil)
			convey.So(a.Handler.Sentiment().Name(), convey.ShouldEqual, app.EndpointSentiment)
		})
	})
}
