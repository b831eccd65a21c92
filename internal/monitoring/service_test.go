package monitoring_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/openlearnnitj/openlearn-dashboard/internal/dasherr"
	"github.com/openlearnnitj/openlearn-dashboard/internal/monitoring"
)

func TestService_Fetch(t *testing.T) {
	convey.Convey("Given a monitoring service", t, func() {
		ctx := context.Background()

		convey.Convey("When the endpoint answers 200", func() {
			var userAgent, method string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				userAgent = r.Header.Get("User-Agent")
				method = r.Method
				_, _ = w.Write([]byte(`{"Availability":"UP"}`))
			}))
			defer srv.Close()

			res, err := monitoring.NewService(srv.URL, time.Second).Fetch(ctx)

			convey.Convey("Then the body is returned", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(string(res.Body), convey.ShouldEqual, `{"Availability":"UP"}`)
				convey.So(res.StatusCode, convey.ShouldEqual, http.StatusOK)
				convey.So(res.FetchedAt.IsZero(), convey.ShouldBeFalse)
				convey.So(method, convey.ShouldEqual, http.MethodGet)
				convey.So(userAgent, convey.ShouldEqual, monitoring.UserAgent)
			})
		})

		convey.Convey("When the endpoint answers 204", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			}))
			defer srv.Close()

			res, err := monitoring.NewService(srv.URL, time.Second).Fetch(ctx)

			convey.Convey("Then it is still a success", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(res.StatusCode, convey.ShouldEqual, http.StatusNoContent)
				convey.So(res.Body, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When the endpoint answers 500", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			}))
			defer srv.Close()

			res, err := monitoring.NewService(srv.URL, time.Second).Fetch(ctx)

			convey.Convey("Then an HTTP status error is returned", func() {
				convey.So(res, convey.ShouldBeNil)
				convey.So(errors.Is(err, dasherr.ErrHTTPStatus), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldEqual, "HTTP error! Status: 500")
			})
		})

		convey.Convey("When the endpoint is unreachable", func() {
			srv := httptest.NewServer(http.NotFoundHandler())
			url := srv.URL
			srv.Close()

			_, err := monitoring.NewService(url, time.Second).Fetch(ctx)

			convey.Convey("Then a network error is returned", func() {
				convey.So(errors.Is(err, dasherr.ErrNetwork), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the endpoint is slower than the timeout", func() {
			release := make(chan struct{})
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-release:
				case <-r.Context().Done():
				}
			}))
			defer srv.Close()
			defer close(release)

			_, err := monitoring.NewService(srv.URL, 50*time.Millisecond).Fetch(ctx)

			convey.Convey("Then the request is abandoned as a network error", func() {
				convey.So(errors.Is(err, dasherr.ErrNetwork), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the URL is malformed", func() {
			_, err := monitoring.NewService("http://[::1", time.Second).Fetch(ctx)

			convey.Convey("Then a network error is returned", func() {
				convey.So(errors.Is(err, dasherr.ErrNetwork), convey.ShouldBeTrue)
			})
		})
	})
}

func TestNewService_defaultTimeout(t *testing.T) {
	s := monitoring.NewService("http://example.com", 0)
	if s.URL() != "http://example.com" {
		t.Errorf("unexpected URL: %s", s.URL())
	}
}
