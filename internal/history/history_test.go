package history_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/guregu/null/v5"
	"github.com/smartystreets/goconvey/convey"

	"github.com/openlearnnitj/openlearn-dashboard/internal/history"
	"github.com/openlearnnitj/openlearn-dashboard/internal/models"
)

var base = time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)

func point(i int) models.HistoryPoint {
	return models.HistoryPoint{
		MetricsSnapshot: models.MetricsSnapshot{
			Availability:         null.StringFrom("UP"),
			StatusCode:           null.IntFrom(200),
			DBQueryExecutionTime: null.FloatFrom(float64(i)),
		},
		CapturedAt: base.Add(time.Duration(i) * time.Second),
	}
}

func points(from, to int) []models.HistoryPoint {
	ps := make([]models.HistoryPoint, 0, to-from)
	for i := from; i < to; i++ {
		ps = append(ps, point(i))
	}
	return ps
}

func TestBuffer(t *testing.T) {
	convey.Convey("Given an empty history buffer", t, func() {
		b := history.New(history.DefaultCapacity)

		convey.Convey("When nothing is appended", func() {
			convey.Convey("Then it stays empty", func() {
				convey.So(b.Len(), convey.ShouldEqual, 0)
				convey.So(b.Points(), convey.ShouldBeEmpty)

				_, ok := b.Latest()
				convey.So(ok, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When exactly 60 points are appended", func() {
			for i := 0; i < 60; i++ {
				b.Append(point(i))
			}

			convey.Convey("Then none are evicted", func() {
				convey.So(b.Len(), convey.ShouldEqual, 60)
				convey.So(cmp.Diff(points(0, 60), b.Points()), convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When 100 points are appended", func() {
			var last []models.HistoryPoint
			for i := 0; i < 100; i++ {
				last = b.Append(point(i))
				convey.So(len(last), convey.ShouldBeLessThanOrEqualTo, 60)
			}

			convey.Convey("Then only the last 60 remain in their original order", func() {
				convey.So(b.Len(), convey.ShouldEqual, 60)
				convey.So(cmp.Diff(points(40, 100), b.Points()), convey.ShouldBeEmpty)
				convey.So(cmp.Diff(points(40, 100), last), convey.ShouldBeEmpty)

				latest, ok := b.Latest()
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(latest.CapturedAt, convey.ShouldEqual, point(99).CapturedAt)
			})
		})

		convey.Convey("When the returned sequence is modified", func() {
			got := b.Append(point(1))
			got[0].Availability = null.StringFrom("DOWN")

			convey.Convey("Then the buffer is unaffected", func() {
				convey.So(b.Points()[0].Availability.String, convey.ShouldEqual, "UP")
			})
		})

		convey.Convey("When equal points are appended", func() {
			b.Append(point(3))
			b.Append(point(3))

			convey.Convey("Then both are kept", func() {
				convey.So(b.Len(), convey.ShouldEqual, 2)
			})
		})
	})
}

func TestNew_capacity(t *testing.T) {
	tests := []struct {
		Name     string
		Input    int
		Capacity int
	}{
		{"default", history.DefaultCapacity, 60},
		{"small", 3, 3},
		{"zero", 0, 60},
		{"negative", -1, 60},
	}

	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			b := history.New(tt.Input)
			if b.Capacity() != tt.Capacity {
				t.Fatalf("expected capacity %d but got %d", tt.Capacity, b.Capacity())
			}

			for i := 0; i < tt.Capacity*2; i++ {
				b.Append(point(i))
			}
			if diff := cmp.Diff(points(tt.Capacity, tt.Capacity*2), b.Points()); diff != "" {
				t.Errorf("unexpected points\n%s", diff)
			}
		})
	}
}

func TestBuffer_Record(t *testing.T) {
	b := history.New(2)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		p := point(i)
		if err := b.Record(ctx, p.MetricsSnapshot, p.CapturedAt); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if diff := cmp.Diff(points(1, 3), b.Points()); diff != "" {
		t.Errorf("unexpected points\n%s", diff)
	}
}

func TestBuffer_concurrent(t *testing.T) {
	b := history.New(history.DefaultCapacity)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				b.Append(point(i))
				_ = b.Points()
			}
		}()
	}
	wg.Wait()

	if b.Len() != history.DefaultCapacity {
		t.Errorf("expected %d points but got %d", history.DefaultCapacity, b.Len())
	}
}
