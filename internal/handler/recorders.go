package handler

import (
	"context"
	"time"

	"github.com/guregu/null/v5"

	"github.com/openlearnnitj/openlearn-dashboard/internal/history"
	"github.com/openlearnnitj/openlearn-dashboard/internal/models"
	"github.com/openlearnnitj/openlearn-dashboard/internal/poller"
	"github.com/openlearnnitj/openlearn-dashboard/pkg/metrics"
)

// Snapshot fields exported as the "field" label of the snapshot gauge.
const (
	FieldStatusCode             = "status_code"
	FieldDBQueryExecutionTime   = "db_query_execution_time_ms"
	FieldThrottleOperationCount = "throttle_operation_count"
	FieldLambdaAvgExecutionTime = "lambda_avg_execution_time_ms"
)

// HistoryRecorder appends to buf and publishes its length.
func HistoryRecorder(buf *history.Buffer, m *metrics.Manager) poller.Recorder[models.MetricsSnapshot] {
	return poller.RecorderFunc[models.MetricsSnapshot](func(ctx context.Context, s models.MetricsSnapshot, at time.Time) error {
		if err := buf.Record(ctx, s, at); err != nil {
			return err
		}
		m.SetHistoryPoints(buf.Len())
		return nil
	})
}

// SnapshotGauges publishes the latest snapshot as gauges. Absent fields are removed.
func SnapshotGauges(m *metrics.Manager) poller.Recorder[models.MetricsSnapshot] {
	return poller.RecorderFunc[models.MetricsSnapshot](func(_ context.Context, s models.MetricsSnapshot, _ time.Time) error {
		m.SetAvailability(s.IsUp())

		setInt(m, FieldStatusCode, s.StatusCode)
		setFloat(m, FieldDBQueryExecutionTime, s.DBQueryExecutionTime)
		setInt(m, FieldThrottleOperationCount, s.ThrottleOperationCount)
		setFloat(m, FieldLambdaAvgExecutionTime, s.LambdaAvgExecutionTime)
		return nil
	})
}

// SentimentGauges publishes the latest sentiment counts.
func SentimentGauges(m *metrics.Manager) poller.Recorder[models.Sentiment] {
	return poller.RecorderFunc[models.Sentiment](func(_ context.Context, s models.Sentiment, _ time.Time) error {
		m.SetSentiment("positive", s.Positive)
		m.SetSentiment("negative", s.Negative)
		m.SetSentiment("neutral", s.Neutral)
		return nil
	})
}

func setInt(m *metrics.Manager, field string, v null.Int) {
	if !v.Valid {
		m.ClearSnapshotValue(field)
		return
	}
	m.SetSnapshotValue(field, float64(v.Int64))
}

func setFloat(m *metrics.Manager, field string, v null.Float) {
	if !v.Valid {
		m.ClearSnapshotValue(field)
		return
	}
	m.SetSnapshotValue(field, v.Float64)
}
