package models

import (
	"time"

	"github.com/guregu/null/v5"
)

// MetricsResponse represents the metrics object returned by the monitoring endpoint
type MetricsResponse struct {
	Availability           null.String `json:"Availability"`
	StatusCode             null.Int    `json:"StatusCode"`
	DBQueryExecutionTime   null.Float  `json:"DBQueryExecutionTime"`
	ThrottleOperationCount null.Int    `json:"ThrottleOperationCount"`
	LambdaAvgExecutionTime null.Float  `json:"LambdaAvgExecutionTime"`
}

// Snapshot maps the upstream field names onto a MetricsSnapshot
func (r MetricsResponse) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Availability:           r.Availability,
		StatusCode:             r.StatusCode,
		DBQueryExecutionTime:   r.DBQueryExecutionTime,
		ThrottleOperationCount: r.ThrottleOperationCount,
		LambdaAvgExecutionTime: r.LambdaAvgExecutionTime,
	}
}

// MetricsSnapshot is one decoded reading of the monitoring endpoint.
// Every field is nullable because the endpoint may omit any of them.
type MetricsSnapshot struct {
	Availability           null.String `json:"availability"`
	StatusCode             null.Int    `json:"statusCode"`
	DBQueryExecutionTime   null.Float  `json:"dbQueryExecutionTime"`
	ThrottleOperationCount null.Int    `json:"throttleOperationCount"`
	LambdaAvgExecutionTime null.Float  `json:"lambdaAvgExecutionTime"`
}

// IsUp reports whether the snapshot says the service is available
func (s MetricsSnapshot) IsUp() bool {
	return s.Availability.Valid && s.Availability.String == AvailabilityUp
}

// AvailabilityUp is the availability value reported by a healthy service
const AvailabilityUp = "UP"

// HistoryPoint is a snapshot tagged with the time it was captured
type HistoryPoint struct {
	MetricsSnapshot
	CapturedAt time.Time `json:"capturedAt"`
}

// SentimentResponse represents the JSON object returned by the feedback summary endpoint
type SentimentResponse struct {
	Positive null.Int `json:"Positive"`
	Negative null.Int `json:"Negative"`
	Neutral  null.Int `json:"Neutral"`
}

// Sentiment returns the counts with absent values defaulted to zero
func (r SentimentResponse) Sentiment() Sentiment {
	return Sentiment{
		Positive: r.Positive.ValueOrZero(),
		Negative: r.Negative.ValueOrZero(),
		Neutral:  r.Neutral.ValueOrZero(),
	}
}

// Sentiment holds the aggregated customer feedback counts
type Sentiment struct {
	Positive int64 `json:"positive"`
	Negative int64 `json:"negative"`
	Neutral  int64 `json:"neutral"`
}

// Total returns the number of feedback entries
func (s Sentiment) Total() int64 {
	return s.Positive + s.Negative + s.Neutral
}

// FetchResult represents the raw outcome of a successful HTTP fetch
type FetchResult struct {
	Body       []byte
	StatusCode int
	Latency    time.Duration
	FetchedAt  time.Time
}

// ArchiveTimeFormat keeps capturedAt fixed width so sort key order matches time order
const ArchiveTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// ArchiveItem represents a snapshot stored in DynamoDB
type ArchiveItem struct {
	Endpoint               string   `dynamodbav:"endpoint"`
	CapturedAt             string   `dynamodbav:"capturedAt"`
	Availability           *string  `dynamodbav:"availability,omitempty"`
	StatusCode             *int64   `dynamodbav:"statusCode,omitempty"`
	DBQueryExecutionTime   *float64 `dynamodbav:"dbQueryExecutionTime,omitempty"`
	ThrottleOperationCount *int64   `dynamodbav:"throttleOperationCount,omitempty"`
	LambdaAvgExecutionTime *float64 `dynamodbav:"lambdaAvgExecutionTime,omitempty"`
	ExpiresAt              int64    `dynamodbav:"expiresAt"`
}

// NewArchiveItem converts a captured snapshot into its DynamoDB form
func NewArchiveItem(endpoint string, p HistoryPoint, expiresAt time.Time) ArchiveItem {
	return ArchiveItem{
		Endpoint:               endpoint,
		CapturedAt:             p.CapturedAt.UTC().Format(ArchiveTimeFormat),
		Availability:           p.Availability.Ptr(),
		StatusCode:             p.StatusCode.Ptr(),
		DBQueryExecutionTime:   p.DBQueryExecutionTime.Ptr(),
		ThrottleOperationCount: p.ThrottleOperationCount.Ptr(),
		LambdaAvgExecutionTime: p.LambdaAvgExecutionTime.Ptr(),
		ExpiresAt:              expiresAt.Unix(),
	}
}

// HistoryPoint converts an archived item back into a HistoryPoint
func (i ArchiveItem) HistoryPoint() (HistoryPoint, error) {
	capturedAt, err := time.Parse(ArchiveTimeFormat, i.CapturedAt)
	if err != nil {
		return HistoryPoint{}, err
	}

	return HistoryPoint{
		MetricsSnapshot: MetricsSnapshot{
			Availability:           null.StringFromPtr(i.Availability),
			StatusCode:             null.IntFromPtr(i.StatusCode),
			DBQueryExecutionTime:   null.FloatFromPtr(i.DBQueryExecutionTime),
			ThrottleOperationCount: null.IntFromPtr(i.ThrottleOperationCount),
			LambdaAvgExecutionTime: null.FloatFromPtr(i.LambdaAvgExecutionTime),
		},
		CapturedAt: capturedAt,
	}, nil
}

// UptimeReport represents the availability of the monitored service derived from the archive
type UptimeReport struct {
	Endpoint      string        `json:"endpoint"`
	Availability  string        `json:"availability"`
	LastChecked   time.Time     `json:"lastChecked"`
	Samples       int           `json:"samples"`
	UptimeStats   UptimeStats   `json:"uptimeStats"`
	StatusHistory []StatusPoint `json:"statusHistory"`
}

// UptimeStats represents uptime statistics
type UptimeStats struct {
	Last24Hours float64 `json:"last24Hours"`
	Last7Days   float64 `json:"last7Days"`
	Last30Days  float64 `json:"last30Days"`
}

// StatusPoint represents the worst status seen on one day
type StatusPoint struct {
	Day    time.Time `json:"day"`
	Status string    `json:"status"`
}
