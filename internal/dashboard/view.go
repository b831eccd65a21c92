package dashboard

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/guregu/null/v5"

	"github.com/openlearnnitj/openlearn-dashboard/internal/models"
	"github.com/openlearnnitj/openlearn-dashboard/internal/poller"
)

// Tone is the colour class of a card.
type Tone string

const (
	ToneGood    Tone = "good"
	ToneWarn    Tone = "warn"
	ToneBad     Tone = "bad"
	ToneUnknown Tone = "unknown"
)

// AvailabilityTone is good only for "UP".
func AvailabilityTone(v null.String) Tone {
	if !v.Valid {
		return ToneUnknown
	}
	if v.String == models.AvailabilityUp {
		return ToneGood
	}
	return ToneBad
}

// StatusCodeTone is good only for 200.
func StatusCodeTone(v null.Int) Tone {
	if !v.Valid {
		return ToneUnknown
	}
	if v.Int64 == 200 {
		return ToneGood
	}
	return ToneBad
}

// DBQueryTone grades the database query time in milliseconds.
func DBQueryTone(v null.Float) Tone {
	return thresholdTone(v, 150, 300)
}

// LambdaTone grades the average Lambda execution time in milliseconds.
func LambdaTone(v null.Float) Tone {
	return thresholdTone(v, 300, 600)
}

// ThrottleTone is good with no throttled operations and bad from three on.
func ThrottleTone(v null.Int) Tone {
	if !v.Valid {
		return ToneUnknown
	}
	switch {
	case v.Int64 == 0:
		return ToneGood
	case v.Int64 < 3:
		return ToneWarn
	default:
		return ToneBad
	}
}

func thresholdTone(v null.Float, good, warn float64) Tone {
	if !v.Valid {
		return ToneUnknown
	}
	switch {
	case v.Float64 < good:
		return ToneGood
	case v.Float64 < warn:
		return ToneWarn
	default:
		return ToneBad
	}
}

type card struct {
	Title string
	Value string
	Tone  Tone
}

type historyRow struct {
	CapturedAt   time.Time
	Availability string
	StatusCode   string
	DBQuery      string
	Throttle     string
	Lambda       string
	Tone         Tone
}

type sentimentView struct {
	State    poller.Phase
	Error    string
	Positive string
	Negative string
	Neutral  string
	Total    string
}

type page struct {
	Title       string
	Polling     string
	State       poller.Phase
	Error       string
	Stale       bool
	HasData     bool
	LastUpdated time.Time
	Cards       []card
	History     []historyRow
	Sentiment   *sentimentView
}

func newCards(s models.MetricsSnapshot) []card {
	return []card{
		{Title: "Availability", Value: orDash(s.Availability.ValueOrZero(), s.Availability.Valid), Tone: AvailabilityTone(s.Availability)},
		{Title: "Status Code", Value: intString(s.StatusCode), Tone: StatusCodeTone(s.StatusCode)},
		{Title: "DB Query Time", Value: msString(s.DBQueryExecutionTime), Tone: DBQueryTone(s.DBQueryExecutionTime)},
		{Title: "Throttled Operations", Value: intString(s.ThrottleOperationCount), Tone: ThrottleTone(s.ThrottleOperationCount)},
		{Title: "Lambda Avg Time", Value: msString(s.LambdaAvgExecutionTime), Tone: LambdaTone(s.LambdaAvgExecutionTime)},
	}
}

// newHistoryRows lists points newest first.
func newHistoryRows(points []models.HistoryPoint) []historyRow {
	rows := make([]historyRow, 0, len(points))
	for i := len(points) - 1; i >= 0; i-- {
		p := points[i]
		rows = append(rows, historyRow{
			CapturedAt:   p.CapturedAt,
			Availability: orDash(p.Availability.ValueOrZero(), p.Availability.Valid),
			StatusCode:   intString(p.StatusCode),
			DBQuery:      msString(p.DBQueryExecutionTime),
			Throttle:     intString(p.ThrottleOperationCount),
			Lambda:       msString(p.LambdaAvgExecutionTime),
			Tone:         AvailabilityTone(p.Availability),
		})
	}
	return rows
}

func newSentimentView(v poller.View[models.Sentiment]) *sentimentView {
	sv := &sentimentView{State: v.State.Phase()}
	if f, ok := v.State.(poller.Failed); ok {
		sv.Error = f.Message
	}

	// Counts default to zero until the first successful poll.
	s := v.LastKnown
	sv.Positive = humanize.Comma(s.Positive)
	sv.Negative = humanize.Comma(s.Negative)
	sv.Neutral = humanize.Comma(s.Neutral)
	sv.Total = humanize.Comma(s.Total())
	return sv
}

func orDash(s string, ok bool) string {
	if !ok || s == "" {
		return "-"
	}
	return s
}

func intString(v null.Int) string {
	if !v.Valid {
		return "-"
	}
	return humanize.Comma(v.Int64)
}

func msString(v null.Float) string {
	if !v.Valid {
		return "-"
	}
	return fmt.Sprintf("%s ms", humanize.FtoaWithDigits(v.Float64, 2))
}
