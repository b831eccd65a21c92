package status

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/openlearnnitj/openlearn-dashboard/internal/models"
)

const (
	// DefaultHistoryDays is the length of the per-day status history
	DefaultHistoryDays = 90

	// StatusNoData marks a day without archived snapshots
	StatusNoData = "NO_DATA"

	// StatusUnknown is used for a snapshot that did not report availability
	StatusUnknown = "UNKNOWN"
)

// StatusService derives uptime reports from the snapshot archive
type StatusService struct {
	client    dynamodb.QueryAPIClient
	tableName string
	days      int
	now       func() time.Time
}

// NewStatusService creates a new status service. A non-positive days means DefaultHistoryDays.
func NewStatusService(client dynamodb.QueryAPIClient, tableName string, days int) *StatusService {
	if days <= 0 {
		days = DefaultHistoryDays
	}

	return &StatusService{
		client:    client,
		tableName: tableName,
		days:      days,
		now:       time.Now,
	}
}

// WithClock replaces the clock used to place the reporting windows
func (s *StatusService) WithClock(now func() time.Time) *StatusService {
	s.now = now
	return s
}

// GetUptime builds the uptime report of one endpoint
func (s *StatusService) GetUptime(ctx context.Context, endpoint string) (*models.UptimeReport, error) {
	now := s.now().UTC()

	points, err := s.query(ctx, endpoint, now.AddDate(0, 0, -s.days))
	if err != nil {
		return nil, err
	}

	report := &models.UptimeReport{
		Endpoint:      endpoint,
		Samples:       len(points),
		UptimeStats:   calculateUptime(points, now),
		StatusHistory: generateStatusHistory(points, now, s.days),
	}

	if len(points) > 0 {
		latest := points[len(points)-1]
		report.Availability = latest.Availability.ValueOrZero()
		report.LastChecked = latest.CapturedAt
	}

	return report, nil
}

// query returns the points captured since the cutoff, oldest first
func (s *StatusService) query(ctx context.Context, endpoint string, since time.Time) ([]models.HistoryPoint, error) {
	paginator := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("#endpoint = :endpoint AND #capturedAt >= :since"),
		ExpressionAttributeNames: map[string]string{
			"#endpoint":   "endpoint",
			"#capturedAt": "capturedAt",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":endpoint": &types.AttributeValueMemberS{Value: endpoint},
			":since":    &types.AttributeValueMemberS{Value: since.Format(models.ArchiveTimeFormat)},
		},
		ScanIndexForward: aws.Bool(true),
	})

	var points []models.HistoryPoint
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to query DynamoDB: %w", err)
		}

		var items []models.ArchiveItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("failed to unmarshal snapshots: %w", err)
		}

		for _, item := range items {
			p, err := item.HistoryPoint()
			if err != nil {
				// Skip items written with a foreign timestamp format.
				continue
			}
			points = append(points, p)
		}
	}

	return points, nil
}

// calculateUptime calculates uptime percentage for different time periods
func calculateUptime(points []models.HistoryPoint, now time.Time) models.UptimeStats {
	uptime := func(d time.Duration) float64 {
		cutoff := now.Add(-d)
		total, up := 0, 0

		for _, p := range points {
			if p.CapturedAt.Before(cutoff) {
				continue
			}
			total++
			if p.IsUp() {
				up++
			}
		}

		if total == 0 {
			return 100.0 // Assume available if no data
		}
		return float64(up) / float64(total) * 100
	}

	return models.UptimeStats{
		Last24Hours: uptime(24 * time.Hour),
		Last7Days:   uptime(7 * 24 * time.Hour),
		Last30Days:  uptime(30 * 24 * time.Hour),
	}
}

// generateStatusHistory reports the worst status of each of the last days, oldest first
func generateStatusHistory(points []models.HistoryPoint, now time.Time, days int) []models.StatusPoint {
	dayMap := make(map[string][]models.HistoryPoint)
	for _, p := range points {
		dayKey := p.CapturedAt.UTC().Format(time.DateOnly)
		dayMap[dayKey] = append(dayMap[dayKey], p)
	}

	today := now.Truncate(24 * time.Hour)
	history := make([]models.StatusPoint, 0, days)

	for d := days - 1; d >= 0; d-- {
		day := today.AddDate(0, 0, -d)

		status := StatusNoData
		if dayPoints, exists := dayMap[day.Format(time.DateOnly)]; exists {
			status = models.AvailabilityUp
			for _, p := range dayPoints {
				if !p.IsUp() {
					status = p.Availability.ValueOrZero()
					if status == "" {
						status = StatusUnknown
					}
					break
				}
			}
		}

		history = append(history, models.StatusPoint{Day: day, Status: status})
	}

	return history
}
