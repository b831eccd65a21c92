package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/openlearnnitj/openlearn-dashboard/internal/models"
)

// DefaultRetention is how long an archived snapshot lives before DynamoDB expires it
const DefaultRetention = 30 * 24 * time.Hour

// NewDynamoDBClient creates a new DynamoDB client
func NewDynamoDBClient(ctx context.Context, region string) (*dynamodb.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return dynamodb.NewFromConfig(cfg), nil
}

// PutItemAPI is the part of the DynamoDB client used by Archive
type PutItemAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Archive stores metric snapshots of one endpoint in DynamoDB.
// The table is keyed by endpoint (partition) and capturedAt (sort).
type Archive struct {
	client    PutItemAPI
	tableName string
	endpoint  string
	retention time.Duration
}

// NewArchive creates a new archive. A non-positive retention means DefaultRetention.
func NewArchive(client PutItemAPI, tableName, endpoint string, retention time.Duration) *Archive {
	if retention <= 0 {
		retention = DefaultRetention
	}

	return &Archive{
		client:    client,
		tableName: tableName,
		endpoint:  endpoint,
		retention: retention,
	}
}

// Record stores one snapshot. It satisfies the poller recorder interface.
func (a *Archive) Record(ctx context.Context, snapshot models.MetricsSnapshot, capturedAt time.Time) error {
	point := models.HistoryPoint{MetricsSnapshot: snapshot, CapturedAt: capturedAt}
	return a.Store(ctx, point)
}

// Store writes a single history point
func (a *Archive) Store(ctx context.Context, point models.HistoryPoint) error {
	item := models.NewArchiveItem(a.endpoint, point, point.CapturedAt.Add(a.retention))

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	_, err = a.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(a.tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("failed to store snapshot for %s: %w", a.endpoint, err)
	}

	return nil
}
