package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/goccy/go-json"

	"github.com/openlearnnitj/openlearn-dashboard/internal/app"
	"github.com/openlearnnitj/openlearn-dashboard/internal/config"
	"github.com/openlearnnitj/openlearn-dashboard/internal/models"
	"github.com/openlearnnitj/openlearn-dashboard/internal/poller"
	"github.com/openlearnnitj/openlearn-dashboard/pkg/logger"
)

var (
	log logger.Logger
	a   *app.App
)

// for cold start
func init() {
	log = logger.New(os.Stdout, false)

	ctx := context.Background()
	cfg, err := config.Load(ctx)
	if err != nil {
		panic(fmt.Errorf("failed to load config: %w", err))
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level", logger.String("log_level", cfg.LogLevel))
	}

	a, err = app.New(ctx, cfg, app.WithLogger(log))
	if err != nil {
		panic(fmt.Errorf("failed to initialize: %w", err))
	}
	log.Info(ctx, "snapshot lambda: cold start")
}

// handleRequest polls every endpoint once. The metrics snapshot is archived by
// the poller's recorders when the table is configured.
func handleRequest(ctx context.Context) (events.APIGatewayProxyResponse, error) {
	status := http.StatusOK
	result := map[string]any{}

	if err := a.Handler.Handle(ctx); err != nil {
		log.Warn(ctx, "poll failed", logger.Error(err))
		result["error"] = err.Error()
	}

	switch st := a.Handler.Metrics().State().(type) {
	case poller.Ready[models.MetricsSnapshot]:
		result["metrics"] = st.Value
	default:
		status = http.StatusBadGateway
	}
	if sp := a.Handler.Sentiment(); sp != nil {
		if sentiment, ok := sp.LastKnown(); ok {
			result["sentiment"] = sentiment
		}
	}

	body, err := json.Marshal(result)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}

	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}, nil
}

func main() {
	lambda.Start(handleRequest)
}
