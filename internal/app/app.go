// Package app wires the pollers, history, archive and metrics from a Config.
package app

import (
	"context"

	"github.com/openlearnnitj/openlearn-dashboard/internal/config"
	"github.com/openlearnnitj/openlearn-dashboard/internal/envelope"
	"github.com/openlearnnitj/openlearn-dashboard/internal/handler"
	"github.com/openlearnnitj/openlearn-dashboard/internal/history"
	"github.com/openlearnnitj/openlearn-dashboard/internal/models"
	"github.com/openlearnnitj/openlearn-dashboard/internal/monitoring"
	"github.com/openlearnnitj/openlearn-dashboard/internal/poller"
	"github.com/openlearnnitj/openlearn-dashboard/internal/status"
	"github.com/openlearnnitj/openlearn-dashboard/internal/storage"
	"github.com/openlearnnitj/openlearn-dashboard/pkg/logger"
	"github.com/openlearnnitj/openlearn-dashboard/pkg/metrics"
)

// Endpoint names used in logs, metric labels and archive keys.
const (
	EndpointMetrics   = "metrics"
	EndpointSentiment = "sentiment"
)

// App holds the wired components.
type App struct {
	Handler *handler.Handler
	History *history.Buffer
	Metrics *metrics.Manager

	// Uptime is nil unless the archive is enabled.
	Uptime *status.StatusService
}

// Option applies a configuration option to New.
type Option func(*options)

type options struct {
	logger  logger.Logger
	metrics *metrics.Manager
}

// WithLogger sets the logger every component derives its named logger from.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetrics sets the metrics manager. A new one is created otherwise.
func WithMetrics(m *metrics.Manager) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// New builds the components described by cfg. The DynamoDB client is only
// created when the archive is enabled.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	o := options{logger: logger.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.Nop()
	}
	if o.metrics == nil {
		o.metrics = metrics.NewManager()
	}

	a := &App{
		History: history.New(cfg.HistorySize),
		Metrics: o.metrics,
	}

	metricsOpts := []poller.Option[models.MetricsSnapshot]{
		poller.WithLogger[models.MetricsSnapshot](o.logger.Named("poller")),
		poller.WithMetrics[models.MetricsSnapshot](o.metrics),
		poller.WithRecorder(handler.HistoryRecorder(a.History, o.metrics)),
		poller.WithRecorder(handler.SnapshotGauges(o.metrics)),
	}

	if cfg.ArchiveEnabled() {
		client, err := storage.NewDynamoDBClient(ctx, cfg.AWSRegion)
		if err != nil {
			return nil, err
		}

		archive := storage.NewArchive(client, cfg.DynamoDBTableName, EndpointMetrics, cfg.ArchiveRetention)
		metricsOpts = append(metricsOpts, poller.WithRecorder[models.MetricsSnapshot](archive))
		a.Uptime = status.NewStatusService(client, cfg.DynamoDBTableName, 0)

		o.logger.Info(ctx, "archiving snapshots to DynamoDB",
			logger.String("table", cfg.DynamoDBTableName), logger.String("region", cfg.AWSRegion))
	}

	metricsPoller := poller.New(EndpointMetrics,
		monitoring.NewService(cfg.MetricsAPIURL, cfg.RequestTimeout),
		envelope.Decode,
		metricsOpts...,
	)

	var sentimentPoller *poller.Poller[models.Sentiment]
	if cfg.SentimentEnabled() {
		sentimentPoller = poller.New(EndpointSentiment,
			monitoring.NewService(cfg.FeedbackAPIURL, cfg.RequestTimeout),
			envelope.DecodeSentiment,
			poller.WithLogger[models.Sentiment](o.logger.Named("poller")),
			poller.WithMetrics[models.Sentiment](o.metrics),
			poller.WithRecorder(handler.SentimentGauges(o.metrics)),
		)
	}

	a.Handler = handler.NewHandler(metricsPoller, sentimentPoller, o.logger.Named("handler"))

	return a, nil
}
