package handler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/openlearnnitj/openlearn-dashboard/internal/models"
	"github.com/openlearnnitj/openlearn-dashboard/internal/poller"
	"github.com/openlearnnitj/openlearn-dashboard/pkg/logger"
)

// Handler runs one poll cycle over every configured endpoint
type Handler struct {
	metrics   *poller.Poller[models.MetricsSnapshot]
	sentiment *poller.Poller[models.Sentiment]
	logger    logger.Logger
}

// NewHandler creates a new handler instance. sentiment may be nil.
func NewHandler(metrics *poller.Poller[models.MetricsSnapshot], sentiment *poller.Poller[models.Sentiment], log logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}

	return &Handler{
		metrics:   metrics,
		sentiment: sentiment,
		logger:    log,
	}
}

// Metrics returns the metrics poller
func (h *Handler) Metrics() *poller.Poller[models.MetricsSnapshot] {
	return h.metrics
}

// Sentiment returns the sentiment poller, or nil when sentiment is disabled
func (h *Handler) Sentiment() *poller.Poller[models.Sentiment] {
	return h.sentiment
}

// Handle polls every endpoint concurrently and waits for all of them.
// It returns an error for each endpoint whose poll ended in Failed.
func (h *Handler) Handle(ctx context.Context) error {
	var wg sync.WaitGroup
	var metricsState, sentimentState poller.State

	wg.Add(1)
	go func() {
		defer wg.Done()
		metricsState = h.metrics.Poll(ctx)
	}()

	if h.sentiment != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sentimentState = h.sentiment.Poll(ctx)
		}()
	}

	wg.Wait()

	var errs []error
	if f, ok := metricsState.(poller.Failed); ok {
		errs = append(errs, fmt.Errorf("%s: %w", h.metrics.Name(), f.Err))
	}
	if f, ok := sentimentState.(poller.Failed); ok {
		errs = append(errs, fmt.Errorf("%s: %w", h.sentiment.Name(), f.Err))
	}

	return errors.Join(errs...)
}

// Poll runs Handle and logs its failure. It is the function driven by the scheduler.
func (h *Handler) Poll(ctx context.Context) {
	if err := h.Handle(ctx); err != nil {
		h.logger.Warn(ctx, "poll cycle finished with errors", logger.Error(err))
		return
	}
	h.logger.Debug(ctx, "poll cycle completed")
}
