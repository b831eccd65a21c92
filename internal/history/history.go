// Package history keeps the rolling window of metric snapshots that drives
// the dashboard charts.
package history

import (
	"context"
	"sync"
	"time"

	"github.com/openlearnnitj/openlearn-dashboard/internal/models"
)

// DefaultCapacity is the number of points kept when no capacity is configured.
const DefaultCapacity = 60

// Buffer is a fixed-capacity sequence of HistoryPoint.
// The oldest points are evicted first once the capacity is exceeded.
type Buffer struct {
	mu       sync.RWMutex
	capacity int
	points   []models.HistoryPoint
}

// New creates an empty Buffer. A non-positive capacity means DefaultCapacity.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		capacity: capacity,
		points:   make([]models.HistoryPoint, 0, capacity),
	}
}

// Append adds p at the end and returns a copy of the sequence after eviction.
func (b *Buffer) Append(p models.HistoryPoint) []models.HistoryPoint {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.points = append(b.points, p)
	if over := len(b.points) - b.capacity; over > 0 {
		b.points = b.points[over:]
	}

	return b.copyLocked()
}

// Record implements poller.Recorder.
func (b *Buffer) Record(_ context.Context, s models.MetricsSnapshot, capturedAt time.Time) error {
	b.Append(models.HistoryPoint{
		MetricsSnapshot: s,
		CapturedAt:      capturedAt,
	})
	return nil
}

// Points returns a copy of the sequence, oldest first.
func (b *Buffer) Points() []models.HistoryPoint {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.copyLocked()
}

// Latest returns the newest point.
func (b *Buffer) Latest() (models.HistoryPoint, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.points) == 0 {
		return models.HistoryPoint{}, false
	}
	return b.points[len(b.points)-1], true
}

func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.points)
}

func (b *Buffer) Capacity() int {
	return b.capacity
}

func (b *Buffer) copyLocked() []models.HistoryPoint {
	ps := make([]models.HistoryPoint, len(b.points))
	copy(ps, b.points)
	return ps
}
