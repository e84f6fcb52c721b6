package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// RecognitionMetric is the outcome of one pipeline run
type RecognitionMetric struct {
	RequestID uint64        `json:"request_id"`
	FileType  string        `json:"file_type"`
	Duration  time.Duration `json:"duration_ns"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// MetricsCollector keeps recognition outcomes in memory
type MetricsCollector struct {
	metrics []RecognitionMetric
	mutex   sync.RWMutex
}

// NewMetricsCollector creates an empty collector
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		metrics: make([]RecognitionMetric, 0),
	}
}

// Attach subscribes the collector to completion and failure events
func (m *MetricsCollector) Attach(bus *EventBus) (*Subscription, error) {
	return bus.Subscribe(
		[]EventType{EventRecognitionCompleted, EventRecognitionFailed},
		m.handleEvent,
		64,
	)
}

func (m *MetricsCollector) handleEvent(ctx context.Context, event *Event) error {
	metric := RecognitionMetric{
		RequestID: event.RequestID,
		FileType:  event.FileType,
		Duration:  event.Duration,
		Success:   event.Type == EventRecognitionCompleted,
		Error:     event.Error,
	}
	m.RecordMetric(metric)
	return nil
}

// RecordMetric records a recognition metric
func (m *MetricsCollector) RecordMetric(metric RecognitionMetric) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.metrics = append(m.metrics, metric)

	log.Debug().
		Uint64("request_id", metric.RequestID).
		Str("file_type", metric.FileType).
		Dur("duration", metric.Duration).
		Bool("success", metric.Success).
		Msg("Recognition metric recorded")
}

// GetMetrics returns a copy of all collected metrics
func (m *MetricsCollector) GetMetrics() []RecognitionMetric {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	result := make([]RecognitionMetric, len(m.metrics))
	copy(result, m.metrics)
	return result
}

// OperationStats holds aggregate statistics
type OperationStats struct {
	Count         int   `json:"count"`
	SuccessCount  int   `json:"success_count"`
	FailureCount  int   `json:"failure_count"`
	TotalDuration int64 `json:"total_duration_ns"`
	MinDuration   int64 `json:"min_duration_ns"`
	MaxDuration   int64 `json:"max_duration_ns"`
	AvgDuration   int64 `json:"avg_duration_ns"`
}

// Summary returns overall statistics
func (m *MetricsCollector) Summary() OperationStats {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var stats OperationStats
	for _, metric := range m.metrics {
		d := int64(metric.Duration)
		stats.Count++
		stats.TotalDuration += d
		if metric.Success {
			stats.SuccessCount++
		} else {
			stats.FailureCount++
		}
		if stats.Count == 1 || d < stats.MinDuration {
			stats.MinDuration = d
		}
		if d > stats.MaxDuration {
			stats.MaxDuration = d
		}
	}
	if stats.Count > 0 {
		stats.AvgDuration = stats.TotalDuration / int64(stats.Count)
	}
	return stats
}

// ClearMetrics clears all collected metrics
func (m *MetricsCollector) ClearMetrics() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.metrics = make([]RecognitionMetric, 0)
}

// GetSuccessRate returns the success rate as a percentage
func (o OperationStats) GetSuccessRate() float64 {
	if o.Count == 0 {
		return 0.0
	}
	return float64(o.SuccessCount) / float64(o.Count) * 100.0
}

// GetAvgDurationMs returns the average duration in milliseconds
func (o OperationStats) GetAvgDurationMs() float64 {
	return float64(o.AvgDuration) / float64(time.Millisecond)
}
