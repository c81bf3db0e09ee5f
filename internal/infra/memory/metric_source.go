package memory

import (
	"context"
	"sync"
)

// MetricSource serves metrics from a fixed map; handy for tests and demos.
type MetricSource struct {
	mu      sync.RWMutex
	metrics map[string]map[string]float64
}

func NewMetricSource() *MetricSource {
	return &MetricSource{metrics: make(map[string]map[string]float64)}
}

// Set records a metric value for a user.
func (m *MetricSource) Set(userID, name string, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.metrics[userID] == nil {
		m.metrics[userID] = make(map[string]float64)
	}
	m.metrics[userID][name] = value
}

func (m *MetricSource) Metrics(_ context.Context, userID string) (map[string]float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]float64, len(m.metrics[userID]))
	for k, v := range m.metrics[userID] {
		out[k] = v
	}
	return out, nil
}
