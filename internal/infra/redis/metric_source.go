package redis

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// MetricSource reads engagement metrics maintained by other services.
// Each user has a hash: HSET {prefix}{userID} streak_days 4 logins_30d 12
type MetricSource struct {
	client *redis.Client
	prefix string
}

func NewMetricSource(client *redis.Client, prefix string) *MetricSource {
	return &MetricSource{client: client, prefix: prefix}
}

// Metrics returns the parsable numeric fields of the user's hash. Unparsable
// fields are left out, which makes them untracked.
func (m *MetricSource) Metrics(ctx context.Context, userID string) (map[string]float64, error) {
	raw, err := m.client.HGetAll(ctx, m.prefix+userID).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(raw))
	for name, value := range raw {
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			out[name] = v
		}
	}
	return out, nil
}
