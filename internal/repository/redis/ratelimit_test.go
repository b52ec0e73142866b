package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hyunwoo-kim/docchat/internal/config"
)

func TestNewRateLimiter_Budget(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.RateLimitConfig
		want int64
	}{
		{"rate plus burst", config.RateLimitConfig{RequestsPerMinute: 60, Burst: 10}, 70},
		{"no burst", config.RateLimitConfig{RequestsPerMinute: 30}, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := NewRateLimiter(nil, tt.cfg)
			assert.Equal(t, tt.want, rl.limit)
		})
	}
}
