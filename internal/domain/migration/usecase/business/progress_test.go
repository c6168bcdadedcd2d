package business

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0:00:00"},
		{59 * time.Second, "0:00:59"},
		{61 * time.Second, "0:01:01"},
		{3661 * time.Second, "1:01:01"},
		{26*time.Hour + 5*time.Second, "26:00:05"},
		{1500 * time.Millisecond, "0:00:02"},
		{-time.Second, "0:00:00"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDuration(tt.in))
		})
	}
}

func TestEstimateRemaining(t *testing.T) {
	assert.Equal(t, "unknown", EstimateRemaining(time.Minute, 0, 100))
	assert.Equal(t, "unknown", EstimateRemaining(0, 10, 100))
	assert.Equal(t, "unknown", EstimateRemaining(time.Minute, 10, 0))
	assert.Equal(t, "0:00:00", EstimateRemaining(time.Minute, 100, 100))
	assert.Equal(t, "0:09:00", EstimateRemaining(time.Minute, 10, 100))
}
