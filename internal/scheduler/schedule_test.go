package scheduler

import (
	"testing"
	"time"
)

func TestEvery(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	if next := Every(time.Hour).Next(now); !next.Equal(now.Add(time.Hour)) {
		t.Errorf("Every(1h).Next = %v", next)
	}
}

func TestDaily(t *testing.T) {
	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		hour, minute int
		want         time.Time
	}{
		{14, 30, time.Date(2025, 1, 1, 14, 30, 0, 0, time.UTC)},
		{8, 0, time.Date(2025, 1, 2, 8, 0, 0, 0, time.UTC)},
		// Exactly now rolls over to tomorrow.
		{10, 0, time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		if got := Daily(tt.hour, tt.minute).Next(now); !got.Equal(tt.want) {
			t.Errorf("Daily(%d, %d).Next = %v, want %v", tt.hour, tt.minute, got, tt.want)
		}
	}
}
