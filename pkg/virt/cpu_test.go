package virt

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCPUUtilization_Update(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	testcases := []struct {
		name     string
		cpuCount int
		first    CPUStats
		second   CPUStats
		wall     time.Duration
		want     float64
	}{
		{
			name:     "half a second busy on two cpus",
			cpuCount: 2,
			second:   CPUStats{CPUTime: 500_000_000},
			wall:     time.Second,
			want:     25,
		},
		{
			name:     "system and user time are excluded",
			cpuCount: 1,
			second:   CPUStats{CPUTime: 900_000_000, SystemTime: 200_000_000, UserTime: 200_000_000},
			wall:     time.Second,
			want:     50,
		},
		{
			name:     "above one hundred is clamped to zero",
			cpuCount: 1,
			second:   CPUStats{CPUTime: 3_000_000_000},
			wall:     time.Second,
			want:     0,
		},
		{
			name:     "counter reset is clamped to zero",
			cpuCount: 1,
			first:    CPUStats{CPUTime: 5_000_000_000},
			second:   CPUStats{CPUTime: 1_000_000_000},
			wall:     time.Second,
			want:     0,
		},
		{
			name:     "non positive wall delta records zero",
			cpuCount: 1,
			second:   CPUStats{CPUTime: 100_000_000},
			wall:     0,
			want:     0,
		},
	}

	for _, tc := range testcases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			u := NewCPUUtilization(tc.cpuCount, 10)
			u.Update(tc.first, base)
			assert.Equal(t, 0.0, u.LastSecond())

			u.Update(tc.second, base.Add(tc.wall))
			got := u.LastSecond()
			assert.False(t, math.IsNaN(got))
			assert.InDelta(t, tc.want, got, 1e-9)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 100.0)
		})
	}
}

func TestCPUUtilization_HistoryBound(t *testing.T) {
	t.Parallel()

	u := NewCPUUtilization(1, 5)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var busy uint64
	for i := 0; i < 20; i++ {
		busy += uint64(i%10) * 10_000_000
		now = now.Add(time.Second)
		u.Update(CPUStats{CPUTime: busy}, now)
		assert.LessOrEqual(t, len(u.History()), 5)
	}

	h := u.History()
	assert.Len(t, h, 5)
	// 最新的样本在前
	assert.InDelta(t, 9.0, h[0], 1e-9)
	assert.InDelta(t, 8.0, h[1], 1e-9)
}

func TestCPUUtilization_LastMinute(t *testing.T) {
	t.Parallel()

	u := NewCPUUtilization(1, 300)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var busy uint64
	u.Update(CPUStats{}, now)

	// 先 60 秒 10%，再 60 秒 50%
	for i := 0; i < 120; i++ {
		pct := uint64(10)
		if i >= 60 {
			pct = 50
		}
		busy += pct * 10_000_000
		now = now.Add(time.Second)
		u.Update(CPUStats{CPUTime: busy}, now)
	}

	assert.InDelta(t, 50.0, u.LastSecond(), 1e-6)
	assert.InDelta(t, 50.0, u.LastMinute(), 1e-6)
	assert.Len(t, u.History(), 122)
}

func TestCPUUtilization_ResetAndCPUCount(t *testing.T) {
	t.Parallel()

	u := NewCPUUtilization(0, 1)
	assert.Equal(t, MinMetricsHistory, u.Capacity())
	assert.Equal(t, 1, u.CPUCount())

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	u.Update(CPUStats{}, now)
	u.Update(CPUStats{CPUTime: 400_000_000}, now.Add(time.Second))
	assert.InDelta(t, 40.0, u.LastSecond(), 1e-9)

	u.SetCPUCount(4)
	assert.Equal(t, 4, u.CPUCount())
	u.SetCPUCount(-1)
	assert.Equal(t, 1, u.CPUCount())

	u.Reset()
	assert.Equal(t, []float64{0}, u.History())
	// 重置后第一次采样只建立基线
	u.Update(CPUStats{CPUTime: 900_000_000}, now.Add(2*time.Second))
	assert.Equal(t, 0.0, u.LastSecond())
}
