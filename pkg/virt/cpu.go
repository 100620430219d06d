package virt

import (
	"math"
	"sync"
	"time"
)

const samplesPerMinute = 60

// CPUUtilization 客户机 CPU 利用率的滚动窗口
//
// 每次采样计算 (cpu - system - user) 的增量占墙钟时间与 CPU 数的百分比，
// 结果不在 [0, 100] 内时记为 0。历史按从新到旧排列，容量满时淘汰最旧的样本。
type CPUUtilization struct {
	mu       sync.RWMutex
	capacity int
	cpuCount int
	samples  []float64

	hasBaseline bool
	lastBusy    float64
	lastAt      time.Time
}

// NewCPUUtilization 创建滚动窗口，capacity 最小为 2，cpuCount 最小为 1
func NewCPUUtilization(cpuCount, capacity int) *CPUUtilization {
	if capacity < MinMetricsHistory {
		capacity = MinMetricsHistory
	}
	if cpuCount < 1 {
		cpuCount = 1
	}
	u := &CPUUtilization{
		capacity: capacity,
		cpuCount: cpuCount,
	}
	u.samples = make([]float64, 1, capacity)
	return u
}

// Update 记录一次采样
func (u *CPUUtilization) Update(stats CPUStats, now time.Time) {
	busy := (float64(stats.CPUTime) - float64(stats.SystemTime) - float64(stats.UserTime)) / 1e9

	u.mu.Lock()
	defer u.mu.Unlock()

	pct := 0.0
	if u.hasBaseline {
		wall := now.Sub(u.lastAt).Seconds()
		if wall > 0 {
			pct = 100 * (busy - u.lastBusy) / wall / float64(u.cpuCount)
		}
	}
	if math.IsNaN(pct) || math.IsInf(pct, 0) || pct < 0 || pct > 100 {
		pct = 0
	}

	if len(u.samples) == u.capacity {
		u.samples = u.samples[:u.capacity-1]
	}
	u.samples = append(u.samples, 0)
	copy(u.samples[1:], u.samples[:len(u.samples)-1])
	u.samples[0] = pct

	u.lastBusy = busy
	u.lastAt = now
	u.hasBaseline = true
}

// LastSecond 最近一次采样的利用率
func (u *CPUUtilization) LastSecond() float64 {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.samples[0]
}

// LastMinute 最近 60 个采样的平均值
func (u *CPUUtilization) LastMinute() float64 {
	u.mu.RLock()
	defer u.mu.RUnlock()
	n := len(u.samples)
	if n > samplesPerMinute {
		n = samplesPerMinute
	}
	sum := 0.0
	for _, v := range u.samples[:n] {
		sum += v
	}
	return sum / float64(n)
}

// History 全部采样，从新到旧
func (u *CPUUtilization) History() []float64 {
	u.mu.RLock()
	defer u.mu.RUnlock()
	out := make([]float64, len(u.samples))
	copy(out, u.samples)
	return out
}

// Capacity 历史容量
func (u *CPUUtilization) Capacity() int {
	return u.capacity
}

// CPUCount 当前用于归一化的 CPU 数
func (u *CPUUtilization) CPUCount() int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.cpuCount
}

// SetCPUCount 更新 CPU 数，小于 1 时按 1 处理
func (u *CPUUtilization) SetCPUCount(n int) {
	if n < 1 {
		n = 1
	}
	u.mu.Lock()
	u.cpuCount = n
	u.mu.Unlock()
}

// Reset 清空历史与基线
func (u *CPUUtilization) Reset() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.samples = u.samples[:1]
	u.samples[0] = 0
	u.hasBaseline = false
	u.lastBusy = 0
	u.lastAt = time.Time{}
}
