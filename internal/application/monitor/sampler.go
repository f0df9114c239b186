package monitor

import (
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// ResourceSampler captures a resource snapshot. The monitor samples once per
// job completion; implementations should be cheap and never block for long.
type ResourceSampler interface {
	Sample() ResourceSnapshot
}

// SystemSampler reads process heap stats from the runtime and host CPU/memory
// usage via gopsutil.
type SystemSampler struct{}

// NewSystemSampler creates a SystemSampler.
func NewSystemSampler() *SystemSampler {
	return &SystemSampler{}
}

// Sample captures the current snapshot. Host probes that fail leave their
// fields at zero rather than failing the snapshot.
func (s *SystemSampler) Sample() ResourceSnapshot {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	snap := ResourceSnapshot{
		HeapAllocBytes: ms.HeapAlloc,
		HeapSysBytes:   ms.HeapSys,
		Goroutines:     runtime.NumGoroutine(),
		TakenAt:        time.Now(),
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		snap.MemoryPercent = vm.UsedPercent
	}
	// Instantaneous reading since the last call; good enough for a
	// per-job-completion sample.
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		snap.CPUPercent = percents[0]
	}

	return snap
}

var _ ResourceSampler = (*SystemSampler)(nil)
