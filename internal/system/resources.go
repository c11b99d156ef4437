package system

import (
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// perJobBytes is a conservative estimate of peak memory for one
// generation job: two keyframes plus a full frame sequence at the
// maximum canvas size.
const perJobBytes = 512 << 20

// Snapshot is a point-in-time view of host resources, reported by the
// health endpoint and used to size the worker pool.
type Snapshot struct {
	CPUCount       int     `json:"cpu_count"`
	MemoryTotal    uint64  `json:"memory_total"`
	MemoryFree     uint64  `json:"memory_free"`
	MemoryUsedPerc float64 `json:"memory_used_percent"`
	Load1          float64 `json:"load_1"`
}

// TakeSnapshot gathers host stats. Failures of individual probes leave
// zero values rather than failing the whole call.
func TakeSnapshot() Snapshot {
	s := Snapshot{CPUCount: runtime.NumCPU()}

	if n, err := cpu.Counts(true); err == nil && n > 0 {
		s.CPUCount = n
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		s.MemoryTotal = vm.Total
		s.MemoryFree = vm.Available
		s.MemoryUsedPerc = vm.UsedPercent
	}
	if avg, err := load.Avg(); err == nil {
		s.Load1 = avg.Load1
	}

	return s
}

// SuggestWorkers picks a worker count from host resources: one worker
// per CPU, further limited by available memory, never less than one.
func SuggestWorkers(maxWorkers int) int {
	s := TakeSnapshot()

	workers := s.CPUCount
	if s.MemoryFree > 0 {
		byMemory := int(s.MemoryFree / perJobBytes)
		if byMemory < workers {
			workers = byMemory
		}
	}
	if maxWorkers > 0 && workers > maxWorkers {
		workers = maxWorkers
	}
	if workers < 1 {
		workers = 1
	}
	return workers
}
