// Package resource samples host CPU and RAM utilization for the adaptive
// scheduler's concurrency/timeout decisions.
package resource

import (
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

const sampleWindow = 1 * time.Second

// Sample is a single CPU/RAM reading, both expressed as a percentage
// in [0, 100].
type Sample struct {
	CPUPercent float64
	RAMPercent float64
}

// Now samples CPU usage over a 1-second window and current RAM usage.
func Now() (Sample, error) {
	cpuPercents, err := cpu.Percent(sampleWindow, false)
	if err != nil {
		return Sample{}, err
	}
	var cpuPct float64
	if len(cpuPercents) > 0 {
		cpuPct = cpuPercents[0]
	}
	vm, err := mem.VirtualMemory()
	if err != nil {
		return Sample{}, err
	}
	return Sample{CPUPercent: cpuPct, RAMPercent: vm.UsedPercent}, nil
}
