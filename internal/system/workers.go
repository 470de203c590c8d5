package system

import (
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// bytesPerPixel covers a worker's canvas (RGBA plus coverage mask) and the
// PNG encoder's scratch copy of the frame.
const bytesPerPixel = 4 + 1 + 4

// RecommendWorkers caps the requested worker count by the logical CPU count
// and by half of the available memory. requested <= 0 means one per CPU.
func RecommendWorkers(requested, width, height int) int {
	cpus, err := cpu.Counts(true)
	if err != nil {
		cpus = 0
	}
	var available uint64
	if vm, err := mem.VirtualMemory(); err == nil {
		available = vm.Available
	}
	return workersFor(requested, cpus, available, uint64(width)*uint64(height)*bytesPerPixel)
}

// workersFor treats zero cpus or zero available memory as unknown.
func workersFor(requested, cpus int, available, perWorker uint64) int {
	n := requested
	if n <= 0 {
		n = cpus
	}
	if cpus > 0 && n > cpus {
		n = cpus
	}
	if available > 0 && perWorker > 0 {
		if byMem := int(available / 2 / perWorker); n > byMem {
			n = byMem
		}
	}
	return max(n, 1)
}
