// ABOUTME: System memory probing for the pressure-aware cache bound
// ABOUTME: Wraps gopsutil and derives the reserve and suggested limits
package preload

import (
	"fmt"

	"github.com/shirou/gopsutil/v3/mem"
)

const mb = 1024 * 1024

// minReserveBytes is the smallest amount of system memory kept free
const minReserveBytes = 128 * mb

// MemoryStats reports total and available physical memory in bytes
type MemoryStats func() (total, available uint64, err error)

// SystemMemory reads physical memory figures from the operating system
func SystemMemory() (total, available uint64, err error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read memory info: %w", err)
	}
	return vm.Total, vm.Available, nil
}

// reserveBytes is the memory left for everything else: 10% of total, at
// least 128 MB
func reserveBytes(total uint64) int64 {
	if total == 0 {
		return minReserveBytes
	}
	return max(int64(total/10), minReserveBytes)
}
