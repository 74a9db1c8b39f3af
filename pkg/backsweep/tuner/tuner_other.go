//go:build !darwin && !linux

package tuner

import "runtime"

// fallbackTotalRAM is assumed when memory cannot be detected.
const fallbackTotalRAM = 8 * 1024 * 1024 * 1024

// Detect detects CPU cores with runtime.NumCPU and assumes 8GB of RAM, half
// of it available.
func Detect() (SystemResources, error) {
	return SystemResources{
		CPUCores:     runtime.NumCPU(),
		TotalRAM:     fallbackTotalRAM,
		AvailableRAM: fallbackTotalRAM / 2,
	}, nil
}
