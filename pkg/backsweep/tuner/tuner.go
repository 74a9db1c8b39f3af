// Package tuner sizes the classification worker pool from the detected
// system resources and an operator-chosen budget.
package tuner

import (
	"fmt"

	"github.com/jamesainslie/backsweep/pkg/backsweep/types"
)

// SystemResources contains detected system resources.
type SystemResources struct {
	// CPUCores is the number of logical CPU cores available.
	CPUCores int

	// TotalRAM is the total physical RAM in bytes.
	TotalRAM int64

	// AvailableRAM is the RAM in bytes that can be assumed free.
	// It may be a heuristic estimate.
	AvailableRAM int64
}

// Budget limits.
const (
	MinBudgetPercent     = 25
	MaxBudgetPercent     = 100
	DefaultBudgetPercent = 75
)

// reserveThreshold is the core count from which one core is always left to
// the controller.
const reserveThreshold = 4

// Queue sizing limits.
const (
	minQueueSize = 16
	maxQueueSize = 4096

	// bytesPerRecord estimates the memory held by one buffered batch result
	// entry: two paths plus record fields.
	bytesPerRecord = 1024

	// queueMemoryFraction is the share of available RAM given to buffered
	// batch results.
	queueMemoryFraction = 0.01
)

// Plan is the worker configuration for one reconciliation pass.
type Plan struct {
	// Workers is the number of classification workers.
	Workers int

	// QueueSize is the buffer size of the batch result channel.
	QueueSize int
}

// ValidateBudget returns types.ErrInvalidBudget unless percent is within
// MinBudgetPercent and MaxBudgetPercent.
func ValidateBudget(percent int) error {
	if percent < MinBudgetPercent || percent > MaxBudgetPercent {
		return fmt.Errorf("%w: got %d", types.ErrInvalidBudget, percent)
	}
	return nil
}

// ClampBudget forces percent into the accepted range.
func ClampBudget(percent int) int {
	return min(max(percent, MinBudgetPercent), MaxBudgetPercent)
}

// Workers returns the worker count for a budget on a machine with the given
// number of cores: the budgeted share of cores, floored at one, never more
// than the cores available, and never every core once there are four or more.
func Workers(cores, percent int) int {
	cores = max(cores, 1)
	percent = ClampBudget(percent)

	workers := cores * percent / 100
	workers = min(max(workers, 1), cores)

	if cores >= reserveThreshold && workers >= cores {
		workers = cores - 1
	}
	return workers
}

// Calculate returns the plan for the given resources and budget.
func Calculate(resources SystemResources, percent int) Plan {
	return Plan{
		Workers:   Workers(resources.CPUCores, percent),
		QueueSize: queueSize(resources.AvailableRAM),
	}
}

// CalculateWithOverrides is Calculate with an explicit worker count taking
// precedence when greater than zero. The override is still capped so that
// one core stays free on machines with four or more cores.
func CalculateWithOverrides(resources SystemResources, percent, workerOverride int) Plan {
	plan := Calculate(resources, percent)
	if workerOverride > 0 {
		cores := max(resources.CPUCores, 1)
		workers := workerOverride
		if cores >= reserveThreshold {
			workers = min(workers, cores-1)
		}
		plan.Workers = workers
	}
	return plan
}

func queueSize(availableRAM int64) int {
	entries := int(float64(availableRAM) * queueMemoryFraction / bytesPerRecord)
	return min(max(entries, minQueueSize), maxQueueSize)
}

// BatchSize returns the number of files per batch so that n files form
// roughly twice as many batches as there are workers.
func BatchSize(n, workers int) int {
	workers = max(workers, 1)
	return max(1, n/(workers*2))
}
