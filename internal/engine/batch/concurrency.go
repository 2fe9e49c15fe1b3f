// internal/engine/batch/concurrency.go
package batch

import "runtime"

// MaxConcurrency caps parallel bulletin fetches against a single host
const MaxConcurrency = 8

// OptimalConcurrency is twice the CPU count, at least 2 and at most
// MaxConcurrency since the upstream is one small host
func OptimalConcurrency() int {
	return min(max(runtime.NumCPU()*2, 2), MaxConcurrency)
}
