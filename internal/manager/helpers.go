package manager

import "github.com/klauspost/cpuid/v2"

// DefaultThreads is the engine thread count when none is configured.
func DefaultThreads() int {
	if cpuid.CPU.PhysicalCores == 0 {
		return 1
	}
	return cpuid.CPU.PhysicalCores
}

// modelFor picks the weights file for a profile: full precision on the
// accelerator, the quantized file on the generic backend.
func modelFor(p Profile, full, quantized string) string {
	if p.Precision == PrecisionInt8 && quantized != "" {
		return quantized
	}
	return full
}
