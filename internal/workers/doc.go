// Package workers determines worker pool sizes for the catalog engine's
// background tasks (prefetch decoding, import copies, directory scans).
//
// In containerized environments runtime.NumCPU() reports the host CPU
// count, not the cgroup limit. Go 1.19+ sets GOMAXPROCS from the container
// CPU limit, so pool sizing here is derived from runtime.GOMAXPROCS(0).
//
// The PREFETCH_WORKERS environment variable overrides the automatic
// calculation for all helpers, which is useful when tuning decode
// concurrency against available memory.
//
// Workload helpers:
//
//	workers.ForCPU(8)   // decode/resize work, 1 worker per CPU
//	workers.ForIO(16)   // file copies and scans, 2 workers per CPU
//	workers.ForMixed(12) // read-decode-write pipelines, 1.5 per CPU
package workers
