package workers

import (
	"runtime"
	"testing"
)

func TestCount(t *testing.T) {
	available := runtime.GOMAXPROCS(0)

	tests := []struct {
		name       string
		multiplier float64
		limit      int
		expected   int
	}{
		{"CPU bound no limit", 1.0, 0, available},
		{"IO bound no limit", 2.0, 0, available * 2},
		{"limit applies", 2.0, 1, 1},
		{"minimum one worker", 0.1, 0, max(1, int(float64(available)*0.1))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Count(tt.multiplier, tt.limit)
			if got != tt.expected {
				t.Errorf("Count(%v, %d) = %d, want %d", tt.multiplier, tt.limit, got, tt.expected)
			}
			if got < 1 {
				t.Errorf("Count returned %d, must be at least 1", got)
			}
		})
	}
}

func TestOverride(t *testing.T) {
	t.Setenv("PREFETCH_WORKERS", "3")

	if got := ForCPU(0); got != 3 {
		t.Errorf("ForCPU with PREFETCH_WORKERS=3 = %d, want 3", got)
	}
	if got := ForIO(2); got != 2 {
		t.Errorf("ForIO limit should cap override: got %d, want 2", got)
	}
}

func TestOverrideInvalid(t *testing.T) {
	t.Setenv("PREFETCH_WORKERS", "not-a-number")

	available := runtime.GOMAXPROCS(0)
	if got := ForCPU(0); got != available {
		t.Errorf("invalid override should fall back to GOMAXPROCS: got %d, want %d", got, available)
	}
}
