package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"go-guildevents/internal/logging"
)

// SampleHost records host memory and CPU usage.
func (r *Registry) SampleHost(ctx context.Context) error {
	if r == nil {
		return nil
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return fmt.Errorf("sample memory: %w", err)
	}
	r.hostMemory.Set(vm.UsedPercent)

	percents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return fmt.Errorf("sample cpu: %w", err)
	}
	if len(percents) > 0 {
		r.hostCPU.Set(percents[0])
	}
	return nil
}

// RunHostSampler samples every interval until ctx is done.
func (r *Registry) RunHostSampler(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.SampleHost(ctx); err != nil {
				logging.Warn("Host sampling failed: %v", err)
			}
		}
	}
}
