// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batch

import (
	"fmt"
	"os"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/tomanizer/markdown-converter/pkg/types"
)

// processRSS returns the current process resident set size in MB, or an
// error when the platform cannot report it.
func processRSS() (float64, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0, err
	}
	mem, err := proc.MemoryInfo()
	if err != nil {
		return 0, err
	}
	return float64(mem.RSS) / (1024 * 1024), nil
}

// checkMemory samples process memory, tracks the peak, and logs when usage
// crosses the configured ceiling. The ceiling is advisory: a monitoring
// signal, not backpressure.
func (r *Runner) checkMemory(stats *types.BatchStats) {
	rss, err := processRSS()
	if err != nil {
		return
	}
	if rss > stats.PeakMemoryMB {
		stats.PeakMemoryMB = rss
	}
	if r.cfg.MaxMemoryMB > 0 && rss > float64(r.cfg.MaxMemoryMB) {
		fmt.Fprintf(r.log, "warning: memory usage %.0f MB exceeds %d MB ceiling\n", rss, r.cfg.MaxMemoryMB)
	}
}
