// Package syscheck runs pre-flight stability checks so benchmark numbers are
// collected on a quiet, predictably-clocked machine.
package syscheck

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

const (
	// loadFactor is the load-average-per-CPU ceiling before we warn.
	loadFactor = 0.5

	// minAvailableMemFraction is the floor of available memory before we warn.
	minAvailableMemFraction = 0.25
)

// Warning is one failed stability check.
type Warning struct {
	Check  string
	Detail string
}

func (w Warning) String() string {
	return w.Check + ": " + w.Detail
}

// Run executes all system checks and returns the warnings. Warnings are
// advisory; the caller decides whether to proceed.
func Run() []Warning {
	var warnings []Warning

	if w := checkLoad(); w != nil {
		warnings = append(warnings, *w)
	}
	if w := checkMemory(); w != nil {
		warnings = append(warnings, *w)
	}
	if w := checkGovernor(); w != nil {
		warnings = append(warnings, *w)
	}

	return warnings
}

func checkLoad() *Warning {
	avg, err := load.Avg()
	if err != nil {
		return nil // not supported on this platform
	}

	limit := loadFactor * float64(runtime.NumCPU())
	if avg.Load1 > limit {
		return &Warning{
			Check:  "load average",
			Detail: fmt.Sprintf("1-minute load %.2f exceeds %.2f; other work will contaminate measurements", avg.Load1, limit),
		}
	}
	return nil
}

func checkMemory() *Warning {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return nil
	}

	available := float64(vm.Available) / float64(vm.Total)
	if available < minAvailableMemFraction {
		return &Warning{
			Check:  "memory",
			Detail: fmt.Sprintf("only %.0f%% of memory available; GC-heavy benchmarks will be skewed", available*100),
		}
	}

	swap, err := mem.SwapMemory()
	if err == nil && swap.Used > 0 && swap.UsedPercent > 10 {
		return &Warning{
			Check:  "swap",
			Detail: fmt.Sprintf("swap in use (%.0f%%); timings will be unstable", swap.UsedPercent),
		}
	}
	return nil
}

// governorPath is a var so tests can point it at a fixture.
var governorPath = "/sys/devices/system/cpu/cpu0/cpufreq/scaling_governor"

func checkGovernor() *Warning {
	if runtime.GOOS != "linux" {
		return nil
	}

	data, err := os.ReadFile(governorPath)
	if err != nil {
		return nil // no cpufreq, e.g. VM or container
	}

	governor := strings.TrimSpace(string(data))
	if governor != "performance" {
		return &Warning{
			Check:  "cpu governor",
			Detail: fmt.Sprintf("scaling governor is %q, want \"performance\" for stable clocks", governor),
		}
	}
	return nil
}
