// Package benchmark measures the latency of the recognition paths.
package benchmark

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sync"
	"time"
)

// MemoryStats holds memory usage statistics.
type MemoryStats struct {
	AllocBytes      uint64  // Currently allocated bytes
	TotalAllocBytes uint64  // Total allocated bytes (cumulative)
	SysBytes        uint64  // Total bytes from system
	NumGC           uint32  // Number of GC runs
	GCCPUFraction   float64 // Fraction of CPU time spent in GC
}

// GetMemoryStats returns current memory statistics.
func GetMemoryStats() MemoryStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return MemoryStats{
		AllocBytes:      m.Alloc,
		TotalAllocBytes: m.TotalAlloc,
		SysBytes:        m.Sys,
		NumGC:           m.NumGC,
		GCCPUFraction:   m.GCCPUFraction,
	}
}

func (m MemoryStats) String() string {
	return fmt.Sprintf("Alloc: %d KB, Total: %d KB, Sys: %d KB, GC: %d (%.2f%% CPU)",
		m.AllocBytes/1024,
		m.TotalAllocBytes/1024,
		m.SysBytes/1024,
		m.NumGC,
		m.GCCPUFraction*100)
}

// Result holds the outcome of one benchmark.
type Result struct {
	Name         string
	Duration     time.Duration
	MemoryBefore MemoryStats
	MemoryAfter  MemoryStats
	Iterations   int
	Error        error
}

// Average returns the mean duration per completed iteration.
func (r Result) Average() time.Duration {
	if r.Iterations <= 0 {
		return 0
	}
	return r.Duration / time.Duration(r.Iterations)
}

// AllocatedKB is the growth of total allocations during the run.
func (r Result) AllocatedKB() uint64 {
	return (r.MemoryAfter.TotalAllocBytes - r.MemoryBefore.TotalAllocBytes) / 1024
}

func (r Result) String() string {
	if r.Error != nil {
		return fmt.Sprintf("%s: ERROR - %v", r.Name, r.Error)
	}
	return fmt.Sprintf("%s: %d iterations, avg: %v, total: %v, alloc: %d KB",
		r.Name, r.Iterations, r.Average(), r.Duration, r.AllocatedKB())
}

// Func is one benchmark body. It runs once per iteration.
type Func func(ctx context.Context) error

type entry struct {
	name string
	fn   Func
}

// Suite runs named benchmarks in insertion order.
type Suite struct {
	entries []entry
	results []Result
	mu      sync.Mutex
}

// NewSuite creates an empty suite.
func NewSuite() *Suite {
	return &Suite{}
}

// Add registers fn under name.
func (s *Suite) Add(name string, fn Func) {
	s.entries = append(s.entries, entry{name: name, fn: fn})
}

// Names lists the registered benchmarks.
func (s *Suite) Names() []string {
	names := make([]string, len(s.entries))
	for i, e := range s.entries {
		names[i] = e.name
	}
	return names
}

// Run runs the benchmark called name.
func (s *Suite) Run(ctx context.Context, name string, iterations int) Result {
	for _, e := range s.entries {
		if e.name == name {
			return run(ctx, e, iterations)
		}
	}
	return Result{Name: name, Error: fmt.Errorf("benchmark '%s' not found", name)}
}

// RunAll runs every benchmark and keeps the results.
func (s *Suite) RunAll(ctx context.Context, iterations int) []Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results = make([]Result, 0, len(s.entries))
	for _, e := range s.entries {
		s.results = append(s.results, run(ctx, e, iterations))
	}
	return s.results
}

// Results returns the last RunAll results.
func (s *Suite) Results() []Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results
}

// WriteResults prints the last RunAll results.
func (s *Suite) WriteResults(w io.Writer) {
	_, _ = fmt.Fprintln(w, "Benchmark Results:")
	_, _ = fmt.Fprintln(w, "==================")
	for _, r := range s.Results() {
		_, _ = fmt.Fprintln(w, r.String())
	}
}

// run stops at the first failing iteration; Iterations then counts only
// the completed ones.
func run(ctx context.Context, e entry, iterations int) Result {
	runtime.GC()
	memBefore := GetMemoryStats()

	start := time.Now()
	done := 0
	var err error
	for range iterations {
		if err = ctx.Err(); err != nil {
			break
		}
		if err = e.fn(ctx); err != nil {
			break
		}
		done++
	}

	return Result{
		Name:         e.name,
		Duration:     time.Since(start),
		MemoryBefore: memBefore,
		MemoryAfter:  GetMemoryStats(),
		Iterations:   done,
		Error:        err,
	}
}
