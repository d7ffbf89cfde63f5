// Package benchmark times repeated decoder runs and reports allocation
// counts alongside wall time.
package benchmark

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"runtime"
	"strconv"
	"sync"
	"time"
)

// Timer measures one named span.
type Timer struct {
	start    time.Time
	name     string
	duration time.Duration
}

// NewTimer starts a timer.
func NewTimer(name string) *Timer {
	return &Timer{name: name, start: time.Now()}
}

// Stop records and returns the elapsed duration.
func (t *Timer) Stop() time.Duration {
	t.duration = time.Since(t.start)
	return t.duration
}

// Duration is only valid after Stop.
func (t *Timer) Duration() time.Duration { return t.duration }

func (t *Timer) String() string {
	return fmt.Sprintf("%s: %v", t.name, t.duration)
}

// MemoryStats is the subset of runtime.MemStats a run is compared on.
type MemoryStats struct {
	AllocBytes      uint64
	TotalAllocBytes uint64
	Mallocs         uint64
	NumGC           uint32
}

// ReadMemoryStats samples the runtime allocator.
func ReadMemoryStats() MemoryStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemoryStats{
		AllocBytes:      m.Alloc,
		TotalAllocBytes: m.TotalAlloc,
		Mallocs:         m.Mallocs,
		NumGC:           m.NumGC,
	}
}

// Result is the outcome of running one case.
type Result struct {
	Name       string
	Iterations int
	Duration   time.Duration
	Before     MemoryStats
	After      MemoryStats
	// Detections is the count returned by the last iteration.
	Detections int
	Err        error
}

// PerOp is the mean duration of one iteration.
func (r Result) PerOp() time.Duration {
	if r.Iterations == 0 {
		return 0
	}
	return r.Duration / time.Duration(r.Iterations)
}

// AllocsPerOp is the mean number of heap allocations per iteration.
func (r Result) AllocsPerOp() uint64 {
	if r.Iterations == 0 {
		return 0
	}
	return (r.After.Mallocs - r.Before.Mallocs) / uint64(r.Iterations) //nolint:gosec // G115: iterations > 0
}

// BytesPerOp is the mean number of bytes allocated per iteration.
func (r Result) BytesPerOp() uint64 {
	if r.Iterations == 0 {
		return 0
	}
	return (r.After.TotalAllocBytes - r.Before.TotalAllocBytes) / uint64(r.Iterations) //nolint:gosec // G115: iterations > 0
}

func (r Result) String() string {
	if r.Err != nil {
		return fmt.Sprintf("%s: ERROR - %v", r.Name, r.Err)
	}
	return fmt.Sprintf("%s: %d iterations, %v/op, %d allocs/op, %d B/op, %d detection(s)",
		r.Name, r.Iterations, r.PerOp(), r.AllocsPerOp(), r.BytesPerOp(), r.Detections)
}

// Func runs one iteration and reports how many detections it produced.
type Func func(ctx context.Context) (int, error)

type benchCase struct {
	name string
	fn   Func
}

// Suite is an ordered set of named cases.
type Suite struct {
	mu      sync.Mutex
	cases   []benchCase
	results []Result
}

// NewSuite returns an empty suite.
func NewSuite() *Suite {
	return &Suite{}
}

// Add appends a case. Names should be unique; Run picks the first match.
func (s *Suite) Add(name string, fn Func) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cases = append(s.cases, benchCase{name: name, fn: fn})
}

// Len returns the number of cases.
func (s *Suite) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cases)
}

// Run runs the named case for the given number of iterations.
func (s *Suite) Run(ctx context.Context, name string, iterations int) Result {
	s.mu.Lock()
	var found *benchCase
	for i := range s.cases {
		if s.cases[i].name == name {
			found = &s.cases[i]
			break
		}
	}
	s.mu.Unlock()

	if found == nil {
		return Result{Name: name, Err: fmt.Errorf("benchmark '%s' not found", name)}
	}
	return run(ctx, *found, iterations)
}

// RunAll runs every case in insertion order. It stops early when ctx is
// cancelled and returns the results gathered so far.
func (s *Suite) RunAll(ctx context.Context, iterations int) []Result {
	s.mu.Lock()
	cases := append([]benchCase(nil), s.cases...)
	s.mu.Unlock()

	results := make([]Result, 0, len(cases))
	for _, c := range cases {
		if ctx.Err() != nil {
			break
		}
		results = append(results, run(ctx, c, iterations))
	}

	s.mu.Lock()
	s.results = results
	s.mu.Unlock()
	return results
}

// Results returns the last RunAll output.
func (s *Suite) Results() []Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Result(nil), s.results...)
}

func run(ctx context.Context, c benchCase, iterations int) Result {
	if iterations <= 0 {
		return Result{Name: c.name, Err: fmt.Errorf("iterations must be positive, got %d", iterations)}
	}

	runtime.GC()
	res := Result{Name: c.name, Before: ReadMemoryStats()}
	timer := NewTimer(c.name)
	for range iterations {
		if err := ctx.Err(); err != nil {
			res.Err = err
			break
		}
		n, err := c.fn(ctx)
		if err != nil {
			res.Err = err
			break
		}
		res.Detections = n
		res.Iterations++
	}
	res.Duration = timer.Stop()
	res.After = ReadMemoryStats()
	return res
}

// WriteText prints one line per result.
func WriteText(w io.Writer, results []Result) error {
	for _, r := range results {
		if _, err := fmt.Fprintln(w, r.String()); err != nil {
			return err
		}
	}
	return nil
}

// WriteCSV writes a header plus one row per result.
func WriteCSV(w io.Writer, results []Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"name", "iterations", "ns_per_op", "allocs_per_op", "bytes_per_op", "detections", "error"}); err != nil {
		return err
	}
	for _, r := range results {
		errText := ""
		if r.Err != nil {
			errText = r.Err.Error()
		}
		if err := cw.Write([]string{
			r.Name,
			strconv.Itoa(r.Iterations),
			strconv.FormatInt(r.PerOp().Nanoseconds(), 10),
			strconv.FormatUint(r.AllocsPerOp(), 10),
			strconv.FormatUint(r.BytesPerOp(), 10),
			strconv.Itoa(r.Detections),
			errText,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
