// Package batch runs one recognition feature over many images through the
// bridge and formats the collected results.
package batch

import (
	"context"
	"time"

	"github.com/MeKo-Tech/visionbridge/internal/bridge"
)

// Processor schedules static image jobs. *bridge.Module implements it.
type Processor interface {
	ProcessImage(ctx context.Context, feature, uri string, options map[string]any) *bridge.Promise
}

// Item is the outcome for one input.
type Item struct {
	Input  string `json:"input"`
	Result any    `json:"result,omitempty"`
	Code   string `json:"code,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Failed reports whether the input was rejected.
func (it Item) Failed() bool { return it.Error != "" }

// Result holds the outcome of a batch run in input order.
type Result struct {
	Feature  string
	Items    []Item
	Duration time.Duration
	Workers  int
}

// Run submits every input before awaiting any, so the processor's worker
// pool decides the parallelism. Items keep the input order.
func Run(ctx context.Context, p Processor, feature string, inputs []string, options map[string]any) *Result {
	start := time.Now()

	promises := make([]*bridge.Promise, len(inputs))
	for i, in := range inputs {
		promises[i] = p.ProcessImage(ctx, feature, in, options)
	}

	items := make([]Item, len(inputs))
	for i, in := range inputs {
		value, err := promises[i].Await(ctx)
		items[i] = Item{Input: in, Result: value}
		if err != nil {
			items[i].Result = nil
			items[i].Code = bridge.CodeOf(err)
			items[i].Error = err.Error()
		}
	}

	return &Result{Feature: feature, Items: items, Duration: time.Since(start)}
}

// FailedCount returns the number of rejected inputs.
func (r *Result) FailedCount() int {
	n := 0
	for _, it := range r.Items {
		if it.Failed() {
			n++
		}
	}
	return n
}

// Stats summarizes a batch run.
type Stats struct {
	Total            int
	Processed        int
	Failed           int
	Workers          int
	TotalDuration    time.Duration
	AveragePerImage  time.Duration
	ThroughputPerSec float64
}

// Stats computes throughput figures for the run.
func (r *Result) Stats() Stats {
	s := Stats{
		Total:         len(r.Items),
		Failed:        r.FailedCount(),
		Workers:       r.Workers,
		TotalDuration: r.Duration,
	}
	s.Processed = s.Total - s.Failed
	if s.Total > 0 {
		s.AveragePerImage = r.Duration / time.Duration(s.Total)
	}
	if secs := r.Duration.Seconds(); secs > 0 {
		s.ThroughputPerSec = float64(s.Total) / secs
	}
	return s
}
