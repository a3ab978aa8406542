package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/MeKo-Tech/visionbridge/internal/plugin"
)

// Output formats understood by Format.
const (
	FormatJSON = "json"
	FormatText = "text"
	FormatCSV  = "csv"
)

// IsValidFormat reports whether format is one of the output formats.
func IsValidFormat(format string) bool {
	switch format {
	case FormatJSON, FormatText, FormatCSV:
		return true
	default:
		return false
	}
}

// Format renders the result. A single item is rendered as a bare JSON object,
// several as an array.
func (r *Result) Format(format string) (string, error) {
	switch format {
	case FormatJSON:
		return r.formatJSON()
	case FormatCSV:
		return r.formatCSV()
	case FormatText:
		return r.formatText(), nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
}

func (r *Result) formatJSON() (string, error) {
	var v any = r.Items
	if len(r.Items) == 1 {
		v = r.Items[0]
	}
	bts, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(bts) + "\n", nil
}

// formatCSV writes one row per recognized element. Failed inputs get a
// single row carrying the error.
func (r *Result) formatCSV() (string, error) {
	var header []string
	switch r.Feature {
	case plugin.TextRecognition:
		header = []string{"file", "block_index", "text", "error"}
	case plugin.BarcodeScanning:
		header = []string{"file", "barcode_index", "format", "value_type", "raw_value", "error"}
	default:
		header = []string{"file", "index", "value", "error"}
	}

	rows := [][]string{header}
	for _, it := range r.Items {
		if it.Failed() {
			row := make([]string, len(header))
			row[0] = it.Input
			row[len(row)-1] = it.Error
			rows = append(rows, row)
			continue
		}
		for i, fields := range csvFields(r.Feature, it.Result) {
			row := append([]string{it.Input, strconv.Itoa(i)}, fields...)
			rows = append(rows, append(row, ""))
		}
	}

	var output strings.Builder
	writer := csv.NewWriter(&output)
	if err := writer.WriteAll(rows); err != nil {
		return "", err
	}
	return output.String(), nil
}

func csvFields(feature string, result any) [][]string {
	var out [][]string
	switch feature {
	case plugin.TextRecognition:
		for _, b := range listOf(mapOf(result)["blocks"]) {
			text, _ := mapOf(b)["text"].(string)
			out = append(out, []string{text})
		}
	case plugin.BarcodeScanning:
		for _, b := range listOf(mapOf(result)["barcodes"]) {
			m := mapOf(b)
			raw, _ := m["rawValue"].(string)
			out = append(out, []string{fmt.Sprint(m["format"]), fmt.Sprint(m["valueType"]), raw})
		}
	default:
		for _, item := range listOf(result) {
			bts, _ := json.Marshal(item)
			out = append(out, []string{string(bts)})
		}
	}
	return out
}

// formatText prints one human readable block per input.
func (r *Result) formatText() string {
	var b strings.Builder
	for i, it := range r.Items {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s:\n", it.Input)
		if it.Failed() {
			fmt.Fprintf(&b, "  error: %s\n", it.Error)
			continue
		}
		switch r.Feature {
		case plugin.TextRecognition:
			text, _ := mapOf(it.Result)["text"].(string)
			for _, line := range strings.Split(text, "\n") {
				fmt.Fprintf(&b, "  %s\n", line)
			}
		case plugin.BarcodeScanning:
			barcodes := listOf(mapOf(it.Result)["barcodes"])
			if len(barcodes) == 0 {
				b.WriteString("  no barcodes found\n")
			}
			for _, bc := range barcodes {
				m := mapOf(bc)
				raw, _ := m["rawValue"].(string)
				fmt.Fprintf(&b, "  %v %v %s\n", m["format"], m["valueType"], raw)
			}
		default:
			for _, item := range listOf(it.Result) {
				fmt.Fprintf(&b, "  %v\n", item)
			}
		}
	}
	return b.String()
}

// FormatStats renders the summary printed after a batch.
func FormatStats(s Stats) string {
	var b strings.Builder
	b.WriteString("Processing Statistics:\n")
	fmt.Fprintf(&b, "  Total images: %d\n", s.Total)
	fmt.Fprintf(&b, "  Processed: %d\n", s.Processed)
	fmt.Fprintf(&b, "  Failed: %d\n", s.Failed)
	if s.Workers > 0 {
		fmt.Fprintf(&b, "  Workers: %d\n", s.Workers)
	}
	fmt.Fprintf(&b, "  Duration: %v\n", s.TotalDuration.Round(time.Millisecond))
	fmt.Fprintf(&b, "  Avg per image: %v\n", s.AveragePerImage.Round(time.Millisecond))
	fmt.Fprintf(&b, "  Throughput: %.1f images/sec\n", s.ThroughputPerSec)
	return b.String()
}

func mapOf(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func listOf(v any) []any {
	l, _ := v.([]any)
	return l
}
