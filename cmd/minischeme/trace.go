package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

func cmdTrace(args []string) int {
	var file string
	textOutput := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--json":
			textOutput = false
		case "--text":
			textOutput = true
		default:
			if !strings.HasPrefix(args[i], "-") {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(os.Stderr, "usage: minischeme trace <file.jsonl> [--json|--text]")
		return 1
	}

	f, err := os.Open(file)
	if err != nil {
		reportIO(fmt.Sprintf("cannot read file: %s", file), false)
		return 1
	}
	defer f.Close()

	summary := computeTraceSummary(f)

	if textOutput {
		printTraceSummaryText(os.Stdout, summary)
	} else {
		b, _ := json.Marshal(summary)
		fmt.Println(string(b))
	}
	return 0
}

// TraceSummary aggregates a JSONL trace written by --trace.
type TraceSummary struct {
	RunID       string         `json:"runId"`
	TotalEvents int            `json:"totalEvents"`
	Runs        int            `json:"runs"`
	Collections int            `json:"collections"`
	Freed       int            `json:"freed"`
	PeakLive    int            `json:"peakLive"`
	PeakBytes   int            `json:"peakBytes"`
	Errors      map[string]int `json:"errors"`
	StartTime   string         `json:"startTime,omitempty"`
	EndTime     string         `json:"endTime,omitempty"`
	DurationMs  float64        `json:"durationMs"`
}

type traceEvent struct {
	Event string         `json:"event"`
	RunID string         `json:"runId"`
	TS    string         `json:"ts"`
	Data  map[string]any `json:"data,omitempty"`
}

func intField(data map[string]any, key string) int {
	if f, ok := data[key].(float64); ok {
		return int(f)
	}
	return 0
}

func computeTraceSummary(r io.Reader) *TraceSummary {
	summary := &TraceSummary{
		Errors: make(map[string]int),
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var event traceEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			continue // skip invalid lines
		}

		summary.TotalEvents++
		if summary.RunID == "" {
			summary.RunID = event.RunID
		}

		switch event.Event {
		case "run_start":
			summary.Runs++
			if summary.StartTime == "" {
				summary.StartTime = event.TS
			}
		case "run_end":
			summary.EndTime = event.TS
			if code, ok := event.Data["error"].(string); ok {
				summary.Errors[code]++
			}
		case "gc_start":
			summary.Collections++
			summary.PeakLive = max(summary.PeakLive, intField(event.Data, "live"))
			summary.PeakBytes = max(summary.PeakBytes, intField(event.Data, "bytes"))
		case "gc_end":
			summary.Freed += intField(event.Data, "freed")
		}
	}

	if summary.StartTime != "" && summary.EndTime != "" {
		start, err1 := parseTime(summary.StartTime)
		end, err2 := parseTime(summary.EndTime)
		if err1 == nil && err2 == nil {
			summary.DurationMs = float64(end.Sub(start).Milliseconds())
		}
	}

	return summary
}

func printTraceSummaryText(w io.Writer, s *TraceSummary) {
	fmt.Fprintf(w, "Run: %s\n", s.RunID)
	fmt.Fprintf(w, "Events: %d\n", s.TotalEvents)
	fmt.Fprintf(w, "Runs: %d\n", s.Runs)
	fmt.Fprintf(w, "Collections: %d (%d objects freed)\n", s.Collections, s.Freed)
	fmt.Fprintf(w, "Peak: %d objects, %d bytes\n", s.PeakLive, s.PeakBytes)
	for code, count := range s.Errors {
		fmt.Fprintf(w, "  %s: %d\n", code, count)
	}
	if s.DurationMs > 0 {
		fmt.Fprintf(w, "Duration: %.0fms\n", s.DurationMs)
	}
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("cannot parse time: %s", s)
}
