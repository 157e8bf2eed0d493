package observ

import (
	"strings"
	"testing"
	"time"
)

func TestTimerPhases(t *testing.T) {
	tm := NewTimer()
	load := tm.Begin("load")
	time.Sleep(time.Millisecond)
	tm.End(load, "2 files")
	tm.End(42, "ignored")

	file := NewTimer()
	file.End(file.Begin("declare"), "")
	file.End(file.Begin("layout"), "")
	tm.Merge("telemetry.yaml/", file)

	report := tm.Report()
	if len(report.Phases) != 3 {
		t.Fatalf("got %d phases", len(report.Phases))
	}
	if report.Phases[1].Name != "telemetry.yaml/declare" {
		t.Errorf("merged name = %q", report.Phases[1].Name)
	}
	if report.TotalMS != report.Phases[0].DurationMS {
		t.Errorf("total %v should count only top-level phases (%v)", report.TotalMS, report.Phases[0].DurationMS)
	}

	summary := tm.Summary()
	for _, want := range []string{"timings:", "// 2 files", "telemetry.yaml/layout", "total"} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary missing %q:\n%s", want, summary)
		}
	}
}

func TestEmptyTimer(t *testing.T) {
	if r := NewTimer().Report(); r.TotalMS != 0 || r.Phases != nil {
		t.Fatalf("unexpected report %+v", r)
	}
}
