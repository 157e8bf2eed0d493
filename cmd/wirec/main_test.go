package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"wirec/internal/manifest"
)

func TestSelectTypes(t *testing.T) {
	m := &manifest.Manifest{
		Module: "telemetry",
		Types: []manifest.Type{
			{Name: "telemetry::Reading"},
			{Name: "telemetry::ReadingList"},
			{Name: "telemetry::Sensors::Reading"},
		},
		Services: []manifest.Service{{Name: "telemetry::Sensors"}},
	}

	got := selectTypes(m, "Reading")
	if len(got.Types) != 2 {
		t.Fatalf("expected 2 types, got %d", len(got.Types))
	}
	if got.Types[0].Name != "telemetry::Reading" || got.Types[1].Name != "telemetry::Sensors::Reading" {
		t.Errorf("unexpected selection: %+v", got.Types)
	}
	if got.Services != nil {
		t.Errorf("services should be dropped")
	}
	if len(m.Types) != 3 {
		t.Errorf("selectTypes modified its input")
	}

	if got := selectTypes(m, "telemetry::ReadingList"); len(got.Types) != 1 {
		t.Errorf("qualified name should match exactly once, got %d", len(got.Types))
	}
}

func TestRenderVersionJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := renderVersionJSON(&buf, false); err != nil {
		t.Fatal(err)
	}
	var payload versionPayload
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if payload.Tool != "wirec" || payload.ManifestVersion != manifest.Version {
		t.Errorf("unexpected payload: %+v", payload)
	}
	if payload.GitCommit != "" {
		t.Errorf("commit should be omitted without --full")
	}
}

func TestValueOrUnknown(t *testing.T) {
	if got := valueOrUnknown("  "); got != "unknown" {
		t.Errorf("got %q", got)
	}
	if got := valueOrUnknown("abc"); got != "abc" {
		t.Errorf("got %q", got)
	}
}
