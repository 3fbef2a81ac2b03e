package advisory

import (
	"strings"
	"testing"
)

const validResponse = `{
	"root_cause": "Thermal stress cracked the rail head.",
	"severity": "Critical",
	"immediate_action": "Impose an emergency speed restriction.",
	"resolution_steps": "1. Isolate the block. 2. Replace the rail segment.",
	"preventive_recommendations": "Schedule ultrasonic testing."
}`

func TestDecodePayloadStrict(t *testing.T) {
	payload, err := decodePayload(validResponse)
	if err != nil {
		t.Fatalf("decodePayload() error = %v", err)
	}
	if payload.Severity != "Critical" {
		t.Fatalf("decodePayload() severity = %q", payload.Severity)
	}
	if payload.RootCause.String() != "Thermal stress cracked the rail head." {
		t.Fatalf("decodePayload() root_cause = %q", payload.RootCause)
	}
}

func TestDecodePayloadExtractsWrappedObject(t *testing.T) {
	wrapped := "Here is the analysis you asked for:\n```json\n" + validResponse + "\n```\nLet me know if you need more."
	payload, err := decodePayload(wrapped)
	if err != nil {
		t.Fatalf("decodePayload() error = %v", err)
	}
	if payload.Severity != "Critical" {
		t.Fatalf("decodePayload() severity = %q", payload.Severity)
	}
}

func TestDecodePayloadBracesInsideStrings(t *testing.T) {
	raw := `prose {"root_cause": "Joint gap {expansion} issue", "severity": "High", "immediate_action": "Inspect", "resolution_steps": "Tighten bolts", "preventive_recommendations": "Monitor"} trailing`
	payload, err := decodePayload(raw)
	if err != nil {
		t.Fatalf("decodePayload() error = %v", err)
	}
	if !strings.Contains(payload.RootCause.String(), "{expansion}") {
		t.Fatalf("decodePayload() root_cause = %q", payload.RootCause)
	}
}

func TestDecodePayloadArrayFields(t *testing.T) {
	raw := `{
		"root_cause": "Fatigue",
		"severity": "High",
		"immediate_action": "Restrict speed",
		"resolution_steps": ["Isolate block", "Replace sleeper", "Re-tamp ballast"],
		"preventive_recommendations": "Inspect quarterly"
	}`
	payload, err := decodePayload(raw)
	if err != nil {
		t.Fatalf("decodePayload() error = %v", err)
	}
	if payload.ResolutionSteps.String() != "Isolate block; Replace sleeper; Re-tamp ballast" {
		t.Fatalf("decodePayload() resolution_steps = %q", payload.ResolutionSteps)
	}
}

func TestDecodePayloadRejectsMissingFields(t *testing.T) {
	raw := `{"root_cause": "x", "severity": "High"}`
	if _, err := decodePayload(raw); err == nil {
		t.Fatalf("decodePayload() incomplete payload should fail")
	}
}

func TestDecodePayloadRejectsProseOnly(t *testing.T) {
	if _, err := decodePayload("I could not produce a structured answer, sorry."); err == nil {
		t.Fatalf("decodePayload() prose should fail")
	}
}

func TestExtractJSONObjectUnbalanced(t *testing.T) {
	if _, err := extractJSONObject(`{"a": 1`); err == nil {
		t.Fatalf("extractJSONObject() unbalanced should fail")
	}
}
