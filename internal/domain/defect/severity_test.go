package defect

import "testing"

func TestNormalizeSeverity(t *testing.T) {
	cases := []struct {
		raw  string
		want Severity
	}{
		{"Critical", SeverityCritical},
		{"severe", SeverityCritical},
		{"VERY HIGH", SeverityCritical},
		{"urgent", SeverityCritical},
		{"High", SeverityHigh},
		{"significant", SeverityHigh},
		{"medium-high", SeverityHigh},
		{"Medium", SeverityHigh},
		{"moderate", SeverityHigh},
		{"Low", SeverityLow},
		{"minor", SeverityLow},
		{"minimal", SeverityLow},
		{"  critical  ", SeverityCritical},
	}
	for _, tc := range cases {
		if got := NormalizeSeverity(tc.raw); got != tc.want {
			t.Fatalf("NormalizeSeverity(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestNormalizeSeverityUnknownDefaultsHigh(t *testing.T) {
	for _, raw := range []string{"", "   ", "weird", "catastrophic-ish"} {
		if got := NormalizeSeverity(raw); got != SeverityHigh {
			t.Fatalf("NormalizeSeverity(%q) = %q, want %q", raw, got, SeverityHigh)
		}
	}
}
