package main

import (
	"reflect"
	"testing"
	"time"
)

func TestParseExtraParams(t *testing.T) {
	params, err := parseExtraParams(`{"status":"active","limit":50,"flag":true,"empty":null}`)
	if err != nil {
		t.Fatalf("parseExtraParams failed: %v", err)
	}

	tests := map[string]string{
		"status": "active",
		"limit":  "50",
		"flag":   "true",
		"empty":  "",
	}
	for key, want := range tests {
		if got := params.Get(key); got != want {
			t.Errorf("params[%s] = %q, want %q", key, got, want)
		}
	}
}

func TestParseExtraParams_InvalidJSON(t *testing.T) {
	for _, raw := range []string{`{broken`, `[1,2]`, `"just a string"`} {
		if _, err := parseExtraParams(raw); err == nil {
			t.Errorf("Expected error for %q", raw)
		}
	}
}

func TestSplitFields(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"empty", "", nil},
		{"whitespace only", "  ", nil},
		{"simple", "id,name,email", []string{"id", "name", "email"}},
		{"spaces trimmed", " id , name ", []string{"id", "name"}},
		{"empty segments dropped", "id,,name,", []string{"id", "name"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitFields(tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitFields(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestSecondsToDuration(t *testing.T) {
	tests := []struct {
		seconds float64
		want    time.Duration
	}{
		{0.5, 500 * time.Millisecond},
		{30, 30 * time.Second},
		{0, 0},
	}

	for _, tt := range tests {
		if got := secondsToDuration(tt.seconds); got != tt.want {
			t.Errorf("secondsToDuration(%v) = %v, want %v", tt.seconds, got, tt.want)
		}
	}
}
