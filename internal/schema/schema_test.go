package schema

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestListBuiltin(t *testing.T) {
	want := []string{"principles", "risk"}
	if diff := cmp.Diff(want, ListBuiltin()); diff != "" {
		t.Errorf("ListBuiltin() mismatch (-want +got):\n%s", diff)
	}
}

func TestBuiltin_Risk(t *testing.T) {
	s, err := Builtin("risk")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"positive", "malicious", "dangerous", "manipulative", "sensitive"}
	if diff := cmp.Diff(want, s.IDs()); diff != "" {
		t.Errorf("risk ids mismatch (-want +got):\n%s", diff)
	}
	if s.Aggregation != AggregateMeanExcluding {
		t.Errorf("expected mean_excluding aggregation, got %q", s.Aggregation)
	}
	if !s.HigherIsWorse {
		t.Error("expected risk aggregate to grow with harm")
	}
	pos, ok := s.Lookup("positive")
	if !ok || !pos.ExcludeFromAggregate {
		t.Errorf("expected positive to be excluded from aggregate: %+v", pos)
	}
	if pos.Baseline != 0.2 {
		t.Errorf("expected positive baseline 0.2, got %g", pos.Baseline)
	}
}

func TestBuiltin_Principles(t *testing.T) {
	s, err := Builtin("principles")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.Dimensions) != 8 {
		t.Fatalf("expected 8 principles, got %d", len(s.Dimensions))
	}
	for _, d := range s.Dimensions {
		if d.Mode != ModeQuantized {
			t.Errorf("%s: expected quantized mode, got %q", d.ID, d.Mode)
		}
		if diff := cmp.Diff([]float64{1.0, 0.5, -0.5, -1.0}, d.Levels); diff != "" {
			t.Errorf("%s: levels mismatch (-want +got):\n%s", d.ID, diff)
		}
	}
}

func TestBuiltin_Unknown(t *testing.T) {
	_, err := Builtin("nope")
	if err == nil {
		t.Fatal("expected error for unknown schema")
	}
	if !strings.Contains(err.Error(), "principles") {
		t.Errorf("expected error to list available schemas, got %v", err)
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	data := `
name: custom
dimensions:
  - id: clarity
    baseline: 0.5
  - id: kindness
    levels: [2, 1, 0]
    default: 1
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Aggregation != AggregateMeanAll {
		t.Errorf("expected default aggregation mean_all, got %q", s.Aggregation)
	}
	clarity := s.Dimensions[0]
	if clarity.Mode != ModeContinuous || clarity.Max != 1 || clarity.Label != "clarity" {
		t.Errorf("unexpected continuous defaults: %+v", clarity)
	}
	if s.Dimensions[1].Mode != ModeQuantized {
		t.Errorf("expected levels to imply quantized mode, got %q", s.Dimensions[1].Mode)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "duplicate ids",
			yaml:    "name: x\ndimensions:\n  - id: a\n  - id: a\n",
			wantErr: "duplicate dimension",
		},
		{
			name:    "baseline outside range",
			yaml:    "name: x\ndimensions:\n  - id: a\n    baseline: 3\n",
			wantErr: "baseline",
		},
		{
			name:    "nan baseline",
			yaml:    "name: x\ndimensions:\n  - id: a\n    baseline: .nan\n",
			wantErr: "baseline NaN is not finite",
		},
		{
			name:    "infinite max",
			yaml:    "name: x\ndimensions:\n  - id: a\n    max: .inf\n",
			wantErr: "max +Inf is not finite",
		},
		{
			name:    "nan min",
			yaml:    "name: x\ndimensions:\n  - id: a\n    min: .nan\n    max: 1\n",
			wantErr: "min NaN is not finite",
		},
		{
			name:    "default not a level",
			yaml:    "name: x\ndimensions:\n  - id: a\n    levels: [1, -1]\n    default: 0\n",
			wantErr: "not a declared level",
		},
		{
			name:    "repeated level",
			yaml:    "name: x\ndimensions:\n  - id: a\n    levels: [1, 1]\n    default: 1\n",
			wantErr: "declared twice",
		},
		{
			name:    "no dimensions",
			yaml:    "name: x\n",
			wantErr: "no dimensions",
		},
		{
			name:    "bad aggregation",
			yaml:    "name: x\naggregation: median\ndimensions:\n  - id: a\n",
			wantErr: "unknown aggregation",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLegalize_Quantized(t *testing.T) {
	d := Dimension{ID: "p", Mode: ModeQuantized, Levels: []float64{1.0, 0.5, -0.5, -1.0}, Default: 0.5}

	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"exact level", -0.5, -0.5},
		{"tie at zero resolves to earlier level", 0.0, 0.5},
		{"tie at 0.75 resolves to earlier level", 0.75, 1.0},
		{"tie at -0.75 resolves to earlier level", -0.75, -0.5},
		{"near top", 0.8, 1.0},
		{"above range clamps", 7, 1.0},
		{"below range clamps", -3, -1.0},
		{"nan uses default", math.NaN(), 0.5},
		{"negative infinity clamps", math.Inf(-1), -1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.Legalize(tt.in); got != tt.want {
				t.Errorf("Legalize(%g) = %g, want %g", tt.in, got, tt.want)
			}
		})
	}
}

func TestLegalize_Continuous(t *testing.T) {
	d := Dimension{ID: "c", Mode: ModeContinuous, Min: 0, Max: 1, Baseline: 0.1}

	tests := []struct {
		in, want float64
	}{
		{0.42, 0.42},
		{-0.2, 0},
		{1.7, 1},
		{math.NaN(), 0.1},
	}
	for _, tt := range tests {
		if got := d.Legalize(tt.in); got != tt.want {
			t.Errorf("Legalize(%g) = %g, want %g", tt.in, got, tt.want)
		}
	}
}

func TestAggregate(t *testing.T) {
	risk, err := Builtin("risk")
	if err != nil {
		t.Fatal(err)
	}
	// positive is excluded; mean of the remaining four.
	got := risk.Aggregate([]float64{0.9, 0.1, 0.2, 0.3, 0.4})
	if math.Abs(got-0.25) > 1e-9 {
		t.Errorf("risk aggregate = %g, want 0.25", got)
	}

	principles, err := Builtin("principles")
	if err != nil {
		t.Fatal(err)
	}
	got = principles.Aggregate([]float64{1, 1, 1, 1, -1, -1, -1, -1})
	if got != 0 {
		t.Errorf("principles aggregate = %g, want 0", got)
	}
}
