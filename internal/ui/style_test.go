package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	m.Run()
}

func TestOperator_StableColor(t *testing.T) {
	if operatorColorIndex("MUL") != operatorColorIndex("MUL") {
		t.Fatal("expected the same operator to hash to the same color")
	}
	if got := Operator("ADD"); got != "ADD" {
		t.Errorf("expected plain ADD without color, got %q", got)
	}
}

func TestCritical(t *testing.T) {
	if got := Critical(true); got != CriticalMarker {
		t.Errorf("expected %q, got %q", CriticalMarker, got)
	}
	if got := Critical(false); got != "  " {
		t.Errorf("expected two-column blank, got %q", got)
	}
}

func TestBar(t *testing.T) {
	tests := []struct {
		frac float64
		want string
	}{
		{0, "░░░░"},
		{0.5, "██░░"},
		{1, "████"},
		{1.7, "████"},
		{-1, "░░░░"},
	}
	for _, tc := range tests {
		if got := Bar(tc.frac, 4); got != tc.want {
			t.Errorf("Bar(%v, 4) = %q, want %q", tc.frac, got, tc.want)
		}
	}
}

func TestUtilization(t *testing.T) {
	if got := Utilization(0.75); got != " 75.0%" {
		t.Errorf("expected \" 75.0%%\", got %q", got)
	}
}

func TestPrintLogo(t *testing.T) {
	var buf bytes.Buffer
	PrintLogo(&buf)
	if !strings.Contains(buf.String(), "H  L  S  C  H  E  D") {
		t.Errorf("expected banner text, got %q", buf.String())
	}
}
