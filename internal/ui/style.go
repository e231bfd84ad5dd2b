package ui

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Sprint color functions for building styled strings.
var (
	Bold        = color.New(color.Bold).SprintFunc()
	Dim         = color.New(color.Faint).SprintFunc()
	Cyan        = color.New(color.FgCyan).SprintFunc()
	Green       = color.New(color.FgGreen).SprintFunc()
	Red         = color.New(color.FgRed).SprintFunc()
	Yellow      = color.New(color.FgYellow).SprintFunc()
	BoldCyan    = color.New(color.Bold, color.FgCyan).SprintFunc()
	BoldGreen   = color.New(color.Bold, color.FgGreen).SprintFunc()
	BoldRed     = color.New(color.Bold, color.FgRed).SprintFunc()
	BoldYellow  = color.New(color.Bold, color.FgYellow).SprintFunc()
	BoldMagenta = color.New(color.Bold, color.FgMagenta).SprintFunc()
	BoldWhite   = color.New(color.Bold, color.FgWhite).SprintFunc()
)

// CriticalMarker is printed next to zero-slack operations.
const CriticalMarker = "⚡"

// PrintLogo renders the colored hlsched banner to w.
func PrintLogo(w io.Writer) {
	frame := color.New(color.FgCyan)
	units := color.New(color.FgYellow)
	wires := color.New(color.FgCyan, color.Faint)
	brand := color.New(color.Bold, color.FgMagenta)
	tag := color.New(color.Faint)

	fmt.Fprintln(w)
	frame.Fprintln(w, "   +-------------------------+")
	units.Fprintln(w, "   |  [+]  [*]  [-]  [+]  [*] |")
	wires.Fprintln(w, "   |   |    |    |    |    |  |")
	brand.Fprintln(w, "   |   H  L  S  C  H  E  D   |")
	wires.Fprintln(w, "   |   |    |    |    |    |  |")
	frame.Fprintln(w, "   +-------------------------+")
	tag.Fprintln(w, "   Resource-constrained list scheduling")
	fmt.Fprintln(w)
}

// operatorColors is a palette of distinct bold colors for telling operators apart.
var operatorColors = []func(a ...interface{}) string{
	BoldMagenta,
	BoldCyan,
	BoldYellow,
	BoldGreen,
	color.New(color.Bold, color.FgHiBlue).SprintFunc(),
	color.New(color.Bold, color.FgHiRed).SprintFunc(),
}

// operatorColorIndex hashes an operator name to a palette index.
func operatorColorIndex(op string) int {
	var h uint32
	for _, c := range op {
		h = h*31 + uint32(c)
	}
	return int(h % uint32(len(operatorColors)))
}

// Operator returns op in its palette color. The same name always gets the
// same color.
func Operator(op string) string {
	return operatorColors[operatorColorIndex(op)](op)
}

// Critical returns the critical marker for zero-slack operations and two
// spaces otherwise, the marker's usual terminal width.
func Critical(isCritical bool) string {
	if isCritical {
		return BoldYellow(CriticalMarker)
	}
	return "  "
}

// Slack returns a colored slack value: zero is highlighted, small values are
// yellow, the rest dimmed.
func Slack(slack int) string {
	s := fmt.Sprintf("%d", slack)
	switch {
	case slack == 0:
		return BoldYellow(s)
	case slack <= 2:
		return Yellow(s)
	default:
		return Dim(s)
	}
}

// Utilization returns a percentage colored by how busy the units were.
func Utilization(frac float64) string {
	s := fmt.Sprintf("%5.1f%%", frac*100)
	switch {
	case frac >= 0.75:
		return Green(s)
	case frac >= 0.25:
		return Yellow(s)
	default:
		return Red(s)
	}
}

// Bar renders frac as a fixed-width bar.
func Bar(frac float64, width int) string {
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	filled := int(frac*float64(width) + 0.5)
	out := ""
	for i := 0; i < width; i++ {
		if i < filled {
			out += "█"
		} else {
			out += "░"
		}
	}
	return Cyan(out)
}
