// Package reporter renders pipeline results as plain text tables, a colored
// terminal summary, and JSON.
package reporter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joshharrison/hlsched/internal/graph"
	"github.com/joshharrison/hlsched/internal/pipeline"
	"github.com/joshharrison/hlsched/internal/ui"
)

// File names written by WriteFiles.
const (
	ASAPFile     = "asap.txt"
	ALAPFile     = "alap.txt"
	SlackFile    = "slack.txt"
	ScheduleFile = "schedule.txt"
	ResultFile   = "result.json"
)

// Reporter writes the outputs of one pipeline run.
type Reporter struct {
	Result *pipeline.Result
}

// New creates a new Reporter.
func New(res *pipeline.Result) *Reporter {
	return &Reporter{Result: res}
}

// WriteGraph lists every node of g with its children, parents and operator.
func WriteGraph(w io.Writer, g *graph.DFG) error {
	for _, id := range g.IDs() {
		op := g.Node(id)
		if _, err := fmt.Fprintf(w, "ID: %d, Children: %s, Parents: %s, Operator: %s\n",
			id, formatIDs(op.Children), formatIDs(op.Parents), op.Operator); err != nil {
			return err
		}
	}
	return nil
}

// WriteASAP writes "id asap" per node followed by the ASAP finish time.
func (r *Reporter) WriteASAP(w io.Writer) error {
	return r.writeColumn(w, func(n pipeline.NodeResult) int { return n.ASAP },
		fmt.Sprintf("ASAP finish time: %d", r.Result.Analysis.ASAPFinish))
}

// WriteALAP writes "id alap" per node followed by the ALAP finish time.
func (r *Reporter) WriteALAP(w io.Writer) error {
	return r.writeColumn(w, func(n pipeline.NodeResult) int { return n.ALAP },
		fmt.Sprintf("ALAP finish time: %d", r.Result.Analysis.ALAPFinish))
}

// WriteSlack writes "id slack" per node.
func (r *Reporter) WriteSlack(w io.Writer) error {
	return r.writeColumn(w, func(n pipeline.NodeResult) int { return n.Slack }, "")
}

func (r *Reporter) writeColumn(w io.Writer, value func(pipeline.NodeResult) int, footer string) error {
	var b bytes.Buffer
	for _, n := range r.Result.Nodes {
		fmt.Fprintf(&b, "%d %d\n", n.ID, value(n))
	}
	if footer != "" {
		fmt.Fprintln(&b, footer)
	}
	_, err := w.Write(b.Bytes())
	return err
}

// WriteSchedule writes one row per dispatched node in dispatch order, then
// the total time. It fails if the run stopped before scheduling.
func (r *Reporter) WriteSchedule(w io.Writer) error {
	sched := r.Result.Schedule
	if sched == nil {
		return fmt.Errorf("result has no schedule")
	}

	var b bytes.Buffer
	fmt.Fprintln(&b, "id operator ready start finish unit")
	for _, e := range sched.Entries {
		fmt.Fprintf(&b, "%d %s %d %d %d %d\n",
			e.ID, e.Operator, e.ReadyTime, e.StartTime, e.FinishTime, e.Unit)
	}
	fmt.Fprintf(&b, "Total time: %d\n", sched.TotalTime)

	_, err := w.Write(b.Bytes())
	return err
}

// PrintSummary writes a colored, human-readable summary: totals, the
// critical path, the ASAP steps and per-operator unit utilization.
func (r *Reporter) PrintSummary(w io.Writer) {
	res := r.Result
	a := res.Analysis

	fmt.Fprintf(w, "\n%s\n", ui.BoldCyan("hlsched Schedule Summary"))
	fmt.Fprintf(w, "%s\n", ui.Cyan("════════════════════════"))
	fmt.Fprintf(w, "Nodes:        %d\n", res.TotalNodes)
	fmt.Fprintf(w, "ASAP finish:  %s\n", ui.Bold(a.ASAPFinish))
	if res.Schedule != nil {
		fmt.Fprintf(w, "Total time:   %s\n", ui.Bold(res.Schedule.TotalTime))
		fmt.Fprintf(w, "Cycles:       %d\n", res.Schedule.Cycles)
	}

	if len(a.CriticalPath) > 0 {
		fmt.Fprintf(w, "Critical:     %s\n",
			ui.BoldYellow(ui.CriticalMarker+" "+joinIDs(a.CriticalPath, " → ")))
	}
	fmt.Fprintln(w)

	for _, step := range a.Steps {
		fmt.Fprintf(w, "  %s %d  %s  (t=%d, %d ops)\n",
			ui.BoldWhite("Step"), step.Index+1,
			ui.Critical(step.IsCritical), step.Time, len(step.IDs))
		for _, id := range step.IDs {
			n, ok := res.Node(id)
			if !ok {
				continue
			}
			r.printNode(w, n)
		}
	}

	if res.Schedule == nil {
		return
	}

	fmt.Fprintf(w, "\n%s\n", ui.Cyan("────────────────────────"))
	util := res.Schedule.Utilization()
	ops := make([]string, 0, len(res.Schedule.Units))
	for op := range res.Schedule.Units {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	for _, op := range ops {
		fmt.Fprintf(w, "  %-8s %d units  %s %s\n",
			ui.Operator(op), res.Schedule.Units[op], ui.Bar(util[op], 20), ui.Utilization(util[op]))
	}
}

func (r *Reporter) printNode(w io.Writer, n pipeline.NodeResult) {
	timeCol := ""
	if e := n.Schedule; e != nil {
		timeCol = ui.Dim(fmt.Sprintf("[start %d, finish %d, unit %d]", e.StartTime, e.FinishTime, e.Unit))
	}
	fmt.Fprintf(w, "    %s %-4s %-8s slack %s  %s\n",
		ui.Critical(n.IsCritical), ui.BoldMagenta(n.ID), ui.Operator(n.Operator), ui.Slack(n.Slack), timeCol)
}

// Summary returns a short one-paragraph summary string.
func (r *Reporter) Summary() string {
	var b strings.Builder
	res := r.Result
	fmt.Fprintf(&b, "%d nodes, ASAP finish %d, %d critical",
		res.TotalNodes, res.Analysis.ASAPFinish, len(res.Analysis.CriticalPath))
	if res.Schedule != nil {
		fmt.Fprintf(&b, ", total time %d", res.Schedule.TotalTime)
	}
	return b.String()
}

// JSON returns the whole result as indented JSON.
func (r *Reporter) JSON() ([]byte, error) {
	return json.MarshalIndent(r.Result, "", "  ")
}

// WriteFiles writes every table and the JSON result into dir, creating it
// if needed. The schedule file is skipped when the run has no schedule.
func (r *Reporter) WriteFiles(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	type output struct {
		name  string
		write func(io.Writer) error
	}
	outputs := []output{
		{ASAPFile, r.WriteASAP},
		{ALAPFile, r.WriteALAP},
		{SlackFile, r.WriteSlack},
	}
	if r.Result.Schedule != nil {
		outputs = append(outputs, output{ScheduleFile, r.WriteSchedule})
	}
	outputs = append(outputs, output{ResultFile, func(w io.Writer) error {
		data, err := r.JSON()
		if err != nil {
			return err
		}
		_, err = w.Write(append(data, '\n'))
		return err
	}})

	var written []string
	for _, o := range outputs {
		path := filepath.Join(dir, o.name)
		var b bytes.Buffer
		if err := o.write(&b); err != nil {
			return written, fmt.Errorf("render %s: %w", o.name, err)
		}
		if err := os.WriteFile(path, b.Bytes(), 0o644); err != nil {
			return written, fmt.Errorf("write %s: %w", o.name, err)
		}
		written = append(written, path)
	}
	return written, nil
}

func formatIDs(ids []int) string {
	return "[" + joinIDs(ids, ", ") + "]"
}

func joinIDs(ids []int, sep string) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, sep)
}
