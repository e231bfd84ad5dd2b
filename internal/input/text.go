package input

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/joshharrison/hlsched/internal/graph"
	"github.com/joshharrison/hlsched/internal/oplib"
)

// line is a non-blank, non-comment input line with its 1-based number.
type line struct {
	n    int
	text string
}

func readLines(r io.Reader) ([]line, error) {
	var out []line
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		n++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		out = append(out, line{n: n, text: text})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ReadGraph parses the text graph format. It returns the declared node count
// and one record per node line.
func ReadGraph(r io.Reader, source string) (int, []graph.Record, error) {
	lines, err := readLines(r)
	if err != nil {
		return 0, nil, fmt.Errorf("read %s: %w", source, err)
	}
	if len(lines) == 0 {
		return 0, nil, &ParseError{Source: source, Msg: "missing node count"}
	}

	total, err := strconv.Atoi(lines[0].text)
	if err != nil || total < 0 {
		return 0, nil, &ParseError{Source: source, Line: lines[0].n, Msg: fmt.Sprintf("invalid node count %q", lines[0].text)}
	}

	records := make([]graph.Record, 0, len(lines)-1)
	for _, l := range lines[1:] {
		rec, err := parseRecord(l.text)
		if err != nil {
			return 0, nil, &ParseError{Source: source, Line: l.n, Msg: err.Error()}
		}
		records = append(records, rec)
	}
	return total, records, nil
}

// parseRecord parses "id, [c1 c2], OP".
func parseRecord(s string) (graph.Record, error) {
	idPart, rest, ok := strings.Cut(s, ",")
	if !ok {
		return graph.Record{}, fmt.Errorf("expected \"id, [children], operator\", got %q", s)
	}
	id, err := strconv.Atoi(strings.TrimSpace(idPart))
	if err != nil {
		return graph.Record{}, fmt.Errorf("invalid node id %q", strings.TrimSpace(idPart))
	}

	rest = strings.TrimSpace(rest)
	if !strings.HasPrefix(rest, "[") {
		return graph.Record{}, fmt.Errorf("node %d: children must be bracketed", id)
	}
	end := strings.Index(rest, "]")
	if end < 0 {
		return graph.Record{}, fmt.Errorf("node %d: unterminated children list", id)
	}
	var children []int
	for _, f := range strings.FieldsFunc(rest[1:end], func(r rune) bool { return r == ' ' || r == ',' || r == '\t' }) {
		c, err := strconv.Atoi(f)
		if err != nil {
			return graph.Record{}, fmt.Errorf("node %d: invalid child id %q", id, f)
		}
		children = append(children, c)
	}

	opPart := strings.TrimSpace(rest[end+1:])
	opPart, ok = strings.CutPrefix(opPart, ",")
	if !ok {
		return graph.Record{}, fmt.Errorf("node %d: missing operator", id)
	}
	operator := strings.TrimSpace(opPart)
	if operator == "" || strings.ContainsAny(operator, " \t,") {
		return graph.Record{}, fmt.Errorf("node %d: invalid operator %q", id, operator)
	}

	return graph.Record{ID: id, Children: children, Operator: operator}, nil
}

// ReadTiming parses "OP cycles" lines.
func ReadTiming(r io.Reader, source string) (oplib.Timing, error) {
	t, err := readTable(r, source)
	return oplib.Timing(t), err
}

// ReadConstraints parses "OP units" lines.
func ReadConstraints(r io.Reader, source string) (oplib.Constraints, error) {
	c, err := readTable(r, source)
	return oplib.Constraints(c), err
}

func readTable(r io.Reader, source string) (map[string]int, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", source, err)
	}
	table := make(map[string]int, len(lines))
	for _, l := range lines {
		fields := strings.Fields(l.text)
		if len(fields) != 2 {
			return nil, &ParseError{Source: source, Line: l.n, Msg: fmt.Sprintf("expected \"OPERATOR count\", got %q", l.text)}
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, &ParseError{Source: source, Line: l.n, Msg: fmt.Sprintf("invalid count %q", fields[1])}
		}
		if _, dup := table[fields[0]]; dup {
			return nil, &ParseError{Source: source, Line: l.n, Msg: fmt.Sprintf("duplicate operator %s", fields[0])}
		}
		table[fields[0]] = n
	}
	return table, nil
}

// LoadTimingFile reads a timing table from path.
func LoadTimingFile(path string) (oplib.Timing, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open timing: %w", err)
	}
	defer f.Close()
	return ReadTiming(f, path)
}

// LoadConstraintsFile reads a constraint table from path.
func LoadConstraintsFile(path string) (oplib.Constraints, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open constraints: %w", err)
	}
	defer f.Close()
	return ReadConstraints(f, path)
}
