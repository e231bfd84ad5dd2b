package input

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/joshharrison/hlsched/internal/graph"
	"github.com/joshharrison/hlsched/internal/oplib"
)

// ParseGraphJSON reads {"count": N, "nodes": [{"id", "children", "op"}]}.
// A missing count is returned as -1.
func ParseGraphJSON(data []byte, source string) (int, []graph.Record, error) {
	if !gjson.ValidBytes(data) {
		return 0, nil, &ParseError{Source: source, Msg: "invalid JSON"}
	}
	doc := gjson.ParseBytes(data)

	total := -1
	if c := doc.Get("count"); c.Exists() {
		n, ok := intValue(c)
		if !ok || n < 0 {
			return 0, nil, &ParseError{Source: source, Msg: fmt.Sprintf("invalid count %s", c.Raw)}
		}
		total = n
	}

	nodes := doc.Get("nodes")
	if !nodes.IsArray() {
		return 0, nil, &ParseError{Source: source, Msg: `"nodes" must be an array`}
	}

	var records []graph.Record
	var perr error
	nodes.ForEach(func(_, node gjson.Result) bool {
		rec, err := parseNodeJSON(node, len(records))
		if err != nil {
			perr = &ParseError{Source: source, Msg: err.Error()}
			return false
		}
		records = append(records, rec)
		return true
	})
	if perr != nil {
		return 0, nil, perr
	}
	return total, records, nil
}

func parseNodeJSON(node gjson.Result, index int) (graph.Record, error) {
	if !node.IsObject() {
		return graph.Record{}, fmt.Errorf("nodes[%d]: expected object", index)
	}
	id, ok := intValue(node.Get("id"))
	if !ok {
		return graph.Record{}, fmt.Errorf("nodes[%d]: missing integer id", index)
	}
	op := node.Get("op")
	if op.Type != gjson.String {
		return graph.Record{}, fmt.Errorf("nodes[%d]: missing operator", index)
	}

	rec := graph.Record{ID: id, Operator: op.String()}
	children := node.Get("children")
	if children.Exists() && !children.IsArray() {
		return graph.Record{}, fmt.Errorf("nodes[%d]: children must be an array", index)
	}
	for _, c := range children.Array() {
		child, ok := intValue(c)
		if !ok {
			return graph.Record{}, fmt.Errorf("nodes[%d]: invalid child %s", index, c.Raw)
		}
		rec.Children = append(rec.Children, child)
	}
	return rec, nil
}

// ParseProblemJSON reads a graph document that also carries "timing" and
// "constraints" objects mapping operator names to counts.
func ParseProblemJSON(data []byte, source string) (*Problem, error) {
	total, records, err := ParseGraphJSON(data, source)
	if err != nil {
		return nil, err
	}
	doc := gjson.ParseBytes(data)

	timing, err := parseTableJSON(doc.Get("timing"), source, "timing")
	if err != nil {
		return nil, err
	}
	constraints, err := parseTableJSON(doc.Get("constraints"), source, "constraints")
	if err != nil {
		return nil, err
	}

	return &Problem{
		Total:   total,
		Records: records,
		Library: oplib.New(oplib.Timing(timing), oplib.Constraints(constraints)),
	}, nil
}

func parseTableJSON(v gjson.Result, source, name string) (map[string]int, error) {
	if !v.Exists() {
		return nil, &ParseError{Source: source, Msg: fmt.Sprintf("missing %q object", name)}
	}
	if !v.IsObject() {
		return nil, &ParseError{Source: source, Msg: fmt.Sprintf("%q must be an object", name)}
	}
	table := make(map[string]int)
	var perr error
	v.ForEach(func(key, val gjson.Result) bool {
		n, ok := intValue(val)
		if !ok {
			perr = &ParseError{Source: source, Msg: fmt.Sprintf("%s.%s: expected an integer, got %s", name, key.String(), val.Raw)}
			return false
		}
		table[key.String()] = n
		return true
	})
	if perr != nil {
		return nil, perr
	}
	return table, nil
}

// intValue returns v as an int if it is a number with no fractional part.
func intValue(v gjson.Result) (int, bool) {
	if v.Type != gjson.Number || float64(v.Int()) != v.Num {
		return 0, false
	}
	return int(v.Int()), true
}
