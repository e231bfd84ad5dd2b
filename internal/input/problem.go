package input

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joshharrison/hlsched/internal/graph"
	"github.com/joshharrison/hlsched/internal/oplib"
)

// Graph formats accepted by LoadGraphFile.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatAuto = ""
)

// Problem is a complete scheduling input.
type Problem struct {
	Total   int // declared node count, -1 when not given
	Records []graph.Record
	Library *oplib.Library
}

// Sources names the files a problem is assembled from. Empty fields are skipped.
type Sources struct {
	Graph       string
	GraphFormat string // text, json, or empty to pick by extension
	Timing      string
	Constraints string
	Library     string // HCL operator library
}

// LoadGraphFile reads a graph in the given format. With FormatAuto, files
// ending in .json are parsed as JSON and everything else as text.
func LoadGraphFile(path, format string) (int, []graph.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, nil, fmt.Errorf("read graph: %w", err)
	}
	if format == FormatAuto {
		format = FormatText
		if strings.EqualFold(filepath.Ext(path), ".json") {
			format = FormatJSON
		}
	}
	switch format {
	case FormatText:
		return ReadGraph(strings.NewReader(string(data)), path)
	case FormatJSON:
		return ParseGraphJSON(data, path)
	default:
		return 0, nil, fmt.Errorf("unsupported graph format %q (use text or json)", format)
	}
}

// Load assembles a Problem from files. The HCL library is read first and the
// text tables are layered over it, so an operator given in both takes its
// text values.
func Load(src Sources) (*Problem, error) {
	if src.Graph == "" {
		return nil, fmt.Errorf("no graph file given")
	}
	total, records, err := LoadGraphFile(src.Graph, src.GraphFormat)
	if err != nil {
		return nil, err
	}

	lib, err := LoadLibrary(src)
	if err != nil {
		return nil, err
	}
	return &Problem{Total: total, Records: records, Library: lib}, nil
}

// LoadLibrary builds the operator library from the HCL file and text tables in src.
func LoadLibrary(src Sources) (*oplib.Library, error) {
	lib := oplib.New(nil, nil)
	if src.Library != "" {
		hclLib, err := LoadLibraryFile(src.Library)
		if err != nil {
			return nil, err
		}
		lib = lib.Merge(hclLib)
	}

	text := oplib.New(nil, nil)
	if src.Timing != "" {
		t, err := LoadTimingFile(src.Timing)
		if err != nil {
			return nil, err
		}
		text.Timing = t
	}
	if src.Constraints != "" {
		c, err := LoadConstraintsFile(src.Constraints)
		if err != nil {
			return nil, err
		}
		text.Constraints = c
	}
	lib = lib.Merge(text)

	if err := lib.Check(); err != nil {
		return nil, err
	}
	return lib, nil
}
