package input

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/joshharrison/hlsched/internal/oplib"
)

// hclLibraryFile is the top-level structure of an operator library file:
//
//	operator "MUL" {
//	  cycles = 2
//	  units  = 1
//	}
type hclLibraryFile struct {
	Operators []*hclOperator `hcl:"operator,block"`
}

type hclOperator struct {
	Name   string `hcl:"name,label"`
	Cycles *int   `hcl:"cycles,optional"`
	Units  *int   `hcl:"units,optional"`
}

// ParseLibraryHCL decodes an operator library from HCL source.
func ParseLibraryHCL(src []byte, filename string) (*oplib.Library, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}
	return decodeLibrary(file, filename)
}

// LoadLibraryFile reads and decodes an operator library file.
func LoadLibraryFile(path string) (*oplib.Library, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}
	return decodeLibrary(file, path)
}

func decodeLibrary(file *hcl.File, filename string) (*oplib.Library, error) {
	var parsed hclLibraryFile
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}

	lib := oplib.New(nil, nil)
	for _, op := range parsed.Operators {
		if _, dup := lib.Timing[op.Name]; dup {
			return nil, &ParseError{Source: filename, Msg: fmt.Sprintf("duplicate operator %q block", op.Name)}
		}
		if _, dup := lib.Constraints[op.Name]; dup {
			return nil, &ParseError{Source: filename, Msg: fmt.Sprintf("duplicate operator %q block", op.Name)}
		}
		if op.Cycles == nil && op.Units == nil {
			return nil, &ParseError{Source: filename, Msg: fmt.Sprintf("operator %q sets neither cycles nor units", op.Name)}
		}
		if op.Cycles != nil {
			lib.Timing[op.Name] = *op.Cycles
		}
		if op.Units != nil {
			lib.Constraints[op.Name] = *op.Units
		}
	}
	return lib, nil
}
