package input

import "fmt"

// ParseError reports a syntax problem at a line of an input.
type ParseError struct {
	Source string // file name or input kind
	Line   int
	Msg    string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.Source, e.Line, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Source, e.Msg)
}
