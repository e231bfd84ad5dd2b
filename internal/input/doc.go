// Package input reads scheduling problems: the graph description, the timing
// table and the constraint table.
//
// Three encodings are supported. The line-oriented text files
//
//	graph:        N, then "id, [c1 c2 ...], OP" per line
//	timing:       "OP cycles" per line
//	constraints:  "OP units" per line
//
// a JSON document holding the graph (and optionally both tables), and an HCL
// operator library declaring both tables as operator blocks.
package input
