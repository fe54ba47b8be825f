package ir

import (
	"bytes"
	"fmt"
	"io"
)

// WriteTo writes fn to w in a human-readable textual form, in the style of
// ssa.Function.WriteTo from golang.org/x/tools/go/ssa (one instruction per
// line, blocks labelled by index). Grounded on gospal's ssa/print.go
// WriteTo, adapted from whole-program-of-Functions to a single Function,
// since every analysis here ever looks at one function/loop at a time.
func (f *Function) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "func %s:\n", f.Name_)
	for _, b := range f.Blocks {
		fmt.Fprintf(&buf, "%d:                                %s\n", b.Index, b.Comment)
		for _, instr := range b.Instrs {
			if instr.Name() != "" {
				fmt.Fprintf(&buf, "\t%s = %s\n", instr.Name(), instr.String())
			} else {
				fmt.Fprintf(&buf, "\t%s\n", instr.String())
			}
		}
	}
	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

func (f *Function) String() string {
	var buf bytes.Buffer
	f.WriteTo(&buf)
	return buf.String()
}
