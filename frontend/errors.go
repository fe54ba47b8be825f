package frontend

import (
	"fmt"

	gossa "golang.org/x/tools/go/ssa"
)

// Every rejection frontend.Lower produces is recoverable at the call site
// (mirroring loop2cilk/errors.go): a function that doesn't match the
// idiom, or uses a construct this lowerer doesn't translate, is skipped
// and the caller moves on to the next function.

// IdiomNotFound: fn has no detach/sync-framed for loop in its entry chain.
type IdiomNotFound struct {
	Fn     *gossa.Function
	Reason string
}

func (e *IdiomNotFound) Error() string {
	return fmt.Sprintf("frontend: %s: idiom not found: %s", e.Fn.Name(), e.Reason)
}

// UnsupportedConstruct: fn uses an SSA instruction or type this
// single-idiom lowerer does not translate.
type UnsupportedConstruct struct {
	Fn     *gossa.Function
	Detail string
}

func (e *UnsupportedConstruct) Error() string {
	return fmt.Sprintf("frontend: %s: unsupported construct: %s", e.Fn.Name(), e.Detail)
}
