// Package frontend lowers ordinary Go source into loop2cilk's ir.Function
// values, so the pass has real inputs to run against without inventing a
// textual IR format of its own.
//
// Building the whole-program SSA is grounded directly on gospal's
// ssa/build package (Config/Configurer, FromFiles): the same
// golang.org/x/tools/go/loader + golang.org/x/tools/go/ssa/ssautil
// pipeline, renamed to this domain. go/packages is not layered on top of
// it: loader.Config already performs the load-and-type-check step
// go/packages would otherwise duplicate, and gospal's own stack never
// reaches for it either.
package frontend

import (
	"fmt"
	"go/build"
	"go/token"
	"strings"

	"golang.org/x/tools/go/loader"
	gossa "golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// Info holds a loaded, type-checked, SSA-built whole program, mirroring
// gospal's ssa.Info.
type Info struct {
	FSet  *token.FileSet
	Prog  *gossa.Program
	LProg *loader.Program
}

// FromFiles type-checks and SSA-builds files as a single package, the way
// ssa/build.FromFiles does for gospal.
func FromFiles(files []string) (*Info, error) {
	var lconf = loader.Config{Build: &build.Default}
	args, err := lconf.FromArgs(files, false /* no tests */)
	if err != nil {
		return nil, err
	}
	if len(args) > 0 {
		return nil, fmt.Errorf("frontend: surplus arguments: %q", args)
	}
	return build2(&lconf)
}

// FromSource type-checks and SSA-builds src as a single in-memory file
// (nothing is written to disk; imports resolve from the current working
// directory), mirroring ssa/build's CachedSrc/FromReader path (used by this
// package's own tests, and any caller demoing the lowerer without files on
// disk).
func FromSource(src string) (*Info, error) {
	var lconf = loader.Config{Build: &build.Default}
	parsed, err := lconf.ParseFile("loop2cilk_frontend_src.go", strings.NewReader(src))
	if err != nil {
		return nil, err
	}
	lconf.CreateFromFiles("", parsed)
	return build2(&lconf)
}

func build2(lconf *loader.Config) (*Info, error) {
	lprog, err := lconf.Load()
	if err != nil {
		return nil, err
	}
	prog := ssautil.CreateProgram(lprog, gossa.BareInits)
	prog.Build()
	return &Info{FSet: lprog.Fset, Prog: prog, LProg: lprog}, nil
}
