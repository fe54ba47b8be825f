package diag

import "github.com/fatih/color"

// Module tag constructors for the pass's subsystems, one colour per
// package (gospal's convention: block.go uses color.GreenString("block"),
// instr.go color.RedString("instr"), pkg.go color.BlueString("pkg  ")).
// Functions, not package-level vars, so color.NoColor — set by
// nodebug.go's New() — is honoured by every tag built after that call:
// fatih/color reads it per call, and a var initializer would run before
// New() ever gets a chance to set it. A tag built before the first New()
// call (such as the argument passed to that call) is still coloured.
func TagDomTree() string  { return color.CyanString("domtree") }
func TagLoopInfo() string { return color.YellowString("loopinfo") }
func TagCanon() string    { return color.MagentaString("canon") }
func TagMatcher() string  { return color.GreenString("matcher") }
func TagRewrite() string  { return color.RedString("rewrite") }
func TagFrontend() string { return color.BlueString("frontend") }
func TagPass() string     { return color.WhiteString("loop2cilk") }
