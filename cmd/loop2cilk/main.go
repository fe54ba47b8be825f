// Command loop2cilk is the command line entry point to the detach/sync
// loop-to-cilk_for rewriter.
package main

import (
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"os"

	"github.com/nickng/loop2cilk/diag"
	"github.com/nickng/loop2cilk/frontend"
	"github.com/nickng/loop2cilk/loop2cilk"
	"github.com/nickng/loop2cilk/verify"
)

const usage = `loop2cilk rewrites detach/sync-framed parallel loops into cilk_for calls.

Usage:

  loop2cilk [options] file.go [files.go...]

Options:

`

var (
	logPath string
	showRaw bool
)

func init() {
	flag.StringVar(&logPath, "log", "", "Write build/lowering diagnostics to file (use '-' for stderr)")
	flag.BoolVar(&showRaw, "raw", false, "Print every function, including ones the pass left unchanged")
}

func main() {
	flag.Parse()
	if flag.NArg() == 0 {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
		os.Exit(0)
	}

	buildLog := log.New(ioutil.Discard, "", log.LstdFlags)
	switch logPath {
	case "":
	case "-":
		buildLog.SetOutput(os.Stderr)
	default:
		f, err := os.Create(logPath)
		if err != nil {
			log.Fatalf("loop2cilk: cannot create log %s: %v", logPath, err)
		}
		defer f.Close()
		buildLog.SetOutput(f)
	}

	info, err := frontend.FromFiles(flag.Args())
	if err != nil {
		log.Fatal("loop2cilk: build failed: ", err)
	}

	prog, lowerErrs := frontend.Lower(info.Prog)
	for _, e := range lowerErrs {
		buildLog.Printf("skipping function: %v", e)
	}

	passLog := diag.New(diag.TagPass())
	defer passLog.Sync()

	pass := &loop2cilk.Pass{Log: passLog}
	for _, fn := range prog.Funcs {
		changed, errs := pass.RunOnFunction(fn)
		for _, e := range errs {
			buildLog.Printf("%s: %v", fn.Name(), e)
		}
		if changed {
			if err := verify.Function(fn); err != nil {
				passLog.Panicf("%s: verifier failed after rewrite: %v", fn.Name(), err)
			}
		}
		if changed || showRaw {
			fn.WriteTo(os.Stdout)
		}
	}
}
