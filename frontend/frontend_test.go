package frontend_test

import (
	"testing"

	"github.com/nickng/loop2cilk/frontend"
	"github.com/nickng/loop2cilk/ir"
	"github.com/nickng/loop2cilk/loop2cilk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const detachSyncSrc = `package sample

import "github.com/nickng/loop2cilk/frontend/markers"

func Walk(n int64) {
	for i := int64(0); i < n; i++ {
		markers.Detach()
	}
	markers.Sync()
}
`

func TestLowerRecognizesDetachSyncIdiom(t *testing.T) {
	info, err := frontend.FromSource(detachSyncSrc)
	require.NoError(t, err)

	prog, errs := frontend.Lower(info.Prog)
	require.Empty(t, errs)

	require.Len(t, prog.Funcs, 1)
	fn := prog.Funcs[0]
	assert.Equal(t, "Walk", fn.Name())
	require.Len(t, fn.Params, 1)
	assert.Equal(t, ir.I64, fn.Params[0].Type())

	var sawDetach, sawSync bool
	for _, b := range fn.Blocks {
		switch b.Term().(type) {
		case *ir.Detach:
			sawDetach = true
		case *ir.Sync:
			sawSync = true
		}
	}
	assert.True(t, sawDetach, "lowered function must keep a Detach terminator")
	assert.True(t, sawSync, "lowered function must keep a Sync terminator")
}

func TestLoweredFunctionSurvivesThePass(t *testing.T) {
	info, err := frontend.FromSource(detachSyncSrc)
	require.NoError(t, err)

	prog, errs := frontend.Lower(info.Prog)
	require.Empty(t, errs)
	require.Len(t, prog.Funcs, 1)

	pass := &loop2cilk.Pass{}
	changed, errs := pass.RunOnFunction(prog.Funcs[0])
	assert.Empty(t, errs)
	assert.True(t, changed, "the lowered detach/sync loop should be rewritten into a cilk_for call")
}

func TestLowerRejectsFunctionWithoutTheIdiom(t *testing.T) {
	const src = `package sample

func Plain(n int64) int64 {
	var total int64
	for i := int64(0); i < n; i++ {
		total += i
	}
	return total
}
`
	info, err := frontend.FromSource(src)
	require.NoError(t, err)

	prog, errs := frontend.Lower(info.Prog)
	assert.NotEmpty(t, errs, "a loop with no Detach/Sync markers must be reported, not silently lowered")
	assert.Empty(t, prog.Funcs)
}
