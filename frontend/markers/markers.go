// Package markers provides the two marker functions frontend.Lower
// recognizes as the textual idiom for a detach/sync-framed parallel loop:
//
//	for i := 0; i < n; i++ {
//		markers.Detach()
//		... loop body ...
//	}
//	markers.Sync()
//
// A real build links and calls these as ordinary no-ops; a Detach()/Sync()
// pair bracketing a for loop that frontend.Lower cannot match is simply
// compiled as two function calls that do nothing.
package markers

// Detach marks where a loop iteration's body becomes a logically-concurrent
// child task. Lowered into an ir.Detach terminator by frontend.Lower; a
// no-op outside that lowering.
func Detach() {}

// Sync marks the join point for all iterations detached since the
// enclosing function's entry (or since the previous Sync). Lowered into an
// ir.Sync terminator by frontend.Lower; a no-op outside that lowering.
func Sync() {}
