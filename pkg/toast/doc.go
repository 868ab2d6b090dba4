// Package toast holds the transient notices a widget shows.
//
// A Board has one error slot and one success slot. Showing a notice replaces
// whatever occupied the slot and reschedules its dismissal, so at most one
// error and one success notice are ever visible:
//
//	board := toast.NewBoard(loop)
//	board.OnChange = ctrl.invalidate
//	board.Error("Supported types is: .pdf")
//
// Dismissal callbacks are delivered through the Scheduler, which must run
// them on the same event loop that calls the Board.
package toast
