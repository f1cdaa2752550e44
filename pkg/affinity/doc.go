// Package affinity runs tasks on a single goroutine pinned to one OS thread.
//
// A Loop owns the state of one component. Other goroutines never touch that
// state directly; they Post a task, or Call one and wait for it to run. Tasks
// posted before Start are held and execute, once each and in submission
// order, after the loop starts.
//
// Tasks receive a context that identifies the loop. Passing that context back
// into Call runs the task inline, so code already executing on the loop can
// use the same entry points as foreign callers without deadlocking.
package affinity
