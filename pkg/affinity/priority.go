package affinity

// PriorityHook adjusts the scheduling priority of the calling OS thread.
// It is invoked once on the loop goroutine when the owning component starts.
type PriorityHook func() error

// NicePriority returns a hook that sets the nice value of the calling thread.
// On platforms without per-thread priorities the hook does nothing.
func NicePriority(nice int) PriorityHook {
	return func() error {
		return setThreadNice(nice)
	}
}
