//go:build linux

package affinity

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func setThreadNice(nice int) error {
	// PRIO_PROCESS with a thread id applies to that thread only.
	if err := unix.Setpriority(unix.PRIO_PROCESS, unix.Gettid(), nice); err != nil {
		return fmt.Errorf("setpriority(%d): %w", nice, err)
	}
	return nil
}
