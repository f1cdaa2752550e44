//go:build !linux

package affinity

func setThreadNice(int) error { return nil }
