package system

import (
	"log/slog"
	"syscall"
)

// InitResourceLimits raises the open-file soft limit. Frame sequences
// produce many small PNGs and the default limit is easy to exhaust when
// several jobs run at once.
func InitResourceLimits() {
	var rLimit syscall.Rlimit
	err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		slog.Warn("failed to read open file limit", "error", err)
		return
	}

	rLimit.Cur = 2048
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}

	err = syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		slog.Warn("failed to raise open file limit", "error", err)
	} else {
		slog.Debug("open file limit raised", "limit", rLimit.Cur)
	}
}
