//go:build linux || darwin

package sweep

import "golang.org/x/sys/unix"

// reservedFiles is kept free for stdio, the resolver and the logger
const reservedFiles = 32

// maxOpenProbes returns how many probes can hold a descriptor at once,
// derived from the RLIMIT_NOFILE soft limit. 0 means no known cap.
func maxOpenProbes() int {
	var rlimit unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rlimit); err != nil {
		return 0
	}
	if rlimit.Cur > uint64(MaxHosts+reservedFiles) {
		return 0
	}
	if rlimit.Cur <= reservedFiles {
		return 1
	}
	return int(rlimit.Cur) - reservedFiles
}
