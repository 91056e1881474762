//go:build linux

package hostmem

import (
	"fmt"
	"math"

	"golang.org/x/sys/unix"
)

func total() (int64, error) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return 0, fmt.Errorf("hostmem: sysinfo: %w", err)
	}
	unit := uint64(info.Unit)
	if unit == 0 {
		unit = 1
	}
	bytes := uint64(info.Totalram) * unit
	if bytes > math.MaxInt64 {
		return math.MaxInt64, nil
	}
	return int64(bytes), nil
}
