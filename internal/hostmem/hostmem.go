// Package hostmem reports the memory of the local machine, used as the
// per-node capacity when a plan is requested with node memory "auto".
package hostmem

import "errors"

var ErrUnsupported = errors.New("hostmem: total memory not available on this platform")

// Total returns the physical memory of the host in bytes.
func Total() (int64, error) {
	return total()
}
