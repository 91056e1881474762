//go:build !linux

package hostmem

func total() (int64, error) {
	return 0, ErrUnsupported
}
