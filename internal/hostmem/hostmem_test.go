package hostmem

import (
	"errors"
	"runtime"
	"testing"
)

func TestTotal(t *testing.T) {
	t.Parallel()

	n, err := Total()
	if runtime.GOOS != "linux" {
		if !errors.Is(err, ErrUnsupported) {
			t.Fatalf("expected ErrUnsupported on %s, got %v", runtime.GOOS, err)
		}
		return
	}
	if err != nil {
		t.Fatalf("Total: %v", err)
	}
	if n <= 0 {
		t.Fatalf("expected positive memory, got %d", n)
	}
}
