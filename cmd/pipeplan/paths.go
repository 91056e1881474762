package main

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/samcharles93/pipeplan/internal/hostmem"
)

const (
	envBaseDir   = "PIPEPLAN_BASE_DIR"
	envOutputDir = "PIPEPLAN_OUTPUT_DIR"
)

// hostMemory is a small seam for tests.
var hostMemory = hostmem.Total

func resolveBaseDir(flag string) string {
	if dir := strings.TrimSpace(flag); dir != "" {
		return filepath.Clean(dir)
	}
	if dir := strings.TrimSpace(os.Getenv(envBaseDir)); dir != "" {
		return filepath.Clean(dir)
	}
	return "."
}

// resolveOutputDir returns "" when neither the flag nor the environment
// names a directory; callers then skip writing artifacts.
func resolveOutputDir(flag string) string {
	if dir := strings.TrimSpace(flag); dir != "" {
		return filepath.Clean(dir)
	}
	if dir := strings.TrimSpace(os.Getenv(envOutputDir)); dir != "" {
		return filepath.Clean(dir)
	}
	return ""
}

// parseNodes expands a node count list such as "1,2,4-8".
func parseNodes(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("node list is empty")
	}
	var out []int
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("empty entry in node list %q", s)
		}
		lo, hi, isRange := strings.Cut(part, "-")
		first, err := parseCount(lo)
		if err != nil {
			return nil, err
		}
		last := first
		if isRange {
			if last, err = parseCount(hi); err != nil {
				return nil, err
			}
			if last < first {
				return nil, fmt.Errorf("descending node range %q", part)
			}
		}
		for n := first; n <= last; n++ {
			out = append(out, n)
		}
	}
	return out, nil
}

func parseCount(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid node count %q", s)
	}
	if n < 1 {
		return 0, fmt.Errorf("node count must be positive, got %d", n)
	}
	return n, nil
}

var sizeUnits = []struct {
	suffix string
	scale  float64
}{
	// longest suffixes first so "GiB" is not read as "B"
	{"kib", 1 << 10},
	{"mib", 1 << 20},
	{"gib", 1 << 30},
	{"tib", 1 << 40},
	{"kb", 1e3},
	{"mb", 1e6},
	{"gb", 1e9},
	{"tb", 1e12},
	{"k", 1e3},
	{"m", 1e6},
	{"g", 1e9},
	{"t", 1e12},
	{"b", 1},
}

// parseSize parses a byte count with an optional decimal (K, M, G, T) or
// binary (KiB, MiB, GiB, TiB) suffix.
func parseSize(s string) (int64, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return 0, errors.New("size is empty")
	}
	lower := strings.ToLower(raw)
	num, scale := lower, 1.0
	for _, u := range sizeUnits {
		if strings.HasSuffix(lower, u.suffix) {
			num, scale = strings.TrimSpace(strings.TrimSuffix(lower, u.suffix)), u.scale
			break
		}
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid size %q", raw)
	}
	if v < 0 {
		return 0, fmt.Errorf("size must not be negative, got %q", raw)
	}
	b := v * scale
	if b >= math.MaxInt64 {
		return 0, fmt.Errorf("size %q overflows", raw)
	}
	return int64(b), nil
}

// resolveNodeMemory interprets the --node-memory value. "auto" uses this
// host's physical memory.
func resolveNodeMemory(s string) (int64, error) {
	if strings.EqualFold(strings.TrimSpace(s), "auto") {
		total, err := hostMemory()
		if err != nil {
			return 0, fmt.Errorf("node memory auto: %w", err)
		}
		return total, nil
	}
	return parseSize(s)
}

func formatBytes(bytes int64) string {
	const (
		kb = 1024
		mb = 1024 * kb
		gb = 1024 * mb
	)
	switch {
	case bytes >= gb:
		return fmt.Sprintf("%.1f GiB", float64(bytes)/float64(gb))
	case bytes >= mb:
		return fmt.Sprintf("%.1f MiB", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.1f KiB", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
