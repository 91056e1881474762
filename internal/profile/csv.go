package profile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// CSV column names written by the profiler.
const (
	colIndex    = "layer_index"
	colName     = "layer_name"
	colForward  = "forward"
	colBackward = "backward"
	colMemory   = "mem_required"
)

var csvHeader = []string{colIndex, colName, colForward, colBackward, colMemory}

// ReadCSV decodes layer results from a CSV stream with a header row.
// Column order is free; layer_name is optional.
func ReadCSV(r io.Reader) ([]LayerExecutionResult, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: read header: %v", ErrInvalidProfile, err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{colIndex, colForward, colBackward, colMemory} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrInvalidProfile, required)
		}
	}

	var out []LayerExecutionResult
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
		}
		line, _ := cr.FieldPos(0)

		var l LayerExecutionResult
		if l.Index, err = strconv.Atoi(field(rec, cols, colIndex)); err != nil {
			return nil, fmt.Errorf("%w: line %d: %s: %v", ErrInvalidProfile, line, colIndex, err)
		}
		if l.Forward, err = strconv.ParseFloat(field(rec, cols, colForward), 64); err != nil {
			return nil, fmt.Errorf("%w: line %d: %s: %v", ErrInvalidProfile, line, colForward, err)
		}
		if l.Backward, err = strconv.ParseFloat(field(rec, cols, colBackward), 64); err != nil {
			return nil, fmt.Errorf("%w: line %d: %s: %v", ErrInvalidProfile, line, colBackward, err)
		}
		if l.MemRequired, err = parseMemory(field(rec, cols, colMemory)); err != nil {
			return nil, fmt.Errorf("%w: line %d: %s: %v", ErrInvalidProfile, line, colMemory, err)
		}
		l.Name = field(rec, cols, colName)
		out = append(out, l)
	}
	return out, nil
}

// WriteCSV encodes layer results with the standard header.
func WriteCSV(w io.Writer, layers []LayerExecutionResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, l := range layers {
		rec := []string{
			strconv.Itoa(l.Index),
			l.Name,
			strconv.FormatFloat(l.Forward, 'g', -1, 64),
			strconv.FormatFloat(l.Backward, 'g', -1, 64),
			strconv.FormatInt(l.MemRequired, 10),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func field(rec []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// parseMemory accepts integers and integral floats ("1024.0"), which some
// profilers emit.
func parseMemory(s string) (int64, error) {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int64(f)) {
		return 0, fmt.Errorf("non-integral byte count %q", s)
	}
	return int64(f), nil
}
