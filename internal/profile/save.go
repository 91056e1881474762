package profile

import (
	"fmt"
	"os"
	"path/filepath"
)

// Save writes p to the primary path of l in the given format ("csv" or "json")
// and returns the written path.
func Save(l Location, p *Profile, format string) (string, error) {
	if err := l.Validate(); err != nil {
		return "", err
	}
	dir := filepath.Join(l.BaseDir, ProfilesDir)
	if l.Model != "" {
		dir = filepath.Join(dir, filepath.FromSlash(l.Model))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	var path string
	switch format {
	case "", "csv":
		path = filepath.Join(dir, l.Tag+".csv")
	case "json":
		path = filepath.Join(dir, l.Tag+".json")
	default:
		return "", fmt.Errorf("unsupported profile format %q", format)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if format == "json" {
		err = WriteJSON(f, Document{Model: l.Model, Tag: l.Tag, Layers: p.Layers()})
	} else {
		err = WriteCSV(f, p.Layers())
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", err
	}
	return path, nil
}
