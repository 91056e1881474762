package profile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ProfilesDir is the directory under a base dir where profilers write results.
const ProfilesDir = "profiles"

var extensions = []string{".csv", ".json"}

// Location names a recorded profile: <BaseDir>/profiles/[<Model>/]<Tag>.{csv,json}.
type Location struct {
	BaseDir string
	Model   string
	Tag     string
}

func (l Location) String() string {
	if l.Model == "" {
		return l.Tag
	}
	return l.Model + "/" + l.Tag
}

// Candidates returns the paths probed by Resolve, in priority order.
func (l Location) Candidates() []string {
	root := filepath.Join(l.BaseDir, ProfilesDir)
	var out []string
	if l.Model != "" {
		for _, ext := range extensions {
			out = append(out, filepath.Join(root, filepath.FromSlash(l.Model), l.Tag+ext))
		}
	}
	for _, ext := range extensions {
		out = append(out, filepath.Join(root, l.Tag+ext))
	}
	return out
}

// Resolve returns the first existing profile file for the location. Names
// that would leave the profiles directory fail with ErrInvalidProfile.
func (l Location) Resolve() (string, error) {
	if strings.TrimSpace(l.Tag) == "" {
		return "", fmt.Errorf("%w: tag is required", ErrProfileNotFound)
	}
	if err := l.Validate(); err != nil {
		return "", err
	}
	for _, path := range l.Candidates() {
		st, err := os.Stat(path)
		if err == nil && !st.IsDir() {
			return path, nil
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
	}
	return "", fmt.Errorf("%w: %s under %s", ErrProfileNotFound, l, filepath.Join(l.BaseDir, ProfilesDir))
}

// Load resolves and parses the profile for the location.
func Load(l Location) (*Profile, error) {
	path, err := l.Resolve()
	if err != nil {
		return nil, err
	}
	return LoadFile(path, l.Model, l.Tag)
}

// LoadFile parses a profile file, choosing the decoder by extension.
func LoadFile(path, model, tag string) (*Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, path)
		}
		return nil, err
	}
	defer f.Close()

	var layers []LayerExecutionResult
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		layers, err = ReadCSV(f)
	case ".json":
		var doc Document
		doc, err = ReadJSON(f)
		layers = doc.Layers
		if model == "" {
			model = doc.Model
		}
	default:
		return nil, fmt.Errorf("%w: unsupported profile format %q", ErrInvalidProfile, filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return New(model, tag, layers)
}

// Entry is one profile discovered under a base dir.
type Entry struct {
	Model string `json:"model,omitempty"`
	Tag   string `json:"tag"`
	Path  string `json:"path"`
}

// List enumerates profiles available under baseDir, sorted by model then tag.
func List(baseDir string) ([]Entry, error) {
	root := filepath.Join(baseDir, ProfilesDir)
	st, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("profiles path is not a directory: %s", root)
	}

	var entries []Entry
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".csv" && ext != ".json" {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		model := filepath.ToSlash(filepath.Dir(rel))
		if model == "." {
			model = ""
		}
		entries = append(entries, Entry{
			Model: model,
			Tag:   strings.TrimSuffix(filepath.Base(rel), filepath.Ext(rel)),
			Path:  path,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Model != entries[j].Model {
			return entries[i].Model < entries[j].Model
		}
		return entries[i].Tag < entries[j].Tag
	})
	return entries, nil
}

// Load resolves and parses the profile for l.
func (l Location) Load() (*Profile, error) {
	return Load(l)
}
