package profile

import (
	"fmt"
	"path/filepath"
	"strings"
)

// CheckTag rejects tags that are not a single plain file name component.
func CheckTag(tag string) error {
	switch {
	case strings.TrimSpace(tag) == "":
		return fmt.Errorf("%w: tag is required", ErrInvalidProfile)
	case strings.ContainsAny(tag, `/\`) || strings.Contains(tag, ".."):
		return fmt.Errorf("%w: tag %q must not contain path separators or \"..\"", ErrInvalidProfile, tag)
	case tag == "." || filepath.IsAbs(tag) || !filepath.IsLocal(tag):
		return fmt.Errorf("%w: tag %q is not a local name", ErrInvalidProfile, tag)
	}
	return nil
}

// CheckModel rejects model names that would leave the profiles directory.
// The empty model is valid. Slashes are allowed as namespace separators
// ("org/model") but every segment must be a plain name.
func CheckModel(model string) error {
	if model == "" {
		return nil
	}
	if strings.Contains(model, `\`) || strings.HasPrefix(model, "/") || !filepath.IsLocal(filepath.FromSlash(model)) {
		return fmt.Errorf("%w: model %q is not a local name", ErrInvalidProfile, model)
	}
	for seg := range strings.SplitSeq(model, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return fmt.Errorf("%w: model %q has an empty or relative segment", ErrInvalidProfile, model)
		}
	}
	return nil
}

// Validate checks both names of the location.
func (l Location) Validate() error {
	if err := CheckModel(l.Model); err != nil {
		return err
	}
	return CheckTag(l.Tag)
}
