package batch

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"projup/pkg/patch"
)

// ErrInvalidTarget is returned by Run when the target version is not a
// string of digits.
var ErrInvalidTarget = errors.New("invalid target version")

// DefaultArchivePrefix names the archive offered for download.
const DefaultArchivePrefix = "upgraded_projects"

// ValidateTarget checks a target version token.
func ValidateTarget(target string) error {
	if !patch.ValidVersion(target) {
		return fmt.Errorf("%w: %q", ErrInvalidTarget, target)
	}
	return nil
}

// OutputName derives the upgraded document name by replacing the
// extension of name with _upgraded_v<target><ext>.
func OutputName(name, target string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + "_upgraded_v" + target + ext
}

// ArchiveName returns <prefix>_v<target>.zip.
func ArchiveName(prefix, target string) string {
	return ArchiveNameExt(prefix, target, ".zip")
}

// ArchiveNameExt returns <prefix>_v<target><ext>.
func ArchiveNameExt(prefix, target, ext string) string {
	if prefix == "" {
		prefix = DefaultArchivePrefix
	}
	return prefix + "_v" + target + ext
}

// uniqueName returns name, or name with a " (n)" counter ahead of the
// extension when it is already taken.
func uniqueName(name string, taken map[string]bool) string {
	if !taken[name] {
		return name
	}
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s (%d)%s", base, n, ext)
		if !taken[candidate] {
			return candidate
		}
	}
}
