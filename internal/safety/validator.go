package safety

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrInvalidPath   = errors.New("invalid path")
	ErrNotDirectory  = errors.New("not a directory")
	ErrProtectedPath = errors.New("protected path")
)

// Validator enforces the root-path contract before any eviction run starts.
// Eviction is non-destructive at the filesystem level, but walking system
// roots is never what the operator meant.
type Validator struct {
	ProtectedPaths []string
}

// NewValidator creates a validator with the default protected set plus extras
func NewValidator(extraProtected []string) *Validator {
	return &Validator{
		ProtectedPaths: defaultProtected(extraProtected),
	}
}

// ValidateRoot checks that root exists, is a directory, and is not a
// protected system path. Returns the normalized absolute root on success.
func (v *Validator) ValidateRoot(root string) (string, error) {
	p, err := NormalizePath(root)
	if err != nil {
		return "", err
	}

	if IsProtectedPath(p, v.ProtectedPaths) {
		return "", fmt.Errorf("%w: %s", ErrProtectedPath, p)
	}

	info, err := os.Stat(p)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvalidPath, p, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrNotDirectory, p)
	}

	return p, nil
}

// NormalizePath converts path to absolute, cleaned form
func NormalizePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", ErrInvalidPath
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", ErrInvalidPath
	}
	return filepath.Clean(abs), nil
}

// IsProtectedPath checks if path is, or sits under, a protected system path
func IsProtectedPath(path string, protected []string) bool {
	p := filepath.Clean(path)

	// Hard block: "/" exact
	if p == string(os.PathSeparator) {
		return true
	}

	for _, prot := range protected {
		prot = filepath.Clean(prot)
		if p == prot || hasPathPrefix(p, prot) {
			return true
		}
	}
	return false
}

// hasPathPrefix checks if path has the given prefix
func hasPathPrefix(path, prefix string) bool {
	path = filepath.Clean(path)
	prefix = filepath.Clean(prefix)

	if prefix == string(os.PathSeparator) {
		return path == "/"
	}
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, prefix+string(os.PathSeparator))
}

// defaultProtected returns the base set of protected paths plus any extras.
// Eviction roots are expected inside the user's iCloud Drive; anything under
// these is a misconfiguration.
func defaultProtected(extra []string) []string {
	base := []string{
		"/",
		"/etc",
		"/bin",
		"/usr",
		"/sbin",
		"/System",
		"/private/etc",
	}
	return append(base, extra...)
}
