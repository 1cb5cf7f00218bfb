package resolver

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Bundle layout constants for macOS application bundles
const (
	BundleExtension   = ".app"
	ContentsDirectory = "Contents"
	InfoPlistName     = "Info.plist"
)

// ErrUnknownPlatform is returned by ForPlatform for unsupported platform names
var ErrUnknownPlatform = errors.New("unknown platform")

// Resolver derives the location of the metadata descriptor that governs a path.
// Implementations never touch the filesystem and never fail.
type Resolver interface {
	Resolve(path string) string
}

// BundleResolver resolves paths using the macOS .app bundle layout
type BundleResolver struct{}

// Resolve returns the Info.plist path for a bundle root, a path inside a
// bundle's Contents directory, or any other path treated as a bundle root.
func (BundleResolver) Resolve(path string) string {
	cleaned := filepath.Clean(path)
	descriptor := filepath.Join(ContentsDirectory, InfoPlistName)

	if root, ok := bundleRoot(cleaned); ok {
		return filepath.Join(root, descriptor)
	}

	// Not a bundle: treat the path itself as one.
	return filepath.Join(cleaned, descriptor)
}

// IsBundle reports whether the path names a bundle root or descends into one
func IsBundle(path string) bool {
	_, ok := bundleRoot(filepath.Clean(path))
	return ok
}

// bundleRoot finds the bundle root for a cleaned path. The last element
// wins when it carries the bundle extension; otherwise the .app element
// nearest the leaf that is followed by Contents marks the root.
func bundleRoot(path string) (string, bool) {
	if strings.EqualFold(filepath.Ext(path), BundleExtension) {
		return path, true
	}

	elems := strings.Split(path, string(filepath.Separator))
	for i := len(elems) - 2; i >= 0; i-- {
		if !strings.EqualFold(filepath.Ext(elems[i]), BundleExtension) {
			continue
		}
		if !strings.EqualFold(elems[i+1], ContentsDirectory) {
			continue
		}
		root := strings.Join(elems[:i+1], string(filepath.Separator))
		if root == "" {
			root = string(filepath.Separator)
		}
		return root, true
	}

	return "", false
}

// ExecutableResolver resolves paths for formats where the descriptor is
// embedded in the executable itself (Windows PE version resources)
type ExecutableResolver struct{}

// Resolve returns the cleaned input path
func (ExecutableResolver) Resolve(path string) string {
	return filepath.Clean(path)
}

// ForPlatform returns the resolution strategy for a platform name
func ForPlatform(name string) (Resolver, error) {
	switch strings.ToLower(name) {
	case "darwin", "macos":
		return BundleResolver{}, nil
	case "windows":
		return ExecutableResolver{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlatform, name)
	}
}
