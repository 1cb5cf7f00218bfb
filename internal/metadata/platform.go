package metadata

import (
	"fmt"
	"strings"

	"github.com/deploymenttheory/go-binmeta/internal/resolver"
)

// Platform pairs a descriptor location strategy with the loader for the
// descriptor format it points at
type Platform struct {
	Name     string
	Resolver resolver.Resolver
	Loader   Loader
}

// Darwin reads Contents/Info.plist from .app bundles
func Darwin() Platform {
	return Platform{Name: "darwin", Resolver: resolver.BundleResolver{}, Loader: PlistLoader{}}
}

// Windows reads the version resource embedded in PE executables
func Windows() Platform {
	return Platform{Name: "windows", Resolver: resolver.ExecutableResolver{}, Loader: VersionInfoLoader{}}
}

// PlatformFor returns the platform registered under name
func PlatformFor(name string) (Platform, error) {
	switch strings.ToLower(name) {
	case "darwin", "macos":
		return Darwin(), nil
	case "windows":
		return Windows(), nil
	default:
		return Platform{}, fmt.Errorf("%w: %q", resolver.ErrUnknownPlatform, name)
	}
}
