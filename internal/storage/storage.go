package storage

import (
	"github.com/deploymenttheory/go-binmeta/internal/types"
)

// Storage defines the interface for storing scanned bundle metadata
type Storage interface {
	// Store saves a scanned bundle, ignoring bundles already stored
	Store(bundle types.ScannedBundle) error

	// Close finalizes the storage
	Close() error

	// Stats returns storage statistics
	Stats() types.StorageStats
}
