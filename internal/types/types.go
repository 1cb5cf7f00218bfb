package types

import (
	"time"
)

// ScannedBundle represents one bundle or executable recorded by a scan
type ScannedBundle struct {
	BundlePath     string    `json:"bundle_path"`
	DescriptorPath string    `json:"descriptor_path"`
	SHA3Hash       string    `json:"sha3_hash"`
	DescriptorSize int64     `json:"descriptor_size_bytes"`
	Platform       string    `json:"platform"`
	DiscoveredAt   time.Time `json:"discovered_at"`

	Version          string `json:"version"`
	ProductName      string `json:"product_name"`
	FileDescription  string `json:"file_description"`
	LegalCopyright   string `json:"legal_copyright"`
	OriginalFilename string `json:"original_filename"`
	CompanyName      string `json:"company_name"`
}

// StorageStats holds storage statistics
type StorageStats struct {
	BundlesStored     int            `json:"bundles_stored"`
	UniqueHashes      int            `json:"unique_hashes"`
	VersionedCount    int            `json:"versioned_count"`
	BundlesByPlatform map[string]int `json:"bundles_by_platform"`
	DescriptorBytes   int64          `json:"descriptor_bytes"`
	LastUpdatedAt     time.Time      `json:"last_updated_at"`
	StartTime         time.Time      `json:"start_time"`
	EndTime           time.Time      `json:"end_time,omitempty"`
}
