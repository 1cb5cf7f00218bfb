package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/deploymenttheory/go-binmeta/internal/logger"
	"github.com/deploymenttheory/go-binmeta/internal/types"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// JSONOutput represents the JSON output structure
type JSONOutput struct {
	RunID       string                `json:"run_id"`
	LastUpdated time.Time             `json:"last_updated"`
	Stats       types.StorageStats    `json:"stats"`
	Bundles     []types.ScannedBundle `json:"bundles"`
}

// JSONStorage implements the Storage interface using a JSON file
type JSONStorage struct {
	filePath  string
	data      JSONOutput
	hashIndex map[string]bool
	pathIndex map[string]bool
	mutex     sync.RWMutex
}

// New creates a new JSONStorage. An existing index at filePath is loaded
// and extended; each storage instance gets a fresh run ID.
func New(filePath string) (*JSONStorage, error) {
	now := time.Now()
	storage := &JSONStorage{
		filePath:  filePath,
		hashIndex: make(map[string]bool),
		pathIndex: make(map[string]bool),
		data: JSONOutput{
			LastUpdated: now,
			Stats: types.StorageStats{
				LastUpdatedAt:     now,
				StartTime:         now,
				BundlesByPlatform: make(map[string]int),
			},
			Bundles: make([]types.ScannedBundle, 0),
		},
	}

	// Try to load existing data
	if _, err := os.Stat(filePath); err == nil {
		if err := storage.loadExistingData(); err != nil {
			return nil, fmt.Errorf("failed to load existing data: %w", err)
		}
	}
	storage.data.RunID = uuid.NewString()

	return storage, nil
}

// RunID returns the identifier of the current scan run
func (s *JSONStorage) RunID() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.data.RunID
}

// Store saves a scanned bundle's metadata
func (s *JSONStorage) Store(bundle types.ScannedBundle) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	// Check if we already have this bundle by descriptor hash or path
	if s.hashIndex[bundle.SHA3Hash] || s.pathIndex[bundle.BundlePath] {
		logger.Debugf("Skipping already indexed bundle %s", bundle.BundlePath)
		return nil
	}

	s.data.Bundles = append(s.data.Bundles, bundle)
	s.hashIndex[bundle.SHA3Hash] = true
	s.pathIndex[bundle.BundlePath] = true

	s.data.Stats.BundlesStored++
	s.data.Stats.UniqueHashes = len(s.hashIndex)
	s.data.LastUpdated = time.Now()
	s.data.Stats.LastUpdatedAt = s.data.LastUpdated
	s.updateStats(bundle)

	return s.saveToFile()
}

func (s *JSONStorage) updateStats(bundle types.ScannedBundle) {
	if bundle.Platform != "" {
		if s.data.Stats.BundlesByPlatform == nil {
			s.data.Stats.BundlesByPlatform = make(map[string]int)
		}
		s.data.Stats.BundlesByPlatform[bundle.Platform]++
	}
	if bundle.Version != "" {
		s.data.Stats.VersionedCount++
	}
	s.data.Stats.DescriptorBytes += bundle.DescriptorSize
}

// Close finalizes the storage
func (s *JSONStorage) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := time.Now()
	s.data.LastUpdated = now
	s.data.Stats.LastUpdatedAt = now
	s.data.Stats.EndTime = now

	logger.Infof("Closing storage with %d bundles stored", s.data.Stats.BundlesStored)
	logger.Infof("Bundles by platform: %v", s.data.Stats.BundlesByPlatform)
	logger.Infof("Versioned bundle count: %d", s.data.Stats.VersionedCount)
	logger.Infof("Descriptor data indexed: %s", humanize.Bytes(uint64(s.data.Stats.DescriptorBytes)))

	return s.saveToFile()
}

// Stats returns storage statistics
func (s *JSONStorage) Stats() types.StorageStats {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	stats := s.data.Stats
	stats.BundlesByPlatform = make(map[string]int, len(s.data.Stats.BundlesByPlatform))
	for k, v := range s.data.Stats.BundlesByPlatform {
		stats.BundlesByPlatform[k] = v
	}
	return stats
}

// Bundles returns a copy of the stored bundles in index order
func (s *JSONStorage) Bundles() []types.ScannedBundle {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	out := make([]types.ScannedBundle, len(s.data.Bundles))
	copy(out, s.data.Bundles)
	sortBundles(out)
	return out
}

// loadExistingData loads existing data from the JSON file
func (s *JSONStorage) loadExistingData() error {
	file, err := os.Open(s.filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}

	var output JSONOutput
	if err := json.Unmarshal(data, &output); err != nil {
		return err
	}

	// Rebuild indexes and stats from the stored bundles
	stats := types.StorageStats{
		BundlesByPlatform: make(map[string]int),
		StartTime:         s.data.Stats.StartTime,
		LastUpdatedAt:     time.Now(),
	}
	s.data.Stats = stats
	for _, bundle := range output.Bundles {
		s.hashIndex[bundle.SHA3Hash] = true
		s.pathIndex[bundle.BundlePath] = true
		s.data.Stats.BundlesStored++
		s.updateStats(bundle)
	}
	s.data.Stats.UniqueHashes = len(s.hashIndex)
	if output.Bundles != nil {
		s.data.Bundles = output.Bundles
	}

	logger.Infof("Loaded %d existing bundles from %s", len(output.Bundles), s.filePath)
	return nil
}

// saveToFile saves the current data to the JSON file
func (s *JSONStorage) saveToFile() error {
	sortBundles(s.data.Bundles)

	file, err := os.Create(s.filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	return encoder.Encode(s.data)
}

// sortBundles sorts bundles by product name, then by path
func sortBundles(bundles []types.ScannedBundle) {
	sort.Slice(bundles, func(i, j int) bool {
		if bundles[i].ProductName != bundles[j].ProductName {
			return bundles[i].ProductName < bundles[j].ProductName
		}
		return bundles[i].BundlePath < bundles[j].BundlePath
	})
}

var _ Storage = (*JSONStorage)(nil)
