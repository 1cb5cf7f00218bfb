package metadata

import (
	"errors"
	"fmt"

	"github.com/deploymenttheory/go-binmeta/internal/logger"
	"github.com/spf13/afero"
	"golang.org/x/crypto/sha3"
)

var (
	// ErrDescriptorNotFound means the resolved descriptor path is not a readable file
	ErrDescriptorNotFound = errors.New("descriptor not found")

	// ErrDescriptorParse means the descriptor exists but could not be decoded
	ErrDescriptorParse = errors.New("descriptor parse error")
)

// Descriptor describes the descriptor behind a path, for callers that index
// bundles rather than query them one field at a time
type Descriptor struct {
	Path   string // resolved descriptor path
	Found  bool   // false when the descriptor is missing or unreadable
	Parsed bool   // false when the descriptor could not be decoded
	Size   int64  // descriptor size in bytes
	Digest string // hex SHA3-256 of the descriptor bytes
	Record Record
}

// Reader extracts metadata for paths on one platform. A Reader holds no
// mutable state and is safe for concurrent use.
type Reader struct {
	fs       afero.Fs
	platform Platform
}

// NewReader creates a Reader over fs. A nil fs reads the host filesystem.
func NewReader(fs afero.Fs, platform Platform) *Reader {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Reader{fs: fs, platform: platform}
}

// Platform returns the platform the reader was built for
func (r *Reader) Platform() Platform {
	return r.platform
}

// ReadVersion returns the version for path. ok is false when the descriptor
// is missing, malformed, or has no version entry.
func (r *Reader) ReadVersion(path string) (version string, ok bool) {
	_, _, values, err := r.load(path)
	if err != nil {
		return "", false
	}
	version, ok = values[FieldVersion]
	return version, ok
}

// ReadMetadata returns the full record for path. Every field the descriptor
// lacks, or every field when the descriptor cannot be loaded, is empty.
func (r *Reader) ReadMetadata(path string) Record {
	_, _, values, err := r.load(path)
	if err != nil {
		return Record{}
	}
	return newRecord(values)
}

// Describe resolves and loads the descriptor for path and reports where it
// lives and what it hashes to, along with the record
func (r *Reader) Describe(path string) Descriptor {
	descPath, data, values, err := r.load(path)
	d := Descriptor{Path: descPath}
	if errors.Is(err, ErrDescriptorNotFound) {
		return d
	}

	d.Found = true
	d.Size = int64(len(data))
	d.Digest = fmt.Sprintf("%x", sha3.Sum256(data))
	if err == nil {
		d.Parsed = true
		d.Record = newRecord(values)
	}
	return d
}

// load runs one resolve/read/decode pass. Errors are logged at debug level
// and left for the caller to absorb.
func (r *Reader) load(path string) (string, []byte, map[Field]string, error) {
	descPath := r.platform.Resolver.Resolve(path)
	logger.Debugf("Resolved %s to descriptor %s", path, descPath)

	data, err := afero.ReadFile(r.fs, descPath)
	if err != nil {
		logger.Debugf("Descriptor %s not readable: %v", descPath, err)
		return descPath, nil, nil, fmt.Errorf("%w: %s: %v", ErrDescriptorNotFound, descPath, err)
	}

	values, err := r.platform.Loader.Load(data)
	if err != nil {
		logger.Debugf("Failed to parse descriptor %s: %v", descPath, err)
		return descPath, data, nil, fmt.Errorf("%w: %s: %v", ErrDescriptorParse, descPath, err)
	}

	return descPath, data, values, nil
}
