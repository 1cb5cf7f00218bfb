package versioninfo

import (
	"fmt"

	"github.com/saferwall/pe"
	pelog "github.com/saferwall/pe/log"

	"github.com/deploymenttheory/go-binmeta/internal/logger"
)

const rtVersion = 16 // RT_VERSION

// FromPE parses a PE image and decodes its first RT_VERSION resource
func FromPE(data []byte) (info *Info, err error) {
	// a hostile image must not take the caller down
	defer func() {
		if r := recover(); r != nil {
			info, err = nil, fmt.Errorf("%w: %v", ErrMalformed, r)
		}
	}()

	f, err := pe.NewBytes(data, &pe.Options{Logger: parserLog{}})
	if err != nil {
		return nil, fmt.Errorf("open PE image: %w", err)
	}
	if err := f.Parse(); err != nil {
		return nil, fmt.Errorf("parse PE image: %w", err)
	}

	entry, ok := findVersionEntry(f.Resources)
	if !ok {
		return nil, ErrNoVersionResource
	}

	raw, err := f.GetData(entry.Struct.OffsetToData, entry.Struct.Size)
	if err != nil {
		return nil, fmt.Errorf("%w: version data: %v", ErrMalformed, err)
	}
	return Parse(raw)
}

// findVersionEntry descends the type, name and language levels of the
// resource tree to the first RT_VERSION data entry
func findVersionEntry(root pe.ResourceDirectory) (pe.ResourceDataEntry, bool) {
	for _, typ := range root.Entries {
		if typ.ID != rtVersion || !typ.IsResourceDir {
			continue
		}
		for _, name := range typ.Directory.Entries {
			if !name.IsResourceDir {
				continue
			}
			for _, lang := range name.Directory.Entries {
				if !lang.IsResourceDir {
					return lang.Data, true
				}
			}
		}
	}
	return pe.ResourceDataEntry{}, false
}

// parserLog sends image parser diagnostics to the debug log instead of stdout
type parserLog struct{}

func (parserLog) Log(level pelog.Level, keyvals ...interface{}) error {
	logger.Debugf("PE parser [%v]: %v", level, keyvals)
	return nil
}
