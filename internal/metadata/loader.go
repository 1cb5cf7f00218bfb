package metadata

import (
	"fmt"

	"github.com/deploymenttheory/go-binmeta/internal/versioninfo"
	"howett.net/plist"
)

// Loader decodes a descriptor and extracts the string values of the fields
// it recognizes. Fields the descriptor lacks are omitted from the result.
type Loader interface {
	Load(data []byte) (map[Field]string, error)
}

// infoPlistKeys maps recognized fields to Info.plist keys.
// There is no company name key on macOS.
var infoPlistKeys = map[Field]string{
	FieldVersion:          "CFBundleShortVersionString",
	FieldProductName:      "CFBundleName",
	FieldFileDescription:  "CFBundleGetInfoString",
	FieldLegalCopyright:   "NSHumanReadableCopyright",
	FieldOriginalFilename: "CFBundleExecutable",
}

// PlistLoader reads Info.plist property lists in any format howett.net/plist
// understands (XML, binary, OpenStep, GNUStep)
type PlistLoader struct{}

// Load decodes an Info.plist and keeps the string-typed values of the mapped keys
func (PlistLoader) Load(data []byte) (map[Field]string, error) {
	var plistData map[string]interface{}
	if _, err := plist.Unmarshal(data, &plistData); err != nil {
		return nil, fmt.Errorf("decode property list: %w", err)
	}

	values := make(map[Field]string, len(infoPlistKeys))
	for field, key := range infoPlistKeys {
		if s, ok := plistData[key].(string); ok {
			values[field] = s
		}
	}
	return values, nil
}

// stringFileInfoKeys maps recognized fields to StringFileInfo entries.
// The version comes from the fixed file info instead.
var stringFileInfoKeys = map[Field]string{
	FieldProductName:      "ProductName",
	FieldFileDescription:  "FileDescription",
	FieldLegalCopyright:   "LegalCopyright",
	FieldOriginalFilename: "OriginalFilename",
	FieldCompanyName:      "CompanyName",
}

// VersionInfoLoader reads the VS_VERSIONINFO resource embedded in a PE image
type VersionInfoLoader struct{}

// Load parses the PE image and extracts the fixed file version and string table
func (VersionInfoLoader) Load(data []byte) (map[Field]string, error) {
	info, err := versioninfo.FromPE(data)
	if err != nil {
		return nil, fmt.Errorf("read version resource: %w", err)
	}

	values := make(map[Field]string, len(Fields))
	if v := info.FileVersion(); v != "" {
		values[FieldVersion] = v
	}
	for field, key := range stringFileInfoKeys {
		if s, ok := info.Lookup(key); ok {
			values[field] = s
		}
	}
	return values, nil
}
