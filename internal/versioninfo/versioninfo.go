// Package versioninfo reads VS_VERSIONINFO resources from Windows PE images.
//
// REF: https://learn.microsoft.com/en-us/windows/win32/menurc/vs-versioninfo
package versioninfo

import (
	"encoding/binary"
	"errors"
	"fmt"
	"unicode/utf16"
)

const (
	fixedFileInfoSignature = 0xFEEF04BD
	fixedFileInfoSize      = 52

	blockHeaderSize = 6
	textValueType   = 1

	versionInfoKey    = "VS_VERSION_INFO"
	stringFileInfoKey = "StringFileInfo"
)

var (
	// ErrMalformed is returned when a version resource cannot be decoded
	ErrMalformed = errors.New("malformed version resource")

	// ErrNoVersionResource is returned when an image carries no RT_VERSION resource
	ErrNoVersionResource = errors.New("no version resource")
)

// FixedFileInfo holds the binary version numbers from VS_FIXEDFILEINFO
type FixedFileInfo struct {
	FileVersion    [4]uint16
	ProductVersion [4]uint16
	FileFlags      uint32
	FileOS         uint32
	FileType       uint32
}

// Info is a decoded version resource
type Info struct {
	Fixed    *FixedFileInfo
	Language string            // key of the first string table, e.g. "040904b0"
	Strings  map[string]string // entries of the first string table
}

// FileVersion formats the fixed file version as major.minor.build.revision.
// It returns an empty string when the resource has no fixed file info.
func (i *Info) FileVersion() string {
	if i == nil || i.Fixed == nil {
		return ""
	}
	v := i.Fixed.FileVersion
	return fmt.Sprintf("%d.%d.%d.%d", v[0], v[1], v[2], v[3])
}

// Lookup returns a StringFileInfo entry and whether it was present
func (i *Info) Lookup(key string) (string, bool) {
	if i == nil || i.Strings == nil {
		return "", false
	}
	v, ok := i.Strings[key]
	return v, ok
}

// block is one node of the VS_VERSIONINFO tree
type block struct {
	key       string
	valueType uint16
	value     []byte
	children  []byte
}

// Parse decodes a raw VS_VERSIONINFO resource
func Parse(data []byte) (*Info, error) {
	root, _, err := parseBlock(data)
	if err != nil {
		return nil, err
	}
	if root.key != versionInfoKey {
		return nil, fmt.Errorf("%w: unexpected root key %q", ErrMalformed, root.key)
	}

	info := &Info{Strings: make(map[string]string)}

	if len(root.value) >= fixedFileInfoSize {
		fixed, err := parseFixedFileInfo(root.value)
		if err != nil {
			return nil, err
		}
		info.Fixed = fixed
	}

	err = eachChild(root.children, func(child block) error {
		if child.key != stringFileInfoKey || info.Language != "" {
			return nil
		}
		// Only the first string table is used.
		return eachChild(child.children, func(table block) error {
			if info.Language != "" {
				return nil
			}
			info.Language = table.key
			return eachChild(table.children, func(entry block) error {
				info.Strings[entry.key] = decodeText(entry.value)
				return nil
			})
		})
	})
	if err != nil {
		return nil, err
	}

	return info, nil
}

func parseFixedFileInfo(b []byte) (*FixedFileInfo, error) {
	le := binary.LittleEndian
	if le.Uint32(b[0:]) != fixedFileInfoSignature {
		return nil, fmt.Errorf("%w: bad fixed file info signature 0x%08x", ErrMalformed, le.Uint32(b[0:]))
	}

	fileMS, fileLS := le.Uint32(b[8:]), le.Uint32(b[12:])
	prodMS, prodLS := le.Uint32(b[16:]), le.Uint32(b[20:])

	return &FixedFileInfo{
		FileVersion:    [4]uint16{uint16(fileMS >> 16), uint16(fileMS), uint16(fileLS >> 16), uint16(fileLS)},
		ProductVersion: [4]uint16{uint16(prodMS >> 16), uint16(prodMS), uint16(prodLS >> 16), uint16(prodLS)},
		FileFlags:      le.Uint32(b[28:]) & le.Uint32(b[24:]),
		FileOS:         le.Uint32(b[32:]),
		FileType:       le.Uint32(b[36:]),
	}, nil
}

// parseBlock decodes the block at the start of data and returns it along
// with its declared length.
func parseBlock(data []byte) (block, int, error) {
	le := binary.LittleEndian
	if len(data) < blockHeaderSize {
		return block{}, 0, fmt.Errorf("%w: short block header", ErrMalformed)
	}

	length := int(le.Uint16(data[0:]))
	valueLength := int(le.Uint16(data[2:]))
	valueType := le.Uint16(data[4:])
	if length < blockHeaderSize || length > len(data) {
		return block{}, 0, fmt.Errorf("%w: block length %d out of range", ErrMalformed, length)
	}
	data = data[:length]

	// szKey is a NUL-terminated UTF-16 string
	var key []uint16
	off := blockHeaderSize
	for {
		if off+2 > len(data) {
			return block{}, 0, fmt.Errorf("%w: unterminated key", ErrMalformed)
		}
		c := le.Uint16(data[off:])
		off += 2
		if c == 0 {
			break
		}
		key = append(key, c)
	}
	off = align4(off)

	if valueType == textValueType {
		valueLength *= 2
	}
	start := min(off, len(data))
	end := min(start+valueLength, len(data))

	b := block{
		key:       string(utf16.Decode(key)),
		valueType: valueType,
		value:     data[start:end],
	}
	if childStart := align4(end); childStart < len(data) {
		b.children = data[childStart:]
	}

	return b, length, nil
}

func eachChild(data []byte, fn func(block) error) error {
	for len(data) >= 2 {
		// zero length marks trailing padding
		if binary.LittleEndian.Uint16(data) == 0 {
			return nil
		}
		child, n, err := parseBlock(data)
		if err != nil {
			return err
		}
		if err := fn(child); err != nil {
			return err
		}
		next := align4(n)
		if next >= len(data) {
			return nil
		}
		data = data[next:]
	}
	return nil
}

func decodeText(b []byte) string {
	u := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		c := binary.LittleEndian.Uint16(b[i:])
		if c == 0 {
			break
		}
		u = append(u, c)
	}
	return string(utf16.Decode(u))
}

func align4(n int) int {
	return (n + 3) &^ 3
}
