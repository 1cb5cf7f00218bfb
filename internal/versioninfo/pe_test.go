package versioninfo

import (
	"errors"
	"testing"

	"github.com/saferwall/pe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-binmeta/internal/versioninfo/versioninfotest"
)

func TestFromPE(t *testing.T) {
	info, err := FromPE(versioninfotest.Image(sampleResource()))
	require.NoError(t, err)

	assert.Equal(t, "2.5.0.17", info.FileVersion())
	assert.Equal(t, "040904b0", info.Language)
	name, ok := info.Lookup("ProductName")
	assert.True(t, ok)
	assert.Equal(t, "Acme", name)
	company, _ := info.Lookup("CompanyName")
	assert.Equal(t, "Acme Corp", company)
}

func TestFromPEMalformedResource(t *testing.T) {
	_, err := FromPE(versioninfotest.Image(versioninfotest.Block("NOT_VERSION", 0, nil, 0)))
	assert.True(t, errors.Is(err, ErrMalformed), "got %v", err)
}

func TestFromPERejectsNonPE(t *testing.T) {
	for name, data := range map[string][]byte{
		"script": []byte("#!/bin/sh\necho hello\n"),
		"empty":  nil,
		"dos only": func() []byte {
			b := make([]byte, 128)
			copy(b, "MZ")
			return b
		}(),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := FromPE(data)
			assert.Error(t, err)
		})
	}
}

func TestFromPETruncatedImage(t *testing.T) {
	image := versioninfotest.Image(sampleResource())
	for _, n := range []int{64, 300, 0x200, 0x200 + 60, len(image) - 1} {
		assert.NotPanics(t, func() {
			_, _ = FromPE(image[:n])
		}, "length %d", n)
	}
}

func TestFindVersionEntry(t *testing.T) {
	data := pe.ResourceDataEntry{Struct: pe.ImageResourceDataEntry{OffsetToData: 0x1060, Size: 200}}
	leaf := pe.ResourceDirectoryEntry{ID: 0x409, Data: data}
	named := func(id uint32, children ...pe.ResourceDirectoryEntry) pe.ResourceDirectoryEntry {
		return pe.ResourceDirectoryEntry{
			ID:            id,
			IsResourceDir: true,
			Directory:     pe.ResourceDirectory{Entries: children},
		}
	}

	root := pe.ResourceDirectory{Entries: []pe.ResourceDirectoryEntry{
		named(3, named(1, pe.ResourceDirectoryEntry{ID: 0x409})),
		named(rtVersion, named(1, leaf)),
	}}
	got, ok := findVersionEntry(root)
	require.True(t, ok)
	assert.Equal(t, data, got)

	_, ok = findVersionEntry(pe.ResourceDirectory{Entries: []pe.ResourceDirectoryEntry{named(24, named(1, leaf))}})
	assert.False(t, ok)

	// a data entry where a subdirectory belongs is skipped
	_, ok = findVersionEntry(pe.ResourceDirectory{Entries: []pe.ResourceDirectoryEntry{named(rtVersion, leaf)}})
	assert.False(t, ok)
}
