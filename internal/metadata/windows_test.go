package metadata

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vt "github.com/deploymenttheory/go-binmeta/internal/versioninfo/versioninfotest"
)

func acmeImage(fixed []byte) []byte {
	return vt.Image(vt.Resource(fixed,
		vt.Block("040904b0", vt.TextValueType, nil, 0,
			vt.String("CompanyName", "Acme Corp"),
			vt.String("FileDescription", "Acme Tool"),
			vt.String("FileVersion", "3.1"),
			vt.String("LegalCopyright", "(c) Acme Corp"),
			vt.String("OriginalFilename", "tool.exe"),
			vt.String("ProductName", "Acme"),
		),
	))
}

func windowsReader(t *testing.T, files map[string][]byte) *Reader {
	t.Helper()
	fs := afero.NewMemMapFs()
	for path, data := range files {
		path = filepath.FromSlash(path)
		require.NoError(t, fs.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, afero.WriteFile(fs, path, data, 0o644))
	}
	return NewReader(fs, Windows())
}

func TestWindowsReadsVersionResource(t *testing.T) {
	reader := windowsReader(t, map[string][]byte{
		"/Program Files/Acme/tool.exe": acmeImage(vt.FixedInfo([4]uint16{3, 1, 4, 1592}, [4]uint16{3, 1, 0, 0})),
	})

	version, ok := reader.ReadVersion("/Program Files/Acme/tool.exe")
	require.True(t, ok)
	assert.Equal(t, "3.1.4.1592", version, "fixed file version wins over the string table")

	assert.Equal(t, Record{
		Version:          "3.1.4.1592",
		ProductName:      "Acme",
		FileDescription:  "Acme Tool",
		LegalCopyright:   "(c) Acme Corp",
		OriginalFilename: "tool.exe",
		CompanyName:      "Acme Corp",
	}, reader.ReadMetadata("/Program Files/Acme/tool.exe"))

	d := reader.Describe("/Program Files/Acme/tool.exe")
	assert.True(t, d.Found)
	assert.True(t, d.Parsed)
	assert.Equal(t, filepath.FromSlash("/Program Files/Acme/tool.exe"), d.Path)
}

func TestWindowsWithoutFixedInfo(t *testing.T) {
	reader := windowsReader(t, map[string][]byte{"/bin/tool.exe": acmeImage(nil)})

	_, ok := reader.ReadVersion("/bin/tool.exe")
	assert.False(t, ok)

	rec := reader.ReadMetadata("/bin/tool.exe")
	assert.Empty(t, rec.Version)
	assert.Equal(t, "Acme", rec.ProductName)
	assert.Equal(t, "Acme Corp", rec.CompanyName)
}

func TestWindowsUnreadableImages(t *testing.T) {
	reader := windowsReader(t, map[string][]byte{
		"/bin/script.exe":    []byte("@echo off\r\n"),
		"/bin/truncated.exe": acmeImage(vt.FixedInfo([4]uint16{1, 0, 0, 0}, [4]uint16{1, 0, 0, 0}))[:0x180],
	})

	for _, path := range []string{"/bin/script.exe", "/bin/truncated.exe", "/bin/missing.exe"} {
		_, ok := reader.ReadVersion(path)
		assert.False(t, ok, path)
		assert.True(t, reader.ReadMetadata(path).IsEmpty(), path)
	}
}
