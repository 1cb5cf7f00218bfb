package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-binmeta/internal/bridge"
	"github.com/deploymenttheory/go-binmeta/internal/storage"
)

const infoPlist = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>CFBundleShortVersionString</key>
	<string>1.2.3</string>
	<key>CFBundleName</key>
	<string>Foo</string>
	<key>NSHumanReadableCopyright</key>
	<string>Copyright 2024 Foo Inc.</string>
</dict>
</plist>`

func makeBundle(t *testing.T, dir, name string) string {
	t.Helper()
	bundle := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Join(bundle, "Contents", "MacOS"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(bundle, "Contents", "Info.plist"), []byte(infoPlist), 0o644))
	return bundle
}

// execute runs the CLI with args and returns what it wrote to stdout
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--no-color"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	bundle := makeBundle(t, t.TempDir(), "Foo.app")

	out, err := execute(t, "", "version", bundle)
	require.NoError(t, err)
	assert.Equal(t, "1.2.3\n", out)

	out, err = execute(t, "", "version", filepath.Join(bundle, "Contents", "MacOS", "Foo"))
	require.NoError(t, err)
	assert.Equal(t, "1.2.3\n", out)

	out, err = execute(t, "", "version", filepath.Join(t.TempDir(), "Missing.app"))
	assert.ErrorIs(t, err, errNoVersion)
	assert.Empty(t, out)
}

func TestMetadataCommand(t *testing.T) {
	bundle := makeBundle(t, t.TempDir(), "Foo.app")

	out, err := execute(t, "", "metadata", bundle)
	require.NoError(t, err)

	var record map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &record))
	assert.Equal(t, map[string]string{
		"version":          "1.2.3",
		"productName":      "Foo",
		"fileDescription":  "",
		"legalCopyright":   "Copyright 2024 Foo Inc.",
		"originalFilename": "",
		"companyName":      "",
	}, record)
}

func TestCallCommand(t *testing.T) {
	bundle := makeBundle(t, t.TempDir(), "Foo.app")

	out, err := execute(t, "", "call", bridge.MethodGetBinaryFileVersion, bundle)
	require.NoError(t, err)
	assert.JSONEq(t, `"1.2.3"`, out)

	out, err = execute(t, "", "call", bridge.MethodGetBinaryFileVersion, filepath.Join(t.TempDir(), "none"))
	require.NoError(t, err)
	assert.JSONEq(t, `null`, out)

	_, err = execute(t, "", "call", "getIcon", bundle)
	assert.ErrorIs(t, err, bridge.ErrNotImplemented)
}

func TestServeCommand(t *testing.T) {
	bundle := makeBundle(t, t.TempDir(), "Foo.app")

	req, err := json.Marshal(map[string]interface{}{
		"id":        7,
		"method":    bridge.MethodGetBinaryFileVersion,
		"arguments": map[string]string{"filePath": bundle},
	})
	require.NoError(t, err)

	out, err := execute(t, string(req)+"\n", "serve")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":7,"result":"1.2.3"}`, out)
}

func TestScanCommand(t *testing.T) {
	root := t.TempDir()
	makeBundle(t, root, "Foo.app")
	makeBundle(t, filepath.Join(root, "Sub"), "Bar.app")
	output := filepath.Join(t.TempDir(), "index.json")

	_, err := execute(t, "", "scan", root, "--output", output, "--workers", "2", "--exclude", "/Sub$")
	require.NoError(t, err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)

	var index storage.JSONOutput
	require.NoError(t, json.Unmarshal(data, &index))
	assert.NotEmpty(t, index.RunID)
	require.Len(t, index.Bundles, 1)
	assert.Equal(t, filepath.Join(root, "Foo.app"), index.Bundles[0].BundlePath)
	assert.Equal(t, "1.2.3", index.Bundles[0].Version)
	assert.Equal(t, "darwin", index.Bundles[0].Platform)
	assert.Equal(t, 1, index.Stats.BundlesStored)
}

func TestInvalidPlatform(t *testing.T) {
	_, err := execute(t, "", "--platform", "beos", "version", "/Applications/Foo.app")
	assert.Error(t, err)
}
