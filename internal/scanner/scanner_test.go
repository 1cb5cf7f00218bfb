package scanner

import (
	"path/filepath"
	"sort"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTree(t *testing.T, files ...string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for _, f := range files {
		f = filepath.FromSlash(f)
		require.NoError(t, fs.MkdirAll(filepath.Dir(f), 0o755))
		require.NoError(t, afero.WriteFile(fs, f, []byte("x"), 0o644))
	}
	return fs
}

// scanAll runs a scan to completion and returns the queued paths sorted
func scanAll(t *testing.T, fs afero.Fs, opts Options) ([]string, *Scanner) {
	t.Helper()
	queue := make(chan string, 64)
	s := New(fs, opts, queue)
	require.NoError(t, s.Run())
	close(queue)

	var got []string
	for p := range queue {
		got = append(got, filepath.ToSlash(p))
	}
	sort.Strings(got)
	return got, s
}

func TestScanFindsBundlesWithoutDescending(t *testing.T) {
	fs := newTree(t,
		"/Applications/Editor.app/Contents/Info.plist",
		"/Applications/Editor.app/Contents/Helpers/Helper.app/Contents/Info.plist",
		"/Applications/Utilities/Terminal.app/Contents/Info.plist",
		"/Applications/readme.txt",
	)

	got, s := scanAll(t, fs, Options{Root: "/Applications", Platform: "darwin"})
	assert.Equal(t, []string{
		"/Applications/Editor.app",
		"/Applications/Utilities/Terminal.app",
	}, got)

	stats := s.Stats()
	assert.Equal(t, 2, stats.BundlesFound)
	assert.Equal(t, 2, stats.DirsVisited)
	assert.False(t, stats.EndTime.IsZero())
	assert.Equal(t, stats.EndTime.Sub(stats.StartTime), s.Duration())

	select {
	case <-s.Done():
	default:
		t.Fatal("Done channel not closed after Run")
	}
}

func TestScanRootIsBundle(t *testing.T) {
	fs := newTree(t, "/Apps/Foo.app/Contents/Info.plist")
	got, _ := scanAll(t, fs, Options{Root: "/Apps/Foo.app", Platform: "darwin"})
	assert.Equal(t, []string{"/Apps/Foo.app"}, got)
}

func TestScanMaxDepth(t *testing.T) {
	fs := newTree(t,
		"/root/A.app/Contents/Info.plist",
		"/root/one/B.app/Contents/Info.plist",
		"/root/one/two/C.app/Contents/Info.plist",
	)

	got, _ := scanAll(t, fs, Options{Root: "/root", Platform: "darwin", MaxDepth: 2})
	assert.Equal(t, []string{"/root/A.app", "/root/one/B.app"}, got)

	got, _ = scanAll(t, fs, Options{Root: "/root", Platform: "darwin"})
	assert.Len(t, got, 3)
}

func TestScanPatterns(t *testing.T) {
	fs := newTree(t,
		"/Apps/Foo.app/Contents/Info.plist",
		"/Apps/Bar.app/Contents/Info.plist",
		"/Apps/Private/Baz.app/Contents/Info.plist",
	)

	got, s := scanAll(t, fs, Options{
		Root:            "/Apps",
		Platform:        "darwin",
		IncludePatterns: []string{`(Foo|Baz)\.app$`, "", "(unclosed"},
		ExcludePatterns: []string{"/Private$"},
	})
	assert.Equal(t, []string{"/Apps/Foo.app"}, got)
	assert.Equal(t, 2, s.Stats().PathsSkipped)
}

func TestScanWindowsExecutables(t *testing.T) {
	fs := newTree(t,
		"/Program Files/Acme/acme.exe",
		"/Program Files/Acme/acme.DLL",
		"/Program Files/Acme/readme.txt",
		"/Program Files/Tool.app/Contents/Info.plist",
	)

	got, _ := scanAll(t, fs, Options{Root: "/Program Files", Platform: "windows"})
	assert.Equal(t, []string{"/Program Files/Acme/acme.DLL", "/Program Files/Acme/acme.exe"}, got)
}

func TestScanMissingRoot(t *testing.T) {
	s := New(afero.NewMemMapFs(), Options{Root: "/absent", Platform: "darwin"}, make(chan string))
	assert.Error(t, s.Run())
}

func TestScanStop(t *testing.T) {
	fs := newTree(t,
		"/Apps/A.app/Contents/Info.plist",
		"/Apps/B.app/Contents/Info.plist",
	)

	// unbuffered and never drained: the first send blocks until Stop
	queue := make(chan string)
	s := New(fs, Options{Root: "/Apps", Platform: "darwin"}, queue)

	errc := make(chan error, 1)
	go func() { errc <- s.Run() }()
	s.Stop()
	s.Stop()

	assert.NoError(t, <-errc)
	assert.Equal(t, 0, s.Stats().BundlesFound)
}
