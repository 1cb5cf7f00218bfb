package scanner

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/deploymenttheory/go-binmeta/internal/logger"
	"github.com/deploymenttheory/go-binmeta/internal/resolver"
	"github.com/spf13/afero"
)

var errStopped = errors.New("scan stopped")

// executableExtensions are the file types scanned on the windows platform
var executableExtensions = []string{".exe", ".dll"}

// Stats holds scanner statistics
type Stats struct {
	DirsVisited  int
	BundlesFound int
	PathsSkipped int
	StartTime    time.Time
	EndTime      time.Time
}

// Options controls what a scan visits
type Options struct {
	Root            string
	Platform        string
	MaxDepth        int // 0 or less walks the whole tree
	IncludePatterns []string
	ExcludePatterns []string
}

// Scanner walks a directory tree and sends every bundle or executable it
// finds to a queue
type Scanner struct {
	fs              afero.Fs
	root            string
	platform        string
	maxDepth        int
	includePatterns []*regexp.Regexp
	excludePatterns []*regexp.Regexp
	queue           chan<- string

	stats      Stats
	statsMutex sync.RWMutex

	done     chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
}

// New creates a new Scanner. Invalid patterns are logged and ignored.
func New(fs afero.Fs, opts Options, queue chan<- string) *Scanner {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	s := &Scanner{
		fs:       fs,
		root:     filepath.Clean(opts.Root),
		platform: strings.ToLower(opts.Platform),
		maxDepth: opts.MaxDepth,
		queue:    queue,
		done:     make(chan struct{}),
		stop:     make(chan struct{}),
	}

	s.includePatterns = compilePatterns("include", opts.IncludePatterns)
	s.excludePatterns = compilePatterns("exclude", opts.ExcludePatterns)

	return s
}

func compilePatterns(kind string, patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		logger.Debugf("Compiling %s pattern: %q", kind, pattern)
		if pattern == "" {
			logger.Warningf("Empty %s pattern ignored", kind)
			continue
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			logger.Warningf("Invalid %s pattern %q: %v", kind, pattern, err)
			continue
		}
		compiled = append(compiled, re)
	}
	return compiled
}

// Run walks the tree, blocking until the walk completes or Stop is called
func (s *Scanner) Run() error {
	defer close(s.done)

	s.statsMutex.Lock()
	s.stats.StartTime = time.Now()
	s.statsMutex.Unlock()
	defer func() {
		s.statsMutex.Lock()
		s.stats.EndTime = time.Now()
		s.statsMutex.Unlock()
	}()

	logger.Infof("Scanner starting with settings:")
	logger.Infof("  Root: %s", s.root)
	logger.Infof("  Platform: %s", s.platform)
	logger.Infof("  Max depth: %d", s.maxDepth)
	logger.Debugf("  Include patterns: %d patterns", len(s.includePatterns))
	logger.Debugf("  Exclude patterns: %d patterns", len(s.excludePatterns))

	if _, err := s.fs.Stat(s.root); err != nil {
		return fmt.Errorf("scan root %s: %w", s.root, err)
	}

	err := afero.Walk(s.fs, s.root, s.visit)
	if errors.Is(err, errStopped) {
		logger.Infof("Scan stopped")
		return nil
	}
	if err != nil {
		return err
	}

	logger.Infof("Scan completed")
	return nil
}

func (s *Scanner) visit(path string, info os.FileInfo, err error) error {
	if s.isStopped() {
		return errStopped
	}
	if err != nil {
		logger.Warningf("Cannot access %s: %v", path, err)
		if info != nil && info.IsDir() {
			return filepath.SkipDir
		}
		return nil
	}

	depth := s.depth(path)
	if s.maxDepth > 0 && depth > s.maxDepth {
		if info.IsDir() {
			return filepath.SkipDir
		}
		return nil
	}

	if s.matchesAny(s.excludePatterns, path) {
		logger.Debugf("Path %s matched an exclude pattern, skipping", path)
		s.incrementSkipped()
		if info.IsDir() {
			return filepath.SkipDir
		}
		return nil
	}

	if s.isTarget(path, info) {
		if len(s.includePatterns) > 0 && !s.matchesAny(s.includePatterns, path) {
			logger.Debugf("Path %s did not match any include patterns, skipping", path)
			s.incrementSkipped()
		} else if err := s.send(path); err != nil {
			return err
		}
		// bundles are leaves; nested helper apps belong to their parent
		if info.IsDir() {
			return filepath.SkipDir
		}
		return nil
	}

	if info.IsDir() {
		s.incrementVisited()
		if s.maxDepth > 0 && depth == s.maxDepth {
			return filepath.SkipDir
		}
	}
	return nil
}

// isTarget reports whether a walked entry is something to read metadata from
func (s *Scanner) isTarget(path string, info os.FileInfo) bool {
	if s.platform == "windows" {
		if info.IsDir() {
			return false
		}
		ext := strings.ToLower(filepath.Ext(path))
		for _, e := range executableExtensions {
			if ext == e {
				return true
			}
		}
		return false
	}
	return info.IsDir() && strings.EqualFold(filepath.Ext(path), resolver.BundleExtension)
}

func (s *Scanner) depth(path string) int {
	rel, err := filepath.Rel(s.root, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}

func (s *Scanner) matchesAny(patterns []*regexp.Regexp, path string) bool {
	for _, re := range patterns {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

func (s *Scanner) send(path string) error {
	select {
	case s.queue <- path:
		logger.Debugf("Queued %s", path)
		s.incrementFound()
		return nil
	case <-s.stop:
		return errStopped
	}
}

// Done returns a channel that's closed when the scan is complete
func (s *Scanner) Done() <-chan struct{} {
	return s.done
}

// Stop signals the scanner to stop
func (s *Scanner) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *Scanner) isStopped() bool {
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}

// Stats returns the current scanner statistics
func (s *Scanner) Stats() Stats {
	s.statsMutex.RLock()
	defer s.statsMutex.RUnlock()
	return s.stats
}

// Duration returns how long the scan ran, or has been running
func (s *Scanner) Duration() time.Duration {
	s.statsMutex.RLock()
	defer s.statsMutex.RUnlock()

	if s.stats.StartTime.IsZero() {
		return 0
	}
	if s.stats.EndTime.IsZero() {
		return time.Since(s.stats.StartTime)
	}
	return s.stats.EndTime.Sub(s.stats.StartTime)
}

func (s *Scanner) incrementVisited() {
	s.statsMutex.Lock()
	s.stats.DirsVisited++
	s.statsMutex.Unlock()
}

func (s *Scanner) incrementFound() {
	s.statsMutex.Lock()
	s.stats.BundlesFound++
	s.statsMutex.Unlock()
}

func (s *Scanner) incrementSkipped() {
	s.statsMutex.Lock()
	s.stats.PathsSkipped++
	s.statsMutex.Unlock()
}
