package processor

import (
	"sync"
	"time"

	"github.com/deploymenttheory/go-binmeta/internal/logger"
	"github.com/deploymenttheory/go-binmeta/internal/metadata"
	"github.com/deploymenttheory/go-binmeta/internal/storage"
	"github.com/deploymenttheory/go-binmeta/internal/types"
)

// Stats holds processor statistics
type Stats struct {
	BundlesProcessed int
	BundlesSkipped   int
	Errors           int
	StartTime        time.Time
	EndTime          time.Time
}

// Describer resolves and loads the descriptor behind a path
type Describer interface {
	Describe(path string) metadata.Descriptor
}

// Processor reads metadata for discovered bundles and stores it
type Processor struct {
	workers    int
	describer  Describer
	platform   string
	storage    storage.Storage
	inputQueue chan string

	wg         sync.WaitGroup
	stats      Stats
	statsMutex sync.RWMutex

	stop     chan struct{}
	stopOnce sync.Once
}

// New creates a new Processor
func New(workers int, describer Describer, platform string, storage storage.Storage) *Processor {
	if workers < 1 {
		workers = 1
	}
	return &Processor{
		workers:    workers,
		describer:  describer,
		platform:   platform,
		storage:    storage,
		inputQueue: make(chan string, 100),
		stop:       make(chan struct{}),
	}
}

// Start begins the processing workers
func (p *Processor) Start() {
	p.statsMutex.Lock()
	p.stats.StartTime = time.Now()
	p.statsMutex.Unlock()

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// worker processes discovered bundle paths
func (p *Processor) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stop:
			return
		case path, ok := <-p.inputQueue:
			if !ok {
				return
			}

			bundle, ok := p.processBundle(path)
			if !ok {
				p.incrementSkipped()
				continue
			}

			if err := p.storage.Store(bundle); err != nil {
				logger.Errorf("Worker %d: Failed to store metadata for %s: %v", id, path, err)
				p.incrementErrors()
				continue
			}
			p.incrementProcessed()
		}
	}
}

// processBundle turns a bundle path into a storable record. Bundles whose
// descriptor is missing or unreadable are skipped.
func (p *Processor) processBundle(path string) (types.ScannedBundle, bool) {
	d := p.describer.Describe(path)
	if !d.Found {
		logger.Debugf("No descriptor for %s at %s", path, d.Path)
		return types.ScannedBundle{}, false
	}
	if !d.Parsed {
		logger.Warningf("Descriptor %s for %s could not be parsed", d.Path, path)
		return types.ScannedBundle{}, false
	}

	logger.Debugf("Read %s: version=%q product=%q", path, d.Record.Version, d.Record.ProductName)

	return types.ScannedBundle{
		BundlePath:       path,
		DescriptorPath:   d.Path,
		SHA3Hash:         d.Digest,
		DescriptorSize:   d.Size,
		Platform:         p.platform,
		DiscoveredAt:     time.Now(),
		Version:          d.Record.Version,
		ProductName:      d.Record.ProductName,
		FileDescription:  d.Record.FileDescription,
		LegalCopyright:   d.Record.LegalCopyright,
		OriginalFilename: d.Record.OriginalFilename,
		CompanyName:      d.Record.CompanyName,
	}, true
}

// Queue returns the input queue channel
func (p *Processor) Queue() chan<- string {
	return p.inputQueue
}

// Done signals that no more bundles will be added
func (p *Processor) Done() {
	close(p.inputQueue)
}

// Stop signals the processor to stop
func (p *Processor) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
}

// Wait waits for all processing to complete
func (p *Processor) Wait() {
	p.wg.Wait()

	p.statsMutex.Lock()
	p.stats.EndTime = time.Now()
	p.statsMutex.Unlock()
}

// Stats returns the current processing statistics
func (p *Processor) Stats() Stats {
	p.statsMutex.RLock()
	defer p.statsMutex.RUnlock()
	return p.stats
}

func (p *Processor) incrementProcessed() {
	p.statsMutex.Lock()
	p.stats.BundlesProcessed++
	p.statsMutex.Unlock()
}

func (p *Processor) incrementSkipped() {
	p.statsMutex.Lock()
	p.stats.BundlesSkipped++
	p.statsMutex.Unlock()
}

func (p *Processor) incrementErrors() {
	p.statsMutex.Lock()
	p.stats.Errors++
	p.statsMutex.Unlock()
}

// Duration returns how long the processor has been running
func (p *Processor) Duration() time.Duration {
	p.statsMutex.RLock()
	defer p.statsMutex.RUnlock()

	if p.stats.StartTime.IsZero() {
		return 0
	}

	if p.stats.EndTime.IsZero() {
		return time.Since(p.stats.StartTime)
	}

	return p.stats.EndTime.Sub(p.stats.StartTime)
}
