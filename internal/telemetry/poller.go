package telemetry

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kaushikharsh99/MARK-2/domain/entities"
)

// pollInterval is the fixed telemetry refresh period. The interval is the
// implicit retry; there is no backoff.
const pollInterval = 10 * time.Second

// SystemDataSource provides the four polled backend resources.
type SystemDataSource interface {
	SystemSpecs(ctx context.Context) (json.RawMessage, error)
	SystemOverview(ctx context.Context) (json.RawMessage, error)
	Providers(ctx context.Context) (map[string]entities.ProviderInfo, error)
	MarketplaceModels(ctx context.Context) (map[string][]entities.MarketplaceModel, error)
}

// Poller fetches system telemetry on a fixed interval and retains the
// last-known snapshot. Each resource fails independently; one failing
// resource never blocks or clears the others.
type Poller struct {
	source   SystemDataSource
	logger   *zap.Logger
	interval time.Duration

	mu       sync.RWMutex
	snapshot entities.TelemetrySnapshot
	onUpdate func(entities.TelemetrySnapshot)
}

// NewPoller creates a poller over the given data source.
func NewPoller(source SystemDataSource, logger *zap.Logger) *Poller {
	return &Poller{
		source:   source,
		logger:   logger,
		interval: pollInterval,
	}
}

// SetOnUpdate registers a listener invoked after every completed tick with
// the fresh snapshot.
func (p *Poller) SetOnUpdate(f func(entities.TelemetrySnapshot)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onUpdate = f
}

// Run polls immediately and then every interval until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	p.Poll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Poll(ctx)
		}
	}
}

// Poll fetches all four resources concurrently. Failures are logged and
// leave the previous value of that resource in place; the next tick is the
// retry.
func (p *Poller) Poll(ctx context.Context) {
	var wg sync.WaitGroup
	var (
		specs       json.RawMessage
		overview    json.RawMessage
		providers   map[string]entities.ProviderInfo
		marketplace map[string][]entities.MarketplaceModel

		specsErr, overviewErr, providersErr, marketErr error
	)

	wg.Add(4)
	go func() {
		defer wg.Done()
		specs, specsErr = p.source.SystemSpecs(ctx)
	}()
	go func() {
		defer wg.Done()
		overview, overviewErr = p.source.SystemOverview(ctx)
	}()
	go func() {
		defer wg.Done()
		providers, providersErr = p.source.Providers(ctx)
	}()
	go func() {
		defer wg.Done()
		marketplace, marketErr = p.source.MarketplaceModels(ctx)
	}()
	wg.Wait()

	p.mu.Lock()
	if specsErr != nil {
		p.logger.Warn("Failed to fetch system specs", zap.Error(specsErr))
	} else {
		p.snapshot.Specs = specs
	}
	if overviewErr != nil {
		p.logger.Warn("Failed to fetch system overview", zap.Error(overviewErr))
	} else {
		p.snapshot.Overview = overview
	}
	if providersErr != nil {
		p.logger.Warn("Failed to fetch providers", zap.Error(providersErr))
	} else {
		p.snapshot.Providers = providers
	}
	if marketErr != nil {
		p.logger.Warn("Failed to fetch marketplace models", zap.Error(marketErr))
	} else {
		p.snapshot.Marketplace = marketplace
	}
	snap := p.snapshot
	listener := p.onUpdate
	p.mu.Unlock()

	if listener != nil {
		listener(snap)
	}
}

// Snapshot returns the last-known telemetry values.
func (p *Poller) Snapshot() entities.TelemetrySnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshot
}
