package marketdata

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wonny/graham/internal/contracts"
	"github.com/wonny/graham/pkg/logger"
	"github.com/wonny/graham/pkg/redis"
)

// ErrAllSourcesFailed is returned by LiveProvider when not a single signal could be fetched
var ErrAllSourcesFailed = errors.New("every market data source failed")

// LiveProvider assembles a SignalSet from Yahoo, FRED and (optionally) multpl.com.
// A failing source only leaves its signal absent.
// ⭐ SSOT: live signal assembly
type LiveProvider struct {
	yahoo       *YahooClient
	fred        *FREDClient
	multpl      *MultplClient
	includeCAPE bool
	logger      *logger.Logger
}

// NewLiveProvider creates a live provider. multpl may be nil when CAPE is not wanted.
func NewLiveProvider(yahoo *YahooClient, fred *FREDClient, multpl *MultplClient, includeCAPE bool, log *logger.Logger) *LiveProvider {
	return &LiveProvider{
		yahoo:       yahoo,
		fred:        fred,
		multpl:      multpl,
		includeCAPE: includeCAPE && multpl != nil,
		logger:      log.WithComponent("live_provider"),
	}
}

// Name identifies the provider in decisions and cache keys.
// Sets with and without CAPE differ, so the name does too.
func (p *LiveProvider) Name() string {
	if p.includeCAPE {
		return "live+cape"
	}
	return "live"
}

// signalTask fetches one value and stores it into the set
type signalTask struct {
	name  string
	fetch func(ctx context.Context) (float64, error)
	apply func(s *contracts.SignalSet, v float64)
}

type signalResult struct {
	task  signalTask
	value float64
	err   error
}

func (p *LiveProvider) tasks() []signalTask {
	tasks := []signalTask{
		{"spx_vs_200d_pct", func(ctx context.Context) (float64, error) { return p.yahoo.TrendVs200d(ctx, SymbolSPX) },
			func(s *contracts.SignalSet, v float64) { s.SPXvs200dPct = contracts.Float(v) }},
		{"vix_level", func(ctx context.Context) (float64, error) { return p.yahoo.LastClose(ctx, SymbolVIX) },
			func(s *contracts.SignalSet, v float64) { s.VIXLevel = contracts.Float(v) }},
		{"forward_pe", func(ctx context.Context) (float64, error) { return p.yahoo.ForwardPE(ctx, SymbolSPY) },
			func(s *contracts.SignalSet, v float64) {
				s.ForwardPE = contracts.Float(v)
				s.EarningsYieldPct = contracts.Float(100.0 / v)
			}},
		{"yc_10y_3m_bps", p.fred.YieldCurveBps,
			func(s *contracts.SignalSet, v float64) { s.YieldCurve10y3mBps = contracts.Float(v) }},
		{"hy_oas_bps", p.fred.HYOASBps,
			func(s *contracts.SignalSet, v float64) { s.HYOASBps = contracts.Float(v) }},
		{"unemp_6m_change_pp", p.fred.Unemployment6mChange,
			func(s *contracts.SignalSet, v float64) { s.Unemp6mChangePP = contracts.Float(v) }},
	}

	if p.includeCAPE {
		tasks = append(tasks, signalTask{"cape", p.multpl.LatestCAPE,
			func(s *contracts.SignalSet, v float64) { s.CAPE = contracts.Float(v) }})
	}
	return tasks
}

// Fetch runs every source concurrently
func (p *LiveProvider) Fetch(ctx context.Context) (*contracts.SignalSet, error) {
	start := time.Now()
	tasks := p.tasks()

	var wg sync.WaitGroup
	resultCh := make(chan signalResult, len(tasks))
	for _, task := range tasks {
		wg.Add(1)
		go func(task signalTask) {
			defer wg.Done()
			v, err := task.fetch(ctx)
			resultCh <- signalResult{task: task, value: v, err: err}
		}(task)
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	set := &contracts.SignalSet{}
	failCount := 0
	for result := range resultCh {
		if result.err != nil {
			failCount++
			p.logger.WithError(result.err).WithField("signal", result.task.name).Warn("Signal unavailable")
			continue
		}
		result.task.apply(set, result.value)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if failCount == len(tasks) {
		return nil, ErrAllSourcesFailed
	}

	p.logger.WithFields(map[string]interface{}{
		"present":  set.Present(),
		"failed":   failCount,
		"duration": time.Since(start).String(),
	}).Info("Fetched live signals")

	return set, nil
}

// StaticProvider serves a fixed SignalSet (manual policy values, API requests)
type StaticProvider struct {
	name string
	set  contracts.SignalSet
}

// NewStaticProvider creates a provider returning set
func NewStaticProvider(name string, set contracts.SignalSet) *StaticProvider {
	return &StaticProvider{name: name, set: set.Clone()}
}

func (p *StaticProvider) Name() string { return p.name }

// Fetch returns a copy of the set
func (p *StaticProvider) Fetch(ctx context.Context) (*contracts.SignalSet, error) {
	s := p.set.Clone()
	return &s, nil
}

// OverlayProvider puts explicit values (CLI flags) on top of another provider
type OverlayProvider struct {
	inner     contracts.MarketDataProvider
	overrides contracts.SignalSet
}

// NewOverlayProvider wraps inner; present fields of overrides win
func NewOverlayProvider(inner contracts.MarketDataProvider, overrides contracts.SignalSet) *OverlayProvider {
	return &OverlayProvider{inner: inner, overrides: overrides.Clone()}
}

func (p *OverlayProvider) Name() string { return p.inner.Name() + "+manual" }

// Fetch fetches from inner and applies the overrides
func (p *OverlayProvider) Fetch(ctx context.Context) (*contracts.SignalSet, error) {
	s, err := p.inner.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	merged := s.Overlay(p.overrides)
	return &merged, nil
}

// Cache is the JSON cache the providers and clients read through; *redis.Cache implements it
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// CachedProvider keeps another provider's SignalSet in Redis, keyed by provider and day.
// Cache failures are logged and fall through to the inner provider.
type CachedProvider struct {
	inner  contracts.MarketDataProvider
	cache  Cache
	ttl    time.Duration
	now    func() time.Time
	logger *logger.Logger
}

// NewCachedProvider wraps inner with cache
func NewCachedProvider(inner contracts.MarketDataProvider, cache Cache, ttl time.Duration, log *logger.Logger) *CachedProvider {
	return &CachedProvider{
		inner:  inner,
		cache:  cache,
		ttl:    ttl,
		now:    time.Now,
		logger: log.WithComponent("signal_cache"),
	}
}

func (p *CachedProvider) Name() string { return p.inner.Name() }

// Fetch serves from cache or populates it
func (p *CachedProvider) Fetch(ctx context.Context) (*contracts.SignalSet, error) {
	key := redis.SignalsKey(p.inner.Name(), p.now())

	var cached contracts.SignalSet
	found, err := p.cache.Get(ctx, key, &cached)
	if err != nil {
		p.logger.WithError(err).WithField("key", key).Warn("Signal cache read failed")
	}
	if found {
		p.logger.WithField("key", key).Debug("Signal cache hit")
		return &cached, nil
	}

	s, err := p.inner.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.inner.Name(), err)
	}

	if err := p.cache.Set(ctx, key, s, p.ttl); err != nil {
		p.logger.WithError(err).WithField("key", key).Warn("Signal cache write failed")
	}
	return s, nil
}
