package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/wonny/graham/internal/advisor"
	"github.com/wonny/graham/internal/contracts"
	"github.com/wonny/graham/internal/holdings"
	"github.com/wonny/graham/internal/marketdata"
	"github.com/wonny/graham/internal/policy"
	"github.com/wonny/graham/internal/recorder"
	"github.com/wonny/graham/internal/state"
	"github.com/wonny/graham/pkg/config"
	"github.com/wonny/graham/pkg/database"
	"github.com/wonny/graham/pkg/httputil"
	"github.com/wonny/graham/pkg/logger"
	"github.com/wonny/graham/pkg/redis"
)

// app holds the components every command shares
type app struct {
	cfg        *config.Config
	log        *logger.Logger
	policy     *policy.Policy
	policyFile string // empty when running on defaults
	policyHash string

	db       *database.DB // nil unless a postgres backend is configured
	redis    *redis.Client
	state    contracts.StateStore
	recorder contracts.DecisionRecorder
	history  recorder.Reader
}

// newApp loads config and policy and opens the configured stores
func newApp(ctx context.Context, stderr io.Writer) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	log := logger.NewWithWriter(stderr, cfg)

	a := &app{cfg: cfg, log: log}

	if err := a.loadPolicy(); err != nil {
		return nil, err
	}

	if cfg.NeedsDatabase() {
		db, err := database.New(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		a.db = db
	}

	a.redis, err = redis.New(ctx, cfg)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, continuing without cache")
		a.redis = redis.Disabled()
	}

	switch cfg.State.Backend {
	case config.StateBackendPostgres:
		a.state = state.NewPostgresStore(a.db.Pool)
	case config.StateBackendMemory:
		a.state = state.NewMemoryStore()
	default:
		a.state = state.NewFileStore(cfg.State.Path, log)
	}

	if cfg.Recorder.SQLitePath != "" {
		rec, err := recorder.NewSQLiteRecorder(cfg.Recorder.SQLitePath, log)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("open recorder: %w", err)
		}
		a.recorder, a.history = rec, rec
	} else {
		a.recorder, a.history = recorder.NoopRecorder{}, recorder.NoopRecorder{}
	}

	return a, nil
}

func (a *app) loadPolicy() error {
	path := policyPath
	if path == "" {
		path = a.cfg.PolicyPath
	}
	if path == "" {
		a.policy = policy.Default()
	} else {
		p, _, err := policy.Load(path)
		if err != nil {
			return err
		}
		a.policy = p
		a.policyFile = path
	}

	for _, w := range policy.Warn(a.policy) {
		a.log.WithField("code", w.Code).Warn(w.Message)
	}

	hash, err := policy.Hash(a.policy)
	if err != nil {
		return fmt.Errorf("hash policy: %w", err)
	}
	a.policyHash = hash
	return nil
}

func (a *app) close() {
	if a.recorder != nil {
		if err := a.recorder.Close(); err != nil {
			a.log.WithError(err).Warn("Failed to close recorder")
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

// holdingsProvider resolves --holdings, then the postgres source, then the policy or env path
func (a *app) holdingsProvider(pathFlag string) contracts.HoldingsProvider {
	switch {
	case pathFlag != "":
		return holdings.NewCSVProvider(pathFlag, a.log)
	case a.cfg.Holdings.Source == config.HoldingsSourcePostgres:
		return holdings.NewPostgresProvider(a.db.Pool)
	case a.policyFile != "" && a.policy.Holdings.Path != "":
		return holdings.NewCSVProvider(a.policy.Holdings.Path, a.log)
	default:
		return holdings.NewCSVProvider(a.cfg.Holdings.Path, a.log)
	}
}

// marketProvider builds the live or manual provider; overrides win over either
func (a *app) marketProvider(live, includeCAPE bool, overrides contracts.SignalSet) contracts.MarketDataProvider {
	if !live {
		manual := a.policy.Market.Manual.Overlay(overrides)
		return marketdata.NewStaticProvider("manual", manual)
	}

	limiter := redis.NewRateLimiter(a.redis, "graham")

	yahooHTTP := httputil.New(a.log)
	fredHTTP := httputil.New(a.log)
	if a.redis.Enabled() {
		yahooHTTP.WithRateLimiter(limiter, redis.YahooRateLimit)
		fredHTTP.WithRateLimiter(limiter, redis.FREDRateLimit(a.cfg.FRED.RatePerMinute))
	} else {
		yahooHTTP.WithLimit(5, 5)
		fredHTTP.WithLimit(float64(a.cfg.FRED.RatePerMinute)/60.0, 1)
	}

	var multpl *marketdata.MultplClient
	if includeCAPE {
		multpl = marketdata.NewMultplClient(a.cfg.Multpl.BaseURL, httputil.New(a.log), a.log)
	}

	fred := marketdata.NewFREDClient(a.cfg.FRED.BaseURL, a.cfg.FRED.APIKey, fredHTTP, a.log)
	if a.redis.Enabled() {
		fred.WithCache(redis.NewCache(a.redis, "graham"), redis.TTLDaily)
	}

	var provider contracts.MarketDataProvider = marketdata.NewLiveProvider(
		marketdata.NewYahooClient(a.cfg.Yahoo.BaseURL, yahooHTTP, a.log),
		fred,
		multpl,
		includeCAPE,
		a.log,
	)

	if a.redis.Enabled() {
		provider = marketdata.NewCachedProvider(provider, redis.NewCache(a.redis, "graham"), a.cfg.Redis.SignalTTL, a.log)
	}
	if overrides.Present() > 0 {
		provider = marketdata.NewOverlayProvider(provider, overrides)
	}
	return provider
}

// runConfig is the policy's run configuration
func (a *app) runConfig() (advisor.RunConfig, error) {
	return advisor.ConfigFromPolicy(a.policy, a.policyHash)
}
