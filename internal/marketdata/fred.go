package marketdata

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/wonny/graham/pkg/httputil"
	"github.com/wonny/graham/pkg/logger"
	"github.com/wonny/graham/pkg/redis"
)

// FRED series
const (
	SeriesTreasury10y  = "DGS10"
	SeriesTreasury3m   = "DGS3MO"
	SeriesHYOAS        = "BAMLH0A0HYM2"
	SeriesUnemployment = "UNRATE"
)

// ErrNoAPIKey is returned by FRED calls when FRED_API_KEY is not configured
var ErrNoAPIKey = errors.New("FRED_API_KEY not set")

// Observation is one dated FRED value
type Observation struct {
	Date  time.Time
	Value float64
}

// FREDClient reads series observations from the St. Louis Fed API
type FREDClient struct {
	http    *httputil.Client
	baseURL string
	apiKey  string
	logger  *logger.Logger
	now     func() time.Time

	cache    Cache // optional
	cacheTTL time.Duration
}

// NewFREDClient creates a client against baseURL (https://api.stlouisfed.org)
func NewFREDClient(baseURL, apiKey string, http *httputil.Client, log *logger.Logger) *FREDClient {
	return &FREDClient{
		http:    http,
		baseURL: baseURL,
		apiKey:  apiKey,
		logger:  log.WithComponent("fred"),
		now:     time.Now,
	}
}

// WithCache keeps fetched series in cache for ttl. FRED publishes at most daily.
func (c *FREDClient) WithCache(cache Cache, ttl time.Duration) *FREDClient {
	c.cache = cache
	c.cacheTTL = ttl
	return c
}

type fredObservations struct {
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"observations"`
}

// Observations returns the series from start to today, oldest first.
// Missing observations (".") are dropped. With a cache, a series is fetched
// once per start date and TTL.
func (c *FREDClient) Observations(ctx context.Context, series string, start time.Time) ([]Observation, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}
	if c.cache == nil {
		return c.fetchObservations(ctx, series, start)
	}

	key := redis.SeriesKey("fred", series+":"+start.Format("2006-01-02"))
	var cached []Observation
	found, err := c.cache.Get(ctx, key, &cached)
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Series cache read failed")
	}
	if found {
		return cached, nil
	}

	obs, err := c.fetchObservations(ctx, series, start)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, key, obs, c.cacheTTL); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Series cache write failed")
	}
	return obs, nil
}

func (c *FREDClient) fetchObservations(ctx context.Context, series string, start time.Time) ([]Observation, error) {
	q := url.Values{}
	q.Set("series_id", series)
	q.Set("api_key", c.apiKey)
	q.Set("file_type", "json")
	q.Set("observation_start", start.Format("2006-01-02"))
	q.Set("observation_end", c.now().Format("2006-01-02"))
	q.Set("sort_order", "asc")

	var resp fredObservations
	if err := c.http.GetJSON(ctx, c.baseURL+"/fred/series/observations?"+q.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("fred %s: %w", series, err)
	}

	out := make([]Observation, 0, len(resp.Observations))
	for _, o := range resp.Observations {
		if o.Value == "." || o.Value == "" {
			continue
		}
		v, err := strconv.ParseFloat(o.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("fred %s %s: %w", series, o.Date, err)
		}
		date, err := time.Parse("2006-01-02", o.Date)
		if err != nil {
			return nil, fmt.Errorf("fred %s date %q: %w", series, o.Date, err)
		}
		out = append(out, Observation{Date: date, Value: v})
	}

	c.logger.WithFields(map[string]interface{}{
		"series":       series,
		"observations": len(out),
	}).Debug("Fetched FRED series")

	return out, nil
}

// Latest returns the newest value of series within the last two years
func (c *FREDClient) Latest(ctx context.Context, series string) (float64, error) {
	obs, err := c.Observations(ctx, series, c.now().AddDate(-2, 0, 0))
	if err != nil {
		return 0, err
	}
	if len(obs) == 0 {
		return 0, fmt.Errorf("fred %s: %w", series, ErrNotEnoughData)
	}
	return obs[len(obs)-1].Value, nil
}

// ValueAndPrior returns the newest value and the value lag observations earlier.
// A series shorter than lag+1 compares against its first observation.
func (c *FREDClient) ValueAndPrior(ctx context.Context, series string, lag int) (latest, prior float64, err error) {
	obs, err := c.Observations(ctx, series, c.now().AddDate(-2, 0, 0))
	if err != nil {
		return 0, 0, err
	}
	if len(obs) == 0 {
		return 0, 0, fmt.Errorf("fred %s: %w", series, ErrNotEnoughData)
	}

	priorIdx := len(obs) - 1 - lag
	if priorIdx < 0 {
		priorIdx = 0
	}
	return obs[len(obs)-1].Value, obs[priorIdx].Value, nil
}

// YieldCurveBps is (10y - 3m) in basis points
func (c *FREDClient) YieldCurveBps(ctx context.Context) (float64, error) {
	long, err := c.Latest(ctx, SeriesTreasury10y)
	if err != nil {
		return 0, err
	}
	short, err := c.Latest(ctx, SeriesTreasury3m)
	if err != nil {
		return 0, err
	}
	return (long - short) * 100.0, nil
}

// HYOASBps is the ICE BofA high-yield OAS in basis points
func (c *FREDClient) HYOASBps(ctx context.Context) (float64, error) {
	pct, err := c.Latest(ctx, SeriesHYOAS)
	if err != nil {
		return 0, err
	}
	return pct * 100.0, nil
}

// Unemployment6mChange is UNRATE now minus six monthly observations ago, in percentage points
func (c *FREDClient) Unemployment6mChange(ctx context.Context) (float64, error) {
	now, prior, err := c.ValueAndPrior(ctx, SeriesUnemployment, 6)
	if err != nil {
		return 0, err
	}
	return now - prior, nil
}
