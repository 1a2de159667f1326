package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/graham/internal/contracts"
	"github.com/wonny/graham/pkg/httputil"
	"github.com/wonny/graham/pkg/logger"
	"github.com/wonny/graham/pkg/redis"
)

func testHTTP() *httputil.Client {
	return httputil.New(logger.Nop()).DisableRetry().WithTimeout(5 * time.Second)
}

// rising returns n closes 100, 101, 102, ...
func rising(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + float64(i)
	}
	return out
}

func TestPctVsSMA(t *testing.T) {
	t.Run("flat series is zero", func(t *testing.T) {
		closes := make([]float64, 250)
		for i := range closes {
			closes[i] = 50
		}
		v, err := PctVsSMA(closes, 200)
		require.NoError(t, err)
		assert.InDelta(t, 0.0, v, 1e-9)
	})

	t.Run("last bar above average", func(t *testing.T) {
		closes := rising(205)
		// SMA of the last 200 bars: 105..304 -> 204.5; last close 304
		v, err := PctVsSMA(closes, 200)
		require.NoError(t, err)
		assert.InDelta(t, 100*(304/204.5-1), v, 1e-9)
	})

	t.Run("too short", func(t *testing.T) {
		_, err := PctVsSMA(rising(204), 200)
		assert.ErrorIs(t, err, ErrNotEnoughData)
	})
}

// chartJSON builds a /v8/finance/chart body; nil entries become JSON null
func chartJSON(t *testing.T, closes []*float64) []byte {
	t.Helper()
	ts := make([]int64, len(closes))
	for i := range ts {
		ts[i] = int64(1700000000 + i*86400)
	}
	body := map[string]interface{}{
		"chart": map[string]interface{}{
			"result": []interface{}{
				map[string]interface{}{
					"timestamp": ts,
					"indicators": map[string]interface{}{
						"quote": []interface{}{map[string]interface{}{"close": closes}},
					},
				},
			},
			"error": nil,
		},
	}
	data, err := json.Marshal(body)
	require.NoError(t, err)
	return data
}

func ptrs(vals []float64) []*float64 {
	out := make([]*float64, len(vals))
	for i := range vals {
		out[i] = contracts.Float(vals[i])
	}
	return out
}

func yahooServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v8/finance/chart/", func(w http.ResponseWriter, r *http.Request) {
		symbol := strings.TrimPrefix(r.URL.Path, "/v8/finance/chart/")
		switch symbol {
		case SymbolVIX:
			_, _ = w.Write(chartJSON(t, []*float64{contracts.Float(17.5), contracts.Float(18.2), nil}))
		case SymbolSPX:
			_, _ = w.Write(chartJSON(t, ptrs(rising(210))))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	mux.HandleFunc("/v10/finance/quoteSummary/SPY", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"quoteSummary":{"result":[{
			"summaryDetail":{"maxAge":1,"forwardPE":{},"trailingPE":{"raw":25.0,"fmt":"25.00"}},
			"defaultKeyStatistics":{"forwardPE":{"raw":20.0,"fmt":"20.00"}}
		}],"error":null}}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestYahooClient(t *testing.T) {
	srv := yahooServer(t)
	c := NewYahooClient(srv.URL, testHTTP(), logger.Nop())
	ctx := context.Background()

	t.Run("last close skips null bars", func(t *testing.T) {
		v, err := c.LastClose(ctx, SymbolVIX)
		require.NoError(t, err)
		assert.Equal(t, 18.2, v)
	})

	t.Run("trend vs 200d", func(t *testing.T) {
		v, err := c.TrendVs200d(ctx, SymbolSPX)
		require.NoError(t, err)
		// last 200 of 100..309 -> mean 209.5, last 309
		assert.InDelta(t, 100*(309/209.5-1), v, 1e-9)
	})

	t.Run("forward pe falls back to key statistics", func(t *testing.T) {
		v, err := c.ForwardPE(ctx, SymbolSPY)
		require.NoError(t, err)
		assert.Equal(t, 20.0, v)
	})

	t.Run("unknown symbol", func(t *testing.T) {
		_, err := c.LastClose(ctx, "NOPE")
		require.Error(t, err)
		var se *httputil.StatusError
		assert.ErrorAs(t, err, &se)
	})
}

func fredServer(t *testing.T, series map[string][]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fred/series/observations", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))
		assert.Equal(t, "json", r.URL.Query().Get("file_type"))

		values, ok := series[r.URL.Query().Get("series_id")]
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		obs := make([]map[string]string, len(values))
		for i, v := range values {
			obs[i] = map[string]string{"date": time.Date(2026, time.Month(i%12+1), 1, 0, 0, 0, 0, time.UTC).Format("2006-01-02"), "value": v}
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"observations": obs})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFREDClient(t *testing.T) {
	srv := fredServer(t, map[string][]string{
		SeriesTreasury10y:  {"4.10", ".", "4.25"},
		SeriesTreasury3m:   {"4.80", "4.75"},
		SeriesHYOAS:        {"3.95", "3.90"},
		SeriesUnemployment: {"4.0", "4.1", "4.1", "4.2", "4.3", "4.2", "4.1", "4.4"},
	})
	c := NewFREDClient(srv.URL, "test-key", testHTTP(), logger.Nop())
	ctx := context.Background()

	t.Run("yield curve in bps", func(t *testing.T) {
		v, err := c.YieldCurveBps(ctx)
		require.NoError(t, err)
		assert.InDelta(t, -50.0, v, 1e-9)
	})

	t.Run("hy oas in bps", func(t *testing.T) {
		v, err := c.HYOASBps(ctx)
		require.NoError(t, err)
		assert.InDelta(t, 390.0, v, 1e-9)
	})

	t.Run("unemployment change over six observations", func(t *testing.T) {
		v, err := c.Unemployment6mChange(ctx)
		require.NoError(t, err)
		// 8 observations: latest 4.4, six back is index 1 (4.1)
		assert.InDelta(t, 0.3, v, 1e-9)
	})

	t.Run("short series compares against first observation", func(t *testing.T) {
		latest, prior, err := c.ValueAndPrior(ctx, SeriesHYOAS, 6)
		require.NoError(t, err)
		assert.Equal(t, 3.90, latest)
		assert.Equal(t, 3.95, prior)
	})

	t.Run("missing api key", func(t *testing.T) {
		noKey := NewFREDClient(srv.URL, "", testHTTP(), logger.Nop())
		_, err := noKey.Latest(ctx, SeriesHYOAS)
		assert.ErrorIs(t, err, ErrNoAPIKey)
	})
}

func TestParseCAPETable(t *testing.T) {
	html, err := os.ReadFile("testdata/shiller_pe.html")
	require.NoError(t, err)

	v, date, err := parseCAPETable(html)
	require.NoError(t, err)
	assert.Equal(t, 37.84, v)
	assert.Equal(t, "Oct 17, 2026", date)

	_, _, err = parseCAPETable([]byte("<html><body><p>maintenance</p></body></html>"))
	assert.Error(t, err)
}

func TestParseNumberCell(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"31.52", 31.52, false},
		{"  31.52 estimate", 31.52, false},
		{"-1.5", -1.5, false},
		{"n/a", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseNumberCell(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLiveProvider(t *testing.T) {
	yahoo := NewYahooClient(yahooServer(t).URL, testHTTP(), logger.Nop())
	ctx := context.Background()

	t.Run("fred without key leaves macro signals absent", func(t *testing.T) {
		fred := NewFREDClient("http://127.0.0.1:1", "", testHTTP(), logger.Nop())
		p := NewLiveProvider(yahoo, fred, nil, true, logger.Nop())
		assert.Equal(t, "live", p.Name())

		s, err := p.Fetch(ctx)
		require.NoError(t, err)
		require.NotNil(t, s.VIXLevel)
		assert.Equal(t, 18.2, *s.VIXLevel)
		require.NotNil(t, s.EarningsYieldPct)
		assert.InDelta(t, 5.0, *s.EarningsYieldPct, 1e-9)
		assert.Equal(t, 20.0, *s.ForwardPE)
		assert.NotNil(t, s.SPXvs200dPct)
		assert.Nil(t, s.YieldCurve10y3mBps)
		assert.Nil(t, s.HYOASBps)
		assert.Nil(t, s.Unemp6mChangePP)
		assert.Nil(t, s.CAPE, "no multpl client")
	})

	t.Run("cape included when requested", func(t *testing.T) {
		html, err := os.ReadFile("testdata/shiller_pe.html")
		require.NoError(t, err)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write(html)
		}))
		defer srv.Close()

		fred := NewFREDClient(srv.URL, "", testHTTP(), logger.Nop())
		multpl := NewMultplClient(srv.URL, testHTTP(), logger.Nop())
		s, err := NewLiveProvider(yahoo, fred, multpl, true, logger.Nop()).Fetch(ctx)
		require.NoError(t, err)
		require.NotNil(t, s.CAPE)
		assert.Equal(t, 37.84, *s.CAPE)

		s, err = NewLiveProvider(yahoo, fred, multpl, false, logger.Nop()).Fetch(ctx)
		require.NoError(t, err)
		assert.Nil(t, s.CAPE)
	})

	t.Run("every source down", func(t *testing.T) {
		down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer down.Close()

		p := NewLiveProvider(
			NewYahooClient(down.URL, testHTTP(), logger.Nop()),
			NewFREDClient(down.URL, "test-key", testHTTP(), logger.Nop()),
			nil, false, logger.Nop())
		_, err := p.Fetch(ctx)
		assert.ErrorIs(t, err, ErrAllSourcesFailed)
	})
}

func TestStaticAndOverlayProvider(t *testing.T) {
	ctx := context.Background()
	base := contracts.SignalSet{VIXLevel: contracts.Float(18), HYOASBps: contracts.Float(390)}

	static := NewStaticProvider("manual", base)
	s, err := static.Fetch(ctx)
	require.NoError(t, err)
	*s.VIXLevel = 99
	again, _ := static.Fetch(ctx)
	assert.Equal(t, 18.0, *again.VIXLevel, "fetch returns a copy")

	overlay := NewOverlayProvider(static, contracts.SignalSet{VIXLevel: contracts.Float(30)})
	assert.Equal(t, "manual+manual", overlay.Name())
	merged, err := overlay.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 30.0, *merged.VIXLevel)
	assert.Equal(t, 390.0, *merged.HYOASBps)
}

type countingProvider struct {
	calls int
	set   contracts.SignalSet
}

func (p *countingProvider) Name() string { return "counting" }

func (p *countingProvider) Fetch(ctx context.Context) (*contracts.SignalSet, error) {
	p.calls++
	s := p.set.Clone()
	return &s, nil
}

func TestCachedProvider_Disabled(t *testing.T) {
	inner := &countingProvider{set: contracts.SignalSet{VIXLevel: contracts.Float(18)}}
	p := NewCachedProvider(inner, redis.NewCache(redis.Disabled(), "graham"), redis.TTLMedium, logger.Nop())

	for i := 0; i < 2; i++ {
		s, err := p.Fetch(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 18.0, *s.VIXLevel)
	}
	assert.Equal(t, 2, inner.calls, "without redis every fetch reaches the provider")
}

// memCache is an in-process Cache storing JSON like *redis.Cache does
type memCache struct {
	data   map[string][]byte
	getErr error
	setErr error
	gets   int
	sets   int
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (c *memCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	c.gets++
	if c.getErr != nil {
		return false, c.getErr
	}
	data, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, dest)
}

func (c *memCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.sets++
	if c.setErr != nil {
		return c.setErr
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[key] = data
	return nil
}

type namedProvider struct {
	countingProvider
	name string
}

func (p *namedProvider) Name() string { return p.name }

func TestCachedProvider(t *testing.T) {
	ctx := context.Background()
	day := time.Date(2026, 10, 19, 21, 30, 0, 0, time.UTC)

	newCached := func(inner contracts.MarketDataProvider, cache Cache) *CachedProvider {
		p := NewCachedProvider(inner, cache, redis.TTLMedium, logger.Nop())
		p.now = func() time.Time { return day }
		return p
	}

	t.Run("hit skips the inner provider", func(t *testing.T) {
		cache := newMemCache()
		inner := &countingProvider{set: contracts.SignalSet{VIXLevel: contracts.Float(18), CAPE: contracts.Float(31)}}
		p := newCached(inner, cache)

		for i := 0; i < 3; i++ {
			s, err := p.Fetch(ctx)
			require.NoError(t, err)
			assert.Equal(t, 18.0, *s.VIXLevel)
			assert.Equal(t, 31.0, *s.CAPE)
			assert.Nil(t, s.HYOASBps, "absent stays absent through the cache")
		}
		assert.Equal(t, 1, inner.calls)
		assert.Contains(t, cache.data, redis.SignalsKey("counting", day))
	})

	t.Run("next day misses", func(t *testing.T) {
		cache := newMemCache()
		inner := &countingProvider{set: contracts.SignalSet{VIXLevel: contracts.Float(18)}}
		p := newCached(inner, cache)

		_, err := p.Fetch(ctx)
		require.NoError(t, err)
		p.now = func() time.Time { return day.AddDate(0, 0, 1) }
		_, err = p.Fetch(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, inner.calls)
	})

	t.Run("cache errors fall through", func(t *testing.T) {
		cache := newMemCache()
		cache.getErr = errors.New("connection refused")
		cache.setErr = errors.New("connection refused")
		inner := &countingProvider{set: contracts.SignalSet{VIXLevel: contracts.Float(18)}}
		p := newCached(inner, cache)

		for i := 0; i < 2; i++ {
			s, err := p.Fetch(ctx)
			require.NoError(t, err)
			assert.Equal(t, 18.0, *s.VIXLevel)
		}
		assert.Equal(t, 2, inner.calls)
	})

	t.Run("inner failure is not cached", func(t *testing.T) {
		cache := newMemCache()
		p := newCached(failingSource{}, cache)

		_, err := p.Fetch(ctx)
		assert.ErrorContains(t, err, "failing")
		assert.Empty(t, cache.data)
	})

	t.Run("providers do not share entries", func(t *testing.T) {
		cache := newMemCache()
		plain := &namedProvider{name: "live", countingProvider: countingProvider{set: contracts.SignalSet{VIXLevel: contracts.Float(18)}}}
		withCAPE := &namedProvider{name: "live+cape", countingProvider: countingProvider{set: contracts.SignalSet{VIXLevel: contracts.Float(18), CAPE: contracts.Float(37.84)}}}

		s, err := newCached(plain, cache).Fetch(ctx)
		require.NoError(t, err)
		assert.Nil(t, s.CAPE)

		s, err = newCached(withCAPE, cache).Fetch(ctx)
		require.NoError(t, err)
		require.NotNil(t, s.CAPE)
		assert.Equal(t, 37.84, *s.CAPE)
		assert.Equal(t, 1, withCAPE.calls)
	})
}

type failingSource struct{}

func (failingSource) Name() string { return "failing" }

func (failingSource) Fetch(ctx context.Context) (*contracts.SignalSet, error) {
	return nil, errors.New("upstream down")
}

func TestCachedLiveProvider_CAPEScope(t *testing.T) {
	html, err := os.ReadFile("testdata/shiller_pe.html")
	require.NoError(t, err)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(html)
	}))
	defer srv.Close()

	yahoo := NewYahooClient(yahooServer(t).URL, testHTTP(), logger.Nop())
	fred := NewFREDClient(srv.URL, "", testHTTP(), logger.Nop())
	multpl := NewMultplClient(srv.URL, testHTTP(), logger.Nop())
	ctx := context.Background()

	withoutCAPE := NewLiveProvider(yahoo, fred, multpl, false, logger.Nop())
	withCAPE := NewLiveProvider(yahoo, fred, multpl, true, logger.Nop())
	assert.Equal(t, "live", withoutCAPE.Name())
	assert.Equal(t, "live+cape", withCAPE.Name())

	cache := newMemCache()
	s, err := NewCachedProvider(withoutCAPE, cache, redis.TTLMedium, logger.Nop()).Fetch(ctx)
	require.NoError(t, err)
	assert.Nil(t, s.CAPE)

	s, err = NewCachedProvider(withCAPE, cache, redis.TTLMedium, logger.Nop()).Fetch(ctx)
	require.NoError(t, err)
	require.NotNil(t, s.CAPE, "include_cape run must not reuse the set cached without CAPE")
	assert.Equal(t, 37.84, *s.CAPE)

	s, err = NewCachedProvider(withoutCAPE, cache, redis.TTLMedium, logger.Nop()).Fetch(ctx)
	require.NoError(t, err)
	assert.Nil(t, s.CAPE, "run without CAPE must not reuse the CAPE set")
}

func TestFREDClient_Cache(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		_, _ = w.Write([]byte(`{"observations":[{"date":"2026-09-01","value":"3.95"},{"date":"2026-10-01","value":"3.90"}]}`))
	}))
	defer srv.Close()

	ctx := context.Background()
	cache := newMemCache()
	c := NewFREDClient(srv.URL, "test-key", testHTTP(), logger.Nop()).WithCache(cache, redis.TTLDaily)

	for i := 0; i < 2; i++ {
		v, err := c.HYOASBps(ctx)
		require.NoError(t, err)
		assert.InDelta(t, 390.0, v, 1e-9)
	}
	assert.Equal(t, 1, requests)
	assert.Equal(t, 1, cache.sets)

	t.Run("read error refetches", func(t *testing.T) {
		cache.getErr = errors.New("timeout")
		v, err := c.HYOASBps(ctx)
		require.NoError(t, err)
		assert.InDelta(t, 390.0, v, 1e-9)
		assert.Equal(t, 2, requests)
	})
}

func TestPickPE(t *testing.T) {
	f := contracts.Float
	tests := []struct {
		name     string
		forward  *float64
		trailing *float64
		want     float64
		ok       bool
	}{
		{"forward", f(20), f(25), 20, true},
		{"missing forward uses trailing", nil, f(25), 25, true},
		{"zero forward uses trailing", f(0), f(25), 25, true},
		{"negative forward is absent", f(-5), f(25), 0, false},
		{"negative trailing is absent", nil, f(-3), 0, false},
		{"nothing", nil, nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := pickPE(tt.forward, tt.trailing)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
