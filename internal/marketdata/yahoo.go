// Package marketdata fetches the macro-market signals from Yahoo Finance,
// FRED and multpl.com, and provides the providers the advisor consumes.
package marketdata

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"

	talib "github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/floats"

	"github.com/wonny/graham/pkg/httputil"
	"github.com/wonny/graham/pkg/logger"
)

// Yahoo tickers
const (
	SymbolSPX = "^GSPC"
	SymbolVIX = "^VIX"
	SymbolSPY = "SPY"
)

// TrendWindow is the moving-average window of the trend signal
const TrendWindow = 200

// trendMargin: bars required beyond the window so the average isn't built on a partial series
const trendMargin = 5

// ErrNotEnoughData is returned when a series is too short for the calculation
var ErrNotEnoughData = errors.New("not enough data")

// YahooClient reads the public Yahoo Finance chart and quoteSummary endpoints
type YahooClient struct {
	http    *httputil.Client
	baseURL string
	logger  *logger.Logger
}

// NewYahooClient creates a client against baseURL (https://query1.finance.yahoo.com)
func NewYahooClient(baseURL string, http *httputil.Client, log *logger.Logger) *YahooClient {
	return &YahooClient{http: http, baseURL: baseURL, logger: log.WithComponent("yahoo")}
}

// yahooChart is the response structure of /v8/finance/chart
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *yahooError `json:"error"`
	} `json:"chart"`
}

type yahooError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// DailyCloses returns daily closes for rng ("5d", "2y", ...), oldest first.
// Null bars (holidays, halted sessions) are skipped.
func (c *YahooClient) DailyCloses(ctx context.Context, symbol, rng string) ([]float64, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=%s",
		c.baseURL, url.PathEscape(symbol), url.QueryEscape(rng))

	var chart yahooChart
	if err := c.http.GetJSON(ctx, u, &chart); err != nil {
		return nil, fmt.Errorf("yahoo chart %s: %w", symbol, err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo chart %s: %s", symbol, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo chart %s: %w", symbol, ErrNotEnoughData)
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]

	type bar struct {
		ts    int64
		close float64
	}
	bars := make([]bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(quote.Close) || quote.Close[i] == nil {
			continue
		}
		bars = append(bars, bar{ts: ts, close: *quote.Close[i]})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].ts < bars[j].ts })

	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.close
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"range":  rng,
		"bars":   len(closes),
	}).Debug("Fetched daily closes")

	return closes, nil
}

// LastClose returns the most recent close of symbol
func (c *YahooClient) LastClose(ctx context.Context, symbol string) (float64, error) {
	closes, err := c.DailyCloses(ctx, symbol, "5d")
	if err != nil {
		return 0, err
	}
	if len(closes) == 0 {
		return 0, fmt.Errorf("yahoo %s: %w", symbol, ErrNotEnoughData)
	}
	return closes[len(closes)-1], nil
}

// TrendVs200d returns how far symbol trades above (+) or below (-) its 200-day SMA, in percent
func (c *YahooClient) TrendVs200d(ctx context.Context, symbol string) (float64, error) {
	closes, err := c.DailyCloses(ctx, symbol, "2y")
	if err != nil {
		return 0, err
	}
	return PctVsSMA(closes, TrendWindow)
}

// PctVsSMA is 100 * (last / SMA(window) - 1) over closes (oldest first)
func PctVsSMA(closes []float64, window int) (float64, error) {
	if len(closes) < window+trendMargin {
		return 0, fmt.Errorf("%d closes for a %d-day average: %w", len(closes), window, ErrNotEnoughData)
	}
	if floats.HasNaN(closes) {
		return 0, fmt.Errorf("close series contains NaN")
	}

	sma := talib.Sma(closes, window)
	lastSMA := sma[len(sma)-1]
	if lastSMA == 0 {
		return 0, fmt.Errorf("zero moving average: %w", ErrNotEnoughData)
	}

	last := closes[len(closes)-1]
	return 100.0 * (last/lastSMA - 1.0), nil
}

// yahooQuoteSummary is the response structure of /v10/finance/quoteSummary
type yahooQuoteSummary struct {
	QuoteSummary struct {
		Result []struct {
			SummaryDetail struct {
				ForwardPE  yahooRaw `json:"forwardPE"`
				TrailingPE yahooRaw `json:"trailingPE"`
			} `json:"summaryDetail"`
			DefaultKeyStatistics struct {
				ForwardPE yahooRaw `json:"forwardPE"`
			} `json:"defaultKeyStatistics"`
		} `json:"result"`
		Error *yahooError `json:"error"`
	} `json:"quoteSummary"`
}

// yahooRaw is Yahoo's {"raw": 21.3, "fmt": "21.30"} number; empty objects decode to nil Raw
type yahooRaw struct {
	Raw *float64 `json:"raw"`
}

// ForwardPE returns symbol's forward P/E, falling back to trailing P/E.
// Non-positive ratios are treated as unavailable.
func (c *YahooClient) ForwardPE(ctx context.Context, symbol string) (float64, error) {
	u := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=summaryDetail,defaultKeyStatistics",
		c.baseURL, url.PathEscape(symbol))

	var qs yahooQuoteSummary
	if err := c.http.GetJSON(ctx, u, &qs); err != nil {
		return 0, fmt.Errorf("yahoo quoteSummary %s: %w", symbol, err)
	}
	if qs.QuoteSummary.Error != nil {
		return 0, fmt.Errorf("yahoo quoteSummary %s: %s", symbol, qs.QuoteSummary.Error.Description)
	}
	if len(qs.QuoteSummary.Result) == 0 {
		return 0, fmt.Errorf("yahoo quoteSummary %s: %w", symbol, ErrNotEnoughData)
	}

	r := qs.QuoteSummary.Result[0]
	forward := firstNonZero(r.SummaryDetail.ForwardPE.Raw, r.DefaultKeyStatistics.ForwardPE.Raw)
	pe, ok := pickPE(forward, r.SummaryDetail.TrailingPE.Raw)
	if !ok {
		return 0, fmt.Errorf("yahoo %s: no positive P/E: %w", symbol, ErrNotEnoughData)
	}
	return pe, nil
}

// pickPE uses forward unless it is missing or zero, then trailing.
// A negative forward P/E does not fall back: the result is absent.
func pickPE(forward, trailing *float64) (float64, bool) {
	pe := forward
	if pe == nil || *pe == 0 {
		pe = trailing
	}
	if pe == nil || *pe <= 0 {
		return 0, false
	}
	return *pe, true
}

func firstNonZero(vals ...*float64) *float64 {
	for _, v := range vals {
		if v != nil && *v != 0 {
			return v
		}
	}
	return nil
}
