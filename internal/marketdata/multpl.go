package marketdata

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/graham/pkg/httputil"
	"github.com/wonny/graham/pkg/logger"
)

// MultplClient scrapes the monthly Shiller P/E (CAPE) table from multpl.com
type MultplClient struct {
	http    *httputil.Client
	baseURL string
	logger  *logger.Logger
}

// NewMultplClient creates a scraper against baseURL (https://www.multpl.com)
func NewMultplClient(baseURL string, http *httputil.Client, log *logger.Logger) *MultplClient {
	return &MultplClient{http: http, baseURL: baseURL, logger: log.WithComponent("multpl")}
}

// LatestCAPE returns the newest row of the Shiller P/E table
func (c *MultplClient) LatestCAPE(ctx context.Context) (float64, error) {
	body, err := c.http.GetBody(ctx, c.baseURL+"/shiller-pe/table/by-month")
	if err != nil {
		return 0, fmt.Errorf("multpl: %w", err)
	}

	v, date, err := parseCAPETable(body)
	if err != nil {
		return 0, fmt.Errorf("multpl: %w", err)
	}

	c.logger.WithFields(map[string]interface{}{
		"date": date,
		"cape": v,
	}).Debug("Scraped CAPE")

	return v, nil
}

// parseCAPETable returns the value and date label of the first data row of #datatable.
// Rows are newest first; the current month may carry an "estimate" marker.
func parseCAPETable(html []byte) (float64, string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return 0, "", fmt.Errorf("parse html: %w", err)
	}

	table := doc.Find("table#datatable")
	if table.Length() == 0 {
		return 0, "", fmt.Errorf("table #datatable not found")
	}

	var (
		value float64
		date  string
		found bool
	)
	table.Find("tr").EachWithBreak(func(i int, row *goquery.Selection) bool {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return true
		}

		v, err := parseNumberCell(cells.Eq(1).Text())
		if err != nil {
			return true
		}

		value = v
		date = strings.TrimSpace(cells.Eq(0).Text())
		found = true
		return false
	})

	if !found {
		return 0, "", fmt.Errorf("no CAPE rows: %w", ErrNotEnoughData)
	}
	return value, date, nil
}

// parseNumberCell keeps the leading number of cells like "31.52 estimate" or "&#x2002;31.52"
func parseNumberCell(text string) (float64, error) {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !(r == '.' || r == '-' || (r >= '0' && r <= '9'))
	})
	if len(fields) == 0 {
		return 0, fmt.Errorf("no number in %q", text)
	}
	return strconv.ParseFloat(fields[0], 64)
}
