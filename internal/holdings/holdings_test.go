package holdings

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/graham/internal/contracts"
	"github.com/wonny/graham/pkg/config"
	"github.com/wonny/graham/pkg/database"
	"github.com/wonny/graham/pkg/logger"
)

func TestCSVProvider_Load(t *testing.T) {
	p := NewCSVProvider(filepath.Join("testdata", "holdings.csv"), logger.Nop())

	holdings, err := p.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, holdings, 4)

	assert.Equal(t, "VTI", holdings[0].Symbol)
	assert.Nil(t, holdings[0].MarketValue)
	v, err := holdings[0].Value()
	require.NoError(t, err)
	assert.InDelta(t, 30164.4, v, 1e-6)

	require.NotNil(t, holdings[1].MarketValue)
	assert.Equal(t, 12400.0, *holdings[1].MarketValue)
	assert.Equal(t, contracts.AssetCash, holdings[3].AssetClass)
}

func TestParseCSV_MarketValueOnly(t *testing.T) {
	holdings, err := ParseCSV(strings.NewReader("asset_class,market_value\nStock,60000\nBond,40000\n"))
	require.NoError(t, err)
	require.Len(t, holdings, 2)
	assert.Equal(t, "", holdings[0].Symbol)
	assert.Equal(t, 40000.0, *holdings[1].MarketValue)
}

func TestParseCSV_HeaderErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"no value columns", "asset_class,quantity\nStock,10\n", contracts.ErrMissingValue},
		{"no asset class", "symbol,market_value\nVTI,100\n", contracts.ErrMissingAssetClass},
		{"empty file", "", contracts.ErrMissingValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCSV(strings.NewReader(tt.input))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParseCSV_RowErrors(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("asset_class,market_value\nStock,abc\n"))
	assert.ErrorContains(t, err, "line 2")

	_, err = ParseCSV(strings.NewReader("asset_class,market_value\n,100\n"))
	assert.ErrorIs(t, err, contracts.ErrMissingAssetClass)
}

func TestParseCSV_RowWithoutValueFailsInPlanner(t *testing.T) {
	holdings, err := ParseCSV(strings.NewReader("asset_class,quantity,price\nBond,10,\n"))
	require.NoError(t, err)

	_, err = holdings[0].Value()
	assert.ErrorIs(t, err, contracts.ErrMissingValue)
}

func TestCSVProvider_MissingFile(t *testing.T) {
	_, err := NewCSVProvider(filepath.Join(t.TempDir(), "nope.csv"), logger.Nop()).Load(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestStatic(t *testing.T) {
	in := Static{{AssetClass: contracts.AssetStock, MarketValue: contracts.Float(1)}}
	out, err := in.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestPostgresProvider_RoundTrip(t *testing.T) {
	url := os.Getenv("DATABASE_URL")
	if url == "" || testing.Short() {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.New(ctx, &config.Config{Database: config.DatabaseConfig{URL: url, MaxConns: 2}})
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.EnsureSchema(ctx))

	p := NewPostgresProvider(db.Pool)
	want := []contracts.Holding{
		{Symbol: "VTI", AssetClass: contracts.AssetStock, MarketValue: contracts.Float(60000)},
		{Symbol: "BND", AssetClass: contracts.AssetBond, Quantity: contracts.Float(100), Price: contracts.Float(72.5)},
	}
	require.NoError(t, p.Replace(ctx, want))

	got, err := p.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
