package commands

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/wonny/graham/internal/contracts"
	"github.com/wonny/graham/internal/policy"
)

// signalFlags are the per-signal market inputs; only flags given on the command line count
type signalFlags struct {
	cape, spx200, yc, vix, hy, unemp, ey float64
}

func (f *signalFlags) register(fs *pflag.FlagSet) {
	fs.Float64Var(&f.cape, "cape", 0, "Shiller CAPE")
	fs.Float64Var(&f.spx200, "spx200", 0, "S&P 500 % vs 200d average")
	fs.Float64Var(&f.yc, "yc", 0, "10y-3m Treasury spread, bps")
	fs.Float64Var(&f.vix, "vix", 0, "VIX level")
	fs.Float64Var(&f.hy, "hy", 0, "HY OAS, bps")
	fs.Float64Var(&f.unemp, "unemp", 0, "unemployment rate 6m change, pp")
	fs.Float64Var(&f.ey, "ey", 0, "earnings yield, % (100 / forward P/E)")
}

// overrides returns the SignalSet of the flags that were set
func (f *signalFlags) overrides(cmd *cobra.Command) contracts.SignalSet {
	var s contracts.SignalSet
	set := func(name string, dst **float64, v float64) {
		if cmd.Flags().Changed(name) {
			*dst = contracts.Float(v)
		}
	}
	set("cape", &s.CAPE, f.cape)
	set("spx200", &s.SPXvs200dPct, f.spx200)
	set("yc", &s.YieldCurve10y3mBps, f.yc)
	set("vix", &s.VIXLevel, f.vix)
	set("hy", &s.HYOASBps, f.hy)
	set("unemp", &s.Unemp6mChangePP, f.unemp)
	set("ey", &s.EarningsYieldPct, f.ey)
	return s
}

// sourceFlags choose between manual and live signals
type sourceFlags struct {
	live        bool
	includeCAPE bool
}

func (f *sourceFlags) register(fs *pflag.FlagSet) {
	fs.BoolVar(&f.live, "live", false, "fetch signals from Yahoo, FRED and multpl.com")
	fs.BoolVar(&f.includeCAPE, "include-cape", false, "scrape CAPE in live mode")
}

// resolve combines the flags with the policy's market section
func (f *sourceFlags) resolve(cmd *cobra.Command, a *app) (live, includeCAPE bool) {
	live = a.policy.Market.Source == policy.SourceLive
	if cmd.Flags().Changed("live") {
		live = f.live
	}
	includeCAPE = a.policy.Market.IncludeCAPE
	if cmd.Flags().Changed("include-cape") {
		includeCAPE = f.includeCAPE
	}
	return live, includeCAPE
}
