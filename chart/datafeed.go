package chart

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/spider7r/trading-journal-sub002/models"
)

// The charting widget drives this adapter through a fixed pull-based
// callback contract: OnReady -> ResolveSymbol -> GetBars, plus symbol
// search and subscribe/unsubscribe hooks. The widget is an unmodifiable
// third party, so the method and callback shapes here are frozen; errors
// are always delivered through the error callbacks, never panicked across
// the boundary.

// Config is the static widget configuration delivered by OnReady.
type Config struct {
	SupportedResolutions []string     `json:"supported_resolutions"`
	SupportsSearch       bool         `json:"supports_search"`
	SupportsGroupRequest bool         `json:"supports_group_request"`
	Exchanges            []Exchange   `json:"exchanges"`
	SymbolTypes          []SymbolType `json:"symbols_types"`
}

type Exchange struct {
	Value string `json:"value"`
	Name  string `json:"name"`
	Desc  string `json:"desc"`
}

type SymbolType struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// SymbolInfo is the metadata the widget needs to render a symbol.
type SymbolInfo struct {
	Name                 string   `json:"name"`
	Ticker               string   `json:"ticker"`
	Description          string   `json:"description"`
	Type                 string   `json:"type"`
	Session              string   `json:"session"`
	Timezone             string   `json:"timezone"`
	Exchange             string   `json:"exchange"`
	MinMov               int      `json:"minmov"`
	PriceScale           int      `json:"pricescale"`
	HasIntraday          bool     `json:"has_intraday"`
	SupportedResolutions []string `json:"supported_resolutions"`
}

// Bar is one candle in the widget's shape; Time is unix milliseconds.
type Bar struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// HistoryMeta accompanies every successful GetBars delivery.
type HistoryMeta struct {
	NoData bool `json:"noData"`
}

// PeriodParams carries the requested history range. From and To are
// inclusive unix-second bounds and nothing else; neither is ever a row
// count or limit.
type PeriodParams struct {
	From             int64 `json:"from"`
	To               int64 `json:"to"`
	FirstDataRequest bool  `json:"firstDataRequest"`
}

// BarSource supplies candles for a closed time range.
type BarSource interface {
	Available() bool
	Candles(ctx context.Context, symbol, interval string, from, to int64) ([]models.Candle, error)
}

// SymbolSearcher is the external symbol-search collaborator.
type SymbolSearcher interface {
	Available() bool
	Search(ctx context.Context, query string) ([]models.SymbolDesc, error)
}

var supportedResolutions = []string{"1", "5", "15", "30", "60", "240", "D", "W"}

// Resolution codes the widget sends, mapped to the cache's interval tags.
// "D" and "W" map to "1D"/"1W"; vocabulary tags pass through unchanged.
var resolutionIntervals = map[string]string{
	"1":   "1m",
	"5":   "5m",
	"15":  "15m",
	"30":  "30m",
	"60":  "1h",
	"240": "4h",
	"D":   "1D",
	"W":   "1W",
}

// Datafeed implements the widget contract over the candle cache, with an
// upstream fetcher as the fallback bar source when the cache is not
// configured.
type Datafeed struct {
	cache    BarSource
	fallback BarSource
	search   SymbolSearcher
	log      *logrus.Logger

	mu   sync.Mutex
	subs map[string]subscription
}

type subscription struct {
	symbol     string
	resolution string
}

func NewDatafeed(cache, fallback BarSource, search SymbolSearcher, log *logrus.Logger) *Datafeed {
	return &Datafeed{
		cache:    cache,
		fallback: fallback,
		search:   search,
		log:      log,
		subs:     make(map[string]subscription),
	}
}

// OnReady delivers static configuration synchronously; no I/O happens on
// this path.
func (d *Datafeed) OnReady(callback func(Config)) {
	callback(Config{
		SupportedResolutions: supportedResolutions,
		SupportsSearch:       true,
		SupportsGroupRequest: false,
		Exchanges: []Exchange{
			{Value: "", Name: "All", Desc: ""},
			{Value: "FX", Name: "Forex", Desc: "Foreign exchange"},
		},
		SymbolTypes: []SymbolType{
			{Name: "All", Value: ""},
			{Name: "Forex", Value: "forex"},
		},
	})
}

// SearchSymbols asks the search collaborator for matches. The widget has
// no error path here, so any failure degrades to an empty result list.
func (d *Datafeed) SearchSymbols(userInput, exchange, symbolType string, callback func([]models.SymbolDesc)) {
	if d.search == nil || !d.search.Available() {
		callback([]models.SymbolDesc{})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	results, err := d.search.Search(ctx, userInput)
	if err != nil {
		d.log.WithError(err).WithField("query", userInput).Warn("symbol search failed")
		callback([]models.SymbolDesc{})
		return
	}
	if results == nil {
		results = []models.SymbolDesc{}
	}
	callback(results)
}

// ResolveSymbol synthesizes symbol metadata from the name alone. JPY-quoted
// pairs price in pips of 1/100, so they get a scale of 1000 instead of the
// usual 100000.
func (d *Datafeed) ResolveSymbol(name string, onResolved func(SymbolInfo), onError func(error)) {
	symbol := models.NormalizeSymbol(name)
	if !validSymbol(symbol) {
		onError(fmt.Errorf("cannot resolve malformed symbol %q", name))
		return
	}

	priceScale := 100000
	if strings.HasSuffix(symbol, "JPY") {
		priceScale = 1000
	}

	onResolved(SymbolInfo{
		Name:                 symbol,
		Ticker:               symbol,
		Description:          symbol,
		Type:                 "forex",
		Session:              "24x7",
		Timezone:             "Etc/UTC",
		Exchange:             "FX",
		MinMov:               1,
		PriceScale:           priceScale,
		HasIntraday:          true,
		SupportedResolutions: supportedResolutions,
	})
}

// GetBars fetches candles for [params.From, params.To] and delivers them
// as millisecond bars. An empty range is a normal outcome reported via
// HistoryMeta.NoData; only fetch failures reach onError.
func (d *Datafeed) GetBars(info SymbolInfo, resolution string, params PeriodParams, onHistory func([]Bar, HistoryMeta), onError func(error)) {
	interval, err := ResolutionToInterval(resolution)
	if err != nil {
		onError(err)
		return
	}

	source := d.barSource()
	if source == nil {
		onHistory([]Bar{}, HistoryMeta{NoData: true})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	candles, err := source.Candles(ctx, info.Ticker, interval, params.From, params.To)
	if err != nil {
		onError(fmt.Errorf("failed to fetch bars: %w", err))
		return
	}
	if len(candles) == 0 {
		onHistory([]Bar{}, HistoryMeta{NoData: true})
		return
	}

	bars := make([]Bar, len(candles))
	for i, c := range candles {
		bars[i] = Bar{
			Time:   c.Timestamp * 1000,
			Open:   c.Open,
			High:   c.High,
			Low:    c.Low,
			Close:  c.Close,
			Volume: c.Volume,
		}
	}
	onHistory(bars, HistoryMeta{NoData: false})
}

// SubscribeBars registers a live-update listener. No live feed is wired,
// so this is bookkeeping only and never errors.
func (d *Datafeed) SubscribeBars(info SymbolInfo, resolution string, onTick func(Bar), listenerGUID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subs[listenerGUID] = subscription{symbol: info.Ticker, resolution: resolution}
}

// UnsubscribeBars drops a listener registration.
func (d *Datafeed) UnsubscribeBars(listenerGUID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.subs, listenerGUID)
}

// Subscriptions returns the number of registered listeners.
func (d *Datafeed) Subscriptions() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.subs)
}

func (d *Datafeed) barSource() BarSource {
	if d.cache != nil && d.cache.Available() {
		return d.cache
	}
	if d.fallback != nil && d.fallback.Available() {
		return d.fallback
	}
	return nil
}

// ResolutionToInterval maps a widget resolution code to an interval tag.
func ResolutionToInterval(resolution string) (string, error) {
	if interval, ok := resolutionIntervals[resolution]; ok {
		return interval, nil
	}
	if interval, ok := models.NormalizeInterval(resolution); ok {
		return interval, nil
	}
	return "", fmt.Errorf("unsupported resolution %q", resolution)
}

func validSymbol(symbol string) bool {
	if symbol == "" {
		return false
	}
	for _, r := range symbol {
		switch {
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '/' || r == ':' || r == '_':
		default:
			return false
		}
	}
	return true
}
