package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/spider7r/trading-journal-sub002/chart"
	"github.com/spider7r/trading-journal-sub002/models"
	"github.com/spider7r/trading-journal-sub002/store"
)

// Handler serves the coverage report and the charting datafeed over HTTP
// in the UDF shape the widget consumes.
type Handler struct {
	store *store.Store
	feed  *chart.Datafeed
	log   *logrus.Logger
}

func NewHandler(s *store.Store, feed *chart.Datafeed, log *logrus.Logger) *Handler {
	return &Handler{store: s, feed: feed, log: log}
}

func (h *Handler) GetStatus(c *gin.Context) {
	coverage, err := h.store.Coverage(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, coverage)
}

func (h *Handler) GetConfig(c *gin.Context) {
	h.feed.OnReady(func(cfg chart.Config) {
		c.JSON(http.StatusOK, cfg)
	})
}

func (h *Handler) SearchSymbols(c *gin.Context) {
	h.feed.SearchSymbols(c.Query("query"), c.Query("exchange"), c.Query("type"), func(results []models.SymbolDesc) {
		c.JSON(http.StatusOK, results)
	})
}

func (h *Handler) ResolveSymbol(c *gin.Context) {
	h.feed.ResolveSymbol(c.Query("symbol"),
		func(info chart.SymbolInfo) {
			c.JSON(http.StatusOK, info)
		},
		func(err error) {
			c.JSON(http.StatusOK, gin.H{"s": "error", "errmsg": err.Error()})
		},
	)
}

// GetHistory answers /api/history in the UDF bar format:
// {s:"ok"|"no_data"|"error", t,o,h,l,c,v}.
func (h *Handler) GetHistory(c *gin.Context) {
	symbol := c.Query("symbol")
	resolution := c.Query("resolution")

	from, err := strconv.ParseInt(c.Query("from"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"s": "error", "errmsg": "invalid from timestamp"})
		return
	}
	to, err := strconv.ParseInt(c.Query("to"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"s": "error", "errmsg": "invalid to timestamp"})
		return
	}

	info := chart.SymbolInfo{Name: models.NormalizeSymbol(symbol), Ticker: models.NormalizeSymbol(symbol)}
	params := chart.PeriodParams{From: from, To: to}

	h.feed.GetBars(info, resolution, params,
		func(bars []chart.Bar, meta chart.HistoryMeta) {
			if meta.NoData {
				c.JSON(http.StatusOK, gin.H{"s": "no_data"})
				return
			}
			n := len(bars)
			t := make([]int64, n)
			o := make([]float64, n)
			hi := make([]float64, n)
			lo := make([]float64, n)
			cl := make([]float64, n)
			v := make([]float64, n)
			for i, bar := range bars {
				t[i] = bar.Time / 1000
				o[i] = bar.Open
				hi[i] = bar.High
				lo[i] = bar.Low
				cl[i] = bar.Close
				v[i] = bar.Volume
			}
			c.JSON(http.StatusOK, gin.H{"s": "ok", "t": t, "o": o, "h": hi, "l": lo, "c": cl, "v": v})
		},
		func(err error) {
			h.log.WithError(err).Warn("history request failed")
			c.JSON(http.StatusOK, gin.H{"s": "error", "errmsg": err.Error()})
		},
	)
}

func SetupRoutes(h *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/api/status", h.GetStatus)
	r.GET("/api/config", h.GetConfig)
	r.GET("/api/symbols", h.SearchSymbols)
	r.GET("/api/symbol_info", h.ResolveSymbol)
	r.GET("/api/history", h.GetHistory)

	return r
}
