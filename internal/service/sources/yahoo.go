package sources

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"MarketPhase/internal/domain/models"
	xhttp "MarketPhase/pkg/http"

	talib "github.com/markcheno/go-talib"
	"github.com/tidwall/gjson"
)

const (
	shortMA = 50
	longMA  = 200
)

// Yahoo reads daily closes from the Yahoo Finance chart API.
type Yahoo struct {
	client  *xhttp.Client
	baseURL string
	symbols []yahooSymbol
}

type yahooSymbol struct {
	symbol string
	ind    models.Indicator
	// ^TNX quotes the yield times ten.
	scale float64
	span  string
	// averages marks the series whose 50/200-day SMAs are reported.
	averages bool
}

func NewYahoo(client *xhttp.Client, baseURL string) *Yahoo {
	return &Yahoo{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		symbols: []yahooSymbol{
			{symbol: "^GSPC", ind: models.IndSP500, scale: 1, span: "5d"},
			{symbol: "^KS11", ind: models.IndKospi, scale: 1, span: "2y", averages: true},
			{symbol: "USDKRW=X", ind: models.IndUSDKRW, scale: 1, span: "5d"},
			{symbol: "^TNX", ind: models.IndUS10y, scale: 0.1, span: "5d"},
		},
	}
}

func (y *Yahoo) Name() string { return "yahoo" }

func (y *Yahoo) Fetch(ctx context.Context) (models.IndicatorSet, error) {
	var set models.IndicatorSet
	var errs []error
	for _, s := range y.symbols {
		closes, err := y.history(ctx, s.symbol, s.span)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.symbol, err))
			continue
		}
		set.Set(s.ind, closes[len(closes)-1]*s.scale)
		if s.averages {
			setAverages(&set, closes)
		}
	}
	return set, errors.Join(errs...)
}

func (y *Yahoo) history(ctx context.Context, symbol, span string) ([]float64, error) {
	body, err := y.client.Get(ctx,
		y.baseURL+"/v8/finance/chart/"+url.PathEscape(symbol),
		url.Values{"range": {span}, "interval": {"1d"}},
	)
	if err != nil {
		return nil, err
	}
	return closeSeries(body)
}

// setAverages stores the SMAs that the series is long enough to support.
func setAverages(set *models.IndicatorSet, closes []float64) {
	if len(closes) >= shortMA {
		set.Set(models.IndKospiMA50, last(talib.Sma(closes, shortMA)))
	}
	if len(closes) >= longMA {
		set.Set(models.IndKospiMA200, last(talib.Sma(closes, longMA)))
	}
}

func last(v []float64) float64 { return v[len(v)-1] }

// closeSeries returns the non-null closes oldest first. When the series is
// empty the regular market price stands in as a single close.
func closeSeries(body []byte) ([]float64, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid json")
	}
	doc := gjson.ParseBytes(body)
	if msg := doc.Get("chart.error.description"); msg.Exists() && msg.String() != "" {
		return nil, fmt.Errorf("chart error: %s", msg.String())
	}

	result := doc.Get("chart.result.0")
	var closes []float64
	for _, c := range result.Get("indicators.quote.0.close").Array() {
		if c.Type == gjson.Number {
			closes = append(closes, c.Float())
		}
	}
	if len(closes) > 0 {
		return closes, nil
	}
	if p := result.Get("meta.regularMarketPrice"); p.Type == gjson.Number {
		return []float64{p.Float()}, nil
	}
	return nil, fmt.Errorf("no close in response")
}
