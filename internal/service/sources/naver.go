package sources

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"MarketPhase/internal/domain/models"
	xhttp "MarketPhase/pkg/http"
	"MarketPhase/pkg/util"

	"github.com/PuerkitoBio/goquery"
)

// Naver scrapes KOSPI, KOSDAQ and USD/KRW from Naver Finance pages.
type Naver struct {
	client  *xhttp.Client
	baseURL string
}

func NewNaver(client *xhttp.Client, baseURL string) *Naver {
	return &Naver{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

func (n *Naver) Name() string { return "naver" }

type naverPage struct {
	ind      models.Indicator
	path     string
	query    url.Values
	selector string
}

func (n *Naver) pages() []naverPage {
	return []naverPage{
		{models.IndKospi, "/sise/sise_index.naver", url.Values{"code": {"KOSPI"}}, "#now_value"},
		{models.IndKosdaq, "/sise/sise_index.naver", url.Values{"code": {"KOSDAQ"}}, "#now_value"},
		{models.IndUSDKRW, "/marketindex/", nil, "#exchangeList .head.usd .value"},
	}
}

func (n *Naver) Fetch(ctx context.Context) (models.IndicatorSet, error) {
	var set models.IndicatorSet
	var errs []error
	for _, p := range n.pages() {
		v, err := n.scrape(ctx, p)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.ind, err))
			continue
		}
		set.Set(p.ind, v)
	}
	return set, errors.Join(errs...)
}

func (n *Naver) scrape(ctx context.Context, p naverPage) (float64, error) {
	body, err := n.client.Get(ctx, n.baseURL+p.path, p.query)
	if err != nil {
		return 0, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("parse html: %w", err)
	}
	text := strings.TrimSpace(doc.Find(p.selector).First().Text())
	if text == "" {
		return 0, fmt.Errorf("selector %q not found", p.selector)
	}
	return util.ParseNumber(text)
}
