package sources

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"MarketPhase/internal/domain/models"
	xhttp "MarketPhase/pkg/http"
	"MarketPhase/pkg/util"

	"github.com/tidwall/gjson"
)

// ECOSSeries addresses one StatisticSearch series. With YoY set the monthly
// level series is reported as its year-over-year growth in percent.
type ECOSSeries struct {
	StatCode string
	Cycle    string
	ItemCode string
	YoY      bool
}

// yoyMonths is the shortest window holding a month and the same month a year earlier.
const yoyMonths = 13

// ECOS reads the base rate and M2 growth from the Bank of Korea ECOS API.
type ECOS struct {
	client  *xhttp.Client
	baseURL string
	apiKey  string
	months  int
	series  map[models.Indicator]ECOSSeries
	now     func() time.Time
}

func NewECOS(client *xhttp.Client, baseURL, apiKey string, months int, baseRate, m2 ECOSSeries) *ECOS {
	return &ECOS{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		months:  months,
		series: map[models.Indicator]ECOSSeries{
			models.IndBaseRate: baseRate,
			models.IndM2Growth: m2,
		},
		now: time.Now,
	}
}

func (e *ECOS) Name() string { return "ecos" }

func (e *ECOS) Fetch(ctx context.Context) (models.IndicatorSet, error) {
	var set models.IndicatorSet
	var errs []error
	for _, ind := range []models.Indicator{models.IndBaseRate, models.IndM2Growth} {
		s := e.series[ind]
		if s.StatCode == "" {
			continue
		}
		var v float64
		var err error
		if s.YoY {
			v, err = e.yearOverYear(ctx, s)
		} else {
			v, err = e.latest(ctx, s)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ind, err))
			continue
		}
		set.Set(ind, v)
	}
	return set, errors.Join(errs...)
}

// latest fetches the series over the configured window and returns its last row.
func (e *ECOS) latest(ctx context.Context, s ECOSSeries) (float64, error) {
	rows, err := e.rows(ctx, s, e.months)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("no rows for %s/%s", s.StatCode, s.ItemCode)
	}
	return rows[len(rows)-1].value, nil
}

// yearOverYear compares the last month against the same month a year earlier.
func (e *ECOS) yearOverYear(ctx context.Context, s ECOSSeries) (float64, error) {
	if s.Cycle != "M" {
		return 0, fmt.Errorf("yoy needs a monthly series, got cycle %q", s.Cycle)
	}
	rows, err := e.rows(ctx, s, max(e.months, yoyMonths))
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("no rows for %s/%s", s.StatCode, s.ItemCode)
	}
	last := rows[len(rows)-1]
	want := last.period.AddDate(-1, 0, 0)
	for _, r := range rows {
		if !r.period.Equal(want) {
			continue
		}
		if r.value == 0 {
			return 0, fmt.Errorf("zero level in %s", want.Format("200601"))
		}
		return (last.value/r.value - 1) * 100, nil
	}
	return 0, fmt.Errorf("no level for %s to compare %s against", want.Format("200601"), last.period.Format("200601"))
}

type ecosRow struct {
	period time.Time
	value  float64
}

// rows returns the non-empty observations of the last n months, oldest first.
func (e *ECOS) rows(ctx context.Context, s ECOSSeries, n int) ([]ecosRow, error) {
	from, to := util.MonthRange(e.now(), n)
	path := strings.Join([]string{
		e.baseURL, "StatisticSearch", e.apiKey, "json", "kr",
		"1", "100", s.StatCode, s.Cycle, from, to, s.ItemCode,
	}, "/")

	body, err := e.client.Get(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid json")
	}
	doc := gjson.ParseBytes(body)
	if code := doc.Get("RESULT.CODE"); code.Exists() {
		return nil, fmt.Errorf("ecos %s: %s", code.String(), doc.Get("RESULT.MESSAGE").String())
	}

	var out []ecosRow
	for _, row := range doc.Get("StatisticSearch.row").Array() {
		raw := row.Get("DATA_VALUE").String()
		if raw == "" {
			continue
		}
		v, err := util.ParseNumber(raw)
		if err != nil {
			return nil, err
		}
		// TIME is YYYYMM for monthly series; other cycles keep a zero period.
		period, _ := time.Parse("200601", row.Get("TIME").String())
		out = append(out, ecosRow{period: period, value: v})
	}
	return out, nil
}
