package models

import "fmt"

// Indicator names a single macro or market reading.
type Indicator string

const (
	IndKospi    Indicator = "kospi"
	IndKosdaq   Indicator = "kosdaq"
	IndSP500    Indicator = "sp500"
	IndVkospi   Indicator = "vkospi"
	IndBond3y   Indicator = "bond3y"
	IndBond10y  Indicator = "bond10y"
	IndBaseRate Indicator = "base_rate"
	IndUS10y    Indicator = "us10y"
	IndM2Growth Indicator = "m2_growth"
	IndUSDKRW   Indicator = "usdkrw"

	// KOSPI simple moving averages over 50 and 200 trading days.
	IndKospiMA50  Indicator = "kospi_ma50"
	IndKospiMA200 Indicator = "kospi_ma200"
)

// AllIndicators lists every known indicator in display order.
var AllIndicators = []Indicator{
	IndKospi, IndKosdaq, IndSP500, IndVkospi,
	IndBond3y, IndBond10y, IndBaseRate, IndUS10y,
	IndM2Growth, IndUSDKRW, IndKospiMA50, IndKospiMA200,
}

// ParseIndicator maps a wire name onto an Indicator.
func ParseIndicator(s string) (Indicator, error) {
	for _, ind := range AllIndicators {
		if string(ind) == s {
			return ind, nil
		}
	}
	return "", fmt.Errorf("unknown indicator %q", s)
}

// IndicatorSet holds optional readings. A nil field means the value is
// unavailable; it is never read as zero.
type IndicatorSet struct {
	Kospi    *float64 `json:"kospi,omitempty"`
	Kosdaq   *float64 `json:"kosdaq,omitempty"`
	SP500    *float64 `json:"sp500,omitempty"`
	Vkospi   *float64 `json:"vkospi,omitempty"`
	Bond3y   *float64 `json:"bond3y,omitempty"`
	Bond10y  *float64 `json:"bond10y,omitempty"`
	BaseRate *float64 `json:"base_rate,omitempty"`
	US10y    *float64 `json:"us10y,omitempty"`
	M2Growth *float64 `json:"m2_growth,omitempty"`
	USDKRW   *float64 `json:"usdkrw,omitempty"`

	KospiMA50  *float64 `json:"kospi_ma50,omitempty"`
	KospiMA200 *float64 `json:"kospi_ma200,omitempty"`
}

// Float returns a pointer to v, handy for building sets in literals.
func Float(v float64) *float64 { return &v }

func (s *IndicatorSet) field(ind Indicator) **float64 {
	switch ind {
	case IndKospi:
		return &s.Kospi
	case IndKosdaq:
		return &s.Kosdaq
	case IndSP500:
		return &s.SP500
	case IndVkospi:
		return &s.Vkospi
	case IndBond3y:
		return &s.Bond3y
	case IndBond10y:
		return &s.Bond10y
	case IndBaseRate:
		return &s.BaseRate
	case IndUS10y:
		return &s.US10y
	case IndM2Growth:
		return &s.M2Growth
	case IndUSDKRW:
		return &s.USDKRW
	case IndKospiMA50:
		return &s.KospiMA50
	case IndKospiMA200:
		return &s.KospiMA200
	default:
		return nil
	}
}

// Get returns the reading for ind, or nil when absent or unknown.
func (s IndicatorSet) Get(ind Indicator) *float64 {
	f := s.field(ind)
	if f == nil {
		return nil
	}
	return *f
}

// Set stores v for ind. Unknown indicators are ignored.
func (s *IndicatorSet) Set(ind Indicator, v float64) {
	if f := s.field(ind); f != nil {
		*f = Float(v)
	}
}

// Merge copies readings from other into fields that are still absent.
func (s *IndicatorSet) Merge(other IndicatorSet) {
	for _, ind := range AllIndicators {
		if s.Get(ind) != nil {
			continue
		}
		if v := other.Get(ind); v != nil {
			s.Set(ind, *v)
		}
	}
}

// Present lists the indicators that carry a value.
func (s IndicatorSet) Present() []Indicator {
	out := make([]Indicator, 0, len(AllIndicators))
	for _, ind := range AllIndicators {
		if s.Get(ind) != nil {
			out = append(out, ind)
		}
	}
	return out
}

// Empty reports whether no indicator is present.
func (s IndicatorSet) Empty() bool { return len(s.Present()) == 0 }
