package phase

import (
	"fmt"

	"MarketPhase/internal/domain/models"
)

// describer grades a single indicator; the second return is the note.
type describer func(v float64) (models.Tone, string)

type commentary struct {
	label string
	ind   models.Indicator
	grade describer
}

var commentaries = []commentary{
	{"KOSPI", models.IndKospi, band(2500, 2200,
		"KOSPI %.2f: above 2500, domestic equities strong",
		"KOSPI %.2f: below 2200, domestic equities weak",
		"KOSPI %.2f: middle of the range")},
	{"KOSDAQ", models.IndKosdaq, band(800, 700,
		"KOSDAQ %.2f: above 800, growth names in favour",
		"KOSDAQ %.2f: below 700, growth names under pressure",
		"KOSDAQ %.2f: middle of the range")},
	{"S&P500", models.IndSP500, band(4500, 4000,
		"S&P500 %.2f: global equities trending up",
		"S&P500 %.2f: global equities trending down",
		"S&P500 %.2f: neutral trend")},
	{"VKOSPI", models.IndVkospi, func(v float64) (models.Tone, string) {
		switch {
		case v > 25:
			return models.ToneNegative, fmt.Sprintf("VKOSPI %.2f: volatility high, elevated risk", v)
		case v < 15:
			return models.TonePositive, fmt.Sprintf("VKOSPI %.2f: volatility low, calm market", v)
		default:
			return models.ToneNeutral, fmt.Sprintf("VKOSPI %.2f: moderate volatility", v)
		}
	}},
	{"Base rate", models.IndBaseRate, func(v float64) (models.Tone, string) {
		switch {
		case v >= 3.0:
			return models.ToneNegative, fmt.Sprintf("base rate %.2f%%: tightening or high-rate regime", v)
		case v <= 1.5:
			return models.TonePositive, fmt.Sprintf("base rate %.2f%%: easing or low-rate regime", v)
		default:
			return models.ToneNeutral, fmt.Sprintf("base rate %.2f%%: neutral level", v)
		}
	}},
	{"M2 growth", models.IndM2Growth, func(v float64) (models.Tone, string) {
		switch {
		case v >= 8:
			return models.TonePositive, fmt.Sprintf("M2 growth %.2f%%: ample liquidity", v)
		case v <= 5:
			return models.ToneNegative, fmt.Sprintf("M2 growth %.2f%%: liquidity squeeze risk", v)
		default:
			return models.ToneNeutral, fmt.Sprintf("M2 growth %.2f%%: moderate liquidity", v)
		}
	}},
	{"US 10Y", models.IndUS10y, func(v float64) (models.Tone, string) {
		switch {
		case v >= 4.0:
			return models.ToneNegative, fmt.Sprintf("US 10Y %.2f%%: global rates near highs, risk appetite may fade", v)
		case v <= 2.0:
			return models.TonePositive, fmt.Sprintf("US 10Y %.2f%%: low rates, supportive for risk assets", v)
		default:
			return models.ToneNeutral, fmt.Sprintf("US 10Y %.2f%%: neutral level", v)
		}
	}},
	{"USD/KRW", models.IndUSDKRW, func(v float64) (models.Tone, string) {
		if v >= 1300 {
			return models.ToneNegative, fmt.Sprintf("USD/KRW %.2f: 1300 or above, foreign flows may turn cautious", v)
		}
		return models.TonePositive, fmt.Sprintf("USD/KRW %.2f: below 1300, relatively stable", v)
	}},
}

// band grades v as positive above hi, negative below lo, neutral otherwise.
func band(hi, lo float64, upNote, downNote, midNote string) describer {
	return func(v float64) (models.Tone, string) {
		switch {
		case v > hi:
			return models.TonePositive, fmt.Sprintf(upNote, v)
		case v < lo:
			return models.ToneNegative, fmt.Sprintf(downNote, v)
		default:
			return models.ToneNeutral, fmt.Sprintf(midNote, v)
		}
	}
}

// Describe returns one reading per indicator plus the yield-curve and KOSPI
// moving-average checks.
// Missing inputs produce an "unavailable" reading instead of being skipped.
func Describe(ind models.IndicatorSet) []models.Reading {
	out := make([]models.Reading, 0, len(commentaries)+3)
	for _, c := range commentaries {
		v := ind.Get(c.ind)
		if v == nil {
			out = append(out, models.Reading{
				Indicator: string(c.ind),
				Tone:      models.ToneUnavailable,
				Note:      c.label + ": data unavailable",
			})
			continue
		}
		tone, note := c.grade(*v)
		out = append(out, models.Reading{Indicator: string(c.ind), Value: models.Float(*v), Tone: tone, Note: note})
	}
	return append(out, yieldCurve(ind), kospiPosition(ind), kospiTrend(ind))
}

func yieldCurve(ind models.IndicatorSet) models.Reading {
	r := models.Reading{Indicator: "yield_curve"}
	if ind.Bond3y == nil || ind.Bond10y == nil {
		r.Tone = models.ToneUnavailable
		r.Note = "KTB 3Y/10Y: data unavailable"
		return r
	}
	spread := *ind.Bond10y - *ind.Bond3y
	r.Value = models.Float(spread)
	if *ind.Bond3y > *ind.Bond10y {
		r.Tone = models.ToneNegative
		r.Note = fmt.Sprintf("KTB 3Y %.2f%% above 10Y %.2f%%: curve inverted, recession warning", *ind.Bond3y, *ind.Bond10y)
		return r
	}
	r.Tone = models.TonePositive
	r.Note = fmt.Sprintf("KTB 3Y %.2f%% / 10Y %.2f%%: curve normal", *ind.Bond3y, *ind.Bond10y)
	return r
}

// kospiPosition places the index against its 200-day average.
func kospiPosition(ind models.IndicatorSet) models.Reading {
	r := models.Reading{Indicator: "kospi_position"}
	if ind.Kospi == nil || ind.KospiMA200 == nil {
		r.Tone = models.ToneUnavailable
		r.Note = "KOSPI position: data unavailable"
		return r
	}
	r.Value = models.Float(*ind.Kospi - *ind.KospiMA200)
	if *ind.Kospi > *ind.KospiMA200 {
		r.Tone = models.TonePositive
		r.Note = fmt.Sprintf("KOSPI %.2f above 200-day MA %.2f: high zone", *ind.Kospi, *ind.KospiMA200)
		return r
	}
	r.Tone = models.ToneNegative
	r.Note = fmt.Sprintf("KOSPI %.2f at or below 200-day MA %.2f: low zone", *ind.Kospi, *ind.KospiMA200)
	return r
}

func kospiTrend(ind models.IndicatorSet) models.Reading {
	r := models.Reading{Indicator: "kospi_trend"}
	if ind.KospiMA50 == nil || ind.KospiMA200 == nil {
		r.Tone = models.ToneUnavailable
		r.Note = "KOSPI trend: data unavailable"
		return r
	}
	r.Value = models.Float(*ind.KospiMA50 - *ind.KospiMA200)
	if *ind.KospiMA50 < *ind.KospiMA200 {
		r.Tone = models.ToneNegative
		r.Note = fmt.Sprintf("KOSPI 50-day MA %.2f below 200-day %.2f: bear market, dead cross", *ind.KospiMA50, *ind.KospiMA200)
		return r
	}
	r.Tone = models.TonePositive
	r.Note = fmt.Sprintf("KOSPI 50-day MA %.2f over 200-day %.2f: bull market, golden cross", *ind.KospiMA50, *ind.KospiMA200)
	return r
}
