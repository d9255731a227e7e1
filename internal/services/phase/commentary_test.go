package phase

import (
	"testing"

	"MarketPhase/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readingsByIndicator(rs []models.Reading) map[string]models.Reading {
	out := make(map[string]models.Reading, len(rs))
	for _, r := range rs {
		out[r.Indicator] = r
	}
	return out
}

func TestDescribeEmptyMarksEverythingUnavailable(t *testing.T) {
	rs := Describe(models.IndicatorSet{})
	require.Len(t, rs, len(commentaries)+3)
	for _, r := range rs {
		assert.Equal(t, models.ToneUnavailable, r.Tone, r.Indicator)
		assert.Nil(t, r.Value)
	}
}

func TestDescribeTones(t *testing.T) {
	rs := readingsByIndicator(Describe(models.IndicatorSet{
		Kospi:    f(2600),
		Kosdaq:   f(650),
		SP500:    f(4200),
		Vkospi:   f(22.71),
		BaseRate: f(3.5),
		M2Growth: f(7.1),
		US10y:    f(4.3),
		USDKRW:   f(1370),
		Bond3y:   f(2.40),
		Bond10y:  f(2.66),
	}))

	assert.Equal(t, models.TonePositive, rs["kospi"].Tone)
	assert.Equal(t, models.ToneNegative, rs["kosdaq"].Tone)
	assert.Equal(t, models.ToneNeutral, rs["sp500"].Tone)
	assert.Equal(t, models.ToneNeutral, rs["vkospi"].Tone)
	assert.Equal(t, models.ToneNegative, rs["base_rate"].Tone)
	assert.Equal(t, models.ToneNeutral, rs["m2_growth"].Tone)
	assert.Equal(t, models.ToneNegative, rs["us10y"].Tone)
	assert.Equal(t, models.ToneNegative, rs["usdkrw"].Tone)
	assert.Contains(t, rs["usdkrw"].Note, "1370.00")

	curve := rs["yield_curve"]
	assert.Equal(t, models.TonePositive, curve.Tone)
	require.NotNil(t, curve.Value)
	assert.InDelta(t, 0.26, *curve.Value, 1e-9)
}

func TestDescribeInvertedCurve(t *testing.T) {
	rs := readingsByIndicator(Describe(models.IndicatorSet{Bond3y: f(3.4), Bond10y: f(3.1)}))
	assert.Equal(t, models.ToneNegative, rs["yield_curve"].Tone)
	assert.Contains(t, rs["yield_curve"].Note, "inverted")
}

func TestDescribeCurveNeedsBothTenors(t *testing.T) {
	rs := readingsByIndicator(Describe(models.IndicatorSet{Bond3y: f(3.4)}))
	assert.Equal(t, models.ToneUnavailable, rs["yield_curve"].Tone)
}

func TestDescribeKospiMovingAverages(t *testing.T) {
	rs := readingsByIndicator(Describe(models.IndicatorSet{
		Kospi:      f(2450),
		KospiMA50:  f(2520),
		KospiMA200: f(2580),
	}))
	pos := rs["kospi_position"]
	assert.Equal(t, models.ToneNegative, pos.Tone)
	assert.Contains(t, pos.Note, "low zone")
	require.NotNil(t, pos.Value)
	assert.InDelta(t, -130, *pos.Value, 1e-9)

	trend := rs["kospi_trend"]
	assert.Equal(t, models.ToneNegative, trend.Tone)
	assert.Contains(t, trend.Note, "dead cross")

	rs = readingsByIndicator(Describe(models.IndicatorSet{
		Kospi:      f(2700),
		KospiMA50:  f(2650),
		KospiMA200: f(2580),
	}))
	assert.Equal(t, models.TonePositive, rs["kospi_position"].Tone)
	assert.Contains(t, rs["kospi_position"].Note, "high zone")
	assert.Equal(t, models.TonePositive, rs["kospi_trend"].Tone)
	assert.Contains(t, rs["kospi_trend"].Note, "golden cross")
}

func TestDescribeKospiTrendNeedsBothAverages(t *testing.T) {
	rs := readingsByIndicator(Describe(models.IndicatorSet{Kospi: f(2700), KospiMA50: f(2650)}))
	assert.Equal(t, models.ToneUnavailable, rs["kospi_position"].Tone)
	assert.Equal(t, models.ToneUnavailable, rs["kospi_trend"].Tone)
}
