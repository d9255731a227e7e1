package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndicatorSetMergeKeepsReceiver(t *testing.T) {
	a := IndicatorSet{Kospi: Float(2600)}
	a.Merge(IndicatorSet{Kospi: Float(1), SP500: Float(5000)})

	require.NotNil(t, a.Kospi)
	assert.Equal(t, 2600.0, *a.Kospi)
	require.NotNil(t, a.SP500)
	assert.Equal(t, 5000.0, *a.SP500)
	assert.Equal(t, []Indicator{IndKospi, IndSP500}, a.Present())
}

func TestIndicatorSetGetSetUnknown(t *testing.T) {
	var s IndicatorSet
	assert.True(t, s.Empty())
	s.Set(Indicator("nope"), 1)
	assert.True(t, s.Empty())
	assert.Nil(t, s.Get(Indicator("nope")))

	s.Set(IndM2Growth, 7.1)
	require.NotNil(t, s.M2Growth)
	assert.Equal(t, 7.1, *s.Get(IndM2Growth))
}

func TestParseIndicator(t *testing.T) {
	ind, err := ParseIndicator("base_rate")
	require.NoError(t, err)
	assert.Equal(t, IndBaseRate, ind)

	_, err = ParseIndicator("cpi")
	assert.Error(t, err)
}

func TestIndicatorSetJSONOmitsAbsent(t *testing.T) {
	b, err := json.Marshal(IndicatorSet{US10y: Float(4.3)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"us10y":4.3}`, string(b))

	var back IndicatorSet
	require.NoError(t, json.Unmarshal([]byte(`{"kospi":2700,"bond3y":null}`), &back))
	assert.Nil(t, back.Bond3y)
	require.NotNil(t, back.Kospi)
}

func TestVerdictText(t *testing.T) {
	b, err := json.Marshal(struct {
		V PhaseVerdict `json:"v"`
	}{Recession})
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":"Recession"}`, string(b))

	var v PhaseVerdict
	require.NoError(t, v.UnmarshalText([]byte("Depression")))
	assert.Equal(t, Depression, v)
	assert.Error(t, v.UnmarshalText([]byte("Boom")))

	var zero PhaseVerdict
	assert.Equal(t, "Undetermined", zero.String())
}
