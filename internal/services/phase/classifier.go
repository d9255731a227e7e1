// Package phase holds the rule-based market phase classifier and the
// per-indicator commentary that goes with it.
package phase

import (
	"MarketPhase/internal/domain/models"
)

// Thresholds are the cutoffs used by the signal votes.
type Thresholds struct {
	// rate <= RateLow votes rateDown, rate >= RateHigh votes rateUp.
	RateLow  float64 `yaml:"rate_low" json:"rate_low"`
	RateHigh float64 `yaml:"rate_high" json:"rate_high"`
	// Index levels: at or above votes indexUp, below votes indexDown.
	KospiLevel float64 `yaml:"kospi_level" json:"kospi_level"`
	SP500Level float64 `yaml:"sp500_level" json:"sp500_level"`
	M2High     float64 `yaml:"m2_high" json:"m2_high"`
	M2Low      float64 `yaml:"m2_low" json:"m2_low"`
	// vkospi below VkospiCalm votes econUp, above VkospiFear votes econDown.
	VkospiCalm float64 `yaml:"vkospi_calm" json:"vkospi_calm"`
	VkospiFear float64 `yaml:"vkospi_fear" json:"vkospi_fear"`
	// Votes needed by the rate signals (three readings).
	RateQuorum int `yaml:"rate_quorum" json:"rate_quorum"`
	// Votes needed by the index signals (two readings).
	IndexQuorum int `yaml:"index_quorum" json:"index_quorum"`
	// Votes needed by the econ signals.
	EconQuorum int `yaml:"econ_quorum" json:"econ_quorum"`
}

// DefaultThresholds returns the canonical threshold set.
func DefaultThresholds() Thresholds {
	return Thresholds{
		RateLow:     2.5,
		RateHigh:    3.0,
		KospiLevel:  2000,
		SP500Level:  4000,
		M2High:      7,
		M2Low:       5,
		VkospiCalm:  20,
		VkospiFear:  25,
		RateQuorum:  2,
		IndexQuorum: 2,
		EconQuorum:  1,
	}
}

type rule struct {
	verdict models.PhaseVerdict
	match   func(s models.Signals) bool
}

// decisionTable is evaluated top to bottom; the first matching rule wins.
var decisionTable = []rule{
	{models.Recovery, func(s models.Signals) bool {
		return s.RateDown.Value && s.IndexUp.Value && s.EconUp.Value
	}},
	{models.Overheat, func(s models.Signals) bool {
		return s.RateUp.Value && s.IndexUp.Value && s.EconUp.Value
	}},
	{models.Recession, func(s models.Signals) bool {
		return s.RateUp.Value && s.IndexDown.Value
	}},
	{models.Depression, func(s models.Signals) bool {
		return s.RateDown.Value && s.IndexDown.Value && s.EconDown.Value
	}},
}

// Classifier votes over an IndicatorSet. It holds no mutable state and is
// safe for concurrent use.
type Classifier struct {
	th    Thresholds
	rules []rule
}

// NewClassifier builds a classifier with the given thresholds.
func NewClassifier(th Thresholds) *Classifier {
	return &Classifier{th: th, rules: decisionTable}
}

// Thresholds returns the cutoffs in use.
func (c *Classifier) Thresholds() Thresholds { return c.th }

var defaultClassifier = NewClassifier(DefaultThresholds())

// Classify returns the verdict for ind using the canonical thresholds.
func Classify(ind models.IndicatorSet) models.PhaseVerdict {
	return defaultClassifier.Classify(ind)
}

// Evaluate is Classifier.Evaluate with the canonical thresholds.
func Evaluate(ind models.IndicatorSet) models.Assessment {
	return defaultClassifier.Evaluate(ind)
}

// Classify returns the verdict only.
func (c *Classifier) Classify(ind models.IndicatorSet) models.PhaseVerdict {
	return c.Evaluate(ind).Verdict
}

// Evaluate computes every signal and the resulting verdict.
func (c *Classifier) Evaluate(ind models.IndicatorSet) models.Assessment {
	s := c.signals(ind)
	return models.Assessment{Verdict: decide(s, c.rules), Signals: s}
}

func (c *Classifier) signals(ind models.IndicatorSet) models.Signals {
	th := c.th
	rates := []*float64{ind.BaseRate, ind.Bond3y, ind.US10y}

	rateDown := newTally("rate_down", th.RateQuorum)
	rateUp := newTally("rate_up", th.RateQuorum)
	for _, r := range rates {
		rateDown.vote(r, func(v float64) bool { return v <= th.RateLow })
		rateUp.vote(r, func(v float64) bool { return v >= th.RateHigh })
	}

	indexUp := newTally("index_up", th.IndexQuorum)
	indexDown := newTally("index_down", th.IndexQuorum)
	indexUp.vote(ind.Kospi, func(v float64) bool { return v >= th.KospiLevel })
	indexUp.vote(ind.SP500, func(v float64) bool { return v >= th.SP500Level })
	indexDown.vote(ind.Kospi, func(v float64) bool { return v < th.KospiLevel })
	indexDown.vote(ind.SP500, func(v float64) bool { return v < th.SP500Level })

	econUp := newTally("econ_up", th.EconQuorum)
	econDown := newTally("econ_down", th.EconQuorum)
	econUp.vote(ind.M2Growth, func(v float64) bool { return v >= th.M2High })
	econUp.vote(ind.Vkospi, func(v float64) bool { return v < th.VkospiCalm })
	econDown.vote(ind.M2Growth, func(v float64) bool { return v <= th.M2Low })
	econDown.vote(ind.Vkospi, func(v float64) bool { return v > th.VkospiFear })

	return models.Signals{
		RateDown:  rateDown.signal(),
		RateUp:    rateUp.signal(),
		IndexUp:   indexUp.signal(),
		IndexDown: indexDown.signal(),
		EconUp:    econUp.signal(),
		EconDown:  econDown.signal(),
	}
}

func decide(s models.Signals, rules []rule) models.PhaseVerdict {
	for _, r := range rules {
		if r.match(s) {
			return r.verdict
		}
	}
	return models.Undetermined
}

// tally counts votes over the readings that are present; absent readings
// neither vote for nor against.
type tally struct {
	name     string
	required int
	votes    int
	present  int
}

func newTally(name string, required int) *tally {
	return &tally{name: name, required: required}
}

func (t *tally) vote(v *float64, cond func(float64) bool) {
	if v == nil {
		return
	}
	t.present++
	if cond(*v) {
		t.votes++
	}
}

func (t *tally) signal() models.Signal {
	return models.Signal{
		Name:     t.name,
		Value:    t.required > 0 && t.votes >= t.required,
		Votes:    t.votes,
		Present:  t.present,
		Required: t.required,
	}
}
