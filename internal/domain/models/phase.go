package models

import (
	"fmt"
	"time"
)

// PhaseVerdict is the market phase produced by the classifier.
type PhaseVerdict int

const (
	Undetermined PhaseVerdict = iota
	Recovery
	Overheat
	Recession
	Depression
)

var verdictNames = map[PhaseVerdict]string{
	Undetermined: "Undetermined",
	Recovery:     "Recovery",
	Overheat:     "Overheat",
	Recession:    "Recession",
	Depression:   "Depression",
}

func (v PhaseVerdict) String() string {
	if s, ok := verdictNames[v]; ok {
		return s
	}
	return "Undetermined"
}

// ParseVerdict is the inverse of String.
func ParseVerdict(s string) (PhaseVerdict, error) {
	for v, name := range verdictNames {
		if name == s {
			return v, nil
		}
	}
	return Undetermined, fmt.Errorf("unknown verdict %q", s)
}

func (v PhaseVerdict) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

func (v *PhaseVerdict) UnmarshalText(b []byte) error {
	parsed, err := ParseVerdict(string(b))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Signal is one boolean vote with its tally kept for display.
type Signal struct {
	Name     string `json:"name"`
	Value    bool   `json:"value"`
	Votes    int    `json:"votes"`    // sub-conditions that held
	Present  int    `json:"present"`  // sub-indicators that were available
	Required int    `json:"required"` // votes needed for Value to be true
}

// Signals groups the six classifier signals.
type Signals struct {
	RateDown  Signal `json:"rate_down"`
	RateUp    Signal `json:"rate_up"`
	IndexUp   Signal `json:"index_up"`
	IndexDown Signal `json:"index_down"`
	EconUp    Signal `json:"econ_up"`
	EconDown  Signal `json:"econ_down"`
}

// Assessment is the classifier output with its diagnostics.
type Assessment struct {
	Verdict PhaseVerdict `json:"verdict"`
	Signals Signals      `json:"signals"`
}

// Tone grades a single indicator reading.
type Tone string

const (
	TonePositive    Tone = "positive"
	ToneNegative    Tone = "negative"
	ToneNeutral     Tone = "neutral"
	ToneUnavailable Tone = "unavailable"
)

// Reading is a human-readable note about one indicator.
type Reading struct {
	Indicator string   `json:"indicator"`
	Value     *float64 `json:"value,omitempty"`
	Tone      Tone     `json:"tone"`
	Note      string   `json:"note"`
}

// Origin tells where the indicators of a report came from.
type Origin string

const (
	OriginLive    Origin = "live"
	OriginRequest Origin = "request"
	OriginStream  Origin = "stream"
)

// PhaseReport is what the service stores, caches and publishes.
type PhaseReport struct {
	ID           string            `json:"id"`
	Timestamp    time.Time         `json:"timestamp"`
	Origin       Origin            `json:"origin"`
	Indicators   IndicatorSet      `json:"indicators"`
	Verdict      PhaseVerdict      `json:"verdict"`
	Signals      Signals           `json:"signals"`
	Readings     []Reading         `json:"readings,omitempty"`
	SourceErrors map[string]string `json:"source_errors,omitempty"`
}
