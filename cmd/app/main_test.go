package main

import (
	"bytes"
	"testing"
	"time"

	"MarketPhase/internal/domain/models"
	"MarketPhase/internal/services/phase"

	"github.com/stretchr/testify/assert"
)

func TestPrintReport(t *testing.T) {
	set := models.IndicatorSet{Kospi: models.Float(2700), BaseRate: models.Float(3.5)}
	a := phase.Evaluate(set)
	r := &models.PhaseReport{
		Timestamp:    time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
		Indicators:   set,
		Verdict:      a.Verdict,
		Signals:      a.Signals,
		Readings:     phase.Describe(set),
		SourceErrors: map[string]string{"yahoo": "status 429"},
	}

	var buf bytes.Buffer
	printReport(&buf, r)
	out := buf.String()
	assert.Contains(t, out, "INDICATOR")
	assert.Contains(t, out, "2700.00")
	assert.Contains(t, out, "source yahoo failed: status 429")
	assert.Contains(t, out, "phase: Undetermined")
}
