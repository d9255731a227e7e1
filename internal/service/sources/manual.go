package sources

import (
	"context"
	"fmt"
	"sort"

	"MarketPhase/internal/domain/models"
)

// Manual serves fixed values from configuration, for indicators without a free feed.
type Manual struct {
	set models.IndicatorSet
}

// NewManual validates names up front so a typo fails at startup.
func NewManual(values map[string]float64) (*Manual, error) {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	var set models.IndicatorSet
	for _, name := range names {
		ind, err := models.ParseIndicator(name)
		if err != nil {
			return nil, fmt.Errorf("manual source: %w", err)
		}
		set.Set(ind, values[name])
	}
	return &Manual{set: set}, nil
}

func (m *Manual) Name() string { return "manual" }

func (m *Manual) Fetch(context.Context) (models.IndicatorSet, error) {
	// Copy so callers merging into the result never alias our pointers.
	var out models.IndicatorSet
	out.Merge(m.set)
	return out, nil
}
