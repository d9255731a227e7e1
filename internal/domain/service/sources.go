package service

import (
	"context"

	"MarketPhase/internal/domain/models"
)

// IndicatorSource fetches whatever subset of indicators it knows about.
// On partial failure it returns the readings it did get together with an
// error describing the rest; unread indicators stay nil.
type IndicatorSource interface {
	Name() string
	Fetch(ctx context.Context) (models.IndicatorSet, error)
}
