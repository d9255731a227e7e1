package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"MarketPhase/internal/domain/models"
	pkgkafka "MarketPhase/pkg/kafka"
)

var errEmptyIndicators = errors.New("message carries no known indicator")

// IndicatorConsumer classifies IndicatorSets published by external collectors.
type IndicatorConsumer struct {
	analyzer *PhaseAnalyzer
	topic    string
}

var _ pkgkafka.MessageHandler = (*IndicatorConsumer)(nil)

func NewIndicatorConsumer(analyzer *PhaseAnalyzer, topic string) *IndicatorConsumer {
	return &IndicatorConsumer{analyzer: analyzer, topic: topic}
}

func (h *IndicatorConsumer) Topic() string { return h.topic }

func (h *IndicatorConsumer) Handle(ctx context.Context, payload []byte) error {
	var set models.IndicatorSet
	if err := json.Unmarshal(payload, &set); err != nil {
		return pkgkafka.Permanent(fmt.Errorf("decode indicators: %w", err))
	}
	if set.Empty() {
		return pkgkafka.Permanent(errEmptyIndicators)
	}
	_, err := h.analyzer.Classify(ctx, set, models.OriginStream)
	return err
}
