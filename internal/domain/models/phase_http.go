package models

// Requests for the phase HTTP endpoints.

type LatestRequest struct {
	Refresh bool `query:"refresh" json:"refresh"`
}

type ClassifyRequest struct {
	IndicatorSet
	IncludeReadings *bool `json:"include_readings" default:"true"`
}

type HistoryRequest struct {
	From  string `query:"from" json:"from"`
	To    string `query:"to" json:"to"`
	Limit int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=1000"`
}

// IndicatorsResponse is returned by the collect-only endpoint.
type IndicatorsResponse struct {
	Indicators   IndicatorSet      `json:"indicators"`
	SourceErrors map[string]string `json:"source_errors,omitempty"`
}
