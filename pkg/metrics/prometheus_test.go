package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordVerdict("Overheat", "live")
	r.RecordVerdict("Overheat", "live")
	r.RecordSourceFetch("ecos", 0.2, errors.New("timeout"))
	r.RecordSourceFetch("naver", 0.1, nil)
	r.RecordIndicator("kospi", 2700)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.verdicts.WithLabelValues("Overheat", "live")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.sourceErrors.WithLabelValues("ecos")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.sourceErrors.WithLabelValues("naver")))
	assert.Equal(t, 2700.0, testutil.ToFloat64(r.indicator.WithLabelValues("kospi")))
}
