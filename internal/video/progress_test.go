package video

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaydheshiv/uyir-sub000/internal/model"
)

func progressOf(t *testing.T, v interface{}) *float64 {
	t.Helper()
	p := model.PayloadFromMap(map[string]interface{}{"progress": v})
	return ExtractProgress(p)
}

func TestExtractProgress_RatioString(t *testing.T) {
	got := progressOf(t, "3/4")
	require.NotNil(t, got)
	assert.InDelta(t, 75, *got, 0.001)
}

func TestExtractProgress_FractionScaled(t *testing.T) {
	got := progressOf(t, 0.5)
	require.NotNil(t, got)
	assert.InDelta(t, 50, *got, 0.001)
}

func TestExtractProgress_PercentAsIs(t *testing.T) {
	got := progressOf(t, float64(40))
	require.NotNil(t, got)
	assert.InDelta(t, 40, *got, 0.001)
}

func TestExtractProgress_ClampedHigh(t *testing.T) {
	got := progressOf(t, float64(120))
	require.NotNil(t, got)
	assert.InDelta(t, 100, *got, 0.001)
}

func TestExtractProgress_ClampedLow(t *testing.T) {
	got := progressOf(t, float64(-5))
	require.NotNil(t, got)
	assert.InDelta(t, 0, *got, 0.001)
}

func TestExtractProgress_Garbage(t *testing.T) {
	assert.Nil(t, progressOf(t, "abc"))
	assert.Nil(t, progressOf(t, "3/0"))
	assert.Nil(t, progressOf(t, true))
	assert.Nil(t, progressOf(t, ""))
}

func TestExtractProgress_NoCandidate(t *testing.T) {
	p := model.PayloadFromMap(map[string]interface{}{"status": "processing"})
	assert.Nil(t, ExtractProgress(p))
}

func TestExtractProgress_NumericString(t *testing.T) {
	got := progressOf(t, "45")
	require.NotNil(t, got)
	assert.InDelta(t, 45, *got, 0.001)
}

func TestExtractProgress_PercentSuffixNotRescaled(t *testing.T) {
	got := progressOf(t, "0.5%")
	require.NotNil(t, got)
	assert.InDelta(t, 0.5, *got, 0.001)
}

func TestExtractProgress_AliasFields(t *testing.T) {
	p := model.PayloadFromMap(map[string]interface{}{
		"data": map[string]interface{}{"progress_percent": float64(66)},
	})
	got := ExtractProgress(p)
	require.NotNil(t, got)
	assert.InDelta(t, 66, *got, 0.001)
}
