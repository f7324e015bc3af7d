package formulas

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func closesSeries(n int, start float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)
	}
	return out
}

func TestCalculateSMA_NilWhenInsufficientHistory(t *testing.T) {
	assert.Nil(t, CalculateSMA(closesSeries(5, 100), 12))
}

func TestCalculateSMA_ReturnsMeanOfWindow(t *testing.T) {
	closes := []float64{10, 10, 10, 10}
	got := CalculateSMA(closes, 4)
	if assert.NotNil(t, got) {
		assert.InDelta(t, 10.0, *got, 0.0001)
	}
}

func TestCalculateEMA_NilWhenInsufficientHistory(t *testing.T) {
	assert.Nil(t, CalculateEMA(closesSeries(5, 100), 12))
}

func TestCalculateEMA_ReturnsValueWhenEnoughHistory(t *testing.T) {
	got := CalculateEMA(closesSeries(30, 100), 12)
	assert.NotNil(t, got)
}
