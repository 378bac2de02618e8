package verifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMeanAndCVZeroMeanGuard(t *testing.T) {
	mean, cv := meanAndCV([]float64{0, 0, 0})
	assert.Equal(t, 0.0, mean)
	assert.Equal(t, 0.0, cv)
}

func TestMeanAndCVEmptySamples(t *testing.T) {
	mean, cv := meanAndCV(nil)
	assert.Equal(t, 0.0, mean)
	assert.Equal(t, 0.0, cv)
}

func TestMeanAndCVHighVariance(t *testing.T) {
	_, cv := meanAndCV([]float64{0.01, 0.01, 0.01, 0.01, 5.0})
	assert.Greater(t, cv, 0.8)
}

func TestMeanAndCVLowVariance(t *testing.T) {
	_, cv := meanAndCV([]float64{1.0, 1.01, 0.99, 1.0, 1.02})
	assert.Less(t, cv, 0.1)
}

func TestPopulationStdConstantSamplesIsZero(t *testing.T) {
	assert.Equal(t, 0.0, populationStd([]float64{2, 2, 2, 2}))
}
