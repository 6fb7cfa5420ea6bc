package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFaceConfidence(t *testing.T) {
	// Reference-size square face maxes both components.
	assert.InDelta(t, 1.0, faceConfidence(150, 150, 150), 1e-9)

	// Half-size square: area ratio 0.25, perfect aspect.
	assert.InDelta(t, 0.625, faceConfidence(75, 75, 150), 1e-9)

	// Wide 2:1 box at half area: both components penalized.
	assert.InDelta(t, 0.5, faceConfidence(150, 75, 150), 1e-9)

	// Oversized faces saturate the size component.
	assert.InDelta(t, 1.0, faceConfidence(400, 400, 150), 1e-9)

	assert.Equal(t, 0.0, faceConfidence(100, 0, 150))
}

func TestFaceConfidenceOrdering(t *testing.T) {
	// Bigger well-proportioned faces never score below smaller ones.
	small := faceConfidence(40, 40, 150)
	medium := faceConfidence(100, 100, 150)
	large := faceConfidence(150, 150, 150)

	assert.Less(t, small, medium)
	assert.Less(t, medium, large)
}
