package classifier

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/khaledhikmat/dfd-go/model"
)

func TestSoftmax2(t *testing.T) {
	fake, real := softmax2(0, 0)
	assert.InDelta(t, 0.5, fake, 1e-9)
	assert.InDelta(t, 0.5, real, 1e-9)

	fake, real = softmax2(3, 1)
	assert.Greater(t, fake, real)
	assert.InDelta(t, 1.0, fake+real, 1e-9)

	// Large logits must not overflow.
	fake, real = softmax2(1000, 998)
	assert.False(t, fake != fake, "fake is NaN")
	assert.InDelta(t, 1.0, fake+real, 1e-9)
}

func TestFakeClassifierDefaultScore(t *testing.T) {
	svc := NewFake(nil)
	require.True(t, svc.Loaded())

	m := gocv.NewMatWithSize(8, 8, gocv.MatTypeCV8UC3)
	defer m.Close()

	scores, err := svc.ClassifyBatch(context.Background(), []gocv.Mat{m, m})
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.Equal(t, model.Score{Fake: 0.5, Real: 0.5}, scores[0])
}

func TestFakeClassifierCustomScore(t *testing.T) {
	svc := NewFake(func(index int, _ gocv.Mat) model.Score {
		f := float64(index) / 10
		return model.Score{Fake: f, Real: 1 - f}
	})

	m := gocv.NewMatWithSize(8, 8, gocv.MatTypeCV8UC3)
	defer m.Close()

	scores, err := svc.ClassifyBatch(context.Background(), []gocv.Mat{m, m, m})
	require.NoError(t, err)
	assert.Equal(t, 0.0, scores[0].Fake)
	assert.Equal(t, 0.2, scores[2].Fake)
}
