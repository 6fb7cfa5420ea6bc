package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khaledhikmat/dfd-go/model"
	"github.com/khaledhikmat/dfd-go/service/config"
)

func TestDetectMediaType(t *testing.T) {
	svc := NewHTTP(config.NewHardCoded())

	cases := []struct {
		url      string
		expected model.MediaType
	}{
		{"https://cdn.example.com/u/abc123.jpg", model.MediaTypeImage},
		{"https://cdn.example.com/u/abc123.png", model.MediaTypeImage},
		{"https://cdn.example.com/u/clip.mp4", model.MediaTypeVideo},
		{"https://cdn.example.com/u/CLIP.MOV", model.MediaTypeVideo},
		{"https://cdn.example.com/video/abc123", model.MediaTypeVideo},
		{"https://res.cloudinary.com/demo/video/upload/dog", model.MediaTypeVideo},
		{"https://cdn.example.com/u/clip.webm", model.MediaTypeVideo},
		{"https://cdn.example.com/u/clip.mkv", model.MediaTypeVideo},
		{"https://cdn.example.com/u/clip.avi", model.MediaTypeVideo},
		{"https://cdn.example.com/u/no-extension", model.MediaTypeImage},
	}

	for _, c := range cases {
		assert.Equal(t, c.expected, svc.DetectMediaType(c.url), c.url)
	}
}

func TestSampleIndicesShortClip(t *testing.T) {
	// Clips with no more frames than the sample count use every frame.
	assert.Equal(t, []int{0, 1, 2}, sampleIndices(3, 5))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, sampleIndices(5, 5))
}

func TestSampleIndicesLongClip(t *testing.T) {
	indices := sampleIndices(100, 5)
	require.Len(t, indices, 5)
	assert.Equal(t, 0, indices[0])
	assert.LessOrEqual(t, indices[4], 99)

	// Indices must be strictly increasing.
	for i := 1; i < len(indices); i++ {
		assert.Greater(t, indices[i], indices[i-1])
	}
}

func TestSampleIndicesEmpty(t *testing.T) {
	assert.Nil(t, sampleIndices(0, 5))
}

func TestDecodeRejectsEmptyPayload(t *testing.T) {
	svc := NewHTTP(config.NewHardCoded())

	_, err := svc.Decode(nil, model.MediaTypeImage)
	assert.Error(t, err)
}
