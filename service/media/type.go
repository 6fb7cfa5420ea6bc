package media

import (
	"context"

	"gocv.io/x/gocv"

	"github.com/khaledhikmat/dfd-go/model"
)

// Media is one decoded upload: the raw bytes (kept for metadata forensics)
// plus the still frames the pipeline analyzes. Images decode to a single
// frame; videos to a small sampled set.
type Media struct {
	Type        model.MediaType
	Raw         []byte
	Frames      []gocv.Mat
	FPS         float64
	TotalFrames int
}

// Close releases the decoded frames. Callers own the Media they fetched.
func (m *Media) Close() {
	for i := range m.Frames {
		m.Frames[i].Close()
	}
	m.Frames = nil
}

type IService interface {
	DetectMediaType(url string) model.MediaType
	Fetch(ctx context.Context, url string) (*Media, error)
	Decode(data []byte, mediaType model.MediaType) (*Media, error)
}
