package media

import (
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/corona10/goimagehash"
	"gocv.io/x/gocv"
	"golang.org/x/image/draw"

	"github.com/khaledhikmat/dfd-go/model"
	"github.com/khaledhikmat/dfd-go/service/config"
	"github.com/khaledhikmat/dfd-go/service/lgr"
)

// URL substrings that mark a video upload. Checked case-insensitively.
var videoIndicators = []string{
	"/video/", ".mp4", ".mov", ".avi", ".webm", ".mkv", "video/upload",
}

// Sampled frames closer than this perceptual-hash distance to their
// predecessor are dropped as stutter duplicates.
const dupHashDistance = 4

type httpService struct {
	cfgSvc config.IService
	client *http.Client
}

func NewHTTP(cfgSvc config.IService) IService {
	return &httpService{
		cfgSvc: cfgSvc,
		client: &http.Client{
			Timeout: time.Duration(cfgSvc.GetDownloadTimeoutSeconds()) * time.Second,
		},
	}
}

func (svc *httpService) DetectMediaType(url string) model.MediaType {
	lower := strings.ToLower(url)
	for _, indicator := range videoIndicators {
		if strings.Contains(lower, indicator) {
			return model.MediaTypeVideo
		}
	}
	return model.MediaTypeImage
}

func (svc *httpService) Fetch(ctx context.Context, url string) (*Media, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error building media request: %w", err)
	}

	resp, err := svc.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error downloading media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("media download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, svc.cfgSvc.GetMaxDownloadBytes()))
	if err != nil {
		return nil, fmt.Errorf("error reading media body: %w", err)
	}

	return svc.Decode(data, svc.DetectMediaType(url))
}

func (svc *httpService) Decode(data []byte, mediaType model.MediaType) (*Media, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty media payload")
	}

	if mediaType == model.MediaTypeVideo {
		return svc.decodeVideo(data)
	}
	return svc.decodeImage(data)
}

func (svc *httpService) decodeImage(data []byte) (*Media, error) {
	img, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("error decoding image: %w", err)
	}
	if img.Empty() {
		img.Close()
		return nil, fmt.Errorf("decoded image is empty")
	}

	return &Media{
		Type:        model.MediaTypeImage,
		Raw:         data,
		Frames:      []gocv.Mat{img},
		TotalFrames: 1,
	}, nil
}

func (svc *httpService) decodeVideo(data []byte) (*Media, error) {
	// gocv cannot open a video from memory, so spill to a temp file first.
	tmp, err := os.CreateTemp("", "dfd-*.mp4")
	if err != nil {
		return nil, fmt.Errorf("error creating temp video file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("error writing temp video file: %w", err)
	}
	tmp.Close()

	cap, err := gocv.VideoCaptureFile(tmp.Name())
	if err != nil {
		return nil, fmt.Errorf("error opening video: %w", err)
	}
	defer cap.Close()

	totalFrames := int(cap.Get(gocv.VideoCaptureFrameCount))
	fps := cap.Get(gocv.VideoCaptureFPS)

	lgr.Logger.Debug("video opened",
		slog.Int("totalFrames", totalFrames),
		slog.Float64("fps", fps),
	)

	indices := sampleIndices(totalFrames, svc.cfgSvc.GetVideoFrameCount())

	frames := []gocv.Mat{}
	var prevHash *goimagehash.ImageHash

	for _, idx := range indices {
		cap.Set(gocv.VideoCapturePosFrames, float64(idx))

		img := gocv.NewMat()
		if ok := cap.Read(&img); !ok || img.Empty() {
			img.Close() // Crucial to close the image to avoid memory leaks
			continue
		}

		// Drop near-identical consecutive samples so stalled footage does
		// not dominate the vote.
		hash := perceptualHash(img)
		if hash != nil && prevHash != nil {
			if dist, err := hash.Distance(prevHash); err == nil && dist < dupHashDistance {
				lgr.Logger.Debug("skipping duplicate video frame",
					slog.Int("frame", idx),
					slog.Int("distance", dist),
				)
				img.Close()
				continue
			}
		}
		if hash != nil {
			prevHash = hash
		}

		frames = append(frames, img)
	}

	if len(frames) == 0 {
		return nil, fmt.Errorf("no decodable frames in video")
	}

	return &Media{
		Type:        model.MediaTypeVideo,
		Raw:         data,
		Frames:      frames,
		FPS:         fps,
		TotalFrames: totalFrames,
	}, nil
}

// sampleIndices spreads count sample points over the clip, always including
// the first and last frame.
func sampleIndices(totalFrames, count int) []int {
	if totalFrames <= 0 {
		return nil
	}
	if totalFrames <= count {
		indices := make([]int, totalFrames)
		for i := range indices {
			indices[i] = i
		}
		return indices
	}

	step := float64(totalFrames) / float64(count-1)
	indices := make([]int, count)
	for i := 0; i < count; i++ {
		indices[i] = int(float64(i) * step)
	}
	if indices[count-1] > totalFrames-1 {
		indices[count-1] = totalFrames - 1
	}
	return indices
}

func perceptualHash(m gocv.Mat) *goimagehash.ImageHash {
	img, err := m.ToImage()
	if err != nil {
		return nil
	}

	// Downscale before hashing; the hash only needs coarse structure.
	small := image.NewRGBA(image.Rect(0, 0, 64, 64))
	draw.ApproxBiLinear.Scale(small, small.Bounds(), img, img.Bounds(), draw.Over, nil)

	hash, err := goimagehash.PerceptionHash(small)
	if err != nil {
		return nil
	}
	return hash
}
