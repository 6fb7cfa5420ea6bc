package classifier

import (
	"context"
	"fmt"
	"image"
	"math"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/khaledhikmat/dfd-go/model"
	"github.com/khaledhikmat/dfd-go/service/config"
)

type dnnService struct {
	cfgSvc config.IService
	// WARNING: gocv.Net is not thread-safe, so every forward pass is
	// serialized behind this lock.
	lock   sync.Mutex
	net    gocv.Net
	size   int
	loaded bool
}

// NewDNN loads the ONNX classifier once at process start. The returned
// service is shared read-only (modulo the forward lock) by all requests.
func NewDNN(cfgSvc config.IService) (IService, error) {
	modelPath := cfgSvc.GetClassifierModelPath()
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("classifier model does not exist: %s", modelPath)
	}

	net := gocv.ReadNet(modelPath, "")
	if net.Empty() {
		return nil, fmt.Errorf("error reading classifier model: %s", modelPath)
	}

	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		return nil, err
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		return nil, err
	}

	return &dnnService{
		cfgSvc: cfgSvc,
		net:    net,
		size:   cfgSvc.GetDetectionParameters().OptimalSize,
		loaded: true,
	}, nil
}

func (svc *dnnService) Loaded() bool {
	return svc.loaded
}

func (svc *dnnService) ClassifyBatch(ctx context.Context, frames []gocv.Mat) ([]model.Score, error) {
	svc.lock.Lock()
	defer svc.lock.Unlock()

	scores := make([]model.Score, 0, len(frames))
	for _, frame := range frames {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if frame.Empty() {
			return nil, fmt.Errorf("empty frame submitted to classifier")
		}

		score, err := svc.forward(frame)
		if err != nil {
			return nil, err
		}
		scores = append(scores, score)
	}

	return scores, nil
}

func (svc *dnnService) forward(frame gocv.Mat) (model.Score, error) {
	blob := gocv.BlobFromImage(frame, 1.0/255.0, image.Pt(svc.size, svc.size),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	svc.net.SetInput(blob, "")

	output := svc.net.Forward("")
	defer output.Close()

	logits, err := output.DataPtrFloat32()
	if err != nil || len(logits) < 2 {
		return model.Score{}, fmt.Errorf("unexpected classifier output shape")
	}

	// Label order is {fake, real}, matching the trained head.
	fake, real := softmax2(float64(logits[0]), float64(logits[1]))
	return model.Score{Fake: fake, Real: real}, nil
}

func softmax2(a, b float64) (float64, float64) {
	m := math.Max(a, b)
	ea := math.Exp(a - m)
	eb := math.Exp(b - m)
	sum := ea + eb
	return ea / sum, eb / sum
}
