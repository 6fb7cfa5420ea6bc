package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gocv.io/x/gocv"

	"github.com/khaledhikmat/dfd-go/model"
	"github.com/khaledhikmat/dfd-go/service/config"
)

type filesService struct {
	cfgSvc config.IService
}

func NewFiles(cfgSvc config.IService) IService {
	return &filesService{
		cfgSvc: cfgSvc,
	}
}

func (svc *filesService) Reset() error {
	folder := svc.cfgSvc.GetDebugFolder()
	if err := os.RemoveAll(folder); err != nil {
		return model.GenError("storage", err, nil, "unable to clear debug folder %s", folder)
	}
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return model.GenError("storage", err, nil, "unable to create debug folder %s", folder)
	}
	return nil
}

func (svc *filesService) StoreFrame(index int, name string, img gocv.Mat, score model.Score) (string, error) {
	if img.Empty() {
		return "", model.GenError("storage", nil, nil, "refusing to store empty frame %s", name)
	}

	verdict := "REAL"
	if score.Fake > 0.5 {
		verdict = "FAKE"
	}

	// e.g. IMG_03_face1_fft_FAKE_82.jpg
	fileName := fmt.Sprintf("IMG_%02d_%s_%s_%d.jpg",
		index, sanitize(name), verdict, int(score.Fake*100))
	path := filepath.Join(svc.cfgSvc.GetDebugFolder(), fileName)

	if ok := gocv.IMWrite(path, img); !ok {
		return "", model.GenError("storage", nil, nil, "unable to write debug frame %s", path)
	}

	return path, nil
}

func (svc *filesService) Finalize() {
}

func sanitize(name string) string {
	r := strings.NewReplacer(" ", "_", "/", "_", "\\", "_", ":", "_")
	return r.Replace(name)
}
