package cache

import (
	"github.com/khaledhikmat/dfd-go/model"
)

// IService caches analysis verdicts by media URL so repeated requests for
// the same asset skip the pipeline. Entries expire after a TTL and the
// oldest entry is evicted when the cache is full.
type IService interface {
	Get(url string) (*model.Verdict, bool)
	Set(url string, verdict *model.Verdict)
	Delete(url string)
	Len() int
	Finalize()
}
