package cache

import (
	"crypto/md5"
	"encoding/hex"
	"sync"
	"time"

	"github.com/khaledhikmat/dfd-go/model"
	"github.com/khaledhikmat/dfd-go/service/config"
)

type entry struct {
	verdict  *model.Verdict
	storedAt time.Time
}

type memoryService struct {
	cfgSvc  config.IService
	lock    sync.Mutex
	entries map[string]entry
}

func NewMemory(cfgSvc config.IService) IService {
	return &memoryService{
		cfgSvc:  cfgSvc,
		entries: map[string]entry{},
	}
}

func key(url string) string {
	sum := md5.Sum([]byte(url))
	return hex.EncodeToString(sum[:])
}

func (svc *memoryService) Get(url string) (*model.Verdict, bool) {
	svc.lock.Lock()
	defer svc.lock.Unlock()

	e, ok := svc.entries[key(url)]
	if !ok {
		return nil, false
	}

	ttl := time.Duration(svc.cfgSvc.GetAnalysisCacheTTLSeconds()) * time.Second
	if time.Since(e.storedAt) > ttl {
		delete(svc.entries, key(url))
		return nil, false
	}

	return e.verdict, true
}

func (svc *memoryService) Set(url string, verdict *model.Verdict) {
	svc.lock.Lock()
	defer svc.lock.Unlock()

	if len(svc.entries) >= svc.cfgSvc.GetAnalysisCacheSize() {
		svc.evictOldest()
	}

	svc.entries[key(url)] = entry{
		verdict:  verdict,
		storedAt: time.Now(),
	}
}

func (svc *memoryService) Delete(url string) {
	svc.lock.Lock()
	defer svc.lock.Unlock()

	delete(svc.entries, key(url))
}

func (svc *memoryService) Len() int {
	svc.lock.Lock()
	defer svc.lock.Unlock()

	return len(svc.entries)
}

func (svc *memoryService) Finalize() {
	svc.lock.Lock()
	defer svc.lock.Unlock()

	svc.entries = map[string]entry{}
}

// evictOldest assumes the lock is held.
func (svc *memoryService) evictOldest() {
	var oldestKey string
	var oldestAt time.Time

	for k, e := range svc.entries {
		if oldestKey == "" || e.storedAt.Before(oldestAt) {
			oldestKey = k
			oldestAt = e.storedAt
		}
	}

	if oldestKey != "" {
		delete(svc.entries, oldestKey)
	}
}
