package pipeline

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/natefinch/lumberjack"
	"gocv.io/x/gocv"

	"github.com/khaledhikmat/dfd-go/model"
	"github.com/khaledhikmat/dfd-go/probe"
	"github.com/khaledhikmat/dfd-go/service/lgr"
	"github.com/khaledhikmat/dfd-go/service/media"
)

// Rolling record of every analysis, one JSON line per request.
var analysisLogger = &lumberjack.Logger{
	Filename:   "analyses.log",
	MaxSize:    10, // MB
	MaxBackups: 5,
	MaxAge:     7,    // days
	Compress:   true, // compress old logs
}

type analysisRecord struct {
	RequestID      string  `json:"requestId"`
	MediaType      string  `json:"mediaType"`
	Classification string  `json:"classification"`
	Fake           float64 `json:"fake"`
	Frames         int     `json:"frames"`
	Faces          int     `json:"faces"`
	ProcTimeMs     int64   `json:"procTimeMs"`
	Timestamp      int64   `json:"timestamp"`
}

// Engine owns one end-to-end scoring pipeline: frame generation, batch
// classification, the heuristic probe fan-out and the aggregation chain.
// Safe for concurrent Analyze calls; the locator cascade is the only
// shared mutable piece and is serialized internally.
type Engine struct {
	factory ServicesFactory
	locator *FaceLocator
	regions *RegionExtractor
	framer  *FrameGenerator
	agg     *Aggregator
	video   *VideoAnalyzer
	exif    *probe.ExifProbe
	started time.Time

	lock       sync.Mutex
	requests   int64
	frames     int64
	faces      int64
	errors     int64
	procTimeMs int64
	probeRuns  map[string]*model.ProbeStats
}

func NewEngine(factory ServicesFactory) (*Engine, error) {
	locator, err := NewFaceLocator(factory.CfgSvc)
	if err != nil {
		return nil, err
	}

	return &Engine{
		factory:   factory,
		locator:   locator,
		regions:   NewRegionExtractor(factory.CfgSvc),
		framer:    NewFrameGenerator(factory.CfgSvc, locator),
		agg:       NewAggregator(factory.CfgSvc),
		video:     NewVideoAnalyzer(locator),
		exif:      probe.NewExif(),
		started:   time.Now(),
		probeRuns: map[string]*model.ProbeStats{},
	}, nil
}

func (e *Engine) Close() {
	e.locator.Close()
}

// AnalyzeURL fetches, decodes and scores one media URL.
func (e *Engine) AnalyzeURL(ctx context.Context, url string) (*model.Verdict, error) {
	m, err := e.factory.MediaSvc.Fetch(ctx, url)
	if err != nil {
		e.countError()
		return nil, err
	}
	defer m.Close()

	return e.Analyze(ctx, m)
}

// Analyze scores decoded media. Classifier failure is fatal for the
// request; probe failures degrade to neutral results.
func (e *Engine) Analyze(ctx context.Context, m *media.Media) (*model.Verdict, error) {
	start := time.Now()
	requestID := uuid.NewString()

	if len(m.Frames) == 0 {
		e.countError()
		return nil, model.GenError("engine", nil, map[string]interface{}{"requestId": requestID},
			"media decoded to zero frames")
	}

	var fs *FrameSet
	if m.Type == model.MediaTypeVideo {
		fs = e.framer.GenerateVideo(m)
	} else {
		fs = e.framer.GenerateImage(m.Frames[0])
	}
	defer fs.Close()

	lgr.Logger.Info("frame set generated",
		"requestId", requestID,
		"mediaType", string(m.Type),
		"frames", len(fs.Frames),
		"faces", len(fs.Faces))

	mats := make([]gocv.Mat, len(fs.Frames))
	for i, f := range fs.Frames {
		mats[i] = f.Mat
	}

	scores, err := e.factory.ClassifierSvc.ClassifyBatch(ctx, mats)
	if err != nil {
		e.countError()
		return nil, model.GenError("engine", err, map[string]interface{}{"requestId": requestID},
			"classifier batch failed")
	}
	if len(scores) != len(fs.Frames) {
		e.countError()
		return nil, model.GenError("engine", nil, map[string]interface{}{
			"requestId": requestID, "frames": len(fs.Frames), "scores": len(scores),
		}, "classifier returned %d scores for %d frames", len(scores), len(fs.Frames))
	}

	scored := make([]ScoredFrame, len(fs.Frames))
	for i, f := range fs.Frames {
		scored[i] = ScoredFrame{Name: f.Name, Weight: f.Weight, Score: scores[i]}
	}

	probeCtx, probeScores := e.runProbes(ctx, m, fs)

	score, details := e.agg.Aggregate(scored, fs.Faces, m.Type, probeCtx)
	details.ProbeScores = probeScores

	if m.Type == model.MediaTypeVideo {
		details.VideoForensics = e.video.Analyze(m.Frames)
	}

	details.ProcessingTimeMs = time.Since(start).Milliseconds()
	verdict := e.agg.Finalize(score, details)

	e.storeDebugFrames(fs, scored)
	e.countRequest(len(fs.Frames), len(fs.Faces), details.ProcessingTimeMs)

	logAnalysis(analysisRecord{
		RequestID:      requestID,
		MediaType:      string(m.Type),
		Classification: string(verdict.Classification),
		Fake:           score.Fake,
		Frames:         len(fs.Frames),
		Faces:          len(fs.Faces),
		ProcTimeMs:     details.ProcessingTimeMs,
		Timestamp:      time.Now().Unix(),
	})

	lgr.Logger.Info("analysis complete",
		"requestId", requestID,
		"classification", string(verdict.Classification),
		"fake", score.Fake,
		"procTimeMs", details.ProcessingTimeMs)

	return verdict, nil
}

func logAnalysis(rec analysisRecord) {
	jsonData, err := json.Marshal(rec)
	if err != nil {
		lgr.Logger.Error("unable to marshal analysis record", "error", err)
		return
	}
	if _, err := analysisLogger.Write(append(jsonData, '\n')); err != nil {
		lgr.Logger.Error("unable to write analysis record", "error", err)
	}
}

type probeTask struct {
	name string
	run  func() model.ProbeResult
}

// runProbes fans the applicable probes out over a bounded worker pool and
// joins all results before aggregation starts. The boost chain is order
// sensitive, so nothing downstream may observe a partial context.
func (e *Engine) runProbes(ctx context.Context, m *media.Media, fs *FrameSet) (*ProbeContext, map[string]float64) {
	primary := m.Frames[0]
	tasks := e.buildProbeTasks(m, fs, primary)

	type probeOutcome struct {
		name   string
		result model.ProbeResult
	}

	taskCh := make(chan probeTask)
	outCh := make(chan probeOutcome, len(tasks))

	workers := e.factory.CfgSvc.GetProbeMaxWorkers()
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range taskCh {
				select {
				case <-ctx.Done():
					outCh <- probeOutcome{t.name, model.Neutral("canceled")}
					continue
				default:
				}
				outCh <- probeOutcome{t.name, t.run()}
			}
		}()
	}

	for _, t := range tasks {
		taskCh <- t
	}
	close(taskCh)
	wg.Wait()
	close(outCh)

	results := map[string]model.ProbeResult{}
	scores := map[string]float64{}
	for out := range outCh {
		results[out.name] = out.result
		scores[out.name] = out.result.Score
		e.countProbe(out.name, out.result)
	}

	pc := &ProbeContext{}
	assign := func(name string, dst **model.ProbeResult) {
		if r, ok := results[name]; ok {
			cp := r
			*dst = &cp
		}
	}
	assign("filter", &pc.Filter)
	assign("screen", &pc.Screen)
	assign("compression", &pc.Compression)
	assign("exif", &pc.Exif)
	assign("blending", &pc.Blending)
	assign("landmarks", &pc.Landmarks)
	assign("stylization", &pc.Stylization)
	assign("scene", &pc.Scene)

	return pc, scores
}

// buildProbeTasks selects the probes for this request. Face probes clone
// their crop up front so workers never share a Mat.
func (e *Engine) buildProbeTasks(m *media.Media, fs *FrameSet, primary gocv.Mat) []probeTask {
	wrap := func(p probe.Probe, img gocv.Mat) func() model.ProbeResult {
		return func() model.ProbeResult {
			defer img.Close()
			if !p.Available() {
				return model.Neutral("probe unavailable")
			}
			return p.Run(img)
		}
	}

	// Each task gets its own clone; workers never share a Mat.
	tasks := []probeTask{
		{"frequency", wrap(probe.NewFrequency(), primary.Clone())},
		{"color", wrap(probe.NewColor(), primary.Clone())},
		{"noise", wrap(probe.NewNoise(), primary.Clone())},
	}

	if len(fs.Faces) > 0 {
		// The primary face bbox is only valid on the frame it was
		// detected in, so face probes crop from that frame.
		face := fs.Faces[0]
		src := faceSourceFrame(m, face)
		crop := e.regions.FaceCrop(src, face)
		cropLm := crop.Clone()
		tasks = append(tasks,
			probeTask{"filter", wrap(probe.NewFilter(), crop)},
			probeTask{"landmarks", wrap(probe.NewLandmarks(), cropLm)},
			probeTask{"blending", wrap(probe.NewBlending(face), src.Clone())},
		)
	} else {
		tasks = append(tasks,
			probeTask{"screen", wrap(probe.NewScreen(), primary.Clone())},
			probeTask{"scene", wrap(probe.NewScene(), primary.Clone())},
		)
	}

	if m.Type == model.MediaTypeImage {
		tasks = append(tasks,
			probeTask{"compression", wrap(probe.NewCompression(), primary.Clone())},
			probeTask{"stylization", wrap(probe.NewStylization(), primary.Clone())},
			probeTask{"exif", func() model.ProbeResult {
				return e.exif.Run(m.Raw)
			}},
		)
	}

	return tasks
}

// faceSourceFrame resolves the frame a face was detected in, falling back
// to the first frame for out-of-range indexes.
func faceSourceFrame(m *media.Media, face model.FaceInfo) gocv.Mat {
	if face.FrameIndex > 0 && face.FrameIndex < len(m.Frames) {
		return m.Frames[face.FrameIndex]
	}
	return m.Frames[0]
}

// storeDebugFrames persists the generated frames of this run, if a debug
// store is configured. Failures are logged and otherwise ignored.
func (e *Engine) storeDebugFrames(fs *FrameSet, scored []ScoredFrame) {
	if e.factory.StorageSvc == nil {
		return
	}
	if err := e.factory.StorageSvc.Reset(); err != nil {
		lgr.Logger.Warn("debug store reset failed", "error", err)
		return
	}
	for i, f := range fs.Frames {
		if _, err := e.factory.StorageSvc.StoreFrame(i, f.Name, f.Mat, scored[i].Score); err != nil {
			lgr.Logger.Warn("debug frame store failed", "frame", f.Name, "error", err)
		}
	}
}

// Stats snapshots the engine counters.
func (e *Engine) Stats() model.EngineStats {
	e.lock.Lock()
	defer e.lock.Unlock()

	avg := 0.0
	if e.requests > 0 {
		avg = float64(e.procTimeMs) / float64(e.requests)
	}

	return model.EngineStats{
		Frames:      int(e.frames),
		Faces:       int(e.faces),
		Errors:      int(e.errors),
		Uptime:      int64(time.Since(e.started).Seconds()),
		AvgProcTime: avg,
		Timestamp:   time.Now().Unix(),
	}
}

// ProbeStats snapshots per-probe run counters.
func (e *Engine) ProbeStats() []model.ProbeStats {
	e.lock.Lock()
	defer e.lock.Unlock()

	out := make([]model.ProbeStats, 0, len(e.probeRuns))
	for _, s := range e.probeRuns {
		cp := *s
		cp.Timestamp = time.Now().Unix()
		out = append(out, cp)
	}
	return out
}

func (e *Engine) countRequest(frames, faces int, procMs int64) {
	e.lock.Lock()
	defer e.lock.Unlock()
	e.requests++
	e.frames += int64(frames)
	e.faces += int64(faces)
	e.procTimeMs += procMs
}

func (e *Engine) countError() {
	e.lock.Lock()
	defer e.lock.Unlock()
	e.errors++
}

func (e *Engine) countProbe(name string, r model.ProbeResult) {
	e.lock.Lock()
	defer e.lock.Unlock()

	s, ok := e.probeRuns[name]
	if !ok {
		s = &model.ProbeStats{Name: name}
		e.probeRuns[name] = s
	}
	s.Runs++
	if _, degraded := r.Details["error"]; degraded {
		s.Errors++
	}
	// Running average keeps the snapshot cheap.
	s.AvgScore = s.AvgScore + (r.Score-s.AvgScore)/float64(s.Runs)
}
