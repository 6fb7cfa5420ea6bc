package mode

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/khaledhikmat/dfd-go/model"
	"github.com/khaledhikmat/dfd-go/pipeline"
)

// Scan analyzes the URLs given on the command line and prints one verdict
// per line. Exit is immediate; this mode is for spot checks, not serving.
func Scan(canxCtx context.Context, svcs pipeline.ServicesFactory, engine *pipeline.Engine) error {
	urls := os.Args[2:]
	if len(urls) == 0 {
		return model.GenError("scan", nil, map[string]interface{}{},
			"scan mode requires at least one media url argument")
	}

	for _, url := range urls {
		select {
		case <-canxCtx.Done():
			return nil
		default:
		}

		verdict, err := engine.AnalyzeURL(canxCtx, url)
		if err != nil {
			color.Red("%s: error: %v", url, err)
			continue
		}

		printVerdict(url, verdict)
	}

	return nil
}

func printVerdict(url string, v *model.Verdict) {
	paint := color.New(color.FgGreen)
	switch v.Classification {
	case model.ClassificationFake:
		paint = color.New(color.FgRed, color.Bold)
	case model.ClassificationSuspicious:
		paint = color.New(color.FgYellow)
	}

	paint.Printf("%s  %s", url, string(v.Classification))
	fmt.Printf("  fake=%.3f real=%.3f confidence=%.3f frames=%d faces=%d (%d ms)\n",
		v.Scores.Fake,
		v.Scores.Real,
		v.Confidence,
		v.Details.TotalFrames,
		v.Details.FacesDetected,
		v.Details.ProcessingTimeMs)

	if v.Details.ContentType != "" {
		fmt.Printf("  content: %s\n", v.Details.ContentType)
	}
	if v.Details.NoFaceForced {
		fmt.Println("  note: no faces found and all signals low; treated as authentic")
	}
}
