package probe

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/bep/imagemeta"

	"github.com/khaledhikmat/dfd-go/model"
)

// editingToolKeywords are software-tag substrings that indicate the image
// passed through an editor (case-insensitive).
var editingToolKeywords = []string{
	"photoshop",
	"lightroom",
	"gimp",
	"affinity",
	"pixelmator",
	"snapseed",
	"facetune",
	"faceapp",
	"picsart",
	"canva",
	"capture one",
	"luminar",
	"paintshop",
}

// generatorToolKeywords are software/tool substrings left by known image
// generators.
var generatorToolKeywords = []string{
	"midjourney",
	"dall-e",
	"dall·e",
	"stable diffusion",
	"stablediffusion",
	"firefly",
	"leonardo",
	"runway",
	"imagen",
	"craiyon",
	"novelai",
	"comfyui",
	"automatic1111",
}

// ExifProbe inspects raw image bytes, not a decoded frame, so it sits
// outside the Probe interface. Missing metadata alone is only mildly
// suspicious since most social platforms strip it on upload.
type ExifProbe struct{}

func NewExif() *ExifProbe {
	return &ExifProbe{}
}

func (p *ExifProbe) Name() string {
	return "exif"
}

func (p *ExifProbe) Available() bool {
	return true
}

func (p *ExifProbe) Run(data []byte) model.ProbeResult {
	if len(data) == 0 {
		return model.Neutral("empty payload")
	}

	tags := map[string]string{}

	_, err := imagemeta.Decode(imagemeta.Options{
		R:       bytes.NewReader(data),
		Sources: imagemeta.EXIF | imagemeta.XMP,
		ShouldHandleTag: func(ti imagemeta.TagInfo) bool {
			switch ti.Tag {
			case "Software", "Make", "Model", "DateTime", "DateTimeOriginal", "DateTimeDigitized", "CreatorTool":
				return true
			}
			return false
		},
		HandleTag: func(ti imagemeta.TagInfo) error {
			if s := tagString(ti.Value); s != "" {
				tags[ti.Tag] = s
			}
			return nil
		},
	})

	stripped := err != nil || len(tags) == 0

	software := strings.ToLower(tags["Software"] + " " + tags["CreatorTool"])
	editing := matchesAny(software, editingToolKeywords)
	generated := matchesAny(software, generatorToolKeywords)

	dateMismatch := false
	if dt, ok := tags["DateTime"]; ok {
		if dto, ok2 := tags["DateTimeOriginal"]; ok2 && dt != dto {
			dateMismatch = true
		}
	}

	score := exifSuspicion(stripped, editing, generated, dateMismatch)

	return model.ProbeResult{
		Score: score,
		Details: map[string]interface{}{
			"metadataStripped":        stripped,
			"editingSoftwareDetected": editing,
			"aiGeneratorDetected":     generated,
			"dateMismatch":            dateMismatch,
			"software":                strings.TrimSpace(software),
			"cameraMake":              tags["Make"],
			"cameraModel":             tags["Model"],
		},
	}
}

func exifSuspicion(stripped, editing, generated, dateMismatch bool) float64 {
	if generated {
		return 0.9
	}

	score := 0.0
	if stripped {
		score += 0.3
	}
	if editing {
		score += 0.4
	}
	if dateMismatch {
		score += 0.2
	}
	return clamp01(score)
}

func matchesAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func tagString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case fmt.Stringer:
		return strings.TrimSpace(t.String())
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	}
}
