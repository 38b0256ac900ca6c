package image

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// ImagePreprocessor transforms an image before it reaches the OCR engine.
type ImagePreprocessor interface {
	Process(img image.Image) (image.Image, error)
}

// PreprocessConfig selects the steps of DefaultPipeline.
type PreprocessConfig struct {
	MinWidth        int
	Denoise         bool
	DenoiseStrength float64
	Sharpen         bool
	SharpenStrength float64
	Contrast        float64
}

func DefaultPreprocessConfig() *PreprocessConfig {
	return &PreprocessConfig{
		MinWidth:        1000,
		Denoise:         true,
		DenoiseStrength: 0.5,
		Sharpen:         true,
		SharpenStrength: 0.5,
		Contrast:        20,
	}
}

// Pipeline applies preprocessors in order.
type Pipeline []ImagePreprocessor

func (p Pipeline) Process(img image.Image) (image.Image, error) {
	if img == nil {
		return nil, fmt.Errorf("input image is nil")
	}
	var err error
	for _, step := range p {
		if img, err = step.Process(img); err != nil {
			return nil, err
		}
	}
	return img, nil
}

// DefaultPipeline upscales small scans, converts to grayscale and cleans up
// noise before sharpening.
func DefaultPipeline(cfg *PreprocessConfig) Pipeline {
	if cfg == nil {
		cfg = DefaultPreprocessConfig()
	}
	p := Pipeline{NewUpscaleProcessor(cfg.MinWidth), NewGrayscaleProcessor()}
	if cfg.Denoise {
		p = append(p, NewDenoiseProcessor(cfg.DenoiseStrength))
	}
	if cfg.Contrast != 0 {
		p = append(p, NewContrastProcessor(cfg.Contrast))
	}
	if cfg.Sharpen {
		p = append(p, NewSharpenProcessor(cfg.SharpenStrength))
	}
	return p
}

// 灰度处理器
type GrayscaleProcessor struct{}

func NewGrayscaleProcessor() *GrayscaleProcessor {
	return &GrayscaleProcessor{}
}

func (p *GrayscaleProcessor) Process(img image.Image) (image.Image, error) {
	return imaging.Grayscale(img), nil
}

// UpscaleProcessor enlarges images narrower than minWidth; tesseract
// accuracy drops sharply on small glyphs.
type UpscaleProcessor struct {
	minWidth int
}

func NewUpscaleProcessor(minWidth int) *UpscaleProcessor {
	return &UpscaleProcessor{minWidth: minWidth}
}

func (p *UpscaleProcessor) Process(img image.Image) (image.Image, error) {
	w := img.Bounds().Dx()
	if p.minWidth <= 0 || w == 0 || w >= p.minWidth {
		return img, nil
	}
	return imaging.Resize(img, p.minWidth, 0, imaging.Lanczos), nil
}

// 降噪处理器
type DenoiseProcessor struct {
	strength float64
}

func NewDenoiseProcessor(strength float64) *DenoiseProcessor {
	return &DenoiseProcessor{strength: strength}
}

func (p *DenoiseProcessor) Process(img image.Image) (image.Image, error) {
	return imaging.Blur(img, p.strength), nil
}

// 锐化处理器
type SharpenProcessor struct {
	strength float64
}

func NewSharpenProcessor(strength float64) *SharpenProcessor {
	return &SharpenProcessor{strength: strength}
}

func (p *SharpenProcessor) Process(img image.Image) (image.Image, error) {
	return imaging.Sharpen(img, p.strength), nil
}

// 对比度处理器
type ContrastProcessor struct {
	percentage float64
}

func NewContrastProcessor(percentage float64) *ContrastProcessor {
	return &ContrastProcessor{percentage: percentage}
}

func (p *ContrastProcessor) Process(img image.Image) (image.Image, error) {
	return imaging.AdjustContrast(img, p.percentage), nil
}
