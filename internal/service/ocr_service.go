package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"koins/internal/models"
	"koins/pkg/config"

	"github.com/Azure/azure-sdk-for-go/services/cognitiveservices/v3.0/computervision"
	"github.com/Azure/go-autorest/autorest"
	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"
	"github.com/otiai10/gosseract/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

var ErrExtractionFailed = errors.New("text extraction failed")

// TextRecognizer turns raw image bytes into recognized lines.
type TextRecognizer interface {
	Recognize(ctx context.Context, image []byte) ([]string, error)
	Name() string
}

type OCRService struct {
	recognizer TextRecognizer
	preprocess bool
	sem        *semaphore.Weighted
	logger     *zap.Logger
}

// NewOCRService builds the recognizer selected by cfg.Engine.
func NewOCRService(cfg *config.OCRConfig, logger *zap.Logger) (*OCRService, error) {
	var recognizer TextRecognizer
	switch cfg.Engine {
	case config.EngineTesseract:
		recognizer = NewTesseractRecognizer(cfg.Languages)
	case config.EngineAzure:
		recognizer = NewAzureRecognizer(cfg.AzureEndpoint, cfg.AzureKey, cfg.AzureLanguage)
	default:
		return nil, fmt.Errorf("unsupported OCR engine %q", cfg.Engine)
	}

	logger.Info("OCR engine configured",
		zap.String("engine", recognizer.Name()),
		zap.Int("max_concurrent", cfg.MaxConcurrent),
	)
	return NewOCRServiceWithRecognizer(recognizer, cfg.MaxConcurrent, cfg.Preprocess, logger), nil
}

func NewOCRServiceWithRecognizer(recognizer TextRecognizer, maxConcurrent int, preprocess bool, logger *zap.Logger) *OCRService {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &OCRService{
		recognizer: recognizer,
		preprocess: preprocess,
		sem:        semaphore.NewWeighted(int64(maxConcurrent)),
		logger:     logger,
	}
}

// ExtractText recognizes the text of a captured image or PDF. It makes a
// single attempt; every failure, including an empty result, is reported as
// ErrExtractionFailed.
func (s *OCRService) ExtractText(ctx context.Context, h *ImageHandle) ([]models.TextBlock, error) {
	if h == nil {
		return nil, fmt.Errorf("%w: no image", ErrExtractionFailed)
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	defer s.sem.Release(1)

	var (
		lines  []string
		err    error
		method string
	)
	switch {
	case h.ContentType == "application/pdf":
		method = "go-fitz"
		lines, err = s.extractTextFromPDF(h.Path)
	case strings.HasPrefix(h.ContentType, "image/"):
		method = s.recognizer.Name()
		lines, err = s.extractTextFromImage(ctx, h.Path)
	default:
		return nil, fmt.Errorf("%w: unsupported content type %s", ErrExtractionFailed, h.ContentType)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	blocks := toTextBlocks(lines)

	s.logger.Info("OCR extraction completed",
		zap.String("method", method),
		zap.String("content_type", h.ContentType),
		zap.Int("blocks", len(blocks)),
	)

	if len(blocks) == 0 {
		return nil, fmt.Errorf("%w: no text recognized", ErrExtractionFailed)
	}
	return blocks, nil
}

func (s *OCRService) extractTextFromImage(ctx context.Context, path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	if s.preprocess {
		enhanced, err := enhanceForOCR(data)
		if err != nil {
			s.logger.Warn("Image enhancement failed, using original", zap.Error(err))
		} else {
			data = enhanced
		}
	}

	return s.recognizer.Recognize(ctx, data)
}

func (s *OCRService) extractTextFromPDF(path string) ([]string, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	var lines []string
	for i := 0; i < doc.NumPage(); i++ {
		pageText, err := doc.Text(i)
		if err != nil {
			s.logger.Warn("Failed to extract text from page",
				zap.Int("page", i+1),
				zap.Error(err),
			)
			continue
		}
		lines = append(lines, strings.Split(pageText, "\n")...)
	}
	return lines, nil
}

// enhanceForOCR raises contrast and sharpness of a photographed receipt and
// re-encodes it as PNG.
func enhanceForOCR(data []byte) ([]byte, error) {
	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	img := imaging.Grayscale(src)
	img = imaging.AdjustContrast(img, 30)
	img = imaging.Sharpen(img, 1.5)
	if b := img.Bounds(); b.Dx() > 2000 || b.Dy() > 2000 {
		img = imaging.Fit(img, 2000, 2000, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

func toTextBlocks(lines []string) []models.TextBlock {
	blocks := make([]models.TextBlock, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(sanitizeUTF8(line))
		if line == "" {
			continue
		}
		blocks = append(blocks, models.TextBlock{Text: line})
	}
	return blocks
}

// JoinBlocks concatenates recognized blocks with newlines, in order.
func JoinBlocks(blocks []models.TextBlock) string {
	parts := make([]string, len(blocks))
	for i, b := range blocks {
		parts[i] = b.Text
	}
	return strings.Join(parts, "\n")
}

// TesseractRecognizer runs a local tesseract installation.
type TesseractRecognizer struct {
	languages []string
}

func NewTesseractRecognizer(languages []string) *TesseractRecognizer {
	return &TesseractRecognizer{languages: languages}
}

func (r *TesseractRecognizer) Name() string { return "tesseract" }

func (r *TesseractRecognizer) Recognize(ctx context.Context, image []byte) ([]string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if len(r.languages) > 0 {
		if err := client.SetLanguage(r.languages...); err != nil {
			return nil, fmt.Errorf("failed to set languages: %w", err)
		}
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return nil, fmt.Errorf("failed to load image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("tesseract failed: %w", err)
	}
	return strings.Split(text, "\n"), nil
}

// AzureRecognizer calls the Azure Computer Vision printed text endpoint.
type AzureRecognizer struct {
	client   *computervision.BaseClient
	language computervision.OcrLanguages
}

func NewAzureRecognizer(endpoint, apiKey, language string) *AzureRecognizer {
	client := computervision.New(endpoint)
	client.Authorizer = autorest.NewCognitiveServicesAuthorizer(apiKey)

	return &AzureRecognizer{
		client:   &client,
		language: computervision.OcrLanguages(language),
	}
}

func (r *AzureRecognizer) Name() string { return "azure" }

func (r *AzureRecognizer) Recognize(ctx context.Context, image []byte) ([]string, error) {
	result, err := r.client.RecognizePrintedTextInStream(
		ctx,
		true,
		io.NopCloser(bytes.NewReader(image)),
		r.language,
	)
	if err != nil {
		return nil, fmt.Errorf("azure OCR failed: %w", err)
	}
	return linesFromOCRResult(result), nil
}

func linesFromOCRResult(result computervision.OcrResult) []string {
	if result.Regions == nil {
		return nil
	}

	var lines []string
	for _, region := range *result.Regions {
		if region.Lines == nil {
			continue
		}
		for _, line := range *region.Lines {
			if line.Words == nil {
				continue
			}
			words := make([]string, 0, len(*line.Words))
			for _, word := range *line.Words {
				if word.Text != nil {
					words = append(words, *word.Text)
				}
			}
			lines = append(lines, strings.Join(words, " "))
		}
	}
	return lines
}
