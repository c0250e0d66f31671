package receipt

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/semaphore"

	"dompet/internal/core"
	applog "dompet/internal/log"
)

// Recognizer converts an image into raw text.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

var (
	ErrEmptyImage       = errors.New("empty image")
	ErrImageTooLarge    = errors.New("image too large")
	ErrUnsupportedImage = errors.New("unsupported image type")
	ErrRecognition      = errors.New("text recognition failed")
)

var supportedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// Result is the outcome of scanning one receipt. Found is false when the
// image was readable but no total could be extracted.
type Result struct {
	Found       bool            `json:"found"`
	Amount      decimal.Decimal `json:"amount"`
	AmountField string          `json:"amount_field"`
	Formatted   string          `json:"formatted"`
	Text        string          `json:"text"`
}

type ScannerConfig struct {
	MaxImageBytes int64
	MaxConcurrent int64
}

func DefaultScannerConfig() ScannerConfig {
	return ScannerConfig{
		MaxImageBytes: 8 << 20,
		MaxConcurrent: 3,
	}
}

// Scanner validates receipt images, runs OCR and extracts the total.
type Scanner struct {
	recognizer Recognizer
	sem        *semaphore.Weighted
	maxBytes   int64
	logger     *applog.Logger
}

func NewScanner(r Recognizer, cfg ScannerConfig, logger *applog.Logger) *Scanner {
	def := DefaultScannerConfig()
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = def.MaxImageBytes
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = def.MaxConcurrent
	}
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &Scanner{
		recognizer: r,
		sem:        semaphore.NewWeighted(cfg.MaxConcurrent),
		maxBytes:   cfg.MaxImageBytes,
		logger:     logger.WithComponent(applog.ComponentReceipt),
	}
}

// MaxImageBytes is the largest image Scan accepts.
func (s *Scanner) MaxImageBytes() int64 {
	return s.maxBytes
}

// ValidateImage checks size and sniffed content type.
func (s *Scanner) ValidateImage(image []byte) (string, error) {
	if len(image) == 0 {
		return "", ErrEmptyImage
	}
	if int64(len(image)) > s.maxBytes {
		return "", fmt.Errorf("%w: %d bytes (max %d)", ErrImageTooLarge, len(image), s.maxBytes)
	}
	contentType := http.DetectContentType(image)
	if !supportedImageTypes[contentType] {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedImage, contentType)
	}
	return contentType, nil
}

// Scan runs OCR on image and extracts the receipt total.
func (s *Scanner) Scan(ctx context.Context, image []byte) (Result, error) {
	contentType, err := s.ValidateImage(image)
	if err != nil {
		return Result{}, err
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return Result{}, fmt.Errorf("wait for recognizer: %w", err)
	}
	text, err := s.recognizer.Recognize(ctx, image)
	s.sem.Release(1)
	if err != nil {
		s.logger.ErrorContext(ctx, "Receipt recognition failed",
			applog.FieldError, err,
			"content_type", contentType,
			"size_bytes", len(image))
		return Result{}, fmt.Errorf("%w: %v", ErrRecognition, err)
	}

	res := Result{Text: text, Amount: decimal.Zero}
	if total, ok := ExtractTotal(text); ok {
		res.Found = true
		res.Amount = total
		res.AmountField = core.WholeAmount(total)
		res.Formatted = core.FormatRupiah(total)
	}

	s.logger.InfoContext(ctx, "Receipt scanned",
		"found", res.Found,
		"amount", res.Amount.String(),
		"content_type", contentType,
		"text_length", len(text))
	return res, nil
}
