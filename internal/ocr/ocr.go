// Package ocr turns bet-slip screenshots into text with tesseract.
package ocr

import (
	"context"
	"log/slog"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// DefaultLanguages are tried in order until one yields text.
var DefaultLanguages = []string{"por", "eng"}

// Engine extracts text from an image. Failures yield an empty string.
type Engine interface {
	Recognize(ctx context.Context, image []byte) string
}

// Nop is an Engine that never finds text, used when OCR is disabled.
type Nop struct{}

// Recognize implements Engine.
func (Nop) Recognize(context.Context, []byte) string { return "" }

type recognizeFunc func(lang string, image []byte) (string, error)

// Tesseract runs gosseract once per configured language and returns the
// first non-blank result.
type Tesseract struct {
	logger    *slog.Logger
	recognize recognizeFunc
	languages []string
}

// NewTesseract builds an engine for languages, falling back to
// DefaultLanguages when none are given.
func NewTesseract(languages []string, logger *slog.Logger) *Tesseract {
	if len(languages) == 0 {
		languages = DefaultLanguages
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tesseract{
		languages: append([]string(nil), languages...),
		logger:    logger,
		recognize: gosseractRecognize,
	}
}

// Recognize implements Engine.
func (t *Tesseract) Recognize(ctx context.Context, image []byte) string {
	if len(image) == 0 {
		return ""
	}
	for _, lang := range t.languages {
		if ctx.Err() != nil {
			return ""
		}
		text, err := t.recognize(lang, image)
		if err != nil {
			t.logger.Debug("OCR failed", "lang", lang, "error", err)
			continue
		}
		if strings.TrimSpace(text) != "" {
			return text
		}
		t.logger.Debug("OCR produced no text", "lang", lang)
	}
	return ""
}

// gosseractRecognize uses a fresh client per call; clients are not safe for
// concurrent use.
func gosseractRecognize(lang string, image []byte) (string, error) {
	client := gosseract.NewClient()
	defer func() { _ = client.Close() }()

	if err := client.SetLanguage(lang); err != nil {
		return "", err
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return "", err
	}
	return client.Text()
}
